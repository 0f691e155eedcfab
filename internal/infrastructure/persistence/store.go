package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/token"
)

// GormStore bundles the repositories and ledger over one *gorm.DB handle,
// which may be the root connection or a transaction.
type GormStore struct {
	invoices *GormInvoiceRepository
	accounts *GormTokenAccountRepository
	ledger   *GormLedger
}

// NewGormStore creates a store over the given handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		invoices: NewGormInvoiceRepository(db),
		accounts: NewGormTokenAccountRepository(db),
		ledger:   NewGormLedger(db),
	}
}

func (s *GormStore) Invoices() escrow.InvoiceRepository { return s.invoices }
func (s *GormStore) Accounts() token.AccountRepository  { return s.accounts }
func (s *GormStore) Ledger() token.Ledger               { return s.ledger }

// GormUnitOfWork runs a function against a transaction-scoped store.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute opens a transaction and hands fn a store bound to it. A non-nil
// error from fn rolls everything back.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, store escrow.Store) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormStore(tx))
	})
}

// Ensure implementations satisfy the domain contracts
var (
	_ escrow.Store      = (*GormStore)(nil)
	_ escrow.UnitOfWork = (*GormUnitOfWork)(nil)
)
