package persistence

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
	"github.com/factorline/backend/internal/infrastructure/persistence/models"
)

// GormLedger implements token.Ledger. A transfer debits one account, credits
// the other and writes a journal row, all inside the caller's transaction.
type GormLedger struct {
	db       *gorm.DB
	accounts *GormTokenAccountRepository
}

// NewGormLedger creates a new GormLedger
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db, accounts: NewGormTokenAccountRepository(db)}
}

// Transfer moves quantity from one account to another within the same mint.
func (l *GormLedger) Transfer(ctx context.Context, from, to valueobject.Address, mint valueobject.Identity, quantity uint64, memo string) error {
	if quantity == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Transfer quantity must be positive")
	}
	if from == to {
		return shared.NewDomainError("INVALID_INPUT", "Transfer endpoints must differ")
	}

	// Lock both rows in address order so concurrent opposite-direction
	// transfers cannot deadlock.
	first, second := from, to
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	firstAcct, err := l.accounts.FindByAddressForUpdate(ctx, first)
	if err != nil {
		return err
	}
	secondAcct, err := l.accounts.FindByAddressForUpdate(ctx, second)
	if err != nil {
		return err
	}

	source, dest := firstAcct, secondAcct
	if source.Address != from {
		source, dest = secondAcct, firstAcct
	}
	if source.Mint != mint || dest.Mint != mint {
		return token.ErrMintMismatch
	}

	if err := source.Withdraw(quantity); err != nil {
		return err
	}
	if err := dest.Deposit(quantity); err != nil {
		return err
	}
	if err := l.accounts.Update(ctx, source); err != nil {
		return err
	}
	if err := l.accounts.Update(ctx, dest); err != nil {
		return err
	}

	journal := models.TransferModelFromDomain(&token.Transfer{
		ID:        uuid.New(),
		From:      from,
		To:        to,
		Mint:      mint,
		Quantity:  quantity,
		Memo:      memo,
		CreatedAt: time.Now().UTC(),
	})
	return l.db.WithContext(ctx).Create(journal).Error
}

// Ensure GormLedger implements token.Ledger
var _ token.Ledger = (*GormLedger)(nil)
