package handler

import (
	"context"
	"sync"

	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
)

// In-memory store implementations for handler tests.

type memInvoiceRepository struct {
	mu       sync.Mutex
	invoices map[valueobject.Address]*escrow.Invoice
}

func newMemInvoiceRepository() *memInvoiceRepository {
	return &memInvoiceRepository{invoices: make(map[valueobject.Address]*escrow.Invoice)}
}

func (m *memInvoiceRepository) FindByAddress(ctx context.Context, addr valueobject.Address) (*escrow.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.invoices[addr]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memInvoiceRepository) FindByBusiness(ctx context.Context, business valueobject.Identity) (*escrow.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.Business == business {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memInvoiceRepository) FindByStatus(ctx context.Context, status escrow.InvoiceStatus, limit, offset int) ([]*escrow.Invoice, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*escrow.Invoice
	for _, inv := range m.invoices {
		if inv.Status == status {
			cp := *inv
			matched = append(matched, &cp)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (m *memInvoiceRepository) Create(ctx context.Context, inv *escrow.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.invoices[inv.Address]; exists {
		return shared.ErrAlreadyExists
	}
	cp := *inv
	m.invoices[inv.Address] = &cp
	return nil
}

func (m *memInvoiceRepository) Update(ctx context.Context, inv *escrow.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.invoices[inv.Address]; !exists {
		return shared.ErrNotFound
	}
	cp := *inv
	m.invoices[inv.Address] = &cp
	return nil
}

func (m *memInvoiceRepository) Delete(ctx context.Context, addr valueobject.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.invoices[addr]; !exists {
		return shared.ErrNotFound
	}
	delete(m.invoices, addr)
	return nil
}

type memAccountRepository struct {
	mu       sync.Mutex
	accounts map[valueobject.Address]*token.Account
}

func newMemAccountRepository() *memAccountRepository {
	return &memAccountRepository{accounts: make(map[valueobject.Address]*token.Account)}
}

func (m *memAccountRepository) FindByAddress(ctx context.Context, addr valueobject.Address) (*token.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if acct, ok := m.accounts[addr]; ok {
		cp := *acct
		return &cp, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memAccountRepository) FindByAddressForUpdate(ctx context.Context, addr valueobject.Address) (*token.Account, error) {
	return m.FindByAddress(ctx, addr)
}

func (m *memAccountRepository) FindByOwner(ctx context.Context, owner valueobject.Identity) ([]*token.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*token.Account
	for _, acct := range m.accounts {
		if acct.Owner == owner {
			cp := *acct
			matched = append(matched, &cp)
		}
	}
	return matched, nil
}

func (m *memAccountRepository) Create(ctx context.Context, acct *token.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[acct.Address]; exists {
		return shared.ErrAlreadyExists
	}
	cp := *acct
	m.accounts[acct.Address] = &cp
	return nil
}

func (m *memAccountRepository) Update(ctx context.Context, acct *token.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[acct.Address]; !exists {
		return shared.ErrNotFound
	}
	cp := *acct
	m.accounts[acct.Address] = &cp
	return nil
}

type memLedger struct {
	accounts *memAccountRepository
}

func (m *memLedger) Transfer(ctx context.Context, from, to valueobject.Address, mint valueobject.Identity, quantity uint64, memo string) error {
	source, err := m.accounts.FindByAddress(ctx, from)
	if err != nil {
		return err
	}
	dest, err := m.accounts.FindByAddress(ctx, to)
	if err != nil {
		return err
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
	if err := m.accounts.Update(ctx, source); err != nil {
		return err
	}
	return m.accounts.Update(ctx, dest)
}

type memStore struct {
	invoices *memInvoiceRepository
	accounts *memAccountRepository
	ledger   *memLedger
}

func newMemStore() *memStore {
	accounts := newMemAccountRepository()
	return &memStore{
		invoices: newMemInvoiceRepository(),
		accounts: accounts,
		ledger:   &memLedger{accounts: accounts},
	}
}

func (s *memStore) Invoices() escrow.InvoiceRepository { return s.invoices }
func (s *memStore) Accounts() token.AccountRepository  { return s.accounts }
func (s *memStore) Ledger() token.Ledger               { return s.ledger }

// memUnitOfWork runs fn directly against the shared store. Tests exercise
// handler and service behavior, not transaction isolation.
type memUnitOfWork struct {
	store *memStore
}

func (u *memUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, store escrow.Store) error) error {
	return fn(ctx, u.store)
}

var (
	_ escrow.Store      = (*memStore)(nil)
	_ escrow.UnitOfWork = (*memUnitOfWork)(nil)
)
