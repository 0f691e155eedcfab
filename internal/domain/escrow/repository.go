package escrow

import (
	"context"

	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
)

// InvoiceRepository persists invoice records keyed by derived address.
type InvoiceRepository interface {
	FindByAddress(ctx context.Context, addr valueobject.Address) (*Invoice, error)
	FindByBusiness(ctx context.Context, business valueobject.Identity) (*Invoice, error)
	FindByStatus(ctx context.Context, status InvoiceStatus, limit, offset int) ([]*Invoice, int64, error)
	Create(ctx context.Context, inv *Invoice) error
	Update(ctx context.Context, inv *Invoice) error
	Delete(ctx context.Context, addr valueobject.Address) error
}

// Store bundles the repositories and the ledger visible inside one unit of
// work. Implementations bind all three to the same transaction.
type Store interface {
	Invoices() InvoiceRepository
	Accounts() token.AccountRepository
	Ledger() token.Ledger
}

// UnitOfWork runs fn atomically: every repository call and ledger transfer
// made through the store commits together or not at all. A non-nil error
// from fn rolls the whole unit back.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
