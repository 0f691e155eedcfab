package token

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// Transfer is a journal entry for one completed balance movement.
type Transfer struct {
	ID        uuid.UUID            `json:"id"`
	From      valueobject.Address  `json:"from"`
	To        valueobject.Address  `json:"to"`
	Mint      valueobject.Identity `json:"mint"`
	Quantity  uint64               `json:"quantity"`
	Memo      string               `json:"memo,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// AccountRepository persists asset accounts.
type AccountRepository interface {
	FindByAddress(ctx context.Context, addr valueobject.Address) (*Account, error)
	// FindByAddressForUpdate locks the row for the duration of the ambient
	// transaction. Outside a transaction it behaves like FindByAddress.
	FindByAddressForUpdate(ctx context.Context, addr valueobject.Address) (*Account, error)
	FindByOwner(ctx context.Context, owner valueobject.Identity) ([]*Account, error)
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
}

// Ledger moves balances between accounts of the same mint. A transfer is
// all-or-nothing: on error no balance changes and no journal entry exists.
type Ledger interface {
	Transfer(ctx context.Context, from, to valueobject.Address, mint valueobject.Identity, quantity uint64, memo string) error
}
