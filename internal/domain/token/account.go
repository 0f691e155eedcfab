package token

import (
	"time"

	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// AccountSeed is the namespace tag for asset account addresses. An account
// is keyed by its owner identity and the mint it holds.
const AccountSeed = "token"

// Account is a single-mint asset balance held by one owner. Balances are
// integer quantities in the mint's smallest unit and never go negative.
type Account struct {
	Address   valueobject.Address  `json:"address"`
	Owner     valueobject.Identity `json:"owner"`
	Mint      valueobject.Identity `json:"mint"`
	Balance   uint64               `json:"balance"`
	Bump      uint8                `json:"bump"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Domain errors for asset accounts.
var (
	ErrMintMismatch = shared.NewDomainError("MINT_MISMATCH", "Account does not hold the requested mint")
	ErrOverflow     = shared.NewDomainError("BALANCE_OVERFLOW", "Deposit would overflow the account balance")
)

// DeriveAccountAddress returns the deterministic address and bump for an
// owner's account in a given mint.
func DeriveAccountAddress(owner, mint valueobject.Identity) (valueobject.Address, uint8) {
	return valueobject.DeriveAddress(AccountSeed, owner[:], mint[:])
}

// NewAccount creates an empty account for the owner in the given mint.
func NewAccount(owner, mint valueobject.Identity) (*Account, error) {
	if owner.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Account owner identity is required")
	}
	if mint.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Account mint identity is required")
	}

	addr, bump := DeriveAccountAddress(owner, mint)
	now := time.Now().UTC()
	return &Account{
		Address:   addr,
		Owner:     owner,
		Mint:      mint,
		Bump:      bump,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Deposit credits the account.
func (a *Account) Deposit(quantity uint64) error {
	if a.Balance+quantity < a.Balance {
		return ErrOverflow
	}
	a.Balance += quantity
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Withdraw debits the account, failing when the balance is short.
func (a *Account) Withdraw(quantity uint64) error {
	if a.Balance < quantity {
		return shared.ErrInsufficientBalance
	}
	a.Balance -= quantity
	a.UpdatedAt = time.Now().UTC()
	return nil
}
