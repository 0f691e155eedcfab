package escrow

import (
	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// Guard predicates shared by the invoice transitions. Each returns nil when
// the precondition holds and the operation's surfaced error otherwise, so a
// transition is a straight sequence of guard calls followed by field writes.

// requireSigner checks that the acting identity matches the expected one.
func requireSigner(signer, expected valueobject.Identity) error {
	if signer != expected {
		return ErrUnauthorized
	}
	return nil
}

// requireStatus checks the invoice is in exactly the wanted state and
// surfaces the caller's error on mismatch.
func requireStatus(got, want InvoiceStatus, onMismatch *shared.DomainError) error {
	if got != want {
		return onMismatch
	}
	return nil
}

// requirePriceBound enforces the factoring discount: an invoice must sell
// for strictly less than its face amount.
func requirePriceBound(salePrice, amount uint64) error {
	if salePrice >= amount {
		return ErrInvalidSalePrice
	}
	return nil
}

// requireNotSold rejects invoices that have progressed to Sold or any later
// state. Used as the cancellation guard.
func requireNotSold(got InvoiceStatus) error {
	if got == StatusPending || got == StatusListed {
		return nil
	}
	return ErrAlreadySold
}

// requirePastDue checks that the due date has been reached. A timestamp
// exactly equal to the due date counts as due.
func requirePastDue(now, dueDate int64) error {
	if now < dueDate {
		return ErrNotYetDue
	}
	return nil
}
