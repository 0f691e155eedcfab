package escrow

import "github.com/factorline/backend/internal/domain/shared"

// Escrow state machine errors. Every operation either fully applies or
// surfaces one of these without touching stored state.
var (
	ErrNotListed        = shared.NewDomainError("NOT_LISTED", "Invoice is not listed for sale")
	ErrAlreadySold      = shared.NewDomainError("ALREADY_SOLD", "Invoice has already been sold")
	ErrNotSold          = shared.NewDomainError("NOT_SOLD", "Invoice has not been sold")
	ErrInvalidSalePrice = shared.NewDomainError("INVALID_SALE_PRICE", "Sale price must be less than the invoice amount")
	ErrNotYetDue        = shared.NewDomainError("NOT_YET_DUE", "Invoice is not yet past its due date")
	ErrUnauthorized     = shared.NewDomainError("UNAUTHORIZED", "Signer is not authorized for this invoice")
	ErrTransferFailed   = shared.NewDomainError("TRANSFER_FAILED", "Escrow transfer was rejected")
	ErrInvalidRecord    = shared.NewDomainError("INVALID_RECORD", "Invoice record bytes are malformed")
)
