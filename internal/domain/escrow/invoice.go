package escrow

import (
	"time"

	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// InvoiceSeed is the namespace tag for invoice record addresses. One
// business identity maps to exactly one live invoice record.
const InvoiceSeed = "invoice"

// Invoice is the escrow record for a factored invoice. It tracks the three
// participants (business, investor, mint), the face amount, the discounted
// sale price, the repayment due date and the lifecycle status. All amounts
// are integer quantities in the mint's smallest unit.
type Invoice struct {
	Address   valueobject.Address  `json:"address"`
	Business  valueobject.Identity `json:"business"`
	Investor  valueobject.Identity `json:"investor"`
	Mint      valueobject.Identity `json:"mint"`
	Amount    uint64               `json:"amount"`
	SalePrice uint64               `json:"sale_price"`
	DueDate   int64                `json:"due_date"`
	Status    InvoiceStatus        `json:"status"`
	Bump      uint8                `json:"bump"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// DeriveInvoiceAddress returns the record address and bump for a business
// identity. Derivation is pure; the bump is stored in the record so the
// address can be re-verified without a search.
func DeriveInvoiceAddress(business valueobject.Identity) (valueobject.Address, uint8) {
	return valueobject.DeriveAddress(InvoiceSeed, business[:])
}

// NewInvoice creates a Pending invoice for the business. Investor and mint
// stay zero until purchase and listing.
func NewInvoice(business valueobject.Identity, amount uint64, dueDate int64) (*Invoice, error) {
	if business.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Business identity is required")
	}
	if amount == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice amount must be greater than zero")
	}

	addr, bump := DeriveInvoiceAddress(business)
	now := time.Now().UTC()
	return &Invoice{
		Address:   addr,
		Business:  business,
		Amount:    amount,
		DueDate:   dueDate,
		Status:    StatusPending,
		Bump:      bump,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// List puts the invoice up for sale at a discount. Only the business may
// list, and re-listing while still Listed adjusts the price. Anything at
// Sold or beyond is rejected.
func (inv *Invoice) List(signer, mint valueobject.Identity, salePrice uint64) error {
	if err := requireSigner(signer, inv.Business); err != nil {
		return err
	}
	if err := requireNotSold(inv.Status); err != nil {
		return err
	}
	if err := requirePriceBound(salePrice, inv.Amount); err != nil {
		return err
	}
	if mint.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "Mint identity is required")
	}

	inv.Mint = mint
	inv.SalePrice = salePrice
	inv.Status = StatusListed
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

// Purchase records the investor taking the listed invoice. The sale-price
// transfer itself is the caller's responsibility and must succeed in the
// same execution unit as this mutation.
func (inv *Invoice) Purchase(investor valueobject.Identity) error {
	if err := requireStatus(inv.Status, StatusListed, ErrNotListed); err != nil {
		return err
	}
	if investor.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "Investor identity is required")
	}

	inv.Investor = investor
	inv.Status = StatusSold
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel withdraws an unsold invoice. Allowed from Pending and Listed;
// once sold the business must repay instead.
func (inv *Invoice) Cancel(signer valueobject.Identity) error {
	if err := requireSigner(signer, inv.Business); err != nil {
		return err
	}
	if err := requireNotSold(inv.Status); err != nil {
		return err
	}

	inv.Status = StatusCancelled
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

// Repay settles the invoice back to the investor at face amount. Valid
// regardless of the due date; the record closes afterwards.
func (inv *Invoice) Repay(signer valueobject.Identity) error {
	if err := requireSigner(signer, inv.Business); err != nil {
		return err
	}
	if err := requireStatus(inv.Status, StatusSold, ErrNotSold); err != nil {
		return err
	}

	inv.Status = StatusRepaid
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

// ClaimDefault marks an unpaid, past-due invoice as defaulted. Only the
// investor may claim, and no funds move; the record stays addressable as a
// permanent marker.
func (inv *Invoice) ClaimDefault(signer valueobject.Identity, now int64) error {
	if err := requireStatus(inv.Status, StatusSold, ErrNotSold); err != nil {
		return err
	}
	if err := requireSigner(signer, inv.Investor); err != nil {
		return err
	}
	if err := requirePastDue(now, inv.DueDate); err != nil {
		return err
	}

	inv.Status = StatusDefaulted
	inv.UpdatedAt = time.Now().UTC()
	return nil
}

// ClosesOnSuccess reports whether a completed transition out of the given
// status deletes the record. Repaid and Cancelled reclaim storage,
// Defaulted is retained.
func ClosesOnSuccess(s InvoiceStatus) bool {
	return s == StatusRepaid || s == StatusCancelled
}
