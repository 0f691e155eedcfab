package escrow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
)

// Quote summarizes the economics of a priced invoice. Rates are fractions
// rounded to six decimal places: DiscountRate is the discount over the face
// amount, Yield is the investor's return over the purchase price.
type Quote struct {
	Address      valueobject.Address `json:"address"`
	Status       string              `json:"status"`
	Amount       uint64              `json:"amount"`
	SalePrice    uint64              `json:"sale_price"`
	Discount     uint64              `json:"discount"`
	DiscountRate decimal.Decimal     `json:"discount_rate"`
	Yield        decimal.Decimal     `json:"yield"`
	DueDate      int64               `json:"due_date"`
}

const ratePlaces = 6

// Quote prices the invoice at the given address. Only invoices that carry a
// sale price (Listed or later) can be quoted.
func (s *Service) Quote(ctx context.Context, addr valueobject.Address) (*Quote, error) {
	inv, err := s.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	if inv.SalePrice == 0 {
		return nil, shared.NewDomainError("INVALID_STATE", "Invoice has no sale price to quote")
	}

	amount := decimal.NewFromUint64(inv.Amount)
	salePrice := decimal.NewFromUint64(inv.SalePrice)
	discount := amount.Sub(salePrice)

	return &Quote{
		Address:      inv.Address,
		Status:       inv.Status.String(),
		Amount:       inv.Amount,
		SalePrice:    inv.SalePrice,
		Discount:     inv.Amount - inv.SalePrice,
		DiscountRate: discount.Div(amount).Round(ratePlaces),
		Yield:        discount.Div(salePrice).Round(ratePlaces),
		DueDate:      inv.DueDate,
	}, nil
}
