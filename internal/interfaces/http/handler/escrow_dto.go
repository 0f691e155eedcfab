package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/factorline/backend/internal/application/escrow"
	domainescrow "github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/token"
)

// InvoiceResponse is the wire representation of an escrow invoice
type InvoiceResponse struct {
	Address   string    `json:"address"`
	Business  string    `json:"business"`
	Investor  string    `json:"investor,omitempty"`
	Mint      string    `json:"mint,omitempty"`
	Amount    uint64    `json:"amount"`
	SalePrice uint64    `json:"sale_price,omitempty"`
	DueDate   int64     `json:"due_date"`
	Status    string    `json:"status"`
	Bump      uint8     `json:"bump"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInvoiceResponse converts a domain invoice to its response form.
// Zero-valued participants are omitted rather than rendered as zero hex.
func NewInvoiceResponse(inv *domainescrow.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		Address:   inv.Address.String(),
		Business:  inv.Business.String(),
		Amount:    inv.Amount,
		SalePrice: inv.SalePrice,
		DueDate:   inv.DueDate,
		Status:    inv.Status.String(),
		Bump:      inv.Bump,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
	if !inv.Investor.IsZero() {
		resp.Investor = inv.Investor.String()
	}
	if !inv.Mint.IsZero() {
		resp.Mint = inv.Mint.String()
	}
	return resp
}

// NewInvoiceResponses converts a list of domain invoices
func NewInvoiceResponses(invoices []*domainescrow.Invoice) []InvoiceResponse {
	responses := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		responses = append(responses, NewInvoiceResponse(inv))
	}
	return responses
}

// AccountResponse is the wire representation of an asset account
type AccountResponse struct {
	Address   string    `json:"address"`
	Owner     string    `json:"owner"`
	Mint      string    `json:"mint"`
	Balance   uint64    `json:"balance"`
	Bump      uint8     `json:"bump"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccountResponse converts a domain account to its response form
func NewAccountResponse(acct *token.Account) AccountResponse {
	return AccountResponse{
		Address:   acct.Address.String(),
		Owner:     acct.Owner.String(),
		Mint:      acct.Mint.String(),
		Balance:   acct.Balance,
		Bump:      acct.Bump,
		CreatedAt: acct.CreatedAt,
		UpdatedAt: acct.UpdatedAt,
	}
}

// NewAccountResponses converts a list of domain accounts
func NewAccountResponses(accounts []*token.Account) []AccountResponse {
	responses := make([]AccountResponse, 0, len(accounts))
	for _, acct := range accounts {
		responses = append(responses, NewAccountResponse(acct))
	}
	return responses
}

// QuoteResponse is the wire representation of an invoice pricing quote
type QuoteResponse struct {
	Address      string          `json:"address"`
	Status       string          `json:"status"`
	Amount       uint64          `json:"amount"`
	SalePrice    uint64          `json:"sale_price"`
	Discount     uint64          `json:"discount"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	Yield        decimal.Decimal `json:"yield"`
	DueDate      int64           `json:"due_date"`
}

// NewQuoteResponse converts an application quote to its response form
func NewQuoteResponse(q *escrow.Quote) QuoteResponse {
	return QuoteResponse{
		Address:      q.Address.String(),
		Status:       q.Status,
		Amount:       q.Amount,
		SalePrice:    q.SalePrice,
		Discount:     q.Discount,
		DiscountRate: q.DiscountRate,
		Yield:        q.Yield,
		DueDate:      q.DueDate,
	}
}
