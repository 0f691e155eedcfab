package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
)

// Identities and addresses are stored as 64-character lowercase hex strings.
// Amounts fit in bigint for any realistic mint precision; the domain types
// stay uint64.

// InvoiceModel is the persistence model for escrow invoice records.
type InvoiceModel struct {
	Address   string    `gorm:"type:char(64);primaryKey"`
	Business  string    `gorm:"type:char(64);not null;uniqueIndex"`
	Investor  string    `gorm:"type:char(64);not null"`
	Mint      string    `gorm:"type:char(64);not null"`
	Amount    uint64    `gorm:"not null"`
	SalePrice uint64    `gorm:"not null"`
	DueDate   int64     `gorm:"not null"`
	Status    string    `gorm:"type:varchar(12);not null;index"`
	Bump      uint8     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (InvoiceModel) TableName() string { return "invoices" }

// ToDomain converts the persistence model to the domain entity
func (m *InvoiceModel) ToDomain() (*escrow.Invoice, error) {
	addr, err := valueobject.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}
	business, err := valueobject.ParseIdentity(m.Business)
	if err != nil {
		return nil, err
	}
	investor, err := valueobject.ParseIdentity(m.Investor)
	if err != nil {
		return nil, err
	}
	mint, err := valueobject.ParseIdentity(m.Mint)
	if err != nil {
		return nil, err
	}
	status, err := escrow.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return &escrow.Invoice{
		Address:   addr,
		Business:  business,
		Investor:  investor,
		Mint:      mint,
		Amount:    m.Amount,
		SalePrice: m.SalePrice,
		DueDate:   m.DueDate,
		Status:    status,
		Bump:      m.Bump,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// InvoiceModelFromDomain converts the domain entity to its persistence model
func InvoiceModelFromDomain(inv *escrow.Invoice) *InvoiceModel {
	return &InvoiceModel{
		Address:   inv.Address.String(),
		Business:  inv.Business.String(),
		Investor:  inv.Investor.String(),
		Mint:      inv.Mint.String(),
		Amount:    inv.Amount,
		SalePrice: inv.SalePrice,
		DueDate:   inv.DueDate,
		Status:    inv.Status.String(),
		Bump:      inv.Bump,
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

// TokenAccountModel is the persistence model for asset accounts.
type TokenAccountModel struct {
	Address   string    `gorm:"type:char(64);primaryKey"`
	Owner     string    `gorm:"type:char(64);not null;index"`
	Mint      string    `gorm:"type:char(64);not null"`
	Balance   uint64    `gorm:"not null"`
	Bump      uint8     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (TokenAccountModel) TableName() string { return "token_accounts" }

// ToDomain converts the persistence model to the domain entity
func (m *TokenAccountModel) ToDomain() (*token.Account, error) {
	addr, err := valueobject.ParseAddress(m.Address)
	if err != nil {
		return nil, err
	}
	owner, err := valueobject.ParseIdentity(m.Owner)
	if err != nil {
		return nil, err
	}
	mint, err := valueobject.ParseIdentity(m.Mint)
	if err != nil {
		return nil, err
	}

	return &token.Account{
		Address:   addr,
		Owner:     owner,
		Mint:      mint,
		Balance:   m.Balance,
		Bump:      m.Bump,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}

// TokenAccountModelFromDomain converts the domain entity to its persistence model
func TokenAccountModelFromDomain(acct *token.Account) *TokenAccountModel {
	return &TokenAccountModel{
		Address:   acct.Address.String(),
		Owner:     acct.Owner.String(),
		Mint:      acct.Mint.String(),
		Balance:   acct.Balance,
		Bump:      acct.Bump,
		CreatedAt: acct.CreatedAt,
		UpdatedAt: acct.UpdatedAt,
	}
}

// TransferModel is the journal row written for every completed transfer.
type TransferModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	FromAddress string    `gorm:"type:char(64);not null;index"`
	ToAddress   string    `gorm:"type:char(64);not null;index"`
	Mint        string    `gorm:"type:char(64);not null"`
	Quantity    uint64    `gorm:"not null"`
	Memo        string    `gorm:"type:varchar(128)"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName overrides the table name
func (TransferModel) TableName() string { return "token_transfers" }

// ToDomain converts the persistence model to the domain entry
func (m *TransferModel) ToDomain() (*token.Transfer, error) {
	from, err := valueobject.ParseAddress(m.FromAddress)
	if err != nil {
		return nil, err
	}
	to, err := valueobject.ParseAddress(m.ToAddress)
	if err != nil {
		return nil, err
	}
	mint, err := valueobject.ParseIdentity(m.Mint)
	if err != nil {
		return nil, err
	}

	return &token.Transfer{
		ID:        m.ID,
		From:      from,
		To:        to,
		Mint:      mint,
		Quantity:  m.Quantity,
		Memo:      m.Memo,
		CreatedAt: m.CreatedAt,
	}, nil
}

// TransferModelFromDomain converts the domain entry to its persistence model
func TransferModelFromDomain(tr *token.Transfer) *TransferModel {
	return &TransferModel{
		ID:          tr.ID,
		FromAddress: tr.From.String(),
		ToAddress:   tr.To.String(),
		Mint:        tr.Mint.String(),
		Quantity:    tr.Quantity,
		Memo:        tr.Memo,
		CreatedAt:   tr.CreatedAt,
	}
}
