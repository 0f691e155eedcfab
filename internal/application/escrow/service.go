package escrow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
	"github.com/factorline/backend/internal/infrastructure/telemetry"
)

// InvoiceCache is a best-effort read cache for invoice records. Misses and
// backend failures both surface as a plain miss; writes never fail the
// owning operation.
type InvoiceCache interface {
	Get(ctx context.Context, addr valueobject.Address) (*escrow.Invoice, bool)
	Set(ctx context.Context, inv *escrow.Invoice)
	Invalidate(ctx context.Context, addr valueobject.Address)
}

// Service carries an invoice through its escrow lifecycle. Every mutating
// operation runs inside one unit of work so a rejected transfer and a
// half-applied status change never coexist.
type Service struct {
	store  escrow.Store
	uow    escrow.UnitOfWork
	cache  InvoiceCache
	now    func() time.Time
	logger *zap.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithCache attaches a read cache for invoice lookups.
func WithCache(cache InvoiceCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithClock overrides the time source used for due-date checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the escrow application service.
func NewService(store escrow.Store, uow escrow.UnitOfWork, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		uow:    uow,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeInvoiceRequest carries the arguments for invoice creation.
type InitializeInvoiceRequest struct {
	Amount  uint64 `json:"amount" binding:"required,gt=0"`
	DueDate int64  `json:"due_date" binding:"required"`
}

// ListInvoiceRequest carries the arguments for listing an invoice for sale.
type ListInvoiceRequest struct {
	Mint      string `json:"mint" binding:"required,identity"`
	SalePrice uint64 `json:"sale_price" binding:"required,gt=0"`
}

// PurchaseInvoiceRequest names the two asset-transfer endpoints for the
// sale-price payment.
type PurchaseInvoiceRequest struct {
	InvestorAccount string `json:"investor_account" binding:"required,identity"`
	BusinessAccount string `json:"business_account" binding:"required,identity"`
}

// RepayInvoiceRequest names the two asset-transfer endpoints for the
// face-amount repayment.
type RepayInvoiceRequest struct {
	BusinessAccount string `json:"business_account" binding:"required,identity"`
	InvestorAccount string `json:"investor_account" binding:"required,identity"`
}

// Initialize creates a Pending invoice owned by the signer. The record
// address is derived from the signer identity, so one business holds at
// most one live invoice.
func (s *Service) Initialize(ctx context.Context, signer valueobject.Identity, req InitializeInvoiceRequest) (*escrow.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "initialize",
		telemetry.WithAttribute(telemetry.SpanAttrBusiness, signer),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount))
	defer span.End()

	inv, err := escrow.NewInvoice(signer, req.Amount, req.DueDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		if _, err := store.Invoices().FindByAddress(ctx, inv.Address); err == nil {
			return shared.ErrAlreadyExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return store.Invoices().Create(ctx, inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceAddress, inv.Address)
	telemetry.SetOK(span)

	s.logger.Info("invoice initialized",
		zap.String("address", inv.Address.String()),
		zap.String("business", inv.Business.String()),
		zap.Uint64("amount", inv.Amount))
	return inv, nil
}

// List offers the invoice for sale at a discounted price in the given mint.
func (s *Service) List(ctx context.Context, signer valueobject.Identity, addr valueobject.Address, req ListInvoiceRequest) (*escrow.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "list",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceAddress, addr),
		telemetry.WithAttribute(telemetry.SpanAttrSalePrice, req.SalePrice))
	defer span.End()

	mint, err := valueobject.ParseIdentity(req.Mint)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid mint identity")
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrMint, mint)

	var inv *escrow.Invoice
	err = s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		inv, err = store.Invoices().FindByAddress(ctx, addr)
		if err != nil {
			return err
		}
		if err := inv.List(signer, mint, req.SalePrice); err != nil {
			return err
		}
		return store.Invoices().Update(ctx, inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrStatus, inv.Status.String())
	telemetry.SetOK(span)

	s.invalidate(ctx, addr)
	s.logger.Info("invoice listed",
		zap.String("address", addr.String()),
		zap.Uint64("sale_price", inv.SalePrice))
	return inv, nil
}

// Purchase sells the listed invoice to the signer. The sale price moves
// from the investor's asset account to the business's inside the same unit
// of work as the status change; if the transfer is rejected the record is
// left untouched.
func (s *Service) Purchase(ctx context.Context, signer valueobject.Identity, addr valueobject.Address, req PurchaseInvoiceRequest) (*escrow.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "purchase",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceAddress, addr),
		telemetry.WithAttribute(telemetry.SpanAttrInvestor, signer))
	defer span.End()

	investorAcct, err := valueobject.ParseAddress(req.InvestorAccount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid investor account address")
	}
	businessAcct, err := valueobject.ParseAddress(req.BusinessAccount)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid business account address")
	}

	var inv *escrow.Invoice
	err = s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		inv, err = store.Invoices().FindByAddress(ctx, addr)
		if err != nil {
			return err
		}
		if inv.Status != escrow.StatusListed {
			return escrow.ErrNotListed
		}
		if _, err := requireEndpoint(ctx, store, investorAcct, signer, inv.Mint); err != nil {
			return err
		}
		if _, err := requireEndpoint(ctx, store, businessAcct, inv.Business, inv.Mint); err != nil {
			return err
		}
		if err := inv.Purchase(signer); err != nil {
			return err
		}
		if err := store.Ledger().Transfer(ctx, investorAcct, businessAcct, inv.Mint, inv.SalePrice, "purchase:"+addr.String()); err != nil {
			return s.transferFailed(err, addr)
		}
		return store.Invoices().Update(ctx, inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrSalePrice, inv.SalePrice)
	telemetry.SetAttribute(span, telemetry.SpanAttrStatus, inv.Status.String())
	telemetry.SetOK(span)

	s.invalidate(ctx, addr)
	s.logger.Info("invoice purchased",
		zap.String("address", addr.String()),
		zap.String("investor", signer.String()),
		zap.Uint64("sale_price", inv.SalePrice))
	return inv, nil
}

// Cancel withdraws an unsold invoice and reclaims its record.
func (s *Service) Cancel(ctx context.Context, signer valueobject.Identity, addr valueobject.Address) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceAddress, addr))
	defer span.End()

	err := s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		inv, err := store.Invoices().FindByAddress(ctx, addr)
		if err != nil {
			return err
		}
		if err := inv.Cancel(signer); err != nil {
			return err
		}
		return store.Invoices().Delete(ctx, addr)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)

	s.invalidate(ctx, addr)
	s.logger.Info("invoice cancelled", zap.String("address", addr.String()))
	return nil
}

// Repay settles the face amount back to the investor and closes the
// record. Repayment is valid at any time, before or after the due date.
func (s *Service) Repay(ctx context.Context, signer valueobject.Identity, addr valueobject.Address, req RepayInvoiceRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "repay",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceAddress, addr))
	defer span.End()

	businessAcct, err := valueobject.ParseAddress(req.BusinessAccount)
	if err != nil {
		return shared.NewDomainError("INVALID_INPUT", "Invalid business account address")
	}
	investorAcct, err := valueobject.ParseAddress(req.InvestorAccount)
	if err != nil {
		return shared.NewDomainError("INVALID_INPUT", "Invalid investor account address")
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		inv, err := store.Invoices().FindByAddress(ctx, addr)
		if err != nil {
			return err
		}
		if inv.Status != escrow.StatusSold {
			return escrow.ErrNotSold
		}
		if _, err := requireEndpoint(ctx, store, businessAcct, inv.Business, inv.Mint); err != nil {
			return err
		}
		if _, err := requireEndpoint(ctx, store, investorAcct, inv.Investor, inv.Mint); err != nil {
			return err
		}
		if err := inv.Repay(signer); err != nil {
			return err
		}
		if err := store.Ledger().Transfer(ctx, businessAcct, investorAcct, inv.Mint, inv.Amount, "repay:"+addr.String()); err != nil {
			return s.transferFailed(err, addr)
		}
		return store.Invoices().Delete(ctx, addr)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)

	s.invalidate(ctx, addr)
	s.logger.Info("invoice repaid", zap.String("address", addr.String()))
	return nil
}

// ClaimDefault lets the investor mark an unpaid, past-due invoice as
// defaulted. No funds move and the record is retained as a marker.
func (s *Service) ClaimDefault(ctx context.Context, signer valueobject.Identity, addr valueobject.Address) (*escrow.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "claim_default",
		telemetry.WithAttribute(telemetry.SpanAttrInvoiceAddress, addr))
	defer span.End()

	var inv *escrow.Invoice
	err := s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		var err error
		inv, err = store.Invoices().FindByAddress(ctx, addr)
		if err != nil {
			return err
		}
		if err := inv.ClaimDefault(signer, s.now().Unix()); err != nil {
			return err
		}
		return store.Invoices().Update(ctx, inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	s.invalidate(ctx, addr)
	s.logger.Info("invoice defaulted", zap.String("address", addr.String()))
	return inv, nil
}

// Get fetches an invoice by record address, consulting the cache first.
func (s *Service) Get(ctx context.Context, addr valueobject.Address) (*escrow.Invoice, error) {
	if s.cache != nil {
		if inv, ok := s.cache.Get(ctx, addr); ok {
			return inv, nil
		}
	}

	inv, err := s.store.Invoices().FindByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, inv)
	}
	return inv, nil
}

// GetByBusiness resolves a business identity to its live invoice.
func (s *Service) GetByBusiness(ctx context.Context, business valueobject.Identity) (*escrow.Invoice, error) {
	return s.store.Invoices().FindByBusiness(ctx, business)
}

// Browse pages through invoices in a given lifecycle state, newest first.
func (s *Service) Browse(ctx context.Context, status escrow.InvoiceStatus, limit, offset int) ([]*escrow.Invoice, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Invoices().FindByStatus(ctx, status, limit, offset)
}

// Record serializes the invoice to its stable binary record layout.
func (s *Service) Record(ctx context.Context, addr valueobject.Address) ([]byte, error) {
	inv, err := s.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	return escrow.EncodeRecord(inv), nil
}

// requireEndpoint loads an asset account and checks its owner and mint
// against the invoice's stored participants.
func requireEndpoint(ctx context.Context, store escrow.Store, addr valueobject.Address, owner valueobject.Identity, mint valueobject.Identity) (*token.Account, error) {
	acct, err := store.Accounts().FindByAddress(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acct.Owner != owner {
		return nil, escrow.ErrUnauthorized
	}
	if acct.Mint != mint {
		return nil, token.ErrMintMismatch
	}
	return acct, nil
}

// transferFailed folds a ledger rejection into the escrow error taxonomy
// while preserving the underlying reason in the message.
func (s *Service) transferFailed(err error, addr valueobject.Address) error {
	s.logger.Warn("escrow transfer rejected",
		zap.String("address", addr.String()),
		zap.Error(err))
	var derr *shared.DomainError
	if errors.As(err, &derr) {
		return shared.NewDomainError("TRANSFER_FAILED", derr.Message)
	}
	return escrow.ErrTransferFailed
}

func (s *Service) invalidate(ctx context.Context, addr valueobject.Address) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, addr)
	}
}
