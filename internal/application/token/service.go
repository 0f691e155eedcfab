package token

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
	"github.com/factorline/backend/internal/infrastructure/telemetry"
)

// Service manages asset accounts: creation, lookups and the development
// mint faucet. Transfers between accounts happen only through the escrow
// operations, never directly.
type Service struct {
	store  escrow.Store
	uow    escrow.UnitOfWork
	logger *zap.Logger
}

// NewService creates the token application service.
func NewService(store escrow.Store, uow escrow.UnitOfWork, logger *zap.Logger) *Service {
	return &Service{store: store, uow: uow, logger: logger}
}

// CreateAccountRequest names the mint the signer wants an account for.
type CreateAccountRequest struct {
	Mint string `json:"mint" binding:"required,identity"`
}

// MintRequest credits a faucet deposit to an account.
type MintRequest struct {
	Quantity uint64 `json:"quantity" binding:"required,gt=0"`
}

// CreateAccount opens an empty account for the signer in the given mint.
// The address is derived from (owner, mint), so a second create for the
// same pair fails.
func (s *Service) CreateAccount(ctx context.Context, signer valueobject.Identity, req CreateAccountRequest) (*token.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "create",
		telemetry.WithAttribute(telemetry.SpanAttrOwner, signer),
		telemetry.WithAttribute(telemetry.SpanAttrMint, req.Mint))
	defer span.End()

	mint, err := valueobject.ParseIdentity(req.Mint)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid mint identity")
	}

	acct, err := token.NewAccount(signer, mint)
	if err != nil {
		return nil, err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		if _, err := store.Accounts().FindByAddress(ctx, acct.Address); err == nil {
			return shared.ErrAlreadyExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return store.Accounts().Create(ctx, acct)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	s.logger.Info("token account created",
		zap.String("address", acct.Address.String()),
		zap.String("owner", acct.Owner.String()),
		zap.String("mint", acct.Mint.String()))
	return acct, nil
}

// GetAccount fetches an account by address.
func (s *Service) GetAccount(ctx context.Context, addr valueobject.Address) (*token.Account, error) {
	return s.store.Accounts().FindByAddress(ctx, addr)
}

// ListAccounts returns all accounts held by an owner.
func (s *Service) ListAccounts(ctx context.Context, owner valueobject.Identity) ([]*token.Account, error) {
	return s.store.Accounts().FindByOwner(ctx, owner)
}

// Mint credits quantity to the account. This is the development faucet;
// the HTTP layer gates it behind configuration.
func (s *Service) Mint(ctx context.Context, addr valueobject.Address, req MintRequest) (*token.Account, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account", "mint",
		telemetry.WithAttribute(telemetry.SpanAttrAccount, addr),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity))
	defer span.End()

	var acct *token.Account
	err := s.uow.Execute(ctx, func(ctx context.Context, store escrow.Store) error {
		var err error
		acct, err = store.Accounts().FindByAddressForUpdate(ctx, addr)
		if err != nil {
			return err
		}
		if err := acct.Deposit(req.Quantity); err != nil {
			return err
		}
		return store.Accounts().Update(ctx, acct)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)

	s.logger.Info("faucet mint",
		zap.String("address", addr.String()),
		zap.Uint64("quantity", req.Quantity))
	return acct, nil
}
