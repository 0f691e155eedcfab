package escrow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/factorline/backend/internal/domain/escrow"
	"github.com/factorline/backend/internal/domain/shared"
	"github.com/factorline/backend/internal/domain/shared/valueobject"
	"github.com/factorline/backend/internal/domain/token"
)

type mockInvoiceRepo struct{ mock.Mock }

func (m *mockInvoiceRepo) FindByAddress(ctx context.Context, addr valueobject.Address) (*escrow.Invoice, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByBusiness(ctx context.Context, business valueobject.Identity) (*escrow.Invoice, error) {
	args := m.Called(ctx, business)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*escrow.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) FindByStatus(ctx context.Context, status escrow.InvoiceStatus, limit, offset int) ([]*escrow.Invoice, int64, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*escrow.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *escrow.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvoiceRepo) Update(ctx context.Context, inv *escrow.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, addr valueobject.Address) error {
	return m.Called(ctx, addr).Error(0)
}

type mockAccountRepo struct{ mock.Mock }

func (m *mockAccountRepo) FindByAddress(ctx context.Context, addr valueobject.Address) (*token.Account, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.Account), args.Error(1)
}

func (m *mockAccountRepo) FindByAddressForUpdate(ctx context.Context, addr valueobject.Address) (*token.Account, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*token.Account), args.Error(1)
}

func (m *mockAccountRepo) FindByOwner(ctx context.Context, owner valueobject.Identity) ([]*token.Account, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*token.Account), args.Error(1)
}

func (m *mockAccountRepo) Create(ctx context.Context, acct *token.Account) error {
	return m.Called(ctx, acct).Error(0)
}

func (m *mockAccountRepo) Update(ctx context.Context, acct *token.Account) error {
	return m.Called(ctx, acct).Error(0)
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) Transfer(ctx context.Context, from, to valueobject.Address, mint valueobject.Identity, quantity uint64, memo string) error {
	return m.Called(ctx, from, to, mint, quantity, memo).Error(0)
}

type mockStore struct {
	invoices *mockInvoiceRepo
	accounts *mockAccountRepo
	ledger   *mockLedger
}

func newMockStore() *mockStore {
	return &mockStore{
		invoices: new(mockInvoiceRepo),
		accounts: new(mockAccountRepo),
		ledger:   new(mockLedger),
	}
}

func (s *mockStore) Invoices() escrow.InvoiceRepository { return s.invoices }
func (s *mockStore) Accounts() token.AccountRepository  { return s.accounts }
func (s *mockStore) Ledger() token.Ledger               { return s.ledger }

func (s *mockStore) assertExpectations(t *testing.T) {
	s.invoices.AssertExpectations(t)
	s.accounts.AssertExpectations(t)
	s.ledger.AssertExpectations(t)
}

// passthroughUOW runs the unit body directly against the mock store.
type passthroughUOW struct{ store escrow.Store }

func (u *passthroughUOW) Execute(ctx context.Context, fn func(ctx context.Context, store escrow.Store) error) error {
	return fn(ctx, u.store)
}

func testIdent(t *testing.T, b string) valueobject.Identity {
	t.Helper()
	id, err := valueobject.ParseIdentity(strings.Repeat(b, 32))
	require.NoError(t, err)
	return id
}

func newTestService(store *mockStore, opts ...Option) *Service {
	return NewService(store, &passthroughUOW{store: store}, zap.NewNop(), opts...)
}

func listedFixture(t *testing.T, business, mint valueobject.Identity) *escrow.Invoice {
	t.Helper()
	inv, err := escrow.NewInvoice(business, 100_000000, time.Now().Add(30*24*time.Hour).Unix())
	require.NoError(t, err)
	require.NoError(t, inv.List(business, mint, 95_000000))
	return inv
}

func TestInitialize(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")
	addr, _ := escrow.DeriveInvoiceAddress(business)

	store.invoices.On("FindByAddress", mock.Anything, addr).Return(nil, shared.ErrNotFound)
	store.invoices.On("Create", mock.Anything, mock.AnythingOfType("*escrow.Invoice")).Return(nil)

	inv, err := svc.Initialize(context.Background(), business, InitializeInvoiceRequest{
		Amount:  100_000000,
		DueDate: time.Now().Add(30 * 24 * time.Hour).Unix(),
	})
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusPending, inv.Status)
	assert.Equal(t, addr, inv.Address)
	store.assertExpectations(t)
}

func TestInitializeDuplicate(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")
	existing := listedFixture(t, business, testIdent(t, "cc"))

	store.invoices.On("FindByAddress", mock.Anything, existing.Address).Return(existing, nil)

	_, err := svc.Initialize(context.Background(), business, InitializeInvoiceRequest{Amount: 50, DueDate: 1})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	store.assertExpectations(t)
}

func TestListUpdatesRecord(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")
	mint := testIdent(t, "cc")

	inv, err := escrow.NewInvoice(business, 100_000000, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
	store.invoices.On("Update", mock.Anything, inv).Return(nil)

	got, err := svc.List(context.Background(), business, inv.Address, ListInvoiceRequest{
		Mint:      mint.String(),
		SalePrice: 95_000000,
	})
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusListed, got.Status)
	assert.Equal(t, uint64(95_000000), got.SalePrice)
	store.assertExpectations(t)
}

func TestListInvalidSalePriceLeavesRecordUnchanged(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")

	inv, err := escrow.NewInvoice(business, 100_000000, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

	_, err = svc.List(context.Background(), business, inv.Address, ListInvoiceRequest{
		Mint:      testIdent(t, "cc").String(),
		SalePrice: 100_000000,
	})
	assert.ErrorIs(t, err, escrow.ErrInvalidSalePrice)
	assert.Equal(t, escrow.StatusPending, inv.Status)
	store.invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func purchaseFixture(t *testing.T) (business, investor, mint valueobject.Identity, inv *escrow.Invoice, investorAcct, businessAcct *token.Account) {
	t.Helper()
	business = testIdent(t, "aa")
	investor = testIdent(t, "bb")
	mint = testIdent(t, "cc")
	inv = listedFixture(t, business, mint)

	var err error
	investorAcct, err = token.NewAccount(investor, mint)
	require.NoError(t, err)
	businessAcct, err = token.NewAccount(business, mint)
	require.NoError(t, err)
	return
}

func TestPurchaseTransfersSalePrice(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	_, investor, mint, inv, investorAcct, businessAcct := purchaseFixture(t)

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
	store.accounts.On("FindByAddress", mock.Anything, investorAcct.Address).Return(investorAcct, nil)
	store.accounts.On("FindByAddress", mock.Anything, businessAcct.Address).Return(businessAcct, nil)
	store.ledger.On("Transfer", mock.Anything, investorAcct.Address, businessAcct.Address, mint, uint64(95_000000), "purchase:"+inv.Address.String()).Return(nil)
	store.invoices.On("Update", mock.Anything, inv).Return(nil)

	got, err := svc.Purchase(context.Background(), investor, inv.Address, PurchaseInvoiceRequest{
		InvestorAccount: investorAcct.Address.String(),
		BusinessAccount: businessAcct.Address.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusSold, got.Status)
	assert.Equal(t, investor, got.Investor)
	store.assertExpectations(t)
}

func TestPurchaseNotListed(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")

	inv, err := escrow.NewInvoice(business, 100_000000, time.Now().Add(time.Hour).Unix())
	require.NoError(t, err)

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

	_, err = svc.Purchase(context.Background(), testIdent(t, "bb"), inv.Address, PurchaseInvoiceRequest{
		InvestorAccount: strings.Repeat("11", 32),
		BusinessAccount: strings.Repeat("22", 32),
	})
	assert.ErrorIs(t, err, escrow.ErrNotListed)
	store.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func TestPurchaseWrongAccountOwner(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	_, _, _, inv, investorAcct, businessAcct := purchaseFixture(t)
	outsider := testIdent(t, "ee")

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
	store.accounts.On("FindByAddress", mock.Anything, investorAcct.Address).Return(investorAcct, nil)

	// signer does not own the named investor account
	_, err := svc.Purchase(context.Background(), outsider, inv.Address, PurchaseInvoiceRequest{
		InvestorAccount: investorAcct.Address.String(),
		BusinessAccount: businessAcct.Address.String(),
	})
	assert.ErrorIs(t, err, escrow.ErrUnauthorized)
	store.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func TestPurchaseMintMismatch(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	_, investor, _, inv, _, businessAcct := purchaseFixture(t)

	wrongMintAcct, err := token.NewAccount(investor, testIdent(t, "dd"))
	require.NoError(t, err)

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
	store.accounts.On("FindByAddress", mock.Anything, wrongMintAcct.Address).Return(wrongMintAcct, nil)

	_, err = svc.Purchase(context.Background(), investor, inv.Address, PurchaseInvoiceRequest{
		InvestorAccount: wrongMintAcct.Address.String(),
		BusinessAccount: businessAcct.Address.String(),
	})
	assert.ErrorIs(t, err, token.ErrMintMismatch)
	store.assertExpectations(t)
}

func TestPurchaseTransferRejected(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	_, investor, mint, inv, investorAcct, businessAcct := purchaseFixture(t)

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
	store.accounts.On("FindByAddress", mock.Anything, investorAcct.Address).Return(investorAcct, nil)
	store.accounts.On("FindByAddress", mock.Anything, businessAcct.Address).Return(businessAcct, nil)
	store.ledger.On("Transfer", mock.Anything, investorAcct.Address, businessAcct.Address, mint, uint64(95_000000), mock.Anything).Return(shared.ErrInsufficientBalance)

	_, err := svc.Purchase(context.Background(), investor, inv.Address, PurchaseInvoiceRequest{
		InvestorAccount: investorAcct.Address.String(),
		BusinessAccount: businessAcct.Address.String(),
	})
	require.Error(t, err)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "TRANSFER_FAILED", derr.Code)
	store.invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func TestCancelDeletesRecord(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")
	inv := listedFixture(t, business, testIdent(t, "cc"))

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
	store.invoices.On("Delete", mock.Anything, inv.Address).Return(nil)

	require.NoError(t, svc.Cancel(context.Background(), business, inv.Address))
	store.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func TestCancelSoldFails(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")
	inv := listedFixture(t, business, testIdent(t, "cc"))
	require.NoError(t, inv.Purchase(testIdent(t, "bb")))

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

	err := svc.Cancel(context.Background(), business, inv.Address)
	assert.ErrorIs(t, err, escrow.ErrAlreadySold)
	store.invoices.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	store.assertExpectations(t)
}

func TestRepayTransfersFaceAmountAndCloses(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business, investor, mint, inv, investorAcct, businessAcct := purchaseFixture(t)
	require.NoError(t, inv.Purchase(investor))

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
	store.accounts.On("FindByAddress", mock.Anything, businessAcct.Address).Return(businessAcct, nil)
	store.accounts.On("FindByAddress", mock.Anything, investorAcct.Address).Return(investorAcct, nil)
	store.ledger.On("Transfer", mock.Anything, businessAcct.Address, investorAcct.Address, mint, uint64(100_000000), "repay:"+inv.Address.String()).Return(nil)
	store.invoices.On("Delete", mock.Anything, inv.Address).Return(nil)

	err := svc.Repay(context.Background(), business, inv.Address, RepayInvoiceRequest{
		BusinessAccount: businessAcct.Address.String(),
		InvestorAccount: investorAcct.Address.String(),
	})
	require.NoError(t, err)
	store.assertExpectations(t)
}

func TestRepayNotSold(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	business := testIdent(t, "aa")
	inv := listedFixture(t, business, testIdent(t, "cc"))

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

	err := svc.Repay(context.Background(), business, inv.Address, RepayInvoiceRequest{
		BusinessAccount: strings.Repeat("11", 32),
		InvestorAccount: strings.Repeat("22", 32),
	})
	assert.ErrorIs(t, err, escrow.ErrNotSold)
	store.assertExpectations(t)
}

func TestClaimDefault(t *testing.T) {
	business := testIdent(t, "aa")
	investor := testIdent(t, "bb")
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	newSold := func(t *testing.T) *escrow.Invoice {
		inv, err := escrow.NewInvoice(business, 100_000000, due.Unix())
		require.NoError(t, err)
		require.NoError(t, inv.List(business, testIdent(t, "cc"), 95_000000))
		require.NoError(t, inv.Purchase(investor))
		return inv
	}

	t.Run("before due date", func(t *testing.T) {
		store := newMockStore()
		svc := newTestService(store, WithClock(func() time.Time { return due.Add(-time.Second) }))
		inv := newSold(t)

		store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

		_, err := svc.ClaimDefault(context.Background(), investor, inv.Address)
		assert.ErrorIs(t, err, escrow.ErrNotYetDue)
		assert.Equal(t, escrow.StatusSold, inv.Status)
		store.assertExpectations(t)
	})

	t.Run("at due date", func(t *testing.T) {
		store := newMockStore()
		svc := newTestService(store, WithClock(func() time.Time { return due }))
		inv := newSold(t)

		store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)
		store.invoices.On("Update", mock.Anything, inv).Return(nil)

		got, err := svc.ClaimDefault(context.Background(), investor, inv.Address)
		require.NoError(t, err)
		assert.Equal(t, escrow.StatusDefaulted, got.Status)
		store.ledger.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		store.assertExpectations(t)
	})
}

func TestQuote(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	inv := listedFixture(t, testIdent(t, "aa"), testIdent(t, "cc"))

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

	q, err := svc.Quote(context.Background(), inv.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000000), q.Discount)
	assert.True(t, decimal.RequireFromString("0.05").Equal(q.DiscountRate), q.DiscountRate.String())
	assert.True(t, decimal.RequireFromString("0.052632").Equal(q.Yield), q.Yield.String())
	store.assertExpectations(t)
}

func TestQuoteUnpriced(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	inv, err := escrow.NewInvoice(testIdent(t, "aa"), 100, time.Now().Unix())
	require.NoError(t, err)

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

	_, err = svc.Quote(context.Background(), inv.Address)
	require.Error(t, err)
	var derr *shared.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "INVALID_STATE", derr.Code)
	store.assertExpectations(t)
}

type stubCache struct {
	entries map[valueobject.Address]*escrow.Invoice
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[valueobject.Address]*escrow.Invoice)}
}

func (c *stubCache) Get(_ context.Context, addr valueobject.Address) (*escrow.Invoice, bool) {
	inv, ok := c.entries[addr]
	return inv, ok
}

func (c *stubCache) Set(_ context.Context, inv *escrow.Invoice) {
	c.entries[inv.Address] = inv
}

func (c *stubCache) Invalidate(_ context.Context, addr valueobject.Address) {
	delete(c.entries, addr)
}

func TestGetUsesCache(t *testing.T) {
	store := newMockStore()
	cache := newStubCache()
	svc := newTestService(store, WithCache(cache))
	inv := listedFixture(t, testIdent(t, "aa"), testIdent(t, "cc"))

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil).Once()

	got, err := svc.Get(context.Background(), inv.Address)
	require.NoError(t, err)
	assert.Equal(t, inv, got)

	// second read is served from cache
	got, err = svc.Get(context.Background(), inv.Address)
	require.NoError(t, err)
	assert.Equal(t, inv, got)
	store.assertExpectations(t)
}

func TestRecordRoundTrip(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)
	inv := listedFixture(t, testIdent(t, "aa"), testIdent(t, "cc"))

	store.invoices.On("FindByAddress", mock.Anything, inv.Address).Return(inv, nil)

	raw, err := svc.Record(context.Background(), inv.Address)
	require.NoError(t, err)

	decoded, err := escrow.DecodeRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, inv.Business, decoded.Business)
	assert.Equal(t, inv.SalePrice, decoded.SalePrice)
	store.assertExpectations(t)
}
