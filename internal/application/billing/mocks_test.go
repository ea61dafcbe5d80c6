package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) List(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, int64, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]billing.Invoice), args.Get(1).(int64), args.Error(2)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, inv *billing.Invoice, expectedVersion int) error {
	args := m.Called(ctx, inv, expectedVersion)
	return args.Error(0)
}

func (m *MockInvoiceRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of billing.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*billing.Payment, error) {
	args := m.Called(ctx, tenantID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *billing.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockPaymentRepository) AccountBalances(ctx context.Context, tenantID uuid.UUID) ([]billing.AccountBalance, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.AccountBalance), args.Error(1)
}

func (m *MockPaymentRepository) RecentMovements(ctx context.Context, tenantID uuid.UUID, limit int) ([]billing.Movement, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Movement), args.Error(1)
}

// MockSequenceRepository is a mock implementation of billing.SequenceRepository
type MockSequenceRepository struct {
	mock.Mock
}

func (m *MockSequenceRepository) Get(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSequence, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.InvoiceSequence), args.Error(1)
}

func (m *MockSequenceRepository) GetForUpdate(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSequence, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.InvoiceSequence), args.Error(1)
}

func (m *MockSequenceRepository) Save(ctx context.Context, seq *billing.InvoiceSequence) error {
	args := m.Called(ctx, seq)
	return args.Error(0)
}

// MockBankAccountRepository is a mock implementation of billing.BankAccountRepository
type MockBankAccountRepository struct {
	mock.Mock
}

func (m *MockBankAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*billing.BankAccount, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]billing.BankAccount, error) {
	args := m.Called(ctx, tenantID, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.BankAccount), args.Error(1)
}

func (m *MockBankAccountRepository) Save(ctx context.Context, account *billing.BankAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockBankAccountRepository) ClearDefault(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// MockStockGateway is a mock implementation of billing.StockGateway
type MockStockGateway struct {
	mock.Mock
}

func (m *MockStockGateway) Apply(ctx context.Context, tenantID uuid.UUID, adjustments []billing.StockAdjustment) error {
	args := m.Called(ctx, tenantID, adjustments)
	return args.Error(0)
}

// recordingEvents collects events recorded inside transactions.
type recordingEvents struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (r *recordingEvents) Record(_ context.Context, events ...shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

// fakeScope runs fn directly against the mocks. Events recorded by a failed
// attempt are discarded, like a rolled back outbox insert.
type fakeScope struct {
	invoices  *MockInvoiceRepository
	payments  *MockPaymentRepository
	sequences *MockSequenceRepository
	accounts  *MockBankAccountRepository
	stock     *MockStockGateway
	committed *recordingEvents
	calls     int
	err       error
}

func newFakeScope() *fakeScope {
	return &fakeScope{
		invoices:  new(MockInvoiceRepository),
		payments:  new(MockPaymentRepository),
		sequences: new(MockSequenceRepository),
		accounts:  new(MockBankAccountRepository),
		stock:     new(MockStockGateway),
		committed: &recordingEvents{},
	}
}

func (s *fakeScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	tx := &fakeRepos{scope: s, events: &recordingEvents{}}
	if err := fn(tx); err != nil {
		return err
	}
	return s.committed.Record(ctx, tx.events.events...)
}

type fakeRepos struct {
	scope  *fakeScope
	events *recordingEvents
}

func (r *fakeRepos) Invoices() billing.InvoiceRepository         { return r.scope.invoices }
func (r *fakeRepos) Payments() billing.PaymentRepository         { return r.scope.payments }
func (r *fakeRepos) Sequences() billing.SequenceRepository       { return r.scope.sequences }
func (r *fakeRepos) BankAccounts() billing.BankAccountRepository { return r.scope.accounts }
func (r *fakeRepos) Stock() billing.StockGateway                 { return r.scope.stock }
func (r *fakeRepos) Events() EventRecorder                       { return r.events }

// fakeLocker records acquired keys and can be told to time out.
type fakeLocker struct {
	mu       sync.Mutex
	acquired []string
	released []string
	busy     map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{busy: make(map[string]bool)}
}

func (l *fakeLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy[key] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released = append(l.released, key)
	}, nil
}

var errDatabaseDown = errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")

func testConfig() ServiceConfig {
	cfg := DefaultServiceConfig()
	cfg.LockTimeout = 20 * time.Millisecond
	return cfg
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lineInput(productID uuid.UUID, qty, price, discount, tax string) LineItemInput {
	return LineItemInput{
		ProductID:       productID,
		Description:     "Widget",
		Quantity:        dec(qty),
		UnitPrice:       dec(price),
		DiscountPercent: dec(discount),
		TaxRate:         dec(tax),
	}
}

func draftRequest(items ...LineItemInput) InvoiceDraftRequest {
	return InvoiceDraftRequest{
		ClientName: "Distribuidora Andina Bolivar",
		Currency:   "USD",
		Items:      items,
	}
}

// newDraft builds a persisted-looking draft for tenantID with a single line.
func newDraft(t *testing.T, tenantID uuid.UUID, productID uuid.UUID, qty, price string) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewDraftInvoice(tenantID, draftRequest(lineInput(productID, qty, price, "0", "0")).toDomain())
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

// newIssued builds an issued invoice whose grand total is qty*price.
func newIssued(t *testing.T, tenantID uuid.UUID, qty, price string) *billing.Invoice {
	t.Helper()
	inv := newDraft(t, tenantID, uuid.New(), qty, price)
	require.NoError(t, inv.Issue("FAC-00000001", time.Now()))
	inv.ClearDomainEvents()
	return inv
}
