package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/cache"
	"github.com/erp/billing/internal/infrastructure/event"
	"github.com/erp/billing/internal/infrastructure/persistence"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/erp/billing/internal/interfaces/http/dto"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer drives the handlers against real services over SQLite
type testServer struct {
	t        *testing.T
	engine   *gin.Engine
	db       *gorm.DB
	tenantID uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	require.NoError(t, middleware.SetupValidator())

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(
		&models.InvoiceModel{},
		&models.InvoiceItemModel{},
		&models.PaymentModel{},
		&models.InvoiceSequenceModel{},
		&models.BankAccountModel{},
		&models.StockLevelModel{},
		&models.OutboxEntryModel{},
	))

	serializer := event.NewEventSerializer()
	event.RegisterBillingEvents(serializer)
	defaults := persistence.DefaultSequenceDefaults()
	scope := persistence.NewGormTransactionScope(db, event.NewOutboxPublisher(serializer), defaults)
	locker := cache.NewInMemoryLocker()
	cfg := billingapp.DefaultServiceConfig()
	log := zap.NewNop()

	invoices := NewInvoiceHandler(billingapp.NewInvoiceService(scope, persistence.NewGormInvoiceRepository(db), locker, cfg, log))
	paymentService := billingapp.NewPaymentService(scope, persistence.NewGormPaymentRepository(db), locker, cfg, log)
	payments := NewPaymentHandler(paymentService)
	treasury := NewTreasuryHandler(paymentService)
	sequence := NewSequenceHandler(billingapp.NewSequenceService(scope, persistence.NewGormSequenceRepository(db, defaults), locker, cfg, log))
	accounts := NewBankAccountHandler(billingapp.NewBankAccountService(scope, persistence.NewGormBankAccountRepository(db), locker, cfg, log))

	engine := gin.New()
	engine.Use(middleware.RequestID())
	g := engine.Group("/api/v1/billing", middleware.Tenant())
	g.POST("/invoices/calculate", invoices.Calculate)
	g.POST("/invoices", invoices.Create)
	g.GET("/invoices", invoices.List)
	g.GET("/invoices/:id", invoices.GetByID)
	g.PUT("/invoices/:id", invoices.Update)
	g.DELETE("/invoices/:id", invoices.Delete)
	g.POST("/invoices/:id/issue", invoices.Issue)
	g.POST("/invoices/:id/cancel", invoices.Cancel)
	g.POST("/invoices/:id/payments", payments.Register)
	g.GET("/invoices/:id/payments", payments.ListByInvoice)
	g.DELETE("/payments/:id", payments.Delete)
	g.GET("/sequence", sequence.Get)
	g.PUT("/sequence", sequence.Update)
	g.POST("/sequence/preview", sequence.Preview)
	g.POST("/bank-accounts", accounts.Create)
	g.GET("/bank-accounts", accounts.List)
	g.POST("/bank-accounts/:id/default", accounts.SetDefault)
	g.POST("/bank-accounts/:id/deactivate", accounts.Deactivate)
	g.GET("/treasury/balances", treasury.Balances)
	g.GET("/treasury/movements", treasury.Movements)

	return &testServer{t: t, engine: engine, db: db, tenantID: uuid.New()}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func (s *testServer) do(method, path string, body any, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	s.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, "/api/v1/billing"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeader, s.tenantID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func decode[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	return out
}

func draftBody(client string, lines ...map[string]any) map[string]any {
	if len(lines) == 0 {
		lines = []map[string]any{line("2", "100.00", "0", "16")}
	}
	return map[string]any{
		"client_name": client,
		"currency":    "USD",
		"items":       lines,
	}
}

func line(qty, price, discount, tax string) map[string]any {
	return map[string]any{
		"product_id":       uuid.NewString(),
		"description":      "Widget",
		"quantity":         qty,
		"unit_price":       price,
		"discount_percent": discount,
		"tax_rate":         tax,
	}
}

// createIssued creates and issues an invoice worth 232.00 USD
func (s *testServer) createIssued() billingapp.InvoiceResponse {
	s.t.Helper()
	w, resp := s.do(http.MethodPost, "/invoices", draftBody("Acme"))
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode[billingapp.InvoiceResponse](s.t, resp)

	w, resp = s.do(http.MethodPost, "/invoices/"+draft.ID.String()+"/issue", nil)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	return decode[billingapp.InvoiceResponse](s.t, resp)
}
