package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/billing/internal/interfaces/http/handler"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func TestNewEngine(t *testing.T) {
	engine := NewEngine(EngineConfig{
		ServiceName: "erp-billing",
		CORS:        middleware.DefaultCORSConfig(),
		MaxBodySize: 16,
	}, zap.NewNop())
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	engine.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "ROUTE_NOT_FOUND")
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("panic recovered", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	})

	t.Run("body limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 32))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestBillingRoutes(t *testing.T) {
	engine := NewEngine(EngineConfig{CORS: middleware.DefaultCORSConfig()}, zap.NewNop())

	// Handlers are never reached: the tenant middleware rejects first.
	routes := NewBillingRoutes(BillingHandlers{
		Invoices:     handler.NewInvoiceHandler(nil),
		Payments:     handler.NewPaymentHandler(nil),
		Sequence:     handler.NewSequenceHandler(nil),
		BankAccounts: handler.NewBankAccountHandler(nil),
		Treasury:     handler.NewTreasuryHandler(nil),
	})
	NewRouter(engine).
		Register(routes).
		Register(NewSystemRoutes(handler.NewSystemHandler("erp-billing", "test", okPinger{}))).
		Setup()

	assert.Equal(t, 20, routes.RouteCount())

	paths := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/billing/invoices/calculate"},
		{http.MethodGet, "/api/v1/billing/invoices"},
		{http.MethodPost, "/api/v1/billing/invoices/1/issue"},
		{http.MethodDelete, "/api/v1/billing/payments/1"},
		{http.MethodPost, "/api/v1/billing/sequence/preview"},
		{http.MethodGet, "/api/v1/billing/treasury/balances"},
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", p.method, p.path)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil))
	assert.Equal(t, http.StatusOK, w.Code, "system routes need no tenant")
}
