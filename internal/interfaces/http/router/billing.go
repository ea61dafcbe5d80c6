package router

import (
	"github.com/erp/billing/internal/interfaces/http/handler"
	"github.com/erp/billing/internal/interfaces/http/middleware"
)

// BillingHandlers groups the handlers mounted under /billing
type BillingHandlers struct {
	Invoices     *handler.InvoiceHandler
	Payments     *handler.PaymentHandler
	Sequence     *handler.SequenceHandler
	BankAccounts *handler.BankAccountHandler
	Treasury     *handler.TreasuryHandler
}

// NewBillingRoutes builds the tenant-scoped billing API
func NewBillingRoutes(h BillingHandlers) *DomainGroup {
	billing := NewDomainGroup("billing", "/billing").Use(middleware.Tenant())

	invoices := billing.Group("invoices", "/invoices")
	invoices.POST("/calculate", h.Invoices.Calculate)
	invoices.POST("", h.Invoices.Create)
	invoices.GET("", h.Invoices.List)
	invoices.GET("/:id", h.Invoices.GetByID)
	invoices.PUT("/:id", h.Invoices.Update)
	invoices.DELETE("/:id", h.Invoices.Delete)
	invoices.POST("/:id/issue", h.Invoices.Issue)
	invoices.POST("/:id/cancel", h.Invoices.Cancel)
	invoices.POST("/:id/payments", h.Payments.Register)
	invoices.GET("/:id/payments", h.Payments.ListByInvoice)

	billing.Group("payments", "/payments").
		DELETE("/:id", h.Payments.Delete)

	billing.Group("sequence", "/sequence").
		GET("", h.Sequence.Get).
		PUT("", h.Sequence.Update).
		POST("/preview", h.Sequence.Preview)

	billing.Group("bank-accounts", "/bank-accounts").
		POST("", h.BankAccounts.Create).
		GET("", h.BankAccounts.List).
		POST("/:id/default", h.BankAccounts.SetDefault).
		POST("/:id/deactivate", h.BankAccounts.Deactivate)

	billing.Group("treasury", "/treasury").
		GET("/balances", h.Treasury.Balances).
		GET("/movements", h.Treasury.Movements)

	return billing
}

// NewSystemRoutes builds the unauthenticated system endpoints
func NewSystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo)
}
