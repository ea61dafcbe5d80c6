package handler

import (
	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Register applies a payment to an invoice. A repeated Idempotency-Key
// answers 200 with the original payment instead of 201.
// POST /invoices/:id/payments
func (h *PaymentHandler) Register(c *gin.Context) {
	invoiceID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var req billingapp.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	payment, replayed, err := h.paymentService.Register(c.Request.Context(),
		middleware.GetTenantID(c), invoiceID, middleware.GetUserID(c),
		c.GetHeader(middleware.IdempotencyKeyHeader), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if replayed {
		c.Header("Idempotent-Replayed", "true")
		h.Success(c, payment)
		return
	}
	h.Created(c, payment)
}

// ListByInvoice returns the payments of one invoice.
// GET /invoices/:id/payments
func (h *PaymentHandler) ListByInvoice(c *gin.Context) {
	invoiceID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	payments, err := h.paymentService.ListByInvoice(c.Request.Context(), middleware.GetTenantID(c), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payments)
}

// Delete reverses a payment and reopens its invoice.
// DELETE /payments/:id
func (h *PaymentHandler) Delete(c *gin.Context) {
	paymentID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.Delete(c.Request.Context(), middleware.GetTenantID(c), paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, payment)
}
