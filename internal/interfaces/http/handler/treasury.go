package handler

import (
	"strconv"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// TreasuryHandler exposes read-only treasury views built from payments
type TreasuryHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewTreasuryHandler creates a new TreasuryHandler
func NewTreasuryHandler(paymentService *billingapp.PaymentService) *TreasuryHandler {
	return &TreasuryHandler{paymentService: paymentService}
}

// Balances returns the amount received per bank account.
// GET /treasury/balances
func (h *TreasuryHandler) Balances(c *gin.Context) {
	balances, err := h.paymentService.AccountBalances(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balances)
}

// Movements returns the latest payments, newest first.
// GET /treasury/movements?limit=
func (h *TreasuryHandler) Movements(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "Invalid limit: must be a positive integer")
			return
		}
		limit = n
	}

	movements, err := h.paymentService.RecentMovements(c.Request.Context(), middleware.GetTenantID(c), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}
