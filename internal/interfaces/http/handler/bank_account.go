package handler

import (
	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// BankAccountHandler handles deposit account endpoints
type BankAccountHandler struct {
	BaseHandler
	accountService *billingapp.BankAccountService
}

// NewBankAccountHandler creates a new BankAccountHandler
func NewBankAccountHandler(accountService *billingapp.BankAccountService) *BankAccountHandler {
	return &BankAccountHandler{accountService: accountService}
}

// Create registers a bank account.
// POST /bank-accounts
func (h *BankAccountHandler) Create(c *gin.Context) {
	var req billingapp.CreateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	account, err := h.accountService.Create(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// List returns the tenant's accounts, optionally only the active ones.
// GET /bank-accounts
func (h *BankAccountHandler) List(c *gin.Context) {
	activeOnly, ok := h.queryBool(c, "active_only")
	if !ok {
		return
	}

	accounts, err := h.accountService.List(c.Request.Context(), middleware.GetTenantID(c), activeOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// SetDefault makes an account the default deposit target.
// POST /bank-accounts/:id/default
func (h *BankAccountHandler) SetDefault(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountService.SetDefault(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Deactivate stops an account from receiving new payments.
// POST /bank-accounts/:id/deactivate
func (h *BankAccountHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	account, err := h.accountService.Deactivate(c.Request.Context(), middleware.GetTenantID(c), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}
