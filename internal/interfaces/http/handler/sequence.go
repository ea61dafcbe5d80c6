package handler

import (
	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// SequenceHandler handles the invoice numbering endpoints
type SequenceHandler struct {
	BaseHandler
	sequenceService *billingapp.SequenceService
}

// NewSequenceHandler creates a new SequenceHandler
func NewSequenceHandler(sequenceService *billingapp.SequenceService) *SequenceHandler {
	return &SequenceHandler{sequenceService: sequenceService}
}

// Get returns the tenant's numbering settings.
// GET /sequence
func (h *SequenceHandler) Get(c *gin.Context) {
	seq, err := h.sequenceService.Get(c.Request.Context(), middleware.GetTenantID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, seq)
}

// Update changes prefix, pattern or the next counter value.
// PUT /sequence
func (h *SequenceHandler) Update(c *gin.Context) {
	var req billingapp.UpdateSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	seq, err := h.sequenceService.Update(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, seq)
}

// Preview renders the next number without consuming it. An empty body
// previews the stored settings.
// POST /sequence/preview
func (h *SequenceHandler) Preview(c *gin.Context) {
	var req billingapp.PreviewNumberRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	preview, err := h.sequenceService.Preview(c.Request.Context(), middleware.GetTenantID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}
