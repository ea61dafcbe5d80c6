package handler

import (
	"net/http"
	"testing"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceHandler_Calculate(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodPost, "/invoices/calculate", map[string]any{
		"currency": "USD",
		"items":    []map[string]any{line("2", "100", "10", "16")},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	calc := decode[billingapp.CalculationResponse](t, resp)
	assert.True(t, calc.Totals.GrandTotal.Equal(decimal.RequireFromString("208.80")))
	assert.Equal(t, int64(0), countInvoices(t, s), "nothing is persisted")
}

func TestInvoiceHandler_Create(t *testing.T) {
	s := newTestServer(t)

	t.Run("creates a draft", func(t *testing.T) {
		w, resp := s.do(http.MethodPost, "/invoices", draftBody("Acme"))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		inv := decode[billingapp.InvoiceResponse](t, resp)
		assert.Equal(t, "draft", inv.Status)
		assert.Empty(t, inv.Number)
		assert.True(t, inv.GrandTotal.Equal(decimal.RequireFromString("232")))
	})

	t.Run("rejects missing client and items", func(t *testing.T) {
		w, resp := s.do(http.MethodPost, "/invoices", map[string]any{"currency": "USD"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Details)
	})

	t.Run("rejects unknown currency", func(t *testing.T) {
		body := draftBody("Acme")
		body["currency"] = "XXZ"
		w, resp := s.do(http.MethodPost, "/invoices", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("rejects invalid line from the domain", func(t *testing.T) {
		w, resp := s.do(http.MethodPost, "/invoices", draftBody("Acme", line("0", "10", "0", "0")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("requires tenant header", func(t *testing.T) {
		w, _ := s.do(http.MethodPost, "/invoices", draftBody("Acme"), "X-Tenant-ID", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestInvoiceHandler_GetByID(t *testing.T) {
	s := newTestServer(t)
	issued := s.createIssued()

	t.Run("found", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/invoices/"+issued.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		inv := decode[billingapp.InvoiceResponse](t, resp)
		assert.Equal(t, issued.Number, inv.Number)
		assert.Len(t, inv.Items, 1)
	})

	t.Run("not found", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/invoices/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	})

	t.Run("other tenant cannot see it", func(t *testing.T) {
		w, _ := s.do(http.MethodGet, "/invoices/"+issued.ID.String(), nil, "X-Tenant-ID", uuid.NewString())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/invoices/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
	})
}

func TestInvoiceHandler_List(t *testing.T) {
	s := newTestServer(t)
	s.createIssued()
	w, _ := s.do(http.MethodPost, "/invoices", draftBody("Beta"))
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("paginates", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/invoices?page=1&page_size=1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		items := decode[[]billingapp.InvoiceListItemResponse](t, resp)
		assert.Len(t, items, 1)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(2), resp.Meta.Total)
		assert.Equal(t, 2, resp.Meta.TotalPages)
	})

	t.Run("filters by status", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/invoices?status=draft", nil)

		require.Equal(t, http.StatusOK, w.Code)
		items := decode[[]billingapp.InvoiceListItemResponse](t, resp)
		require.Len(t, items, 1)
		assert.Equal(t, "Beta", items[0].ClientName)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		w, _ := s.do(http.MethodGet, "/invoices?status=archived", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInvoiceHandler_Update(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(http.MethodPost, "/invoices", draftBody("Acme"))
	require.Equal(t, http.StatusCreated, w.Code)
	draft := decode[billingapp.InvoiceResponse](t, resp)

	w, resp = s.do(http.MethodPut, "/invoices/"+draft.ID.String(), draftBody("Acme Renamed", line("1", "50", "0", "0")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[billingapp.InvoiceResponse](t, resp)
	assert.Equal(t, "Acme Renamed", updated.ClientName)
	assert.True(t, updated.GrandTotal.Equal(decimal.RequireFromString("50")))

	issued := s.createIssued()
	w, resp = s.do(http.MethodPut, "/invoices/"+issued.ID.String(), draftBody("Late edit"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TRANSITION", resp.Error.Code)
}

func TestInvoiceHandler_IssueAndCancel(t *testing.T) {
	s := newTestServer(t)

	first := s.createIssued()
	second := s.createIssued()
	assert.Equal(t, "issued", first.Status)
	assert.Equal(t, "FAC-00000001", first.Number)
	assert.Equal(t, "FAC-00000002", second.Number)

	w, resp := s.do(http.MethodPost, "/invoices/"+first.ID.String()+"/issue", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "issuing twice is rejected")
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TRANSITION", resp.Error.Code)

	w, resp = s.do(http.MethodPost, "/invoices/"+first.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode[billingapp.InvoiceResponse](t, resp).Status)
}

func TestInvoiceHandler_Delete(t *testing.T) {
	s := newTestServer(t)

	t.Run("draft deletes without force", func(t *testing.T) {
		w, resp := s.do(http.MethodPost, "/invoices", draftBody("Acme"))
		require.Equal(t, http.StatusCreated, w.Code)
		draft := decode[billingapp.InvoiceResponse](t, resp)

		w, resp = s.do(http.MethodDelete, "/invoices/"+draft.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[billingapp.DeleteInvoiceResponse](t, resp)
		assert.False(t, result.Forced)
	})

	t.Run("issued needs force", func(t *testing.T) {
		issued := s.createIssued()

		w, resp := s.do(http.MethodDelete, "/invoices/"+issued.ID.String(), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_TRANSITION", resp.Error.Code)

		w, resp = s.do(http.MethodDelete, "/invoices/"+issued.ID.String()+"?force=true", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[billingapp.DeleteInvoiceResponse](t, resp)
		assert.True(t, result.Forced)
		assert.NotEmpty(t, result.Warning)
	})

	t.Run("malformed force flag", func(t *testing.T) {
		w, _ := s.do(http.MethodDelete, "/invoices/"+uuid.NewString()+"?force=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func countInvoices(t *testing.T, s *testServer) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&models.InvoiceModel{}).Count(&n).Error)
	return n
}
