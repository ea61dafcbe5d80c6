package handler

import (
	"net/http"
	"testing"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/erp/billing/internal/domain/billing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) createAccount(bank, number, currency string) billingapp.BankAccountResponse {
	s.t.Helper()
	w, resp := s.do(http.MethodPost, "/bank-accounts", map[string]any{
		"bank_name":      bank,
		"account_number": number,
		"account_type":   "checking",
		"currency":       currency,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[billingapp.BankAccountResponse](s.t, resp)
}

func TestBankAccountHandler(t *testing.T) {
	s := newTestServer(t)

	first := s.createAccount("Banco Alfa", "0102-0001", "USD")
	second := s.createAccount("Banco Zeta", "0102-0002", "USD")

	t.Run("rejects unknown currency", func(t *testing.T) {
		w, _ := s.do(http.MethodPost, "/bank-accounts", map[string]any{
			"bank_name": "Banco", "account_number": "1", "currency": "ZZZ",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("set default", func(t *testing.T) {
		w, resp := s.do(http.MethodPost, "/bank-accounts/"+second.ID.String()+"/default", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, decode[billingapp.BankAccountResponse](t, resp).IsDefault)

		w, resp = s.do(http.MethodGet, "/bank-accounts", nil)
		require.Equal(t, http.StatusOK, w.Code)
		defaults := 0
		for _, a := range decode[[]billingapp.BankAccountResponse](t, resp) {
			if a.IsDefault {
				defaults++
				assert.Equal(t, second.ID, a.ID)
			}
		}
		assert.Equal(t, 1, defaults)
	})

	t.Run("deactivate hides from active list", func(t *testing.T) {
		w, _ := s.do(http.MethodPost, "/bank-accounts/"+first.ID.String()+"/deactivate", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w, resp := s.do(http.MethodGet, "/bank-accounts?active_only=true", nil)
		require.Equal(t, http.StatusOK, w.Code)
		accounts := decode[[]billingapp.BankAccountResponse](t, resp)
		require.Len(t, accounts, 1)
		assert.Equal(t, second.ID, accounts[0].ID)
	})
}

func TestTreasuryHandler(t *testing.T) {
	s := newTestServer(t)
	account := s.createAccount("Banco Alfa", "0102-0001", "USD")
	inv := s.createIssued()

	w, _ := s.do(http.MethodPost, "/invoices/"+inv.ID.String()+"/payments", map[string]any{
		"amount": "100.00", "method": "transfer", "bank_account_id": account.ID.String(),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	t.Run("balances", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/treasury/balances", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		balances := decode[[]billing.AccountBalance](t, resp)
		require.Len(t, balances, 1)
		assert.Equal(t, account.ID, balances[0].BankAccountID)
		assert.True(t, balances[0].Balance.Equal(decimal.RequireFromString("100")))
	})

	t.Run("movements", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/treasury/movements?limit=5", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		movements := decode[[]billing.Movement](t, resp)
		require.Len(t, movements, 1)
		assert.Equal(t, inv.Number, movements[0].InvoiceNumber)
	})

	t.Run("bad limit", func(t *testing.T) {
		w, _ := s.do(http.MethodGet, "/treasury/movements?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
