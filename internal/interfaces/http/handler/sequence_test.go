package handler

import (
	"net/http"
	"testing"

	billingapp "github.com/erp/billing/internal/application/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceHandler(t *testing.T) {
	s := newTestServer(t)

	t.Run("defaults", func(t *testing.T) {
		w, resp := s.do(http.MethodGet, "/sequence", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		seq := decode[billingapp.SequenceResponse](t, resp)
		assert.Equal(t, "FAC", seq.Prefix)
		assert.Equal(t, int64(1), seq.NextNumber)
		assert.Equal(t, "FAC-00000001", seq.NextPreview)
	})

	t.Run("update", func(t *testing.T) {
		w, resp := s.do(http.MethodPut, "/sequence", map[string]any{
			"prefix":      "INV",
			"pattern":     "{PREFIX}/{NUMBER}",
			"next_number": 40,
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		seq := decode[billingapp.SequenceResponse](t, resp)
		assert.Equal(t, "INV/00000040", seq.NextPreview)
	})

	t.Run("pattern without number is rejected", func(t *testing.T) {
		w, resp := s.do(http.MethodPut, "/sequence", map[string]any{"pattern": "{PREFIX}-{YEAR}"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("preview with empty body uses stored settings", func(t *testing.T) {
		w, resp := s.do(http.MethodPost, "/sequence/preview", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "INV/00000040", decode[billingapp.PreviewNumberResponse](t, resp).Number)
	})

	t.Run("preview does not consume the number", func(t *testing.T) {
		w, resp := s.do(http.MethodPost, "/sequence/preview", map[string]any{"prefix": "TMP"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "TMP/00000040", decode[billingapp.PreviewNumberResponse](t, resp).Number)

		issued := s.createIssued()
		assert.Equal(t, "INV/00000040", issued.Number)
	})
}
