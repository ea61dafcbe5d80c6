package billing

import (
	"context"
	"testing"
	"time"

	"github.com/erp/billing/internal/domain/billing"
	"github.com/erp/billing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSequenceServiceForTest(t *testing.T) (*SequenceService, *fakeScope, *fakeLocker, *MockSequenceRepository) {
	t.Helper()
	scope := newFakeScope()
	locker := newFakeLocker()
	reads := new(MockSequenceRepository)
	svc := NewSequenceService(scope, reads, locker, testConfig(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) }
	return svc, scope, locker, reads
}

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

func TestSequenceService_Get(t *testing.T) {
	svc, _, _, reads := newSequenceServiceForTest(t)
	tenantID := uuid.New()
	reads.On("Get", mock.Anything, tenantID).Return(billing.NewInvoiceSequence(tenantID), nil)

	resp, err := svc.Get(context.Background(), tenantID)

	require.NoError(t, err)
	assert.Equal(t, "FAC", resp.Prefix)
	assert.Equal(t, int64(1), resp.NextNumber)
	assert.Equal(t, "FAC-00000001", resp.NextPreview)
}

func TestSequenceService_Update(t *testing.T) {
	tenantID := uuid.New()

	t.Run("saves new settings under the sequence lock", func(t *testing.T) {
		svc, scope, locker, _ := newSequenceServiceForTest(t)
		scope.sequences.On("GetForUpdate", mock.Anything, tenantID).Return(billing.NewInvoiceSequence(tenantID), nil)
		scope.sequences.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := svc.Update(context.Background(), tenantID, UpdateSequenceRequest{
			Prefix:     strPtr("FV"),
			Pattern:    strPtr("{PREFIX}/{YEAR}/{NUMBER}"),
			NextNumber: int64Ptr(120),
		})

		require.NoError(t, err)
		assert.Equal(t, "FV", resp.Prefix)
		assert.Equal(t, int64(120), resp.NextNumber)
		assert.Equal(t, []string{SequenceLockKey(tenantID)}, locker.acquired)
	})

	t.Run("pattern without number is rejected", func(t *testing.T) {
		svc, scope, _, _ := newSequenceServiceForTest(t)
		scope.sequences.On("GetForUpdate", mock.Anything, tenantID).Return(billing.NewInvoiceSequence(tenantID), nil)

		_, err := svc.Update(context.Background(), tenantID, UpdateSequenceRequest{Pattern: strPtr("{PREFIX}-{YEAR}")})

		require.Error(t, err)
		assert.Equal(t, billing.CodeValidation, shared.CodeOf(err))
		scope.sequences.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("counter cannot move back", func(t *testing.T) {
		svc, scope, _, _ := newSequenceServiceForTest(t)
		seq := billing.NewInvoiceSequence(tenantID)
		seq.NextNumber = 50
		scope.sequences.On("GetForUpdate", mock.Anything, tenantID).Return(seq, nil)

		_, err := svc.Update(context.Background(), tenantID, UpdateSequenceRequest{NextNumber: int64Ptr(10)})

		require.Error(t, err)
		assert.Equal(t, billing.CodeValidation, shared.CodeOf(err))
	})
}

func TestSequenceService_Preview(t *testing.T) {
	tenantID := uuid.New()

	t.Run("uses stored configuration", func(t *testing.T) {
		svc, scope, _, reads := newSequenceServiceForTest(t)
		seq := billing.NewInvoiceSequence(tenantID)
		seq.NextNumber = 42
		reads.On("Get", mock.Anything, tenantID).Return(seq, nil)

		resp, err := svc.Preview(context.Background(), tenantID, PreviewNumberRequest{})

		require.NoError(t, err)
		assert.Equal(t, "FAC-00000042", resp.Number)
		assert.Equal(t, 0, scope.calls)
	})

	t.Run("overrides and client code", func(t *testing.T) {
		svc, _, _, reads := newSequenceServiceForTest(t)
		reads.On("Get", mock.Anything, tenantID).Return(billing.NewInvoiceSequence(tenantID), nil)

		resp, err := svc.Preview(context.Background(), tenantID, PreviewNumberRequest{
			Pattern:    strPtr("{PREFIX}-{CLIENT}-{YEAR}{MONTH}-{NUMBER}"),
			ClientName: "Distribuidora Andina Bolivar",
		})

		require.NoError(t, err)
		assert.Equal(t, "FAC-DAB-202603-00000001", resp.Number)
	})
}
