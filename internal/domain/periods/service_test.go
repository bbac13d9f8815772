package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/internal/core/apperror"
	"kardex/internal/core/id"
	"kardex/internal/core/tx"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository, id.ID) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo, tx.MockManager{}), repo, id.New()
}

func augustPeriod(companyID id.ID) *Period {
	return NewPeriod(companyID, "2026-08",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	)
}

func TestPeriodContainsHalfOpenInterval(t *testing.T) {
	p := augustPeriod(id.New())

	assert.True(t, p.Contains(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)))
}

func TestServiceResolve(t *testing.T) {
	svc, repo, companyID := newTestService(t)
	ctx := context.Background()

	period := augustPeriod(companyID)
	require.NoError(t, svc.Create(ctx, period))

	resolved, err := svc.Resolve(ctx, companyID, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, period.ID, resolved.ID)

	// No period covers the date.
	_, err = svc.Resolve(ctx, companyID, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodNotFound))

	// A closed covering period rejects postings.
	period.Status = StatusClosed
	require.NoError(t, repo.Update(ctx, period))
	_, err = svc.Resolve(ctx, companyID, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodClosed))
}

func TestServiceCreateDuplicateCode(t *testing.T) {
	svc, _, companyID := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, augustPeriod(companyID)))

	err := svc.Create(ctx, augustPeriod(companyID))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	// Same code in a different company is fine.
	require.NoError(t, svc.Create(ctx, augustPeriod(id.New())))
}

func TestServiceCloseGuardsPendingDocuments(t *testing.T) {
	svc, repo, companyID := newTestService(t)
	ctx := context.Background()

	period := augustPeriod(companyID)
	require.NoError(t, svc.Create(ctx, period))

	repo.PendingDocuments[period.ID] = 2
	err := svc.Close(ctx, period.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, "PERIOD_HAS_PENDING_DOCUMENTS"))

	// Still open.
	got, err := svc.GetByID(ctx, period.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOpen())

	repo.PendingDocuments[period.ID] = 0
	require.NoError(t, svc.Close(ctx, period.ID))

	got, err = svc.GetByID(ctx, period.ID)
	require.NoError(t, err)
	assert.False(t, got.IsOpen())
	assert.NotNil(t, got.ClosedAt)

	// Closing twice fails.
	err = svc.Close(ctx, period.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodClosed))
}

func TestServiceReopen(t *testing.T) {
	svc, _, companyID := newTestService(t)
	ctx := context.Background()

	period := augustPeriod(companyID)
	require.NoError(t, svc.Create(ctx, period))
	require.NoError(t, svc.Close(ctx, period.ID))

	require.NoError(t, svc.Reopen(ctx, period.ID))

	got, err := svc.GetByID(ctx, period.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOpen())
	assert.Nil(t, got.ClosedAt)
	assert.Empty(t, got.ClosedBy)

	// Reopening an open period is a no-op.
	require.NoError(t, svc.Reopen(ctx, period.ID))
}

func TestServiceEnsureOpen(t *testing.T) {
	svc, _, companyID := newTestService(t)
	ctx := context.Background()

	period := augustPeriod(companyID)
	require.NoError(t, svc.Create(ctx, period))
	require.NoError(t, svc.EnsureOpen(ctx, period.ID))

	require.NoError(t, svc.Close(ctx, period.ID))
	err := svc.EnsureOpen(ctx, period.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodClosed))

	err = svc.EnsureOpen(ctx, id.New())
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodNotFound))
}
