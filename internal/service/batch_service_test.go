package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-dsi/pointage-api/internal/models"
	appErrors "github.com/campus-dsi/pointage-api/pkg/errors"
	"github.com/campus-dsi/pointage-api/pkg/jobs"
)

type mockProcessor struct {
	mu    sync.Mutex
	stats map[string]TenantStats
	errs  map[string]error
	opts  []RunOptions
	calls map[string]int
}

func (m *mockProcessor) ProcessTenant(ctx context.Context, tenantID string, opts RunOptions) (TenantStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[tenantID]++
	m.opts = append(m.opts, opts)
	if err := m.errs[tenantID]; err != nil {
		return TenantStats{TenantID: tenantID}, err
	}
	return m.stats[tenantID], nil
}

func testRunner() *jobs.Runner {
	return jobs.NewRunner(jobs.RunnerConfig{Workers: 2, MaxRetries: 1, Backoff: time.Millisecond})
}

func TestBatchRunAggregatesTenants(t *testing.T) {
	processor := &mockProcessor{stats: map[string]TenantStats{
		"campus-a": {TenantID: "campus-a", Created: 3, Updated: 1, Sessions: 2},
		"campus-b": {TenantID: "campus-b", Created: 2, Errors: 1, Sessions: 1},
	}}
	batch := NewBatchService([]string{"campus-a", "campus-b"}, processor, testRunner(), nil)

	report, err := batch.Run(context.Background(), BatchParams{CutoffHours: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalCreated)
	assert.Equal(t, 1, report.TotalUpdated)
	assert.Equal(t, 1, report.TotalErrors)
	assert.Len(t, report.Tenants, 2)
	assert.Empty(t, report.Warnings)
}

func TestBatchRunUnavailableTenantBecomesWarning(t *testing.T) {
	processor := &mockProcessor{
		stats: map[string]TenantStats{
			"campus-a": {TenantID: "campus-a", Created: 4},
		},
		errs: map[string]error{
			"campus-b": appErrors.Clone(appErrors.ErrTenantUnavailable, "device API rejected credentials"),
		},
	}
	batch := NewBatchService([]string{"campus-a", "campus-b"}, processor, testRunner(), nil)

	report, err := batch.Run(context.Background(), BatchParams{CutoffHours: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalCreated)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, "campus-b", report.Warnings[0].TenantID)
	assert.Contains(t, report.Warnings[0].Reason, "credentials")
	// Unavailable tenants are not retried; the failure is terminal per run.
	assert.Equal(t, 1, processor.calls["campus-b"])
}

func TestBatchRunRetriesTransientTenantFailure(t *testing.T) {
	processor := &mockProcessor{errs: map[string]error{
		"campus-a": assert.AnError,
	}}
	runner := jobs.NewRunner(jobs.RunnerConfig{Workers: 1, MaxRetries: 3, Backoff: time.Millisecond})
	batch := NewBatchService([]string{"campus-a"}, processor, runner, nil)

	report, err := batch.Run(context.Background(), BatchParams{CutoffHours: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, processor.calls["campus-a"])
	require.Len(t, report.Warnings, 1)
}

func TestBatchRunBackfillPassesDate(t *testing.T) {
	processor := &mockProcessor{}
	batch := NewBatchService([]string{"campus-a"}, processor, testRunner(), nil)

	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	_, err := batch.Run(context.Background(), BatchParams{Date: &date, Kind: "exam"})
	require.NoError(t, err)
	require.Len(t, processor.opts, 1)
	require.NotNil(t, processor.opts[0].Date)
	assert.Equal(t, date, *processor.opts[0].Date)
	assert.Equal(t, []models.SessionKind{models.SessionExam}, processor.opts[0].Kinds)
}

func TestBatchRunRejectsUnknownKind(t *testing.T) {
	batch := NewBatchService([]string{"campus-a"}, &mockProcessor{}, testRunner(), nil)
	_, err := batch.Run(context.Background(), BatchParams{Kind: "seminar"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestParseKindFilter(t *testing.T) {
	kinds, err := parseKindFilter("course")
	require.NoError(t, err)
	assert.Equal(t, []models.SessionKind{models.SessionCourse, models.SessionMakeup}, kinds)

	kinds, err = parseKindFilter("both")
	require.NoError(t, err)
	assert.Nil(t, kinds)

	kinds, err = parseKindFilter("")
	require.NoError(t, err)
	assert.Nil(t, kinds)
}
