package metrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/tests/helpers"
)

func TestEstimateCost(t *testing.T) {
	table := DefaultPricing()

	// 1M input + 1M output tokens at gemini-2.5-flash rates.
	assert.Equal(t, 2.8, estimateCost(table, "gemini-2.5-flash", 1_000_000, 1_000_000))

	// 1000 in / 500 out: 1000/1M*0.30 + 500/1M*2.50 = 0.00155.
	assert.Equal(t, 0.00155, estimateCost(table, "gemini-2.5-flash", 1000, 500))

	// Versioned name resolves by prefix.
	assert.Equal(t,
		estimateCost(table, "gemini-2.5-pro", 1000, 1000),
		estimateCost(table, "gemini-2.5-pro-preview-0325", 1000, 1000))

	// Unknown models fall back to a nonzero rate.
	assert.Greater(t, estimateCost(table, "mystery-model", 10_000, 10_000), 0.0)

	assert.Equal(t, 0.0, estimateCost(table, "gemini-2.5-flash", 0, 0))
}

func TestTrackerEndExecutionOnce(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	tracker := NewTracker(st)
	ctx := context.Background()

	started := time.Now()
	id := tracker.StartExecution("analysis")

	rec, err := tracker.EndExecution(ctx, "analysis", id, started, 1000, 500, "gemini-2.5-flash", true, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "analysis", rec.Stage)
	assert.Equal(t, 1500, rec.TokensTotal)
	assert.Equal(t, 0.00155, rec.CostUSD)
	assert.True(t, rec.Success)
	assert.Empty(t, rec.Error)

	_, err = tracker.EndExecution(ctx, "analysis", id, started, 1000, 500, "gemini-2.5-flash", true, nil, nil)
	require.Error(t, err)

	// Only the first finalization reached the store.
	records, err := st.ListExecutions(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestTrackerRecordsFailure(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	tracker := NewTracker(st)
	ctx := context.Background()

	id := tracker.StartExecution("literature")
	rec, err := tracker.EndExecution(ctx, "literature", id, time.Now(), 0, 0, "gemini-2.5-flash", false,
		errors.New("upstream timeout"), nil)
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, "upstream timeout", rec.Error)
}

func TestSummaryAggregation(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	tracker := NewTracker(st)
	ctx := context.Background()

	type exec struct {
		stage     string
		tokensIn  int
		tokensOut int
		success   bool
	}
	for _, e := range []exec{
		{"analysis", 0, 0, true},
		{"hypothesis", 2000, 1000, true},
		{"hypothesis", 1500, 0, false},
		{"literature", 500, 300, true},
	} {
		id := tracker.StartExecution(e.stage)
		_, err := tracker.EndExecution(ctx, e.stage, id, time.Now(), e.tokensIn, e.tokensOut, "gemini-2.5-flash", e.success, nil, nil)
		require.NoError(t, err)
	}

	summary, err := tracker.Summary(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalExecutions)
	assert.Equal(t, 3, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 75.0, summary.SuccessRate)
	assert.Equal(t, 5300, summary.TotalTokens)

	hyp := summary.ByStage["hypothesis"]
	assert.Equal(t, 2, hyp.Count)
	assert.Equal(t, 1, hyp.Successful)
	assert.Equal(t, 1, hyp.Failed)
	assert.Equal(t, 4500, hyp.TotalTokens)

	// Summing stage costs reproduces the overall total, and both equal the
	// sum over raw records.
	records, err := st.ListExecutions(ctx, time.Time{})
	require.NoError(t, err)
	recordTotal := 0.0
	for _, r := range records {
		recordTotal += r.CostUSD
	}
	stageTotal := 0.0
	for _, s := range summary.ByStage {
		stageTotal += s.TotalCostUSD
	}
	assert.InDelta(t, recordTotal, summary.TotalCostUSD, 1e-9)
	assert.InDelta(t, recordTotal, stageTotal, 1e-9)
}

func TestSummaryWindowFiltering(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	tracker := NewTracker(st)
	ctx := context.Background()

	old := &domain.ExecutionRecord{
		ExecutionID: "old", Stage: "analysis",
		StartedAt: time.Now().Add(-48 * time.Hour),
		Success:   true,
	}
	require.NoError(t, st.SaveExecution(ctx, old))

	id := tracker.StartExecution("analysis")
	_, err := tracker.EndExecution(ctx, "analysis", id, time.Now(), 0, 0, "gemini-2.5-flash", true, nil, nil)
	require.NoError(t, err)

	summary, err := tracker.Summary(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalExecutions)
	assert.Equal(t, 24.0, summary.WindowHours)

	all, err := tracker.Summary(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalExecutions)
}

func TestAggregateEmpty(t *testing.T) {
	summary := Aggregate(nil, 0)
	assert.Equal(t, 0, summary.TotalExecutions)
	assert.Equal(t, 0.0, summary.SuccessRate)
	assert.NotNil(t, summary.ByStage)
}

func TestExportReplayAgreesWithSummary(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	tracker := NewTracker(st)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := tracker.StartExecution("report")
		_, err := tracker.EndExecution(ctx, "report", id, time.Now(), 100*i, 50*i, "gemini-2.5-flash", true, nil, nil)
		require.NoError(t, err)
	}

	bundle, err := tracker.Export(ctx)
	require.NoError(t, err)
	require.Len(t, bundle.Records, 3)

	replayed := Aggregate(bundle.Records, 0)
	assert.Equal(t, bundle.Summary.TotalExecutions, replayed.TotalExecutions)
	assert.True(t, math.Abs(bundle.Summary.TotalCostUSD-replayed.TotalCostUSD) < 1e-12)
	assert.Equal(t, bundle.Summary.ByStage, replayed.ByStage)
}
