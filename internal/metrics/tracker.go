// Package metrics tracks per-stage execution accounting: timing, token
// usage, estimated cost and success/failure, persisted as immutable records.
package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/store"
)

// Tracker records stage executions. Every record is finalized exactly once
// and persisted through the store; all aggregation is recomputed from the
// stored record set so a replay over exported records always agrees with
// Summary.
type Tracker struct {
	store   store.Store
	logger  *slog.Logger
	pricing map[string]ModelPricing

	mu     sync.Mutex
	active map[string]struct{}
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPricing replaces the default price table.
func WithPricing(table map[string]ModelPricing) TrackerOption {
	return func(t *Tracker) { t.pricing = table }
}

// WithLogger sets the tracker logger.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = logger }
}

// NewTracker creates a Tracker persisting through st.
func NewTracker(st store.Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:   st,
		logger:  slog.Default(),
		pricing: DefaultPricing(),
		active:  make(map[string]struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// StartExecution begins tracking a stage execution and returns its id.
func (t *Tracker) StartExecution(stage string) string {
	id := uuid.New().String()
	t.mu.Lock()
	t.active[id] = struct{}{}
	t.mu.Unlock()
	return id
}

// EndExecution finalizes an execution exactly once and persists the record.
// Finalizing an id twice is rejected.
func (t *Tracker) EndExecution(ctx context.Context, stage, executionID string, startedAt time.Time, tokensIn, tokensOut int, model string, success bool, execErr error, toolCalls []string) (*domain.ExecutionRecord, error) {
	t.mu.Lock()
	if _, ok := t.active[executionID]; !ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("execution %s already finalized or unknown", executionID)
	}
	delete(t.active, executionID)
	t.mu.Unlock()

	endedAt := time.Now()
	duration := endedAt.Sub(startedAt).Seconds()
	if duration < 0 {
		duration = 0
	}

	rec := &domain.ExecutionRecord{
		Stage:           stage,
		ExecutionID:     executionID,
		StartedAt:       startedAt,
		EndedAt:         endedAt,
		DurationSeconds: duration,
		TokensIn:        tokensIn,
		TokensOut:       tokensOut,
		TokensTotal:     tokensIn + tokensOut,
		Model:           model,
		CostUSD:         estimateCost(t.pricing, model, tokensIn, tokensOut),
		Success:         success,
		ToolCalls:       toolCalls,
	}
	if execErr != nil {
		rec.Error = execErr.Error()
	}

	if err := t.store.SaveExecution(ctx, rec); err != nil {
		t.logger.Error("failed to persist execution record",
			"stage", stage, "execution_id", executionID, "error", err)
		return nil, err
	}
	return rec, nil
}

// Summary aggregates all finalized records started within the window. A zero
// window aggregates everything.
func (t *Tracker) Summary(ctx context.Context, window time.Duration) (*domain.MetricsSummary, error) {
	var since time.Time
	if window > 0 {
		since = time.Now().Add(-window)
	}
	records, err := t.store.ListExecutions(ctx, since)
	if err != nil {
		return nil, err
	}
	return Aggregate(records, window), nil
}

// Aggregate computes summary statistics for a record set. It is a pure
// function of its input.
func Aggregate(records []domain.ExecutionRecord, window time.Duration) *domain.MetricsSummary {
	summary := &domain.MetricsSummary{
		WindowHours: window.Hours(),
		ByStage:     make(map[string]domain.StageStats),
	}

	totalDuration := 0.0
	stageDurations := make(map[string]float64)
	for _, r := range records {
		summary.TotalExecutions++
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.TotalTokens += r.TokensTotal
		summary.TotalCostUSD += r.CostUSD
		totalDuration += r.DurationSeconds

		st := summary.ByStage[r.Stage]
		st.Count++
		if r.Success {
			st.Successful++
		} else {
			st.Failed++
		}
		st.TotalTokens += r.TokensTotal
		st.TotalCostUSD += r.CostUSD
		stageDurations[r.Stage] += r.DurationSeconds
		summary.ByStage[r.Stage] = st
	}

	if summary.TotalExecutions > 0 {
		summary.SuccessRate = math.Round(float64(summary.Successful)/float64(summary.TotalExecutions)*1000) / 10
		summary.AvgDurationSeconds = totalDuration / float64(summary.TotalExecutions)
	}
	for stage, st := range summary.ByStage {
		st.AvgDurationSeconds = stageDurations[stage] / float64(st.Count)
		summary.ByStage[stage] = st
	}
	return summary
}

// ExportBundle is the serialized form of the raw record set plus its
// aggregate.
type ExportBundle struct {
	ExportedAt time.Time                `json:"exported_at"`
	Records    []domain.ExecutionRecord `json:"records"`
	Summary    *domain.MetricsSummary   `json:"summary"`
}

// Export snapshots all finalized records and their aggregate.
func (t *Tracker) Export(ctx context.Context) (*ExportBundle, error) {
	records, err := t.store.ListExecutions(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	return &ExportBundle{
		ExportedAt: time.Now(),
		Records:    records,
		Summary:    Aggregate(records, 0),
	}, nil
}
