package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/internal/collab/mock"
	"github.com/helixlab/bioflow/internal/service"
)

func TestRunPipelineCompletes(t *testing.T) {
	svc, _ := newTestService(t, offlineCollaborators())

	result := svc.RunPipeline(context.Background(), "sess-1", "ATGAAACCCGGGTTTACGTAA")

	require.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.True(t, result.Status.IsTerminal())
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "sess-1", result.SessionID)

	require.NotNil(t, result.Analysis)
	assert.Equal(t, 21, result.Analysis.Length)
	require.NotEmpty(t, result.Proteins)
	assert.NotEmpty(t, result.Proteins[0].ORFID)
	require.NotNil(t, result.Literature)
	assert.NotEmpty(t, result.Hypotheses)
	assert.NotEmpty(t, result.Plots)
	require.NotNil(t, result.Report)
	assert.Nil(t, result.Failure)

	for _, stage := range []string{
		service.StageAnalysis, service.StagePrediction, service.StageLiterature,
		service.StageHypothesis, service.StageVisualization, service.StageReport,
	} {
		assert.Equal(t, 1, result.Attempts[stage], "attempts for %s", stage)
	}
}

func TestRunPipelineSkipsPredictionWithoutORF(t *testing.T) {
	svc, _ := newTestService(t, offlineCollaborators())

	result := svc.RunPipeline(context.Background(), "sess-1", "CCCCCCCCCCCCCCCCCCCC")

	require.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.Empty(t, result.Proteins)
	assert.Zero(t, result.Attempts[service.StagePrediction])
	assert.NotNil(t, result.Report)
}

func TestRunPipelineComparison(t *testing.T) {
	svc, _ := newTestService(t, offlineCollaborators())

	result := svc.RunPipeline(context.Background(), "sess-1",
		"ATGAAACCCGGGTTTACGTAA", "ATGAAACCCGGGTTTACGTAA")

	require.Equal(t, domain.RunStatusCompleted, result.Status)
	require.NotNil(t, result.Comparison)
	assert.Equal(t, 100.0, result.Comparison.Identity)
	assert.Equal(t, 1, result.Attempts[service.StageComparison])
}

func TestRunPipelineInvalidSequence(t *testing.T) {
	svc, _ := newTestService(t, offlineCollaborators())

	result := svc.RunPipeline(context.Background(), "sess-1", "not a sequence")

	require.Equal(t, domain.RunStatusFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, service.StageAnalysis, result.Failure.Stage)
	// Validation failures are permanent: exactly one attempt.
	assert.Equal(t, 1, result.Attempts[service.StageAnalysis])
	assert.Nil(t, result.Analysis)
}

func TestRunPipelineRetriesTransientFailures(t *testing.T) {
	collabs := offlineCollaborators()
	failures := 0
	goodSearch := collabs.Literature
	collabs.Literature = &mock.LiteratureSearcher{
		SearchFn: func(ctx context.Context, query string) (*domain.LiteratureResult, error) {
			if failures < 2 {
				failures++
				return nil, domain.TransientError("literature.search", errors.New("rate limited"))
			}
			return goodSearch.Search(ctx, query)
		},
	}
	svc, st := newTestService(t, collabs)

	result := svc.RunPipeline(context.Background(), "sess-1", "ATGAAACCCGGGTTTACGTAA")

	require.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.Equal(t, 3, result.Attempts[service.StageLiterature])

	// Each attempt left its own accounting record.
	records, err := st.ListExecutions(context.Background(), time.Time{})
	require.NoError(t, err)
	var litRecords []domain.ExecutionRecord
	for _, r := range records {
		if r.Stage == service.StageLiterature {
			litRecords = append(litRecords, r)
		}
	}
	require.Len(t, litRecords, 3)
	assert.False(t, litRecords[0].Success)
	assert.False(t, litRecords[1].Success)
	assert.True(t, litRecords[2].Success)
	assert.Contains(t, litRecords[0].Error, "rate limited")
}

func TestRunPipelinePermanentFailureAbortsImmediately(t *testing.T) {
	collabs := offlineCollaborators()
	collabs.Literature = &mock.LiteratureSearcher{
		SearchFn: func(ctx context.Context, query string) (*domain.LiteratureResult, error) {
			return nil, domain.PermanentError("literature.search", errors.New("invalid api key"))
		},
	}
	svc, _ := newTestService(t, collabs)

	result := svc.RunPipeline(context.Background(), "sess-1", "ATGAAACCCGGGTTTACGTAA")

	require.Equal(t, domain.RunStatusFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, service.StageLiterature, result.Failure.Stage)
	assert.Equal(t, 1, result.Attempts[service.StageLiterature])
	assert.Contains(t, result.Failure.Message, "invalid api key")
}

func TestRunPipelineTransientFailuresExhaustRetries(t *testing.T) {
	collabs := offlineCollaborators()
	calls := 0
	collabs.Literature = &mock.LiteratureSearcher{
		SearchFn: func(ctx context.Context, query string) (*domain.LiteratureResult, error) {
			calls++
			return nil, domain.TransientError("literature.search", errors.New("unavailable"))
		},
	}
	svc, _ := newTestService(t, collabs)

	result := svc.RunPipeline(context.Background(), "sess-1", "ATGAAACCCGGGTTTACGTAA")

	require.Equal(t, domain.RunStatusFailed, result.Status)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, result.Attempts[service.StageLiterature])
}

func TestRunPipelineCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	collabs := offlineCollaborators()
	collabs.Literature = &mock.LiteratureSearcher{
		SearchFn: func(ctx context.Context, query string) (*domain.LiteratureResult, error) {
			cancel()
			return nil, domain.TransientError("literature.search", errors.New("connection reset"))
		},
	}
	svc, _ := newTestService(t, collabs)

	result := svc.RunPipeline(ctx, "sess-1", "ATGAAACCCGGGTTTACGTAA")

	require.Equal(t, domain.RunStatusFailed, result.Status)
	require.NotNil(t, result.Failure)
	assert.Equal(t, service.StageLiterature, result.Failure.Stage)
	assert.Contains(t, result.Failure.Message, "cancelled")
}

func TestRunPipelineCapsProteinPredictions(t *testing.T) {
	svc, _ := newTestService(t, offlineCollaborators())

	// Seven overlapping starts sharing one downstream stop.
	seq := "ATGATGATGATGATGATGATGTAA"
	result := svc.RunPipeline(context.Background(), "sess-1", seq)

	require.Equal(t, domain.RunStatusCompleted, result.Status)
	assert.LessOrEqual(t, len(result.Proteins), 5)
	assert.NotEmpty(t, result.Proteins)
}
