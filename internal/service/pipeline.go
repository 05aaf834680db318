package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/helixlab/bioflow/domain"
)

// Stage names used for execution accounting.
const (
	StageAnalysis      = "analysis"
	StagePrediction    = "prediction"
	StageComparison    = "comparison"
	StageLiterature    = "literature"
	StageHypothesis    = "hypothesis"
	StageVisualization = "visualization"
	StageReport        = "report"
	StageChat          = "chat"
)

// stageFunc executes one stage attempt and reports token usage.
type stageFunc func(ctx context.Context) (tokensIn, tokensOut int, err error)

// RunPipeline executes the full analysis pipeline for a sequence, advancing
// through ANALYZING, PREDICTING (or SKIPPED_NO_ORF when nothing translates),
// ENRICHING, VISUALIZING and REPORTING. extra carries additional sequences
// from the same message; when present, the first is aligned against the
// primary. The returned result is terminal: COMPLETED or FAILED, never an
// intermediate state.
func (s *Service) RunPipeline(ctx context.Context, sessionID, sequence string, extra ...string) *domain.PipelineResult {
	start := time.Now()
	result := &domain.PipelineResult{
		RunID:     "run_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Status:    domain.RunStatusStarted,
		Attempts:  make(map[string]int),
		StartedAt: start,
	}
	s.logger.Info("pipeline started",
		"run_id", result.RunID, "session_id", sessionID, "sequence_length", len(sequence))

	result.Status = domain.RunStatusAnalyzing
	err := s.runStage(ctx, result, StageAnalysis, "", func(ctx context.Context) (int, int, error) {
		analysis, err := s.analyzer.Analyze(sequence)
		if err != nil {
			return 0, 0, err
		}
		result.Analysis = analysis
		return 0, 0, nil
	})
	if err != nil {
		return s.failRun(result, StageAnalysis, err)
	}

	if len(result.Analysis.ORFs) == 0 {
		result.Status = domain.RunStatusSkippedNoORF
	} else {
		result.Status = domain.RunStatusPredicting
		err = s.runStage(ctx, result, StagePrediction, "", func(ctx context.Context) (int, int, error) {
			return 0, 0, s.predictProteins(result)
		})
		if err != nil {
			return s.failRun(result, StagePrediction, err)
		}
	}

	if len(extra) > 0 {
		err = s.runStage(ctx, result, StageComparison, "", func(ctx context.Context) (int, int, error) {
			cmp, err := s.comparator.Compare(sequence, extra[0])
			if err != nil {
				return 0, 0, err
			}
			result.Comparison = cmp
			return 0, 0, nil
		})
		if err != nil {
			return s.failRun(result, StageComparison, err)
		}
	}

	result.Status = domain.RunStatusEnriching
	query := fmt.Sprintf("DNA sequence analysis GC content %.1f%% length %d",
		result.Analysis.GCPercent, result.Analysis.Length)
	err = s.runStage(ctx, result, StageLiterature, "", func(ctx context.Context) (int, int, error) {
		lit, err := s.literature.Search(ctx, query)
		if err != nil {
			return 0, 0, err
		}
		result.Literature = lit
		return 0, 0, nil
	})
	if err != nil {
		return s.failRun(result, StageLiterature, err)
	}

	err = s.runStage(ctx, result, StageHypothesis, s.config.Model, func(ctx context.Context) (int, int, error) {
		completion, err := s.completer.Complete(ctx, hypothesisPrompt(result), nil)
		if err != nil {
			return 0, 0, err
		}
		result.Hypotheses = completion.Text
		return completion.TokensIn, completion.TokensOut, nil
	})
	if err != nil {
		return s.failRun(result, StageHypothesis, err)
	}

	result.Status = domain.RunStatusVisualizing
	err = s.runStage(ctx, result, StageVisualization, "", func(ctx context.Context) (int, int, error) {
		plots, err := s.visualizer.Render(ctx, result.Analysis)
		if err != nil {
			return 0, 0, err
		}
		result.Plots = plots
		return 0, 0, nil
	})
	if err != nil {
		return s.failRun(result, StageVisualization, err)
	}

	result.Status = domain.RunStatusReporting
	err = s.runStage(ctx, result, StageReport, "", func(ctx context.Context) (int, int, error) {
		report, err := s.reporter.Generate(ctx, result)
		if err != nil {
			return 0, 0, err
		}
		result.Report = report
		return 0, 0, nil
	})
	if err != nil {
		return s.failRun(result, StageReport, err)
	}

	result.Status = domain.RunStatusCompleted
	result.DurationSeconds = time.Since(start).Seconds()
	s.logger.Info("pipeline completed",
		"run_id", result.RunID, "duration_seconds", result.DurationSeconds)
	return result
}

// predictProteins translates the detected ORFs, up to the configured cap.
func (s *Service) predictProteins(result *domain.PipelineResult) error {
	orfs := result.Analysis.ORFs
	if max := s.config.MaxORFPredictions; max > 0 && len(orfs) > max {
		orfs = orfs[:max]
	}
	for _, orf := range orfs {
		profile, err := s.predictor.Predict(orf.Sequence)
		if err != nil {
			return err
		}
		profile.ORFID = fmt.Sprintf("ORF_%d_%d", orf.Start, orf.End)
		result.Proteins = append(result.Proteins, *profile)
	}
	return nil
}

// runStage runs one pipeline stage under the retry policy.
func (s *Service) runStage(ctx context.Context, run *domain.PipelineResult, stage, model string, fn stageFunc) error {
	return s.executeWithRetry(ctx, stage, model, run.Attempts, fn)
}

// executeWithRetry runs fn under the retry policy, recording an execution
// record per attempt. Only transient collaborator failures are retried;
// everything else aborts on the first attempt.
func (s *Service) executeWithRetry(ctx context.Context, stage, model string, attempts map[string]int, fn stageFunc) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.config.RetryInitialBackoff
	bo.MaxInterval = s.config.RetryMaxBackoff
	bo.MaxElapsedTime = 0

	maxRetries := uint64(0)
	if s.config.RetryMaxAttempts > 1 {
		maxRetries = uint64(s.config.RetryMaxAttempts - 1)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)

	attempt := func() error {
		attempts[stage]++
		execID := s.tracker.StartExecution(stage)
		started := time.Now()
		tokensIn, tokensOut, err := fn(ctx)
		if _, recErr := s.tracker.EndExecution(ctx, stage, execID, started, tokensIn, tokensOut, model, err == nil, err, nil); recErr != nil {
			s.logger.Error("failed to record stage execution",
				"stage", stage, "error", recErr)
		}
		if err == nil {
			return nil
		}
		if domain.IsTransient(err) {
			s.logger.Warn("transient stage failure, will retry",
				"stage", stage, "attempt", attempts[stage], "error", err)
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(attempt, policy)
}

// failRun finalizes a run as FAILED with the causing error attached.
func (s *Service) failRun(result *domain.PipelineResult, stage string, err error) *domain.PipelineResult {
	msg := err.Error()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = "cancelled: " + msg
	}
	result.Status = domain.RunStatusFailed
	result.Failure = &domain.StageFailure{Stage: stage, Message: msg}
	result.DurationSeconds = time.Since(result.StartedAt).Seconds()
	s.logger.Error("pipeline failed",
		"run_id", result.RunID, "stage", stage, "error", err)
	return result
}

// hypothesisPrompt builds the enrichment prompt from the accumulated run
// output.
func hypothesisPrompt(result *domain.PipelineResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Propose research hypotheses for a %s sequence of %d bases with GC content %.1f%%.\n",
		result.Analysis.SequenceType, result.Analysis.Length, result.Analysis.GCPercent)
	fmt.Fprintf(&b, "Detected %d open reading frames and %d regulatory motif hits.\n",
		len(result.Analysis.ORFs), len(result.Analysis.Motifs))
	for _, p := range result.Proteins {
		fmt.Fprintf(&b, "Protein %s: %d residues, %.1f Da, mean hydropathy %.2f, signal peptide %t.\n",
			p.ORFID, p.Length, p.MolecularWeight, p.Hydrophobicity, p.SignalPeptide)
	}
	if result.Literature != nil {
		fmt.Fprintf(&b, "Literature context: %d related papers.\n", result.Literature.TotalResults)
		for _, paper := range result.Literature.Papers {
			fmt.Fprintf(&b, "- %s (%d)\n", paper.Title, paper.Year)
		}
	}
	return b.String()
}
