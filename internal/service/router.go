package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/internal/collab"
)

// A message is analysis-bound when it contains a contiguous run of at least
// 20 characters from the extended nucleotide alphabet.
var sequenceRunPattern = regexp.MustCompile(`[ATCGURYKMSWBDHVN]{20,}`)

// Session context keys written by routed analysis runs.
const (
	ContextLastSequence = "last_sequence"
	ContextLastGC       = "last_gc_percent"
	ContextLastRunID    = "last_run_id"
)

// Route binds the message to a session, classifies it and dispatches it:
// analysis-bound messages run the full pipeline (awaited), conversational
// messages go to the text-completion collaborator with recent history. Both
// the inbound message and the produced response are appended to the session
// log before returning.
func (s *Service) Route(ctx context.Context, message, sessionID, userID string) (*domain.RoutedResult, error) {
	session, err := s.GetOrCreateSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	sid := session.SessionID

	// History snapshot predates the inbound append so the model does not
	// see the message twice.
	history := session.RecentMessages(s.config.HistoryWindow)

	if err := s.AppendMessage(ctx, sid, domain.RoleUser, message, nil); err != nil {
		return nil, err
	}

	if sequences := ExtractSequences(message); len(sequences) > 0 {
		return s.routeAnalysis(ctx, sid, sequences)
	}
	return s.routeConversational(ctx, sid, message, history)
}

// ExtractSequences returns every nucleotide run of classification length
// found in the message, in order of appearance.
func ExtractSequences(message string) []string {
	return sequenceRunPattern.FindAllString(strings.ToUpper(message), -1)
}

func (s *Service) routeAnalysis(ctx context.Context, sessionID string, sequences []string) (*domain.RoutedResult, error) {
	result := s.RunPipeline(ctx, sessionID, sequences[0], sequences[1:]...)

	response := summarizeRun(result)
	meta := map[string]string{"run_id": result.RunID, "status": string(result.Status)}
	if err := s.AppendMessage(ctx, sessionID, domain.RoleAssistant, response, meta); err != nil {
		return nil, err
	}

	if result.Status == domain.RunStatusCompleted {
		for key, value := range map[string]any{
			ContextLastSequence: result.Analysis.Sequence,
			ContextLastGC:       result.Analysis.GCPercent,
			ContextLastRunID:    result.RunID,
		} {
			if err := s.SetContext(ctx, sessionID, key, value); err != nil {
				s.logger.Error("failed to update session context",
					"session_id", sessionID, "key", key, "error", err)
			}
		}
	}

	return &domain.RoutedResult{
		Success:   result.Status == domain.RunStatusCompleted,
		SessionID: sessionID,
		Kind:      domain.RouteKindAnalysis,
		Response:  response,
		Pipeline:  result,
		Failure:   result.Failure,
		Timestamp: time.Now(),
	}, nil
}

func (s *Service) routeConversational(ctx context.Context, sessionID, message string, history []domain.Message) (*domain.RoutedResult, error) {
	var completion *collab.Completion
	attempts := make(map[string]int)
	err := s.executeWithRetry(ctx, StageChat, s.config.Model, attempts, func(ctx context.Context) (int, int, error) {
		c, err := s.completer.Complete(ctx, message, history)
		if err != nil {
			return 0, 0, err
		}
		completion = c
		return c.TokensIn, c.TokensOut, nil
	})
	if err != nil {
		failure := &domain.StageFailure{Stage: StageChat, Message: err.Error()}
		response := "I could not generate a response: " + err.Error()
		if appendErr := s.AppendMessage(ctx, sessionID, domain.RoleAssistant, response, nil); appendErr != nil {
			return nil, appendErr
		}
		return &domain.RoutedResult{
			Success:   false,
			SessionID: sessionID,
			Kind:      domain.RouteKindConversational,
			Response:  response,
			Failure:   failure,
			Timestamp: time.Now(),
		}, nil
	}

	if err := s.AppendMessage(ctx, sessionID, domain.RoleAssistant, completion.Text, nil); err != nil {
		return nil, err
	}
	return &domain.RoutedResult{
		Success:   true,
		SessionID: sessionID,
		Kind:      domain.RouteKindConversational,
		Response:  completion.Text,
		Timestamp: time.Now(),
	}, nil
}

// CompareSequences aligns two sequences outside of a pipeline run.
func (s *Service) CompareSequences(ctx context.Context, a, b string) (*domain.ComparisonResult, error) {
	return s.comparator.Compare(a, b)
}

// summarizeRun renders a short textual summary of a pipeline run for the
// session log.
func summarizeRun(result *domain.PipelineResult) string {
	if result.Status == domain.RunStatusFailed {
		return fmt.Sprintf("Analysis failed during %s: %s", result.Failure.Stage, result.Failure.Message)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyzed %s sequence of %d bases: GC %.1f%%, %d ORFs, %d motif hits.",
		result.Analysis.SequenceType, result.Analysis.Length, result.Analysis.GCPercent,
		len(result.Analysis.ORFs), len(result.Analysis.Motifs))
	if len(result.Proteins) > 0 {
		fmt.Fprintf(&b, " Predicted %d proteins.", len(result.Proteins))
	}
	if result.Comparison != nil {
		fmt.Fprintf(&b, " Pairwise identity %.1f%% (%s).", result.Comparison.Identity, result.Comparison.Homology)
	}
	if result.Report != nil {
		fmt.Fprintf(&b, " Report: %s.", result.Report.Path)
	}
	return b.String()
}
