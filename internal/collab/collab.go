// Package collab defines the interfaces of the external collaborators the
// engine invokes: text completion, literature search, visualization and
// report generation. Implementations classify their failures as transient or
// permanent via domain.CollaboratorError so the orchestrator knows what to
// retry.
package collab

import (
	"context"

	"github.com/helixlab/bioflow/domain"
)

// Completion is the outcome of one text-completion call.
type Completion struct {
	Text      string
	Model     string
	TokensIn  int
	TokensOut int
}

// TextCompleter generates natural-language text from a prompt and the
// session's recent conversation history. Output is non-deterministic.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string, history []domain.Message) (*Completion, error)
}

// LiteratureSearcher queries a literature backend.
type LiteratureSearcher interface {
	Search(ctx context.Context, query string) (*domain.LiteratureResult, error)
}

// Visualizer renders plots for an analysis result and returns artifact
// descriptors.
type Visualizer interface {
	Render(ctx context.Context, analysis *domain.AnalysisResult) ([]domain.Artifact, error)
}

// Reporter builds a report document from aggregated pipeline output.
type Reporter interface {
	Generate(ctx context.Context, result *domain.PipelineResult) (*domain.ReportInfo, error)
}
