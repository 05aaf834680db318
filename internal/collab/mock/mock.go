// Package mock provides test doubles for collab interfaces using function
// fields, plus deterministic offline collaborators for running without
// external services.
package mock

import (
	"context"
	"fmt"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/internal/collab"
)

// Interface compliance checks.
var (
	_ collab.TextCompleter      = (*TextCompleter)(nil)
	_ collab.LiteratureSearcher = (*LiteratureSearcher)(nil)
	_ collab.Visualizer         = (*Visualizer)(nil)
	_ collab.Reporter           = (*Reporter)(nil)
)

// TextCompleter is a test double for collab.TextCompleter.
// Set CompleteFn before calling Complete.
type TextCompleter struct {
	CompleteFn func(ctx context.Context, prompt string, history []domain.Message) (*collab.Completion, error)
}

// Complete delegates to CompleteFn.
func (m *TextCompleter) Complete(ctx context.Context, prompt string, history []domain.Message) (*collab.Completion, error) {
	return m.CompleteFn(ctx, prompt, history)
}

// LiteratureSearcher is a test double for collab.LiteratureSearcher.
type LiteratureSearcher struct {
	SearchFn func(ctx context.Context, query string) (*domain.LiteratureResult, error)
}

// Search delegates to SearchFn.
func (m *LiteratureSearcher) Search(ctx context.Context, query string) (*domain.LiteratureResult, error) {
	return m.SearchFn(ctx, query)
}

// Visualizer is a test double for collab.Visualizer.
type Visualizer struct {
	RenderFn func(ctx context.Context, analysis *domain.AnalysisResult) ([]domain.Artifact, error)
}

// Render delegates to RenderFn.
func (m *Visualizer) Render(ctx context.Context, analysis *domain.AnalysisResult) ([]domain.Artifact, error) {
	return m.RenderFn(ctx, analysis)
}

// Reporter is a test double for collab.Reporter.
type Reporter struct {
	GenerateFn func(ctx context.Context, result *domain.PipelineResult) (*domain.ReportInfo, error)
}

// Generate delegates to GenerateFn.
func (m *Reporter) Generate(ctx context.Context, result *domain.PipelineResult) (*domain.ReportInfo, error) {
	return m.GenerateFn(ctx, result)
}

// Offline returns deterministic collaborators for running the engine with no
// external services configured.
func Offline() (collab.TextCompleter, collab.LiteratureSearcher, collab.Visualizer, collab.Reporter) {
	completer := &TextCompleter{
		CompleteFn: func(ctx context.Context, prompt string, history []domain.Message) (*collab.Completion, error) {
			text := fmt.Sprintf("[offline] received %d history messages and a %d-character prompt", len(history), len(prompt))
			return &collab.Completion{
				Text:      text,
				Model:     "offline",
				TokensIn:  (promptChars(prompt, history)) / 4,
				TokensOut: len(text) / 4,
			}, nil
		},
	}
	searcher := &LiteratureSearcher{
		SearchFn: func(ctx context.Context, query string) (*domain.LiteratureResult, error) {
			return &domain.LiteratureResult{
				TotalResults: 2,
				Papers: []domain.Paper{
					{
						ID:       "PMC0000001",
						Title:    "GC content and coding density in prokaryotic genomes",
						Authors:  []string{"Okafor A", "Lindqvist M"},
						Year:     2019,
						Abstract: "Survey of GC composition across bacterial clades.",
					},
					{
						ID:       "PMC0000002",
						Title:    "Regulatory motif conservation in promoter regions",
						Authors:  []string{"Tanaka H"},
						Year:     2021,
						Abstract: "Comparative scan of TATA and Kozak elements.",
					},
				},
			}, nil
		},
	}
	visualizer := &Visualizer{
		RenderFn: func(ctx context.Context, analysis *domain.AnalysisResult) ([]domain.Artifact, error) {
			return []domain.Artifact{
				{Name: "gc_distribution", Path: "plots/gc_distribution.png", Format: "png"},
				{Name: "orf_map", Path: "plots/orf_map.png", Format: "png"},
			}, nil
		},
	}
	reporter := &Reporter{
		GenerateFn: func(ctx context.Context, result *domain.PipelineResult) (*domain.ReportInfo, error) {
			return &domain.ReportInfo{
				Path:          fmt.Sprintf("reports/%s.pdf", result.RunID),
				PageCount:     4,
				FileSizeBytes: 128 * 1024,
			}, nil
		},
	}
	return completer, searcher, visualizer, reporter
}

func promptChars(prompt string, history []domain.Message) int {
	total := len(prompt)
	for _, m := range history {
		total += len(m.Content)
	}
	return total
}
