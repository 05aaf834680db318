// Package service implements the coordination layer: session lifecycle,
// request routing and pipeline orchestration over the durable store.
package service

import (
	"log/slog"
	"sync"

	"github.com/helixlab/bioflow/config"
	"github.com/helixlab/bioflow/internal/analysis"
	"github.com/helixlab/bioflow/internal/collab"
	"github.com/helixlab/bioflow/internal/metrics"
	"github.com/helixlab/bioflow/store"
)

// Service bundles the engine's components behind the public operations.
type Service struct {
	store      store.Store
	tracker    *metrics.Tracker
	analyzer   *analysis.Analyzer
	predictor  *analysis.Predictor
	comparator *analysis.Comparator
	completer  collab.TextCompleter
	literature collab.LiteratureSearcher
	visualizer collab.Visualizer
	reporter   collab.Reporter
	config     *config.Config
	logger     *slog.Logger

	// Per-session mutual exclusion: no two in-flight operations mutate the
	// same session concurrently.
	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// Collaborators groups the external collaborator implementations injected
// into the service.
type Collaborators struct {
	Completer  collab.TextCompleter
	Literature collab.LiteratureSearcher
	Visualizer collab.Visualizer
	Reporter   collab.Reporter
}

// New creates a Service.
func New(st store.Store, tracker *metrics.Tracker, cfg *config.Config, collabs Collaborators, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   st,
		tracker: tracker,
		analyzer: analysis.NewAnalyzer(
			analysis.WithMaxLength(cfg.MaxSequenceLength),
			analysis.WithMinORFLength(cfg.MinORFLength),
		),
		predictor:  analysis.NewPredictor(),
		comparator: analysis.NewComparator(),
		completer:  collabs.Completer,
		literature: collabs.Literature,
		visualizer: collabs.Visualizer,
		reporter:   collabs.Reporter,
		config:     cfg,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing mutations for one session id.
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[sessionID] = mu
	}
	return mu
}

// releaseLock drops the lock entry for a session that no longer exists.
func (s *Service) releaseLock(sessionID string) {
	s.lockMu.Lock()
	delete(s.locks, sessionID)
	s.lockMu.Unlock()
}
