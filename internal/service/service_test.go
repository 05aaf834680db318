package service_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/helixlab/bioflow/config"
	"github.com/helixlab/bioflow/internal/collab/mock"
	"github.com/helixlab/bioflow/internal/metrics"
	"github.com/helixlab/bioflow/internal/service"
	"github.com/helixlab/bioflow/store"
	"github.com/helixlab/bioflow/tests/helpers"
)

// testConfig keeps retry backoff short so transient-failure tests run fast.
func testConfig() *config.Config {
	return &config.Config{
		HistoryWindow:       20,
		MaxSequenceLength:   100000,
		MaxORFPredictions:   5,
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     5 * time.Millisecond,
		Model:               "gemini-2.5-flash",
		MaxSessionAge:       24 * time.Hour,
	}
}

func newTestService(t *testing.T, collabs service.Collaborators) (*service.Service, *store.SQLiteStore) {
	t.Helper()
	st := helpers.NewTestSQLiteStore(t)
	tracker := metrics.NewTracker(st)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.New(st, tracker, testConfig(), collabs, logger), st
}

func offlineCollaborators() service.Collaborators {
	completer, literature, visualizer, reporter := mock.Offline()
	return service.Collaborators{
		Completer:  completer,
		Literature: literature,
		Visualizer: visualizer,
		Reporter:   reporter,
	}
}
