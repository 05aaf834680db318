// Package store defines the durable storage interface for sessions and
// execution records.
package store

import (
	"context"
	"time"

	"github.com/helixlab/bioflow/domain"
)

// Store is the durable storage used by the engine. Sessions are persisted as
// full snapshots keyed by session id; execution records are append-only and
// keyed by execution id.
type Store interface {
	// SaveSession writes the full session snapshot, replacing any previous
	// snapshot for the same id (last writer wins).
	SaveSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session snapshot by id. Returns (nil, nil)
	// when no snapshot exists.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListActiveSessionIDs returns the ids of all sessions not marked
	// inactive, in creation order.
	ListActiveSessionIDs(ctx context.Context) ([]string, error)

	// DeleteSession physically removes a session snapshot.
	DeleteSession(ctx context.Context, sessionID string) error

	// SaveExecution appends a finalized execution record.
	SaveExecution(ctx context.Context, rec *domain.ExecutionRecord) error

	// ListExecutions returns finalized records started at or after since.
	// A zero since returns all records.
	ListExecutions(ctx context.Context, since time.Time) ([]domain.ExecutionRecord, error)

	Close() error
}
