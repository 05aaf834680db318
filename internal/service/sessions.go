package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/helixlab/bioflow/domain"
)

// CreateSession creates and persists a new session. An empty userID records
// the anonymous marker.
func (s *Service) CreateSession(ctx context.Context, userID string) (*domain.Session, error) {
	if userID == "" {
		userID = domain.AnonymousUser
	}
	now := time.Now()
	session := &domain.Session{
		SessionID:    uuid.New().String(),
		UserID:       userID,
		CreatedAt:    now,
		LastAccessed: now,
		Context:      make(map[string]any),
		Active:       true,
	}
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	s.logger.Info("created session", "session_id", session.SessionID, "user_id", userID)
	return session, nil
}

// GetSession retrieves an active session and refreshes its last-access
// timestamp. Inactive sessions are excluded from lookup.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	return s.touchLocked(ctx, sessionID)
}

// touchLocked loads, touches and persists a session. Caller holds the
// session lock.
func (s *Service) touchLocked(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.loadActiveLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Touch(time.Now())
	if err := s.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return session, nil
}

func (s *Service) loadActiveLocked(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Active {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// GetOrCreateSession returns the session when it exists and is active,
// otherwise creates a new one.
func (s *Service) GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	if sessionID != "" {
		session, err := s.GetSession(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if err != domain.ErrSessionNotFound {
			return nil, err
		}
	}
	return s.CreateSession(ctx, userID)
}

// AppendMessage appends one message to the session history and persists the
// snapshot. Appends are atomic per call: the snapshot is written in full or
// not at all.
func (s *Service) AppendMessage(ctx context.Context, sessionID, role, content string, metadata map[string]string) error {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.loadActiveLocked(ctx, sessionID)
	if err != nil {
		return err
	}
	session.AddMessage(role, content, metadata)
	if err := s.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// SetContext stores a context value on the session.
func (s *Service) SetContext(ctx context.Context, sessionID, key string, value any) error {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.loadActiveLocked(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Context == nil {
		session.Context = make(map[string]any)
	}
	session.Context[key] = value
	session.Touch(time.Now())
	if err := s.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// GetContext returns one context value, or the whole context map when key is
// empty.
func (s *Service) GetContext(ctx context.Context, sessionID, key string) (any, error) {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.loadActiveLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return session.Context, nil
	}
	return session.Context[key], nil
}

// DeleteSession marks a session inactive. The snapshot stays on durable
// storage for audit until a sweep physically removes it.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.loadActiveLocked(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Active = false
	session.Touch(time.Now())
	if err := s.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.logger.Info("deleted session", "session_id", sessionID)
	return nil
}

// SweepExpired physically removes sessions whose last-access timestamp is
// older than maxAge. A session disappearing mid-iteration is skipped, not an
// error. Returns the removed session ids.
func (s *Service) SweepExpired(ctx context.Context, maxAge time.Duration) ([]string, error) {
	ids, err := s.store.ListActiveSessionIDs(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, id := range ids {
		mu := s.sessionLock(id)
		mu.Lock()
		session, err := s.store.GetSession(ctx, id)
		if err != nil || session == nil {
			mu.Unlock()
			continue
		}
		if session.LastAccessed.After(cutoff) {
			mu.Unlock()
			continue
		}
		if err := s.store.DeleteSession(ctx, id); err != nil {
			s.logger.Error("failed to remove expired session", "session_id", id, "error", err)
			mu.Unlock()
			continue
		}
		removed = append(removed, id)
		s.releaseLock(id)
		mu.Unlock()
	}

	if len(removed) > 0 {
		s.logger.Info("swept expired sessions", "count", len(removed))
	}
	return removed, nil
}

// SessionStats aggregates over all active sessions. Sessions disappearing
// mid-iteration are skipped.
func (s *Service) SessionStats(ctx context.Context) (*domain.SessionStats, error) {
	ids, err := s.store.ListActiveSessionIDs(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.SessionStats{}
	dayAgo := time.Now().Add(-24 * time.Hour)
	for _, id := range ids {
		session, err := s.store.GetSession(ctx, id)
		if err != nil || session == nil {
			continue
		}
		stats.TotalSessions++
		stats.TotalMessages += len(session.Messages)
		if session.LastAccessed.After(dayAgo) {
			stats.ActiveToday++
		}
	}
	if stats.TotalSessions > 0 {
		stats.AvgMessagesPerSession = float64(stats.TotalMessages) / float64(stats.TotalSessions)
	}
	return stats, nil
}
