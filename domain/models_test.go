package domain

import (
	"testing"
	"time"
)

func TestSessionTouchNeverMovesBackwards(t *testing.T) {
	now := time.Now()
	s := &Session{LastAccessed: now}

	s.Touch(now.Add(-time.Hour))
	if !s.LastAccessed.Equal(now) {
		t.Fatalf("Touch moved last_accessed backwards: %v", s.LastAccessed)
	}

	later := now.Add(time.Minute)
	s.Touch(later)
	if !s.LastAccessed.Equal(later) {
		t.Fatalf("Touch did not advance last_accessed: %v", s.LastAccessed)
	}
}

func TestRecentMessages(t *testing.T) {
	s := &Session{}
	for _, content := range []string{"a", "b", "c", "d"} {
		s.AddMessage(RoleUser, content, nil)
	}

	recent := s.RecentMessages(2)
	if len(recent) != 2 || recent[0].Content != "c" || recent[1].Content != "d" {
		t.Fatalf("unexpected window: %+v", recent)
	}
	if got := s.RecentMessages(10); len(got) != 4 {
		t.Fatalf("expected full history, got %d", len(got))
	}
	if got := s.RecentMessages(0); len(got) != 4 {
		t.Fatalf("expected full history for n<=0, got %d", len(got))
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	for _, s := range []RunStatus{RunStatusCompleted, RunStatusFailed} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []RunStatus{RunStatusStarted, RunStatusAnalyzing, RunStatusSkippedNoORF, RunStatusReporting} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
