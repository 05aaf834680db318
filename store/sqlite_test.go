package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixlab/bioflow/domain"
	"github.com/helixlab/bioflow/tests/helpers"
)

func TestSessionSnapshotRoundTrip(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	session := &domain.Session{
		SessionID:    "sess-1",
		UserID:       "alice",
		CreatedAt:    now,
		LastAccessed: now,
		Active:       true,
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "analyze ATGAAATAA", CreatedAt: now},
			{Role: domain.RoleAssistant, Content: "done", CreatedAt: now,
				Metadata: map[string]string{"run_id": "run_abc"}},
		},
		Context: map[string]any{
			"last_sequence": "ATGAAATAA",
			"last_gc":       33.3,
		},
	}

	require.NoError(t, st.SaveSession(ctx, session))

	got, err := st.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, session.SessionID, got.SessionID)
	assert.Equal(t, session.UserID, got.UserID)
	assert.True(t, got.Active)
	assert.True(t, got.CreatedAt.Equal(session.CreatedAt))
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "analyze ATGAAATAA", got.Messages[0].Content)
	assert.Equal(t, "run_abc", got.Messages[1].Metadata["run_id"])
	assert.Equal(t, "ATGAAATAA", got.Context["last_sequence"])
	assert.Equal(t, 33.3, got.Context["last_gc"])
}

func TestGetSessionMissing(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)

	got, err := st.GetSession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveSessionOverwrites(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()

	session := &domain.Session{
		SessionID: "sess-1", UserID: domain.AnonymousUser,
		CreatedAt: time.Now(), LastAccessed: time.Now(), Active: true,
	}
	require.NoError(t, st.SaveSession(ctx, session))

	session.AddMessage(domain.RoleUser, "hello", nil)
	session.Active = false
	require.NoError(t, st.SaveSession(ctx, session))

	got, err := st.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Messages, 1)
	assert.False(t, got.Active)
}

func TestListActiveSessionIDs(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, tc := range []struct {
		id     string
		active bool
	}{
		{"a", true}, {"b", false}, {"c", true},
	} {
		require.NoError(t, st.SaveSession(ctx, &domain.Session{
			SessionID: tc.id, UserID: domain.AnonymousUser,
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
			LastAccessed: base,
			Active:       tc.active,
		}))
	}

	ids, err := st.ListActiveSessionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestDeleteSession(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveSession(ctx, &domain.Session{
		SessionID: "gone", UserID: domain.AnonymousUser,
		CreatedAt: time.Now(), LastAccessed: time.Now(), Active: true,
	}))
	require.NoError(t, st.DeleteSession(ctx, "gone"))

	got, err := st.GetSession(ctx, "gone")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting a missing session is not an error.
	require.NoError(t, st.DeleteSession(ctx, "gone"))
}

func TestExecutionsRoundTripAndWindow(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.SaveExecution(ctx, &domain.ExecutionRecord{
			ExecutionID:     string(rune('a' + i)),
			Stage:           "analysis",
			StartedAt:       started,
			EndedAt:         started.Add(time.Second),
			DurationSeconds: 1.0,
			TokensIn:        100,
			TokensOut:       50,
			TokensTotal:     150,
			Model:           "gemini-2.5-flash",
			CostUSD:         0.000155,
			Success:         i != 1,
			ToolCalls:       []string{"analyze_sequence"},
		}))
	}

	all, err := st.ListExecutions(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ExecutionID)
	assert.Equal(t, 150, all[0].TokensTotal)
	assert.Equal(t, 0.000155, all[0].CostUSD)
	assert.False(t, all[1].Success)
	assert.Equal(t, []string{"analyze_sequence"}, all[0].ToolCalls)

	recent, err := st.ListExecutions(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "c", recent[0].ExecutionID)
}
