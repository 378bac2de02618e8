//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestPostgres spins up a disposable Postgres container, the same way
// tarsy's test/database/client.go does for its Ent-backed test client, and
// returns a Store wired to it.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("dpp_verifier_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := NewPostgres(ctx, PostgresConfig{
		DSN:             dsn,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestPostgresSessionLifecycle(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	id, err := s.InsertSession(ctx, "agent-x", 0, 1000, map[string]any{}, false, strPtr(RejectReasonInProgress))
	require.NoError(t, err)

	require.NoError(t, s.UpdateSession(ctx, id, 4, map[string]any{"stage1": 0.01}, true, nil))

	rows, err := s.FetchSessionsByAgent(ctx, "agent-x")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Passed)
	require.Nil(t, rows[0].RejectReason)

	require.NoError(t, s.InsertChallengeRound(ctx, id, 1, "q", "a", true, 0.2))
	history, err := s.FetchChallengeHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
}
