package verifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
)

func defaultStage4Config() Stage4Config {
	return Stage4Config{
		MinHistorySessions: 5,
		Stage1CVThreshold:  0.6,
		MinStage1Samples:   3,
		HourStdThreshold:   3.0,
		MinHourStdSessions: 10,
	}
}

func insertSession(t *testing.T, st store.Store, agentID string, timestamp int64, stage1 float64) {
	t.Helper()
	_, err := st.InsertSession(context.Background(), agentID, 4, timestamp, map[string]any{"stage1": stage1}, true, nil)
	require.NoError(t, err)
}

func TestRunStage4SkipsWithInsufficientHistory(t *testing.T) {
	st := store.NewMemory()
	insertSession(t, st, "agent-1", 1000, 0.05)
	insertSession(t, st, "agent-1", 2000, 0.05)
	insertSession(t, st, "agent-1", 3000, 0.05)

	sess := NewSession("agent-1", nil)
	err := RunStage4(context.Background(), st, sess, defaultStage4Config())

	require.NoError(t, err)
	assert.Equal(t, 4, sess.StageReached)
}

func TestRunStage4HighStage1VarianceRejects(t *testing.T) {
	st := store.NewMemory()
	// Five widely spaced sessions; stage1 timings vary wildly (bot-like low
	// variance would be near-zero, but a human/bot inconsistency test wants
	// a high CV to trip the reject).
	timings := []float64{0.01, 0.01, 0.01, 0.01, 5.0}
	for i, s1 := range timings {
		insertSession(t, st, "agent-2", int64(1000+i*100000), s1)
	}

	sess := NewSession("agent-2", nil)
	err := RunStage4(context.Background(), st, sess, defaultStage4Config())

	var sr *StageReject
	require.ErrorAs(t, err, &sr)
	assert.Contains(t, sr.Reason, "stage1_timing_cv=")
	assert.Contains(t, sr.Reason, "human-like variance")
}

func TestRunStage4ClusteredHoursRejects(t *testing.T) {
	st := store.NewMemory()
	const dayOffsetSeconds = 86400
	// Ten sessions, one per day, each at the same hour-of-day (low jitter) so
	// hour_std stays well under the 3.0 threshold; stage1 timings are nearly
	// identical so the stage1 CV gate doesn't trip first.
	for i := 0; i < 10; i++ {
		ts := int64(1_700_000_000) + int64(i)*dayOffsetSeconds + int64(i%3)
		insertSession(t, st, "agent-3", ts, 0.05)
	}

	sess := NewSession("agent-3", nil)
	err := RunStage4(context.Background(), st, sess, defaultStage4Config())

	var sr *StageReject
	require.ErrorAs(t, err, &sr)
	assert.Contains(t, sr.Reason, "stage4_inconsistent: hour_std=")
}

func TestRunStage4InsufficientIntervalsPassesWithReason(t *testing.T) {
	// A fetch error path aside, five rows sharing one timestamp still
	// produces a defined (zero) interval set, not an empty one; to exercise
	// the "insufficient_intervals" branch we'd need FetchSessionsByAgent to
	// return exactly one row despite MinHistorySessions<=1. Covered at the
	// unit level by calling RunStage4 with a single-row fetcher directly.
	fetcher := singleRowFetcher{row: store.SessionRow{AgentID: "agent-4", Timestamp: 1000}}
	sess := NewSession("agent-4", nil)
	cfg := Stage4Config{MinHistorySessions: 1, Stage1CVThreshold: 0.6, MinStage1Samples: 3, HourStdThreshold: 3.0, MinHourStdSessions: 10}

	err := RunStage4(context.Background(), fetcher, sess, cfg)

	require.NoError(t, err)
	assert.Equal(t, 4, sess.StageReached)
	stats, ok := sess.Timings["stage4"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "insufficient_intervals", stats["reason"])
}

type singleRowFetcher struct {
	row store.SessionRow
}

func (f singleRowFetcher) FetchSessionsByAgent(_ context.Context, _ string) ([]store.SessionRow, error) {
	return []store.SessionRow{f.row}, nil
}
