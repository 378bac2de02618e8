package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by unit tests and by the orchestrator's
// own test suite. It serializes all writes behind a single mutex, which
// satisfies the Store contract's single-exclusive-writer-serialization
// allowance.
type Memory struct {
	mu          sync.Mutex
	nextID      int64
	sessions    map[int64]SessionRow
	roundsBySes map[int64][]ChallengeRoundRow
}

// NewMemory returns an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		sessions:    make(map[int64]SessionRow),
		roundsBySes: make(map[int64][]ChallengeRoundRow),
	}
}

func (m *Memory) InsertSession(_ context.Context, agentID string, stageReached int, timestamp int64, timings map[string]any, passed bool, rejectReason *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.sessions[id] = SessionRow{
		ID:           id,
		AgentID:      agentID,
		StageReached: stageReached,
		Timestamp:    timestamp,
		Timings:      cloneTimings(timings),
		Passed:       passed,
		RejectReason: clonePtr(rejectReason),
	}
	return id, nil
}

func (m *Memory) UpdateSession(_ context.Context, id int64, stageReached int, timings map[string]any, passed bool, rejectReason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[id]
	if !ok {
		return nil
	}
	row.StageReached = stageReached
	row.Timings = cloneTimings(timings)
	row.Passed = passed
	row.RejectReason = clonePtr(rejectReason)
	m.sessions[id] = row
	return nil
}

func (m *Memory) InsertChallengeRound(_ context.Context, sessionID int64, roundNum int, challengeText, responseText string, correct bool, responseTimeS float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roundsBySes[sessionID] = append(m.roundsBySes[sessionID], ChallengeRoundRow{
		SessionID:     sessionID,
		RoundNum:      roundNum,
		ChallengeText: challengeText,
		ResponseText:  responseText,
		Correct:       correct,
		ResponseTimeS: responseTimeS,
	})
	return nil
}

func (m *Memory) FetchSessionsByAgent(_ context.Context, agentID string) ([]SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SessionRow
	for _, row := range m.sessions {
		if row.AgentID == agentID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (m *Memory) FetchChallengeHistory(_ context.Context, sessionID int64) ([]ChallengeRoundRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rounds := append([]ChallengeRoundRow(nil), m.roundsBySes[sessionID]...)
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].RoundNum < rounds[j].RoundNum })
	return rounds, nil
}

func (m *Memory) FetchStaleInProgressSessions(_ context.Context, cutoff int64) ([]SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SessionRow
	for _, row := range m.sessions {
		if row.RejectReason != nil && *row.RejectReason == RejectReasonInProgress && row.Timestamp < cutoff {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func cloneTimings(t map[string]any) map[string]any {
	if t == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
