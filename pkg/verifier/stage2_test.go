package verifier

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dpp-verifier/pkg/challenge"
	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
)

func TestRunStage2Accept(t *testing.T) {
	sess := NewSession("agent-1", nil)
	sess.RowID = 1
	oracle := challenge.NewStatic()
	st := store.NewMemory()
	cfg := Stage2Config{Rounds: 3, RoundTimeout: time.Second, CVThreshold: 0.8, MinAccuracy: 0.7, UseMock: true}

	conn := &fakeConn{Inbox: []map[string]any{
		{"answer": "A"},
		{"answer": "A"},
		{"answer": "A"},
	}}

	err := RunStage2(context.Background(), conn, sess, oracle, st, cfg)

	require.NoError(t, err)
	assert.Equal(t, 2, sess.StageReached)
	assert.Len(t, sess.ChallengeResponses, 3)
	assert.Contains(t, sess.Timings, "stage2_cv")

	for _, frame := range conn.Sent {
		assert.Equal(t, "A", frame["mock_correct"])
	}

	rounds, err := st.FetchChallengeHistory(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rounds, 3)
}

func TestRunStage2LowAccuracy(t *testing.T) {
	sess := NewSession("agent-1", nil)
	oracle := challenge.NewStatic()
	cfg := Stage2Config{Rounds: 3, RoundTimeout: time.Second, CVThreshold: 0.8, MinAccuracy: 0.7}

	conn := &fakeConn{Inbox: []map[string]any{
		{"answer": "A"},
		{"answer": "B"},
		{"answer": "B"},
	}}

	err := RunStage2(context.Background(), conn, sess, oracle, nil, cfg)

	var sr *StageReject
	require.ErrorAs(t, err, &sr)
	assert.Equal(t, "stage2_low_accuracy_1/3", sr.Reason)
}

func TestRunStage2TimeoutRound(t *testing.T) {
	sess := NewSession("agent-1", nil)
	oracle := challenge.NewStatic()
	cfg := Stage2Config{Rounds: 2, RoundTimeout: time.Millisecond, CVThreshold: 0.8, MinAccuracy: 0.7}

	conn := withRecvErr(&fakeConn{}, context.DeadlineExceeded)

	err := RunStage2(context.Background(), conn, sess, oracle, nil, cfg)

	var sr *StageReject
	require.ErrorAs(t, err, &sr)
	assert.Equal(t, "stage2_timeout_round1", sr.Reason)
}

func TestRunStage2InvalidResponseRound(t *testing.T) {
	sess := NewSession("agent-1", nil)
	oracle := challenge.NewStatic()
	cfg := Stage2Config{Rounds: 2, RoundTimeout: time.Second, CVThreshold: 0.8, MinAccuracy: 0.7}

	conn := &fakeConn{Inbox: []map[string]any{{"not_answer": "x"}}}

	err := RunStage2(context.Background(), conn, sess, oracle, nil, cfg)

	var sr *StageReject
	require.ErrorAs(t, err, &sr)
	assert.Equal(t, "stage2_invalid_response_round1", sr.Reason)
}

func TestRunStage2PeerDisconnectIsFatalNotReject(t *testing.T) {
	sess := NewSession("agent-1", nil)
	oracle := challenge.NewStatic()
	cfg := Stage2Config{Rounds: 2, RoundTimeout: time.Second, CVThreshold: 0.8, MinAccuracy: 0.7}

	conn := withRecvErr(&fakeConn{}, fmt.Errorf("%w: websocket closed", ErrConnClosed))

	err := RunStage2(context.Background(), conn, sess, oracle, nil, cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnClosed))
	var sr *StageReject
	assert.False(t, errors.As(err, &sr), "a genuine disconnect must not be folded into a business reject reason")
}

func TestAnswerHashDeterministic(t *testing.T) {
	h1 := answerHash("A")
	h2 := answerHash("A")
	h3 := answerHash("B")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 16)
}
