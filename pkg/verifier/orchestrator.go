// Package verifier implements the Decision-Proof Protocol's hard
// engineering core: the four-stage verification state machine (C4-C8),
// driven by a connection adapter (C9, pkg/transport) over one duplex
// channel per session.
package verifier

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/dpp-verifier/pkg/challenge"
	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
	"github.com/codeready-toolchain/dpp-verifier/pkg/token"
)

// Config bundles every stage's tunables, assembled once at startup from
// config.Config (see cmd/dppverifier/main.go). The token TTL is not part of
// it; it lives in the token.Signer.
type Config struct {
	PoWDifficulty int
	PoWTimeout    time.Duration
	Stage2        Stage2Config
	Stage3        Stage3Config
	Stage4        Stage4Config
}

// Orchestrator drives the four stages in sequence for one session (C8). It
// holds only its collaborators, never any per-session state — that lives
// entirely in the Session value passed to Run, matching a
// one-cancellable-task-per-connection model.
type Orchestrator struct {
	Store  store.Store
	Oracle challenge.Oracle
	Signer *token.Signer
	Config Config
}

// NewOrchestrator wires an Orchestrator from its collaborators.
func NewOrchestrator(st store.Store, oracle challenge.Oracle, signer *token.Signer, cfg Config) *Orchestrator {
	return &Orchestrator{Store: st, Oracle: oracle, Signer: signer, Config: cfg}
}

// Run executes the full DPP state machine for one connection:
// START -> S1 -> S2 -> S3 -> S4 -> ACCEPT, with any stage able to reject.
// agentIDHint is the caller-supplied agent_id (query parameter), or "" to
// mint a fresh UUIDv4.
func (o *Orchestrator) Run(ctx context.Context, conn Conn, agentIDHint string) error {
	agentID := agentIDHint
	if agentID == "" {
		agentID = uuid.NewString()
	}

	nonce, err := randomNonce(16)
	if err != nil {
		return o.fatal(ctx, conn, fmt.Errorf("generate nonce: %w", err))
	}

	sess := NewSession(agentID, nonce)
	timestamp := time.Now().Unix()

	inProgress := store.RejectReasonInProgress
	rowID, err := o.Store.InsertSession(ctx, agentID, 0, timestamp, sess.Timings, false, &inProgress)
	if err != nil {
		return o.fatal(ctx, conn, fmt.Errorf("pre-insert session row: %w", err))
	}
	sess.RowID = rowID

	var stagesPassed []int

	stages := []func() error{
		func() error { return RunStage1(ctx, conn, sess, o.Config.PoWDifficulty, o.Config.PoWTimeout) },
		func() error { return RunStage2(ctx, conn, sess, o.Oracle, o.Store, o.Config.Stage2) },
		func() error { return RunStage3(ctx, conn, sess, o.Config.Stage3) },
		func() error { return RunStage4(ctx, o.Store, sess, o.Config.Stage4) },
	}

	for i, stage := range stages {
		if err := stage(); err != nil {
			var sr *StageReject
			if errors.As(err, &sr) {
				return o.handleReject(ctx, conn, sess, sr.Reason)
			}
			// Fatal: peer disconnect, codec failure, or another non-reject
			// error. Log, best-effort notify, leave the row in its
			// last-updated state, and exit.
			return o.fatal(ctx, conn, err)
		}
		stagesPassed = append(stagesPassed, i+1)
	}

	tok, err := o.Signer.Sign(agentID, stagesPassed)
	if err != nil {
		return o.fatal(ctx, conn, fmt.Errorf("sign token: %w", err))
	}

	// The session row is finalized before the ACCEPT frame is sent, so the
	// token is only ever emitted once passed=true is durable in storage.
	if err := o.Store.UpdateSession(ctx, sess.RowID, 4, sess.Timings, true, nil); err != nil {
		return o.fatal(ctx, conn, fmt.Errorf("finalize session row: %w", err))
	}

	if err := conn.Send(ctx, NewAcceptFrame(tok, stagesPassed)); err != nil {
		slog.Warn("orchestrator: send accept frame failed", "agent_id", agentID, "session_id", sess.RowID, "error", err)
	}

	return nil
}

// handleReject sends the REJECT frame before the final DB update, so the
// peer learns the verdict promptly even if the update is slow, then
// finalizes the row.
func (o *Orchestrator) handleReject(ctx context.Context, conn Conn, sess *Session, reason string) error {
	if err := conn.Send(ctx, NewRejectFrame(reason)); err != nil {
		slog.Warn("orchestrator: send reject frame failed", "agent_id", sess.AgentID, "session_id", sess.RowID, "error", err)
	}

	if err := o.Store.UpdateSession(ctx, sess.RowID, sess.StageReached, sess.Timings, false, &reason); err != nil {
		slog.Error("orchestrator: finalize rejected session row failed", "agent_id", sess.AgentID, "session_id", sess.RowID, "error", err)
		return fmt.Errorf("finalize rejected session row: %w", err)
	}

	return nil
}

// fatal handles the tier-4 error-taxonomy path: log, best-effort emit an
// error frame if the channel is still writable, and exit. The session row
// is intentionally left as-is — a disconnected peer may mean the channel
// can't even carry an error frame, so the row remains in its
// last-updated state in that case. pkg/reaper later reclaims rows stuck at
// "in_progress".
func (o *Orchestrator) fatal(ctx context.Context, conn Conn, cause error) error {
	slog.Error("orchestrator: session terminated abnormally", "error", cause)

	if conn != nil {
		sendCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Send(sendCtx, NewErrorFrame(cause.Error()))
	}

	return fmt.Errorf("%w: %v", ErrPeerDisconnected, cause)
}

func randomNonce(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
