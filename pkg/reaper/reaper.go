// Package reaper reclaims session rows abandoned mid-protocol: a peer that
// disconnects during verification leaves its row at reject_reason
// "in_progress" forever unless something finalizes it.
// The ticker-driven scan loop is adapted from tarsy's pkg/queue orphan
// detector, trimmed to this protocol's single-table, single-writer model —
// there is no per-pod ownership or worker registry to reconcile against.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
)

// ReasonOrphaned is the terminal reject_reason recorded for a reclaimed row.
const ReasonOrphaned = "orphaned_connection_closed"

// Config bundles the reaper's tunables.
type Config struct {
	Interval  time.Duration
	Threshold time.Duration
}

// state tracks scan metrics (thread-safe), mirrored from tarsy's orphanState.
type state struct {
	mu            sync.Mutex
	lastScan      time.Time
	totalReclaimed int
}

// Reaper periodically scans the store for stale in_progress sessions and
// finalizes them as rejected.
type Reaper struct {
	store  store.Store
	cfg    Config
	cancel context.CancelFunc
	done   chan struct{}
	state  state
}

// New returns a Reaper bound to st using cfg's interval and threshold.
func New(st store.Store, cfg Config) *Reaper {
	return &Reaper{store: st, cfg: cfg}
}

// Start launches the background scan loop. Safe to call once; a second call
// is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)

	slog.Info("reaper started", "interval", r.cfg.Interval, "threshold", r.cfg.Threshold)
}

// Stop signals the scan loop to exit and waits for it to finish.
func (r *Reaper) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	slog.Info("reaper stopped")
}

func (r *Reaper) run(ctx context.Context) {
	defer close(r.done)

	r.scan(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.scan(ctx)
		}
	}
}

func (r *Reaper) scan(ctx context.Context) {
	cutoff := time.Now().Add(-r.cfg.Threshold).Unix()

	rows, err := r.store.FetchStaleInProgressSessions(ctx, cutoff)
	if err != nil {
		slog.Error("reaper: scan failed", "error", err)
		return
	}

	r.state.mu.Lock()
	r.state.lastScan = time.Now()
	r.state.mu.Unlock()

	if len(rows) == 0 {
		return
	}

	slog.Warn("reaper: found orphaned sessions", "count", len(rows))

	reclaimed := 0
	for _, row := range rows {
		if err := r.reclaim(ctx, row); err != nil {
			slog.Error("reaper: failed to reclaim session", "session_id", row.ID, "error", err)
			continue
		}
		reclaimed++
	}

	r.state.mu.Lock()
	r.state.totalReclaimed += reclaimed
	r.state.mu.Unlock()
}

func (r *Reaper) reclaim(ctx context.Context, row store.SessionRow) error {
	reason := ReasonOrphaned
	if err := r.store.UpdateSession(ctx, row.ID, row.StageReached, row.Timings, false, &reason); err != nil {
		return fmt.Errorf("finalize orphaned session %d: %w", row.ID, err)
	}
	slog.Warn("reaper: session reclaimed", "session_id", row.ID, "agent_id", row.AgentID, "stage_reached", row.StageReached)
	return nil
}

// Stats reports the reaper's last scan time and lifetime reclaim count.
type Stats struct {
	LastScan  time.Time
	Reclaimed int
}

// Stats returns a snapshot of the reaper's scan metrics.
func (r *Reaper) Stats() Stats {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	return Stats{LastScan: r.state.lastScan, Reclaimed: r.state.totalReclaimed}
}
