package verifier

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
)

// Stage4Config bundles Stage 4's tunables.
type Stage4Config struct {
	MinHistorySessions int
	Stage1CVThreshold  float64
	MinStage1Samples   int
	HourStdThreshold   float64
	MinHourStdSessions int
}

// HistoryFetcher is the subset of store.Store Stage 4 needs.
type HistoryFetcher interface {
	FetchSessionsByAgent(ctx context.Context, agentID string) ([]store.SessionRow, error)
}

// RunStage4 drives the cross-session statistical consistency analyzer (C7).
func RunStage4(ctx context.Context, st HistoryFetcher, sess *Session, cfg Stage4Config) error {
	start := time.Now()
	rows, err := st.FetchSessionsByAgent(ctx, sess.AgentID)
	sess.Timings["stage4_fetch_s"] = time.Since(start).Seconds()
	if err != nil {
		return err
	}

	if len(rows) < cfg.MinHistorySessions {
		sess.StageReached = 4
		return nil
	}

	stats := map[string]any{}

	timestamps := make([]float64, 0, len(rows))
	for _, r := range rows {
		timestamps = append(timestamps, float64(r.Timestamp))
	}

	intervals := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		intervals = append(intervals, timestamps[i]-timestamps[i-1])
	}

	if len(intervals) == 0 {
		stats["reason"] = "insufficient_intervals"
		sess.Timings["stage4"] = stats
		sess.StageReached = 4
		return nil
	}

	intervalMean, intervalCV := meanAndCV(intervals)
	stats["interval_mean"] = intervalMean
	stats["interval_cv"] = intervalCV

	stage1Times := make([]float64, 0, len(rows))
	for _, r := range rows {
		if v, ok := r.Timings["stage1"]; ok {
			if f, ok := toFloat(v); ok {
				stage1Times = append(stage1Times, f)
			}
		}
	}

	if len(stage1Times) >= cfg.MinStage1Samples {
		_, stage1CV := meanAndCV(stage1Times)
		stats["stage1_timing_cv"] = stage1CV
		if stage1CV > cfg.Stage1CVThreshold {
			sess.Timings["stage4"] = stats
			return reject(fmt.Sprintf("stage4_inconsistent: stage1_timing_cv=%.3f > %.1f (human-like variance)", stage1CV, cfg.Stage1CVThreshold))
		}
	}

	hours := make([]float64, 0, len(rows))
	for _, ts := range timestamps {
		hours = append(hours, mod(ts, 86400)/3600)
	}
	hourStd := populationStd(hours)
	stats["hour_std"] = hourStd

	if len(rows) >= cfg.MinHourStdSessions && hourStd < cfg.HourStdThreshold {
		sess.Timings["stage4"] = stats
		return reject(fmt.Sprintf("stage4_inconsistent: hour_std=%.3f < %.1f (sessions clustered in short window)", hourStd, cfg.HourStdThreshold))
	}

	sess.Timings["stage4"] = stats
	sess.StageReached = 4
	return nil
}

func mod(a, b float64) float64 {
	m := a - float64(int64(a/b))*b
	if m < 0 {
		m += b
	}
	return m
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
