package verifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// interactiveShells is the lowercase set of shell process names that
// indicate a human-driven terminal (check 5 of the environment attestation).
var interactiveShells = map[string]bool{
	"bash": true, "zsh": true, "sh": true, "fish": true,
	"cmd": true, "powershell": true, "pwsh": true,
}

// Stage3Config bundles Stage 3's tunables.
type Stage3Config struct {
	Timeout   time.Duration
	MinChecks int
}

// RunStage3 drives the one-shot environment attestation (C6): five
// independent checks, majority-rule scoring.
func RunStage3(ctx context.Context, conn Conn, sess *Session, cfg Stage3Config) error {
	start := time.Now()

	if err := conn.Send(ctx, NewEnvRequestFrame()); err != nil {
		return err
	}

	recvCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	raw, err := conn.Recv(recvCtx)
	elapsed := time.Since(start).Seconds()
	sess.Timings["stage3"] = elapsed

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return reject("stage3_timeout")
		}
		if errors.Is(err, ErrConnClosed) {
			return err
		}
		return reject("stage3_invalid_response")
	}

	env, err := ParseEnvPayload(raw)
	if err != nil {
		return reject("stage3_invalid_response")
	}

	sess.EnvData = envToMap(env)

	failed := evaluateEnvChecks(env)
	score := 5 - len(failed)

	if score < cfg.MinChecks {
		return reject(fmt.Sprintf("stage3_env_checks_failed=%s", strings.Join(failed, ",")))
	}

	sess.StageReached = 3
	return nil
}

// evaluateEnvChecks runs the five independent environment-attestation checks
// and returns the names of the ones that failed, in check order.
func evaluateEnvChecks(env EnvPayload) []string {
	var failed []string

	if env.HasTTY == nil || *env.HasTTY != false {
		failed = append(failed, "has_tty")
	}
	if env.DisplaySet != nil && *env.DisplaySet {
		failed = append(failed, "display_set")
	}
	if env.UptimeSeconds == nil || *env.UptimeSeconds < 0 {
		failed = append(failed, "uptime_seconds")
	}
	if env.OpenConnections == nil || *env.OpenConnections < 0 || *env.OpenConnections != float64(int64(*env.OpenConnections)) {
		failed = append(failed, "open_connections")
	}
	if env.ParentProcess == nil || strings.TrimSpace(*env.ParentProcess) == "" || interactiveShells[strings.ToLower(*env.ParentProcess)] {
		failed = append(failed, "parent_process")
	}

	return failed
}

func envToMap(env EnvPayload) map[string]any {
	m := map[string]any{}
	if env.HasTTY != nil {
		m["has_tty"] = *env.HasTTY
	}
	if env.DisplaySet != nil {
		m["display_set"] = *env.DisplaySet
	}
	if env.UptimeSeconds != nil {
		m["uptime_seconds"] = *env.UptimeSeconds
	}
	if env.OpenConnections != nil {
		m["open_connections"] = *env.OpenConnections
	}
	if env.ParentProcess != nil {
		m["parent_process"] = *env.ParentProcess
	}
	return m
}
