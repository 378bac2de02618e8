package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/codeready-toolchain/dpp-verifier/pkg/challenge"
)

// Stage2Config bundles the tunables Stage 2 needs, mirrored from
// config.DecisionConfig so this package stays decoupled from pkg/config.
type Stage2Config struct {
	Rounds       int
	RoundTimeout time.Duration
	CVThreshold  float64
	MinAccuracy  float64
	UseMock      bool
}

// RunStage2 drives the decision-rounds engine (C5): R rounds of timed,
// chained challenges followed by a post-hoc variance/accuracy gate.
func RunStage2(ctx context.Context, conn Conn, sess *Session, oracle challenge.Oracle, store RoundPersister, cfg Stage2Config) error {
	R := cfg.Rounds
	elapsedTimes := make([]float64, 0, R)
	correctCount := 0
	prevHash := ""

	var stage2Total float64

	for k := 1; k <= R; k++ {
		occCtx := challenge.Context{AgentID: sess.AgentID, History: historyFromResponses(sess.ChallengeResponses)}

		ch, err := oracle.Generate(ctx, occCtx, k, prevHash)
		if err != nil {
			// Generation failures inside Oracle implementations already
			// fall back internally; reaching here means even
			// the fallback failed, which is a stage-level reject.
			return reject(fmt.Sprintf("stage2_generation_failed_round%d", k))
		}

		frame := DecisionChallengeFrame{
			Stage:          2,
			Type:           "decision_challenge",
			Round:          k,
			TotalRounds:    R,
			Prompt:         ch.Prompt,
			Options:        ch.Options,
			PrevAnswerHash: prevHash,
		}
		if cfg.UseMock {
			frame.MockCorrect = ch.CorrectOption
		}

		roundStart := time.Now()
		if err := conn.Send(ctx, frame); err != nil {
			return err
		}

		recvCtx, cancel := context.WithTimeout(ctx, cfg.RoundTimeout)
		raw, err := conn.Recv(recvCtx)
		elapsed := time.Since(roundStart).Seconds()
		cancel()

		if err != nil {
			sess.Timings["stage2"] = elapsed
			if errors.Is(err, context.DeadlineExceeded) {
				return reject(fmt.Sprintf("stage2_timeout_round%d", k))
			}
			if errors.Is(err, ErrConnClosed) {
				return err
			}
			return reject(fmt.Sprintf("stage2_invalid_response_round%d", k))
		}

		answerPayload, err := ParseDecisionAnswer(raw)
		if err != nil {
			sess.Timings["stage2"] = elapsed
			return reject(fmt.Sprintf("stage2_invalid_response_round%d", k))
		}

		correct := oracle.Validate(ch, answerPayload.Answer)
		if correct {
			correctCount++
		}

		sess.ChallengeResponses = append(sess.ChallengeResponses, ChallengeResponseRecord{
			RoundNum: k,
			Answer:   answerPayload.Answer,
			ElapsedS: elapsed,
			Correct:  correct,
			Prompt:   ch.Prompt,
		})

		if store != nil {
			if err := store.InsertChallengeRound(ctx, sess.RowID, k, ch.Prompt, answerPayload.Answer, correct, elapsed); err != nil {
				// Best-effort persistence: log and continue.
				slog.Warn("stage2: persist challenge round failed", "session_id", sess.RowID, "round", k, "error", err)
			}
		}

		elapsedTimes = append(elapsedTimes, elapsed)
		stage2Total += elapsed
		prevHash = answerHash(answerPayload.Answer)
	}

	mean, cv := meanAndCV(elapsedTimes)
	sess.Timings["stage2_mean_s"] = mean
	sess.Timings["stage2_cv"] = cv
	sess.Timings["stage2"] = stage2Total

	if cv > cfg.CVThreshold {
		return reject(fmt.Sprintf("stage2_timing_variance_cv=%.3f", cv))
	}

	required := int(math.Ceil(cfg.MinAccuracy * float64(R)))
	if correctCount < required {
		return reject(fmt.Sprintf("stage2_low_accuracy_%d/%d", correctCount, R))
	}

	sess.StageReached = 2
	return nil
}

// RoundPersister is the subset of store.Store Stage 2 needs for best-effort
// per-round persistence.
type RoundPersister interface {
	InsertChallengeRound(ctx context.Context, sessionID int64, roundNum int, challengeText, responseText string, correct bool, responseTimeS float64) error
}

func answerHash(answer string) string {
	h := sha256.Sum256([]byte(answer))
	return hex.EncodeToString(h[:])[:16]
}

func historyFromResponses(rs []ChallengeResponseRecord) []challenge.HistoryEntry {
	out := make([]challenge.HistoryEntry, 0, len(rs))
	for _, r := range rs {
		out = append(out, challenge.HistoryEntry{
			Round:   r.RoundNum,
			Prompt:  r.Prompt,
			Answer:  r.Answer,
			Correct: r.Correct,
		})
	}
	return out
}
