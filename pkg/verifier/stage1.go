package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// RunStage1 drives the proof-of-work gate (C4). Contract:
// send a pow_challenge frame, await one response within timeout, accept iff
// SHA256(nonce || utf8(solution)) in lowercase hex begins with difficulty
// '0' characters.
func RunStage1(ctx context.Context, conn Conn, sess *Session, difficulty int, timeout time.Duration) error {
	start := time.Now()

	frame := NewPoWChallengeFrame(hex.EncodeToString(sess.Nonce), difficulty, timeout.Milliseconds())
	if err := conn.Send(ctx, frame); err != nil {
		return err
	}

	recvCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := conn.Recv(recvCtx)
	elapsed := time.Since(start).Seconds()
	sess.Timings["stage1"] = elapsed

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return reject("stage1_timeout")
		}
		if errors.Is(err, ErrConnClosed) {
			return err
		}
		return reject("stage1_invalid_solution")
	}

	payload, err := ParsePoWSolution(raw)
	if err != nil {
		return reject("stage1_invalid_solution")
	}

	if !VerifyPoW(sess.Nonce, payload.Solution, difficulty) {
		return reject("stage1_invalid_solution")
	}

	sess.StageReached = 1
	return nil
}

// VerifyPoW reports whether solution solves the proof-of-work puzzle for
// nonce at the given difficulty: SHA256(nonce || utf8(solution)) in
// lowercase hex must begin with `difficulty` '0' characters. Difficulty 0
// accepts any solution (difficulty-0 boundary case).
func VerifyPoW(nonce []byte, solution string, difficulty int) bool {
	h := sha256.New()
	h.Write(nonce)
	h.Write([]byte(solution))
	digest := hex.EncodeToString(h.Sum(nil))

	if difficulty <= 0 {
		return true
	}
	if difficulty > len(digest) {
		return false
	}
	return strings.Count(digest[:difficulty], "0") == difficulty
}
