package verifier

import "errors"

// ErrPeerDisconnected signals a silent channel close mid-protocol: the
// orchestrator terminates without sending a result frame and leaves the
// session row in its last-updated state.
var ErrPeerDisconnected = errors.New("peer disconnected")

// ErrConnClosed is returned by Conn.Recv when the underlying transport
// closed or failed outright, as opposed to a decoded-but-invalid frame.
// Stages route it straight to the orchestrator's fatal path rather than
// folding it into a business-level StageReject.
var ErrConnClosed = errors.New("connection closed")

// StageReject carries a stage's reject reason up to the orchestrator. It is
// not a Go error in the exceptional sense — every stage returns one of
// these on the ordinary "gate failed" path — but implementing the error
// interface lets stage functions return (Outcome, error) uniformly.
type StageReject struct {
	Reason string
}

func (s *StageReject) Error() string { return s.Reason }

// reject is a small constructor used throughout the stage files.
func reject(reason string) error {
	return &StageReject{Reason: reason}
}
