package verifier

import "context"

// Conn is the duplex channel the orchestrator (C8) is handed by the
// connection adapter (C9). The core only ever consumes send(frame) and
// recv() -> frame — transport framing itself (WebSocket, or anything else)
// is an external collaborator that pkg/transport supplies.
type Conn interface {
	// Send encodes v as JSON and writes one frame.
	Send(ctx context.Context, v any) error

	// Recv blocks for one inbound frame or until ctx is done. A context
	// deadline exceeded here is how each stage enforces its own timeout.
	Recv(ctx context.Context) (RawFrame, error)
}
