package verifier

import (
	"context"
	"encoding/json"
)

// fakeConn is a scripted in-memory Conn for tests: Sent records every
// outbound frame (re-marshaled to a generic map for easy assertions), and
// Inbox is drained in order by Recv.
type fakeConn struct {
	Sent     []map[string]any
	Inbox    []map[string]any
	recvErrs []error // optional per-call errors, consumed in order
}

func (f *fakeConn) Send(_ context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	f.Sent = append(f.Sent, m)
	return nil
}

func (f *fakeConn) Recv(ctx context.Context) (RawFrame, error) {
	if len(f.recvErrs) > 0 {
		err := f.recvErrs[0]
		f.recvErrs = f.recvErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.Inbox) == 0 {
		return nil, context.DeadlineExceeded
	}
	next := f.Inbox[0]
	f.Inbox = f.Inbox[1:]

	b, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	return DecodeRawFrame(b)
}

func withRecvErr(f *fakeConn, errs ...error) *fakeConn {
	f.recvErrs = errs
	return f
}
