// Package transport is the connection adapter (C9): it upgrades an HTTP
// request to a WebSocket, wraps it as a verifier.Conn, and hands the
// connection to the orchestrator for the lifetime of one verification
// session. Adapted from tarsy's pkg/events.ConnectionManager, stripped down
// to this protocol's shape — there's no pub/sub, no channel subscriptions,
// no catchup; one connection drives exactly one orchestrator.Run call
// start to finish.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/dpp-verifier/pkg/pool"
	"github.com/codeready-toolchain/dpp-verifier/pkg/verifier"
)

// wsConn adapts a *websocket.Conn to verifier.Conn.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (w *wsConn) Send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	sendCtx := ctx
	if w.writeTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, w.writeTimeout)
		defer cancel()
	}
	return w.conn.Write(sendCtx, websocket.MessageText, data)
}

func (w *wsConn) Recv(ctx context.Context) (verifier.RawFrame, error) {
	_, data, err := w.conn.Read(ctx)
	if err != nil {
		// A context deadline surfaces as-is so stages can tell a
		// per-stage timeout apart from a genuine transport failure; any
		// other error here means the socket itself closed or broke
		// (peer hangup, network reset, protocol close frame), which is
		// a fatal disconnect, not a decodable-but-invalid frame.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", verifier.ErrConnClosed, err)
	}
	return verifier.DecodeRawFrame(data)
}

// Handler returns an Echo handler that upgrades the request to a WebSocket
// and drives one verification session on it. pool bounds how many sessions
// run concurrently; writeTimeout bounds every outbound frame write.
func Handler(orch *verifier.Orchestrator, p *pool.Pool, writeTimeout time.Duration) echo.HandlerFunc {
	return func(c *echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return err
		}

		agentIDHint := c.Request().URL.Query().Get("agent_id")

		ctx, cancel := context.WithCancel(c.Request().Context())
		defer cancel()

		release, err := p.Acquire(ctx)
		if err != nil {
			_ = conn.Close(websocket.StatusTryAgainLater, "pool saturated")
			return echo.NewHTTPError(http.StatusServiceUnavailable, "verification pool saturated")
		}
		defer release()

		sessionKey := agentIDHint
		if sessionKey == "" {
			sessionKey = fmt.Sprintf("%p", conn)
		}
		p.Register(sessionKey, cancel)
		defer p.Unregister(sessionKey)

		adapted := &wsConn{conn: conn, writeTimeout: writeTimeout}

		if err := orch.Run(ctx, adapted, agentIDHint); err != nil {
			slog.Warn("transport: session ended abnormally", "error", err)
		}

		_ = conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}
}
