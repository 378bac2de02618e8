package transport

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dpp-verifier/pkg/challenge"
	"github.com/codeready-toolchain/dpp-verifier/pkg/pool"
	"github.com/codeready-toolchain/dpp-verifier/pkg/store"
	"github.com/codeready-toolchain/dpp-verifier/pkg/token"
	"github.com/codeready-toolchain/dpp-verifier/pkg/verifier"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st := store.NewMemory()
	signer := token.NewSigner("test-secret", time.Hour)
	oracle := challenge.NewStatic()
	cfg := verifier.Config{
		PoWDifficulty: 0,
		PoWTimeout:    time.Second,
		Stage2: verifier.Stage2Config{
			Rounds: 1, RoundTimeout: time.Second, CVThreshold: 0.8, MinAccuracy: 0.7, UseMock: true,
		},
		Stage3: verifier.Stage3Config{Timeout: time.Second, MinChecks: 4},
		Stage4: verifier.Stage4Config{MinHistorySessions: 5, Stage1CVThreshold: 0.6, MinStage1Samples: 3, HourStdThreshold: 3.0, MinHourStdSessions: 10},
	}
	orch := verifier.NewOrchestrator(st, oracle, signer, cfg)
	p := pool.New(4)

	e := echo.New()
	e.GET("/verify/ws", Handler(orch, p, 5*time.Second))

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):] + "/verify/ws" + query

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func writeFrame(t *testing.T, conn *websocket.Conn, v map[string]any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestHandlerDrivesFullVerificationOverWebSocket(t *testing.T) {
	server := setupTestServer(t)
	conn := dialWS(t, server, "?agent_id=agent-ws-1")

	pow := readFrame(t, conn)
	require.Equal(t, "pow_challenge", pow["type"])
	writeFrame(t, conn, map[string]any{"solution": "anything"})

	decision := readFrame(t, conn)
	require.Equal(t, "decision_challenge", decision["type"])
	writeFrame(t, conn, map[string]any{"answer": decision["mock_correct"]})

	env := readFrame(t, conn)
	require.Equal(t, "env_request", env["type"])
	writeFrame(t, conn, map[string]any{
		"env": map[string]any{
			"has_tty": false, "display_set": false, "uptime_seconds": 3600,
			"open_connections": 1, "parent_process": "sshd",
		},
	})

	result := readFrame(t, conn)
	require.Equal(t, "ACCEPT", result["verdict"])
	require.NotEmpty(t, result["token"])
}

func TestHandlerPeerDisconnectLeavesSessionInProgress(t *testing.T) {
	st := store.NewMemory()
	signer := token.NewSigner("test-secret", time.Hour)
	oracle := challenge.NewStatic()
	cfg := verifier.Config{
		PoWDifficulty: 0,
		PoWTimeout:    5 * time.Second,
		Stage2: verifier.Stage2Config{
			Rounds: 1, RoundTimeout: time.Second, CVThreshold: 0.8, MinAccuracy: 0.7, UseMock: true,
		},
		Stage3: verifier.Stage3Config{Timeout: time.Second, MinChecks: 4},
		Stage4: verifier.Stage4Config{MinHistorySessions: 5, Stage1CVThreshold: 0.6, MinStage1Samples: 3, HourStdThreshold: 3.0, MinHourStdSessions: 10},
	}
	orch := verifier.NewOrchestrator(st, oracle, signer, cfg)
	p := pool.New(4)

	e := echo.New()
	e.GET("/verify/ws", Handler(orch, p, 5*time.Second))
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	conn := dialWS(t, server, "?agent_id=agent-ws-disconnect")

	pow := readFrame(t, conn)
	require.Equal(t, "pow_challenge", pow["type"])

	// The peer hangs up instead of solving the puzzle: a genuine transport
	// close, not a business-level PoW failure.
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		rows, err := st.FetchSessionsByAgent(context.Background(), "agent-ws-disconnect")
		return err == nil && len(rows) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rows, err := st.FetchSessionsByAgent(context.Background(), "agent-ws-disconnect")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Passed)
	assert.Equal(t, 0, rows[0].StageReached)
	require.NotNil(t, rows[0].RejectReason)
	assert.Equal(t, store.RejectReasonInProgress, *rows[0].RejectReason)
}

func TestHandlerRejectsOnWrongDecisionAnswer(t *testing.T) {
	server := setupTestServer(t)
	conn := dialWS(t, server, "?agent_id=agent-ws-2")

	pow := readFrame(t, conn)
	require.Equal(t, "pow_challenge", pow["type"])
	writeFrame(t, conn, map[string]any{"solution": "anything"})

	decision := readFrame(t, conn)
	require.Equal(t, "decision_challenge", decision["type"])
	writeFrame(t, conn, map[string]any{"answer": "Z"})

	result := readFrame(t, conn)
	require.Equal(t, "REJECT", result["verdict"])
	require.Contains(t, result["reason"], "stage2_low_accuracy_")
}
