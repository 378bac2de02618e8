package verifier

// Session is the transient per-connection state for one verification run. It
// is owned exclusively by one orchestrator invocation and ceases to exist
// once the terminal frame is sent — there is deliberately no package-level
// registry of these by ID, the way tarsy's pkg/session.Manager keeps a
// mutex-guarded map. Each connection's goroutine holds its own Session by
// value/pointer and nothing else reaches into it.
type Session struct {
	AgentID            string
	Nonce              []byte
	StageReached       int
	Timings            map[string]any
	ChallengeResponses []ChallengeResponseRecord
	EnvData            map[string]any

	// RowID is the persisted session row id, assigned once InsertSession
	// returns (C8 step 3).
	RowID int64
}

// ChallengeResponseRecord records one decision-round response.
type ChallengeResponseRecord struct {
	RoundNum  int
	Answer    string
	ElapsedS  float64
	Correct   bool
	Prompt    string
}

// NewSession returns a fresh transient Session for agentID and nonce.
func NewSession(agentID string, nonce []byte) *Session {
	return &Session{
		AgentID: agentID,
		Nonce:   nonce,
		Timings: make(map[string]any),
	}
}
