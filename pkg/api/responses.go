package api

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	MockMode  bool   `json:"mock_mode"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
	Pool    *PoolHealthResponse    `json:"pool,omitempty"`
}

// HealthCheck is the status of a single health subsystem.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// PoolHealthResponse mirrors pool.Health for the /health response.
type PoolHealthResponse struct {
	ActiveSessions int  `json:"active_sessions"`
	MaxConcurrent  int  `json:"max_concurrent"`
	Healthy        bool `json:"healthy"`
}

// VerifyResponse is returned by GET /verify on a valid token.
type VerifyResponse struct {
	AgentID      string `json:"agent_id"`
	VerifiedAt   int64  `json:"verified_at"`
	ExpiresIn    int64  `json:"expires_in"`
	StagesPassed []int  `json:"stages_passed"`
}

// SessionResponse is one row of GET /sessions/{agent_id}.
type SessionResponse struct {
	ID           int64          `json:"id"`
	AgentID      string         `json:"agent_id"`
	StageReached int            `json:"stage_reached"`
	Timestamp    int64          `json:"timestamp"`
	Passed       bool           `json:"passed"`
	RejectReason *string        `json:"reject_reason"`
	Timings      map[string]any `json:"timings"`
}

// ChallengeRoundResponse is one row of
// GET /sessions/{agent_id}/history/{session_id}.
type ChallengeRoundResponse struct {
	RoundNum      int     `json:"round_num"`
	ChallengeText string  `json:"challenge_text"`
	ResponseText  string  `json:"response_text"`
	Correct       bool    `json:"correct"`
	ResponseTimeS float64 `json:"response_time_s"`
}

// ErrorResponse is the generic JSON error envelope for 4xx/5xx responses.
type ErrorResponse struct {
	Error string `json:"error"`
}
