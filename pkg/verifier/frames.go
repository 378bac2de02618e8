package verifier

import (
	"encoding/json"
	"fmt"
)

// Frame is the duplex wire unit: JSON in, JSON out, over one connection per
// session. Rather than parse directly into Go structs with optional fields
// scattered everywhere, inbound frames are decoded once into a RawFrame and
// then narrowed per stage — unknown fields are ignored, missing required
// fields become stage-specific input errors.
type RawFrame map[string]json.RawMessage

// DecodeRawFrame parses one inbound JSON frame.
func DecodeRawFrame(data []byte) (RawFrame, error) {
	var raw RawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return raw, nil
}

func (f RawFrame) stringField(name string) (string, bool) {
	v, ok := f[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// ---- Outbound frames (server -> client) ----

// PoWChallengeFrame is Stage 1's outbound frame.
type PoWChallengeFrame struct {
	Stage      int    `json:"stage"`
	Type       string `json:"type"`
	Nonce      string `json:"nonce"`
	Difficulty int    `json:"difficulty"`
	TimeoutMs  int64  `json:"timeout_ms"`
}

// NewPoWChallengeFrame builds the Stage 1 outbound frame.
func NewPoWChallengeFrame(nonceHex string, difficulty int, timeoutMs int64) PoWChallengeFrame {
	return PoWChallengeFrame{Stage: 1, Type: "pow_challenge", Nonce: nonceHex, Difficulty: difficulty, TimeoutMs: timeoutMs}
}

// DecisionChallengeFrame is Stage 2's outbound frame.
type DecisionChallengeFrame struct {
	Stage           int      `json:"stage"`
	Type            string   `json:"type"`
	Round           int      `json:"round"`
	TotalRounds     int      `json:"total_rounds"`
	Prompt          string   `json:"prompt"`
	Options         []string `json:"options"`
	PrevAnswerHash  string   `json:"prev_answer_hash"`
	MockCorrect     string   `json:"mock_correct,omitempty"`
}

// EnvRequestFrame is Stage 3's outbound frame.
type EnvRequestFrame struct {
	Stage          int      `json:"stage"`
	Type           string   `json:"type"`
	RequiredFields []string `json:"required_fields"`
}

// NewEnvRequestFrame builds the Stage 3 outbound frame.
func NewEnvRequestFrame() EnvRequestFrame {
	return EnvRequestFrame{
		Stage: 3,
		Type:  "env_request",
		RequiredFields: []string{
			"has_tty", "display_set", "uptime_seconds", "open_connections", "parent_process",
		},
	}
}

// ResultFrame is the terminal frame (C8 step 5/6).
type ResultFrame struct {
	Type         string `json:"type"`
	Verdict      string `json:"verdict"`
	Token        string `json:"token,omitempty"`
	StagesPassed []int  `json:"stages_passed,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// NewAcceptFrame builds the ACCEPT terminal frame.
func NewAcceptFrame(token string, stagesPassed []int) ResultFrame {
	return ResultFrame{Type: "result", Verdict: "ACCEPT", Token: token, StagesPassed: stagesPassed}
}

// NewRejectFrame builds the REJECT terminal frame.
func NewRejectFrame(reason string) ResultFrame {
	return ResultFrame{Type: "result", Verdict: "REJECT", Reason: reason}
}

// ErrorFrame is the exceptional-path frame.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorFrame builds the best-effort error frame.
func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: "error", Message: message}
}

// ---- Inbound frame payloads (client -> server) ----

// PoWSolutionPayload is the Stage 1 inbound payload.
type PoWSolutionPayload struct {
	Solution string
}

// ParsePoWSolution narrows a RawFrame into a PoWSolutionPayload.
func ParsePoWSolution(f RawFrame) (PoWSolutionPayload, error) {
	s, ok := f.stringField("solution")
	if !ok {
		return PoWSolutionPayload{}, fmt.Errorf("missing or invalid %q field", "solution")
	}
	return PoWSolutionPayload{Solution: s}, nil
}

// DecisionAnswerPayload is the Stage 2 inbound payload.
type DecisionAnswerPayload struct {
	Answer string
}

// ParseDecisionAnswer narrows a RawFrame into a DecisionAnswerPayload.
func ParseDecisionAnswer(f RawFrame) (DecisionAnswerPayload, error) {
	a, ok := f.stringField("answer")
	if !ok {
		return DecisionAnswerPayload{}, fmt.Errorf("missing or invalid %q field", "answer")
	}
	return DecisionAnswerPayload{Answer: a}, nil
}

// EnvPayload is the Stage 3 inbound environment probe result.
type EnvPayload struct {
	HasTTY          *bool    `json:"has_tty"`
	DisplaySet      *bool    `json:"display_set"`
	UptimeSeconds   *float64 `json:"uptime_seconds"`
	OpenConnections *float64 `json:"open_connections"`
	ParentProcess   *string  `json:"parent_process"`
}

// ParseEnvPayload narrows a RawFrame into an EnvPayload.
func ParseEnvPayload(f RawFrame) (EnvPayload, error) {
	raw, ok := f["env"]
	if !ok {
		return EnvPayload{}, fmt.Errorf("missing %q field", "env")
	}
	var env EnvPayload
	if err := json.Unmarshal(raw, &env); err != nil {
		return EnvPayload{}, fmt.Errorf("invalid %q field: %w", "env", err)
	}
	return env, nil
}
