// Package challenge implements the challenge oracle (C2): generation and
// grading of Stage 2 decision rounds.
package challenge

import "context"

// Challenge is one decision round.
type Challenge struct {
	Prompt        string
	Options       []string // ordered, label = first character of each option string
	CorrectOption string   // single label, e.g. "A"
	Rationale     string   // not sent to the peer
	Scenario      string   // tag from the fixed SCENARIOS set
	RoundNum      int
}

// HistoryEntry is one prior round within the same session, threaded back
// into Generate's context so later prompts can reference earlier answers.
type HistoryEntry struct {
	Round   int
	Prompt  string
	Answer  string
	Correct bool
}

// Context is passed to Generate on every round.
type Context struct {
	AgentID string
	History []HistoryEntry
}

// SCENARIOS is the fixed ten-element tag set assigned round-robin to
// generated challenges: scenario = SCENARIOS[(round_num-1) mod len(SCENARIOS)].
var SCENARIOS = [10]string{
	"incident_triage",
	"log_correlation",
	"resource_scaling",
	"access_control",
	"deploy_rollback",
	"data_migration",
	"api_versioning",
	"cost_optimization",
	"alert_tuning",
	"dependency_upgrade",
}

// Oracle generates and grades Stage 2 decision rounds. Two interchangeable
// implementations exist (Static, Remote); the choice is made once at
// startup from configuration.
type Oracle interface {
	// Generate returns the challenge for round roundNum. prevAnswerHash is
	// "" for round 1, else the first 16 hex characters of
	// SHA-256(utf8(previous answer)).
	Generate(ctx context.Context, c Context, roundNum int, prevAnswerHash string) (Challenge, error)

	// Validate reports whether answer is correct for ch.
	Validate(ch Challenge, answer string) bool
}

func scenarioFor(roundNum int) string {
	return SCENARIOS[(roundNum-1)%len(SCENARIOS)]
}
