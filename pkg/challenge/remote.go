package challenge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// remoteMessage is an OpenAI-compatible chat message.
type remoteMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// remoteRequest is the body sent to POST {base_url}/chat/completions.
type remoteRequest struct {
	Model       string          `json:"model"`
	Messages    []remoteMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
}

// remoteResponse is the OpenAI-compatible chat-completions response shape.
type remoteResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// generatedChallenge is the JSON object the model is prompted to return.
type generatedChallenge struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
	Rationale     string   `json:"rationale"`
}

// validationResult is the JSON object the model is prompted to return when
// grading an answer.
type validationResult struct {
	Correct bool `json:"correct"`
}

// Remote prompts an external OpenAI-compatible chat-completions endpoint to
// produce challenges. On any failure — network, parse, or schema — it falls
// back to the Static bank for that call; the fallback is
// internal and invisible to callers.
type Remote struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	fallback   *Static
}

// NewRemote returns a Remote oracle. Outbound requests are bounded only by
// httpClient's own Timeout and the caller's context.
func NewRemote(httpClient *http.Client, baseURL, apiKey, model string) *Remote {
	return &Remote{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		fallback:   NewStatic(),
	}
}

// Generate prompts the remote model for a fresh challenge; on any failure it
// silently falls back to the static bank for this round.
func (r *Remote) Generate(ctx context.Context, c Context, roundNum int, prevAnswerHash string) (Challenge, error) {
	ch, err := r.generateRemote(ctx, c, roundNum, prevAnswerHash)
	if err != nil {
		slog.Warn("challenge oracle: remote generate failed, falling back to static bank",
			"round", roundNum, "error", err)
		return r.fallback.Generate(ctx, c, roundNum, prevAnswerHash)
	}
	return ch, nil
}

// Validate asks the remote model whether answer is correct or semantically
// equivalent to ch's correct option; on any failure it falls back to the
// same first-letter matching rule as Static.
func (r *Remote) Validate(ch Challenge, answer string) bool {
	correct, err := r.validateRemote(context.Background(), ch, answer)
	if err != nil {
		slog.Warn("challenge oracle: remote validate failed, falling back to static rule", "error", err)
		return r.fallback.Validate(ch, answer)
	}
	return correct
}

func (r *Remote) generateRemote(ctx context.Context, c Context, roundNum int, prevAnswerHash string) (Challenge, error) {
	scenario := scenarioFor(roundNum)
	prompt := buildPrompt(c, scenario, roundNum, prevAnswerHash)

	content, err := r.chatCompletion(ctx, []remoteMessage{
		{Role: "system", Content: "You generate short operational multiple-choice decision scenarios as strict JSON. Respond with only the JSON object, no prose."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return Challenge{}, err
	}

	gen, err := parseGeneratedChallenge(content)
	if err != nil {
		return Challenge{}, err
	}

	return Challenge{
		Prompt:        gen.Prompt,
		Options:       gen.Options,
		CorrectOption: gen.CorrectOption,
		Rationale:     gen.Rationale,
		Scenario:      scenario,
		RoundNum:      roundNum,
	}, nil
}

// validateRemote asks the model to grade answer against ch, accepting
// semantically-equivalent answers rather than just an exact letter match.
func (r *Remote) validateRemote(ctx context.Context, ch Challenge, answer string) (bool, error) {
	encodedChallenge, err := json.Marshal(ch)
	if err != nil {
		return false, fmt.Errorf("encode challenge: %w", err)
	}

	content, err := r.chatCompletion(ctx, []remoteMessage{
		{Role: "system", Content: "You grade an answer to an operational decision challenge. Given the challenge JSON and the respondent's answer, determine whether the answer is correct or semantically equivalent to the correct option. Respond with only JSON: {\"correct\": true} or {\"correct\": false}."},
		{Role: "user", Content: fmt.Sprintf("Challenge: %s\nRespondent answer: %s", encodedChallenge, answer)},
	})
	if err != nil {
		return false, err
	}

	stripped := stripCodeFences(content)
	var result validationResult
	if err := json.Unmarshal([]byte(stripped), &result); err != nil {
		return false, fmt.Errorf("decode validation JSON: %w", err)
	}
	return result.Correct, nil
}

// chatCompletion posts one chat-completions request and returns the first
// choice's message content.
func (r *Remote) chatCompletion(ctx context.Context, messages []remoteMessage) (string, error) {
	body := remoteRequest{
		Model:       r.model,
		Messages:    messages,
		Temperature: 0.7,
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw)
	}

	var parsed remoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode response envelope: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response had no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// parseGeneratedChallenge strips ``` / ```json fences before parsing.
func parseGeneratedChallenge(content string) (generatedChallenge, error) {
	stripped := stripCodeFences(content)

	var gen generatedChallenge
	if err := json.Unmarshal([]byte(stripped), &gen); err != nil {
		return generatedChallenge{}, fmt.Errorf("decode challenge JSON: %w", err)
	}
	if gen.Prompt == "" || len(gen.Options) < 2 || gen.CorrectOption == "" {
		return generatedChallenge{}, fmt.Errorf("generated challenge missing required fields")
	}
	return gen, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func buildPrompt(c Context, scenario string, roundNum int, prevAnswerHash string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate one multiple-choice operational decision scenario tagged %q for agent %q, round %d.\n", scenario, c.AgentID, roundNum)
	if prevAnswerHash != "" {
		fmt.Fprintf(&b, "The previous round's answer hash prefix was %s; vary this scenario from prior ones.\n", prevAnswerHash)
	}
	b.WriteString("Respond with JSON: {\"prompt\": string, \"options\": [\"A) ...\", \"B) ...\", ...], \"correct_option\": \"A\"|\"B\"|..., \"rationale\": string}.")
	return b.String()
}
