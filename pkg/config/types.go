package config

import "time"

// TokenConfig controls the bearer-token signer (C1).
type TokenConfig struct {
	// Secret is the HMAC-SHA256 signing key. Required: when dpp.yaml leaves
	// it empty it is read from DPP_TOKEN_SECRET, and validation fails if it
	// is still unset. No default is substituted.
	Secret string `yaml:"secret,omitempty"`

	// TokenTTL is how long an issued token remains valid (spec: 3600s).
	TokenTTL time.Duration `yaml:"token_ttl,omitempty"`
}

// PoWConfig controls Stage 1 (proof of work).
type PoWConfig struct {
	Difficulty int           `yaml:"difficulty,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// DecisionConfig controls Stage 2 (decision rounds).
type DecisionConfig struct {
	Rounds       int           `yaml:"rounds,omitempty"`
	RoundTimeout time.Duration `yaml:"round_timeout,omitempty"`

	// CVThreshold is the coefficient-of-variation gate. Kept as a
	// deployment-tunable knob rather than hardcoded: looser (0.8)
	// tolerates network jitter, tighter (0.4) is stricter about
	// human-like erratic pacing. See DESIGN.md.
	CVThreshold float64 `yaml:"cv_threshold,omitempty"`

	// MinAccuracy is the fraction of rounds that must be answered correctly.
	MinAccuracy float64 `yaml:"min_accuracy,omitempty"`
}

// EnvAttestationConfig controls Stage 3.
type EnvAttestationConfig struct {
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	MinChecks int           `yaml:"min_checks,omitempty"`
}

// ConsistencyConfig controls Stage 4.
type ConsistencyConfig struct {
	MinHistorySessions int     `yaml:"min_history_sessions,omitempty"`
	Stage1CVThreshold  float64 `yaml:"stage1_cv_threshold,omitempty"`
	MinStage1Samples   int     `yaml:"min_stage1_samples,omitempty"`
	HourStdThreshold   float64 `yaml:"hour_std_threshold,omitempty"`
	MinHourStdSessions int     `yaml:"min_hour_std_sessions,omitempty"`
}

// OracleConfig selects and configures the challenge oracle (C2).
type OracleConfig struct {
	// APIKeyEnv names the environment variable holding the remote LLM API
	// key. Absent/empty ⇒ mock mode (use_mock_challenges = true).
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Model     string `yaml:"model,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// ReaperConfig controls the orphaned-session background reaper.
type ReaperConfig struct {
	Interval  time.Duration `yaml:"interval,omitempty"`
	Threshold time.Duration `yaml:"threshold,omitempty"`
}

// PoolConfig bounds concurrent in-flight verification sessions per process.
type PoolConfig struct {
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
}

// RateLimitConfig controls inbound connection admission.
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window,omitempty"`
	Window            time.Duration `yaml:"window,omitempty"`
}

// StoreConfig configures the Postgres-backed session store (C3).
type StoreConfig struct {
	DSN             string        `yaml:"dsn,omitempty"`
	MaxOpenConns    int           `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int           `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime,omitempty"`
}
