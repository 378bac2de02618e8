package config

import "time"

// Built-in defaults. A deployment's dpp.yaml only needs to override what it
// wants to change; everything else falls back to these values via mergo.
const (
	DefaultPoWDifficulty = 4
	DefaultPoWTimeout    = 200 * time.Millisecond

	DefaultDecisionRounds       = 10
	DefaultDecisionRoundTimeout = 1500 * time.Millisecond
	// DefaultDecisionCVThreshold is fixed per the resolved open question: 0.8
	// accommodates legitimate network jitter in response timing while still
	// catching the near-zero variance of scripted/replayed answers.
	DefaultDecisionCVThreshold = 0.8
	// DefaultDecisionMinAccuracy is ⌈0.7·R⌉ correct rounds out of R.
	DefaultDecisionMinAccuracy = 0.7

	DefaultEnvAttestationTimeout   = 5 * time.Second
	DefaultEnvAttestationMinChecks = 4 // pass iff score >= 4 of 5 independent checks

	DefaultConsistencyMinHistorySessions = 5
	DefaultConsistencyStage1CVThreshold  = 0.6
	DefaultConsistencyMinStage1Samples   = 3
	DefaultConsistencyHourStdThreshold   = 3.0
	DefaultConsistencyMinHourStdSessions = 10

	DefaultTokenTTL = 1 * time.Hour

	DefaultOracleTimeout = 15 * time.Second
	DefaultOracleBaseURL = "https://api.openai.com/v1"
	DefaultOracleModel   = "gpt-4o-mini"

	DefaultReaperInterval  = 60 * time.Second
	DefaultReaperThreshold = 10 * time.Minute

	DefaultPoolMaxConcurrent = 256

	DefaultRateLimitRequests = 20
	DefaultRateLimitWindow   = 60 * time.Second

	DefaultStoreMaxOpenConns    = 10
	DefaultStoreMaxIdleConns    = 5
	DefaultStoreConnMaxLifetime = 30 * time.Minute
)

// DefaultConfig builds the built-in configuration tree. YAML values loaded
// from disk are merged on top of this with mergo.WithOverride, so only
// non-zero fields in the YAML actually take effect.
func DefaultConfig() *Config {
	return &Config{
		Token: TokenConfig{
			TokenTTL: DefaultTokenTTL,
		},
		PoW: PoWConfig{
			Difficulty: DefaultPoWDifficulty,
			Timeout:    DefaultPoWTimeout,
		},
		Decision: DecisionConfig{
			Rounds:       DefaultDecisionRounds,
			RoundTimeout: DefaultDecisionRoundTimeout,
			CVThreshold:  DefaultDecisionCVThreshold,
			MinAccuracy:  DefaultDecisionMinAccuracy,
		},
		EnvAttestation: EnvAttestationConfig{
			Timeout:   DefaultEnvAttestationTimeout,
			MinChecks: DefaultEnvAttestationMinChecks,
		},
		Consistency: ConsistencyConfig{
			MinHistorySessions: DefaultConsistencyMinHistorySessions,
			Stage1CVThreshold:  DefaultConsistencyStage1CVThreshold,
			MinStage1Samples:   DefaultConsistencyMinStage1Samples,
			HourStdThreshold:   DefaultConsistencyHourStdThreshold,
			MinHourStdSessions: DefaultConsistencyMinHourStdSessions,
		},
		Oracle: OracleConfig{
			APIKeyEnv: "DPP_ORACLE_API_KEY",
			BaseURL:   DefaultOracleBaseURL,
			Model:     DefaultOracleModel,
			Timeout:   DefaultOracleTimeout,
		},
		Reaper: ReaperConfig{
			Interval:  DefaultReaperInterval,
			Threshold: DefaultReaperThreshold,
		},
		Pool: PoolConfig{
			MaxConcurrent: DefaultPoolMaxConcurrent,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: DefaultRateLimitRequests,
			Window:            DefaultRateLimitWindow,
		},
		Store: StoreConfig{
			MaxOpenConns:    DefaultStoreMaxOpenConns,
			MaxIdleConns:    DefaultStoreMaxIdleConns,
			ConnMaxLifetime: DefaultStoreConnMaxLifetime,
		},
	}
}
