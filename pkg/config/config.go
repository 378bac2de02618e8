package config

// Config is the umbrella configuration object returned by Initialize and
// threaded through cmd/dppverifier/main.go into every component.
type Config struct {
	configDir string

	Token          TokenConfig
	PoW            PoWConfig
	Decision       DecisionConfig
	EnvAttestation EnvAttestationConfig
	Consistency    ConsistencyConfig
	Oracle         OracleConfig
	Reaper         ReaperConfig
	Pool           PoolConfig
	RateLimit      RateLimitConfig
	Store          StoreConfig

	// UseMockChallenges is derived, not configured directly: true whenever
	// no oracle API key is present in the environment. See loader.go.
	UseMockChallenges bool
}

// ConfigDir returns the directory Config was loaded from.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// ConfigStats summarizes the loaded configuration for startup logging.
type ConfigStats struct {
	PoWDifficulty     int
	DecisionRounds    int
	UseMockChallenges bool
	PoolMaxConcurrent int
}

// Stats returns a summary of the loaded configuration.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		PoWDifficulty:     c.PoW.Difficulty,
		DecisionRounds:    c.Decision.Rounds,
		UseMockChallenges: c.UseMockChallenges,
		PoolMaxConcurrent: c.Pool.MaxConcurrent,
	}
}
