package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// YAMLConfig mirrors the on-disk dpp.yaml file structure. Every section is
// optional; anything left unset keeps its built-in default (see defaults.go).
type YAMLConfig struct {
	Token          *TokenConfig          `yaml:"token"`
	PoW            *PoWConfig            `yaml:"pow"`
	Decision       *DecisionConfig       `yaml:"decision"`
	EnvAttestation *EnvAttestationConfig `yaml:"env_attestation"`
	Consistency    *ConsistencyConfig    `yaml:"consistency"`
	Oracle         *OracleConfig         `yaml:"oracle"`
	Reaper         *ReaperConfig         `yaml:"reaper"`
	Pool           *PoolConfig           `yaml:"pool"`
	RateLimit      *RateLimitConfig      `yaml:"rate_limit"`
	Store          *StoreConfig          `yaml:"store"`
}

// Initialize loads, merges, validates, and returns ready-to-use
// configuration. This is the primary entry point used by
// cmd/dppverifier/main.go.
//
// Steps performed:
//  1. Read dpp.yaml from configDir (missing file is not an error; the
//     built-in defaults apply wholesale)
//  2. Expand environment variables
//  3. Parse YAML into a YAMLConfig
//  4. Merge onto the built-in defaults (user values override)
//  5. Derive UseMockChallenges from the oracle API key environment variable
//  6. Validate
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("configuration initialized",
		"pow_difficulty", stats.PoWDifficulty,
		"decision_rounds", stats.DecisionRounds,
		"use_mock_challenges", stats.UseMockChallenges,
		"pool_max_concurrent", stats.PoolMaxConcurrent)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadDPPYAML()
	if err != nil {
		return nil, NewLoadError("dpp.yaml", err)
	}

	cfg := DefaultConfig()
	cfg.configDir = configDir

	if yamlCfg.Token != nil {
		if err := mergo.Merge(&cfg.Token, yamlCfg.Token, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge token config: %w", err)
		}
	}
	if yamlCfg.PoW != nil {
		if err := mergo.Merge(&cfg.PoW, yamlCfg.PoW, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pow config: %w", err)
		}
	}
	if yamlCfg.Decision != nil {
		if err := mergo.Merge(&cfg.Decision, yamlCfg.Decision, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge decision config: %w", err)
		}
	}
	if yamlCfg.EnvAttestation != nil {
		if err := mergo.Merge(&cfg.EnvAttestation, yamlCfg.EnvAttestation, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge env_attestation config: %w", err)
		}
	}
	if yamlCfg.Consistency != nil {
		if err := mergo.Merge(&cfg.Consistency, yamlCfg.Consistency, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge consistency config: %w", err)
		}
	}
	if yamlCfg.Oracle != nil {
		if err := mergo.Merge(&cfg.Oracle, yamlCfg.Oracle, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge oracle config: %w", err)
		}
	}
	if yamlCfg.Reaper != nil {
		if err := mergo.Merge(&cfg.Reaper, yamlCfg.Reaper, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge reaper config: %w", err)
		}
	}
	if yamlCfg.Pool != nil {
		if err := mergo.Merge(&cfg.Pool, yamlCfg.Pool, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pool config: %w", err)
		}
	}
	if yamlCfg.RateLimit != nil {
		if err := mergo.Merge(&cfg.RateLimit, yamlCfg.RateLimit, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge rate_limit config: %w", err)
		}
	}
	if yamlCfg.Store != nil {
		if err := mergo.Merge(&cfg.Store, yamlCfg.Store, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge store config: %w", err)
		}
	}

	// The signing secret and store DSN are read directly from the
	// environment rather than dpp.yaml, the same way tarsy resolves
	// GITHUB_TOKEN/SLACK_BOT_TOKEN via a *_env indirection instead of
	// embedding secrets in YAML.
	if cfg.Token.Secret == "" {
		cfg.Token.Secret = os.Getenv("DPP_TOKEN_SECRET")
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = os.Getenv("DPP_STORE_DSN")
	}

	cfg.UseMockChallenges = os.Getenv(cfg.Oracle.APIKeyEnv) == ""

	return cfg, nil
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Absence of dpp.yaml is not fatal; defaults carry the config.
			return nil
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadDPPYAML() (*YAMLConfig, error) {
	var cfg YAMLConfig
	if err := l.loadYAML("dpp.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
