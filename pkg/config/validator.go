package config

import "fmt"

// Validator performs cross-field validation on a loaded Config. Mirrors the
// shape of tarsy's own configuration validator: one method per section,
// aggregated by ValidateAll.
type Validator struct {
	cfg *Config
}

// NewValidator returns a Validator bound to cfg.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll runs every section validator and returns the first failure.
func (v *Validator) ValidateAll() error {
	for _, fn := range []func() error{
		v.validateToken,
		v.validatePoW,
		v.validateDecision,
		v.validateEnvAttestation,
		v.validateConsistency,
		v.validateStore,
		v.validateRateLimit,
	} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateToken() error {
	if v.cfg.Token.Secret == "" {
		return NewValidationError("token", "secret", fmt.Errorf("%w: set DPP_TOKEN_SECRET or token.secret", ErrMissingRequiredField))
	}
	if v.cfg.Token.TokenTTL <= 0 {
		return NewValidationError("token", "token_ttl", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validatePoW() error {
	if v.cfg.PoW.Difficulty < 0 || v.cfg.PoW.Difficulty > 64 {
		return NewValidationError("pow", "difficulty", fmt.Errorf("%w: must be between 0 and 64 hex characters", ErrInvalidValue))
	}
	if v.cfg.PoW.Timeout <= 0 {
		return NewValidationError("pow", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateDecision() error {
	if v.cfg.Decision.Rounds < 1 {
		return NewValidationError("decision", "rounds", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if v.cfg.Decision.RoundTimeout <= 0 {
		return NewValidationError("decision", "round_timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if v.cfg.Decision.CVThreshold <= 0 {
		return NewValidationError("decision", "cv_threshold", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	if v.cfg.Decision.MinAccuracy <= 0 || v.cfg.Decision.MinAccuracy > 1 {
		return NewValidationError("decision", "min_accuracy", fmt.Errorf("%w: must be in (0, 1]", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateEnvAttestation() error {
	if v.cfg.EnvAttestation.MinChecks < 1 {
		return NewValidationError("env_attestation", "min_checks", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if v.cfg.EnvAttestation.Timeout <= 0 {
		return NewValidationError("env_attestation", "timeout", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateConsistency() error {
	if v.cfg.Consistency.MinHistorySessions < 1 {
		return NewValidationError("consistency", "min_history_sessions", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if v.cfg.Consistency.Stage1CVThreshold <= 0 {
		return NewValidationError("consistency", "stage1_cv_threshold", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateStore() error {
	if v.cfg.Store.DSN == "" {
		return NewValidationError("store", "dsn", fmt.Errorf("%w: set DPP_STORE_DSN or store.dsn", ErrMissingRequiredField))
	}
	if v.cfg.Store.MaxOpenConns < 1 {
		return NewValidationError("store", "max_open_conns", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	return nil
}

func (v *Validator) validateRateLimit() error {
	if v.cfg.RateLimit.RequestsPerWindow < 1 {
		return NewValidationError("rate_limit", "requests_per_window", fmt.Errorf("%w: must be at least 1", ErrInvalidValue))
	}
	if v.cfg.RateLimit.Window <= 0 {
		return NewValidationError("rate_limit", "window", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}
	return nil
}
