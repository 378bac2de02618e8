package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAppliesBuiltinDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DPP_TOKEN_SECRET", "test-secret")
	t.Setenv("DPP_STORE_DSN", "postgres://localhost/dpp?sslmode=disable")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultPoWDifficulty, cfg.PoW.Difficulty)
	assert.Equal(t, DefaultDecisionCVThreshold, cfg.Decision.CVThreshold)
	assert.True(t, cfg.UseMockChallenges)
}

func TestInitializeMergesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DPP_TOKEN_SECRET", "test-secret")
	t.Setenv("DPP_STORE_DSN", "postgres://localhost/dpp?sslmode=disable")

	yamlContent := []byte("pow:\n  difficulty: 16\ndecision:\n  rounds: 8\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dpp.yaml"), yamlContent, 0o600))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.PoW.Difficulty)
	assert.Equal(t, 8, cfg.Decision.Rounds)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultDecisionCVThreshold, cfg.Decision.CVThreshold)
}

func TestInitializeDerivesMockChallengesFromOracleKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DPP_TOKEN_SECRET", "test-secret")
	t.Setenv("DPP_STORE_DSN", "postgres://localhost/dpp?sslmode=disable")
	t.Setenv("DPP_ORACLE_API_KEY", "sk-test")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.False(t, cfg.UseMockChallenges)
}

func TestInitializeFailsWithoutSecret(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DPP_TOKEN_SECRET", "")
	t.Setenv("DPP_STORE_DSN", "postgres://localhost/dpp?sslmode=disable")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}
