package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("DPP_TEST_VAR", "resolved")

	out := ExpandEnv([]byte("value: ${DPP_TEST_VAR}\nother: $DPP_TEST_VAR\n"))

	assert.Equal(t, "value: resolved\nother: resolved\n", string(out))
}

func TestExpandEnvMissingVariableBecomesEmpty(t *testing.T) {
	out := ExpandEnv([]byte("value: ${DPP_DEFINITELY_UNSET_VAR}\n"))

	assert.Equal(t, "value: \n", string(out))
}
