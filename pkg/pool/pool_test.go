package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireBlocksPastCapacity(t *testing.T) {
	p := New(1)

	release1, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	assert.Error(t, err)

	release1()

	release2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestRegisterCancelUnregister(t *testing.T) {
	p := New(4)
	canceled := false
	p.Register("agent-1", func() { canceled = true })

	assert.True(t, p.Cancel("agent-1"))
	assert.True(t, canceled)

	p.Unregister("agent-1")
	assert.False(t, p.Cancel("agent-1"))
}

func TestHealthReportsLoad(t *testing.T) {
	p := New(2)
	p.Register("a", func() {})
	p.Register("b", func() {})

	h := p.Health()
	assert.Equal(t, 2, h.ActiveSessions)
	assert.Equal(t, 2, h.MaxConcurrent)
	assert.True(t, h.IsHealthy)
}
