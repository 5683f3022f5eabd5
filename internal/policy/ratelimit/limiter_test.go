package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstThenReject(t *testing.T) {
	t.Parallel()

	// One token every ten seconds keeps the bucket empty for the test.
	l := New(Config{RPS: 0.1, Burst: 2})

	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
}

func TestLimiterSeparatesClients(t *testing.T) {
	t.Parallel()

	l := New(Config{RPS: 0.1, Burst: 1})

	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-b"))
	assert.Equal(t, 2, l.Clients())
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	for range 100 {
		assert.True(t, l.Allow("client-a"))
	}
	assert.Zero(t, l.Clients())
}
