package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBurstThenDeny(t *testing.T) {
	l := NewLimiter(1, 5)
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(), "press %d should pass", i)
	}
	assert.False(t, l.Allow())
}

func TestTokensRefill(t *testing.T) {
	l := NewLimiter(50, 1)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestTokensCappedAtBurst(t *testing.T) {
	l := NewLimiter(10, 2)
	time.Sleep(300 * time.Millisecond)
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}
