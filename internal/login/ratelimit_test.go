package login

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_AllowsUpToBurstThenThrottles(t *testing.T) {
	l := newIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 3, IdleExpiry: time.Minute})
	addr := &net.TCPAddr{IP: net.ParseIP("203.0.113.5"), Port: 54321}

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(addr), "attempt %d should be within burst", i)
	}
	assert.False(t, l.Allow(addr), "fourth immediate attempt should be throttled")
}

func TestIPRateLimiter_TracksDistinctIPsIndependently(t *testing.T) {
	l := newIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleExpiry: time.Minute})
	a := &net.TCPAddr{IP: net.ParseIP("203.0.113.5"), Port: 1}
	b := &net.TCPAddr{IP: net.ParseIP("203.0.113.6"), Port: 1}

	assert.True(t, l.Allow(a))
	assert.False(t, l.Allow(a))
	assert.True(t, l.Allow(b), "a different source IP must have its own budget")
}

func TestIPRateLimiter_EvictsIdleEntries(t *testing.T) {
	l := newIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleExpiry: time.Nanosecond})
	addr := &net.TCPAddr{IP: net.ParseIP("203.0.113.5"), Port: 1}

	assert.True(t, l.Allow(addr))
	time.Sleep(time.Millisecond)
	assert.True(t, l.Allow(addr), "expired entry should be rebuilt with a fresh budget")
}
