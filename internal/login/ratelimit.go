package login

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig controls the per-IP login attempt budget (§4.14: a client
// hammering the login acceptor must not be able to brute-force credentials
// or exhaust accept goroutines).
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleExpiry is how long an IP's limiter is kept after its last attempt
	// before it is evicted, bounding memory use under address churn.
	IdleExpiry time.Duration
}

// DefaultRateLimitConfig allows a modest burst of login attempts per IP
// before throttling kicks in.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             5,
		IdleExpiry:        10 * time.Minute,
	}
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipRateLimiter tracks one token-bucket limiter per source IP, so a single
// abusive address is throttled without penalizing every other connection on
// the acceptor (§4.14).
type ipRateLimiter struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	entries map[string]*ipLimiterEntry
}

func newIPRateLimiter(cfg RateLimitConfig) *ipRateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.IdleExpiry <= 0 {
		cfg.IdleExpiry = 10 * time.Minute
	}
	return &ipRateLimiter{cfg: cfg, entries: make(map[string]*ipLimiterEntry)}
}

// Allow reports whether a login attempt from addr should proceed, evicting
// limiters that have been idle past cfg.IdleExpiry.
func (l *ipRateLimiter) Allow(addr net.Addr) bool {
	host := hostOf(addr)
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > l.cfg.IdleExpiry {
			delete(l.entries, ip)
		}
	}

	e, ok := l.entries[host]
	if !ok {
		e = &ipLimiterEntry{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.entries[host] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

func hostOf(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
