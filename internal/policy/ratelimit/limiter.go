// Package ratelimit implements a fixed-window per-identity request limiter.
package ratelimit

import (
	"sync"
	"time"

	"github.com/HasnainBinMunawar/website-auditor-agent/internal/audit"
)

// Config holds one endpoint's limit. Each endpoint constructs its own
// Limiter; there is no shared global budget.
type Config struct {
	Window time.Duration
	Max    int
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time left in the current window when denied.
	RetryAfter time.Duration
}

type window struct {
	count int
	start time.Time
}

// Limiter counts requests per identity within fixed windows. Bursts at
// window boundaries are a known property of the algorithm, not a bug.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	cfg     Config
	clock   audit.Clock
}

// New creates a Limiter. The clock is injected so tests control time.
func New(cfg Config, clock audit.Clock) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		cfg:     cfg,
		clock:   clock,
	}
}

// Admit records one request for key and decides whether it may proceed.
// The read-modify-write is atomic per call, so concurrent bursts never
// undercount.
func (l *Limiter) Admit(key string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		// Elapsed windows reset regardless of prior count.
		l.windows[key] = &window{count: 1, start: now}
		return Decision{Allowed: true, Remaining: l.cfg.Max - 1}
	}

	if w.count >= l.cfg.Max {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.start.Add(l.cfg.Window).Sub(now),
		}
	}
	w.count++
	return Decision{Allowed: true, Remaining: l.cfg.Max - w.count}
}

// pruneLocked drops windows that elapsed at least one full window ago, so
// one-off identities do not accumulate forever.
func (l *Limiter) pruneLocked(now time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= 2*l.cfg.Window {
			delete(l.windows, key)
		}
	}
}
