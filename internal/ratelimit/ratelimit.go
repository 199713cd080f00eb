// Package ratelimit implements a sliding-window request limiter keyed by
// client identity. The window is a trailing 60 seconds over recorded
// request instants, not a fixed bucket, so a burst can never exceed the
// cap within any trailing window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of accepted requests per client per window.
	DefaultLimit = 50
	// DefaultWindow is the trailing window length.
	DefaultWindow = time.Minute

	// sweepEvery bounds how often the limiter scans for abandoned clients.
	sweepEvery = 5 * time.Minute
)

// Limiter tracks request instants per client. Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	clients   map[string][]time.Time
	lastSweep time.Time

	// Clock is overridable for tests; defaults to time.Now.
	Clock func() time.Time
}

// New returns a limiter with the given per-client cap and window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
		Clock:   time.Now,
	}
}

// CheckAndRecord reports whether clientID may issue a request now and, if
// so, records it. Rejected requests are not recorded. Instants exactly at
// the window edge no longer count (strict comparison against the window
// start).
func (l *Limiter) CheckAndRecord(clientID string) bool {
	now := l.Clock()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeSweep(cutoff, now)

	recent := prune(l.clients[clientID], cutoff)
	if len(recent) >= l.limit {
		l.clients[clientID] = recent
		return false
	}
	l.clients[clientID] = append(recent, now)
	return true
}

// RetryAfter is the hint returned to rejected clients.
func (l *Limiter) RetryAfter() time.Duration { return l.window }

// ClientCount returns the number of tracked clients. Used by tests and
// the stats endpoint.
func (l *Limiter) ClientCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// prune drops instants at or before cutoff, keeping order.
func prune(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
}

// maybeSweep drops clients whose windows emptied out, so long-running
// deployments don't accumulate one entry per IP ever seen.
func (l *Limiter) maybeSweep(cutoff, now time.Time) {
	if now.Sub(l.lastSweep) < sweepEvery {
		return
	}
	l.lastSweep = now
	for id, ts := range l.clients {
		if len(prune(ts, cutoff)) == 0 {
			delete(l.clients, id)
		}
	}
}
