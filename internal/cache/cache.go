// Package cache provides a TTL-bounded in-memory store for upstream monitor
// payloads, keyed by stop code. Expiry is lazy: entries are checked on read
// and overwritten by the next successful refetch, never swept proactively.
// Cardinality is bounded by the set of distinct stop codes queried.
package cache

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultTTL is how long a monitor payload may be served from memory.
const DefaultTTL = 60 * time.Second

// Entry is a stored payload with its fetch instant.
type Entry struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Body      json.RawMessage `json:"body"`
}

// Reader reads entries with TTL validation.
type Reader interface {
	// Read returns the entry for key and true when present and fresh.
	// An expired entry is returned with false so callers can still
	// inspect it, but must treat it as a miss.
	Read(key string, maxAge time.Duration) (*Entry, bool)
}

// Writer stores entries.
type Writer interface {
	Write(key string, body json.RawMessage)
}

// ReadWriter combines both cache operations.
type ReadWriter interface {
	Reader
	Writer
}

// Memory is a mutex-guarded in-process cache. Constructed once at startup
// and shared by all request handlers.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	// Clock is overridable for tests; defaults to time.Now.
	Clock func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*Entry),
		Clock:   time.Now,
	}
}

// Read implements Reader.
func (m *Memory) Read(key string, maxAge time.Duration) (*Entry, bool) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if maxAge > 0 && m.Clock().Sub(entry.FetchedAt) >= maxAge {
		return entry, false
	}
	return entry, true
}

// Write implements Writer, overwriting any previous entry for key.
func (m *Memory) Write(key string, body json.RawMessage) {
	entry := &Entry{FetchedAt: m.Clock(), Body: body}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
}

// Len returns the number of stored entries, live or expired.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
