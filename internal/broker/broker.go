// Package broker is the request-handling contract behind the departures
// endpoint: validate the stop code, prefer the cache, rate-limit misses,
// then fetch and store. It never retries; backoff belongs to the
// aggregator driving it.
package broker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wlboard/wlboard/internal/cache"
	"github.com/wlboard/wlboard/internal/ratelimit"
	"github.com/wlboard/wlboard/wl"
)

// RetryAfter is the fixed hint handed to locally rate-limited clients.
const RetryAfter = 60 * time.Second

// Fetcher issues one upstream call for a stop code.
type Fetcher interface {
	FetchRaw(ctx context.Context, stopID string) (wl.Raw, error)
}

// Service owns the process-wide cache and rate-limit state. Constructed
// once at startup, shared by every handler.
type Service struct {
	fetcher Fetcher
	cache   cache.ReadWriter
	limiter *ratelimit.Limiter
	ttl     time.Duration
	log     zerolog.Logger
}

func New(fetcher Fetcher, store cache.ReadWriter, limiter *ratelimit.Limiter, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Service{
		fetcher: fetcher,
		cache:   store,
		limiter: limiter,
		ttl:     ttl,
		log:     log,
	}
}

// GetDepartures returns the raw monitor payload for stopID. Each step is a
// hard gate, in order: validation, cache (hits bypass the limiter
// entirely), rate limit, upstream fetch.
func (s *Service) GetDepartures(ctx context.Context, stopID, clientID string) (wl.Raw, error) {
	if !isNumeric(stopID) {
		return nil, &wl.Error{Kind: wl.KindValidation, StopID: stopID, Message: "stop id must be numeric"}
	}

	if entry, ok := s.cache.Read(stopID, s.ttl); ok {
		s.log.Debug().Str("stop", stopID).Msg("cache hit")
		return entry.Body, nil
	}

	if !s.limiter.CheckAndRecord(clientID) {
		s.log.Warn().Str("stop", stopID).Str("client", clientID).Msg("client rate limited")
		return nil, &wl.Error{Kind: wl.KindRateLimited, StopID: stopID, Message: "too many requests"}
	}

	raw, err := s.fetcher.FetchRaw(ctx, stopID)
	if err != nil {
		s.log.Warn().Str("stop", stopID).Str("kind", string(wl.KindOf(err))).Err(err).Msg("upstream fetch failed")
		return nil, err
	}

	s.cache.Write(stopID, raw)
	s.log.Debug().Str("stop", stopID).Int("bytes", len(raw)).Msg("fetched and cached")
	return raw, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
