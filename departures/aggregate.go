package departures

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wlboard/wlboard/wl"
)

const (
	// DefaultPacing separates consecutive per-stop requests.
	DefaultPacing = 200 * time.Millisecond
	// DefaultBackoff replaces the pacing delay once after a rate-limit
	// classified failure. Blocking, not exponential.
	DefaultBackoff = 2 * time.Second
	// MaxDepartures caps the aggregate result, sorted by imminence.
	MaxDepartures = 20
)

var (
	// ErrAllInvalid means every queried stop code was stale or decommissioned.
	ErrAllInvalid = errors.New("all stop codes are invalid")
	// ErrNoDepartures means the pass finished without data and without
	// hard errors.
	ErrNoDepartures = errors.New("no departures found")
)

// Source hands out raw monitor payloads per stop code. The broker service
// satisfies this, so every aggregated fetch passes through its cache and
// rate-limit gates.
type Source interface {
	GetDepartures(ctx context.Context, stopID, clientID string) (wl.Raw, error)
}

// Hints supplies the expected-lines display hint for a stop code. Never
// used for control flow, only copied into the stats.
type Hints interface {
	ExpectedLines(stopID string) []string
}

// Aggregator walks a station's stop codes sequentially, pacing requests so
// a multi-stop station cannot trip the shared rate limit, and tolerating
// partial failure: one dead stop code must never blank a station that has
// other live ones.
type Aggregator struct {
	src     Source
	hints   Hints
	pacing  time.Duration
	backoff time.Duration
	log     zerolog.Logger

	// sleep is replaced in tests to keep them instant.
	sleep func(context.Context, time.Duration)
}

type AggregatorOption func(*Aggregator)

// WithHints attaches an expected-lines hint source.
func WithHints(h Hints) AggregatorOption {
	return func(a *Aggregator) { a.hints = h }
}

// WithPacing overrides the inter-request and backoff delays.
func WithPacing(pacing, backoff time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.pacing, a.backoff = pacing, backoff }
}

func NewAggregator(src Source, log zerolog.Logger, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		src:     src,
		pacing:  DefaultPacing,
		backoff: DefaultBackoff,
		log:     log,
		sleep:   sleepCtx,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate fetches and parses departures for every stop code in order,
// returning the union sorted by imminence (capped at MaxDepartures) plus
// the per-stop stats. It fails only when no stop yielded any departure.
func (a *Aggregator) Aggregate(ctx context.Context, stopIDs []string, clientID string) ([]Departure, *Stats, error) {
	stats := &Stats{
		Total:   len(stopIDs),
		PerStop: make(map[string]*StopDetail, len(stopIDs)),
	}

	var (
		all      []Departure
		firstErr error
	)
	nextDelay := time.Duration(0)

	for _, stopID := range stopIDs {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		if nextDelay > 0 {
			a.sleep(ctx, nextDelay)
		}
		nextDelay = a.pacing

		detail := &StopDetail{Status: StatusLoading}
		if a.hints != nil {
			detail.ExpectedLines = a.hints.ExpectedLines(stopID)
		}
		stats.PerStop[stopID] = detail

		raw, err := a.src.GetDepartures(ctx, stopID, clientID)
		if err != nil {
			a.classifyFailure(stopID, err, detail, stats, &firstErr)
			if wl.IsRateLimited(err) {
				a.log.Warn().Str("stop", stopID).Msg("rate limited, stretching pacing once")
				nextDelay = a.backoff
			}
			continue
		}

		deps, err := Parse(raw, stopID)
		if err != nil {
			a.classifyFailure(stopID, err, detail, stats, &firstErr)
			continue
		}

		if len(deps) == 0 {
			detail.Status = StatusNoData
			continue
		}

		detail.Status = StatusSuccess
		detail.DepartureCount = len(deps)
		detail.Lines = lineNames(deps)
		stats.Successful++
		all = append(all, deps...)
	}

	if len(all) == 0 {
		switch {
		case firstErr != nil:
			return nil, stats, firstErr
		case len(stats.Invalid) > 0 && allFailuresInvalid(stats):
			return nil, stats, ErrAllInvalid
		default:
			return nil, stats, ErrNoDepartures
		}
	}

	// Post-processing on the union: soonest first, capped.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].MinutesUntil < all[j].MinutesUntil
	})
	if len(all) > MaxDepartures {
		all = all[:MaxDepartures]
	}
	return all, stats, nil
}

func (a *Aggregator) classifyFailure(stopID string, err error, detail *StopDetail, stats *Stats, firstErr *error) {
	detail.Error = err.Error()
	if wl.IsAccessDenied(err) {
		// stale or decommissioned stop code
		detail.Status = StatusInvalid
		stats.Invalid = append(stats.Invalid, stopID)
		return
	}
	detail.Status = StatusError
	stats.Failed = append(stats.Failed, stopID)
	if *firstErr == nil {
		*firstErr = err
	}
	a.log.Warn().Str("stop", stopID).Err(err).Msg("stop fetch failed")
}

func allFailuresInvalid(stats *Stats) bool {
	return len(stats.Failed) == 0
}

func lineNames(deps []Departure) []string {
	seen := make(map[string]struct{}, len(deps))
	var names []string
	for _, d := range deps {
		if _, ok := seen[d.Line]; ok {
			continue
		}
		seen[d.Line] = struct{}{}
		names = append(names, d.Line)
	}
	sort.Strings(names)
	return names
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
