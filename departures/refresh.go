package departures

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Snapshot is the outcome of one refresh cycle.
type Snapshot struct {
	Departures []Departure
	Stats      *Stats
	Err        error
	At         time.Time
}

// Refresher re-runs the aggregation pipeline for one display surface on a
// fixed interval. A tick that arrives while the previous cycle is still
// in flight is skipped, so a slow upstream cannot pile up fetch cycles.
type Refresher struct {
	agg      *Aggregator
	stopIDs  []string
	clientID string
	interval time.Duration
	log      zerolog.Logger

	inFlight atomic.Bool
	skipped  atomic.Int64
	updates  chan Snapshot
}

func NewRefresher(agg *Aggregator, stopIDs []string, clientID string, interval time.Duration, log zerolog.Logger) *Refresher {
	return &Refresher{
		agg:      agg,
		stopIDs:  stopIDs,
		clientID: clientID,
		interval: interval,
		log:      log,
		updates:  make(chan Snapshot, 1),
	}
}

// Updates delivers the latest snapshot per completed cycle. A consumer
// that falls behind only ever sees the most recent one.
func (r *Refresher) Updates() <-chan Snapshot { return r.updates }

// Skipped returns how many ticks were dropped because a cycle was still
// running.
func (r *Refresher) Skipped() int64 { return r.skipped.Load() }

// Run refreshes immediately, then on every interval tick until ctx ends.
// In-flight cycles are not cancelled by shutdown; their results are
// discarded on arrival.
func (r *Refresher) Run(ctx context.Context) {
	r.kick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.kick(ctx)
		}
	}
}

func (r *Refresher) kick(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.skipped.Add(1)
		r.log.Debug().Msg("refresh tick skipped, previous cycle still running")
		return
	}
	go func() {
		defer r.inFlight.Store(false)

		deps, stats, err := r.agg.Aggregate(ctx, r.stopIDs, r.clientID)
		snap := Snapshot{Departures: deps, Stats: stats, Err: err, At: time.Now()}
		if ctx.Err() != nil {
			return
		}
		// keep only the freshest snapshot
		select {
		case r.updates <- snap:
		default:
			select {
			case <-r.updates:
			default:
			}
			r.updates <- snap
		}
	}()
}
