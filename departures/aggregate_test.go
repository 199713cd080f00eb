package departures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wlboard/wlboard/wl"
)

// fakeSource answers per stop with a canned payload or error.
type fakeSource struct {
	payloads map[string]wl.Raw
	errs     map[string]error
	order    []string
}

func (f *fakeSource) GetDepartures(ctx context.Context, stopID, clientID string) (wl.Raw, error) {
	f.order = append(f.order, stopID)
	if err, ok := f.errs[stopID]; ok {
		return nil, err
	}
	return f.payloads[stopID], nil
}

func payloadWith(t *testing.T, lineName string, countdowns ...int) wl.Raw {
	t.Helper()
	deps := make([]wl.Departure, 0, len(countdowns))
	for _, c := range countdowns {
		deps = append(deps, wl.Departure{DepartureTime: wl.DepartureTime{
			TimePlanned: "2024-05-01T14:00:00.000+0200",
			Countdown:   c,
		}})
	}
	return monitorPayload(t, line(lineName, "Somewhere", deps...))
}

func emptyPayload() wl.Raw {
	return wl.Raw(`{"data":{"monitors":[]},"message":{"value":"OK","messageCode":1}}`)
}

func newTestAggregator(src Source, opts ...AggregatorOption) *Aggregator {
	opts = append([]AggregatorOption{WithPacing(0, 0)}, opts...)
	return NewAggregator(src, zerolog.Nop(), opts...)
}

func TestAggregatePartialSuccess(t *testing.T) {
	src := &fakeSource{
		payloads: map[string]wl.Raw{"A": payloadWith(t, "U1", 5, 2)},
		errs: map[string]error{
			"B": &wl.Error{Kind: wl.KindAccessDenied, StopID: "B", Message: "denied"},
			"C": &wl.Error{Kind: wl.KindConnection, StopID: "C", Message: "down"},
		},
	}
	agg := newTestAggregator(src)

	deps, stats, err := agg.Aggregate(context.Background(), []string{"A", "B", "C"}, "client")
	if err != nil {
		t.Fatalf("partial success must not fail: %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("len = %d, want 2", len(deps))
	}
	if stats.PerStop["B"].Status != StatusInvalid {
		t.Errorf("B status = %s, want invalid", stats.PerStop["B"].Status)
	}
	if stats.PerStop["C"].Status != StatusError {
		t.Errorf("C status = %s, want error", stats.PerStop["C"].Status)
	}
	if stats.Successful != 1 || stats.Total != 3 {
		t.Errorf("stats = %d/%d, want 1/3", stats.Successful, stats.Total)
	}
}

func TestAggregateAllInvalid(t *testing.T) {
	src := &fakeSource{errs: map[string]error{
		"A": &wl.Error{Kind: wl.KindAccessDenied, StopID: "A", Message: "denied"},
		"B": &wl.Error{Kind: wl.KindAccessDenied, StopID: "B", Message: "denied"},
	}}
	agg := newTestAggregator(src)

	_, stats, err := agg.Aggregate(context.Background(), []string{"A", "B"}, "client")
	if !errors.Is(err, ErrAllInvalid) {
		t.Errorf("err = %v, want ErrAllInvalid", err)
	}
	if len(stats.Invalid) != 2 {
		t.Errorf("invalid = %v, want both stops", stats.Invalid)
	}
}

func TestAggregateFirstHardErrorWins(t *testing.T) {
	connErr := &wl.Error{Kind: wl.KindConnection, StopID: "A", Message: "down"}
	src := &fakeSource{errs: map[string]error{
		"A": connErr,
		"B": &wl.Error{Kind: wl.KindTimeout, StopID: "B", Message: "slow"},
	}}
	agg := newTestAggregator(src)

	_, _, err := agg.Aggregate(context.Background(), []string{"A", "B"}, "client")
	if !errors.Is(err, connErr) {
		t.Errorf("err = %v, want the first hard error", err)
	}
}

func TestAggregateAllNoData(t *testing.T) {
	src := &fakeSource{payloads: map[string]wl.Raw{
		"A": emptyPayload(),
		"B": emptyPayload(),
	}}
	agg := newTestAggregator(src)

	_, stats, err := agg.Aggregate(context.Background(), []string{"A", "B"}, "client")
	if !errors.Is(err, ErrNoDepartures) {
		t.Errorf("err = %v, want ErrNoDepartures", err)
	}
	if stats.PerStop["A"].Status != StatusNoData {
		t.Errorf("A status = %s, want no_data", stats.PerStop["A"].Status)
	}
}

func TestAggregateSortedAndCapped(t *testing.T) {
	payloads := make(map[string]wl.Raw)
	var stops []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("%d", i)
		// descending countdowns so the final sort has work to do
		payloads[id] = payloadWith(t, "U3", 9-i, 19-i, 29-i, 39-i, 49-i)
		stops = append(stops, id)
	}
	agg := newTestAggregator(&fakeSource{payloads: payloads})

	deps, _, err := agg.Aggregate(context.Background(), stops, "client")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(deps) != MaxDepartures {
		t.Fatalf("len = %d, want capped at %d", len(deps), MaxDepartures)
	}
	for i := 1; i < len(deps); i++ {
		if deps[i-1].MinutesUntil > deps[i].MinutesUntil {
			t.Fatalf("not sorted by imminence at %d: %d > %d", i, deps[i-1].MinutesUntil, deps[i].MinutesUntil)
		}
	}
}

func TestAggregateSequentialWithPacing(t *testing.T) {
	src := &fakeSource{payloads: map[string]wl.Raw{
		"A": payloadWith(t, "1", 1),
		"B": payloadWith(t, "2", 2),
		"C": payloadWith(t, "3", 3),
	}}
	agg := NewAggregator(src, zerolog.Nop())

	var slept []time.Duration
	agg.sleep = func(ctx context.Context, d time.Duration) { slept = append(slept, d) }

	_, _, err := agg.Aggregate(context.Background(), []string{"A", "B", "C"}, "client")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if want := []string{"A", "B", "C"}; fmt.Sprint(src.order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", src.order, want)
	}
	// no delay before the first request, pacing before each following one
	if len(slept) != 2 || slept[0] != DefaultPacing || slept[1] != DefaultPacing {
		t.Errorf("slept = %v, want two pacing delays of %v", slept, DefaultPacing)
	}
}

func TestAggregateBackoffAfterRateLimit(t *testing.T) {
	src := &fakeSource{
		payloads: map[string]wl.Raw{"C": payloadWith(t, "1", 1)},
		errs: map[string]error{
			"A": &wl.Error{Kind: wl.KindUpstreamRateLimited, StopID: "A", Message: "quota"},
			"B": &wl.Error{Kind: wl.KindRateLimited, StopID: "B", Message: "local"},
		},
	}
	agg := NewAggregator(src, zerolog.Nop())

	var slept []time.Duration
	agg.sleep = func(ctx context.Context, d time.Duration) { slept = append(slept, d) }

	_, _, err := agg.Aggregate(context.Background(), []string{"A", "B", "C"}, "client")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// each rate-limit failure stretches exactly the next delay
	if len(slept) != 2 || slept[0] != DefaultBackoff || slept[1] != DefaultBackoff {
		t.Errorf("slept = %v, want two backoff delays of %v", slept, DefaultBackoff)
	}
}

func TestAggregatePerStopLinesRecorded(t *testing.T) {
	resp := wl.MonitorResponse{
		Data: wl.MonitorData{Monitors: []wl.Monitor{{Lines: []wl.Line{
			line("U1", "Leopoldau", wl.Departure{DepartureTime: wl.DepartureTime{TimePlanned: "2024-05-01T14:00:00.000+0200", Countdown: 1}}),
			line("U1", "Oberlaa", wl.Departure{DepartureTime: wl.DepartureTime{TimePlanned: "2024-05-01T14:00:00.000+0200", Countdown: 2}}),
			line("26", "Strebersdorf", wl.Departure{DepartureTime: wl.DepartureTime{TimePlanned: "2024-05-01T14:00:00.000+0200", Countdown: 3}}),
		}}}},
		Message: wl.Message{MessageCode: wl.CodeOK},
	}
	raw, _ := json.Marshal(resp)
	agg := newTestAggregator(&fakeSource{payloads: map[string]wl.Raw{"A": raw}})

	_, stats, err := agg.Aggregate(context.Background(), []string{"A"}, "client")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	detail := stats.PerStop["A"]
	if detail.DepartureCount != 3 {
		t.Errorf("DepartureCount = %d, want 3", detail.DepartureCount)
	}
	if fmt.Sprint(detail.Lines) != "[26 U1]" {
		t.Errorf("Lines = %v, want unique sorted names", detail.Lines)
	}
}

type staticHints map[string][]string

func (h staticHints) ExpectedLines(stopID string) []string { return h[stopID] }

func TestAggregateHintsAreDisplayOnly(t *testing.T) {
	src := &fakeSource{payloads: map[string]wl.Raw{"A": payloadWith(t, "U1", 1)}}
	agg := newTestAggregator(src, WithHints(staticHints{"A": {"U1", "26"}}))

	deps, stats, err := agg.Aggregate(context.Background(), []string{"A"}, "client")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if fmt.Sprint(stats.PerStop["A"].ExpectedLines) != "[U1 26]" {
		t.Errorf("ExpectedLines = %v", stats.PerStop["A"].ExpectedLines)
	}
	// the hint must never filter actual results
	if len(deps) != 1 {
		t.Errorf("len = %d, want 1", len(deps))
	}
}

func TestAggregateContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	agg := newTestAggregator(&fakeSource{})

	_, _, err := agg.Aggregate(ctx, []string{"A"}, "client")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
