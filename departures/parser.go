package departures

import (
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/wlboard/wlboard/wl"
)

// upstream timestamps look like 2024-05-01T14:03:00.000+0200
const upstreamTimeLayout = "2006-01-02T15:04:05.000-0700"

var (
	displayLocOnce sync.Once
	displayLoc     *time.Location
)

func displayLocation() *time.Location {
	displayLocOnce.Do(func() {
		loc, err := time.LoadLocation("Europe/Vienna")
		if err != nil {
			loc = time.Local
		}
		displayLoc = loc
	})
	return displayLoc
}

// Parse flattens a raw monitor payload into normalized departures.
// Empty monitors and lines with zero departures are valid empty results.
// A departure with unparseable timestamps is still emitted, with its
// scheduled time degraded to "N/A".
func Parse(raw wl.Raw, stopID string) ([]Departure, error) {
	var resp wl.MonitorResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &wl.Error{Kind: wl.KindUnknown, StopID: stopID, Message: "malformed monitor payload", Err: err}
	}

	var out []Departure
	for _, monitor := range resp.Data.Monitors {
		for _, line := range monitor.Lines {
			for _, dep := range line.Departures.Departure {
				out = append(out, normalize(line, dep, stopID))
			}
		}
	}
	return out, nil
}

func normalize(line wl.Line, dep wl.Departure, stopID string) Departure {
	name := line.Name
	direction := line.Towards
	barrierFree := line.BarrierFree
	if dep.Vehicle != nil {
		// short-turn or replacement services override the line header
		if dep.Vehicle.Name != "" {
			name = dep.Vehicle.Name
		}
		if dep.Vehicle.Towards != "" {
			direction = dep.Vehicle.Towards
		}
		barrierFree = dep.Vehicle.BarrierFree
	}

	mode := ClassifyLine(name)

	d := Departure{
		StopID:        stopID,
		Line:          name,
		Direction:     strings.TrimSpace(direction),
		MinutesUntil:  max(dep.DepartureTime.Countdown, 0),
		ScheduledTime: "N/A",
		Mode:          mode,
		Color:         LineColor(name, mode),
		Platform:      line.Platform,
		BarrierFree:   barrierFree,
	}

	planned, plannedOK := parseUpstreamTime(dep.DepartureTime.TimePlanned)
	if plannedOK {
		d.ScheduledTime = planned.In(displayLocation()).Format("15:04")
	}

	if dep.DepartureTime.TimeReal != "" {
		if real, ok := parseUpstreamTime(dep.DepartureTime.TimeReal); ok {
			d.RealTime = real.In(displayLocation()).Format("15:04")
			d.IsRealtime = true
			if plannedOK {
				d.DelayMinutes = int(math.Round(real.Sub(planned).Minutes()))
			}
		}
	}

	return d
}

func parseUpstreamTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(upstreamTimeLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ClassifyLine infers the vehicle mode from a line code. "U"-prefixed
// codes are metro, purely numeric codes and the historic letter lines
// D and O are trams, anything else falls back to bus.
func ClassifyLine(name string) Mode {
	name = strings.TrimSpace(name)
	if name == "" {
		return ModeBus
	}
	if strings.HasPrefix(name, "U") {
		return ModeMetro
	}
	if name == "D" || name == "O" {
		return ModeTram
	}
	if isDigits(name) {
		return ModeTram
	}
	return ModeBus
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
