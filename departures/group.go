package departures

import (
	"fmt"
	"sort"
)

const (
	// initialVisible departures per group; Reveal discloses revealStep more.
	initialVisible = 2
	revealStep     = 2
)

// GroupKey identifies one board row: a line heading one way.
type GroupKey struct {
	Line      string
	Direction string
}

// Group buckets departures by line and direction. Within each bucket the
// order is ascending by minutes, stable on ties so upstream order survives.
func Group(deps []Departure) map[GroupKey][]Departure {
	groups := make(map[GroupKey][]Departure)
	for _, d := range deps {
		key := GroupKey{Line: d.Line, Direction: d.Direction}
		groups[key] = append(groups[key], d)
	}
	for key, bucket := range groups {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].MinutesUntil < bucket[j].MinutesUntil
		})
		groups[key] = bucket
	}
	return groups
}

// GroupView is one rendered board row with its disclosure state. Revealing
// more rows is pure view state; nothing is re-fetched.
type GroupView struct {
	Line       string
	Direction  string
	Mode       Mode
	Color      string
	Departures []Departure

	visible int
}

// Visible returns the currently disclosed departures.
func (g *GroupView) Visible() []Departure {
	n := g.visible
	if n > len(g.Departures) {
		n = len(g.Departures)
	}
	return g.Departures[:n]
}

// HasMore reports whether Reveal would disclose anything.
func (g *GroupView) HasMore() bool {
	return g.visible < len(g.Departures)
}

// Reveal discloses the next batch.
func (g *GroupView) Reveal() {
	g.visible += revealStep
	if g.visible > len(g.Departures) {
		g.visible = len(g.Departures)
	}
}

// Board is the ordered set of group views for one display surface.
type Board struct {
	Groups []*GroupView
}

// NewBoard groups and orders departures for display: rows sorted by the
// imminence of their soonest departure, line name breaking ties.
func NewBoard(deps []Departure) *Board {
	grouped := Group(deps)
	views := make([]*GroupView, 0, len(grouped))
	for key, bucket := range grouped {
		views = append(views, &GroupView{
			Line:       key.Line,
			Direction:  key.Direction,
			Mode:       bucket[0].Mode,
			Color:      bucket[0].Color,
			Departures: bucket,
			visible:    initialVisible,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Departures[0].MinutesUntil != b.Departures[0].MinutesUntil {
			return a.Departures[0].MinutesUntil < b.Departures[0].MinutesUntil
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Direction < b.Direction
	})
	return &Board{Groups: views}
}

// FormatCountdown renders a countdown for display.
func FormatCountdown(minutes int) string {
	switch {
	case minutes <= 0:
		return "now"
	case minutes == 1:
		return "1 min"
	default:
		return fmt.Sprintf("%d mins", minutes)
	}
}
