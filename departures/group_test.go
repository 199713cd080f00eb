package departures

import (
	"testing"
)

func dep(line, dir string, minutes int) Departure {
	mode := ClassifyLine(line)
	return Departure{
		Line:         line,
		Direction:    dir,
		MinutesUntil: minutes,
		Mode:         mode,
		Color:        LineColor(line, mode),
	}
}

func TestGroupSortsWithinBucket(t *testing.T) {
	groups := Group([]Departure{
		dep("U1", "X", 5),
		dep("U1", "X", 2),
	})

	bucket := groups[GroupKey{Line: "U1", Direction: "X"}]
	if len(bucket) != 2 {
		t.Fatalf("bucket len = %d, want 2", len(bucket))
	}
	if bucket[0].MinutesUntil != 2 || bucket[1].MinutesUntil != 5 {
		t.Errorf("bucket order = [%d %d], want [2 5]", bucket[0].MinutesUntil, bucket[1].MinutesUntil)
	}
}

func TestGroupSeparatesDirections(t *testing.T) {
	groups := Group([]Departure{
		dep("U1", "Leopoldau", 3),
		dep("U1", "Oberlaa", 4),
	})
	if len(groups) != 2 {
		t.Errorf("groups = %d, want 2 (same line, opposite directions)", len(groups))
	}
}

func TestGroupStableOnTies(t *testing.T) {
	first := dep("26", "X", 5)
	first.Platform = "1"
	second := dep("26", "X", 5)
	second.Platform = "2"

	bucket := Group([]Departure{first, second})[GroupKey{Line: "26", Direction: "X"}]
	if bucket[0].Platform != "1" || bucket[1].Platform != "2" {
		t.Error("tie broke upstream order")
	}
}

func TestBoardOrderAndDisclosure(t *testing.T) {
	board := NewBoard([]Departure{
		dep("13A", "Hauptbahnhof", 8),
		dep("U1", "Leopoldau", 2),
		dep("U1", "Leopoldau", 4),
		dep("U1", "Leopoldau", 9),
		dep("U1", "Leopoldau", 12),
		dep("U1", "Leopoldau", 17),
	})

	if len(board.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(board.Groups))
	}
	// soonest group first
	if board.Groups[0].Line != "U1" {
		t.Errorf("first group = %s, want U1", board.Groups[0].Line)
	}

	g := board.Groups[0]
	if len(g.Visible()) != 2 {
		t.Fatalf("initial visible = %d, want 2", len(g.Visible()))
	}
	if !g.HasMore() {
		t.Fatal("HasMore = false with 5 departures")
	}

	g.Reveal()
	if len(g.Visible()) != 4 {
		t.Errorf("visible after reveal = %d, want 4", len(g.Visible()))
	}
	g.Reveal()
	if len(g.Visible()) != 5 {
		t.Errorf("visible after second reveal = %d, want all 5", len(g.Visible()))
	}
	if g.HasMore() {
		t.Error("HasMore = true after everything disclosed")
	}
}

func TestBoardSmallGroupFullyVisible(t *testing.T) {
	board := NewBoard([]Departure{dep("O", "Praterstern", 1)})
	g := board.Groups[0]
	if len(g.Visible()) != 1 || g.HasMore() {
		t.Errorf("visible = %d hasMore = %v, want 1/false", len(g.Visible()), g.HasMore())
	}
}

func TestFormatCountdown(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "now"},
		{1, "1 min"},
		{7, "7 mins"},
		{-3, "now"},
	}

	for _, tt := range tests {
		if got := FormatCountdown(tt.minutes); got != tt.want {
			t.Errorf("FormatCountdown(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
