package stations

import (
	"testing"
)

const sample = `
stations:
  - name: Karlsplatz
    stops: ["1095", "1130"]
    lines: ["U1", "U2", "U4"]
  - name: Stephansplatz
    stops: ["1201"]
    lines: ["U1", "U3"]
  - name: Schottentor
    stops: ["1340", "1341"]
    lines: ["U2", "37", "38", "40", "41", "42"]
`

func load(t *testing.T) *Directory {
	t.Helper()
	d, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func TestSearchCaseInsensitive(t *testing.T) {
	d := load(t)

	hits := d.Search("platz")
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Name != "Karlsplatz" || hits[1].Name != "Stephansplatz" {
		t.Errorf("hits = %v", hits)
	}

	if got := d.Search("SCHOTTEN"); len(got) != 1 {
		t.Errorf("uppercase query hits = %d, want 1", len(got))
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	d := load(t)
	if got := d.Search("  "); got != nil {
		t.Errorf("empty query returned %v", got)
	}
}

func TestFind(t *testing.T) {
	d := load(t)
	st, ok := d.Find("karlsplatz")
	if !ok {
		t.Fatal("Find missed an existing station")
	}
	if len(st.Stops) != 2 {
		t.Errorf("stops = %v", st.Stops)
	}
	if _, ok := d.Find("Nowhere"); ok {
		t.Error("Find matched a missing station")
	}
}

func TestExpectedLines(t *testing.T) {
	d := load(t)
	lines := d.ExpectedLines("1340")
	if len(lines) != 6 {
		t.Errorf("lines = %v, want six", lines)
	}
	if d.ExpectedLines("9999") != nil {
		t.Error("unknown stop returned hint lines")
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("stations: {not a list}")); err == nil {
		t.Error("expected parse error")
	}
}
