// Package stations loads the offline station dataset: rider-facing
// station names mapped to their stop codes, with the lines each stop is
// expected to serve. The expected-lines data is a display hint only and
// must never drive correctness decisions.
package stations

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Station is one rider-facing place with 1..N stop codes.
type Station struct {
	Name  string   `yaml:"name" json:"name"`
	Stops []string `yaml:"stops" json:"stops"`
	Lines []string `yaml:"lines,omitempty" json:"lines,omitempty"`
}

type dataset struct {
	Stations []Station `yaml:"stations"`
}

// Directory is the in-memory station index. Immutable after load.
type Directory struct {
	stations    []Station
	linesByStop map[string][]string
}

// Load reads the YAML dataset from path.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read station dataset: %w", err)
	}
	return Parse(data)
}

// Parse builds a directory from raw YAML.
func Parse(data []byte) (*Directory, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse station dataset: %w", err)
	}

	d := &Directory{
		stations:    ds.Stations,
		linesByStop: make(map[string][]string),
	}
	for _, st := range ds.Stations {
		for _, stop := range st.Stops {
			d.linesByStop[stop] = append(d.linesByStop[stop], st.Lines...)
		}
	}
	for stop, lines := range d.linesByStop {
		d.linesByStop[stop] = dedupe(lines)
	}
	return d, nil
}

// Search returns stations whose name contains q, case-insensitively.
// An empty query matches nothing.
func (d *Directory) Search(q string) []Station {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	var out []Station
	for _, st := range d.stations {
		if strings.Contains(strings.ToLower(st.Name), q) {
			out = append(out, st)
		}
	}
	return out
}

// Find returns the station with exactly the given name.
func (d *Directory) Find(name string) (Station, bool) {
	for _, st := range d.stations {
		if strings.EqualFold(st.Name, name) {
			return st, true
		}
	}
	return Station{}, false
}

// ExpectedLines implements the aggregator's hint source.
func (d *Directory) ExpectedLines(stopID string) []string {
	return d.linesByStop[stopID]
}

// Len returns the number of stations.
func (d *Directory) Len() int { return len(d.stations) }

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
