// Package departures turns raw monitor payloads into normalized, sorted,
// grouped departure records, and drives the per-stop fetch sequence for
// stations that span several stop codes.
package departures

// Mode is the vehicle category inferred from the line code.
type Mode string

const (
	ModeMetro Mode = "metro"
	ModeTram  Mode = "tram"
	ModeBus   Mode = "bus"
	ModeInfo  Mode = "info"
)

// Departure is one normalized pending vehicle. Built fresh each refresh
// cycle and never mutated afterwards.
type Departure struct {
	StopID        string `json:"stopId"`
	Line          string `json:"line"`
	Direction     string `json:"direction"`
	MinutesUntil  int    `json:"minutesUntil"`
	ScheduledTime string `json:"scheduledTime"`
	RealTime      string `json:"realTime,omitempty"`
	DelayMinutes  int    `json:"delayMinutes"`
	IsRealtime    bool   `json:"isRealtime"`
	Mode          Mode   `json:"mode"`
	Color         string `json:"color"`
	Platform      string `json:"platform,omitempty"`
	BarrierFree   bool   `json:"barrierFree"`
}

// StopStatus is the per-stop outcome of one aggregation pass.
type StopStatus string

const (
	StatusLoading StopStatus = "loading"
	StatusSuccess StopStatus = "success"
	StatusNoData  StopStatus = "no_data"
	StatusError   StopStatus = "error"
	StatusInvalid StopStatus = "invalid"
)

// StopDetail records what a single stop code contributed.
type StopDetail struct {
	Status         StopStatus `json:"status"`
	Lines          []string   `json:"lines,omitempty"`
	ExpectedLines  []string   `json:"expectedLines,omitempty"`
	DepartureCount int        `json:"departureCount"`
	Error          string     `json:"error,omitempty"`
}

// Stats is the side-channel built during one aggregation pass. Read-only
// once the pass completes; the next refresh replaces it wholesale.
type Stats struct {
	Total      int                    `json:"total"`
	Successful int                    `json:"successful"`
	Failed     []string               `json:"failed,omitempty"`
	Invalid    []string               `json:"invalid,omitempty"`
	PerStop    map[string]*StopDetail `json:"perStopDetails"`
}
