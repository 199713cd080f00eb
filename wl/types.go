package wl

import "encoding/json"

// MonitorResponse is the envelope returned by the realtime monitor API.
type MonitorResponse struct {
	Data    MonitorData `json:"data"`
	Message Message     `json:"message"`
}

// MonitorData holds the monitors for one stop code. A stop with no
// service right now legitimately returns zero monitors.
type MonitorData struct {
	Monitors []Monitor `json:"monitors"`
}

// Message carries the upstream status. MessageCode 1 means success;
// MessageCode 316 means the upstream applied its own rate limit.
type Message struct {
	Value       string `json:"value"`
	MessageCode int    `json:"messageCode"`
	ServerTime  string `json:"serverTime"`
}

const (
	// CodeOK is the upstream success message code.
	CodeOK = 1
	// CodeRateLimited is the upstream's own request-quota message code.
	CodeRateLimited = 316
)

// Monitor is the realtime unit for a single stop code.
type Monitor struct {
	LocationStop LocationStop `json:"locationStop"`
	Lines        []Line       `json:"lines"`
}

// LocationStop identifies the physical platform the monitor belongs to.
type LocationStop struct {
	Properties StopProperties `json:"properties"`
}

type StopProperties struct {
	Name       string         `json:"name"`
	Title      string         `json:"title"`
	Attributes StopAttributes `json:"attributes"`
}

type StopAttributes struct {
	RBL int `json:"rbl"`
}

// Line is one service passing the monitored stop, with its pending departures.
type Line struct {
	Name              string     `json:"name"`
	Towards           string     `json:"towards"`
	Direction         string     `json:"direction"`
	Platform          string     `json:"platform"`
	RichText          string     `json:"richText,omitempty"`
	BarrierFree       bool       `json:"barrierFree"`
	RealtimeSupported bool       `json:"realtimeSupported"`
	Type              string     `json:"type"`
	Departures        Departures `json:"departures"`
}

type Departures struct {
	Departure []Departure `json:"departure"`
}

// Departure is a single pending vehicle.
type Departure struct {
	DepartureTime DepartureTime `json:"departureTime"`
	Vehicle       *Vehicle      `json:"vehicle,omitempty"`
}

// DepartureTime carries the planned and, when realtime data exists, actual
// timestamps plus the upstream-computed countdown in minutes.
type DepartureTime struct {
	TimePlanned string `json:"timePlanned"`
	TimeReal    string `json:"timeReal,omitempty"`
	Countdown   int    `json:"countdown"`
}

// Vehicle overrides line-level fields for individual departures
// (short-turn services, replacement buses).
type Vehicle struct {
	Name        string `json:"name"`
	Towards     string `json:"towards"`
	BarrierFree bool   `json:"barrierFree"`
	Type        string `json:"type"`
}

// Raw is an upstream response body kept verbatim for passthrough and caching.
type Raw = json.RawMessage
