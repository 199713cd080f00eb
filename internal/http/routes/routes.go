package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wlboard/wlboard/departures"
	"github.com/wlboard/wlboard/internal/broker"
	"github.com/wlboard/wlboard/internal/feedback"
	appmw "github.com/wlboard/wlboard/internal/http/middleware"
	"github.com/wlboard/wlboard/internal/stations"
	"github.com/wlboard/wlboard/wl"
)

// maxStopsPerRequest bounds one aggregated board request.
const maxStopsPerRequest = 10

type Server struct {
	Router     *chi.Mux
	Broker     *broker.Service
	Aggregator *departures.Aggregator
	Stations   *stations.Directory
	Feedback   *feedback.Service
	Log        zerolog.Logger
}

type ServerOptions struct {
	Broker     *broker.Service
	Aggregator *departures.Aggregator
	Stations   *stations.Directory
	Feedback   *feedback.Service
	Identity   func(http.Handler) http.Handler
	Log        zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if opts.Identity != nil {
		r.Use(opts.Identity)
	} else {
		r.Use(appmw.ClientID(nil))
	}

	s := &Server{
		Router:     r,
		Broker:     opts.Broker,
		Aggregator: opts.Aggregator,
		Stations:   opts.Stations,
		Feedback:   opts.Feedback,
		Log:        opts.Log,
	}

	r.Get("/health", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/departures/{stopID}", s.getDepartures)
		r.Get("/monitors", s.getMonitors)
		r.Get("/stations", s.searchStations)
		r.Post("/feedback", s.postFeedback)
		r.Get("/feedback", s.listFeedback)
	})

	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// getDepartures is the proxy endpoint: upstream JSON passthrough on
// success, taxonomy-mapped status otherwise.
func (s *Server) getDepartures(w http.ResponseWriter, r *http.Request) {
	stopID := chi.URLParam(r, "stopID")
	clientID := appmw.ClientIDFromContext(r.Context())

	raw, err := s.Broker.GetDepartures(r.Context(), stopID, clientID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

type groupJSON struct {
	Line       string                 `json:"line"`
	Direction  string                 `json:"direction"`
	Mode       departures.Mode        `json:"mode"`
	Color      string                 `json:"color"`
	Departures []departures.Departure `json:"departures"`
}

type monitorsResponse struct {
	Departures []departures.Departure `json:"departures"`
	Groups     []groupJSON            `json:"groups"`
	Stats      *departures.Stats      `json:"stats"`
}

// getMonitors aggregates several stop codes into one parsed, grouped
// board. A station with one dead stop code still renders from the others.
func (s *Server) getMonitors(w http.ResponseWriter, r *http.Request) {
	stopIDs := splitStops(r.URL.Query().Get("stops"))
	if len(stopIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "validation_error", Message: "stops query parameter is required", Type: wl.KindValidation,
		})
		return
	}
	if len(stopIDs) > maxStopsPerRequest {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "validation_error", Message: "too many stop codes in one request", Type: wl.KindValidation,
		})
		return
	}

	clientID := appmw.ClientIDFromContext(r.Context())
	deps, stats, err := s.Aggregator.Aggregate(r.Context(), stopIDs, clientID)
	if err != nil {
		switch {
		case errors.Is(err, departures.ErrNoDepartures):
			// empty board, not a proxy failure
			writeJSON(w, http.StatusOK, monitorsResponse{
				Departures: []departures.Departure{}, Groups: []groupJSON{}, Stats: stats,
			})
		case errors.Is(err, departures.ErrAllInvalid):
			writeJSON(w, http.StatusNotFound, errorBody{
				Error: "all_invalid", Message: err.Error(), Type: wl.KindNotFound,
			})
		default:
			s.writeError(w, err)
		}
		return
	}

	board := departures.NewBoard(deps)
	groups := make([]groupJSON, 0, len(board.Groups))
	for _, g := range board.Groups {
		groups = append(groups, groupJSON{
			Line:       g.Line,
			Direction:  g.Direction,
			Mode:       g.Mode,
			Color:      g.Color,
			Departures: g.Departures,
		})
	}
	writeJSON(w, http.StatusOK, monitorsResponse{Departures: deps, Groups: groups, Stats: stats})
}

func (s *Server) searchStations(w http.ResponseWriter, r *http.Request) {
	if s.Stations == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: "stations_unavailable", Message: "station dataset not loaded", Type: wl.KindUnknown,
		})
		return
	}
	hits := s.Stations.Search(r.URL.Query().Get("q"))
	if hits == nil {
		hits = []stations.Station{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": hits})
}

func (s *Server) postFeedback(w http.ResponseWriter, r *http.Request) {
	if s.Feedback == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: "feedback_unavailable", Message: "feedback service not configured", Type: wl.KindUnknown,
		})
		return
	}

	var sub feedback.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "validation_error", Message: "malformed request body", Type: wl.KindValidation,
		})
		return
	}

	entry, err := s.Feedback.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, feedback.ErrInvalid) {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error: "validation_error", Message: err.Error(), Type: wl.KindValidation,
			})
			return
		}
		s.Log.Error().Err(err).Msg("feedback submit failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "internal_error", Message: "could not store feedback", Type: wl.KindUnknown,
		})
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	if s.Feedback == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: "feedback_unavailable", Message: "feedback service not configured", Type: wl.KindUnknown,
		})
		return
	}
	entries, err := s.Feedback.Recent(r.Context(), 50)
	if err != nil {
		s.Log.Error().Err(err).Msg("feedback list failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "internal_error", Message: "could not list feedback", Type: wl.KindUnknown,
		})
		return
	}
	if entries == nil {
		entries = []feedback.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"feedback": entries})
}

type errorBody struct {
	Error   string  `json:"error"`
	Message string  `json:"message"`
	Type    wl.Kind `json:"type,omitempty"`
}

type rateLimitBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// writeError maps a classified error onto the HTTP surface.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := wl.KindOf(err)
	msg := err.Error()

	switch kind {
	case wl.KindValidation:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: msg, Type: kind})
	case wl.KindRateLimited, wl.KindUpstreamRateLimited:
		retry := int(broker.RetryAfter / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		writeJSON(w, http.StatusTooManyRequests, rateLimitBody{
			Error: "rate_limited", Message: msg, RetryAfter: retry,
		})
	case wl.KindAccessDenied:
		writeJSON(w, http.StatusForbidden, errorBody{Error: "access_denied", Message: msg, Type: kind})
	case wl.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: msg, Type: kind})
	case wl.KindConnection:
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "upstream_unreachable", Message: msg, Type: kind})
	case wl.KindTimeout:
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "upstream_timeout", Message: msg, Type: kind})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "upstream_error", Message: msg, Type: kind})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func splitStops(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
