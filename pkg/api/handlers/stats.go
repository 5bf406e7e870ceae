package handlers

import (
	"net/http"
	"time"
)

// SessionCounter reports the number of live TELNET sessions.
type SessionCounter interface {
	GetActiveConnections() int32
}

// StatsHandler serves runtime statistics.
type StatsHandler struct {
	sessions SessionCounter
	started  time.Time
}

// NewStatsHandler creates a stats handler. sessions may be nil.
func NewStatsHandler(sessions SessionCounter, started time.Time) *StatsHandler {
	return &StatsHandler{sessions: sessions, started: started}
}

// Stats is the payload of GET /api/v1/stats.
type Stats struct {
	ActiveSessions int32     `json:"active_sessions"`
	StartedAt      time.Time `json:"started_at"`
	Uptime         string    `json:"uptime"`
}

// Get handles GET /api/v1/stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var active int32
	if h.sessions != nil {
		active = h.sessions.GetActiveConnections()
	}

	writeJSON(w, http.StatusOK, okResponse(Stats{
		ActiveSessions: active,
		StartedAt:      h.started.UTC(),
		Uptime:         time.Since(h.started).Truncate(time.Second).String(),
	}))
}
