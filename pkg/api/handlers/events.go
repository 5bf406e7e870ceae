package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/BERBARIANKING/fosscomm-2024/internal/logger"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 1000

// EventsHandler exposes the event journal.
type EventsHandler struct {
	store events.Store
}

// NewEventsHandler creates an events handler backed by store.
func NewEventsHandler(store events.Store) *EventsHandler {
	return &EventsHandler{store: store}
}

// EventList is the payload of GET /api/v1/events.
type EventList struct {
	Count  int            `json:"count"`
	Events []events.Event `json:"events"`
}

// List handles GET /api/v1/events.
//
// Query parameters: kind, session, since (RFC 3339) and limit
// (1..MaxListLimit, default events.DefaultListLimit). Newest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		ServiceUnavailable(w, "event store not initialized")
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	list, err := h.store.List(r.Context(), filter)
	if err != nil {
		logger.ErrorCtx(r.Context(), "failed to list events", logger.KeyError, err)
		InternalServerError(w, "Failed to list events")
		return
	}
	if list == nil {
		list = []events.Event{}
	}

	writeJSON(w, http.StatusOK, okResponse(EventList{Count: len(list), Events: list}))
}

func parseFilter(r *http.Request) (events.Filter, error) {
	q := r.URL.Query()
	var f events.Filter

	if kind := q.Get("kind"); kind != "" {
		f.Kind = events.Kind(kind)
		if !f.Kind.Valid() {
			return f, fmt.Errorf("unknown kind %q", kind)
		}
	}

	f.SessionID = q.Get("session")

	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return f, fmt.Errorf("since must be an RFC 3339 timestamp")
		}
		f.Since = t
	}

	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 || n > MaxListLimit {
			return f, fmt.Errorf("limit must be between 1 and %d", MaxListLimit)
		}
		f.Limit = n
	}

	return f, nil
}
