package apiclient

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/api/handlers"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

// Health is the result of the liveness probe.
type Health struct {
	Status    string    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Service   string    `json:"service" yaml:"service"`
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var data struct {
		Service string `json:"service"`
	}
	env, err := c.get(ctx, "/health", nil, &data)
	if err != nil {
		return nil, err
	}
	return &Health{Status: env.Status, Timestamp: env.Timestamp, Service: data.Service}, nil
}

// Ready calls GET /health/ready. It returns an *APIError with status 503
// while the event store is unhealthy.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.get(ctx, "/health/ready", nil, nil)
	return err
}

// Stats calls GET /api/v1/stats.
func (c *Client) Stats(ctx context.Context) (*handlers.Stats, error) {
	var stats handlers.Stats
	if _, err := c.get(ctx, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Events calls GET /api/v1/events. Results are newest first.
func (c *Client) Events(ctx context.Context, f events.Filter) ([]events.Event, error) {
	query := url.Values{}
	if f.Kind != "" {
		query.Set("kind", string(f.Kind))
	}
	if f.SessionID != "" {
		query.Set("session", f.SessionID)
	}
	if !f.Since.IsZero() {
		query.Set("since", f.Since.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		query.Set("limit", strconv.Itoa(f.Limit))
	}

	var list handlers.EventList
	if _, err := c.get(ctx, "/api/v1/events", query, &list); err != nil {
		return nil, err
	}
	return list.Events, nil
}
