package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

func TestBuildFilter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	f, err := buildFilter("login", "s1", time.Hour, 10, now)
	require.NoError(t, err)
	assert.Equal(t, events.KindLogin, f.Kind)
	assert.Equal(t, "s1", f.SessionID)
	assert.Equal(t, now.Add(-time.Hour), f.Since)
	assert.Equal(t, 10, f.Limit)

	f, err = buildFilter("", "", 0, 50, now)
	require.NoError(t, err)
	assert.True(t, f.Since.IsZero())
	assert.Empty(t, f.Kind)

	tests := []struct {
		name  string
		kind  string
		since time.Duration
		limit int
	}{
		{"unknown kind", "shell", 0, 10},
		{"negative since", "", -time.Minute, 10},
		{"zero limit", "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildFilter(tt.kind, "", tt.since, tt.limit, now)
			assert.Error(t, err)
		})
	}
}

func TestPurgeStore(t *testing.T) {
	cfg := &events.Config{
		Type:   events.StoreSQLite,
		SQLite: events.SQLiteConfig{Path: filepath.Join(t.TempDir(), "events.db")},
	}

	store, err := events.New(cfg)
	require.NoError(t, err)
	for _, kind := range []events.Kind{events.KindConnect, events.KindLogin, events.KindDisconnect} {
		require.NoError(t, store.Record(context.Background(), &events.Event{SessionID: "s1", Kind: kind}))
	}
	require.NoError(t, store.Close())

	n, err := purgeStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = purgeStore(cfg)
	require.NoError(t, err)
	assert.Zero(t, n)
}
