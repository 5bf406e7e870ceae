package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	t.Run("Memory", func(t *testing.T) {
		cfg := &Config{}
		cfg.ApplyDefaults()
		assert.Equal(t, StoreMemory, cfg.Type)
		assert.Equal(t, 10000, cfg.Memory.Capacity)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("SQLite", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/var/lib/data")
		cfg := &Config{Type: StoreSQLite}
		cfg.ApplyDefaults()
		assert.Equal(t, "/var/lib/data/picopot/events.db", cfg.SQLite.Path)
	})

	t.Run("Postgres", func(t *testing.T) {
		cfg := &Config{Type: StorePostgres, Postgres: PostgresConfig{Host: "db", Database: "pot", User: "u", Password: "p"}}
		cfg.ApplyDefaults()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "host=db port=5432 user=u password=p dbname=pot sslmode=disable", cfg.Postgres.DSN())
	})
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, (&Config{Type: "mongo"}).Validate(), ErrUnknownStoreType)
	assert.Error(t, (&Config{Type: StorePostgres}).Validate())
	assert.Error(t, (&Config{Type: StoreBadger}).Validate())

	_, err := New(&Config{Type: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownStoreType)
}

func TestNewDefaultsToMemory(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &MemoryStore{}, s)
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindLogin.Valid())
	assert.False(t, Kind("exec").Valid())
}
