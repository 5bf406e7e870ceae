package events

import (
	"fmt"
	"os"
	"path/filepath"
)

// StoreType selects the event store backend.
type StoreType string

const (
	StoreMemory   StoreType = "memory"
	StoreBadger   StoreType = "badger"
	StoreSQLite   StoreType = "sqlite"
	StorePostgres StoreType = "postgres"
)

// MemoryConfig configures the in-memory ring.
type MemoryConfig struct {
	// Capacity is the number of events kept before the oldest are dropped.
	Capacity int `mapstructure:"capacity" yaml:"capacity" validate:"omitempty,min=1"`
}

// BadgerConfig configures the embedded BadgerDB journal.
type BadgerConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// SQLiteConfig configures the SQLite journal.
type SQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresConfig configures the PostgreSQL journal.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"omitempty,min=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"omitempty,min=0"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += " sslmode=" + c.SSLMode
	}
	return dsn
}

// Config selects and configures the event store.
type Config struct {
	Type     StoreType      `mapstructure:"type" yaml:"type" validate:"omitempty,oneof=memory badger sqlite postgres"`
	Memory   MemoryConfig   `mapstructure:"memory" yaml:"memory"`
	Badger   BadgerConfig   `mapstructure:"badger" yaml:"badger"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *Config) ApplyDefaults() {
	if c.Type == "" {
		c.Type = StoreMemory
	}

	switch c.Type {
	case StoreMemory:
		if c.Memory.Capacity == 0 {
			c.Memory.Capacity = 10000
		}
	case StoreBadger:
		if c.Badger.Path == "" {
			c.Badger.Path = filepath.Join(dataDir(), "events")
		}
	case StoreSQLite:
		if c.SQLite.Path == "" {
			c.SQLite.Path = filepath.Join(dataDir(), "events.db")
		}
	case StorePostgres:
		if c.Postgres.Port == 0 {
			c.Postgres.Port = 5432
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxOpenConns == 0 {
			c.Postgres.MaxOpenConns = 10
		}
		if c.Postgres.MaxIdleConns == 0 {
			c.Postgres.MaxIdleConns = 2
		}
	}
}

// Validate checks backend specific requirements.
func (c *Config) Validate() error {
	switch c.Type {
	case StoreMemory:
		if c.Memory.Capacity <= 0 {
			return fmt.Errorf("memory capacity must be positive")
		}
	case StoreBadger:
		if c.Badger.Path == "" {
			return fmt.Errorf("badger path is required")
		}
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case StorePostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreType, c.Type)
	}
	return nil
}

// dataDir returns $XDG_DATA_HOME/picopot, falling back to ~/.local/share.
func dataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "picopot-data"
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "picopot")
}
