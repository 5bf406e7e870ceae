package telnet

import (
	"fmt"
	"time"

	protocol "github.com/BERBARIANKING/fosscomm-2024/internal/telnet"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/session"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultPort            = 2323
	DefaultMaxConnections  = 512
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds the TELNET listener configuration.
//
// Default values (applied by ApplyDefaults if zero):
//   - Port: 2323 (non-privileged, standard is 23)
//   - MaxConnections: 512 (-1 for unlimited)
//   - IdleTimeout: 60s
//   - ReceiveSize: 1024
//   - MaxLineLength: 4096 (-1 for unlimited)
//   - Hostname: pico-honeypot
type Config struct {
	// BindAddress is the IP address to bind to. Empty binds to all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the TCP port to listen on. Standard TELNET is 23, which requires root.
	Port int `mapstructure:"port" validate:"min=0,max=65535" yaml:"port"`

	// MaxConnections limits concurrent sessions. Extra connections are closed
	// as soon as they are accepted.
	MaxConnections int `mapstructure:"max_connections" validate:"min=-1" yaml:"max_connections"`

	// IdleTimeout closes a session that sends nothing for this long. The
	// deadline is renewed before every read.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"min=0" yaml:"idle_timeout"`

	// ReceiveSize is the size of a single socket read.
	ReceiveSize int `mapstructure:"receive_size" validate:"min=0,max=65536" yaml:"receive_size"`

	// MaxLineLength bounds the bytes buffered for one input line. -1 removes
	// the bound.
	MaxLineLength int `mapstructure:"max_line_length" validate:"min=-1" yaml:"max_line_length"`

	// Hostname is shown in the banner.
	Hostname string `mapstructure:"hostname" validate:"max=255" yaml:"hostname"`

	// MetricsLogInterval periodically logs the active session count.
	// 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0" yaml:"metrics_log_interval"`

	// ShutdownTimeout bounds the wait for active sessions on shutdown.
	// Set from the top-level shutdown_timeout.
	ShutdownTimeout time.Duration `mapstructure:"-" yaml:"-"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ReceiveSize == 0 {
		c.ReceiveSize = protocol.DefaultReceiveSize
	}
	if c.MaxLineLength == 0 {
		c.MaxLineLength = protocol.DefaultMaxLineLength
	}
	if c.Hostname == "" {
		c.Hostname = session.DefaultHostname
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func (c *Config) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative")
	}
	if c.ReceiveSize < 1 {
		return fmt.Errorf("receive_size must be positive")
	}
	if c.MaxLineLength < -1 {
		return fmt.Errorf("max_line_length must be -1 (unlimited) or positive")
	}
	return nil
}

// maxConnections converts the configured limit to the BaseAdapter form,
// where 0 is unlimited.
func (c *Config) maxConnections() int {
	if c.MaxConnections < 0 {
		return 0
	}
	return c.MaxConnections
}
