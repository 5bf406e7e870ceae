package config

import (
	"testing"
	"time"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_Telnet(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telnet.Port != 2323 {
		t.Errorf("Expected default port 2323, got %d", cfg.Telnet.Port)
	}
	if cfg.Telnet.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.Telnet.IdleTimeout)
	}
	if cfg.Telnet.ReceiveSize != 1024 {
		t.Errorf("Expected default receive size 1024, got %d", cfg.Telnet.ReceiveSize)
	}
	if cfg.Telnet.Hostname != "pico-honeypot" {
		t.Errorf("Expected default hostname 'pico-honeypot', got %q", cfg.Telnet.Hostname)
	}
}

func TestApplyDefaults_CredentialsAndFilesystem(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Credentials.Username != "admin" || cfg.Credentials.Password != "password" {
		t.Errorf("Expected admin/password, got %s/%s", cfg.Credentials.Username, cfg.Credentials.Password)
	}
	if cfg.Filesystem.StartPath != "/home" {
		t.Errorf("Expected start path '/home', got %q", cfg.Filesystem.StartPath)
	}
	if cfg.Events.Type != events.StoreMemory || cfg.Events.Memory.Capacity != 10000 {
		t.Errorf("Expected memory store with 10000 events, got %q/%d", cfg.Events.Type, cfg.Events.Memory.Capacity)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port while disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:         LoggingConfig{Level: "DEBUG", Format: "json", Output: "stderr"},
		ShutdownTimeout: 5 * time.Second,
		Credentials:     CredentialsConfig{Username: "root", Password: "toor"},
		Filesystem:      FilesystemConfig{StartPath: "/var"},
	}
	cfg.Telnet.Port = 23
	cfg.API.Port = 9000

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" || cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Logging values were overwritten: %+v", cfg.Logging)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Telnet.Port != 23 || cfg.API.Port != 9000 {
		t.Errorf("Ports were overwritten: telnet=%d api=%d", cfg.Telnet.Port, cfg.API.Port)
	}
	if cfg.Credentials.Username != "root" || cfg.Filesystem.StartPath != "/var" {
		t.Errorf("Explicit values were overwritten")
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Default config should be valid, got: %v", err)
	}
}
