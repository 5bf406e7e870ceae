// Package prometheus implements the metrics interfaces on top of the
// Prometheus client. Import it for side effects to enable the constructors.
package prometheus

import (
	"time"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterTelnetMetricsConstructor(func() metrics.TelnetMetrics {
		return NewTelnetMetrics()
	})
}

// knownCommands bounds the command label.
var knownCommands = map[string]bool{"ls": true, "cd": true, "cat": true, "pwd": true}

type telnetMetrics struct {
	connectionsAccepted    prometheus.Counter
	connectionsClosed      prometheus.Counter
	connectionsForceClosed prometheus.Counter
	connectionsRejected    prometheus.Counter
	activeConnections      prometheus.Gauge
	loginAttempts          *prometheus.CounterVec
	commands               *prometheus.CounterVec
	sessionDuration        *prometheus.HistogramVec
	bytesReceived          prometheus.Counter
}

// NewTelnetMetrics creates the telnet metrics on the shared registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewTelnetMetrics() *telnetMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	f := promauto.With(metrics.GetRegistry())

	return &telnetMetrics{
		connectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "picopot_connections_accepted_total",
			Help: "Total number of accepted telnet connections",
		}),
		connectionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "picopot_connections_closed_total",
			Help: "Total number of closed telnet connections",
		}),
		connectionsForceClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "picopot_connections_force_closed_total",
			Help: "Total number of connections force-closed after the shutdown timeout",
		}),
		connectionsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "picopot_connections_rejected_total",
			Help: "Total number of connections rejected at the connection limit",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "picopot_active_connections",
			Help: "Current number of active telnet connections",
		}),
		loginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "picopot_login_attempts_total",
			Help: "Credential submissions by stage and result",
		}, []string{"stage", "result"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "picopot_commands_total",
			Help: "Shell commands received by command and outcome",
		}, []string{"command", "outcome"}),
		sessionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "picopot_session_duration_seconds",
			Help:    "Session duration by end reason",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		}, []string{"reason"}),
		bytesReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "picopot_bytes_received_total",
			Help: "Raw bytes received from peers, negotiation included",
		}),
	}
}

func (m *telnetMetrics) RecordConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *telnetMetrics) RecordConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsClosed.Inc()
}

func (m *telnetMetrics) RecordConnectionForceClosed() {
	if m == nil {
		return
	}
	m.connectionsForceClosed.Inc()
}

func (m *telnetMetrics) RecordConnectionRejected() {
	if m == nil {
		return
	}
	m.connectionsRejected.Inc()
}

func (m *telnetMetrics) SetActiveConnections(count int32) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(count))
}

func (m *telnetMetrics) RecordLoginAttempt(stage, result string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(stage, result).Inc()
}

func (m *telnetMetrics) RecordCommand(command string, failed bool) {
	if m == nil {
		return
	}
	if !knownCommands[command] {
		command = "unknown"
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.commands.WithLabelValues(command, outcome).Inc()
}

func (m *telnetMetrics) RecordSession(duration time.Duration, reason string, bytesReceived int64) {
	if m == nil {
		return
	}
	m.sessionDuration.WithLabelValues(reason).Observe(duration.Seconds())
	if bytesReceived > 0 {
		m.bytesReceived.Add(float64(bytesReceived))
	}
}

var _ metrics.TelnetMetrics = (*telnetMetrics)(nil)
