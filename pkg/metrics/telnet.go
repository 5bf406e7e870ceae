package metrics

import "time"

// Login attempt stages and results.
const (
	StageUsername = "username"
	StagePassword = "password"

	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"
)

// TelnetMetrics provides observability for the telnet honeypot.
//
// Pass nil to disable metrics collection with zero overhead.
type TelnetMetrics interface {
	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	RecordConnectionClosed()

	// RecordConnectionForceClosed counts connections closed by the shutdown
	// timeout.
	RecordConnectionForceClosed()

	// RecordConnectionRejected counts connections turned away at the
	// connection limit.
	RecordConnectionRejected()

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordLoginAttempt records one credential submission.
	//   - stage: StageUsername or StagePassword
	//   - result: ResultSuccess, ResultFailure or ResultEmpty
	RecordLoginAttempt(stage, result string)

	// RecordCommand records a dispatched shell command. Unknown commands are
	// reported as "unknown" to bound label cardinality.
	RecordCommand(command string, failed bool)

	// RecordSession records the end of a session.
	//   - reason: why it ended (closed, timeout, auth_failed, line_too_long,
	//     shutdown, error)
	RecordSession(duration time.Duration, reason string, bytesReceived int64)
}

// NewTelnetMetrics returns the Prometheus implementation, or nil when
// metrics are disabled.
func NewTelnetMetrics() TelnetMetrics {
	if !IsEnabled() || newPrometheusTelnetMetrics == nil {
		return nil
	}
	return newPrometheusTelnetMetrics()
}

// newPrometheusTelnetMetrics is provided by pkg/metrics/prometheus, which
// depends on this package.
var newPrometheusTelnetMetrics func() TelnetMetrics

// RegisterTelnetMetricsConstructor registers the Prometheus constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterTelnetMetricsConstructor(constructor func() TelnetMetrics) {
	newPrometheusTelnetMetrics = constructor
}
