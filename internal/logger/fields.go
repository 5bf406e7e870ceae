package logger

import "log/slog"

// Standard field keys. Use these consistently so session logs can be
// aggregated and queried.
const (
	// Tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// Session & connection
	KeySessionID  = "session_id"
	KeyClientIP   = "client_ip"
	KeyClientAddr = "client_addr"
	KeyPhase      = "phase"
	KeyActive     = "active"

	// Interaction
	KeyUsername = "username"
	KeyPassword = "password"
	KeyCommand  = "command"
	KeyArgs     = "args"
	KeyPath     = "path"
	KeyResult   = "result"
	KeyReason   = "reason"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyBytes      = "bytes"
	KeyError      = "error"
	KeyStoreType  = "store_type"
	KeyAddress    = "address"
)

// SessionID returns a slog.Attr for the session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ClientIP returns a slog.Attr for the remote IP
func ClientIP(ip string) slog.Attr {
	return slog.String(KeyClientIP, ip)
}

// Command returns a slog.Attr for a shell command name
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// Path returns a slog.Attr for a virtual path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Err returns a slog.Attr for an error; a nil error yields an empty attr
// that handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
