package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names
const (
	SpanSession = "telnet.session"
	SpanLogin   = "telnet.login"
	SpanCommand = "telnet.command"
)

// Attribute keys
const (
	AttrClientIP    = "client.ip"
	AttrClientAddr  = "client.address"
	AttrSessionID   = "session.id"
	AttrPhase       = "session.phase"
	AttrUsername    = "auth.username"
	AttrAuthSuccess = "auth.success"
	AttrCommand     = "shell.command"
	AttrArgCount    = "shell.arg_count"
	AttrPath        = "vfs.path"
	AttrEndReason   = "session.end_reason"
)

func ClientIP(ip string) attribute.KeyValue { return attribute.String(AttrClientIP, ip) }
func ClientAddr(addr string) attribute.KeyValue { return attribute.String(AttrClientAddr, addr) }
func SessionID(id string) attribute.KeyValue { return attribute.String(AttrSessionID, id) }
func Phase(phase string) attribute.KeyValue { return attribute.String(AttrPhase, phase) }
func Username(name string) attribute.KeyValue { return attribute.String(AttrUsername, name) }
func AuthSuccess(ok bool) attribute.KeyValue { return attribute.Bool(AttrAuthSuccess, ok) }
func Command(name string) attribute.KeyValue { return attribute.String(AttrCommand, name) }
func ArgCount(n int) attribute.KeyValue { return attribute.Int(AttrArgCount, n) }
func Path(p string) attribute.KeyValue { return attribute.String(AttrPath, p) }
func EndReason(r string) attribute.KeyValue { return attribute.String(AttrEndReason, r) }

// StartSessionSpan starts the root span covering one accepted connection.
func StartSessionSpan(ctx context.Context, sessionID, clientAddr string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanSession,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(SessionID(sessionID), ClientAddr(clientAddr)),
	)
}

// StartCommandSpan starts a span for one shell command.
func StartCommandSpan(ctx context.Context, command string, args []string, cwd string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanCommand,
		trace.WithAttributes(Command(command), ArgCount(len(args)), Path(cwd)),
	)
}

// StartLoginSpan starts a span covering credential collection.
func StartLoginSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanLogin, trace.WithAttributes(SessionID(sessionID)))
}
