package telnet

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/BERBARIANKING/fosscomm-2024/internal/logger"
	"github.com/BERBARIANKING/fosscomm-2024/internal/telemetry"
	protocol "github.com/BERBARIANKING/fosscomm-2024/internal/telnet"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/session"
)

// Session end reasons, used in disconnect events and metrics.
const (
	ReasonClosed      = "closed"
	ReasonTimeout     = "timeout"
	ReasonAuthFailed  = "auth_failed"
	ReasonLineTooLong = "line_too_long"
	ReasonShutdown    = "shutdown"
	ReasonError       = "error"
)

// errShutdown is returned by reads once the server is shutting down.
var errShutdown = errors.New("server shutting down")

// Connection handles a single TELNET client connection.
type Connection struct {
	server *Adapter
	conn   net.Conn
	id     string
	start  time.Time
}

// NewConnection creates a connection handler with a fresh session ID.
func NewConnection(server *Adapter, conn net.Conn) *Connection {
	return &Connection{
		server: server,
		conn:   conn,
		id:     uuid.NewString(),
		start:  time.Now(),
	}
}

// Serve runs the session to completion and closes the socket.
func (c *Connection) Serve(ctx context.Context) {
	clientAddr := c.conn.RemoteAddr().String()

	ctx, span := telemetry.StartSessionSpan(ctx, c.id, clientAddr)
	defer span.End()

	lc := logger.NewLogContext(c.id, hostOf(clientAddr))
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		lc = lc.WithTrace(traceID, telemetry.SpanID(ctx))
	}
	ctx = logger.WithContext(ctx, lc)

	var sess *session.Session
	reason := ReasonError
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "Panic in TELNET session",
				logger.KeyError, r,
				"stack", string(debug.Stack()))
			reason = ReasonError
		}
		c.finish(ctx, sess, reason)
	}()

	logger.InfoCtx(ctx, "connection accepted", logger.KeyClientAddr, clientAddr)
	c.record(ctx, &events.Event{Kind: events.KindConnect, Success: true})

	stream := &idleStream{
		conn:     c.conn,
		timeout:  c.server.config.IdleTimeout,
		shutdown: c.server.Shutdown,
	}

	opts := []session.Option{
		session.WithID(c.id),
		session.WithRemoteAddr(clientAddr),
	}
	if c.server.recorder != nil {
		opts = append(opts, session.WithRecorder(c.server.recorder))
	}
	if c.server.metrics != nil {
		opts = append(opts, session.WithMetrics(c.server.metrics))
	}

	var err error
	sess, err = session.New(stream, c.server.sessionConfig(), opts...)
	if err != nil {
		logger.ErrorCtx(ctx, "failed to create session", logger.KeyError, err)
		return
	}

	err = sess.Run(ctx)
	reason = c.endReason(err)
	if reason == ReasonError {
		logger.WarnCtx(ctx, "session failed", logger.KeyError, err)
	}
}

// endReason classifies the value returned by Session.Run.
func (c *Connection) endReason(err error) string {
	select {
	case <-c.server.Shutdown:
		if err != nil {
			return ReasonShutdown
		}
	default:
	}

	switch {
	case err == nil:
		return ReasonAuthFailed
	case errors.Is(err, protocol.ErrConnectionClosed):
		return ReasonClosed
	case errors.Is(err, protocol.ErrLineTooLong):
		return ReasonLineTooLong
	case errors.Is(err, errShutdown), errors.Is(err, context.Canceled):
		return ReasonShutdown
	case protocol.IsTimeout(err):
		return ReasonTimeout
	default:
		return ReasonError
	}
}

// finish closes the socket and reports the end of the session.
func (c *Connection) finish(ctx context.Context, sess *session.Session, reason string) {
	_ = c.conn.Close()

	duration := time.Since(c.start)
	var received int64
	if sess != nil {
		received = sess.BytesReceived()
	}

	telemetry.SetAttributes(ctx, telemetry.EndReason(reason))
	if c.server.metrics != nil {
		c.server.metrics.RecordSession(duration, reason, received)
	}

	// The disconnect must be journaled even when shutdown cancelled ctx.
	c.record(context.WithoutCancel(ctx), &events.Event{
		Kind:       events.KindDisconnect,
		Reason:     reason,
		DurationMs: duration.Milliseconds(),
	})

	logger.InfoCtx(ctx, "connection closed",
		logger.KeyReason, reason,
		logger.KeyBytes, received,
		logger.KeyDurationMs, duration.Milliseconds())
}

func (c *Connection) record(ctx context.Context, e *events.Event) {
	if c.server.recorder == nil {
		return
	}
	e.SessionID = c.id
	e.RemoteAddr = c.conn.RemoteAddr().String()
	if err := c.server.recorder.Record(ctx, e); err != nil {
		logger.WarnCtx(ctx, "failed to record event", "kind", e.Kind, logger.KeyError, err)
	}
}

// idleStream renews the idle deadline before every read and stops reading
// once the server is shutting down.
type idleStream struct {
	conn     net.Conn
	timeout  time.Duration
	shutdown <-chan struct{}
}

func (s *idleStream) Read(p []byte) (int, error) {
	if s.timeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			return 0, err
		}
	}
	// Checked after the deadline is set so that the shutdown interrupt,
	// which sets its own deadline, is never overwritten unnoticed.
	select {
	case <-s.shutdown:
		return 0, errShutdown
	default:
	}
	return s.conn.Read(p)
}

func (s *idleStream) Write(p []byte) (int, error) {
	if s.timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return 0, err
		}
	}
	return s.conn.Write(p)
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
