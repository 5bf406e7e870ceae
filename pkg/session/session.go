// Package session drives one honeypot connection: banner, credential
// capture and the fake shell.
//
// A Session is bound to a single byte stream and owns its cursor and line
// buffer. Sessions share only the read-only filesystem tree and credentials.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/BERBARIANKING/fosscomm-2024/internal/logger"
	"github.com/BERBARIANKING/fosscomm-2024/internal/telemetry"
	"github.com/BERBARIANKING/fosscomm-2024/internal/telnet"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/metrics"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/vfs"
)

// Phase is the protocol phase of a session.
type Phase int

const (
	PhaseAwaitingUsername Phase = iota
	PhaseAwaitingPassword
	PhaseAuthenticated
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingUsername:
		return "username"
	case PhaseAwaitingPassword:
		return "password"
	case PhaseAuthenticated:
		return "shell"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Wire strings.
const (
	DefaultHostname  = "pico-honeypot"
	DefaultStartPath = "/home"

	promptLogin    = "login: "
	promptPassword = "password: "
	promptShell    = "> "

	// Login-phase messages are framed with \r\n; shell output ends in a
	// bare \n.
	msgNoInput      = "\r\nError: No input received. Connection closed.\r\n"
	msgLoginFailed  = "\r\nLogin failed.\r\n"
	msgLoginSuccess = "\r\nLogin successful.\r\n"
)

// Config holds the settings shared by every session.
type Config struct {
	// Hostname is shown in the banner.
	Hostname string

	Credentials Credentials

	// Tree is the filesystem presented after login. Nil selects vfs.DefaultTree.
	Tree *vfs.Tree

	// StartPath is the initial working directory, and the top the shell
	// cannot leave.
	StartPath string

	// ReceiveSize is the size of a single read.
	ReceiveSize int

	// MaxLineLength bounds a single input line. Zero or negative disables the
	// limit.
	MaxLineLength int
}

// Option customizes a Session.
type Option func(*Session)

// WithID sets the session identifier. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithRemoteAddr sets the peer address used in logs and events.
func WithRemoteAddr(addr string) Option {
	return func(s *Session) { s.remoteAddr = addr }
}

// WithRecorder journals login and command events to r.
func WithRecorder(r events.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithMetrics reports login and command metrics to m.
func WithMetrics(m metrics.TelnetMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session is the state of one connection.
type Session struct {
	id         string
	remoteAddr string
	cfg        Config
	stream     io.ReadWriter
	reader     *telnet.LineReader
	cursor     *vfs.Cursor
	phase      Phase
	recorder   events.Recorder
	metrics    metrics.TelnetMetrics
	lc         *logger.LogContext
}

// New binds a session to stream. The caller keeps ownership of the stream
// and must close it once Run returns.
func New(stream io.ReadWriter, cfg Config, opts ...Option) (*Session, error) {
	if cfg.Hostname == "" {
		cfg.Hostname = DefaultHostname
	}
	if cfg.StartPath == "" {
		cfg.StartPath = DefaultStartPath
	}
	if cfg.Tree == nil {
		cfg.Tree = vfs.DefaultTree()
	}

	cursor, err := vfs.NewCursor(cfg.Tree, cfg.StartPath)
	if err != nil {
		return nil, fmt.Errorf("invalid start path: %w", err)
	}

	s := &Session{
		cfg:    cfg,
		stream: stream,
		reader: telnet.NewLineReader(stream, cfg.ReceiveSize, cfg.MaxLineLength),
		cursor: cursor,
		phase:  PhaseAwaitingUsername,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.lc = logger.NewLogContext(s.id, clientIP(s.remoteAddr))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Cwd returns the current working directory.
func (s *Session) Cwd() string { return s.cursor.String() }

// BytesReceived returns the raw bytes read from the peer so far.
func (s *Session) BytesReceived() int64 { return s.reader.BytesReceived() }

// Run drives the session until it ends.
//
// It returns nil when the peer fails to authenticate (the rejection has been
// sent), telnet.ErrConnectionClosed when the peer goes away, the read error
// when the idle deadline expires, and ctx.Err() when ctx is cancelled
// between lines. Run never closes the stream.
func (s *Session) Run(ctx context.Context) error {
	defer func() { s.phase = PhaseClosed }()

	if err := s.send(string(telnet.WillEcho()) + "\r\n" + s.cfg.Hostname + "\r\n\r\n" + promptLogin); err != nil {
		return err
	}

	ok, err := s.authenticate(ctx)
	if err != nil || !ok {
		return err
	}
	return s.shell(ctx)
}

// authenticate collects the username then the password. It reports false
// after sending a rejection.
func (s *Session) authenticate(ctx context.Context) (bool, error) {
	ctx, span := telemetry.StartLoginSpan(ctx, s.id)
	defer span.End()

	username, err := s.readLine(ctx)
	if err != nil {
		return false, err
	}
	if ok, err := s.checkStage(ctx, metrics.StageUsername, username, s.cfg.Credentials.usernameMatches(username), username, ""); !ok || err != nil {
		return false, err
	}

	s.phase = PhaseAwaitingPassword
	if err := s.send(promptPassword); err != nil {
		return false, err
	}

	password, err := s.readLine(ctx)
	if err != nil {
		return false, err
	}
	if ok, err := s.checkStage(ctx, metrics.StagePassword, password, s.cfg.Credentials.passwordMatches(password), username, password); !ok || err != nil {
		return false, err
	}

	s.phase = PhaseAuthenticated
	s.recordLogin(ctx, username, password, true)
	telemetry.SetAttributes(ctx, telemetry.Username(username), telemetry.AuthSuccess(true))
	logger.InfoCtx(s.logCtx(ctx, ""), "login succeeded", logger.KeyUsername, username)
	return true, s.send(msgLoginSuccess)
}

// checkStage handles a submitted credential. On rejection it journals the
// attempt and sends the matching message.
func (s *Session) checkStage(ctx context.Context, stage, input string, matched bool, username, password string) (bool, error) {
	switch {
	case input == "":
		s.recordAttempt(stage, metrics.ResultEmpty)
		s.recordLogin(ctx, username, password, false)
		logger.InfoCtx(s.logCtx(ctx, ""), "login rejected", logger.KeyReason, "no input", "stage", stage)
		return false, s.send(msgNoInput)
	case !matched:
		s.recordAttempt(stage, metrics.ResultFailure)
		s.recordLogin(ctx, username, password, false)
		logger.InfoCtx(s.logCtx(ctx, ""), "login rejected", logger.KeyReason, "mismatch", "stage", stage,
			logger.KeyUsername, username, logger.KeyPassword, password)
		telemetry.SetAttributes(ctx, telemetry.Username(username), telemetry.AuthSuccess(false))
		return false, s.send(msgLoginFailed)
	default:
		s.recordAttempt(stage, metrics.ResultSuccess)
		return true, nil
	}
}

// shell runs the command loop until the stream fails or ctx is cancelled.
func (s *Session) shell(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.send(promptShell); err != nil {
			return err
		}

		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := s.execute(ctx, line, fields[0], fields[1:]); err != nil {
			return err
		}
	}
}

func (s *Session) execute(ctx context.Context, line, name string, args []string) error {
	cwd := s.cursor.String()
	ctx, span := telemetry.StartCommandSpan(ctx, name, args, cwd)
	defer span.End()

	out, failed := dispatch(s.cursor, name, args)

	logger.InfoCtx(s.logCtx(ctx, name), "command received", logger.KeyArgs, args, logger.KeyPath, cwd, "failed", failed)
	if s.metrics != nil {
		s.metrics.RecordCommand(name, failed)
	}
	s.record(ctx, &events.Event{
		Kind:    events.KindCommand,
		Command: name,
		Line:    line,
		Path:    cwd,
		Success: !failed,
	})

	if out == "" {
		return nil
	}
	return s.send(out)
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := s.reader.ReadLine()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return line, nil
}

func (s *Session) send(msg string) error {
	if _, err := io.WriteString(s.stream, msg); err != nil {
		return fmt.Errorf("write to peer: %w", err)
	}
	return nil
}

func (s *Session) recordAttempt(stage, result string) {
	if s.metrics != nil {
		s.metrics.RecordLoginAttempt(stage, result)
	}
}

func (s *Session) recordLogin(ctx context.Context, username, password string, success bool) {
	s.record(ctx, &events.Event{
		Kind:     events.KindLogin,
		Username: username,
		Password: password,
		Success:  success,
	})
}

// record journals e. Journal failures are logged and never end the session.
func (s *Session) record(ctx context.Context, e *events.Event) {
	if s.recorder == nil {
		return
	}
	e.SessionID = s.id
	e.RemoteAddr = s.remoteAddr
	if err := s.recorder.Record(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		logger.WarnCtx(s.logCtx(ctx, ""), "failed to record event", "kind", e.Kind, logger.KeyError, err)
	}
}

// logCtx attaches the session log fields, and the active trace if any, to ctx.
func (s *Session) logCtx(ctx context.Context, command string) context.Context {
	lc := s.lc.WithPhase(s.phase.String()).WithCommand(command)
	if traceID := telemetry.TraceID(ctx); traceID != "" {
		lc = lc.WithTrace(traceID, telemetry.SpanID(ctx))
	}
	return logger.WithContext(ctx, lc)
}

// clientIP strips the port from addr.
func clientIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
