// Package telnet serves the honeypot over TCP. Every accepted connection runs
// one session.Session in its own goroutine.
package telnet

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/BERBARIANKING/fosscomm-2024/internal/logger"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/adapter"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/metrics"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/session"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/vfs"
)

// Adapter implements adapter.Adapter for the TELNET honeypot.
//
// Adapter embeds BaseAdapter for the shared TCP lifecycle (listener, shutdown,
// connection tracking, connection limit). Each accepted socket becomes a
// Connection that drives a session.Session.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections) [BaseAdapter]
//  3. Pending reads interrupted, ShutdownCtx cancelled [BaseAdapter]
//  4. Wait for active sessions to finish (up to ShutdownTimeout) [BaseAdapter]
//  5. Force-close any remaining connections after timeout [BaseAdapter]
type Adapter struct {
	*adapter.BaseAdapter

	config   Config
	session  session.Config
	recorder events.Recorder
	metrics  metrics.TelnetMetrics

	// tree replaces session.Tree once the adapter is built so that it can be
	// swapped while sessions run. Existing sessions keep the tree they
	// started with.
	tree atomic.Pointer[vfs.Tree]
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithRecorder journals connection, login and command events.
func WithRecorder(r events.Recorder) Option {
	return func(a *Adapter) { a.recorder = r }
}

// WithMetrics records connection and session metrics. nil disables them.
func WithMetrics(m metrics.TelnetMetrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// New creates a stopped adapter. Zero values in config are replaced with
// defaults. The session settings are checked here so that a bad start path
// fails at startup rather than on the first connection.
func New(config Config, sess session.Config, opts ...Option) (*Adapter, error) {
	config.ApplyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid telnet config: %w", err)
	}

	sess.Hostname = config.Hostname
	sess.ReceiveSize = config.ReceiveSize
	sess.MaxLineLength = config.MaxLineLength
	if sess.Tree == nil {
		sess.Tree = vfs.DefaultTree()
	}
	if sess.StartPath == "" {
		sess.StartPath = session.DefaultStartPath
	}
	if _, err := vfs.NewCursor(sess.Tree, sess.StartPath); err != nil {
		return nil, fmt.Errorf("invalid filesystem start path: %w", err)
	}

	a := &Adapter{
		BaseAdapter: adapter.NewBaseAdapter(adapter.BaseConfig{
			BindAddress:        config.BindAddress,
			Port:               config.Port,
			MaxConnections:     config.maxConnections(),
			ShutdownTimeout:    config.ShutdownTimeout,
			MetricsLogInterval: config.MetricsLogInterval,
		}, "TELNET"),
		config:  config,
		session: sess,
	}
	a.tree.Store(sess.Tree)
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics != nil {
		a.Metrics = a.metrics
	}

	dirs, files := sess.Tree.Stats()
	logger.Debug("TELNET adapter configured",
		"hostname", config.Hostname,
		"start_path", sess.StartPath,
		"dirs", dirs,
		"files", files,
		"idle_timeout", config.IdleTimeout)

	return a, nil
}

// SetTree swaps the filesystem served to new sessions. The tree must contain
// the configured start path.
func (a *Adapter) SetTree(tree *vfs.Tree) error {
	if tree == nil {
		return fmt.Errorf("nil filesystem tree")
	}
	if _, err := vfs.NewCursor(tree, a.session.StartPath); err != nil {
		return fmt.Errorf("invalid filesystem start path: %w", err)
	}
	a.tree.Store(tree)
	return nil
}

// sessionConfig returns the session settings with the current tree.
func (a *Adapter) sessionConfig() session.Config {
	cfg := a.session
	cfg.Tree = a.tree.Load()
	return cfg
}

// Serve starts the listener and blocks until ctx is cancelled or the
// listener fails.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return NewConnection(a, conn)
}

var _ adapter.Adapter = (*Adapter)(nil)
