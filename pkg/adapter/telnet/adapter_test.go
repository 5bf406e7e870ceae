package telnet

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	protocol "github.com/BERBARIANKING/fosscomm-2024/internal/telnet"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/session"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/vfs"
)

const banner = "\xff\xfb\x01\r\npico-honeypot\r\n\r\nlogin: "

type countingMetrics struct {
	accepted, closed, forceClosed, rejected atomic.Int32
	active                                  atomic.Int32

	mu       sync.Mutex
	reasons  []string
	logins   int
	commands int
}

func (m *countingMetrics) RecordConnectionAccepted() { m.accepted.Add(1) }
func (m *countingMetrics) RecordConnectionClosed() { m.closed.Add(1) }
func (m *countingMetrics) RecordConnectionForceClosed() { m.forceClosed.Add(1) }
func (m *countingMetrics) RecordConnectionRejected() { m.rejected.Add(1) }
func (m *countingMetrics) SetActiveConnections(n int32) { m.active.Store(n) }

func (m *countingMetrics) RecordLoginAttempt(_, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins++
}

func (m *countingMetrics) RecordCommand(string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands++
}

func (m *countingMetrics) RecordSession(_ time.Duration, reason string, _ int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasons = append(m.reasons, reason)
}

func (m *countingMetrics) sessionReasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reasons...)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

type harness struct {
	adapter *Adapter
	store   *events.MemoryStore
	metrics *countingMetrics
	addr    string
	cancel  context.CancelFunc
	done    chan error
}

func startAdapter(t *testing.T, cfg Config) *harness {
	t.Helper()

	cfg.BindAddress = "127.0.0.1"
	cfg.Port = freePort(t)
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}

	h := &harness{
		store:   events.NewMemoryStore(1000),
		metrics: &countingMetrics{},
		done:    make(chan error, 1),
	}

	a, err := New(cfg, session.Config{Credentials: session.DefaultCredentials()},
		WithRecorder(h.store), WithMetrics(h.metrics))
	require.NoError(t, err)
	h.adapter = a

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- a.Serve(ctx) }()

	h.addr = a.GetListenerAddr()
	require.NotEmpty(t, h.addr)

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(5 * time.Second):
			t.Error("adapter did not stop")
		}
	})
	return h
}

func (h *harness) dial(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", h.addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *harness) disconnects(t *testing.T) []events.Event {
	t.Helper()
	evs, err := h.store.List(context.Background(), events.Filter{Kind: events.KindDisconnect})
	require.NoError(t, err)
	return evs
}

// expect reads exactly len(want) bytes.
func expect(t *testing.T, conn net.Conn, want string) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	got := make([]byte, len(want))
	_, err := io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func send(t *testing.T, conn net.Conn, s string) {
	t.Helper()
	_, err := conn.Write([]byte(s))
	require.NoError(t, err)
}

// expectClosed waits for the server to close the connection.
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, err := bufio.NewReader(conn).ReadByte()
	require.Error(t, err)
	assert.False(t, isTimeout(err), "connection still open: %v", err)
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

func TestSessionOverTCP(t *testing.T) {
	h := startAdapter(t, Config{})
	conn := h.dial(t)

	expect(t, conn, banner)
	// A client that opens with option negotiation.
	send(t, conn, "\xff\xfd\x01\xff\xfb\x1fadmin\r\n")
	expect(t, conn, "password: ")
	send(t, conn, "password\r\n")
	expect(t, conn, "\r\nLogin successful.\r\n> ")
	send(t, conn, "cd user\r\n")
	expect(t, conn, "> ")
	send(t, conn, "ls\r\n")
	expect(t, conn, "file1.txt, file2.log\n> ")
	send(t, conn, "cat file1.txt\r\n")
	expect(t, conn, "This is a test file. Content here is for demo purposes.\n> ")
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return len(h.disconnects(t)) == 1 }, 3*time.Second, 10*time.Millisecond)

	all, err := h.store.List(context.Background(), events.Filter{})
	require.NoError(t, err)
	// connect, login, cd, ls, cat, disconnect
	require.Len(t, all, 6)
	sessionID := all[0].SessionID
	for _, e := range all {
		assert.Equal(t, sessionID, e.SessionID)
		assert.Equal(t, conn.LocalAddr().String(), e.RemoteAddr)
	}
	assert.Equal(t, events.KindDisconnect, all[0].Kind)
	assert.Equal(t, ReasonClosed, all[0].Reason)
	assert.Equal(t, events.KindConnect, all[5].Kind)

	assert.Equal(t, []string{ReasonClosed}, h.metrics.sessionReasons())
	assert.EqualValues(t, 1, h.metrics.accepted.Load())
	assert.Eventually(t, func() bool { return h.metrics.closed.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestAuthFailureClosesConnection(t *testing.T) {
	h := startAdapter(t, Config{})
	conn := h.dial(t)

	expect(t, conn, banner)
	send(t, conn, "root\r\n")
	expect(t, conn, "\r\nLogin failed.\r\n")
	expectClosed(t, conn)

	require.Eventually(t, func() bool { return len(h.disconnects(t)) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, ReasonAuthFailed, h.disconnects(t)[0].Reason)
}

func TestIdleTimeout(t *testing.T) {
	h := startAdapter(t, Config{IdleTimeout: 150 * time.Millisecond})
	conn := h.dial(t)

	expect(t, conn, banner)
	expectClosed(t, conn)

	require.Eventually(t, func() bool { return len(h.disconnects(t)) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, ReasonTimeout, h.disconnects(t)[0].Reason)
}

func TestLineTooLong(t *testing.T) {
	h := startAdapter(t, Config{ReceiveSize: 16, MaxLineLength: 64})
	conn := h.dial(t)

	expect(t, conn, banner)
	for i := 0; i < 8; i++ {
		if _, err := conn.Write([]byte("AAAAAAAAAAAAAAAA")); err != nil {
			break
		}
	}
	expectClosed(t, conn)

	require.Eventually(t, func() bool { return len(h.disconnects(t)) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, ReasonLineTooLong, h.disconnects(t)[0].Reason)
}

func TestMaxConnections(t *testing.T) {
	h := startAdapter(t, Config{MaxConnections: 1})

	first := h.dial(t)
	expect(t, first, banner)

	second := h.dial(t)
	expectClosed(t, second)
	assert.Eventually(t, func() bool { return h.metrics.rejected.Load() == 1 }, time.Second, 10*time.Millisecond)
	assert.EqualValues(t, 1, h.adapter.GetActiveConnections())

	// The slot is released once the first session ends.
	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return h.adapter.GetActiveConnections() == 0 }, 3*time.Second, 10*time.Millisecond)

	third := h.dial(t)
	expect(t, third, banner)
}

func TestShutdownEndsSessions(t *testing.T) {
	h := startAdapter(t, Config{})
	conn := h.dial(t)

	expect(t, conn, banner)
	send(t, conn, "admin\r\n")
	expect(t, conn, "password: ")

	h.cancel()
	select {
	case err := <-h.done:
		assert.NoError(t, err)
		h.done <- err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	expectClosed(t, conn)
	require.Eventually(t, func() bool { return len(h.disconnects(t)) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, ReasonShutdown, h.disconnects(t)[0].Reason)

	_, err := net.DialTimeout("tcp", h.addr, 500*time.Millisecond)
	assert.Error(t, err)
}

func TestNewRejectsBadStartPath(t *testing.T) {
	_, err := New(Config{}, session.Config{StartPath: "/nope"})
	assert.ErrorIs(t, err, vfs.ErrNotFound)

	_, err = New(Config{}, session.Config{StartPath: "/"})
	assert.ErrorIs(t, err, vfs.ErrInvalidTree)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Port: 70000}, session.Config{})
	assert.Error(t, err)

	_, err = New(Config{IdleTimeout: -time.Second}, session.Config{})
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, 2323, cfg.Port)
	assert.Equal(t, 512, cfg.MaxConnections)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 1024, cfg.ReceiveSize)
	assert.Equal(t, 4096, cfg.MaxLineLength)
	assert.Equal(t, "pico-honeypot", cfg.Hostname)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 512, cfg.maxConnections())

	cfg.MaxConnections = -1
	assert.Equal(t, 0, cfg.maxConnections())
}

func TestMaxLineLengthUnlimited(t *testing.T) {
	cfg := Config{MaxLineLength: -1}
	cfg.ApplyDefaults()
	assert.Equal(t, -1, cfg.MaxLineLength)
	require.NoError(t, cfg.validate())

	cfg.MaxLineLength = -2
	assert.Error(t, cfg.validate())

	h := startAdapter(t, Config{ReceiveSize: 16, MaxLineLength: -1})
	conn := h.dial(t)
	expect(t, conn, banner)

	long := strings.Repeat("A", 2*protocol.DefaultMaxLineLength)
	send(t, conn, long+"\r\n")
	expect(t, conn, "\r\nLogin failed.\r\n")
	expectClosed(t, conn)

	require.Eventually(t, func() bool { return len(h.disconnects(t)) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, ReasonAuthFailed, h.disconnects(t)[0].Reason)
}

func TestSetTreeAffectsNewSessions(t *testing.T) {
	h := startAdapter(t, Config{})

	first := h.dial(t)
	expect(t, first, banner)

	tree, err := vfs.ParseTree([]byte("home:\n  user:\n    new.txt: fresh\n"))
	require.NoError(t, err)
	require.NoError(t, h.adapter.SetTree(tree))

	login := func(conn net.Conn) {
		send(t, conn, "admin\r\n")
		expect(t, conn, "password: ")
		send(t, conn, "password\r\n")
		expect(t, conn, "\r\nLogin successful.\r\n> ")
		send(t, conn, "cd user\r\n")
		expect(t, conn, "> ")
		send(t, conn, "ls\r\n")
	}

	// The session that was already running keeps its tree.
	login(first)
	expect(t, first, "file1.txt, file2.log\n> ")

	second := h.dial(t)
	expect(t, second, banner)
	login(second)
	expect(t, second, "new.txt\n> ")
}

func TestSetTreeRejectsMissingStartPath(t *testing.T) {
	a, err := New(Config{}, session.Config{})
	require.NoError(t, err)

	tree, err := vfs.ParseTree([]byte("etc:\n  motd: hi\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, a.SetTree(tree), vfs.ErrNotFound)
	assert.Error(t, a.SetTree(nil))

	// The previous tree is still served.
	assert.Equal(t, vfs.DefaultTree().Root().Names(), a.sessionConfig().Tree.Root().Names())
}
