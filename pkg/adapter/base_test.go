package adapter

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	conn net.Conn
}

func (h *echoHandler) Serve(ctx context.Context) {
	defer h.conn.Close()
	r := bufio.NewReader(h.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := h.conn.Write([]byte(line)); err != nil {
			return
		}
	}
}

type echoFactory struct{}

func (echoFactory) NewConnection(conn net.Conn) ConnectionHandler {
	return &echoHandler{conn: conn}
}

// stuckHandler ignores shutdown until its socket is closed from outside.
type stuckHandler struct {
	conn net.Conn
}

func (h *stuckHandler) Serve(context.Context) {
	buf := make([]byte, 1)
	for {
		if _, err := h.conn.Read(buf); err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				_ = h.conn.SetReadDeadline(time.Time{})
				continue
			}
			return
		}
	}
}

type stuckFactory struct{}

func (stuckFactory) NewConnection(conn net.Conn) ConnectionHandler {
	return &stuckHandler{conn: conn}
}

type lifecycleMetrics struct {
	accepted, closed, forceClosed, rejected atomic.Int32
	active                                  atomic.Int32
}

func (m *lifecycleMetrics) RecordConnectionAccepted() { m.accepted.Add(1) }
func (m *lifecycleMetrics) RecordConnectionClosed() { m.closed.Add(1) }
func (m *lifecycleMetrics) RecordConnectionForceClosed() { m.forceClosed.Add(1) }
func (m *lifecycleMetrics) RecordConnectionRejected() { m.rejected.Add(1) }
func (m *lifecycleMetrics) SetActiveConnections(n int32) { m.active.Store(n) }

func serve(t *testing.T, b *BaseAdapter, f ConnectionFactory) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.ServeWithFactory(ctx, f) }()
	require.NotEmpty(t, b.GetListenerAddr())
	return cancel, done
}

func wait(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("ServeWithFactory did not return")
		return nil
	}
}

func TestServeWithFactory_EchoAndGracefulShutdown(t *testing.T) {
	m := &lifecycleMetrics{}
	b := NewBaseAdapter(BaseConfig{BindAddress: "127.0.0.1", ShutdownTimeout: 2 * time.Second}, "ECHO")
	b.Metrics = m
	cancel, done := serve(t, b, echoFactory{})

	conn, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("hello\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "hello\n", line)
	assert.EqualValues(t, 1, b.GetActiveConnections())

	// Closing the listener and interrupting reads ends the echo loop.
	cancel()
	assert.NoError(t, wait(t, done))
	assert.EqualValues(t, 0, b.GetActiveConnections())
	assert.EqualValues(t, 1, m.accepted.Load())
	assert.EqualValues(t, 1, m.closed.Load())
	assert.EqualValues(t, 0, m.active.Load())
}

func TestServeWithFactory_ForceClose(t *testing.T) {
	m := &lifecycleMetrics{}
	b := NewBaseAdapter(BaseConfig{BindAddress: "127.0.0.1", ShutdownTimeout: 200 * time.Millisecond}, "STUCK")
	b.Metrics = m
	cancel, done := serve(t, b, stuckFactory{})

	conn, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return b.GetActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	err = wait(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "force-closed")
	assert.EqualValues(t, 1, m.forceClosed.Load())
}

func TestServeWithFactory_ConnectionLimit(t *testing.T) {
	m := &lifecycleMetrics{}
	b := NewBaseAdapter(BaseConfig{BindAddress: "127.0.0.1", MaxConnections: 1, ShutdownTimeout: time.Second}, "ECHO")
	b.Metrics = m
	cancel, done := serve(t, b, echoFactory{})
	defer func() {
		cancel()
		_ = wait(t, done)
	}()

	first, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, func() bool { return b.GetActiveConnections() == 1 }, time.Second, 5*time.Millisecond)

	second, err := net.Dial("tcp", b.GetListenerAddr())
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = second.Read(make([]byte, 1))
	require.Error(t, err)
	assert.Eventually(t, func() bool { return m.rejected.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, m.accepted.Load())
}

func TestServeWithFactory_ListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	b := NewBaseAdapter(BaseConfig{
		BindAddress: "127.0.0.1",
		Port:        l.Addr().(*net.TCPAddr).Port,
	}, "ECHO")

	err = b.ServeWithFactory(context.Background(), echoFactory{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create ECHO listener")
	assert.Empty(t, b.GetListenerAddr())
}

func TestStopBeforeServe(t *testing.T) {
	b := NewBaseAdapter(BaseConfig{BindAddress: "127.0.0.1", ShutdownTimeout: time.Second}, "ECHO")
	require.NoError(t, b.Stop(context.Background()))
	require.NoError(t, b.Stop(context.Background()))

	assert.NoError(t, b.ServeWithFactory(context.Background(), echoFactory{}))
}

func TestProtocolAndPort(t *testing.T) {
	b := NewBaseAdapter(BaseConfig{Port: 2323}, "TELNET")
	assert.Equal(t, "TELNET", b.Protocol())
	assert.Equal(t, 2323, b.Port())
}
