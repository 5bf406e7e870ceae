package runtime

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BERBARIANKING/fosscomm-2024/pkg/adapter/telnet"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/session"
)

type fakeAdapter struct {
	serveErr error
	stopped  atomic.Bool
}

func (a *fakeAdapter) Serve(ctx context.Context) error {
	if a.serveErr != nil {
		return a.serveErr
	}
	<-ctx.Done()
	return nil
}

func (a *fakeAdapter) Stop(context.Context) error {
	a.stopped.Store(true)
	return nil
}

func (a *fakeAdapter) Protocol() string { return "FAKE" }
func (a *fakeAdapter) Port() int        { return 2323 }

type fakeAux struct {
	port     int
	startErr error

	once    sync.Once
	done    chan struct{}
	stopped atomic.Bool
}

func newFakeAux(port int) *fakeAux {
	return &fakeAux{port: port, done: make(chan struct{})}
}

func (s *fakeAux) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	return nil
}

func (s *fakeAux) Stop(context.Context) error {
	s.stopped.Store(true)
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeAux) Port() int { return s.port }

// trackingStore snapshots the journal at the moment it is closed.
type trackingStore struct {
	*events.MemoryStore

	mu          sync.Mutex
	closed      bool
	atClose     []events.Event
	closedCount int
}

func newTrackingStore() *trackingStore {
	return &trackingStore{MemoryStore: events.NewMemoryStore(100)}
}

func (s *trackingStore) Close() error {
	evs, _ := s.MemoryStore.List(context.Background(), events.Filter{})

	s.mu.Lock()
	s.closed = true
	s.closedCount++
	s.atClose = evs
	s.mu.Unlock()

	return s.MemoryStore.Close()
}

func (s *trackingStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func serveAsync(r *Runtime, ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()
	return done
}

func waitServe(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestServeShutdownOnCancel(t *testing.T) {
	store := newTrackingStore()
	api, metricsSrv := newFakeAux(8080), newFakeAux(9090)

	r := New(&fakeAdapter{}, store)
	r.SetAPIServer(api)
	r.SetMetricsServer(metricsSrv)

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(r, ctx)
	cancel()

	err := waitServe(t, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, api.stopped.Load())
	assert.True(t, metricsSrv.stopped.Load())
	assert.True(t, store.isClosed())
	assert.Equal(t, 1, store.closedCount)
}

func TestServeAdapterFailure(t *testing.T) {
	store := newTrackingStore()
	api := newFakeAux(8080)
	listenErr := errors.New("address already in use")

	r := New(&fakeAdapter{serveErr: listenErr}, store)
	r.SetAPIServer(api)

	err := waitServe(t, serveAsync(r, context.Background()))
	require.Error(t, err)
	assert.ErrorIs(t, err, listenErr)
	assert.Contains(t, err.Error(), "FAKE adapter error")
	assert.True(t, api.stopped.Load())
	assert.True(t, store.isClosed())
}

func TestServeAuxiliaryFailure(t *testing.T) {
	store := newTrackingStore()
	a := &fakeAdapter{}
	api := newFakeAux(8080)
	api.startErr = errors.New("bind failed")

	r := New(a, store)
	r.SetAPIServer(api)

	err := waitServe(t, serveAsync(r, context.Background()))
	require.Error(t, err)
	assert.ErrorIs(t, err, api.startErr)
	assert.Contains(t, err.Error(), "API server error")
	assert.True(t, store.isClosed())
}

func TestServeWithoutStore(t *testing.T) {
	r := New(&fakeAdapter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(r, ctx)
	cancel()

	assert.ErrorIs(t, waitServe(t, done), context.Canceled)
}

func TestServeOnlyOnce(t *testing.T) {
	r := New(&fakeAdapter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Serve(ctx), context.Canceled)

	err := r.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already served")
}

func TestSetServerAfterServePanics(t *testing.T) {
	r := New(&fakeAdapter{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = r.Serve(ctx)

	assert.Panics(t, func() { r.SetAPIServer(newFakeAux(8080)) })
	assert.Panics(t, func() { r.SetMetricsServer(newFakeAux(9090)) })
}

func TestSetShutdownTimeout(t *testing.T) {
	r := New(&fakeAdapter{}, nil)
	assert.Equal(t, DefaultShutdownTimeout, r.shutdownTimeout)

	r.SetShutdownTimeout(3 * time.Second)
	assert.Equal(t, 3*time.Second, r.shutdownTimeout)

	r.SetShutdownTimeout(0)
	assert.Equal(t, DefaultShutdownTimeout, r.shutdownTimeout)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServeJournalsShutdownBeforeClosingStore(t *testing.T) {
	store := newTrackingStore()

	a, err := telnet.New(telnet.Config{
		BindAddress:     "127.0.0.1",
		Port:            freePort(t),
		ShutdownTimeout: 2 * time.Second,
	}, session.Config{Credentials: session.DefaultCredentials()}, telnet.WithRecorder(store))
	require.NoError(t, err)

	r := New(a, store)
	r.SetShutdownTimeout(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := serveAsync(r, ctx)

	addr := a.GetListenerAddr()
	require.NotEmpty(t, addr)

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()

	// Wait for the banner so the session is established.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, len("\xff\xfb\x01\r\n"))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)

	cancel()
	require.ErrorIs(t, waitServe(t, done), context.Canceled)

	store.mu.Lock()
	journal := store.atClose
	store.mu.Unlock()

	require.Len(t, journal, 2)
	assert.Equal(t, events.KindDisconnect, journal[0].Kind)
	assert.Equal(t, telnet.ReasonShutdown, journal[0].Reason)
	assert.Equal(t, events.KindConnect, journal[1].Kind)
}
