package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerServesRegistry(t *testing.T) {
	resetRegistry()
	t.Cleanup(resetRegistry)
	InitRegistry()

	s := NewServer(0)
	assert.Equal(t, DefaultPort, s.Port())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, "127.0.0.1:0") }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
	assert.NoError(t, s.Stop(context.Background()))
}

func TestServerListenError(t *testing.T) {
	s := NewServer(1)
	err := s.serve(context.Background(), "256.0.0.1:0")
	assert.Error(t, err)
}
