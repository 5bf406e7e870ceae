// Package runtime runs the honeypot listener together with its event store
// and auxiliary HTTP servers, and shuts them down in order.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BERBARIANKING/fosscomm-2024/internal/logger"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/adapter"
	"github.com/BERBARIANKING/fosscomm-2024/pkg/events"
)

// DefaultShutdownTimeout bounds the wait for active sessions on shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// auxStopTimeout bounds the shutdown of each auxiliary server.
const auxStopTimeout = 5 * time.Second

// AuxiliaryServer is an HTTP server (API, metrics) managed next to the
// adapter.
type AuxiliaryServer interface {
	// Start blocks until ctx is cancelled or the server fails.
	Start(ctx context.Context) error
	// Stop initiates graceful shutdown.
	Stop(ctx context.Context) error
	// Port returns the TCP port the server listens on.
	Port() int
}

// Runtime owns the TELNET adapter, the event store and the auxiliary
// servers.
type Runtime struct {
	adapter adapter.Adapter
	store   events.Store

	apiServer       AuxiliaryServer
	metricsServer   AuxiliaryServer
	shutdownTimeout time.Duration

	serveOnce sync.Once
	served    bool
}

// New creates a runtime. store may be nil when nothing is journaled; it is
// closed on shutdown otherwise.
func New(a adapter.Adapter, store events.Store) *Runtime {
	return &Runtime{
		adapter:         a,
		store:           store,
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// SetShutdownTimeout sets how long Serve waits for the adapter to drain.
// Zero selects DefaultShutdownTimeout.
func (r *Runtime) SetShutdownTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultShutdownTimeout
	}
	r.shutdownTimeout = d
}

// SetAPIServer registers the journal API server. Must be called before Serve.
func (r *Runtime) SetAPIServer(server AuxiliaryServer) {
	if r.served {
		panic("cannot set API server after Serve() has been called")
	}
	r.apiServer = server
	if server != nil {
		logger.Info("API server registered", "port", server.Port())
	}
}

// SetMetricsServer registers the metrics server. Must be called before Serve.
func (r *Runtime) SetMetricsServer(server AuxiliaryServer) {
	if r.served {
		panic("cannot set metrics server after Serve() has been called")
	}
	r.metricsServer = server
	if server != nil {
		logger.Info("Metrics server registered", "port", server.Port())
	}
}

// Serve starts every component and blocks until ctx is cancelled or one of
// them fails. It can only run once.
//
// Returns ctx.Err() after a requested shutdown, or the error of the
// component that failed.
func (r *Runtime) Serve(ctx context.Context) error {
	err := errors.New("runtime already served")

	r.serveOnce.Do(func() {
		r.served = true
		err = r.serve(ctx)
	})

	return err
}

func (r *Runtime) serve(ctx context.Context) error {
	logger.Info("Starting picopot runtime",
		"protocol", r.adapter.Protocol(),
		"port", r.adapter.Port())

	// Auxiliary servers outlive the adapter so that the journal stays
	// readable while sessions drain.
	auxCtx, cancelAux := context.WithCancel(context.Background())
	defer cancelAux()

	adapterCtx, cancelAdapter := context.WithCancel(ctx)
	defer cancelAdapter()

	adapterDone := make(chan error, 1)
	go func() {
		adapterDone <- r.adapter.Serve(adapterCtx)
	}()

	auxErrChan := make(chan error, 2)
	startAux := func(name string, s AuxiliaryServer) {
		if s == nil {
			return
		}
		go func() {
			if err := s.Start(auxCtx); err != nil {
				logger.Error(name+" server error", logger.KeyError, err)
				auxErrChan <- fmt.Errorf("%s server error: %w", name, err)
			}
		}()
	}
	startAux("API", r.apiServer)
	startAux("Metrics", r.metricsServer)

	var shutdownErr error
	adapterReturned := false
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received", logger.KeyReason, ctx.Err())
		shutdownErr = ctx.Err()

	case err := <-adapterDone:
		adapterReturned = true
		if err != nil {
			logger.Error("Adapter failed - initiating shutdown", logger.KeyError, err)
			shutdownErr = fmt.Errorf("%s adapter error: %w", r.adapter.Protocol(), err)
		} else {
			logger.Info("Adapter stopped")
		}

	case err := <-auxErrChan:
		logger.Error("Auxiliary server failed - initiating shutdown", logger.KeyError, err)
		shutdownErr = err
	}

	cancelAdapter()
	if !adapterReturned {
		r.stopAdapter(adapterDone)
	}

	r.shutdown()

	logger.Info("picopot runtime stopped")
	return shutdownErr
}

// stopAdapter waits for the adapter to drain, stopping it explicitly when it
// has not returned by the end of the shutdown timeout.
func (r *Runtime) stopAdapter(done <-chan error) {
	logger.Info("Stopping adapter", "protocol", r.adapter.Protocol())

	// The adapter enforces its own shutdown timeout; the extra margin covers
	// forced closes.
	wait := r.shutdownTimeout + auxStopTimeout
	select {
	case err := <-done:
		if err != nil {
			logger.Warn("Adapter shutdown error", logger.KeyError, err)
		}
		return
	case <-time.After(wait):
	}

	ctx, cancel := context.WithTimeout(context.Background(), auxStopTimeout)
	defer cancel()
	if err := r.adapter.Stop(ctx); err != nil {
		logger.Warn("Adapter did not stop in time", logger.KeyError, err)
	}
}

// shutdown stops the auxiliary servers and closes the event store. The
// adapter has drained by now, so every disconnect has been journaled.
func (r *Runtime) shutdown() {
	stop := func(name string, s AuxiliaryServer) {
		if s == nil {
			return
		}
		logger.Debug("Stopping " + name + " server")
		ctx, cancel := context.WithTimeout(context.Background(), auxStopTimeout)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			logger.Error(name+" server shutdown error", logger.KeyError, err)
		}
	}
	stop("API", r.apiServer)
	stop("Metrics", r.metricsServer)

	if r.store != nil {
		logger.Info("Closing event store")
		if err := r.store.Close(); err != nil {
			logger.Warn("Error closing event store", logger.KeyError, err)
		}
	}
}
