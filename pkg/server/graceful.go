// Package server runs the headless host's HTTP surface with graceful
// shutdown and SIGHUP reload.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/forcegraph/pkg/logging"
)

// ReloadFunc reloads the host's inputs, e.g. the graph file
type ReloadFunc func() error

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server       *http.Server
	listener     net.Listener
	tlsConfig    *tls.Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	reloadFn     ReloadFunc
	reloadMu     sync.RWMutex
	logger       logging.Logger
}

// NewGracefulServer creates a new graceful HTTP server. WriteTimeout is left
// unset because /ws connections are long-lived.
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		shutdownCh: make(chan struct{}),
		logger:     logger.With(logging.Component("http")),
	}
}

// Listen binds the address so Addr is known before Serve
func (gs *GracefulServer) Listen() error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	if gs.tlsConfig != nil {
		ln = tls.NewListener(ln, gs.tlsConfig)
	}
	gs.listener = ln
	return nil
}

// SetTLSConfig serves HTTPS. It must be called before Listen.
func (gs *GracefulServer) SetTLSConfig(cfg *tls.Config) {
	gs.tlsConfig = cfg
	gs.server.TLSConfig = cfg
}

// Addr returns the bound address, or the configured one before Listen
func (gs *GracefulServer) Addr() string {
	if gs.listener != nil {
		return gs.listener.Addr().String()
	}
	return gs.server.Addr
}

// Serve blocks until the server stops. It listens first if Listen was not called.
func (gs *GracefulServer) Serve() error {
	if gs.listener == nil {
		if err := gs.Listen(); err != nil {
			return err
		}
	}
	gs.logger.Info("HTTP server listening",
		logging.String("addr", gs.Addr()),
		logging.Bool("tls", gs.tlsConfig != nil))
	if err := gs.server.Serve(gs.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts down
// within timeout. SIGHUP triggers Reload.
func (gs *GracefulServer) Run(ctx context.Context, timeout time.Duration) error {
	if gs.listener == nil {
		if err := gs.Listen(); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- gs.Serve() }()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return gs.Shutdown(timeout)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				_ = gs.Reload()
				continue
			}
			gs.logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
			return gs.Shutdown(timeout)
		}
	}
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))
		if err = gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("shutdown failed", logging.Error(err))
		} else {
			gs.logger.Info("server shutdown complete")
		}
	})
	return err
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetReloadFunc sets the function called on SIGHUP
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload calls the reload function if one is set
func (gs *GracefulServer) Reload() error {
	gs.reloadMu.RLock()
	reloadFn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Info("reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		gs.logger.Error("reload failed", logging.Error(err))
		return err
	}
	gs.logger.Info("reload complete")
	return nil
}
