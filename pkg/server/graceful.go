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

	"github.com/dd0wney/cluso-semnet/pkg/logging"
)

// ReloadFunc is called on SIGHUP.
type ReloadFunc func(ctx context.Context) error

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	signals         chan os.Signal
	tlsConfig       *tls.Config

	reloadMu sync.RWMutex
	reloadFn ReloadFunc
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		logger:          logger.With(logging.Component("http")),
		shutdownTimeout: 30 * time.Second,
		shutdownCh:      make(chan struct{}),
		signals:         make(chan os.Signal, 1),
	}
}

// SetShutdownTimeout bounds how long Run waits for in-flight requests.
func (gs *GracefulServer) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		gs.shutdownTimeout = d
	}
}

// SetTLSConfig makes Serve wrap its listener in TLS.
func (gs *GracefulServer) SetTLSConfig(cfg *tls.Config) {
	gs.tlsConfig = cfg
}

// Run serves until ctx is cancelled, SIGINT or SIGTERM arrives, or the
// listener fails. SIGHUP triggers the reload function.
func (gs *GracefulServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (gs *GracefulServer) Serve(ctx context.Context, ln net.Listener) error {
	signal.Notify(gs.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(gs.signals)

	if gs.tlsConfig != nil {
		ln = tls.NewListener(ln, gs.tlsConfig)
	}

	errCh := make(chan error, 1)
	go func() {
		gs.logger.Info("starting HTTP server",
			logging.String("addr", ln.Addr().String()),
			logging.Bool("tls", gs.tlsConfig != nil),
		)
		if err := gs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return gs.Shutdown(gs.shutdownTimeout)
		case sig := <-gs.signals:
			switch sig {
			case syscall.SIGHUP:
				gs.logger.Info("received SIGHUP, reloading")
				_ = gs.Reload(ctx)
			default:
				gs.logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
				return gs.Shutdown(gs.shutdownTimeout)
			}
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
			gs.logger.Error("error during shutdown", logging.Error(err))
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

// SetReloadFunc sets the function to call when a reload is triggered
func (gs *GracefulServer) SetReloadFunc(fn ReloadFunc) {
	gs.reloadMu.Lock()
	defer gs.reloadMu.Unlock()
	gs.reloadFn = fn
}

// Reload runs the reload function.
func (gs *GracefulServer) Reload(ctx context.Context) error {
	gs.reloadMu.RLock()
	fn := gs.reloadFn
	gs.reloadMu.RUnlock()

	if fn == nil {
		gs.logger.Warn("reload requested, but no reload function configured")
		return nil
	}
	if err := fn(ctx); err != nil {
		gs.logger.Error("reload failed", logging.Error(err))
		return err
	}
	gs.logger.Info("reload complete")
	return nil
}
