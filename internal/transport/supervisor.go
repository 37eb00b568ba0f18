package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Adapter is a transport the supervisor runs.
type Adapter interface {
	Name() string
	// Start acquires the adapter's resources. An error means it never served.
	Start(ctx context.Context) error
	// Serve blocks until ctx is done or the adapter stops.
	Serve(ctx context.Context) error
}

// HTTPAdapter serves a handler on a TCP address.
type HTTPAdapter struct {
	addr     string
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewHTTPAdapter creates the network adapter.
func NewHTTPAdapter(addr string, handler http.Handler, logger *slog.Logger) *HTTPAdapter {
	return &HTTPAdapter{
		addr:   addr,
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Name implements Adapter.
func (a *HTTPAdapter) Name() string { return "http" }

// Addr returns the bound address once started.
func (a *HTTPAdapter) Addr() string {
	if a.listener == nil {
		return a.addr
	}
	return a.listener.Addr().String()
}

// Start binds the listen address.
func (a *HTTPAdapter) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", a.addr, err)
	}
	a.listener = ln
	if a.logger != nil {
		a.logger.Info("server listening", "addr", ln.Addr().String())
	}
	return nil
}

// Close releases the listener of an adapter that never served.
func (a *HTTPAdapter) Close() error {
	if a.listener == nil {
		return nil
	}
	return a.listener.Close()
}

// Serve accepts connections until ctx is done, then shuts down gracefully.
func (a *HTTPAdapter) Serve(ctx context.Context) error {
	if a.listener == nil {
		return errors.New("http: not started")
	}
	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Serve(a.listener) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if a.logger != nil {
		a.logger.Info("shutting down", "transport", a.Name())
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Supervisor runs adapters as independent concurrent activities.
type Supervisor struct {
	logger *slog.Logger
}

// NewSupervisor creates a supervisor.
func NewSupervisor(logger *slog.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Run starts every adapter and serves them until ctx is done. It fails only if
// an adapter cannot start; once serving, one adapter stopping or failing never
// stops the others.
func (s *Supervisor) Run(ctx context.Context, adapters ...Adapter) error {
	if len(adapters) == 0 {
		return errors.New("no transports to run")
	}

	start, startCtx := errgroup.WithContext(ctx)
	for _, adapter := range adapters {
		start.Go(func() error {
			if err := adapter.Start(startCtx); err != nil {
				return fmt.Errorf("start %s: %w", adapter.Name(), err)
			}
			return nil
		})
	}
	if err := start.Wait(); err != nil {
		for _, adapter := range adapters {
			if c, ok := adapter.(io.Closer); ok {
				_ = c.Close()
			}
		}
		return err
	}

	var serve errgroup.Group
	for _, adapter := range adapters {
		serve.Go(func() error {
			err := adapter.Serve(ctx)
			if s.logger != nil {
				if err != nil {
					s.logger.Error("transport stopped", "transport", adapter.Name(), "error", err)
				} else {
					s.logger.Info("transport stopped", "transport", adapter.Name())
				}
			}
			return nil
		})
	}
	return serve.Wait()
}
