package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// StdioAdapter binds one server, built once at startup, to a single stream
// for the life of the process.
type StdioAdapter struct {
	server    *sdkmcp.Server
	transport sdkmcp.Transport
	logger    *slog.Logger
	session   *sdkmcp.ServerSession
}

// NewStdioAdapter creates the persistent-stream adapter. A nil transport
// means stdin/stdout.
func NewStdioAdapter(server *sdkmcp.Server, transport sdkmcp.Transport, logger *slog.Logger) *StdioAdapter {
	if transport == nil {
		transport = &sdkmcp.StdioTransport{}
	}
	return &StdioAdapter{server: server, transport: transport, logger: logger}
}

// Name implements Adapter.
func (a *StdioAdapter) Name() string { return "stdio" }

// Start connects the server to the stream.
func (a *StdioAdapter) Start(ctx context.Context) error {
	if a.server == nil {
		return errors.New("stdio: no server")
	}
	session, err := a.server.Connect(ctx, a.transport, nil)
	if err != nil {
		return fmt.Errorf("stdio connect: %w", err)
	}
	a.session = session
	if a.logger != nil {
		a.logger.Info("stdio transport connected")
	}
	return nil
}

// Close ends the session.
func (a *StdioAdapter) Close() error {
	if a.session == nil {
		return nil
	}
	return a.session.Close()
}

// Serve blocks until the stream closes or ctx is done.
func (a *StdioAdapter) Serve(ctx context.Context) error {
	if a.session == nil {
		return errors.New("stdio: not started")
	}
	done := make(chan error, 1)
	go func() { done <- a.session.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = a.session.Close()
		<-done
		return nil
	}
}
