package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ganot/oncall-mcp/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName is reported to clients during initialization.
const ServerName = "oncall-mcp"

// Services contains all domain services needed by MCP.
type Services struct {
	Tickets TicketService
	Triage  TriageService
	// Remote is optional; nil disables forwarded tools.
	Remote RemoteCatalog
}

// Config contains server configuration. One Config may be reused for any
// number of registries; nothing in it is mutated.
type Config struct {
	Services      Services
	TransportMode string // "stdio" or "http"
	Version       string
	BrowseBaseURL string
	Logger        *slog.Logger
	Now           func() time.Time
}

// Connection describes the transport connection a server is built for.
type Connection struct {
	ID string
	// Context, when set, ends every in-flight call once it is done.
	Context context.Context
}

// NewRegistry builds the tool and prompt registry. Every transport goes through
// this routine, so all of them expose the same operations.
func NewRegistry(cfg Config) (*registry.Registry, error) {
	reg := registry.New(
		registry.WithLogger(cfg.Logger),
		registry.WithErrorFormatter(toolError),
	)
	browseBase := strings.TrimRight(cfg.BrowseBaseURL, "/")

	handler := NewHandler(cfg.Services.Tickets, cfg.Services.Triage, cfg.Services.Remote, browseBase)
	if err := handler.registerTools(reg); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	if err := registerPrompts(reg, browseBase); err != nil {
		return nil, fmt.Errorf("registering prompts: %w", err)
	}
	if cfg.Services.Remote != nil {
		if err := cfg.Services.Remote.Register(reg); err != nil && cfg.Logger != nil {
			cfg.Logger.Warn("remote operations not registered", "error", err)
		}
	}
	return reg, nil
}

// NewServer creates an MCP server bound to a fresh registry.
func NewServer(cfg Config, conn Connection) (*sdkmcp.Server, *registry.Registry, error) {
	reg, err := NewRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    ServerName,
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerResources(server, reg, cfg.TransportMode, now)

	server.AddReceivingMiddleware(
		connectionMiddleware(conn.ID, conn.Context),
		trafficLoggingMiddleware(cfg.Logger, "inbound"),
		unknownToolMiddleware(reg),
	)
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	reg.Bind(server)
	return server, reg, nil
}
