package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/ganot/oncall-mcp/internal/config"
	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/domain/triage"
	"github.com/ganot/oncall-mcp/internal/jira"
	"github.com/ganot/oncall-mcp/internal/mcp"
	"github.com/ganot/oncall-mcp/internal/proxy"
	"github.com/ganot/oncall-mcp/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
)

// app holds the process-wide, read-only dependencies shared by every registry.
type app struct {
	mcpConfig mcp.Config
	logger    *slog.Logger
	remote    *proxy.Proxy
	redis     *redis.Client
	toolCount int
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	if cfg.Jira.BaseURL == "" {
		return nil, fmt.Errorf("config error: JIRA_BASE_URL is required")
	}
	client, err := jira.New(jira.Config{
		BaseURL: cfg.Jira.BaseURL,
		Email:   cfg.Jira.Email,
		Token:   cfg.Jira.Token,
		Timeout: cfg.Jira.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("jira client: %w", err)
	}
	return assemble(ctx, cfg, client, logger)
}

// assemble wires services over any backend.
func assemble(ctx context.Context, cfg config.Config, backend ticket.Backend, logger *slog.Logger) (*app, error) {
	limits := ticket.Limits{
		MaxDescriptionChars: cfg.Limits.MaxDescriptionChars,
		MaxCommentChars:     cfg.Limits.MaxCommentChars,
		MaxCommentCount:     cfg.Limits.MaxCommentCount,
		MaxChangelogItems:   cfg.Limits.MaxChangelogItems,
	}
	tickets := ticket.NewService(backend, limits, cfg.Limits.CompactDefault, logger)
	triageSvc := triage.NewService(tickets, backend, logger)

	a := &app{logger: logger}
	services := mcp.Services{Tickets: tickets, Triage: triageSvc}
	if cfg.Remote.Endpoint != "" {
		a.remote = proxy.Discover(ctx, cfg.Remote.Endpoint, proxy.Options{
			Timeout: cfg.Remote.Timeout,
			Version: version,
			Logger:  logger,
		})
		services.Remote = a.remote
	}

	a.mcpConfig = mcp.Config{
		Services:      services,
		TransportMode: cfg.Transport.Mode,
		Version:       version,
		BrowseBaseURL: cfg.Jira.BaseURL,
		Logger:        logger,
	}

	reg, err := mcp.NewRegistry(a.mcpConfig)
	if err != nil {
		return nil, err
	}
	a.toolCount = reg.ToolCount()
	return a, nil
}

// ToolCount is the size of the tool set every registry is built with.
func (a *app) ToolCount() int {
	return a.toolCount
}

// NewConnectionServer builds the server for one HTTP connection.
func (a *app) NewConnectionServer(ctx context.Context, connectionID string) (*sdkmcp.Server, error) {
	server, _, err := mcp.NewServer(a.mcpConfig, mcp.Connection{ID: connectionID, Context: ctx})
	return server, err
}

// Adapters returns the adapters for the configured transport mode.
func (a *app) Adapters(cfg config.Config, stdin io.ReadCloser, stdout io.WriteCloser) ([]transport.Adapter, error) {
	var adapters []transport.Adapter
	mode := cfg.Transport.Mode

	if mode == config.TransportStdio || mode == config.TransportDual {
		stdioCfg := a.mcpConfig
		stdioCfg.TransportMode = config.TransportStdio
		server, _, err := mcp.NewServer(stdioCfg, mcp.Connection{ID: "stdio"})
		if err != nil {
			return nil, err
		}
		var t sdkmcp.Transport = &sdkmcp.StdioTransport{}
		if stdin != nil && stdout != nil {
			t = &sdkmcp.IOTransport{Reader: stdin, Writer: stdout}
		}
		adapters = append(adapters, transport.NewStdioAdapter(server, t, a.logger))
	}

	if mode == config.TransportHTTP || mode == config.TransportDual {
		opts := transport.HTTPOptions{
			TransportMode:   mode,
			MaxConcurrent:   int64(cfg.Server.MaxConcurrent),
			RegisteredTools: a.ToolCount,
			Stats:           transport.NewStats(time.Now()),
			Logger:          a.logger,
		}
		if cfg.RateLimit.RedisAddr != "" {
			if a.redis == nil {
				a.redis = redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
			}
			limiter := transport.NewRateLimiter(a.redis, cfg.RateLimit.Requests, cfg.RateLimit.Window, a.logger)
			if err := limiter.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
				return nil, err
			}
			opts.RateLimiter = limiter
		}
		router := transport.NewServer(a.NewConnectionServer, opts)
		addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
		adapters = append(adapters, transport.NewHTTPAdapter(addr, router, a.logger))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("invalid transport %q", mode)
	}
	return adapters, nil
}

// Close releases the shared connections.
func (a *app) Close() {
	if a.remote != nil {
		_ = a.remote.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
