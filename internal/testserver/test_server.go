package testserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/domain/triage"
	"github.com/ganot/oncall-mcp/internal/jira"
	"github.com/ganot/oncall-mcp/internal/mcp"
	"github.com/ganot/oncall-mcp/internal/proxy"
	"github.com/ganot/oncall-mcp/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// Options tune the assembled server.
type Options struct {
	// Limits default to ticket.DefaultLimits.
	Limits         *ticket.Limits
	CompactDefault bool
	// RemoteEndpoint enables the remote proxy when set.
	RemoteEndpoint string
	// Now pins the triage clock.
	Now func() time.Time
}

// TestServer is the full HTTP stack wired over a fake ticketing backend.
type TestServer struct {
	Jira   *FakeJira
	Server *httptest.Server
	Config mcp.Config
	Remote *proxy.Proxy
}

// New starts a fake backend and the HTTP transport in front of it.
func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	fake := NewFakeJira(t)
	client, err := jira.New(jira.Config{
		BaseURL: fake.URL(),
		Email:   FakeEmail,
		Token:   FakeToken,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	limits := ticket.DefaultLimits()
	if opts.Limits != nil {
		limits = *opts.Limits
	}
	var triageOpts []triage.Option
	if opts.Now != nil {
		triageOpts = append(triageOpts, triage.WithClock(opts.Now))
	}
	tickets := ticket.NewService(client, limits, opts.CompactDefault, nil)
	triageSvc := triage.NewService(tickets, client, nil, triageOpts...)

	ts := &TestServer{Jira: fake}
	services := mcp.Services{Tickets: tickets, Triage: triageSvc}
	if opts.RemoteEndpoint != "" {
		ts.Remote = proxy.Discover(context.Background(), opts.RemoteEndpoint, proxy.Options{Timeout: 5 * time.Second})
		services.Remote = ts.Remote
		t.Cleanup(func() { _ = ts.Remote.Close() })
	}
	ts.Config = mcp.Config{
		Services:      services,
		TransportMode: "http",
		Version:       "test",
		BrowseBaseURL: fake.URL(),
		Now:           opts.Now,
	}

	reg, err := mcp.NewRegistry(ts.Config)
	require.NoError(t, err)
	toolCount := reg.ToolCount()

	factory := func(ctx context.Context, connectionID string) (*sdkmcp.Server, error) {
		server, _, err := mcp.NewServer(ts.Config, mcp.Connection{ID: connectionID, Context: ctx})
		return server, err
	}
	ts.Server = httptest.NewServer(transport.NewServer(factory, transport.HTTPOptions{
		TransportMode:   "http",
		RegisteredTools: func() int { return toolCount },
		Stats:           transport.NewStats(time.Now()),
	}))
	t.Cleanup(ts.Server.Close)

	return ts
}

// Endpoint is the MCP endpoint URL.
func (ts *TestServer) Endpoint() string {
	return ts.Server.URL + "/mcp"
}

// Connect opens an SDK client session against the HTTP endpoint.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{Endpoint: ts.Endpoint()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// ConnectStdio serves the same configuration the way the stdio transport
// does, one long-lived server over an in-memory pipe.
func (ts *TestServer) ConnectStdio(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	cfg := ts.Config
	cfg.TransportMode = "stdio"
	server, _, err := mcp.NewServer(cfg, mcp.Connection{ID: "stdio"})
	require.NoError(t, err)

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	adapter := transport.NewStdioAdapter(server, serverTransport, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, adapter.Start(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = adapter.Serve(ctx)
	}()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		<-done
	})
	return session
}
