package transport

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ConnectionHeader echoes the id assigned to an HTTP connection.
const ConnectionHeader = "X-Connection-Id"

// ServerFactory builds a fresh MCP server, with its own registry, for one
// connection. ctx is done once the connection closes.
type ServerFactory func(ctx context.Context, connectionID string) (*sdkmcp.Server, error)

type connectionKey struct{}

func serverFromContext(ctx context.Context) *sdkmcp.Server {
	server, _ := ctx.Value(connectionKey{}).(*sdkmcp.Server)
	return server
}

// Stats holds the gauges reported by the metrics endpoint.
type Stats struct {
	started time.Time
	active  atomic.Int64
	total   atomic.Int64
}

// NewStats starts the uptime clock.
func NewStats(now time.Time) *Stats {
	return &Stats{started: now}
}

// Active returns the number of open connections.
func (s *Stats) Active() int64 {
	return s.active.Load()
}

// Total returns the number of connections accepted so far.
func (s *Stats) Total() int64 {
	return s.total.Load()
}

// connectionMiddleware assigns a connection id, builds the per-connection
// server and discards it when the request completes. The request context is
// cancelled when the client disconnects, which ends in-flight calls.
func connectionMiddleware(factory ServerFactory, stats *Stats, onError func(error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()
			ctx, cancel := context.WithCancel(r.Context())
			defer cancel()

			server, err := factory(ctx, id)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				WriteError(w, nil, ErrInternal, "server unavailable", nil)
				return
			}

			stats.total.Add(1)
			stats.active.Add(1)
			defer stats.active.Add(-1)

			w.Header().Set(ConnectionHeader, id)
			ctx = context.WithValue(ctx, connectionKey{}, server)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
