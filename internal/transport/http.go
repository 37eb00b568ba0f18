package transport

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/unrolled/secure"
)

const (
	// ServiceName is reported by the health endpoint.
	ServiceName = "oncall-mcp"

	defaultMaxConcurrent = 16
	maxBodyBytes         = 4 << 20
)

// HTTPOptions configures the HTTP surface.
type HTTPOptions struct {
	TransportMode string
	// MaxConcurrent caps in-flight dispatch requests; zero means 16.
	MaxConcurrent int64
	// RateLimiter is optional.
	RateLimiter *RateLimiter
	// RegisteredTools reports the size of the tool set served to every connection.
	RegisteredTools func() int
	Stats           *Stats
	Logger          *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	opts  HTTPOptions
	stats *Stats
}

// NewServer creates the HTTP router. Every request to /mcp gets its own MCP
// server built by factory; nothing is kept between requests.
func NewServer(factory ServerFactory, opts HTTPOptions) *chi.Mux {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.Stats == nil {
		opts.Stats = NewStats(time.Now())
	}
	if opts.TransportMode == "" {
		opts.TransportMode = "http"
	}
	srv := &Server{opts: opts, stats: opts.Stats}

	headers := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "no-referrer",
	})

	r := chi.NewRouter()
	r.Use(headers.Handler)

	r.Get("/health", srv.handleHealth)
	r.Get("/metrics", srv.handleMetrics)

	dispatch := []func(http.Handler) http.Handler{concurrencyLimit(opts.MaxConcurrent)}
	if opts.RateLimiter != nil {
		dispatch = append(dispatch, opts.RateLimiter.Middleware)
	}
	dispatch = append(dispatch, protocolEnvelope, connectionMiddleware(factory, srv.stats, srv.logFactoryError))

	mcpHandler := sdkmcp.NewStreamableHTTPHandler(func(r *http.Request) *sdkmcp.Server {
		return serverFromContext(r.Context())
	}, &sdkmcp.StreamableHTTPOptions{
		Stateless:    true,
		JSONResponse: true,
		Logger:       opts.Logger,
	})
	r.With(dispatch...).Handle("/mcp", mcpHandler)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   ServiceName,
		"transport": s.opts.TransportMode,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	tools := 0
	if s.opts.RegisteredTools != nil {
		tools = s.opts.RegisteredTools()
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "oncall_uptime_seconds %d\n", int64(time.Since(s.stats.started).Seconds()))
	fmt.Fprintf(w, "oncall_memory_alloc_bytes %d\n", mem.Alloc)
	fmt.Fprintf(w, "oncall_memory_sys_bytes %d\n", mem.Sys)
	fmt.Fprintf(w, "oncall_goroutines %d\n", runtime.NumGoroutine())
	fmt.Fprintf(w, "oncall_registered_tools %d\n", tools)
	fmt.Fprintf(w, "oncall_active_connections %d\n", s.stats.Active())
	fmt.Fprintf(w, "oncall_connections_total %d\n", s.stats.Total())
}

func (s *Server) logFactoryError(err error) {
	if s.opts.Logger != nil {
		s.opts.Logger.Error("failed to build connection server", "error", err)
	}
}

// protocolEnvelope answers POST bodies that are not JSON-RPC messages with a
// JSON-RPC error instead of passing them on.
func protocolEnvelope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			WriteError(w, nil, ErrInvalidReq, "unreadable request body: "+err.Error(), nil)
			return
		}
		if _, perr := ParseMessages(body); perr != nil {
			WriteError(w, nil, perr.Code, perr.Message, nil)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		next.ServeHTTP(w, r)
	})
}
