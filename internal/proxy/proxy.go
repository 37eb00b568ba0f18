// Package proxy re-exposes the tools and prompts of a second MCP service as
// forwarded operations.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ganot/oncall-mcp/internal/registry"
	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrNotConnected is returned by forwarded calls once the proxy is closed.
var ErrNotConnected = errors.New("remote service not connected")

// Status describes the outcome of discovery.
type Status struct {
	Endpoint     string    `json:"endpoint"`
	Connected    bool      `json:"connected"`
	Tools        []string  `json:"tools"`
	Prompts      []string  `json:"prompts"`
	Error        string    `json:"error,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Options configures discovery.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Version    string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Proxy holds one client session to the remote service. After Discover it is
// only read, so any number of registries may share it.
type Proxy struct {
	endpoint string
	logger   *slog.Logger

	mu      sync.RWMutex
	session *sdkmcp.ClientSession
	tools   []*sdkmcp.Tool
	prompts []*sdkmcp.Prompt
	status  Status
}

// Discover connects to endpoint and lists its tools and prompts. It never
// fails: a discovery error leaves the proxy empty and is reported by Status.
func Discover(ctx context.Context, endpoint string, opts Options) *Proxy {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	p := &Proxy{
		endpoint: endpoint,
		logger:   opts.Logger,
		status:   Status{Endpoint: endpoint, Tools: []string{}, Prompts: []string{}},
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	err := p.discover(ctx, opts)
	p.status.DiscoveredAt = now().UTC()
	if err != nil {
		p.status.Error = err.Error()
		if p.session != nil {
			_ = p.session.Close()
			p.session = nil
		}
		p.tools, p.prompts = nil, nil
		p.logWarn("remote discovery failed", "endpoint", endpoint, "error", err)
		return p
	}

	p.status.Connected = true
	for _, tool := range p.tools {
		p.status.Tools = append(p.status.Tools, tool.Name)
	}
	for _, prompt := range p.prompts {
		p.status.Prompts = append(p.status.Prompts, prompt.Name)
	}
	p.logInfo("remote discovery complete", "endpoint", endpoint,
		"tools", len(p.tools), "prompts", len(p.prompts))
	return p
}

func (p *Proxy) discover(ctx context.Context, opts Options) error {
	if p.endpoint == "" {
		return errors.New("no endpoint configured")
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "oncall-mcp-proxy", Version: version}, nil)
	transport := &sdkmcp.StreamableClientTransport{Endpoint: p.endpoint, HTTPClient: opts.HTTPClient}
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	p.session = session

	var cursor string
	for {
		res, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return fmt.Errorf("list tools: %w", err)
		}
		p.tools = append(p.tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	// Servers without prompts answer with method-not-found; that is not a failure.
	if session.InitializeResult() != nil && session.InitializeResult().Capabilities != nil &&
		session.InitializeResult().Capabilities.Prompts == nil {
		return nil
	}
	cursor = ""
	for {
		res, err := session.ListPrompts(ctx, &sdkmcp.ListPromptsParams{Cursor: cursor})
		if err != nil {
			return fmt.Errorf("list prompts: %w", err)
		}
		p.prompts = append(p.prompts, res.Prompts...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return nil
}

// Register adds a forwarding tool for every discovered tool and a forwarding
// prompt for every discovered prompt. Entries that cannot be registered are
// skipped and reported together.
func (p *Proxy) Register(reg *registry.Registry) error {
	p.mu.RLock()
	tools, prompts := p.tools, p.prompts
	p.mu.RUnlock()

	var errs []error
	for _, tool := range tools {
		name := tool.Name
		schema, err := toSchema(tool.InputSchema)
		if err != nil {
			errs = append(errs, fmt.Errorf("remote tool %s: %w", name, err))
			continue
		}
		err = reg.RegisterTool(registry.Remote(name), tool.Description, schema,
			func(ctx context.Context, args json.RawMessage) (*sdkmcp.CallToolResult, error) {
				return p.CallTool(ctx, name, args)
			})
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, prompt := range prompts {
		name := prompt.Name
		err := reg.RegisterPrompt(registry.Remote(name), prompt.Description, prompt.Arguments,
			func(ctx context.Context, args map[string]string) (*sdkmcp.GetPromptResult, error) {
				return p.GetPrompt(ctx, name, args)
			})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CallTool forwards a call verbatim and returns the remote result unchanged.
func (p *Proxy) CallTool(ctx context.Context, name string, args json.RawMessage) (*sdkmcp.CallToolResult, error) {
	session, err := p.current()
	if err != nil {
		return nil, err
	}
	params := &sdkmcp.CallToolParams{Name: name}
	if len(args) > 0 {
		params.Arguments = args
	}
	res, err := session.CallTool(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("remote tool %s: %w", name, err)
	}
	return res, nil
}

// GetPrompt forwards a prompt request verbatim.
func (p *Proxy) GetPrompt(ctx context.Context, name string, args map[string]string) (*sdkmcp.GetPromptResult, error) {
	session, err := p.current()
	if err != nil {
		return nil, err
	}
	res, err := session.GetPrompt(ctx, &sdkmcp.GetPromptParams{Name: name, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("remote prompt %s: %w", name, err)
	}
	return res, nil
}

// Status reports the discovery outcome.
func (p *Proxy) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st := p.status
	st.Tools = append([]string(nil), p.status.Tools...)
	st.Prompts = append([]string(nil), p.status.Prompts...)
	return st
}

// Close ends the remote session.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	p.status.Connected = false
	return err
}

func (p *Proxy) current() (*sdkmcp.ClientSession, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.session == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, p.endpoint)
	}
	return p.session, nil
}

// toSchema converts a schema decoded as generic JSON into a typed schema.
func toSchema(raw any) (*jsonschema.Schema, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(*jsonschema.Schema); ok {
		return s, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode input schema: %w", err)
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	if schema.Type == "" {
		schema.Type = "object"
	}
	return &schema, nil
}

func (p *Proxy) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Proxy) logWarn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
