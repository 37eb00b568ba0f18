// Package registry maps operation keys to schemas and handlers and dispatches
// calls to them. Every transport builds its registries through the same
// routine and binds them onto an MCP server.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolHandler handles one tool call. args have already passed the tool's input
// schema. A returned error is converted into a flagged result.
type ToolHandler func(ctx context.Context, args json.RawMessage) (*sdkmcp.CallToolResult, error)

// PromptHandler renders one prompt. Required arguments are guaranteed present.
type PromptHandler func(ctx context.Context, args map[string]string) (*sdkmcp.GetPromptResult, error)

// Tool is a registered tool descriptor.
type Tool struct {
	Key         Key
	Description string
	InputSchema *jsonschema.Schema
	Handler     ToolHandler

	resolved *jsonschema.Resolved
}

// Prompt is a registered prompt descriptor.
type Prompt struct {
	Key         Key
	Description string
	Arguments   []*sdkmcp.PromptArgument
	Handler     PromptHandler
}

// Registry owns its tool and prompt maps. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	tools       map[Key]*Tool
	toolOrder   []Key
	prompts     map[Key]*Prompt
	promptOrder []Key
	wireTools   map[string]Key
	wirePrompts map[string]Key

	logger      *slog.Logger
	formatError func(error) *sdkmcp.CallToolResult
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for dispatch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithErrorFormatter sets how handler, validation and panic errors become
// flagged results.
func WithErrorFormatter(fn func(error) *sdkmcp.CallToolResult) Option {
	return func(r *Registry) {
		if fn != nil {
			r.formatError = fn
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		tools:       make(map[Key]*Tool),
		prompts:     make(map[Key]*Prompt),
		wireTools:   make(map[string]Key),
		wirePrompts: make(map[string]Key),
		formatError: defaultErrorFormatter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,120}$`)

func validateKey(key Key) error {
	if !namePattern.MatchString(key.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, key.Name)
	}
	if key.Origin != OriginLocal && key.Origin != OriginRemote {
		return fmt.Errorf("%w: %s", ErrInvalidName, key)
	}
	return nil
}

// RegisterTool adds a tool. A nil schema accepts any object. Registering a key,
// or a key whose wire name is taken, fails with ErrDuplicate. Remote tools
// whose schema cannot be resolved are still registered and left for the
// remote side to validate.
func (r *Registry) RegisterTool(key Key, description string, schema *jsonschema.Schema, handler ToolHandler) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("tool %s: nil handler", key)
	}
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}
	if schema.Type != "object" {
		return fmt.Errorf("%w: tool %s: type must be \"object\", got %q", ErrInvalidSchema, key, schema.Type)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		if key.Origin == OriginLocal {
			return fmt.Errorf("%w: tool %s: %v", ErrInvalidSchema, key, err)
		}
		r.logWarn("remote tool schema not resolvable, skipping local validation", "tool", key.Name, "error", err)
		resolved = nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[key]; ok {
		return fmt.Errorf("tool %s: %w", key, ErrDuplicate)
	}
	if other, ok := r.wireTools[key.WireName()]; ok {
		return fmt.Errorf("tool %s: wire name %q used by %s: %w", key, key.WireName(), other, ErrDuplicate)
	}
	r.tools[key] = &Tool{
		Key:         key,
		Description: description,
		InputSchema: schema,
		Handler:     handler,
		resolved:    resolved,
	}
	r.toolOrder = append(r.toolOrder, key)
	r.wireTools[key.WireName()] = key
	return nil
}

// RegisterPrompt adds a prompt. Duplicate keys and wire names fail with ErrDuplicate.
func (r *Registry) RegisterPrompt(key Key, description string, args []*sdkmcp.PromptArgument, handler PromptHandler) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("prompt %s: nil handler", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prompts[key]; ok {
		return fmt.Errorf("prompt %s: %w", key, ErrDuplicate)
	}
	if other, ok := r.wirePrompts[key.WireName()]; ok {
		return fmt.Errorf("prompt %s: wire name %q used by %s: %w", key, key.WireName(), other, ErrDuplicate)
	}
	r.prompts[key] = &Prompt{Key: key, Description: description, Arguments: args, Handler: handler}
	r.promptOrder = append(r.promptOrder, key)
	r.wirePrompts[key.WireName()] = key
	return nil
}

// ListTools returns the tools in registration order.
func (r *Registry) ListTools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.toolOrder))
	for _, key := range r.toolOrder {
		out = append(out, *r.tools[key])
	}
	return out
}

// ListPrompts returns the prompts in registration order.
func (r *Registry) ListPrompts() []Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Prompt, 0, len(r.promptOrder))
	for _, key := range r.promptOrder {
		out = append(out, *r.prompts[key])
	}
	return out
}

// ToolCount returns the number of registered tools.
func (r *Registry) ToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Lookup resolves a wire name to a tool key.
func (r *Registry) Lookup(wireName string) (Key, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.wireTools[wireName]
	return key, ok
}

// CallTool dispatches by wire name. It always returns exactly one result.
func (r *Registry) CallTool(ctx context.Context, wireName string, args json.RawMessage) *sdkmcp.CallToolResult {
	key, ok := r.Lookup(wireName)
	if !ok {
		return r.formatError(fmt.Errorf("%w: %q", ErrUnknownTool, wireName))
	}
	return r.Call(ctx, key, args)
}

// Call validates args against the tool's schema and invokes its handler.
// Validation failures never reach the handler; handler errors and panics
// become flagged results.
func (r *Registry) Call(ctx context.Context, key Key, args json.RawMessage) (result *sdkmcp.CallToolResult) {
	r.mu.RLock()
	tool, ok := r.tools[key]
	r.mu.RUnlock()
	if !ok {
		return r.formatError(fmt.Errorf("%w: %s", ErrUnknownTool, key))
	}

	if err := validateArgs(tool, args); err != nil {
		return r.formatError(err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logError("tool handler panicked", "tool", key.String(), "panic", rec)
			result = r.formatError(fmt.Errorf("%w: %s: %v", ErrHandlerPanic, key.WireName(), rec))
		}
	}()

	res, err := tool.Handler(ctx, args)
	if err != nil {
		return r.formatError(err)
	}
	return ensureContent(res)
}

func validateArgs(tool *Tool, args json.RawMessage) error {
	if tool.resolved == nil {
		return nil
	}
	var instance any = map[string]any{}
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &instance); err != nil {
			return fmt.Errorf("%w for %s: %v", ErrInvalidArguments, tool.Key.WireName(), err)
		}
	}
	if err := tool.resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidArguments, tool.Key.WireName(), err)
	}
	return nil
}

// GetPrompt renders a prompt by wire name.
func (r *Registry) GetPrompt(ctx context.Context, wireName string, args map[string]string) (*sdkmcp.GetPromptResult, error) {
	r.mu.RLock()
	key, ok := r.wirePrompts[wireName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrompt, wireName)
	}
	return r.Prompt(ctx, key, args)
}

// Prompt checks required arguments and renders the prompt.
func (r *Registry) Prompt(ctx context.Context, key Key, args map[string]string) (result *sdkmcp.GetPromptResult, err error) {
	r.mu.RLock()
	prompt, ok := r.prompts[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrompt, key)
	}
	if args == nil {
		args = map[string]string{}
	}
	for _, arg := range prompt.Arguments {
		if arg.Required && args[arg.Name] == "" {
			return nil, fmt.Errorf("%w %q for prompt %s", ErrMissingArgument, arg.Name, key.WireName())
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logError("prompt handler panicked", "prompt", key.String(), "panic", rec)
			result, err = nil, fmt.Errorf("%w: %s: %v", ErrHandlerPanic, key.WireName(), rec)
		}
	}()
	return prompt.Handler(ctx, args)
}

// Bind registers every tool and prompt onto server. Calls arriving through the
// server go through Call and Prompt.
func (r *Registry) Bind(server *sdkmcp.Server) {
	for _, tool := range r.ListTools() {
		key := tool.Key
		server.AddTool(&sdkmcp.Tool{
			Name:        key.WireName(),
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			return r.Call(ctx, key, args), nil
		})
	}
	for _, prompt := range r.ListPrompts() {
		key := prompt.Key
		server.AddPrompt(&sdkmcp.Prompt{
			Name:        key.WireName(),
			Description: prompt.Description,
			Arguments:   prompt.Arguments,
		}, func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
			var args map[string]string
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			return r.Prompt(ctx, key, args)
		})
	}
}

func (r *Registry) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Registry) logError(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Error(msg, args...)
	}
}
