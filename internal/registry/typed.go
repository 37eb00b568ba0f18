package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Typed adapts a handler on a decoded argument struct.
func Typed[In any](fn func(ctx context.Context, in In) (*sdkmcp.CallToolResult, error)) ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*sdkmcp.CallToolResult, error) {
		var in In
		if len(bytes.TrimSpace(args)) > 0 && string(args) != "null" {
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
		}
		return fn(ctx, in)
	}
}

// RegisterTyped registers a tool whose input schema is inferred from In.
// Fields without omitempty are required; jsonschema tags become descriptions.
func RegisterTyped[In any](r *Registry, key Key, description string, fn func(ctx context.Context, in In) (*sdkmcp.CallToolResult, error)) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("%w: tool %s: %v", ErrInvalidSchema, key, err)
	}
	return r.RegisterTool(key, description, schema, Typed(fn))
}
