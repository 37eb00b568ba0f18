package mcp

import (
	"context"

	"github.com/ganot/oncall-mcp/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const (
	connectionIDKey contextKey = iota
)

// WithConnectionID stores the transport connection id in ctx.
func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey, id)
}

// ConnectionID extracts the connection id from context.
func ConnectionID(ctx context.Context) string {
	v, _ := ctx.Value(connectionIDKey).(string)
	return v
}

// connectionMiddleware tags every method call with the connection id and, when
// conn is set, cancels in-flight calls once conn is done.
func connectionMiddleware(id string, conn context.Context) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if id != "" && ConnectionID(ctx) == "" {
				ctx = WithConnectionID(ctx, id)
			}
			if conn == nil {
				return next(ctx, method, req)
			}
			ctx, cancel := context.WithCancel(ctx)
			stop := context.AfterFunc(conn, cancel)
			defer stop()
			defer cancel()
			return next(ctx, method, req)
		}
	}
}

// unknownToolMiddleware answers calls to unregistered tools with a flagged
// result instead of a protocol error.
func unknownToolMiddleware(reg *registry.Registry) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method != "tools/call" {
				return next(ctx, method, req)
			}
			call, ok := req.(*sdkmcp.CallToolRequest)
			if !ok || call.Params == nil {
				return next(ctx, method, req)
			}
			if _, found := reg.Lookup(call.Params.Name); found {
				return next(ctx, method, req)
			}
			return reg.CallTool(ctx, call.Params.Name, call.Params.Arguments), nil
		}
	}
}
