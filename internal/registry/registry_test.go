package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ganot/oncall-mcp/internal/registry"
	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Message string `json:"message" jsonschema:"text to echo"`
	Repeat  int    `json:"repeat,omitempty"`
}

func textOf(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestKey_WireName(t *testing.T) {
	require.Equal(t, "search", registry.Local("search").WireName())
	require.Equal(t, "remote_search", registry.Remote("search").WireName())
	require.NotEqual(t, registry.Local("search"), registry.Remote("search"))
	require.Equal(t, "remote:search", registry.Remote("search").String())
}

func TestCallTool_MissingRequiredFieldSkipsHandler(t *testing.T) {
	var calls atomic.Int32
	r := registry.New()
	require.NoError(t, registry.RegisterTyped(r, registry.Local("echo"), "echo a message",
		func(ctx context.Context, in echoArgs) (*sdkmcp.CallToolResult, error) {
			calls.Add(1)
			return registry.TextResult(in.Message), nil
		}))

	res := r.CallTool(context.Background(), "echo", json.RawMessage(`{}`))
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "invalid arguments")
	require.Equal(t, int32(0), calls.Load())

	res = r.CallTool(context.Background(), "echo", nil)
	require.True(t, res.IsError)
	require.Equal(t, int32(0), calls.Load())

	res = r.CallTool(context.Background(), "echo", json.RawMessage(`{"message": 5}`))
	require.True(t, res.IsError)
	require.Equal(t, int32(0), calls.Load())

	res = r.CallTool(context.Background(), "echo", json.RawMessage(`{"message":"hi"}`))
	require.False(t, res.IsError)
	require.Equal(t, "hi", textOf(t, res))
	require.Equal(t, int32(1), calls.Load())
}

func TestCallTool_HandlerErrorAndPanic(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.RegisterTool(registry.Local("fails"), "", nil,
		func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) {
			return nil, errors.New("backend exploded")
		}))
	require.NoError(t, r.RegisterTool(registry.Local("panics"), "", nil,
		func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) {
			panic("nil map write")
		}))

	res := r.CallTool(context.Background(), "fails", nil)
	require.True(t, res.IsError)
	require.Equal(t, "backend exploded", textOf(t, res))

	res = r.CallTool(context.Background(), "panics", nil)
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "nil map write")
}

func TestCallTool_EmptyResultGetsTextBlock(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.RegisterTool(registry.Local("empty"), "", nil,
		func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) {
			return nil, nil
		}))
	require.NoError(t, r.RegisterTool(registry.Local("structured"), "", nil,
		func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) {
			return &sdkmcp.CallToolResult{StructuredContent: map[string]int{"n": 1}}, nil
		}))

	res := r.CallTool(context.Background(), "empty", nil)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	res = r.CallTool(context.Background(), "structured", nil)
	require.Equal(t, `{"n":1}`, textOf(t, res))
}

func TestCallTool_Unknown(t *testing.T) {
	res := registry.New().CallTool(context.Background(), "nope", nil)
	require.True(t, res.IsError)
	require.Contains(t, textOf(t, res), "unknown tool")
}

func TestRegisterTool_RejectsDuplicates(t *testing.T) {
	noop := func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) { return nil, nil }
	r := registry.New()
	require.NoError(t, r.RegisterTool(registry.Local("search"), "first", nil, noop))

	err := r.RegisterTool(registry.Local("search"), "second", nil, noop)
	require.ErrorIs(t, err, registry.ErrDuplicate)

	require.NoError(t, r.RegisterTool(registry.Remote("search"), "remote", nil, noop))

	err = r.RegisterTool(registry.Local("remote_search"), "clash", nil, noop)
	require.ErrorIs(t, err, registry.ErrDuplicate)

	tools := r.ListTools()
	require.Len(t, tools, 2)
	require.Equal(t, "first", tools[0].Description)
	require.Equal(t, 2, r.ToolCount())
}

func TestRegisterTool_InvalidInput(t *testing.T) {
	noop := func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) { return nil, nil }
	r := registry.New()
	require.ErrorIs(t, r.RegisterTool(registry.Local(""), "", nil, noop), registry.ErrInvalidName)
	require.ErrorIs(t, r.RegisterTool(registry.Local("has space"), "", nil, noop), registry.ErrInvalidName)
	require.ErrorIs(t, r.RegisterTool(registry.Local("arr"), "", &jsonschema.Schema{Type: "array"}, noop), registry.ErrInvalidSchema)
	require.Error(t, r.RegisterTool(registry.Local("nil"), "", nil, nil))
}

func TestPrompts(t *testing.T) {
	r := registry.New()
	args := []*sdkmcp.PromptArgument{{Name: "ticket_number", Required: true}, {Name: "severity"}}
	require.NoError(t, r.RegisterPrompt(registry.Local("analyze"), "analyze a ticket", args,
		func(_ context.Context, in map[string]string) (*sdkmcp.GetPromptResult, error) {
			return &sdkmcp.GetPromptResult{Messages: []*sdkmcp.PromptMessage{{
				Role:    "user",
				Content: &sdkmcp.TextContent{Text: in["ticket_number"] + "/" + in["severity"]},
			}}}, nil
		}))
	require.ErrorIs(t, r.RegisterPrompt(registry.Local("analyze"), "", nil,
		func(context.Context, map[string]string) (*sdkmcp.GetPromptResult, error) { return nil, nil }), registry.ErrDuplicate)

	_, err := r.GetPrompt(context.Background(), "analyze", map[string]string{"severity": "high"})
	require.ErrorIs(t, err, registry.ErrMissingArgument)

	res, err := r.GetPrompt(context.Background(), "analyze", map[string]string{"ticket_number": "OPS-1"})
	require.NoError(t, err)
	require.Equal(t, "OPS-1/", res.Messages[0].Content.(*sdkmcp.TextContent).Text)

	_, err = r.GetPrompt(context.Background(), "missing", nil)
	require.ErrorIs(t, err, registry.ErrUnknownPrompt)
	require.Len(t, r.ListPrompts(), 1)
}

func TestWithErrorFormatter(t *testing.T) {
	r := registry.New(registry.WithErrorFormatter(func(err error) *sdkmcp.CallToolResult {
		if errors.Is(err, registry.ErrInvalidArguments) {
			return registry.ErrorResult("VALIDATION")
		}
		return registry.ErrorResult("OTHER")
	}))
	require.NoError(t, registry.RegisterTyped(r, registry.Local("echo"), "",
		func(ctx context.Context, in echoArgs) (*sdkmcp.CallToolResult, error) {
			return registry.TextResult(in.Message), nil
		}))
	require.Equal(t, "VALIDATION", textOf(t, r.CallTool(context.Background(), "echo", json.RawMessage(`{"repeat":2}`))))
	require.Equal(t, "OTHER", textOf(t, r.CallTool(context.Background(), "ghost", nil)))
}

func TestBind_ServesThroughSDK(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	r := registry.New()
	require.NoError(t, registry.RegisterTyped(r, registry.Local("echo"), "echo a message",
		func(ctx context.Context, in echoArgs) (*sdkmcp.CallToolResult, error) {
			calls.Add(1)
			return registry.TextResult(in.Message), nil
		}))
	require.NoError(t, r.RegisterTool(registry.Remote("lookup"), "remote lookup", nil,
		func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) {
			return registry.TextResult("forwarded"), nil
		}))
	require.NoError(t, r.RegisterPrompt(registry.Local("greet"), "greet", []*sdkmcp.PromptArgument{{Name: "name", Required: true}},
		func(_ context.Context, in map[string]string) (*sdkmcp.GetPromptResult, error) {
			return &sdkmcp.GetPromptResult{Messages: []*sdkmcp.PromptMessage{{Role: "user", Content: &sdkmcp.TextContent{Text: "hi " + in["name"]}}}}, nil
		}))

	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test", Version: "v0"}, nil)
	r.Bind(server)

	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	list, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := []string{}
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{"echo", "remote_lookup"}, names)

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "echo", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Equal(t, int32(0), calls.Load())

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "echo", Arguments: map[string]any{"message": "pong"}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Equal(t, "pong", textOf(t, res))

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "remote_lookup", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, "forwarded", textOf(t, res))

	prompt, err := session.GetPrompt(ctx, &sdkmcp.GetPromptParams{Name: "greet", Arguments: map[string]string{"name": "ops"}})
	require.NoError(t, err)
	require.Equal(t, "hi ops", prompt.Messages[0].Content.(*sdkmcp.TextContent).Text)
}
