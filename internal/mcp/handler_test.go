package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/domain/triage"
	"github.com/ganot/oncall-mcp/internal/jira"
	"github.com/ganot/oncall-mcp/internal/proxy"
	"github.com/ganot/oncall-mcp/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

type ticketStub struct {
	fetchFn       func(ctx context.Context, key string, compact *bool) (*ticket.View, error)
	searchFn      func(ctx context.Context, jql string, opts ticket.SearchOptions) ([]ticket.SearchRow, error)
	commentFn     func(ctx context.Context, key, body string) (string, error)
	updateFn      func(ctx context.Context, key string, fields map[string]any) error
	transitionsFn func(ctx context.Context, key string) ([]ticket.Transition, error)
	transitionFn  func(ctx context.Context, key, transitionID, comment string) error
	optionsFn     func(ctx context.Context, key, fieldID string) ([]ticket.FieldOption, error)
	createFn      func(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error)
	deleteFn      func(ctx context.Context, key string) error
}

func (s ticketStub) Fetch(ctx context.Context, key string, compact *bool) (*ticket.View, error) {
	return s.fetchFn(ctx, key, compact)
}
func (s ticketStub) Search(ctx context.Context, jql string, opts ticket.SearchOptions) ([]ticket.SearchRow, error) {
	return s.searchFn(ctx, jql, opts)
}
func (s ticketStub) AddComment(ctx context.Context, key, body string) (string, error) {
	return s.commentFn(ctx, key, body)
}
func (s ticketStub) UpdateFields(ctx context.Context, key string, fields map[string]any) error {
	return s.updateFn(ctx, key, fields)
}
func (s ticketStub) ListTransitions(ctx context.Context, key string) ([]ticket.Transition, error) {
	return s.transitionsFn(ctx, key)
}
func (s ticketStub) Transition(ctx context.Context, key, transitionID, comment string) error {
	return s.transitionFn(ctx, key, transitionID, comment)
}
func (s ticketStub) ListFieldOptions(ctx context.Context, key, fieldID string) ([]ticket.FieldOption, error) {
	return s.optionsFn(ctx, key, fieldID)
}
func (s ticketStub) Create(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error) {
	return s.createFn(ctx, req)
}

func (s ticketStub) Delete(ctx context.Context, key string) error {
	return s.deleteFn(ctx, key)
}

type triageStub struct {
	triageFn func(ctx context.Context, key string, opts triage.Options) (*triage.Report, error)
}

func (s triageStub) Triage(ctx context.Context, key string, opts triage.Options) (*triage.Report, error) {
	return s.triageFn(ctx, key, opts)
}
func (s triageStub) Render(r *triage.Report) string {
	return "# Triage Report: " + r.Key
}

type remoteStub struct {
	status proxy.Status
	tools  []string
	err    error
}

func (s remoteStub) Register(reg *registry.Registry) error {
	if s.err != nil {
		return s.err
	}
	for _, name := range s.tools {
		name := name
		err := reg.RegisterTool(registry.Remote(name), "remote "+name, nil,
			func(context.Context, json.RawMessage) (*sdkmcp.CallToolResult, error) {
				return registry.TextResult("forwarded " + name), nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s remoteStub) Status() proxy.Status { return s.status }

func resultText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func newTestRegistry(t *testing.T, tickets TicketService, tri TriageService, remote RemoteCatalog) *registry.Registry {
	t.Helper()
	reg, err := NewRegistry(Config{
		Services:      Services{Tickets: tickets, Triage: tri, Remote: remote},
		TransportMode: "stdio",
		BrowseBaseURL: "https://example.atlassian.net/",
	})
	require.NoError(t, err)
	return reg
}

func TestNewRegistry_Catalog(t *testing.T) {
	reg := newTestRegistry(t, ticketStub{}, triageStub{}, remoteStub{tools: []string{"lookup"}})

	names := []string{}
	for _, tool := range reg.ListTools() {
		names = append(names, tool.Key.WireName())
	}
	require.ElementsMatch(t, []string{
		"get_ticket", "triage_ticket", "search_tickets", "add_comment", "update_fields",
		"list_transitions", "transition_ticket", "list_field_options", "create_ticket",
		"delete_ticket", "proxy_status", "remote_lookup",
	}, names)
	require.Equal(t, 12, reg.ToolCount())

	prompts := []string{}
	for _, p := range reg.ListPrompts() {
		prompts = append(prompts, p.Key.WireName())
	}
	require.ElementsMatch(t, []string{
		"analyze_ticket_with_similar_solutions", "incident_response_analysis",
		"ticket_triage_assistant", "outage_notification",
	}, prompts)
}

func TestNewRegistry_RemoteFailureKeepsLocalTools(t *testing.T) {
	reg := newTestRegistry(t, ticketStub{}, triageStub{}, remoteStub{err: errors.New("unreachable")})
	require.Equal(t, 11, reg.ToolCount())
}

func TestHandler_TicketTools(t *testing.T) {
	ctx := context.Background()
	var gotCompact *bool
	var gotSearch ticket.SearchOptions
	var gotFields map[string]any
	var gotCreate ticket.CreateRequest
	var gotDelete string

	tickets := ticketStub{
		fetchFn: func(ctx context.Context, key string, compact *bool) (*ticket.View, error) {
			gotCompact = compact
			if compact != nil && !*compact {
				return &ticket.View{Markdown: "# " + key + ": Checkout down"}, nil
			}
			return &ticket.View{Compact: &ticket.CompactTicket{Key: key, Summary: "Checkout down"}}, nil
		},
		searchFn: func(ctx context.Context, jql string, opts ticket.SearchOptions) ([]ticket.SearchRow, error) {
			gotSearch = opts
			return []ticket.SearchRow{{Key: "PROD-1", Summary: "one"}, {Key: "PROD-2", Summary: "two"}}, nil
		},
		commentFn: func(ctx context.Context, key, body string) (string, error) {
			return "10001", nil
		},
		updateFn: func(ctx context.Context, key string, fields map[string]any) error {
			gotFields = fields
			return nil
		},
		transitionsFn: func(ctx context.Context, key string) ([]ticket.Transition, error) {
			return []ticket.Transition{{ID: "31", Name: "Done", ToStatus: "Done"}}, nil
		},
		transitionFn: func(ctx context.Context, key, transitionID, comment string) error {
			return nil
		},
		optionsFn: func(ctx context.Context, key, fieldID string) ([]ticket.FieldOption, error) {
			return []ticket.FieldOption{{ID: "1", Label: "Highest"}}, nil
		},
		createFn: func(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error) {
			gotCreate = req
			return &ticket.Created{Key: "PROD-77", ID: "77"}, nil
		},
		deleteFn: func(ctx context.Context, key string) error {
			gotDelete = key
			return nil
		},
	}
	reg := newTestRegistry(t, tickets, triageStub{}, nil)

	res := reg.CallTool(ctx, "get_ticket", json.RawMessage(`{"ticket_id":"PROD-9"}`))
	require.False(t, res.IsError)
	require.Nil(t, gotCompact)
	var compact ticket.CompactTicket
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &compact))
	require.Equal(t, "PROD-9", compact.Key)

	res = reg.CallTool(ctx, "get_ticket", json.RawMessage(`{"ticket_id":"PROD-9","compact":false}`))
	require.False(t, res.IsError)
	require.NotNil(t, gotCompact)
	require.Equal(t, "# PROD-9: Checkout down", resultText(t, res))

	res = reg.CallTool(ctx, "search_tickets", json.RawMessage(`{"jql":"project = PROD","max_results":5}`))
	require.False(t, res.IsError)
	require.Equal(t, 5, gotSearch.MaxResults)
	var search SearchTicketsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &search))
	require.Equal(t, 2, search.Count)

	res = reg.CallTool(ctx, "add_comment", json.RawMessage(`{"ticket_id":"PROD-9","body":"looking"}`))
	require.False(t, res.IsError)
	require.Contains(t, resultText(t, res), `"comment_id": "10001"`)

	res = reg.CallTool(ctx, "update_fields", json.RawMessage(`{"ticket_id":"PROD-9","fields":{"labels":["outage"],"priority":{"name":"High"}}}`))
	require.False(t, res.IsError)
	require.Len(t, gotFields, 2)
	var updated UpdateFieldsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &updated))
	require.Equal(t, []string{"labels", "priority"}, updated.Updated)

	res = reg.CallTool(ctx, "list_transitions", json.RawMessage(`{"ticket_id":"PROD-9"}`))
	require.False(t, res.IsError)
	require.Contains(t, resultText(t, res), `"Done"`)

	res = reg.CallTool(ctx, "transition_ticket", json.RawMessage(`{"ticket_id":"PROD-9","transition_id":"31"}`))
	require.False(t, res.IsError)
	require.Contains(t, resultText(t, res), "transitioned")

	res = reg.CallTool(ctx, "list_field_options", json.RawMessage(`{"ticket_id":"PROD-9","field_id":"priority"}`))
	require.False(t, res.IsError)
	require.Contains(t, resultText(t, res), "Highest")

	res = reg.CallTool(ctx, "create_ticket", json.RawMessage(`{"project_key":"PROD","summary":"Follow up","description":"d","issue_type":"Task"}`))
	require.False(t, res.IsError)
	require.Equal(t, "PROD", gotCreate.ProjectKey)
	var created CreateTicketResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &created))
	require.Equal(t, "https://example.atlassian.net/browse/PROD-77", created.URL)

	res = reg.CallTool(ctx, "delete_ticket", json.RawMessage(`{"ticket_id":"PROD-9"}`))
	require.False(t, res.IsError)
	require.Equal(t, "PROD-9", gotDelete)
	var deleted DeleteTicketResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &deleted))
	require.Equal(t, DeleteTicketResponse{TicketID: "PROD-9", Status: "deleted"}, deleted)
}

func TestHandler_TriageOptions(t *testing.T) {
	var got triage.Options
	tri := triageStub{triageFn: func(ctx context.Context, key string, opts triage.Options) (*triage.Report, error) {
		got = opts
		return &triage.Report{Key: key, Recommended: "Highest"}, nil
	}}
	reg := newTestRegistry(t, ticketStub{}, tri, nil)

	res := reg.CallTool(context.Background(), "triage_ticket", json.RawMessage(`{"ticket_id":"PROD-999"}`))
	require.False(t, res.IsError)
	require.Equal(t, triage.DefaultOptions(), got)
	require.Equal(t, "# Triage Report: PROD-999", resultText(t, res))
	require.NotNil(t, res.StructuredContent)

	res = reg.CallTool(context.Background(), "triage_ticket", json.RawMessage(`{"ticket_id":"PROD-999","enhanced":false,"include_recommendations":false}`))
	require.False(t, res.IsError)
	require.False(t, got.Enhanced)
	require.False(t, got.IncludeRecommendations)
}

func TestHandler_ErrorMapping(t *testing.T) {
	ctx := context.Background()
	fetchErr := error(nil)
	tickets := ticketStub{
		fetchFn: func(ctx context.Context, key string, compact *bool) (*ticket.View, error) {
			return nil, fetchErr
		},
	}
	reg := newTestRegistry(t, tickets, triageStub{}, nil)

	cases := []struct {
		name string
		err  error
		code string
	}{
		{"not found", fmt.Errorf("%w: PROD-404", ticket.ErrNotFound), CodeNotFound},
		{"invalid key", fmt.Errorf("%w: %q", ticket.ErrInvalidKey, "nope"), CodeInvalidKey},
		{"upstream", fmt.Errorf("backend request failed: %w", &jira.UpstreamError{StatusCode: 503, Message: "down"}), CodeUpstream},
		{"cancelled", context.Canceled, CodeCancelled},
		{"other", errors.New("boom"), CodeInternalError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetchErr = tc.err
			res := reg.CallTool(ctx, "get_ticket", json.RawMessage(`{"ticket_id":"PROD-404"}`))
			require.True(t, res.IsError)
			require.True(t, strings.HasPrefix(resultText(t, res), tc.code+": "))
			apiErr, ok := res.StructuredContent.(*APIError)
			require.True(t, ok)
			require.Equal(t, tc.code, apiErr.Code)
		})
	}

	res := reg.CallTool(ctx, "get_ticket", json.RawMessage(`{}`))
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), CodeValidation)

	res = reg.CallTool(ctx, "no_such_tool", nil)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), CodeUnknownTool)
}

func TestMapError_UpstreamHints(t *testing.T) {
	apiErr := MapError(&jira.UpstreamError{StatusCode: 401, Message: "unauthorized"})
	require.Equal(t, CodeUpstream, apiErr.Code)
	require.Equal(t, map[string]any{"status": 401}, apiErr.Details)
	require.Contains(t, apiErr.RecoveryHint, "JIRA_TOKEN")

	require.Contains(t, MapError(&jira.UpstreamError{}).RecoveryHint, "unreachable")
	require.Nil(t, MapError(nil))
}

func TestHandler_ProxyStatus(t *testing.T) {
	reg := newTestRegistry(t, ticketStub{}, triageStub{}, nil)
	res := reg.CallTool(context.Background(), "proxy_status", json.RawMessage(`{}`))
	require.False(t, res.IsError)
	require.Contains(t, resultText(t, res), `"enabled": false`)

	remote := remoteStub{status: proxy.Status{Endpoint: "http://remote/mcp", Connected: true, Tools: []string{"lookup"}}}
	reg = newTestRegistry(t, ticketStub{}, triageStub{}, remote)
	res = reg.CallTool(context.Background(), "proxy_status", json.RawMessage(`{}`))
	require.False(t, res.IsError)
	require.Contains(t, resultText(t, res), "http://remote/mcp")
}

func TestPrompts_ArgumentHandling(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(t, ticketStub{}, triageStub{}, nil)

	res, err := reg.GetPrompt(ctx, "analyze_ticket_with_similar_solutions", map[string]string{"ticket_number": "cs-3143", "search_limit": "3"})
	require.NoError(t, err)
	text := res.Messages[0].Content.(*sdkmcp.TextContent).Text
	require.Contains(t, text, "CS-3143")
	require.Contains(t, text, "Limit results to 3 matches.")
	require.Contains(t, text, "https://example.atlassian.net/browse/[TICKET-ID]")

	_, err = reg.GetPrompt(ctx, "incident_response_analysis", map[string]string{})
	require.ErrorIs(t, err, registry.ErrMissingArgument)

	_, err = reg.GetPrompt(ctx, "outage_notification", map[string]string{"service": "api", "duration_minutes": "soon"})
	require.ErrorIs(t, err, registry.ErrInvalidArguments)

	res, err = reg.GetPrompt(ctx, "outage_notification", map[string]string{"service": "api", "duration_minutes": "30"})
	require.NoError(t, err)
	require.Contains(t, res.Messages[0].Content.(*sdkmcp.TextContent).Text, "api")
}

func connect(t *testing.T, server *sdkmcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestNewServer_ResourcesAndTools(t *testing.T) {
	ctx := context.Background()
	tickets := ticketStub{
		fetchFn: func(ctx context.Context, key string, compact *bool) (*ticket.View, error) {
			return nil, fmt.Errorf("%w: %s", ticket.ErrNotFound, key)
		},
	}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	server, reg, err := NewServer(Config{
		Services:      Services{Tickets: tickets, Triage: triageStub{}},
		TransportMode: "http",
		Version:       "1.2.3",
		Now:           func() time.Time { return now },
	}, Connection{ID: "conn-1"})
	require.NoError(t, err)
	require.Equal(t, 11, reg.ToolCount())

	session := connect(t, server)

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "get_ticket", Arguments: map[string]any{"ticket_id": "PROD-404"}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), CodeNotFound)

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "remote_missing", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.True(t, strings.HasPrefix(resultText(t, res), CodeUnknownTool+": "))

	status, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: statusURI})
	require.NoError(t, err)
	require.Contains(t, status.Contents[0].Text, "http")

	tmpl, err := session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "incident-template://critical"})
	require.NoError(t, err)
	require.NotEmpty(t, tmpl.Contents[0].Text)
}

func TestConnectionMiddleware_CancelsInFlightCalls(t *testing.T) {
	connCtx, closeConn := context.WithCancel(context.Background())
	started := make(chan struct{})
	var seenID string
	tickets := ticketStub{
		fetchFn: func(ctx context.Context, key string, compact *bool) (*ticket.View, error) {
			seenID = ConnectionID(ctx)
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	server, _, err := NewServer(Config{Services: Services{Tickets: tickets, Triage: triageStub{}}},
		Connection{ID: "conn-7", Context: connCtx})
	require.NoError(t, err)
	session := connect(t, server)

	go func() {
		<-started
		closeConn()
	}()

	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "get_ticket", Arguments: map[string]any{"ticket_id": "PROD-1"}})
	require.NoError(t, err)
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), CodeCancelled)
	require.Equal(t, "conn-7", seenID)
}
