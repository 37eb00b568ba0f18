package mcp

import (
	"context"
	"sort"

	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/domain/triage"
	"github.com/ganot/oncall-mcp/internal/proxy"
	"github.com/ganot/oncall-mcp/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TicketService defines ticket operations needed by MCP.
type TicketService interface {
	Fetch(ctx context.Context, key string, compact *bool) (*ticket.View, error)
	Search(ctx context.Context, jql string, opts ticket.SearchOptions) ([]ticket.SearchRow, error)
	AddComment(ctx context.Context, key, body string) (string, error)
	UpdateFields(ctx context.Context, key string, fields map[string]any) error
	ListTransitions(ctx context.Context, key string) ([]ticket.Transition, error)
	Transition(ctx context.Context, key, transitionID, comment string) error
	ListFieldOptions(ctx context.Context, key, fieldID string) ([]ticket.FieldOption, error)
	Create(ctx context.Context, req ticket.CreateRequest) (*ticket.Created, error)
	Delete(ctx context.Context, key string) error
}

// TriageService defines triage operations needed by MCP.
type TriageService interface {
	Triage(ctx context.Context, key string, opts triage.Options) (*triage.Report, error)
	Render(r *triage.Report) string
}

// RemoteCatalog registers forwarded operations discovered on a secondary
// service. It is shared read-only by every registry.
type RemoteCatalog interface {
	Register(reg *registry.Registry) error
	Status() proxy.Status
}

// Handler implements the local tools.
type Handler struct {
	tickets    TicketService
	triage     TriageService
	remote     RemoteCatalog
	browseBase string
}

// NewHandler creates a new MCP handler.
func NewHandler(tickets TicketService, triageSvc TriageService, remote RemoteCatalog, browseBase string) *Handler {
	return &Handler{tickets: tickets, triage: triageSvc, remote: remote, browseBase: browseBase}
}

func (h *Handler) registerTools(reg *registry.Registry) error {
	local := registry.Local
	steps := []func() error{
		func() error {
			return registry.RegisterTyped(reg, local("get_ticket"),
				"Fetch a ticket. By default returns a size-bounded JSON view (truncated description, latest comments and changes); set compact=false for the complete markdown rendering.",
				h.getTicket)
		},
		func() error {
			return registry.RegisterTyped(reg, local("triage_ticket"),
				"Triage a ticket: priority indicators (outage, data loss, security, performance), recommended priority and labels, environments parsed from URLs and potential duplicates.",
				h.triageTicket)
		},
		func() error {
			return registry.RegisterTyped(reg, local("search_tickets"),
				"Search tickets with JQL. Returns key, summary, status, priority and last update.",
				h.searchTickets)
		},
		func() error {
			return registry.RegisterTyped(reg, local("add_comment"), "Add a plain-text comment to a ticket.", h.addComment)
		},
		func() error {
			return registry.RegisterTyped(reg, local("update_fields"),
				"Set fields on a ticket. Use list_field_options to discover allowed values.", h.updateFields)
		},
		func() error {
			return registry.RegisterTyped(reg, local("list_transitions"), "List the workflow transitions available on a ticket.", h.listTransitions)
		},
		func() error {
			return registry.RegisterTyped(reg, local("transition_ticket"),
				"Move a ticket through a workflow transition, optionally with a comment.", h.transitionTicket)
		},
		func() error {
			return registry.RegisterTyped(reg, local("list_field_options"), "List the allowed values of an editable field on a ticket.", h.listFieldOptions)
		},
		func() error {
			return registry.RegisterTyped(reg, local("create_ticket"), "Create a new ticket.", h.createTicket)
		},
		func() error {
			return registry.RegisterTyped(reg, local("delete_ticket"), "Permanently delete a ticket. This cannot be undone.", h.deleteTicket)
		},
		func() error {
			return registry.RegisterTyped(reg, local("proxy_status"),
				"Report the remote proxy: endpoint, discovered tools and prompts, and the discovery failure if any.", h.proxyStatus)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) getTicket(ctx context.Context, in GetTicketParams) (*sdkmcp.CallToolResult, error) {
	view, err := h.tickets.Fetch(ctx, in.TicketID, in.Compact)
	if err != nil {
		return nil, err
	}
	if view.Compact != nil {
		return registry.JSONResult(view.Compact)
	}
	return registry.TextResult(view.Markdown), nil
}

func (h *Handler) triageTicket(ctx context.Context, in TriageTicketParams) (*sdkmcp.CallToolResult, error) {
	opts := triage.DefaultOptions()
	if in.IncludeRecommendations != nil {
		opts.IncludeRecommendations = *in.IncludeRecommendations
	}
	if in.Enhanced != nil {
		opts.Enhanced = *in.Enhanced
	}
	report, err := h.triage.Triage(ctx, in.TicketID, opts)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: h.triage.Render(report)}},
		StructuredContent: report,
	}, nil
}

func (h *Handler) searchTickets(ctx context.Context, in SearchTicketsParams) (*sdkmcp.CallToolResult, error) {
	rows, err := h.tickets.Search(ctx, in.JQL, ticket.SearchOptions{MaxResults: in.MaxResults})
	if err != nil {
		return nil, err
	}
	return registry.JSONResult(SearchTicketsResponse{Count: len(rows), Tickets: rows})
}

func (h *Handler) addComment(ctx context.Context, in AddCommentParams) (*sdkmcp.CallToolResult, error) {
	id, err := h.tickets.AddComment(ctx, in.TicketID, in.Body)
	if err != nil {
		return nil, err
	}
	return registry.JSONResult(CommentResponse{TicketID: in.TicketID, CommentID: id})
}

func (h *Handler) updateFields(ctx context.Context, in UpdateFieldsParams) (*sdkmcp.CallToolResult, error) {
	if err := h.tickets.UpdateFields(ctx, in.TicketID, in.Fields); err != nil {
		return nil, err
	}
	updated := make([]string, 0, len(in.Fields))
	for field := range in.Fields {
		updated = append(updated, field)
	}
	sort.Strings(updated)
	return registry.JSONResult(UpdateFieldsResponse{TicketID: in.TicketID, Updated: updated})
}

func (h *Handler) listTransitions(ctx context.Context, in TicketParams) (*sdkmcp.CallToolResult, error) {
	transitions, err := h.tickets.ListTransitions(ctx, in.TicketID)
	if err != nil {
		return nil, err
	}
	return registry.JSONResult(TransitionsResponse{TicketID: in.TicketID, Transitions: transitions})
}

func (h *Handler) transitionTicket(ctx context.Context, in TransitionTicketParams) (*sdkmcp.CallToolResult, error) {
	if err := h.tickets.Transition(ctx, in.TicketID, in.TransitionID, in.Comment); err != nil {
		return nil, err
	}
	return registry.JSONResult(TransitionResponse{TicketID: in.TicketID, TransitionID: in.TransitionID, Status: "transitioned"})
}

func (h *Handler) listFieldOptions(ctx context.Context, in ListFieldOptionsParams) (*sdkmcp.CallToolResult, error) {
	options, err := h.tickets.ListFieldOptions(ctx, in.TicketID, in.FieldID)
	if err != nil {
		return nil, err
	}
	return registry.JSONResult(FieldOptionsResponse{TicketID: in.TicketID, FieldID: in.FieldID, Options: options})
}

func (h *Handler) createTicket(ctx context.Context, in CreateTicketParams) (*sdkmcp.CallToolResult, error) {
	created, err := h.tickets.Create(ctx, ticket.CreateRequest{
		ProjectKey:  in.ProjectKey,
		Summary:     in.Summary,
		Description: in.Description,
		IssueType:   in.IssueType,
	})
	if err != nil {
		return nil, err
	}
	resp := CreateTicketResponse{Key: created.Key, ID: created.ID}
	if h.browseBase != "" {
		resp.URL = h.browseBase + "/browse/" + created.Key
	}
	return registry.JSONResult(resp)
}

func (h *Handler) deleteTicket(ctx context.Context, in TicketParams) (*sdkmcp.CallToolResult, error) {
	if err := h.tickets.Delete(ctx, in.TicketID); err != nil {
		return nil, err
	}
	return registry.JSONResult(DeleteTicketResponse{TicketID: in.TicketID, Status: "deleted"})
}

func (h *Handler) proxyStatus(_ context.Context, _ ProxyStatusParams) (*sdkmcp.CallToolResult, error) {
	if h.remote == nil {
		return registry.JSONResult(ProxyStatusResponse{Enabled: false})
	}
	status := h.remote.Status()
	return registry.JSONResult(ProxyStatusResponse{Enabled: true, Status: &status})
}
