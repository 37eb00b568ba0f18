package mcp

import (
	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/proxy"
)

type GetTicketParams struct {
	TicketID string `json:"ticket_id" jsonschema:"ticket key, e.g. PROD-123"`
	Compact  *bool  `json:"compact,omitempty" jsonschema:"return the size-bounded JSON view (true) or full markdown (false); defaults to the server setting"`
}

type TriageTicketParams struct {
	TicketID               string `json:"ticket_id" jsonschema:"ticket key, e.g. PROD-123"`
	IncludeRecommendations *bool  `json:"include_recommendations,omitempty" jsonschema:"append recommendations and a next-steps checklist (default true)"`
	Enhanced               *bool  `json:"enhanced,omitempty" jsonschema:"extract environments from URLs and search for duplicates (default true)"`
}

type SearchTicketsParams struct {
	JQL        string `json:"jql" jsonschema:"JQL query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of tickets to return (default 20, max 100)"`
}

type AddCommentParams struct {
	TicketID string `json:"ticket_id" jsonschema:"ticket key"`
	Body     string `json:"body" jsonschema:"plain-text comment body"`
}

type UpdateFieldsParams struct {
	TicketID string         `json:"ticket_id" jsonschema:"ticket key"`
	Fields   map[string]any `json:"fields" jsonschema:"field id to new value, e.g. {\"labels\": [\"outage\"]}"`
}

type TicketParams struct {
	TicketID string `json:"ticket_id" jsonschema:"ticket key"`
}

type TransitionTicketParams struct {
	TicketID     string `json:"ticket_id" jsonschema:"ticket key"`
	TransitionID string `json:"transition_id" jsonschema:"transition id from list_transitions"`
	Comment      string `json:"comment,omitempty" jsonschema:"optional comment added with the transition"`
}

type ListFieldOptionsParams struct {
	TicketID string `json:"ticket_id" jsonschema:"ticket key"`
	FieldID  string `json:"field_id" jsonschema:"field id, e.g. priority or customfield_10010"`
}

type CreateTicketParams struct {
	ProjectKey  string `json:"project_key" jsonschema:"project key, e.g. PROD"`
	Summary     string `json:"summary" jsonschema:"one-line summary"`
	Description string `json:"description" jsonschema:"plain-text description"`
	IssueType   string `json:"issue_type" jsonschema:"issue type name, e.g. Bug or Incident"`
}

type ProxyStatusParams struct{}

type SearchTicketsResponse struct {
	Count   int                `json:"count"`
	Tickets []ticket.SearchRow `json:"tickets"`
}

type CommentResponse struct {
	TicketID  string `json:"ticket_id"`
	CommentID string `json:"comment_id"`
}

type UpdateFieldsResponse struct {
	TicketID string   `json:"ticket_id"`
	Updated  []string `json:"updated"`
}

type TransitionsResponse struct {
	TicketID    string              `json:"ticket_id"`
	Transitions []ticket.Transition `json:"transitions"`
}

type TransitionResponse struct {
	TicketID     string `json:"ticket_id"`
	TransitionID string `json:"transition_id"`
	Status       string `json:"status"`
}

type FieldOptionsResponse struct {
	TicketID string               `json:"ticket_id"`
	FieldID  string               `json:"field_id"`
	Options  []ticket.FieldOption `json:"options"`
}

type DeleteTicketResponse struct {
	TicketID string `json:"ticket_id"`
	Status   string `json:"status"`
}

type CreateTicketResponse struct {
	Key string `json:"key"`
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

type ProxyStatusResponse struct {
	Enabled bool          `json:"enabled"`
	Status  *proxy.Status `json:"status,omitempty"`
}
