package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/ganot/oncall-mcp/internal/domain/incident"
	"github.com/ganot/oncall-mcp/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `oncall-mcp exposes ticket triage and incident-response operations for an on-call engineer.

Workflow:
1) triage_ticket(ticket_id) first. It returns priority indicators, a recommended priority and labels,
   environments parsed from URLs in the description, and potential duplicates.
2) get_ticket(ticket_id) returns a size-bounded view. Pass compact=false only when the full history is needed.
3) search_tickets(jql) for related work; keep max_results small.
4) Act: add_comment, update_fields (list_field_options first), list_transitions then transition_ticket.
5) create_ticket for follow-ups.

Remote tools, when configured, are named remote_<name> and forwarded unchanged; proxy_status reports them.

Resources:
- oncall://status
- incident-template://{severity} (critical, high, medium, low)
`

const (
	statusURI         = "oncall://status"
	templateURIScheme = "incident-template://"
)

func registerResources(server *sdkmcp.Server, reg *registry.Registry, transportMode string, now func() time.Time) {
	server.AddResource(&sdkmcp.Resource{
		URI:         statusURI,
		Name:        "status",
		Title:       "Operational status",
		Description: "Current operational status of this server.",
		MIMEType:    "text/plain",
	}, func(_ context.Context, _ *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      statusURI,
				MIMEType: "text/plain",
				Text:     incident.StatusText(now(), transportMode, reg.ToolCount()),
			}},
		}, nil
	})

	server.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: templateURIScheme + "{severity}",
		Name:        "incident_template",
		Title:       "Incident response template",
		Description: "Response template for a severity: critical, high, medium or low. Unknown severities get the medium template.",
		MIMEType:    "text/plain",
	}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		uri := templateURIScheme + string(incident.SeverityMedium)
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}
		severity := incident.ParseSeverity(strings.TrimPrefix(uri, templateURIScheme))
		return &sdkmcp.ReadResourceResult{
			Contents: []*sdkmcp.ResourceContents{{
				URI:      uri,
				MIMEType: "text/plain",
				Text:     incident.Template(severity),
			}},
		}, nil
	})
}
