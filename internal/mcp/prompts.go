package mcp

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ganot/oncall-mcp/internal/domain/incident"
	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type promptDefinition struct {
	Name        string
	Description string
	Arguments   []*sdkmcp.PromptArgument
	Render      func(args map[string]string) (string, error)
}

func buildPromptCatalog(browseBase string) []promptDefinition {
	ticketArg := &sdkmcp.PromptArgument{Name: "ticket_number", Description: "Ticket key, e.g. CS-3143", Required: true}
	return []promptDefinition{
		{
			Name:        "analyze_ticket_with_similar_solutions",
			Description: "Analyze a ticket and suggest solutions based on similar resolved tickets.",
			Arguments: []*sdkmcp.PromptArgument{
				ticketArg,
				{Name: "search_limit", Description: "Maximum number of similar tickets to analyze (default 10)"},
			},
			Render: func(args map[string]string) (string, error) {
				key, err := ticket.NormalizeKey(args["ticket_number"])
				if err != nil {
					return "", err
				}
				limit, err := intArg(args, "search_limit", 10)
				if err != nil {
					return "", err
				}
				return incident.SimilarSolutionsPrompt(key, limit, browseBase), nil
			},
		},
		{
			Name:        "incident_response_analysis",
			Description: "Comprehensive incident response analysis for a ticket.",
			Arguments: []*sdkmcp.PromptArgument{
				ticketArg,
				{Name: "severity", Description: "low, medium, high or critical (default medium)"},
				{Name: "include_log_analysis", Description: "true to include a log analysis step"},
			},
			Render: func(args map[string]string) (string, error) {
				key, err := ticket.NormalizeKey(args["ticket_number"])
				if err != nil {
					return "", err
				}
				withLogs, err := boolArg(args, "include_log_analysis", false)
				if err != nil {
					return "", err
				}
				return incident.ResponseAnalysisPrompt(key, incident.ParseSeverity(args["severity"]), withLogs), nil
			},
		},
		{
			Name:        "ticket_triage_assistant",
			Description: "Triage and route a ticket to the right team.",
			Arguments: []*sdkmcp.PromptArgument{
				ticketArg,
				{Name: "auto_categorize", Description: "true to categorize automatically (default true)"},
			},
			Render: func(args map[string]string) (string, error) {
				key, err := ticket.NormalizeKey(args["ticket_number"])
				if err != nil {
					return "", err
				}
				auto, err := boolArg(args, "auto_categorize", true)
				if err != nil {
					return "", err
				}
				return incident.TriageAssistantPrompt(key, auto), nil
			},
		},
		{
			Name:        "outage_notification",
			Description: "Customer-facing outage notification for a service.",
			Arguments: []*sdkmcp.PromptArgument{
				{Name: "service", Description: "Affected service", Required: true},
				{Name: "duration_minutes", Description: "Estimated outage duration in minutes", Required: true},
			},
			Render: func(args map[string]string) (string, error) {
				minutes, err := intArg(args, "duration_minutes", 0)
				if err != nil {
					return "", err
				}
				return incident.OutageNotification(args["service"], minutes), nil
			},
		},
	}
}

func registerPrompts(reg *registry.Registry, browseBase string) error {
	for _, def := range buildPromptCatalog(browseBase) {
		def := def
		err := reg.RegisterPrompt(registry.Local(def.Name), def.Description, def.Arguments,
			func(_ context.Context, args map[string]string) (*sdkmcp.GetPromptResult, error) {
				text, err := def.Render(args)
				if err != nil {
					return nil, err
				}
				return &sdkmcp.GetPromptResult{
					Description: def.Description,
					Messages: []*sdkmcp.PromptMessage{{
						Role:    "user",
						Content: &sdkmcp.TextContent{Text: text},
					}},
				}, nil
			})
		if err != nil {
			return err
		}
	}
	return nil
}

func intArg(args map[string]string, name string, fallback int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer, got %q", registry.ErrInvalidArguments, name, raw)
	}
	return v, nil
}

func boolArg(args map[string]string, name string, fallback bool) (bool, error) {
	raw, ok := args[name]
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be true or false, got %q", registry.ErrInvalidArguments, name, raw)
	}
	return v, nil
}
