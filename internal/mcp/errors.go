package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/jira"
	"github.com/ganot/oncall-mcp/internal/registry"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Error codes carried by flagged tool results.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidKey    = "INVALID_TICKET_KEY"
	CodeNotFound      = "TICKET_NOT_FOUND"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodeUnknownTool   = "UNKNOWN_TOOL"
	CodeCancelled     = "CANCELLED"
	CodeInternalError = "INTERNAL_ERROR"
)

// APIError represents a tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain and dispatch errors to tool error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var upstream *jira.UpstreamError
	switch {
	case errors.Is(err, ticket.ErrInvalidKey):
		return &APIError{Code: CodeInvalidKey, Message: err.Error(), RecoveryHint: "Use a key like PROD-123"}
	case errors.Is(err, ticket.ErrNotFound):
		return &APIError{Code: CodeNotFound, Message: err.Error(), RecoveryHint: "Check the ticket key and your access to the project"}
	case errors.Is(err, registry.ErrInvalidArguments), errors.Is(err, ticket.ErrInvalidInput):
		return &APIError{Code: CodeValidation, Message: err.Error(), RecoveryHint: "Check the tool's input schema"}
	case errors.As(err, &upstream):
		details := map[string]any{"status": upstream.StatusCode}
		return &APIError{Code: CodeUpstream, Message: err.Error(), Details: details, RecoveryHint: upstreamHint(upstream.StatusCode)}
	case errors.Is(err, registry.ErrUnknownTool):
		return &APIError{Code: CodeUnknownTool, Message: err.Error(), RecoveryHint: "List tools to see what is available"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: CodeCancelled, Message: err.Error()}
	default:
		return &APIError{Code: CodeInternalError, Message: err.Error()}
	}
}

func upstreamHint(status int) string {
	switch {
	case status == 0:
		return "The ticketing backend is unreachable; retry later"
	case status == 401 || status == 403:
		return "Check JIRA_EMAIL and JIRA_TOKEN and the account's permissions"
	case status == 429:
		return "Rate limited by the ticketing backend; wait before retrying"
	case status >= 500:
		return "The ticketing backend failed; retry later"
	default:
		return "Check the request values"
	}
}

// toolError converts any error into a flagged result.
func toolError(err error) *sdkmcp.CallToolResult {
	apiErr := MapError(err)
	text := apiErr.Error()
	if apiErr.RecoveryHint != "" {
		text += "\nHint: " + apiErr.RecoveryHint
	}
	return &sdkmcp.CallToolResult{
		IsError:           true,
		Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
		StructuredContent: apiErr,
	}
}
