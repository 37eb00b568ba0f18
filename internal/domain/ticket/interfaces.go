package ticket

import (
	"context"

	"github.com/ganot/oncall-mcp/internal/jira"
)

// Backend is the ticketing backend. *jira.Client satisfies it.
type Backend interface {
	GetIssue(ctx context.Context, key string) (*jira.Issue, error)
	Search(ctx context.Context, req jira.SearchRequest) (*jira.SearchResult, error)
	AddComment(ctx context.Context, key, body string) (*jira.CreatedComment, error)
	UpdateFields(ctx context.Context, key string, fields map[string]any) error
	DeleteIssue(ctx context.Context, key string) error
	ListTransitions(ctx context.Context, key string) ([]jira.Transition, error)
	TransitionIssue(ctx context.Context, key, transitionID, comment string) error
	ListFieldOptions(ctx context.Context, key, fieldID string) ([]jira.FieldOption, error)
	CreateIssue(ctx context.Context, req jira.CreateRequest) (*jira.CreatedIssue, error)
}
