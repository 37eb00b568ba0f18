package triage

import (
	"context"

	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/jira"
)

// Fetcher produces compact tickets. *ticket.Service satisfies it.
type Fetcher interface {
	FetchAndCompact(ctx context.Context, key string) (*ticket.CompactTicket, error)
}

// Searcher runs backend text searches. *jira.Client satisfies it.
type Searcher interface {
	Search(ctx context.Context, req jira.SearchRequest) (*jira.SearchResult, error)
}
