package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ganot/oncall-mcp/internal/jira"
)

// Service fetches, normalizes and updates tickets.
type Service struct {
	backend        Backend
	limits         Limits
	compactDefault bool
	logger         *slog.Logger
}

// NewService creates a new ticket service. Limits are normalized once here and
// never change afterwards.
func NewService(backend Backend, limits Limits, compactDefault bool, logger *slog.Logger) *Service {
	return &Service{
		backend:        backend,
		limits:         limits.Normalize(),
		compactDefault: compactDefault,
		logger:         logger,
	}
}

// FetchAndCompact fetches a ticket with its history and returns the bounded view.
func (s *Service) FetchAndCompact(ctx context.Context, key string) (*CompactTicket, error) {
	issue, err := s.fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	return Compact(issue, s.limits), nil
}

// FetchFull fetches a ticket and renders it as unbounded markdown.
func (s *Service) FetchFull(ctx context.Context, key string) (string, error) {
	issue, err := s.fetch(ctx, key)
	if err != nil {
		return "", err
	}
	return RenderMarkdown(issue), nil
}

// Fetch returns the compact or the full view. A nil compact selects the
// process-wide default.
func (s *Service) Fetch(ctx context.Context, key string, compact *bool) (*View, error) {
	useCompact := s.compactDefault
	if compact != nil {
		useCompact = *compact
	}
	if useCompact {
		ct, err := s.FetchAndCompact(ctx, key)
		if err != nil {
			return nil, err
		}
		return &View{Compact: ct}, nil
	}
	md, err := s.FetchFull(ctx, key)
	if err != nil {
		return nil, err
	}
	return &View{Markdown: md}, nil
}

func (s *Service) fetch(ctx context.Context, key string) (*jira.Issue, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	issue, err := s.backend.GetIssue(ctx, key)
	if err != nil {
		return nil, classify(key, err)
	}
	if issue == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return issue, nil
}

// Search runs a JQL query and maps the results to rows.
func (s *Service) Search(ctx context.Context, jql string, opts SearchOptions) ([]SearchRow, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, fmt.Errorf("%w: jql is required", ErrInvalidInput)
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultSearchResults
	}
	limit = min(limit, MaxSearchResults)
	fields := opts.Fields
	if len(fields) == 0 {
		fields = []string{"summary", "status", "priority", "updated"}
	}

	result, err := s.backend.Search(ctx, jira.SearchRequest{JQL: jql, MaxResults: limit, Fields: fields})
	if err != nil {
		return nil, classify("", err)
	}
	rows := make([]SearchRow, 0, len(result.Issues))
	for _, issue := range result.Issues {
		rows = append(rows, SearchRow{
			Key:      issue.Key,
			Summary:  issue.Fields.Summary,
			Status:   name(issue.Fields.Status),
			Priority: name(issue.Fields.Priority),
			Updated:  issue.Fields.Updated.Time,
		})
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// AddComment appends a plain-text comment.
func (s *Service) AddComment(ctx context.Context, key, body string) (string, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("%w: comment body is required", ErrInvalidInput)
	}
	created, err := s.backend.AddComment(ctx, key, body)
	if err != nil {
		return "", classify(key, err)
	}
	s.logInfo("comment added", "ticket", key, "comment_id", created.ID)
	return created.ID, nil
}

// UpdateFields sets fields on a ticket.
func (s *Service) UpdateFields(ctx context.Context, key string, fields map[string]any) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", ErrInvalidInput)
	}
	if err := s.backend.UpdateFields(ctx, key, fields); err != nil {
		return classify(key, err)
	}
	s.logInfo("fields updated", "ticket", key, "count", len(fields))
	return nil
}

// Delete permanently removes a ticket.
func (s *Service) Delete(ctx context.Context, key string) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	if err := s.backend.DeleteIssue(ctx, key); err != nil {
		return classify(key, err)
	}
	s.logInfo("ticket deleted", "ticket", key)
	return nil
}

// ListTransitions lists the workflow transitions available on a ticket.
func (s *Service) ListTransitions(ctx context.Context, key string) ([]Transition, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	raw, err := s.backend.ListTransitions(ctx, key)
	if err != nil {
		return nil, classify(key, err)
	}
	out := make([]Transition, 0, len(raw))
	for _, t := range raw {
		out = append(out, Transition{ID: t.ID, Name: t.Name, ToStatus: name(t.To)})
	}
	return out, nil
}

// Transition moves a ticket through a workflow transition.
func (s *Service) Transition(ctx context.Context, key, transitionID, comment string) error {
	key, err := NormalizeKey(key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(transitionID) == "" {
		return fmt.Errorf("%w: transition id is required", ErrInvalidInput)
	}
	if err := s.backend.TransitionIssue(ctx, key, transitionID, comment); err != nil {
		return classify(key, err)
	}
	s.logInfo("ticket transitioned", "ticket", key, "transition_id", transitionID)
	return nil
}

// ListFieldOptions lists the allowed values of an editable field.
func (s *Service) ListFieldOptions(ctx context.Context, key, fieldID string) ([]FieldOption, error) {
	key, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(fieldID) == "" {
		return nil, fmt.Errorf("%w: field id is required", ErrInvalidInput)
	}
	raw, err := s.backend.ListFieldOptions(ctx, key, fieldID)
	if err != nil {
		return nil, classify(key, err)
	}
	out := make([]FieldOption, 0, len(raw))
	for _, o := range raw {
		out = append(out, FieldOption{ID: o.ID, Label: o.Label()})
	}
	return out, nil
}

// CreateRequest describes a new ticket.
type CreateRequest struct {
	ProjectKey  string
	Summary     string
	Description string
	IssueType   string
}

// Create creates a new ticket.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Created, error) {
	if err := ValidateCreateInput(req); err != nil {
		return nil, err
	}
	created, err := s.backend.CreateIssue(ctx, jira.CreateRequest{
		ProjectKey:  strings.ToUpper(strings.TrimSpace(req.ProjectKey)),
		Summary:     strings.TrimSpace(req.Summary),
		Description: req.Description,
		IssueType:   strings.TrimSpace(req.IssueType),
	})
	if err != nil {
		return nil, classify("", err)
	}
	s.logInfo("ticket created", "ticket", created.Key)
	return &Created{Key: created.Key, ID: created.ID}, nil
}

// classify maps backend errors onto this package's taxonomy. Upstream errors
// are wrapped so callers can still reach *jira.UpstreamError.
func classify(key string, err error) error {
	if errors.Is(err, jira.ErrNotFound) {
		if key == "" {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("backend request failed: %w", err)
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
