package mocks

import (
	"context"

	"github.com/ganot/oncall-mcp/internal/jira"
	"github.com/stretchr/testify/mock"
)

// Backend is a mock for the ticketing backend consumed by the ticket and triage services.
type Backend struct {
	mock.Mock
}

func (m *Backend) GetIssue(ctx context.Context, key string) (*jira.Issue, error) {
	args := m.Called(ctx, key)
	if issue, ok := args.Get(0).(*jira.Issue); ok {
		return issue, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) Search(ctx context.Context, req jira.SearchRequest) (*jira.SearchResult, error) {
	args := m.Called(ctx, req)
	if result, ok := args.Get(0).(*jira.SearchResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) AddComment(ctx context.Context, key, body string) (*jira.CreatedComment, error) {
	args := m.Called(ctx, key, body)
	if created, ok := args.Get(0).(*jira.CreatedComment); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) UpdateFields(ctx context.Context, key string, fields map[string]any) error {
	args := m.Called(ctx, key, fields)
	return args.Error(0)
}

func (m *Backend) DeleteIssue(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Backend) ListTransitions(ctx context.Context, key string) ([]jira.Transition, error) {
	args := m.Called(ctx, key)
	if list, ok := args.Get(0).([]jira.Transition); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) TransitionIssue(ctx context.Context, key, transitionID, comment string) error {
	args := m.Called(ctx, key, transitionID, comment)
	return args.Error(0)
}

func (m *Backend) ListFieldOptions(ctx context.Context, key, fieldID string) ([]jira.FieldOption, error) {
	args := m.Called(ctx, key, fieldID)
	if list, ok := args.Get(0).([]jira.FieldOption); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) CreateIssue(ctx context.Context, req jira.CreateRequest) (*jira.CreatedIssue, error) {
	args := m.Called(ctx, req)
	if created, ok := args.Get(0).(*jira.CreatedIssue); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}
