// Package jira is a thin HTTP client for the Jira Cloud REST API (v3).
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ganot/oncall-mcp/internal/adf"
)

const defaultTimeout = 30 * time.Second

// Config holds connection settings for a Client.
type Config struct {
	BaseURL  string
	Email    string
	Token    string
	Timeout  time.Duration
	Client   *http.Client
	Logger   *slog.Logger
	MaxBytes int64
}

// Client talks to one Jira site. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	baseURL  *url.URL
	email    string
	token    string
	http     *http.Client
	logger   *slog.Logger
	maxBytes int64
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("jira: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("jira: parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("jira: base URL %q must be absolute", cfg.BaseURL)
	}
	httpClient := cfg.Client
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &Client{
		baseURL:  base,
		email:    cfg.Email,
		token:    cfg.Token,
		http:     httpClient,
		logger:   cfg.Logger,
		maxBytes: maxBytes,
	}, nil
}

// GetIssue fetches one issue with its change history.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var issue Issue
	query := url.Values{"expand": {"changelog"}}
	if err := c.do(ctx, http.MethodGet, "/rest/api/3/issue/"+url.PathEscape(key), query, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Search runs a JQL query.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	var result SearchResult
	if err := c.do(ctx, http.MethodPost, "/rest/api/3/search/jql", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddComment appends a plain-text comment, sent as an ADF document.
func (c *Client) AddComment(ctx context.Context, key, body string) (*CreatedComment, error) {
	var created CreatedComment
	payload := map[string]any{"body": adf.Document(body)}
	if err := c.do(ctx, http.MethodPost, "/rest/api/3/issue/"+url.PathEscape(key)+"/comment", nil, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateFields sets the given fields on an issue.
func (c *Client) UpdateFields(ctx context.Context, key string, fields map[string]any) error {
	payload := map[string]any{"fields": fields}
	return c.do(ctx, http.MethodPut, "/rest/api/3/issue/"+url.PathEscape(key), nil, payload, nil)
}

// DeleteIssue permanently removes an issue.
func (c *Client) DeleteIssue(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/rest/api/3/issue/"+url.PathEscape(key), nil, nil, nil)
}

// ListTransitions returns the workflow transitions currently available on an issue.
func (c *Client) ListTransitions(ctx context.Context, key string) ([]Transition, error) {
	var resp struct {
		Transitions []Transition `json:"transitions"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/3/issue/"+url.PathEscape(key)+"/transitions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transitions, nil
}

// TransitionIssue moves an issue through a transition, optionally commenting.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID, comment string) error {
	payload := map[string]any{
		"transition": map[string]string{"id": transitionID},
	}
	if strings.TrimSpace(comment) != "" {
		payload["update"] = map[string]any{
			"comment": []any{map[string]any{"add": map[string]any{"body": adf.Document(comment)}}},
		}
	}
	return c.do(ctx, http.MethodPost, "/rest/api/3/issue/"+url.PathEscape(key)+"/transitions", nil, payload, nil)
}

// ListFieldOptions returns the allowed values of an editable field.
func (c *Client) ListFieldOptions(ctx context.Context, key, fieldID string) ([]FieldOption, error) {
	var meta struct {
		Fields map[string]struct {
			Name          string        `json:"name"`
			AllowedValues []FieldOption `json:"allowedValues"`
		} `json:"fields"`
	}
	if err := c.do(ctx, http.MethodGet, "/rest/api/3/issue/"+url.PathEscape(key)+"/editmeta", nil, nil, &meta); err != nil {
		return nil, err
	}
	field, ok := meta.Fields[fieldID]
	if !ok {
		editable := make([]string, 0, len(meta.Fields))
		for id := range meta.Fields {
			editable = append(editable, id)
		}
		sort.Strings(editable)
		return nil, &UpstreamError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("field %q is not editable on %s (editable: %s)", fieldID, key, strings.Join(editable, ", ")),
		}
	}
	return field.AllowedValues, nil
}

// CreateIssue creates a new issue.
func (c *Client) CreateIssue(ctx context.Context, req CreateRequest) (*CreatedIssue, error) {
	payload := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": req.ProjectKey},
			"summary":     req.Summary,
			"description": adf.Document(req.Description),
			"issuetype":   map[string]string{"name": req.IssueType},
		},
	}
	var created CreatedIssue
	if err := c.do(ctx, http.MethodPost, "/rest/api/3/issue", nil, payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := *c.baseURL
	endpoint.Path = strings.TrimRight(endpoint.Path, "/") + path
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("jira: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("jira: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.email != "" || c.token != "" {
		req.SetBasicAuth(c.email, c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: "read response: " + err.Error(), Err: err}
	}
	if c.logger != nil {
		c.logger.Debug("jira request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, upstreamMessage(data, resp.Status))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: upstreamMessage(data, resp.Status)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

// upstreamMessage extracts errorMessages/errors from a Jira error body.
func upstreamMessage(data []byte, fallback string) string {
	var body struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		if text := strings.TrimSpace(string(data)); text != "" && len(text) <= 200 {
			return text
		}
		return fallback
	}
	messages := append([]string{}, body.ErrorMessages...)
	keys := make([]string, 0, len(body.Errors))
	for k := range body.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		messages = append(messages, k+": "+body.Errors[k])
	}
	if len(messages) == 0 {
		return fallback
	}
	return strings.Join(messages, "; ")
}
