package jira

import (
	"encoding/json"
	"strings"
	"time"
)

// Issue is the backend-native ticket payload (the raw ticket).
type Issue struct {
	ID        string      `json:"id"`
	Key       string      `json:"key"`
	Self      string      `json:"self,omitempty"`
	Fields    IssueFields `json:"fields"`
	Changelog *Changelog  `json:"changelog,omitempty"`
}

// IssueFields holds the subset of issue fields this server reads.
type IssueFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description,omitempty"`
	Status      *Named          `json:"status,omitempty"`
	Priority    *Named          `json:"priority,omitempty"`
	IssueType   *Named          `json:"issuetype,omitempty"`
	Project     *Project        `json:"project,omitempty"`
	Assignee    *User           `json:"assignee,omitempty"`
	Reporter    *User           `json:"reporter,omitempty"`
	Labels      []string        `json:"labels,omitempty"`
	Components  []Named         `json:"components,omitempty"`
	Created     Time            `json:"created"`
	Updated     Time            `json:"updated"`
	Comment     *CommentPage    `json:"comment,omitempty"`
}

// Named is any enumeration value the backend represents as {id, name}.
type Named struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Project identifies the project an issue belongs to.
type Project struct {
	ID   string `json:"id,omitempty"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// User is a people reference.
type User struct {
	AccountID    string `json:"accountId,omitempty"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// CommentPage is the embedded comment list of an issue, oldest first.
type CommentPage struct {
	Comments   []Comment `json:"comments"`
	Total      int       `json:"total"`
	MaxResults int       `json:"maxResults"`
	StartAt    int       `json:"startAt"`
}

// Comment is a single issue comment with a rich-text body.
type Comment struct {
	ID      string          `json:"id"`
	Author  *User           `json:"author,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
	Created Time            `json:"created"`
	Updated Time            `json:"updated"`
}

// Changelog is the change history expanded on an issue, oldest first.
type Changelog struct {
	Histories  []History `json:"histories"`
	Total      int       `json:"total"`
	MaxResults int       `json:"maxResults"`
	StartAt    int       `json:"startAt"`
}

// History is one change set made by one author at one time.
type History struct {
	ID      string        `json:"id"`
	Author  *User         `json:"author,omitempty"`
	Created Time          `json:"created"`
	Items   []HistoryItem `json:"items"`
}

// HistoryItem is a single field change inside a History.
type HistoryItem struct {
	Field      string `json:"field"`
	FromString string `json:"fromString"`
	ToString   string `json:"toString"`
}

// Transition is a workflow transition available on an issue.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   *Named `json:"to,omitempty"`
}

// FieldOption is an allowed value for an editable field.
type FieldOption struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Label returns the human-readable text of the option.
func (o FieldOption) Label() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Value
}

// CreatedIssue is the backend response to an issue creation.
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// CreatedComment is the backend response to adding a comment.
type CreatedComment struct {
	ID      string `json:"id"`
	Created Time   `json:"created"`
}

// SearchRequest is a JQL search with a bounded result count.
type SearchRequest struct {
	JQL        string   `json:"jql"`
	MaxResults int      `json:"maxResults,omitempty"`
	Fields     []string `json:"fields,omitempty"`
}

// SearchResult holds the issues matched by a search, in backend order.
type SearchResult struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// CreateRequest describes a new issue.
type CreateRequest struct {
	ProjectKey  string
	Summary     string
	Description string
	IssueType   string
}

// timeLayouts are the timestamp shapes the backend emits.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
}

// Time decodes backend timestamps, which use a numeric zone without a colon.
type Time struct {
	time.Time
}

// ParseTime parses a backend timestamp.
func ParseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`null`), nil
	}
	return json.Marshal(t.Format(timeLayouts[0]))
}
