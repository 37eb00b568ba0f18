package ticket

import "time"

// CompactTicket is the bounded projection of a ticket handed to callers with
// limited context.
type CompactTicket struct {
	Key          string             `json:"key"`
	Summary      string             `json:"summary"`
	Status       string             `json:"status,omitempty"`
	Priority     string             `json:"priority,omitempty"`
	Type         string             `json:"type,omitempty"`
	Assignee     string             `json:"assignee,omitempty"`
	Reporter     string             `json:"reporter,omitempty"`
	Labels       []string           `json:"labels,omitempty"`
	Components   []string           `json:"components,omitempty"`
	Description  string             `json:"description,omitempty"`
	Created      time.Time          `json:"created"`
	Updated      time.Time          `json:"updated"`
	Comments     []CommentExcerpt   `json:"comments,omitempty"`
	Changelog    []ChangelogExcerpt `json:"changelog,omitempty"`
	CommentTotal int                `json:"comment_total"`
	ChangeTotal  int                `json:"changelog_total"`
}

// CommentExcerpt is one comment with a truncated body.
type CommentExcerpt struct {
	Author  string    `json:"author,omitempty"`
	Created time.Time `json:"created"`
	Body    string    `json:"body"`
}

// ChangelogExcerpt is one field change.
type ChangelogExcerpt struct {
	Created time.Time `json:"created"`
	Author  string    `json:"author,omitempty"`
	Field   string    `json:"field"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
}

// View is the result of a fetch: exactly one of Compact or Markdown is set.
type View struct {
	Compact  *CompactTicket
	Markdown string
}

// SearchRow is one ticket returned by a search.
type SearchRow struct {
	Key      string    `json:"key"`
	Summary  string    `json:"summary"`
	Status   string    `json:"status,omitempty"`
	Priority string    `json:"priority,omitempty"`
	Updated  time.Time `json:"updated"`
}

// Transition is a workflow transition available on a ticket.
type Transition struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ToStatus string `json:"to_status,omitempty"`
}

// FieldOption is an allowed value of an editable field.
type FieldOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Created identifies a newly created ticket.
type Created struct {
	Key string `json:"key"`
	ID  string `json:"id"`
}
