package ticket

import (
	"github.com/ganot/oncall-mcp/internal/adf"
	"github.com/ganot/oncall-mcp/internal/jira"
)

// Compact derives a CompactTicket from a raw issue under the given limits.
func Compact(issue *jira.Issue, limits Limits) *CompactTicket {
	limits = limits.Normalize()
	f := issue.Fields

	ct := &CompactTicket{
		Key:         issue.Key,
		Summary:     f.Summary,
		Status:      name(f.Status),
		Priority:    name(f.Priority),
		Type:        name(f.IssueType),
		Assignee:    displayName(f.Assignee),
		Reporter:    displayName(f.Reporter),
		Labels:      append([]string(nil), f.Labels...),
		Description: Truncate(adf.ExtractText(f.Description), limits.MaxDescriptionChars),
		Created:     f.Created.Time,
		Updated:     f.Updated.Time,
	}
	for _, c := range f.Components {
		ct.Components = append(ct.Components, c.Name)
	}

	if f.Comment != nil {
		comments := f.Comment.Comments
		ct.CommentTotal = max(f.Comment.Total, len(comments))
		comments = tail(comments, limits.MaxCommentCount)
		for _, c := range comments {
			ct.Comments = append(ct.Comments, CommentExcerpt{
				Author:  displayName(c.Author),
				Created: c.Created.Time,
				Body:    Truncate(adf.ExtractText(c.Body), limits.MaxCommentChars),
			})
		}
	}

	changes := flattenChangelog(issue.Changelog)
	ct.ChangeTotal = len(changes)
	for _, ch := range tail(changes, limits.MaxChangelogItems) {
		ch.From = Truncate(ch.From, limits.MaxCommentChars)
		ch.To = Truncate(ch.To, limits.MaxCommentChars)
		ct.Changelog = append(ct.Changelog, ch)
	}

	return ct
}

func flattenChangelog(cl *jira.Changelog) []ChangelogExcerpt {
	if cl == nil {
		return nil
	}
	var out []ChangelogExcerpt
	for _, h := range cl.Histories {
		author := displayName(h.Author)
		for _, item := range h.Items {
			out = append(out, ChangelogExcerpt{
				Created: h.Created.Time,
				Author:  author,
				Field:   item.Field,
				From:    item.FromString,
				To:      item.ToString,
			})
		}
	}
	return out
}

// tail keeps the last n elements, preserving order.
func tail[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func name(n *jira.Named) string {
	if n == nil {
		return ""
	}
	return n.Name
}

func displayName(u *jira.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.EmailAddress
}
