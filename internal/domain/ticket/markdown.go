package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/ganot/oncall-mcp/internal/adf"
	"github.com/ganot/oncall-mcp/internal/jira"
)

// RenderMarkdown renders the complete issue without any size limits.
func RenderMarkdown(issue *jira.Issue) string {
	f := issue.Fields
	var b strings.Builder

	fmt.Fprintf(&b, "# %s: %s\n\n", issue.Key, f.Summary)
	writeField(&b, "Status", name(f.Status))
	writeField(&b, "Priority", name(f.Priority))
	writeField(&b, "Type", name(f.IssueType))
	if f.Project != nil {
		writeField(&b, "Project", f.Project.Key)
	}
	writeField(&b, "Assignee", orDash(displayName(f.Assignee)))
	writeField(&b, "Reporter", orDash(displayName(f.Reporter)))
	if len(f.Labels) > 0 {
		writeField(&b, "Labels", strings.Join(f.Labels, ", "))
	}
	if len(f.Components) > 0 {
		names := make([]string, 0, len(f.Components))
		for _, c := range f.Components {
			names = append(names, c.Name)
		}
		writeField(&b, "Components", strings.Join(names, ", "))
	}
	writeField(&b, "Created", formatTime(f.Created.Time))
	writeField(&b, "Updated", formatTime(f.Updated.Time))

	b.WriteString("\n## Description\n\n")
	if desc := adf.ExtractText(f.Description); desc != "" {
		b.WriteString(desc)
	} else {
		b.WriteString("_No description._")
	}
	b.WriteString("\n")

	if f.Comment != nil && len(f.Comment.Comments) > 0 {
		b.WriteString("\n## Comments\n")
		for _, c := range f.Comment.Comments {
			fmt.Fprintf(&b, "\n### %s (%s)\n\n%s\n", orDash(displayName(c.Author)), formatTime(c.Created.Time), adf.ExtractText(c.Body))
		}
	}

	if changes := flattenChangelog(issue.Changelog); len(changes) > 0 {
		b.WriteString("\n## History\n\n")
		for _, ch := range changes {
			fmt.Fprintf(&b, "- %s %s changed **%s**: %q → %q\n", formatTime(ch.Created), orDash(ch.Author), ch.Field, ch.From, ch.To)
		}
	}

	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
