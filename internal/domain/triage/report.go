package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/ganot/oncall-mcp/internal/domain/ticket"
)

// Section headings of a rendered report.
const (
	HeadingOverview        = "Overview"
	HeadingMetrics         = "Metrics"
	HeadingIndicators      = "Priority Indicators"
	HeadingDescription     = "Description"
	HeadingEnvironment     = "Environment Details"
	HeadingDuplicates      = "Potential Duplicates"
	HeadingRecommendations = "Recommendations"
	HeadingNextSteps       = "Next Steps"
)

// NextSteps is the checklist appended to reports with recommendations.
var NextSteps = []string{
	"Confirm the impact and the affected customers or environments",
	"Apply the recommended priority and labels",
	"Link or close confirmed duplicates",
	"Assign an owner and post a status update on the ticket",
	"Escalate to the on-call lead if the issue is customer facing",
}

// Report is the outcome of a triage run.
type Report struct {
	Ticket       *ticket.CompactTicket `json:"-"`
	Key          string                `json:"key"`
	AgeHours     float64               `json:"age_hours"`
	StaleHours   float64               `json:"staleness_hours"`
	Assessment   Assessment            `json:"-"`
	Indicators   []Indicator           `json:"indicators"`
	Current      string                `json:"current_priority"`
	Recommended  string                `json:"recommended_priority"`
	Environments []EnvironmentDetail   `json:"environments,omitempty"`
	Duplicates   DuplicateSearch       `json:"-"`
	Candidates   []DuplicateCandidate  `json:"duplicates,omitempty"`
	Labels       []string              `json:"recommended_labels"`
	Options      Options               `json:"-"`
	GeneratedAt  time.Time             `json:"generated_at"`
}

// Render formats the report as markdown text.
func (r *Report) Render(classes []Class) string {
	var b strings.Builder
	ct := r.Ticket

	fmt.Fprintf(&b, "# Triage Report: %s\n", ct.Key)

	heading(&b, HeadingOverview)
	item(&b, "Summary", ct.Summary)
	item(&b, "Status", orUnknown(ct.Status))
	item(&b, "Priority", orUnknown(ct.Priority))
	item(&b, "Type", orUnknown(ct.Type))
	item(&b, "Assignee", orValue(ct.Assignee, "Unassigned"))
	item(&b, "Reporter", orUnknown(ct.Reporter))
	if len(ct.Labels) > 0 {
		item(&b, "Labels", strings.Join(ct.Labels, ", "))
	}
	if len(ct.Components) > 0 {
		item(&b, "Components", strings.Join(ct.Components, ", "))
	}

	heading(&b, HeadingMetrics)
	item(&b, "Age", hours(ct.Created, r.AgeHours))
	item(&b, "Time since last update", hours(ct.Updated, r.StaleHours))
	item(&b, "Comments", fmt.Sprint(ct.CommentTotal))
	item(&b, "Recorded changes", fmt.Sprint(ct.ChangeTotal))

	heading(&b, HeadingIndicators)
	for _, class := range classes {
		item(&b, class.Title, yesNo(r.Assessment.Indicators.Has(class.Indicator)))
	}
	item(&b, "Current priority", orUnknown(r.Current))
	item(&b, "Recommended priority", orUnknown(r.Recommended))

	heading(&b, HeadingDescription)
	if ct.Description != "" {
		b.WriteString(ct.Description)
		b.WriteString("\n")
	} else {
		b.WriteString("_No description provided._\n")
	}

	if len(r.Environments) > 0 {
		heading(&b, HeadingEnvironment)
		for _, env := range r.Environments {
			fmt.Fprintf(&b, "- %s\n", env.URL)
			if env.Region != "" {
				fmt.Fprintf(&b, "  - Region: %s\n", env.Region)
			}
			if env.Firm != "" {
				fmt.Fprintf(&b, "  - Firm: %s\n", env.Firm)
			}
			if env.Engagement != "" {
				fmt.Fprintf(&b, "  - Engagement: %s\n", env.Engagement)
			}
		}
	}

	if len(r.Candidates) > 0 {
		heading(&b, HeadingDuplicates)
		for _, d := range r.Candidates {
			fmt.Fprintf(&b, "- %s: %s (%s, %s, updated %s)\n",
				d.Key, d.Summary, orUnknown(d.Status), orUnknown(d.Priority), formatTime(d.Updated))
		}
	}

	if r.Options.IncludeRecommendations {
		heading(&b, HeadingRecommendations)
		if r.Assessment.Escalate() {
			fmt.Fprintf(&b, "- Recommended priority escalation: %s → %s\n", orUnknown(r.Current), r.Recommended)
		} else {
			fmt.Fprintf(&b, "- Keep priority at %s\n", orUnknown(r.Current))
		}
		fmt.Fprintf(&b, "- Recommended labels: %s\n", strings.Join(r.Labels, ", "))
		if len(r.Candidates) > 1 {
			b.WriteString("- Review the potential duplicates before starting work\n")
		}
		if r.StaleHours >= 24 && !ct.Updated.IsZero() {
			b.WriteString("- Ticket has not been updated for over a day; post a status update\n")
		}

		heading(&b, HeadingNextSteps)
		for _, step := range NextSteps {
			fmt.Fprintf(&b, "- [ ] %s\n", step)
		}
	}

	return b.String()
}

func heading(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n## %s\n\n", title)
}

func item(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- **%s:** %s\n", label, value)
}

func hours(at time.Time, h float64) string {
	if at.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%.1f hours", h)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func orUnknown(s string) string {
	return orValue(s, "Unknown")
}

func orValue(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
