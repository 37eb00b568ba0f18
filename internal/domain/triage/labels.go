package triage

import "strings"

const (
	// LabelTriaged is added to every triaged ticket.
	LabelTriaged = "ai-triaged"
	// LabelDuplicateReview is added when more than one duplicate candidate is found.
	LabelDuplicateReview = "duplicate-review"
)

// RecommendLabels returns existing labels followed by one label per raised
// indicator, duplicate-review when more than one candidate was found and
// ai-triaged. The result is deduplicated and keeps first-seen order.
func RecommendLabels(existing []string, classes []Class, ind Indicators, duplicates int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(label string) {
		label = strings.TrimSpace(label)
		if label == "" || seen[strings.ToLower(label)] {
			return
		}
		seen[strings.ToLower(label)] = true
		out = append(out, label)
	}

	for _, l := range existing {
		add(l)
	}
	for _, class := range classes {
		if ind.Has(class.Indicator) {
			add(string(class.Indicator))
		}
	}
	if duplicates > 1 {
		add(LabelDuplicateReview)
	}
	add(LabelTriaged)
	return out
}
