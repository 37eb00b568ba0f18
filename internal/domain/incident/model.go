// Package incident holds the incident-response prompt texts and resource
// templates offered to assistants.
package incident

import "strings"

// Severity is an incident severity level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists the known levels, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity maps free text to a Severity. Unknown values become medium.
func ParseSeverity(s string) Severity {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Severities {
		if sev == known {
			return sev
		}
	}
	return SeverityMedium
}

var templates = map[Severity]string{
	SeverityCritical: "CRITICAL INCIDENT TEMPLATE: Immediate executive notification required.",
	SeverityHigh:     "HIGH INCIDENT TEMPLATE: Urgent response within 1 hour.",
	SeverityMedium:   "MEDIUM INCIDENT TEMPLATE: Response within 4 hours.",
	SeverityLow:      "LOW INCIDENT TEMPLATE: Response within 24 hours.",
}

var severityContext = map[Severity]string{
	SeverityCritical: "This is a CRITICAL incident requiring immediate attention and executive notification.",
	SeverityHigh:     "This is a HIGH severity incident requiring urgent response within 1 hour.",
	SeverityMedium:   "This is a MEDIUM severity incident requiring response within 4 hours.",
	SeverityLow:      "This is a LOW severity incident requiring response within 24 hours.",
}

// Template returns the response template for a severity.
func Template(s Severity) string {
	if t, ok := templates[s]; ok {
		return t
	}
	return templates[SeverityMedium]
}
