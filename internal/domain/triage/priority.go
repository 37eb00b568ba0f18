package triage

import "strings"

// priorityScales lists known priority schemes, most severe first.
var priorityScales = [][]string{
	{"Highest", "High", "Medium", "Low", "Lowest"},
	{"Blocker", "Critical", "Major", "Minor", "Trivial"},
	{"P1", "P2", "P3", "P4", "P5"},
}

// Assessment is the priority verdict for one ticket.
type Assessment struct {
	Indicators  Indicators
	Current     string
	Recommended string
}

// Escalate reports whether the recommendation differs from the current priority.
func (a Assessment) Escalate() bool {
	return !strings.EqualFold(a.Current, a.Recommended)
}

// Assess classifies summary and description and recommends a priority.
func Assess(classes []Class, summary, description, current string) Assessment {
	ind := Classify(classes, summary+" "+description)
	return Assessment{
		Indicators:  ind,
		Current:     current,
		Recommended: RecommendPriority(current, ind),
	}
}

// RecommendPriority applies the escalation rules: a critical indicator lifts
// anything outside the top two severities to the highest one, and a
// performance indicator lifts the two lowest severities by one level.
func RecommendPriority(current string, ind Indicators) string {
	scale, rank := lookupPriority(current)
	if ind.Critical() && (rank < 0 || rank >= 2) {
		return scale[0]
	}
	if ind.Has(IndicatorPerformance) && rank >= len(scale)-2 {
		return scale[rank-1]
	}
	return current
}

// lookupPriority finds the scale a label belongs to and its rank (0 is most
// severe). Unknown labels return the first scale and rank -1.
func lookupPriority(label string) ([]string, int) {
	label = strings.TrimSpace(label)
	for _, scale := range priorityScales {
		for i, name := range scale {
			if strings.EqualFold(label, name) || hasLabelPrefix(label, name) {
				return scale, i
			}
		}
	}
	return priorityScales[0], -1
}

// hasLabelPrefix accepts decorated labels such as "P2 - High" or "P1: Critical".
func hasLabelPrefix(label, name string) bool {
	if len(label) <= len(name) || !strings.EqualFold(label[:len(name)], name) {
		return false
	}
	switch label[len(name)] {
	case ' ', '-', ':', '(':
		return true
	}
	return false
}
