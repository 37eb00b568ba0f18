package triage

import (
	"regexp"
	"strings"
)

// Indicator is a priority signal detected in ticket text.
type Indicator string

const (
	IndicatorOutage      Indicator = "outage"
	IndicatorDataLoss    Indicator = "data-loss"
	IndicatorSecurity    Indicator = "security"
	IndicatorPerformance Indicator = "performance"
)

// Class maps an indicator to the patterns that raise it. Patterns are matched
// against lower-cased text.
type Class struct {
	Indicator Indicator
	Title     string
	Patterns  []*regexp.Regexp
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

// DefaultClasses is the keyword table used by the engine. Order is the order
// indicators are reported and labelled in.
var DefaultClasses = []Class{
	{
		Indicator: IndicatorOutage,
		Title:     "Outage",
		Patterns: patterns(
			`\boutages?\b`,
			`\b(is|are|was|went|goes|gone) down\b`,
			`\bdowntime\b`,
			`\bunavailable\b`,
			`\bnot (loading|responding|reachable|accessible)\b`,
			`\b(cannot|can't|unable to) (log ?in|access|connect|open)\b`,
			`\b50[234] (errors?|responses?)\b`,
			`\bservice disruption\b`,
			`\bcrash(es|ed|ing)?\b`,
		),
	},
	{
		Indicator: IndicatorDataLoss,
		Title:     "Data loss",
		Patterns: patterns(
			`\bdata[ -]?loss\b`,
			`\b(lost|missing|deleted|corrupt(ed)?) (data|files?|records?|entries|documents?)\b`,
			`\bdata (is |was |has been )?(lost|missing|deleted|gone|corrupt(ed)?)\b`,
			`\bcorruption\b`,
			`\bwiped\b`,
		),
	},
	{
		Indicator: IndicatorSecurity,
		Title:     "Security",
		Patterns: patterns(
			`\bsecurity (issue|incident|breach|vulnerability|hole)\b`,
			`\bvulnerab(le|ility|ilities)\b`,
			`\bbreach(ed|es)?\b`,
			`\bunauthori[sz]ed\b`,
			`\bexploit(ed|s)?\b`,
			`\bcve-\d{4}-\d+\b`,
			`\b(xss|csrf|sql injection)\b`,
			`\b(leaked|exposed) (credentials?|passwords?|tokens?|keys?|data|pii)\b`,
			`\bphishing\b`,
			`\bmalware\b`,
		),
	},
	{
		Indicator: IndicatorPerformance,
		Title:     "Performance",
		Patterns: patterns(
			`\bslow(ness|ly|er|down)?\b`,
			`\blatency\b`,
			`\btime ?outs?\b`,
			`\btimed out\b`,
			`\bperformance\b`,
			`\b(hangs?|hanging|freez(e|es|ing))\b`,
			`\bsluggish\b`,
			`\bhigh (cpu|memory|load)\b`,
			`\bmemory leak\b`,
		),
	},
}

// Indicators is the set of indicators raised for a ticket.
type Indicators map[Indicator]bool

// Has reports whether ind was raised.
func (s Indicators) Has(ind Indicator) bool {
	return s[ind]
}

// Critical reports whether an outage, data-loss or security indicator was raised.
func (s Indicators) Critical() bool {
	return s[IndicatorOutage] || s[IndicatorDataLoss] || s[IndicatorSecurity]
}

// Classify matches text against each class. It is a pure function of its inputs.
func Classify(classes []Class, text string) Indicators {
	text = strings.ToLower(text)
	out := make(Indicators, len(classes))
	for _, class := range classes {
		out[class.Indicator] = false
		for _, re := range class.Patterns {
			if re.MatchString(text) {
				out[class.Indicator] = true
				break
			}
		}
	}
	return out
}
