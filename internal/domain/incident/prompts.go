package incident

import (
	"fmt"
	"strings"
	"time"
)

// projectOf returns the project part of a ticket key.
func projectOf(ticketKey string) string {
	project, _, _ := strings.Cut(ticketKey, "-")
	return project
}

// SimilarSolutionsPrompt asks the assistant to solve a ticket from similar resolved ones.
func SimilarSolutionsPrompt(ticketKey string, searchLimit int, browseBase string) string {
	if searchLimit <= 0 {
		searchLimit = 10
	}
	link := "[TICKET-ID]"
	if browseBase != "" {
		link = strings.TrimRight(browseBase, "/") + "/browse/[TICKET-ID]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze ticket %s and suggest possible solutions based on similar resolved tickets.\n\n", ticketKey)
	fmt.Fprintf(&b, "**Step 1: Get Current Ticket Details**\nUse `get_ticket` with `compact: false` for %s and note its type, components, description, status, priority and labels.\n\n", ticketKey)
	fmt.Fprintf(&b, "**Step 2: Search for Similar Resolved Tickets**\nUse `search_tickets` with a JQL query built from the same type, components and labels, for example:\n`project = %s AND status IN (Resolved, Closed) AND resolution IS NOT EMPTY ORDER BY updated DESC`\nLimit results to %d matches.\n\n", projectOf(ticketKey), searchLimit)
	fmt.Fprintf(&b, "**Step 3: Analyze Each Similar Ticket**\nFor each match give its link (%s), summary, the problem, the resolution applied, resolution date, linked documentation, key comments and time to resolve.\n\n", link)
	b.WriteString("**Step 4: Pattern Analysis**\nIdentify common root causes, the most effective resolution strategies, frequently referenced documentation and the components most affected.\n\n")
	b.WriteString("**Step 5: Solution Recommendations**\nGive a primary solution with steps, effort and risk; alternatives with trade-offs; preventive measures; related resources; and next steps including an escalation path.\n\n")
	b.WriteString("Present the findings in a clear, structured format with actionable recommendations.")
	return b.String()
}

// ResponseAnalysisPrompt asks the assistant for a full incident-response analysis.
func ResponseAnalysisPrompt(ticketKey string, severity Severity, includeLogAnalysis bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**INCIDENT RESPONSE ANALYSIS FOR %s**\n\n%s\n\n", ticketKey, severityContext[ParseSeverity(string(severity))])
	fmt.Fprintf(&b, "**Step 1: Retrieve Incident Details**\nUse `triage_ticket` on %s for indicators, environments and duplicates, then `get_ticket` with `compact: false` for the full history.\n\n", ticketKey)
	fmt.Fprintf(&b, "**Step 2: Check for Related Incidents**\nUse `search_tickets`, for example:\n`project = %s AND status IN (Open, \"In Progress\") AND created >= -30d ORDER BY updated DESC`\n\n", projectOf(ticketKey))
	b.WriteString("**Step 3: Historical Pattern Analysis**\nFind resolved incidents with the same root cause category or affected systems and the mitigations that worked.\n\n")
	if includeLogAnalysis {
		b.WriteString("**Step 4: Log Analysis**\nCollect the application logs around the reported time. Look for error bursts, long gaps between entries and repeated stack traces, and correlate them with the incident timeline.\n\n")
	}
	b.WriteString("**Step 5: Root Cause Hypothesis**\nState the primary hypothesis, alternatives, and the evidence that would confirm each.\n\n")
	b.WriteString("**Step 6: Impact Assessment**\nDescribe user, system, financial and reputational impact.\n\n")
	b.WriteString("**Step 7: Recommended Actions**\nImmediate (15 minutes), short-term (1-4 hours) and long-term (24 hours) actions.\n\n")
	b.WriteString("**Step 8: Communication Plan**\nInternal updates, external messaging and escalation contacts.\n\n")
	b.WriteString("**Step 9: Prevention Recommendations**\nMonitoring, process and configuration changes.\n\n")
	b.WriteString("Present findings in a clear, action-oriented format suitable for incident response.")
	return b.String()
}

// TriageAssistantPrompt asks the assistant to triage and route a ticket.
func TriageAssistantPrompt(ticketKey string, autoCategorize bool) string {
	categorize := "Provide categorization recommendations:"
	if autoCategorize {
		categorize = "Automatically categorize this ticket based on:"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**INTELLIGENT TICKET TRIAGE: %s**\n\n", ticketKey)
	fmt.Fprintf(&b, "**Step 1: Analyze Ticket Content**\nRun `triage_ticket` on %s and read its indicators, environments and duplicate candidates.\n\n", ticketKey)
	fmt.Fprintf(&b, "**Step 2: Search Historical Patterns**\nUse `search_tickets` with:\n```\nproject = %s AND status IN (Resolved, Closed) AND resolution IS NOT EMPTY ORDER BY resolved DESC\n```\nAnalyze the top 20 matches for component assignments, typical teams and resolution times.\n\n", projectOf(ticketKey))
	fmt.Fprintf(&b, "**Step 3: Categorization Analysis**\n%s\n- **Type**: Bug / Enhancement / Task / Story / Incident\n- **Priority**: Critical / High / Medium / Low\n- **Category**: Performance, Security, UI/UX, Integration, Data\n- **Complexity**: Simple / Medium / Complex\n\n", categorize)
	b.WriteString("**Step 4: Team/Assignee Recommendation**\nSuggest a team and assignee from historical assignments and current workload.\n\n")
	b.WriteString("**Step 5: SLA and Priority Assessment**\nJustify the suggested priority and SLA target.\n\n")
	b.WriteString("**Step 6: Immediate Actions**\nRequest missing information, link related tickets, and apply the recommended labels with `update_fields`.\n\n")
	fmt.Fprintf(&b, "**Step 7: Triage Summary**\nEnd with one paragraph suitable for standup: \"Ticket %s is a [category] [type] ...\"", ticketKey)
	return b.String()
}

// OutageNotification is a customer-facing outage notice.
func OutageNotification(service string, durationMinutes int) string {
	return fmt.Sprintf(
		"Attention: The %s service is currently experiencing an outage. "+
			"Estimated resolution time is %d minutes. "+
			"Our team is actively working to restore service. We apologize for the inconvenience.",
		service, durationMinutes)
}

// StatusText is the operational status resource.
func StatusText(now time.Time, transport string, tools int) string {
	return fmt.Sprintf("System Status: Operational\nLast Updated: %s\nTransport: %s\nRegistered tools: %d\n",
		now.Format("2006-01-02"), transport, tools)
}
