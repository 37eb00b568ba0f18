package triage_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ganot/oncall-mcp/internal/domain/ticket"
	"github.com/ganot/oncall-mcp/internal/domain/triage"
	"github.com/ganot/oncall-mcp/internal/jira"
	"github.com/ganot/oncall-mcp/internal/jira/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func adfDoc(text string) json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"type": "doc",
		"content": []any{map[string]any{
			"type":    "paragraph",
			"content": []any{map[string]any{"type": "text", "text": text}},
		}},
	})
	return data
}

func outageIssue() *jira.Issue {
	return &jira.Issue{
		Key: "PROD-999",
		Fields: jira.IssueFields{
			Summary:     "Production outage causing database timeouts",
			Description: adfDoc("Customers report errors on https://us1.example.com/acme/AbC123xyz9/dashboard since 09:00."),
			Status:      &jira.Named{Name: "Open"},
			Priority:    &jira.Named{Name: "Medium"},
			IssueType:   &jira.Named{Name: "Incident"},
			Labels:      []string{"customer"},
			Created:     jira.Time{Time: now.Add(-10 * time.Hour)},
			Updated:     jira.Time{Time: now.Add(-2 * time.Hour)},
		},
	}
}

func newEngine(backend *mocks.Backend) *triage.Service {
	tickets := ticket.NewService(backend, ticket.DefaultLimits(), true, nil)
	return triage.NewService(tickets, backend, nil, triage.WithClock(func() time.Time { return now }))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want []triage.Indicator
	}{
		{"Production outage in EU", []triage.Indicator{triage.IndicatorOutage}},
		{"Site is down for everyone", []triage.Indicator{triage.IndicatorOutage}},
		{"Customer data lost after migration", []triage.Indicator{triage.IndicatorDataLoss}},
		{"Unauthorized access to admin panel", []triage.Indicator{triage.IndicatorSecurity}},
		{"Report page is SLOW and requests time out", []triage.Indicator{triage.IndicatorPerformance}},
		{"Database timeouts during outage", []triage.Indicator{triage.IndicatorOutage, triage.IndicatorPerformance}},
		{"Typo on the settings page", nil},
	}
	for _, tt := range tests {
		got := triage.Classify(triage.DefaultClasses, tt.text)
		for _, class := range triage.DefaultClasses {
			want := false
			for _, w := range tt.want {
				if w == class.Indicator {
					want = true
				}
			}
			require.Equal(t, want, got.Has(class.Indicator), "%q / %s", tt.text, class.Indicator)
		}
	}
}

func TestRecommendPriority(t *testing.T) {
	outage := triage.Indicators{triage.IndicatorOutage: true}
	security := triage.Indicators{triage.IndicatorSecurity: true}
	perf := triage.Indicators{triage.IndicatorPerformance: true}
	none := triage.Indicators{}

	require.Equal(t, "Highest", triage.RecommendPriority("Lowest", outage))
	require.Equal(t, "Highest", triage.RecommendPriority("Medium", security))
	require.Equal(t, "High", triage.RecommendPriority("High", outage))
	require.Equal(t, "Highest", triage.RecommendPriority("Highest", outage))
	require.Equal(t, "Blocker", triage.RecommendPriority("Major", outage))
	require.Equal(t, "P1", triage.RecommendPriority("P3 - Medium", outage))
	require.Equal(t, "Highest", triage.RecommendPriority("", outage))

	require.Equal(t, "Medium", triage.RecommendPriority("Low", perf))
	require.Equal(t, "Low", triage.RecommendPriority("Lowest", perf))
	require.Equal(t, "Medium", triage.RecommendPriority("Medium", perf))
	require.Equal(t, "Minor", triage.RecommendPriority("Trivial", perf))

	for _, p := range []string{"Highest", "Medium", "Lowest", "Custom"} {
		require.Equal(t, p, triage.RecommendPriority(p, none))
	}
}

func TestAssess_NoKeywordsKeepsPriority(t *testing.T) {
	a := triage.Assess(triage.DefaultClasses, "Update footer copy", "Change the year in the footer", "Low")
	require.Equal(t, "Low", a.Recommended)
	require.False(t, a.Escalate())
}

func TestAssess_OutageFromLowest(t *testing.T) {
	a := triage.Assess(triage.DefaultClasses, "Login page", "There is an outage in the login flow", "Lowest")
	require.Equal(t, "Highest", a.Recommended)
	require.True(t, a.Escalate())
}

func TestExtractEnvironments(t *testing.T) {
	text := "See https://us1.example.com/acme/AbC123xyz9/index.html, and also https://eu1.example.com/globex. " +
		"Repeat: https://us1.example.com/acme/AbC123xyz9/index.html plus https://docs.example.org"
	envs := triage.ExtractEnvironments(text, triage.DefaultRegions)
	require.Len(t, envs, 3)

	require.Equal(t, "https://us1.example.com/acme/AbC123xyz9/index.html", envs[0].URL)
	require.Equal(t, "US Production", envs[0].Region)
	require.Equal(t, "acme", envs[0].Firm)
	require.Equal(t, "AbC123xyz9", envs[0].Engagement)

	require.Equal(t, "https://eu1.example.com/globex", envs[1].URL)
	require.Equal(t, "EU Production", envs[1].Region)
	require.Equal(t, "globex", envs[1].Firm)
	require.Empty(t, envs[1].Engagement)

	require.Empty(t, envs[2].Region)
	require.Empty(t, envs[2].Firm)
}

func TestExtractEnvironments_EngagementShape(t *testing.T) {
	envs := triage.ExtractEnvironments("https://us1.example.com/engagements/short1/abcdefghij", triage.DefaultRegions)
	require.Len(t, envs, 1)
	require.Equal(t, "engagements", envs[0].Firm)
	require.Empty(t, envs[0].Engagement)
}

func TestKeywords(t *testing.T) {
	require.Equal(t,
		[]string{"production", "outage", "causing", "database", "timeouts"},
		triage.Keywords("Production outage causing database timeouts"))
	require.Equal(t,
		[]string{"alpha", "bravo", "charlie", "delta", "foxtrot"},
		triage.Keywords("alpha bravo ALPHA charlie delta foxtrot golfclub"))
	require.Empty(t, triage.Keywords("a b cd efg hijk"))
}

func TestRecommendLabels(t *testing.T) {
	ind := triage.Indicators{triage.IndicatorOutage: true, triage.IndicatorPerformance: true}
	require.Equal(t,
		[]string{"customer", "outage", "performance", "duplicate-review", "ai-triaged"},
		triage.RecommendLabels([]string{"customer", "outage"}, triage.DefaultClasses, ind, 2))
	require.Equal(t,
		[]string{"ai-triaged"},
		triage.RecommendLabels(nil, triage.DefaultClasses, triage.Indicators{}, 1))
	require.Equal(t,
		[]string{"ai-triaged"},
		triage.RecommendLabels([]string{"ai-triaged", "AI-TRIAGED"}, triage.DefaultClasses, nil, 0))
}

func TestFindDuplicates_FailureIsIgnored(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	backend.On("Search", ctx, mock.Anything).Return(nil, &jira.UpstreamError{StatusCode: 429, Message: "rate limited"})

	got := triage.FindDuplicates(ctx, backend, "PROD-1", "Checkout payments failing")
	require.True(t, got.Failed())
	require.Empty(t, got.Candidates)
}

func TestFindDuplicates_NoKeywordsSkipsSearch(t *testing.T) {
	backend := &mocks.Backend{}
	got := triage.FindDuplicates(context.Background(), backend, "PROD-1", "UI bug")
	require.False(t, got.Failed())
	require.Empty(t, got.Candidates)
	backend.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestTriage_OutageScenario(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	backend.On("GetIssue", ctx, "PROD-999").Return(outageIssue(), nil)
	backend.On("Search", ctx, jira.SearchRequest{
		JQL:        `text ~ "production outage causing database timeouts" AND key != PROD-999 ORDER BY updated DESC`,
		MaxResults: 5,
		Fields:     []string{"summary", "status", "priority", "updated"},
	}).Return(&jira.SearchResult{Issues: []jira.Issue{
		{Key: "PROD-990", Fields: jira.IssueFields{Summary: "Database timeouts in production", Status: &jira.Named{Name: "Done"}}},
		{Key: "PROD-950", Fields: jira.IssueFields{Summary: "Outage after deploy", Status: &jira.Named{Name: "Closed"}}},
	}}, nil)

	engine := newEngine(backend)
	report, err := engine.Triage(ctx, "PROD-999", triage.DefaultOptions())
	require.NoError(t, err)

	require.InDelta(t, 10.0, report.AgeHours, 0.001)
	require.InDelta(t, 2.0, report.StaleHours, 0.001)
	require.Equal(t, "Medium", report.Current)
	require.Equal(t, "Highest", report.Recommended)
	require.Equal(t, []triage.Indicator{triage.IndicatorOutage, triage.IndicatorPerformance}, report.Indicators)
	require.Len(t, report.Environments, 1)
	require.Equal(t, "US Production", report.Environments[0].Region)
	require.Len(t, report.Candidates, 2)
	require.Equal(t, []string{"customer", "outage", "performance", "duplicate-review", "ai-triaged"}, report.Labels)

	text := engine.Render(report)
	for _, want := range []string{
		"# Triage Report: PROD-999",
		"## Overview", "## Metrics", "## Priority Indicators", "## Description",
		"## Environment Details", "Region: US Production", "Engagement: AbC123xyz9",
		"## Potential Duplicates", "PROD-990",
		"Recommended priority escalation: Medium → Highest",
		"outage", "ai-triaged",
		"## Next Steps", "- [ ] ",
	} {
		require.Contains(t, text, want)
	}
	backend.AssertExpectations(t)
}

func TestTriage_NotEnhanced(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	backend.On("GetIssue", ctx, "PROD-999").Return(outageIssue(), nil)

	engine := newEngine(backend)
	report, err := engine.Triage(ctx, "PROD-999", triage.Options{IncludeRecommendations: true, Enhanced: false})
	require.NoError(t, err)

	text := engine.Render(report)
	require.NotContains(t, text, "Environment Details")
	require.NotContains(t, text, "Potential Duplicates")
	require.Contains(t, text, "Recommended priority escalation")
	require.Contains(t, report.Labels, "ai-triaged")
	backend.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestTriage_WithoutRecommendations(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	backend.On("GetIssue", ctx, "PROD-999").Return(outageIssue(), nil)
	backend.On("Search", ctx, mock.Anything).Return(&jira.SearchResult{}, nil)

	engine := newEngine(backend)
	report, err := engine.Triage(ctx, "PROD-999", triage.Options{Enhanced: true})
	require.NoError(t, err)

	text := engine.Render(report)
	require.Contains(t, text, "Environment Details")
	require.NotContains(t, text, "Potential Duplicates")
	require.NotContains(t, text, triage.HeadingRecommendations)
	require.NotContains(t, text, triage.HeadingNextSteps)
}

func TestTriage_DuplicateSearchFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	backend.On("GetIssue", ctx, "PROD-999").Return(outageIssue(), nil)
	backend.On("Search", ctx, mock.Anything).Return(nil, errors.New("search unavailable"))

	engine := newEngine(backend)
	report, err := engine.Triage(ctx, "PROD-999", triage.DefaultOptions())
	require.NoError(t, err)
	require.True(t, report.Duplicates.Failed())
	require.Empty(t, report.Candidates)
	require.NotContains(t, report.Labels, triage.LabelDuplicateReview)
	require.NotContains(t, engine.Render(report), "Potential Duplicates")
}

func TestTriage_FetchFailurePropagates(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	backend.On("GetIssue", ctx, "PROD-404").Return(nil, fmt.Errorf("%w: nope", jira.ErrNotFound))

	report, err := newEngine(backend).Triage(ctx, "PROD-404", triage.DefaultOptions())
	require.ErrorIs(t, err, ticket.ErrNotFound)
	require.Nil(t, report)
}

func TestTriage_QuietTicket(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	issue := &jira.Issue{Key: "OPS-5", Fields: jira.IssueFields{
		Summary:  "Rename button",
		Priority: &jira.Named{Name: "Low"},
	}}
	backend.On("GetIssue", ctx, "OPS-5").Return(issue, nil)
	backend.On("Search", ctx, mock.Anything).Return(&jira.SearchResult{}, nil)

	engine := newEngine(backend)
	report, err := engine.Triage(ctx, "OPS-5", triage.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "Low", report.Recommended)

	text := engine.Render(report)
	require.Contains(t, text, "Keep priority at Low")
	require.False(t, strings.Contains(text, "Recommended priority escalation"))
	require.Contains(t, text, "- **Age:** unknown")
}

func TestTriage_CustomTables(t *testing.T) {
	ctx := context.Background()
	backend := &mocks.Backend{}
	backend.On("GetIssue", ctx, "PROD-999").Return(outageIssue(), nil)
	backend.On("Search", ctx, mock.Anything).Return(&jira.SearchResult{}, nil)

	classes := []triage.Class{{
		Indicator: triage.IndicatorSecurity,
		Title:     "Database",
		Patterns:  []*regexp.Regexp{regexp.MustCompile(`\bdatabase\b`)},
	}}
	regions := []triage.RegionToken{{Token: "us1", Region: "Virginia"}}

	tickets := ticket.NewService(backend, ticket.DefaultLimits(), true, nil)
	engine := triage.NewService(tickets, backend, nil,
		triage.WithClock(func() time.Time { return now }),
		triage.WithClasses(classes),
		triage.WithRegions(regions),
	)

	report, err := engine.Triage(ctx, "PROD-999", triage.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, []triage.Indicator{triage.IndicatorSecurity}, report.Indicators)
	require.Equal(t, "Highest", report.Recommended)
	require.Equal(t, []string{"customer", "security", "ai-triaged"}, report.Labels)
	require.Len(t, report.Environments, 1)
	require.Equal(t, "Virginia", report.Environments[0].Region)

	text := engine.Render(report)
	require.Contains(t, text, "Region: Virginia")
	require.NotContains(t, text, "US Production")
}
