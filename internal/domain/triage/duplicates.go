package triage

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/ganot/oncall-mcp/internal/jira"
)

const (
	maxKeywords       = 5
	minKeywordLength  = 5
	maxDuplicateCount = 5
)

// DuplicateCandidate is a ticket that may describe the same problem.
type DuplicateCandidate struct {
	Key      string    `json:"key"`
	Summary  string    `json:"summary"`
	Status   string    `json:"status,omitempty"`
	Priority string    `json:"priority,omitempty"`
	Updated  time.Time `json:"updated"`
}

// DuplicateSearch is the outcome of a duplicate lookup. A failed search is not
// an error for the triage run: Ignored holds the failure and Candidates is empty.
type DuplicateSearch struct {
	Query      string
	Candidates []DuplicateCandidate
	Ignored    error
}

// Failed reports whether the search failed and was ignored.
func (d DuplicateSearch) Failed() bool {
	return d.Ignored != nil
}

// Keywords picks up to five distinct words longer than four characters from a
// summary, in order of appearance.
func Keywords(summary string) []string {
	words := strings.FieldsFunc(summary, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < minKeywordLength {
			continue
		}
		lw := strings.ToLower(w)
		if seen[lw] {
			continue
		}
		seen[lw] = true
		out = append(out, lw)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// DuplicateQuery builds the JQL used to look for duplicates of key.
func DuplicateQuery(key string, keywords []string) string {
	return fmt.Sprintf(`text ~ "%s" AND key != %s ORDER BY updated DESC`, strings.Join(keywords, " "), key)
}

// FindDuplicates searches for tickets similar to summary. It never returns an
// error; failures are reported through DuplicateSearch.Ignored.
func FindDuplicates(ctx context.Context, searcher Searcher, key, summary string) DuplicateSearch {
	keywords := Keywords(summary)
	if len(keywords) == 0 {
		return DuplicateSearch{}
	}
	query := DuplicateQuery(key, keywords)
	result, err := searcher.Search(ctx, jira.SearchRequest{
		JQL:        query,
		MaxResults: maxDuplicateCount,
		Fields:     []string{"summary", "status", "priority", "updated"},
	})
	if err != nil {
		return DuplicateSearch{Query: query, Ignored: err}
	}

	found := DuplicateSearch{Query: query}
	for _, issue := range result.Issues {
		if issue.Key == key {
			continue
		}
		found.Candidates = append(found.Candidates, DuplicateCandidate{
			Key:      issue.Key,
			Summary:  issue.Fields.Summary,
			Status:   named(issue.Fields.Status),
			Priority: named(issue.Fields.Priority),
			Updated:  issue.Fields.Updated.Time,
		})
		if len(found.Candidates) == maxDuplicateCount {
			break
		}
	}
	return found
}

func named(n *jira.Named) string {
	if n == nil {
		return ""
	}
	return n.Name
}
