package ticket

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var keyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]+-\d+$`)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// ValidateKey checks a ticket key against the backend's key format.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// NormalizeKey trims and upper-cases a key, then validates it.
func NormalizeKey(key string) (string, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// Truncate keeps the first limit characters of s and appends Ellipsis when s
// is longer than limit. The result has at most limit+1 characters and
// Truncate(Truncate(s, l), l) == Truncate(s, l).
func Truncate(s string, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i] + Ellipsis
		}
		count++
	}
	return s
}

var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)

// ValidateCreateInput validates fields required to create a ticket.
func ValidateCreateInput(req CreateRequest) error {
	if !projectKeyPattern.MatchString(strings.ToUpper(strings.TrimSpace(req.ProjectKey))) {
		return fmt.Errorf("%w: project key %q", ErrInvalidInput, req.ProjectKey)
	}
	if strings.TrimSpace(req.Summary) == "" {
		return fmt.Errorf("%w: summary is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.IssueType) == "" {
		return fmt.Errorf("%w: issue type is required", ErrInvalidInput)
	}
	return nil
}
