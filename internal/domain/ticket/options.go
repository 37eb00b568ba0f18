package ticket

// Default size limits for compact tickets.
const (
	DefaultMaxDescriptionChars = 2000
	DefaultMaxCommentChars     = 500
	DefaultMaxCommentCount     = 5
	DefaultMaxChangelogItems   = 10
)

// Limits bounds the size of a CompactTicket.
type Limits struct {
	MaxDescriptionChars int
	MaxCommentChars     int
	MaxCommentCount     int
	MaxChangelogItems   int
}

// DefaultLimits returns the fallback limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDescriptionChars: DefaultMaxDescriptionChars,
		MaxCommentChars:     DefaultMaxCommentChars,
		MaxCommentCount:     DefaultMaxCommentCount,
		MaxChangelogItems:   DefaultMaxChangelogItems,
	}
}

// Normalize replaces non-positive limits with their defaults.
func (l Limits) Normalize() Limits {
	d := DefaultLimits()
	if l.MaxDescriptionChars <= 0 {
		l.MaxDescriptionChars = d.MaxDescriptionChars
	}
	if l.MaxCommentChars <= 0 {
		l.MaxCommentChars = d.MaxCommentChars
	}
	if l.MaxCommentCount <= 0 {
		l.MaxCommentCount = d.MaxCommentCount
	}
	if l.MaxChangelogItems <= 0 {
		l.MaxChangelogItems = d.MaxChangelogItems
	}
	return l
}

// SearchOptions bounds a search.
type SearchOptions struct {
	MaxResults int
	Fields     []string
}

// DefaultSearchResults is used when SearchOptions.MaxResults is not positive.
const DefaultSearchResults = 20

// MaxSearchResults caps SearchOptions.MaxResults.
const MaxSearchResults = 100
