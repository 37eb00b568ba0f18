package triage

// Options controls one triage run.
type Options struct {
	IncludeRecommendations bool
	Enhanced               bool
}

// DefaultOptions enables recommendations and enhanced analysis.
func DefaultOptions() Options {
	return Options{IncludeRecommendations: true, Enhanced: true}
}
