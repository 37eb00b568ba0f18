package triage

import (
	"context"
	"log/slog"
	"time"
)

// Service runs the triage pipeline.
type Service struct {
	fetcher  Fetcher
	searcher Searcher
	classes  []Class
	regions  []RegionToken
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for age and staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithClasses replaces the indicator table.
func WithClasses(classes []Class) Option {
	return func(s *Service) { s.classes = classes }
}

// WithRegions replaces the region token table.
func WithRegions(regions []RegionToken) Option {
	return func(s *Service) { s.regions = regions }
}

// NewService creates a new triage service.
func NewService(fetcher Fetcher, searcher Searcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:  fetcher,
		searcher: searcher,
		classes:  DefaultClasses,
		regions:  DefaultRegions,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Triage fetches a ticket and builds its report. Fetch failures are returned
// unchanged; a failed duplicate search only omits the duplicates section.
func (s *Service) Triage(ctx context.Context, key string, opts Options) (*Report, error) {
	ct, err := s.fetcher.FetchAndCompact(ctx, key)
	if err != nil {
		return nil, err
	}

	now := s.now()
	r := &Report{
		Ticket:      ct,
		Key:         ct.Key,
		Options:     opts,
		GeneratedAt: now,
		Current:     ct.Priority,
	}
	if !ct.Created.IsZero() {
		r.AgeHours = now.Sub(ct.Created).Hours()
	}
	if !ct.Updated.IsZero() {
		r.StaleHours = now.Sub(ct.Updated).Hours()
	}

	r.Assessment = Assess(s.classes, ct.Summary, ct.Description, ct.Priority)
	r.Recommended = r.Assessment.Recommended
	r.Indicators = []Indicator{}
	for _, class := range s.classes {
		if r.Assessment.Indicators.Has(class.Indicator) {
			r.Indicators = append(r.Indicators, class.Indicator)
		}
	}

	if opts.Enhanced {
		r.Environments = ExtractEnvironments(ct.Description, s.regions)
		if s.searcher != nil {
			r.Duplicates = FindDuplicates(ctx, s.searcher, ct.Key, ct.Summary)
		}
		if r.Duplicates.Failed() && s.logger != nil {
			s.logger.Warn("duplicate search failed, continuing without duplicates",
				"ticket", ct.Key, "error", r.Duplicates.Ignored)
		}
		r.Candidates = r.Duplicates.Candidates
	}

	r.Labels = RecommendLabels(ct.Labels, s.classes, r.Assessment.Indicators, len(r.Candidates))
	return r, nil
}

// Render formats a report with this service's indicator table.
func (s *Service) Render(r *Report) string {
	return r.Render(s.classes)
}
