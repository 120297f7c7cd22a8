package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"solarcli/internal/aggregation"
	"solarcli/internal/dataset"
	"solarcli/internal/errors"
	"solarcli/pkg/contracts/domain"
)

// DataService answers dashboard queries over the combined cleaned dataset.
//
// The service holds one combined frame, loaded at startup and swappable via
// SetData. Every query filters a private view and never mutates the held
// frame, so concurrent readers are safe.
type DataService struct {
	logger        *slog.Logger
	aggregator    *aggregation.Aggregator
	metrics       []string
	primaryMetric string

	mu       sync.RWMutex
	combined *dataset.Frame
}

// NewDataService creates a service over the given combined frame. A nil
// frame is allowed; queries fail with a not-ready error until SetData is
// called.
func NewDataService(logger *slog.Logger, combined *dataset.Frame, metrics []string, primaryMetric string) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		logger:        logger,
		aggregator:    aggregation.NewAggregator(logger),
		metrics:       metrics,
		primaryMetric: primaryMetric,
		combined:      combined,
	}
}

// SetData replaces the combined dataset served by the service.
func (s *DataService) SetData(combined *dataset.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combined = combined
}

// Ready reports whether the service holds data to query.
func (s *DataService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.combined != nil && s.combined.Rows() > 0
}

// data returns the held frame or a not-ready error.
func (s *DataService) data() (*dataset.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.combined == nil || s.combined.Rows() == 0 {
		return nil, errors.NewNotReadyError("combined dataset not loaded")
	}
	return s.combined, nil
}

// QueryFilter narrows a dashboard query. Zero values mean no filtering.
type QueryFilter struct {
	Sites []string
	Start *time.Time
	End   *time.Time
}

// apply runs the site and date filters over the frame.
func (f QueryFilter) apply(frame *dataset.Frame) (*dataset.Frame, error) {
	out, err := aggregation.FilterBySites(frame, f.Sites)
	if err != nil {
		return nil, err
	}
	if f.Start != nil || f.End != nil {
		start := time.Time{}
		if f.Start != nil {
			start = *f.Start
		}
		end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		if f.End != nil {
			end = *f.End
		}
		out, err = aggregation.FilterByDateRange(out, start, end)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Sites returns the distinct site names of the combined dataset in
// alphabetical order.
func (s *DataService) Sites(ctx context.Context) ([]string, error) {
	combined, err := s.data()
	if err != nil {
		return nil, err
	}

	names, err := combined.Strings(aggregation.SiteColumn)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Summary computes per-site summary statistics over the filtered dataset,
// ordered by descending primary-metric mean. A filter matching no rows
// yields a not-found error.
func (s *DataService) Summary(ctx context.Context, filter QueryFilter) ([]domain.SiteSummary, error) {
	combined, err := s.data()
	if err != nil {
		return nil, err
	}

	view, err := filter.apply(combined)
	if err != nil {
		return nil, err
	}
	if view.Rows() == 0 {
		return nil, errors.NewNotFoundError("data matching the requested filters", nil)
	}

	return s.aggregator.SummaryStatistics(view, s.metrics, s.primaryMetric)
}

// DailySeries computes the daily mean series for one metric over the
// filtered dataset. An empty metric falls back to the primary metric.
func (s *DataService) DailySeries(ctx context.Context, metric string, filter QueryFilter) ([]domain.DailyMean, error) {
	combined, err := s.data()
	if err != nil {
		return nil, err
	}

	if metric == "" {
		metric = s.primaryMetric
	}
	if !combined.HasColumn(metric) {
		return nil, errors.NewValidationError("unknown metric: " + metric)
	}

	view, err := filter.apply(combined)
	if err != nil {
		return nil, err
	}
	if view.Rows() == 0 {
		return nil, errors.NewNotFoundError("data matching the requested filters", nil)
	}

	return aggregation.DailyMeanSeries(view, metric)
}

// Info describes the combined dataset.
func (s *DataService) Info(ctx context.Context) (domain.DatasetInfo, error) {
	combined, err := s.data()
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	return combined.Info(), nil
}

// Metrics returns the metric columns the service summarizes.
func (s *DataService) Metrics() []string {
	out := make([]string, len(s.metrics))
	copy(out, s.metrics)
	return out
}
