package aggregation

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"solarcli/internal/dataset"
	"solarcli/internal/errors"
	"solarcli/internal/exporter"
	"solarcli/pkg/contracts/domain"
)

// SiteColumn tags every row of a combined frame with its origin site.
const SiteColumn = "Site"

// SiteSource names one cleaned per-site file to fold into the combined
// dataset.
type SiteSource struct {
	Name string
	Path string
	// TimestampColumn and TimestampLayout override the loader defaults for
	// this site's file. Cleaned files keep the layout they were exported
	// with, so the caller must pass the same one here.
	TimestampColumn string
	TimestampLayout string
}

// Aggregator combines cleaned per-site datasets into one tagged frame and
// computes the cross-site comparison table.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates an aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// Aggregate loads every source, tags its rows with the site name and
// concatenates the results in alphabetical site order. All sources must
// load: a missing or unreadable file aborts the whole aggregation, never a
// partial combine.
func (a *Aggregator) Aggregate(ctx context.Context, sources []SiteSource) (*dataset.Frame, error) {
	if len(sources) == 0 {
		return nil, errors.NewValidationError("no sites to aggregate")
	}

	sorted := make([]SiteSource, len(sources))
	copy(sorted, sources)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	frames := make([]*dataset.Frame, 0, len(sorted))
	for _, src := range sorted {
		loader := dataset.NewLoader(a.logger, src.TimestampColumn, src.TimestampLayout)
		frame, err := loader.Load(ctx, src.Path)
		if err != nil {
			return nil, err
		}

		tagged := frame.DropColumns(SiteColumn)
		site := make([]string, tagged.Rows())
		for i := range site {
			site[i] = src.Name
		}
		if err := tagged.AddStringColumn(SiteColumn, site); err != nil {
			return nil, err
		}

		a.logger.InfoContext(ctx, "loaded site for aggregation",
			slog.String("site", src.Name),
			slog.Int("rows", tagged.Rows()))

		frames = append(frames, tagged)
	}

	combined, err := dataset.Concat(frames...)
	if err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "aggregated sites",
		slog.Int("sites", len(sorted)),
		slog.Int("rows", combined.Rows()))

	return combined, nil
}

// SummaryStatistics computes per-site descriptive statistics over the named
// metrics of a combined frame. The result is ordered by descending mean of
// primaryMetric; ties break alphabetically by site name. A metric with no
// non-null values at a site is left out of that site's map.
func (a *Aggregator) SummaryStatistics(combined *dataset.Frame, metrics []string, primaryMetric string) ([]domain.SiteSummary, error) {
	if combined == nil || combined.Rows() == 0 {
		return nil, errors.NewNotReadyError("no combined data to summarize")
	}
	sites, err := combined.Strings(SiteColumn)
	if err != nil {
		return nil, errors.NewNotReadyError("combined data has no site column")
	}

	indices := make(map[string][]int)
	var order []string
	for i, s := range sites {
		if _, seen := indices[s]; !seen {
			order = append(order, s)
		}
		indices[s] = append(indices[s], i)
	}

	tsCol, hasTS := combined.TimestampColumn()

	summaries := make([]domain.SiteSummary, 0, len(order))
	for _, site := range order {
		rows := indices[site]
		summary := domain.SiteSummary{
			Site:    site,
			Metrics: make(map[string]domain.MetricSummary),
			Rows:    len(rows),
		}

		for _, metric := range metrics {
			vals, err := combined.Numeric(metric)
			if err != nil {
				return nil, err
			}
			series := make([]float64, 0, len(rows))
			for _, i := range rows {
				if !dataset.IsMissing(vals[i]) {
					series = append(series, vals[i])
				}
			}
			if len(series) == 0 {
				continue
			}

			ms, err := metricSummary(series)
			if err != nil {
				return nil, errors.NewParsingError("failed to summarize metric", err).
					WithContext("site", site).
					WithContext("metric", metric)
			}
			summary.Metrics[metric] = ms
		}

		if hasTS {
			ts, _ := combined.Times(tsCol)
			minTS, maxTS := ts[rows[0]], ts[rows[0]]
			for _, i := range rows[1:] {
				if ts[i].Before(minTS) {
					minTS = ts[i]
				}
				if ts[i].After(maxTS) {
					maxTS = ts[i]
				}
			}
			summary.MinTimestamp = minTS
			summary.MaxTimestamp = maxTS
		}

		summaries = append(summaries, summary)
	}

	primaryMean := func(s domain.SiteSummary) float64 {
		if ms, ok := s.Metrics[primaryMetric]; ok {
			return ms.Mean
		}
		return math.Inf(-1)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		mi, mj := primaryMean(summaries[i]), primaryMean(summaries[j])
		if mi != mj {
			return mi > mj
		}
		return summaries[i].Site < summaries[j].Site
	})

	return summaries, nil
}

func metricSummary(series []float64) (domain.MetricSummary, error) {
	var out domain.MetricSummary
	var err error
	if out.Mean, err = stats.Mean(series); err != nil {
		return out, err
	}
	if out.Median, err = stats.Median(series); err != nil {
		return out, err
	}
	if out.Std, err = stats.StandardDeviationPopulation(series); err != nil {
		return out, err
	}
	if out.Min, err = stats.Min(series); err != nil {
		return out, err
	}
	if out.Max, err = stats.Max(series); err != nil {
		return out, err
	}
	return out, nil
}

// ExportCombined strips the transient working columns from the combined
// frame and writes it to path.
func (a *Aggregator) ExportCombined(ctx context.Context, combined *dataset.Frame, path string, timestampLayout string) error {
	exp := exporter.NewCSVExporter(a.logger, timestampLayout)
	return exp.Export(ctx, exporter.RemoveTempColumns(combined), path)
}
