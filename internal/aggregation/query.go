package aggregation

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"solarcli/internal/dataset"
	"solarcli/internal/errors"
	"solarcli/pkg/contracts/domain"
)

// FilterBySites returns the rows of a combined frame belonging to any of the
// named sites. An empty site list keeps every row; a selection matching no
// rows is a valid empty frame, not an error.
func FilterBySites(combined *dataset.Frame, siteNames []string) (*dataset.Frame, error) {
	if len(siteNames) == 0 {
		return combined.Clone(), nil
	}

	sites, err := combined.Strings(SiteColumn)
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(siteNames))
	for _, s := range siteNames {
		want[s] = true
	}

	keep := make([]bool, len(sites))
	for i, s := range sites {
		keep[i] = want[s]
	}
	return combined.FilterRows(keep)
}

// FilterByDateRange returns the rows whose timestamp falls on a calendar day
// between start and end. Both bounds are inclusive: the whole end day is
// kept.
func FilterByDateRange(frame *dataset.Frame, start, end time.Time) (*dataset.Frame, error) {
	tsCol, ok := frame.TimestampColumn()
	if !ok {
		return nil, errors.NewSchemaError("frame has no timestamp column", nil)
	}
	ts, err := frame.Times(tsCol)
	if err != nil {
		return nil, err
	}

	lo := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	hi := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).AddDate(0, 0, 1)

	keep := make([]bool, len(ts))
	for i, t := range ts {
		keep[i] = !t.Before(lo) && t.Before(hi)
	}
	return frame.FilterRows(keep)
}

// DailyMeanSeries computes the mean of one metric per site per calendar day,
// ordered by date then site. Null cells are excluded from the means; a
// day/site group with only nulls is dropped.
func DailyMeanSeries(combined *dataset.Frame, metric string) ([]domain.DailyMean, error) {
	tsCol, ok := combined.TimestampColumn()
	if !ok {
		return nil, errors.NewSchemaError("frame has no timestamp column", nil)
	}
	ts, err := combined.Times(tsCol)
	if err != nil {
		return nil, err
	}
	sites, err := combined.Strings(SiteColumn)
	if err != nil {
		return nil, err
	}
	vals, err := combined.Numeric(metric)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		date time.Time
		site string
	}
	groups := make(map[groupKey][]float64)
	for i := range ts {
		if dataset.IsMissing(vals[i]) {
			continue
		}
		t := ts[i]
		key := groupKey{
			date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()),
			site: sites[i],
		}
		groups[key] = append(groups[key], vals[i])
	}

	out := make([]domain.DailyMean, 0, len(groups))
	for key, series := range groups {
		mean, err := stats.Mean(series)
		if err != nil {
			return nil, errors.NewParsingError("failed to compute daily mean", err).
				WithContext("site", key.site).
				WithContext("metric", metric)
		}
		out = append(out, domain.DailyMean{Date: key.date, Site: key.site, Mean: mean})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Site < out[j].Site
	})

	return out, nil
}
