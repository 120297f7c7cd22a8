package aggregation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/dataset"
	"solarcli/internal/errors"
)

// combinedFixture builds a two-site combined frame with two days of hourly
// readings per site.
func combinedFixture(t *testing.T) *dataset.Frame {
	t.Helper()

	var ts []time.Time
	var ghi []float64
	var sites []string
	for _, site := range []string{"alpha", "beta"} {
		for day := 1; day <= 2; day++ {
			for hour := 0; hour < 3; hour++ {
				ts = append(ts, time.Date(2023, 6, day, hour, 0, 0, 0, time.UTC))
				v := 100.0 * float64(day)
				if site == "beta" {
					v *= 2
				}
				ghi = append(ghi, v)
				sites = append(sites, site)
			}
		}
	}

	frame := dataset.NewFrame(len(ts))
	require.NoError(t, frame.AddTimeColumn("Timestamp", ts))
	require.NoError(t, frame.AddNumericColumn("GHI", ghi))
	require.NoError(t, frame.AddStringColumn(SiteColumn, sites))
	return frame
}

func TestFilterBySites(t *testing.T) {
	combined := combinedFixture(t)

	out, err := FilterBySites(combined, []string{"beta"})
	require.NoError(t, err)
	assert.Equal(t, 6, out.Rows())

	sites, err := out.Strings(SiteColumn)
	require.NoError(t, err)
	for _, s := range sites {
		assert.Equal(t, "beta", s)
	}
}

func TestFilterBySitesEmptySelectionKeepsAll(t *testing.T) {
	combined := combinedFixture(t)
	out, err := FilterBySites(combined, nil)
	require.NoError(t, err)
	assert.Equal(t, combined.Rows(), out.Rows())
}

func TestFilterBySitesNoMatchIsEmptyNotError(t *testing.T) {
	combined := combinedFixture(t)
	out, err := FilterBySites(combined, []string{"delta"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Rows())
}

func TestFilterByDateRangeEndInclusive(t *testing.T) {
	combined := combinedFixture(t)

	day1 := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	out, err := FilterByDateRange(combined, day1, day1)
	require.NoError(t, err)
	// the whole end day is kept: 3 hours x 2 sites
	assert.Equal(t, 6, out.Rows())

	day2 := time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC)
	both, err := FilterByDateRange(combined, day1, day2)
	require.NoError(t, err)
	assert.Equal(t, 12, both.Rows())
}

func TestFilterByDateRangeNoTimestamp(t *testing.T) {
	frame := dataset.NewFrame(1)
	require.NoError(t, frame.AddNumericColumn("GHI", []float64{1}))

	_, err := FilterByDateRange(frame, time.Now(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchema))
}

func TestDailyMeanSeries(t *testing.T) {
	combined := combinedFixture(t)

	series, err := DailyMeanSeries(combined, "GHI")
	require.NoError(t, err)
	require.Len(t, series, 4)

	// ordered by date then site
	assert.Equal(t, "alpha", series[0].Site)
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), series[0].Date)
	assert.InDelta(t, 100.0, series[0].Mean, 1e-9)

	assert.Equal(t, "beta", series[1].Site)
	assert.InDelta(t, 200.0, series[1].Mean, 1e-9)

	assert.Equal(t, "alpha", series[2].Site)
	assert.Equal(t, time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC), series[2].Date)
	assert.InDelta(t, 200.0, series[2].Mean, 1e-9)

	assert.Equal(t, "beta", series[3].Site)
	assert.InDelta(t, 400.0, series[3].Mean, 1e-9)
}

func TestDailyMeanSeriesSkipsNulls(t *testing.T) {
	frame := dataset.NewFrame(3)
	require.NoError(t, frame.AddTimeColumn("Timestamp", []time.Time{
		time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 2, 9, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, frame.AddNumericColumn("GHI", []float64{100, math.NaN(), math.NaN()}))
	require.NoError(t, frame.AddStringColumn(SiteColumn, []string{"alpha", "alpha", "alpha"}))

	series, err := DailyMeanSeries(frame, "GHI")
	require.NoError(t, err)
	// the all-null day 2 group is dropped
	require.Len(t, series, 1)
	assert.InDelta(t, 100.0, series[0].Mean, 1e-9)
}

func TestDailyMeanSeriesUnknownMetric(t *testing.T) {
	combined := combinedFixture(t)
	_, err := DailyMeanSeries(combined, "Albedo")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchema))
}
