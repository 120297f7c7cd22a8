package cleaning

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/dataset"
	"solarcli/internal/errors"
)

func buildFrame(t *testing.T, ghi, dni []float64) *dataset.Frame {
	t.Helper()
	frame := dataset.NewFrame(len(ghi))
	ts := make([]time.Time, len(ghi))
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
	}
	require.NoError(t, frame.AddTimeColumn("Timestamp", ts))
	require.NoError(t, frame.AddNumericColumn("GHI", ghi))
	if dni != nil {
		require.NoError(t, frame.AddNumericColumn("DNI", dni))
	}
	return frame
}

func TestDetectMissingValues(t *testing.T) {
	nan := math.NaN()
	frame := buildFrame(t,
		[]float64{100, nan, 120, nan, 140, 150, 160, 170, 180, 190},
		[]float64{200, 210, 220, 230, 240, 250, 260, 270, 280, 290},
	)

	cleaner := NewCleaner(nil, frame)
	stats := cleaner.DetectMissingValues(0.05)

	assert.Equal(t, 2, stats.TotalMissing)
	assert.Equal(t, 2, stats.ByColumn["GHI"])
	assert.Equal(t, 0, stats.ByColumn["DNI"])
	assert.InDelta(t, 20.0, stats.PercentByColumn["GHI"], 1e-9)

	// 20% missing exceeds the 5% threshold
	assert.Contains(t, stats.HighMissingColumns, "GHI")
	assert.NotContains(t, stats.HighMissingColumns, "DNI")
}

func TestImputeMissingValuesMedian(t *testing.T) {
	nan := math.NaN()
	frame := buildFrame(t, []float64{10, nan, 30, 20, nan}, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.ImputeMissingValues([]string{"GHI"}, MethodMedian)
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 20, 20}, vals)

	// the caller's frame is untouched
	orig, err := frame.Numeric("GHI")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(orig[1]))
}

func TestImputeMissingValuesMean(t *testing.T) {
	nan := math.NaN()
	frame := buildFrame(t, []float64{10, nan, 30, 20}, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.ImputeMissingValues([]string{"GHI"}, MethodMean)
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, vals[1], 1e-9)
}

func TestImputeMissingValuesModeTieBreak(t *testing.T) {
	nan := math.NaN()
	// 30 and 10 both occur twice; 30 occurs first, so it wins the tie.
	frame := buildFrame(t, []float64{30, 10, 30, 10, 20, nan}, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.ImputeMissingValues([]string{"GHI"}, MethodMode)
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	assert.Equal(t, 30.0, vals[5])
}

func TestImputeMissingValuesEmptyColumn(t *testing.T) {
	nan := math.NaN()
	frame := buildFrame(t, []float64{nan, nan, nan}, nil)

	cleaner := NewCleaner(nil, frame)
	_, err := cleaner.ImputeMissingValues([]string{"GHI"}, MethodMedian)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeEmptyColumn))
}

func TestImputeMissingValuesUnknownMethod(t *testing.T) {
	frame := buildFrame(t, []float64{1, 2, 3}, nil)

	cleaner := NewCleaner(nil, frame)
	_, err := cleaner.ImputeMissingValues([]string{"GHI"}, Method("geometric"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestImputeMissingValuesSkipsAbsentColumns(t *testing.T) {
	frame := buildFrame(t, []float64{1, 2, 3}, nil)

	cleaner := NewCleaner(nil, frame)
	_, err := cleaner.ImputeMissingValues([]string{"GHI", "Albedo"}, MethodMedian)
	require.NoError(t, err)
}

// irradianceSeries builds a deterministic series of n plausible readings
// around 160-180 W/m².
func irradianceSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 160 + float64(i%20)
	}
	return out
}

func TestDetectOutliersFlagsExtremes(t *testing.T) {
	ghi := irradianceSeries(200)
	ghi[17] = 1600
	ghi[90] = -1200
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.DetectOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)

	flags, err := out.Bools(OutlierFlagColumn)
	require.NoError(t, err)

	assert.True(t, flags[17])
	assert.True(t, flags[90])
	for i, f := range flags {
		if i == 17 || i == 90 {
			continue
		}
		assert.False(t, f, "row %d should not be flagged", i)
	}

	report := cleaner.outlierStats["GHI"]
	assert.Equal(t, 2, report.Count)
	assert.InDelta(t, 1.0, report.Percent, 1e-9)
}

func TestDetectOutliersAccumulatesAcrossColumns(t *testing.T) {
	ghi := irradianceSeries(200)
	ghi[3] = 2000
	dni := irradianceSeries(200)
	dni[7] = 2000
	frame := buildFrame(t, ghi, dni)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.DetectOutliers([]string{"GHI", "DNI"}, 3.0)
	require.NoError(t, err)

	flags, err := out.Bools(OutlierFlagColumn)
	require.NoError(t, err)

	// a flag set by GHI survives the DNI pass, and vice versa
	assert.True(t, flags[3])
	assert.True(t, flags[7])
}

func TestDetectOutliersZeroVariance(t *testing.T) {
	ghi := make([]float64, 50)
	for i := range ghi {
		ghi[i] = 42
	}
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.DetectOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)

	flags, err := out.Bools(OutlierFlagColumn)
	require.NoError(t, err)
	for _, f := range flags {
		assert.False(t, f)
	}
}

func TestDetectOutliersSkipsMissingValues(t *testing.T) {
	ghi := irradianceSeries(100)
	ghi[5] = math.NaN()
	ghi[40] = 2000
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.DetectOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)

	flags, err := out.Bools(OutlierFlagColumn)
	require.NoError(t, err)
	assert.False(t, flags[5])
	assert.True(t, flags[40])
}

func TestDetectOutliersContaminatedDNISeries(t *testing.T) {
	// 1000 plausible DNI readings with six injected 1000 W/m² spikes; the
	// spikes inflate the statistics but stay far beyond |z| = 3 while every
	// genuine reading stays well inside.
	dni := irradianceSeries(1000)
	spikes := []int{13, 199, 400, 601, 777, 950}
	for _, i := range spikes {
		dni[i] = 1000
	}
	frame := buildFrame(t, irradianceSeries(1000), dni)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.DetectOutliers([]string{"DNI"}, 3.0)
	require.NoError(t, err)

	flags, err := out.Bools(OutlierFlagColumn)
	require.NoError(t, err)

	flagged := 0
	for i, f := range flags {
		if f {
			flagged++
			assert.Contains(t, spikes, i)
		}
	}
	assert.Equal(t, len(spikes), flagged)
	assert.Equal(t, len(spikes), cleaner.outlierStats["DNI"].Count)

	// capping with the same threshold pulls the spikes inside the bounds
	capped, err := cleaner.CapOutliers([]string{"DNI"}, 3.0)
	require.NoError(t, err)
	vals, err := capped.Numeric("DNI")
	require.NoError(t, err)
	for _, i := range spikes {
		assert.Less(t, vals[i], 1000.0)
	}
}

func TestCapOutliersClampsToBounds(t *testing.T) {
	ghi := irradianceSeries(200)
	ghi[0] = 5000
	ghi[1] = -5000
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	stats, err := cleaner.columnStatistics([]string{"GHI"})
	require.NoError(t, err)
	st := stats["GHI"]
	lower := st.mean - 3*st.std
	upper := st.mean + 3*st.std

	out, err := cleaner.CapOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	assert.InDelta(t, upper, vals[0], 1e-9)
	assert.InDelta(t, lower, vals[1], 1e-9)
	for _, v := range vals {
		assert.GreaterOrEqual(t, v, lower-1e-9)
		assert.LessOrEqual(t, v, upper+1e-9)
	}
}

func TestCapOutliersRepeatedCapIsNoop(t *testing.T) {
	// Statistics are pinned until the next imputation, so capping again with
	// the same threshold must leave the already-capped values where they are
	// instead of chasing the shrinking post-cap distribution.
	ghi := make([]float64, 100)
	ghi[99] = 1000
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	once, err := cleaner.CapOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)

	vals, err := once.Numeric("GHI")
	require.NoError(t, err)
	// mean 10, population std sqrt(9900)
	upper := 10 + 3*math.Sqrt(9900)
	assert.InDelta(t, upper, vals[99], 1e-9)

	twice, err := cleaner.CapOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)
	again, err := twice.Numeric("GHI")
	require.NoError(t, err)
	assert.Equal(t, vals, again)
}

func TestCapOutliersNoopWithinBounds(t *testing.T) {
	ghi := irradianceSeries(100)
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.CapOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	assert.Equal(t, ghi, vals)
}

func TestCapOutliersIgnoresFlag(t *testing.T) {
	// Capping uses raw values only: a column with no flag column caps fine.
	ghi := irradianceSeries(100)
	ghi[10] = 9999
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.CapOutliers([]string{"GHI"}, 3.0)
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	assert.Less(t, vals[10], 9999.0)
	assert.False(t, out.HasColumn(OutlierFlagColumn))
}

func TestCleanFullPipeline(t *testing.T) {
	nan := math.NaN()
	ghi := irradianceSeries(500)
	ghi[3] = nan
	ghi[250] = nan
	ghi[100] = 3000
	dni := irradianceSeries(500)
	dni[77] = -3000
	frame := buildFrame(t, ghi, dni)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.Clean(CleanOptions{})
	require.NoError(t, err)

	// no nulls remain in the monitored columns
	for _, col := range []string{"GHI", "DNI"} {
		vals, err := out.Numeric(col)
		require.NoError(t, err)
		for i, v := range vals {
			assert.False(t, math.IsNaN(v), "%s row %d still null", col, i)
		}
	}

	flags, err := out.Bools(OutlierFlagColumn)
	require.NoError(t, err)
	assert.True(t, flags[100])
	assert.True(t, flags[77])

	report := cleaner.Report()
	assert.Equal(t, 2, report.MissingValues.TotalMissing)
	assert.Equal(t, 2, report.TotalOutliers)
	assert.Equal(t, 1, report.Outliers["GHI"].Count)
	assert.Equal(t, 1, report.Outliers["DNI"].Count)
}

func TestCleanSharesStatisticsBetweenDetectAndCap(t *testing.T) {
	// Detection and capping must use the same post-imputation statistics:
	// every flagged value ends up exactly on a bound, and no unflagged value
	// moves.
	ghi := irradianceSeries(300)
	ghi[42] = 4000
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	statsBefore, err := cleaner.columnStatistics([]string{"GHI"})
	require.NoError(t, err)
	st := statsBefore["GHI"]
	upper := st.mean + 3*st.std

	out, err := cleaner.Clean(CleanOptions{})
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	flags, err := out.Bools(OutlierFlagColumn)
	require.NoError(t, err)

	assert.True(t, flags[42])
	assert.InDelta(t, upper, vals[42], 1e-9)
	for i := range vals {
		if i == 42 {
			continue
		}
		assert.Equal(t, ghi[i], vals[i], "unflagged row %d must not move", i)
	}
}

func TestCleanReportsImputedCountSeparately(t *testing.T) {
	// TotalMissing counts every null seen, including string nulls nothing
	// ever fills; TotalImputed counts only the values imputation wrote.
	nan := math.NaN()
	ghi := irradianceSeries(100)
	ghi[8] = nan
	frame := buildFrame(t, ghi, nil)
	comments := make([]string, 100)
	for i := range comments {
		comments[i] = "ok"
	}
	comments[3] = ""
	require.NoError(t, frame.AddStringColumn("Comment", comments))

	cleaner := NewCleaner(nil, frame)
	_, err := cleaner.Clean(CleanOptions{NumericColumns: []string{"GHI"}})
	require.NoError(t, err)

	report := cleaner.Report()
	assert.Equal(t, 2, report.MissingValues.TotalMissing)
	assert.Equal(t, 1, report.TotalImputed)
}

func TestCleanZeroVarianceColumn(t *testing.T) {
	ghi := make([]float64, 20)
	for i := range ghi {
		ghi[i] = 7
	}
	frame := buildFrame(t, ghi, nil)

	cleaner := NewCleaner(nil, frame)
	out, err := cleaner.Clean(CleanOptions{})
	require.NoError(t, err)

	vals, err := out.Numeric("GHI")
	require.NoError(t, err)
	assert.Equal(t, ghi, vals)

	report := cleaner.Report()
	assert.Equal(t, 0, report.TotalOutliers)
}

func TestAddTimeFeatures(t *testing.T) {
	frame := dataset.NewFrame(2)
	require.NoError(t, frame.AddTimeColumn("Timestamp", []time.Time{
		time.Date(2023, 3, 15, 9, 30, 0, 0, time.UTC),
		time.Date(2023, 11, 2, 18, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, frame.AddNumericColumn("GHI", []float64{100, 200}))

	out, err := AddTimeFeatures(frame)
	require.NoError(t, err)

	hours, err := out.Numeric(HourColumn)
	require.NoError(t, err)
	months, err := out.Numeric(MonthColumn)
	require.NoError(t, err)
	days, err := out.Numeric(DayColumn)
	require.NoError(t, err)

	assert.Equal(t, []float64{9, 18}, hours)
	assert.Equal(t, []float64{3, 11}, months)
	assert.Equal(t, []float64{15, 2}, days)

	// idempotent: running it again replaces rather than duplicates
	again, err := AddTimeFeatures(out)
	require.NoError(t, err)
	assert.Equal(t, out.Columns(), again.Columns())
}

func TestAddTimeFeaturesNoTimestamp(t *testing.T) {
	frame := dataset.NewFrame(1)
	require.NoError(t, frame.AddNumericColumn("GHI", []float64{1}))

	_, err := AddTimeFeatures(frame)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchema))
}
