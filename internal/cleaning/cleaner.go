package cleaning

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/montanaflynn/stats"

	"solarcli/internal/dataset"
	"solarcli/internal/errors"
	"solarcli/pkg/contracts/domain"
)

// Method selects how a missing value is filled.
type Method string

const (
	MethodMedian Method = "median"
	MethodMean   Method = "mean"
	MethodMode   Method = "mode"
)

// OutlierFlagColumn is the transient bool column added by outlier detection.
// It is informational only: capping clamps every value of a monitored column
// regardless of the flag, and the exporter strips it before persisting.
const OutlierFlagColumn = "Outlier_Flag"

// DefaultZThreshold is the Z-score magnitude beyond which a value counts as
// an outlier.
const DefaultZThreshold = 3.0

// DefaultMissingThreshold is the missing-value percentage above which a
// column is reported as high-missing (flagged, never auto-handled).
const DefaultMissingThreshold = 0.05

// Cleaner runs the missing-value and outlier pipeline over one table.
//
// The cleaner owns a private working copy of the input frame. Each step
// returns the transformed frame and advances the working copy, so chained
// calls compose; the caller's frame is never touched. Not safe for
// concurrent use: callers needing parallelism run one Cleaner per site.
type Cleaner struct {
	logger *slog.Logger
	frame  *dataset.Frame

	// statsCache pins the per-column mean/std computed after the last value
	// mutation, so detection and capping always see the same statistics and
	// repeated capping is idempotent. Imputation invalidates it.
	statsCache map[string]columnStats

	outlierStats map[string]domain.OutlierColumnStats
	totalImputed int
	report       domain.CleaningReport
	hasReport    bool
}

// NewCleaner creates a cleaner over a private copy of the given frame.
func NewCleaner(logger *slog.Logger, frame *dataset.Frame) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		logger:       logger,
		frame:        frame.Clone(),
		statsCache:   make(map[string]columnStats),
		outlierStats: make(map[string]domain.OutlierColumnStats),
	}
}

// Frame returns the cleaner's current working frame. Read-only for callers.
func (c *Cleaner) Frame() *dataset.Frame {
	return c.frame
}

// DetectMissingValues counts nulls per column and reports the columns whose
// missing percentage exceeds threshold. Numeric nulls are NaN cells; string
// nulls are empty cells. No mutation.
func (c *Cleaner) DetectMissingValues(threshold float64) domain.MissingValueStats {
	out := domain.MissingValueStats{
		ByColumn:           make(map[string]int),
		PercentByColumn:    make(map[string]float64),
		HighMissingColumns: make(map[string]float64),
	}

	rows := c.frame.Rows()
	for _, col := range c.frame.Columns() {
		missing := 0
		switch kind, _ := c.frame.Kind(col); kind {
		case dataset.KindNumeric:
			vals, _ := c.frame.Numeric(col)
			for _, v := range vals {
				if dataset.IsMissing(v) {
					missing++
				}
			}
		case dataset.KindString:
			vals, _ := c.frame.Strings(col)
			for _, v := range vals {
				if v == "" {
					missing++
				}
			}
		}

		pct := 0.0
		if rows > 0 {
			pct = float64(missing) / float64(rows) * 100
		}
		out.ByColumn[col] = missing
		out.PercentByColumn[col] = pct
		out.TotalMissing += missing
		if pct > threshold*100 {
			out.HighMissingColumns[col] = pct
		}
	}

	return out
}

// ImputeMissingValues fills every null of the named numeric columns with a
// value computed from the column's non-null values. Columns absent from the
// frame are skipped; a named column with zero non-null values fails with an
// EmptyColumn error rather than inventing a fill value.
func (c *Cleaner) ImputeMissingValues(columns []string, method Method) (*dataset.Frame, error) {
	out := c.frame.Clone()

	for _, col := range columns {
		if !out.HasColumn(col) {
			continue
		}
		if kind, _ := out.Kind(col); kind != dataset.KindNumeric {
			return nil, errors.NewValidationError(
				fmt.Sprintf("cannot impute non-numeric column %q", col))
		}

		vals, _ := out.Numeric(col)
		nonNull := dropMissing(vals)
		if len(nonNull) == 0 {
			return nil, errors.NewEmptyColumnError(col)
		}

		fill, err := fillValue(nonNull, method)
		if err != nil {
			return nil, err
		}

		filled := 0
		for i, v := range vals {
			if dataset.IsMissing(v) {
				vals[i] = fill
				filled++
			}
		}
		c.totalImputed += filled

		c.logger.Debug("imputed column",
			slog.String("column", col),
			slog.String("method", string(method)),
			slog.Float64("fill_value", fill),
			slog.Int("filled", filled))
	}

	// imputation changed values, so pinned statistics no longer hold
	c.statsCache = make(map[string]columnStats)

	c.frame = out
	return out, nil
}

// fillValue computes the imputation fill for a non-empty series.
func fillValue(nonNull []float64, method Method) (float64, error) {
	switch method {
	case MethodMedian:
		return stats.Median(nonNull)
	case MethodMean:
		return stats.Mean(nonNull)
	case MethodMode:
		return firstMode(nonNull), nil
	default:
		return 0, errors.NewValidationError(fmt.Sprintf("unknown imputation method: %s", method))
	}
}

// firstMode returns the most frequent value; ties are broken by first
// occurrence in the series.
func firstMode(vals []float64) float64 {
	counts := make(map[float64]int, len(vals))
	best := vals[0]
	bestCount := 0
	for _, v := range vals {
		counts[v]++
		if counts[v] > bestCount {
			best = v
			bestCount = counts[v]
		}
	}
	return best
}

// DetectOutliers flags every row where any of the named columns has a
// population Z-score beyond zThreshold. Flags accumulate with logical OR
// across the column loop; a later column never clears a flag set by an
// earlier one. A zero-variance column contributes no flags. The result
// carries a fresh Outlier_Flag bool column.
func (c *Cleaner) DetectOutliers(columns []string, zThreshold float64) (*dataset.Frame, error) {
	colStats, err := c.columnStatistics(columns)
	if err != nil {
		return nil, err
	}
	return c.detectWithStats(columns, zThreshold, colStats)
}

func (c *Cleaner) detectWithStats(columns []string, zThreshold float64, colStats map[string]columnStats) (*dataset.Frame, error) {
	out := c.frame.DropColumns(OutlierFlagColumn)
	flags := make([]bool, out.Rows())

	for _, col := range columns {
		st, ok := colStats[col]
		if !ok {
			continue
		}
		if st.std == 0 {
			// Z-scores are undefined; by policy no row is an outlier here.
			c.outlierStats[col] = domain.OutlierColumnStats{}
			continue
		}

		vals, _ := out.Numeric(col)
		count := 0
		for i, v := range vals {
			if dataset.IsMissing(v) {
				continue
			}
			if math.Abs((v-st.mean)/st.std) > zThreshold {
				flags[i] = true
				count++
			}
		}

		pct := 0.0
		if out.Rows() > 0 {
			pct = float64(count) / float64(out.Rows()) * 100
		}
		c.outlierStats[col] = domain.OutlierColumnStats{Count: count, Percent: pct}

		c.logger.Debug("detected outliers",
			slog.String("column", col),
			slog.Int("count", count),
			slog.Float64("z_threshold", zThreshold))
	}

	if err := out.AddBoolColumn(OutlierFlagColumn, flags); err != nil {
		return nil, err
	}

	c.frame = out
	return out, nil
}

// CapOutliers Winsorizes each named column independently: every value is
// clamped into [mean - z*std, mean + z*std]. Capping operates on raw values
// and ignores the outlier flag.
func (c *Cleaner) CapOutliers(columns []string, zThreshold float64) (*dataset.Frame, error) {
	colStats, err := c.columnStatistics(columns)
	if err != nil {
		return nil, err
	}
	return c.capWithStats(columns, zThreshold, colStats)
}

func (c *Cleaner) capWithStats(columns []string, zThreshold float64, colStats map[string]columnStats) (*dataset.Frame, error) {
	out := c.frame.Clone()

	for _, col := range columns {
		st, ok := colStats[col]
		if !ok {
			continue
		}

		lower := st.mean - zThreshold*st.std
		upper := st.mean + zThreshold*st.std

		vals, _ := out.Numeric(col)
		capped := 0
		for i, v := range vals {
			if dataset.IsMissing(v) {
				continue
			}
			if v < lower {
				vals[i] = lower
				capped++
			} else if v > upper {
				vals[i] = upper
				capped++
			}
		}

		c.logger.Debug("capped column",
			slog.String("column", col),
			slog.Float64("lower", lower),
			slog.Float64("upper", upper),
			slog.Int("capped", capped))
	}

	c.frame = out
	return out, nil
}

// columnStats holds the per-column statistics shared between detection and
// capping within one Clean invocation.
type columnStats struct {
	mean float64
	std  float64
}

// columnStatistics computes population mean/std over the non-null values of
// each named column of the working frame. Absent columns and columns with no
// non-null values are left out of the result. Computed statistics are pinned
// in the cache until the next imputation: capping must not shift the bounds
// of a later detection or capping pass over already-capped values.
func (c *Cleaner) columnStatistics(columns []string) (map[string]columnStats, error) {
	out := make(map[string]columnStats, len(columns))
	for _, col := range columns {
		if st, ok := c.statsCache[col]; ok {
			out[col] = st
			continue
		}
		if !c.frame.HasColumn(col) {
			continue
		}
		if kind, _ := c.frame.Kind(col); kind != dataset.KindNumeric {
			return nil, errors.NewValidationError(
				fmt.Sprintf("cannot compute outlier statistics for non-numeric column %q", col))
		}

		vals, _ := c.frame.Numeric(col)
		nonNull := dropMissing(vals)
		if len(nonNull) == 0 {
			continue
		}

		mean, err := stats.Mean(nonNull)
		if err != nil {
			return nil, errors.NewParsingError("failed to compute column mean", err).WithContext("column", col)
		}
		std, err := stats.StandardDeviationPopulation(nonNull)
		if err != nil {
			return nil, errors.NewParsingError("failed to compute column std", err).WithContext("column", col)
		}

		st := columnStats{mean: mean, std: std}
		c.statsCache[col] = st
		out[col] = st
	}
	return out, nil
}

// CleanOptions configures one full cleaning run.
type CleanOptions struct {
	// NumericColumns to impute; defaults to every numeric column.
	NumericColumns []string
	// OutlierColumns to detect and cap; defaults to the imputed set.
	OutlierColumns []string
	// ImputationMethod defaults to median.
	ImputationMethod Method
	// ZThreshold defaults to DefaultZThreshold.
	ZThreshold float64
	// MissingThreshold defaults to DefaultMissingThreshold.
	MissingThreshold float64
}

// Clean runs the full pipeline: detect missing values, impute, detect
// outliers, cap outliers. Detection and capping share one set of column
// statistics, computed once after imputation, so the two steps can never
// diverge within a run. Returns the capped frame.
func (c *Cleaner) Clean(opts CleanOptions) (*dataset.Frame, error) {
	if opts.ImputationMethod == "" {
		opts.ImputationMethod = MethodMedian
	}
	if opts.ZThreshold == 0 {
		opts.ZThreshold = DefaultZThreshold
	}
	if opts.MissingThreshold == 0 {
		opts.MissingThreshold = DefaultMissingThreshold
	}

	missing := c.DetectMissingValues(opts.MissingThreshold)
	c.totalImputed = 0

	numericColumns := opts.NumericColumns
	if numericColumns == nil {
		numericColumns = c.frame.NumericColumns()
	}

	if _, err := c.ImputeMissingValues(numericColumns, opts.ImputationMethod); err != nil {
		return nil, err
	}

	outlierColumns := opts.OutlierColumns
	if outlierColumns == nil {
		outlierColumns = numericColumns
	}

	colStats, err := c.columnStatistics(outlierColumns)
	if err != nil {
		return nil, err
	}

	if _, err := c.detectWithStats(outlierColumns, opts.ZThreshold, colStats); err != nil {
		return nil, err
	}
	capped, err := c.capWithStats(outlierColumns, opts.ZThreshold, colStats)
	if err != nil {
		return nil, err
	}

	totalOutliers := 0
	if flags, err := capped.Bools(OutlierFlagColumn); err == nil {
		for _, f := range flags {
			if f {
				totalOutliers++
			}
		}
	}

	c.report = domain.CleaningReport{
		MissingValues: missing,
		Outliers:      c.outlierStats,
		TotalImputed:  c.totalImputed,
		TotalOutliers: totalOutliers,
	}
	c.hasReport = true

	c.logger.Info("cleaning run complete",
		slog.Int("rows", capped.Rows()),
		slog.Int("missing_values", missing.TotalMissing),
		slog.Int("values_imputed", c.totalImputed),
		slog.Int("total_outliers", totalOutliers))

	return capped, nil
}

// Report returns the report accumulated by the last Clean call. Calling it
// before Clean yields an empty report.
func (c *Cleaner) Report() domain.CleaningReport {
	return c.report
}

// dropMissing returns the non-null values of a numeric series.
func dropMissing(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !dataset.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}
