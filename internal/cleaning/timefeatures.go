package cleaning

import (
	"solarcli/internal/dataset"
	"solarcli/internal/errors"
)

// Names of the derived calendar columns.
const (
	HourColumn  = "Hour"
	MonthColumn = "Month"
	DayColumn   = "Day"
)

// TimeFeatureColumns lists the derived calendar columns in the order they
// are appended.
var TimeFeatureColumns = []string{HourColumn, MonthColumn, DayColumn}

// AddTimeFeatures returns a copy of the frame with numeric Hour, Month and
// Day columns derived from its timestamp column. Existing feature columns
// are replaced, so the operation is idempotent.
func AddTimeFeatures(frame *dataset.Frame) (*dataset.Frame, error) {
	tsCol, ok := frame.TimestampColumn()
	if !ok {
		return nil, errors.NewSchemaError("frame has no timestamp column", nil)
	}

	out := frame.DropColumns(TimeFeatureColumns...)
	ts, err := out.Times(tsCol)
	if err != nil {
		return nil, err
	}

	hours := make([]float64, len(ts))
	months := make([]float64, len(ts))
	days := make([]float64, len(ts))
	for i, t := range ts {
		hours[i] = float64(t.Hour())
		months[i] = float64(int(t.Month()))
		days[i] = float64(t.Day())
	}

	if err := out.AddNumericColumn(HourColumn, hours); err != nil {
		return nil, err
	}
	if err := out.AddNumericColumn(MonthColumn, months); err != nil {
		return nil, err
	}
	if err := out.AddNumericColumn(DayColumn, days); err != nil {
		return nil, err
	}
	return out, nil
}
