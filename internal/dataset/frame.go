package dataset

import (
	"math"
	"time"

	"solarcli/internal/errors"
	"solarcli/pkg/contracts/domain"
)

// Kind identifies the semantic type of a column.
type Kind int

const (
	KindNumeric Kind = iota
	KindTime
	KindString
	KindBool
)

// Missing is the in-memory marker for a missing numeric value.
var Missing = math.NaN()

// IsMissing reports whether a numeric cell holds no value.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Frame is an in-memory table with a fixed, ordered column set and typed
// per-column storage. Numeric columns mark nulls with NaN; the NaN never
// leaves the frame through a statistic (degenerate cases are explicit
// errors at the call sites that compute them).
//
// Transformations between pipeline stages return new frames; a stage never
// mutates its caller's frame. Column accessors return the backing slices
// for efficiency, so callers that need to write must Clone first.
type Frame struct {
	cols  []string
	kinds map[string]Kind
	nums  map[string][]float64
	times map[string][]time.Time
	strs  map[string][]string
	bools map[string][]bool
	rows  int
}

// NewFrame creates an empty frame that will hold the given number of rows.
func NewFrame(rows int) *Frame {
	return &Frame{
		kinds: make(map[string]Kind),
		nums:  make(map[string][]float64),
		times: make(map[string][]time.Time),
		strs:  make(map[string][]string),
		bools: make(map[string][]bool),
		rows:  rows,
	}
}

// Rows returns the number of rows.
func (f *Frame) Rows() int {
	return f.rows
}

// Columns returns the column names in declared order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.cols))
	copy(out, f.cols)
	return out
}

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.kinds[name]
	return ok
}

// Kind returns the kind of the named column.
func (f *Frame) Kind(name string) (Kind, bool) {
	k, ok := f.kinds[name]
	return k, ok
}

// NumericColumns returns the names of all numeric columns in declared order.
func (f *Frame) NumericColumns() []string {
	var out []string
	for _, c := range f.cols {
		if f.kinds[c] == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// TimestampColumn returns the name of the first time-typed column.
func (f *Frame) TimestampColumn() (string, bool) {
	for _, c := range f.cols {
		if f.kinds[c] == KindTime {
			return c, true
		}
	}
	return "", false
}

func (f *Frame) addColumn(name string, kind Kind, length int) error {
	if f.HasColumn(name) {
		return errors.NewSchemaError("column already exists", nil).WithContext("column", name)
	}
	if length != f.rows {
		return errors.NewSchemaError("column length does not match frame row count", nil).
			WithContext("column", name).
			WithContext("length", length).
			WithContext("rows", f.rows)
	}
	f.cols = append(f.cols, name)
	f.kinds[name] = kind
	return nil
}

// AddNumericColumn appends a numeric column. NaN entries mark missing values.
func (f *Frame) AddNumericColumn(name string, values []float64) error {
	if err := f.addColumn(name, KindNumeric, len(values)); err != nil {
		return err
	}
	f.nums[name] = values
	return nil
}

// AddTimeColumn appends a parsed date-time column.
func (f *Frame) AddTimeColumn(name string, values []time.Time) error {
	if err := f.addColumn(name, KindTime, len(values)); err != nil {
		return err
	}
	f.times[name] = values
	return nil
}

// AddStringColumn appends a string category column.
func (f *Frame) AddStringColumn(name string, values []string) error {
	if err := f.addColumn(name, KindString, len(values)); err != nil {
		return err
	}
	f.strs[name] = values
	return nil
}

// AddBoolColumn appends a boolean flag column.
func (f *Frame) AddBoolColumn(name string, values []bool) error {
	if err := f.addColumn(name, KindBool, len(values)); err != nil {
		return err
	}
	f.bools[name] = values
	return nil
}

// Numeric returns the backing slice of a numeric column.
func (f *Frame) Numeric(name string) ([]float64, error) {
	vals, ok := f.nums[name]
	if !ok {
		return nil, errors.NewSchemaError("numeric column not found", nil).WithContext("column", name)
	}
	return vals, nil
}

// Times returns the backing slice of a time column.
func (f *Frame) Times(name string) ([]time.Time, error) {
	vals, ok := f.times[name]
	if !ok {
		return nil, errors.NewSchemaError("time column not found", nil).WithContext("column", name)
	}
	return vals, nil
}

// Strings returns the backing slice of a string column.
func (f *Frame) Strings(name string) ([]string, error) {
	vals, ok := f.strs[name]
	if !ok {
		return nil, errors.NewSchemaError("string column not found", nil).WithContext("column", name)
	}
	return vals, nil
}

// Bools returns the backing slice of a bool column.
func (f *Frame) Bools(name string) ([]bool, error) {
	vals, ok := f.bools[name]
	if !ok {
		return nil, errors.NewSchemaError("bool column not found", nil).WithContext("column", name)
	}
	return vals, nil
}

// SetNumericColumn replaces the values of an existing numeric column.
func (f *Frame) SetNumericColumn(name string, values []float64) error {
	if _, ok := f.nums[name]; !ok {
		return errors.NewSchemaError("numeric column not found", nil).WithContext("column", name)
	}
	if len(values) != f.rows {
		return errors.NewSchemaError("column length does not match frame row count", nil).
			WithContext("column", name)
	}
	f.nums[name] = values
	return nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := NewFrame(f.rows)
	for _, c := range f.cols {
		switch f.kinds[c] {
		case KindNumeric:
			vals := make([]float64, f.rows)
			copy(vals, f.nums[c])
			out.AddNumericColumn(c, vals)
		case KindTime:
			vals := make([]time.Time, f.rows)
			copy(vals, f.times[c])
			out.AddTimeColumn(c, vals)
		case KindString:
			vals := make([]string, f.rows)
			copy(vals, f.strs[c])
			out.AddStringColumn(c, vals)
		case KindBool:
			vals := make([]bool, f.rows)
			copy(vals, f.bools[c])
			out.AddBoolColumn(c, vals)
		}
	}
	return out
}

// DropColumns returns a copy of the frame without the named columns.
// Names that are not present are ignored.
func (f *Frame) DropColumns(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	out := NewFrame(f.rows)
	for _, c := range f.cols {
		if drop[c] {
			continue
		}
		switch f.kinds[c] {
		case KindNumeric:
			vals := make([]float64, f.rows)
			copy(vals, f.nums[c])
			out.AddNumericColumn(c, vals)
		case KindTime:
			vals := make([]time.Time, f.rows)
			copy(vals, f.times[c])
			out.AddTimeColumn(c, vals)
		case KindString:
			vals := make([]string, f.rows)
			copy(vals, f.strs[c])
			out.AddStringColumn(c, vals)
		case KindBool:
			vals := make([]bool, f.rows)
			copy(vals, f.bools[c])
			out.AddBoolColumn(c, vals)
		}
	}
	return out
}

// FilterRows returns a new frame holding only the rows where keep is true.
func (f *Frame) FilterRows(keep []bool) (*Frame, error) {
	if len(keep) != f.rows {
		return nil, errors.NewValidationError("filter mask length does not match frame row count")
	}

	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}

	out := NewFrame(n)
	for _, c := range f.cols {
		switch f.kinds[c] {
		case KindNumeric:
			src := f.nums[c]
			vals := make([]float64, 0, n)
			for i, k := range keep {
				if k {
					vals = append(vals, src[i])
				}
			}
			out.AddNumericColumn(c, vals)
		case KindTime:
			src := f.times[c]
			vals := make([]time.Time, 0, n)
			for i, k := range keep {
				if k {
					vals = append(vals, src[i])
				}
			}
			out.AddTimeColumn(c, vals)
		case KindString:
			src := f.strs[c]
			vals := make([]string, 0, n)
			for i, k := range keep {
				if k {
					vals = append(vals, src[i])
				}
			}
			out.AddStringColumn(c, vals)
		case KindBool:
			src := f.bools[c]
			vals := make([]bool, 0, n)
			for i, k := range keep {
				if k {
					vals = append(vals, src[i])
				}
			}
			out.AddBoolColumn(c, vals)
		}
	}
	return out, nil
}

// Concat concatenates frames with identical schemas into a single frame.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return NewFrame(0), nil
	}

	first := frames[0]
	total := 0
	for _, f := range frames {
		if len(f.cols) != len(first.cols) {
			return nil, errors.NewSchemaError("cannot concatenate frames with different column sets", nil)
		}
		for i, c := range f.cols {
			if c != first.cols[i] || f.kinds[c] != first.kinds[c] {
				return nil, errors.NewSchemaError("cannot concatenate frames with different column sets", nil).
					WithContext("column", c)
			}
		}
		total += f.rows
	}

	out := NewFrame(total)
	for _, c := range first.cols {
		switch first.kinds[c] {
		case KindNumeric:
			vals := make([]float64, 0, total)
			for _, f := range frames {
				vals = append(vals, f.nums[c]...)
			}
			out.AddNumericColumn(c, vals)
		case KindTime:
			vals := make([]time.Time, 0, total)
			for _, f := range frames {
				vals = append(vals, f.times[c]...)
			}
			out.AddTimeColumn(c, vals)
		case KindString:
			vals := make([]string, 0, total)
			for _, f := range frames {
				vals = append(vals, f.strs[c]...)
			}
			out.AddStringColumn(c, vals)
		case KindBool:
			vals := make([]bool, 0, total)
			for _, f := range frames {
				vals = append(vals, f.bools[c]...)
			}
			out.AddBoolColumn(c, vals)
		}
	}
	return out, nil
}

// Info returns row/column counts, numeric columns, the timestamp range and
// an estimate of the in-memory size.
func (f *Frame) Info() domain.DatasetInfo {
	info := domain.DatasetInfo{
		Rows:           f.rows,
		Columns:        f.Columns(),
		NumericColumns: f.NumericColumns(),
	}

	if tsCol, ok := f.TimestampColumn(); ok && f.rows > 0 {
		ts := f.times[tsCol]
		minTS, maxTS := ts[0], ts[0]
		for _, t := range ts[1:] {
			if t.Before(minTS) {
				minTS = t
			}
			if t.After(maxTS) {
				maxTS = t
			}
		}
		info.MinTimestamp = minTS
		info.MaxTimestamp = maxTS
	}

	var bytes int64
	for _, c := range f.cols {
		switch f.kinds[c] {
		case KindNumeric:
			bytes += int64(f.rows) * 8
		case KindTime:
			bytes += int64(f.rows) * 24
		case KindBool:
			bytes += int64(f.rows)
		case KindString:
			for _, s := range f.strs[c] {
				bytes += int64(len(s)) + 16
			}
		}
	}
	info.MemoryBytes = bytes

	return info
}
