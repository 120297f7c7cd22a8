package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"solarcli/internal/errors"
)

// DefaultTimestampColumn is the date-time column every source carries unless
// configured otherwise.
const DefaultTimestampColumn = "Timestamp"

// DefaultTimestampLayout is the reference layout used when a source does not
// declare its own. One explicit layout per source; the loader never guesses
// between ambiguous day/month orderings.
const DefaultTimestampLayout = "2006-01-02 15:04:05"

// Loader reads a delimited text or XLSX source into a Frame, parsing the
// timestamp column and inferring column types from the data.
type Loader struct {
	logger          *slog.Logger
	timestampColumn string
	timestampLayout string
}

// NewLoader creates a loader for sources using the given timestamp column
// and layout. Empty arguments fall back to the defaults.
func NewLoader(logger *slog.Logger, timestampColumn, timestampLayout string) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if timestampColumn == "" {
		timestampColumn = DefaultTimestampColumn
	}
	if timestampLayout == "" {
		timestampLayout = DefaultTimestampLayout
	}
	return &Loader{
		logger:          logger,
		timestampColumn: timestampColumn,
		timestampLayout: timestampLayout,
	}
}

// Load reads the source file into a Frame. The timestamp column must be
// present in the header and every one of its cells must parse with the
// configured layout; an unparsable timestamp fails the load rather than
// silently becoming null.
func (l *Loader) Load(ctx context.Context, source string) (*Frame, error) {
	if _, err := os.Stat(source); err != nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("data file %s", source), err)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(source)) {
	case ".xlsx":
		rows, err = readXLSX(source)
	default:
		rows, err = readCSV(source)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.NewSchemaError("source has no header row", nil).WithContext("source", source)
	}

	header := rows[0]
	records := rows[1:]

	frame, err := l.buildFrame(header, records)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "loaded data file",
		slog.String("source", source),
		slog.Int("rows", frame.Rows()),
		slog.Int("columns", len(frame.Columns())))

	return frame, nil
}

// readCSV reads all records of a delimited text file including the header.
func readCSV(source string) ([][]string, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, errors.NewStorageError("failed to open data file", err).WithContext("source", source)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to read CSV data", err).WithContext("source", source)
	}
	return rows, nil
}

// readXLSX reads the first sheet of an Excel workbook.
func readXLSX(source string) ([][]string, error) {
	f, err := excelize.OpenFile(source)
	if err != nil {
		return nil, errors.NewParsingError("failed to open workbook", err).WithContext("source", source)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewSchemaError("workbook has no sheets", nil).WithContext("source", source)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.NewParsingError("failed to read sheet rows", err).WithContext("source", source)
	}

	// GetRows trims trailing empty cells per row; pad to header width so the
	// column-wise pass sees a rectangular table.
	if len(rows) > 0 {
		width := len(rows[0])
		for i := range rows {
			for len(rows[i]) < width {
				rows[i] = append(rows[i], "")
			}
		}
	}
	return rows, nil
}

// buildFrame converts raw string records into typed columns.
func (l *Loader) buildFrame(header []string, records [][]string) (*Frame, error) {
	tsIndex := -1
	for i, name := range header {
		if name == l.timestampColumn {
			tsIndex = i
			break
		}
	}
	if tsIndex < 0 {
		return nil, errors.NewSchemaError(
			fmt.Sprintf("timestamp column %q not found in header", l.timestampColumn), nil)
	}

	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, errors.NewParsingError("row has wrong number of fields", nil).
				WithContext("row", i+2).
				WithContext("fields", len(rec)).
				WithContext("expected", len(header))
		}
	}

	frame := NewFrame(len(records))

	for col, name := range header {
		if col == tsIndex {
			ts := make([]time.Time, len(records))
			for i, rec := range records {
				t, err := time.Parse(l.timestampLayout, strings.TrimSpace(rec[col]))
				if err != nil {
					return nil, errors.NewParsingError("unparsable timestamp value", err).
						WithContext("row", i+2).
						WithContext("value", rec[col]).
						WithContext("layout", l.timestampLayout)
				}
				ts[i] = t
			}
			if err := frame.AddTimeColumn(name, ts); err != nil {
				return nil, err
			}
			continue
		}

		if err := addInferredColumn(frame, name, col, records); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// addInferredColumn types a non-timestamp column from its values: bool when
// every cell is true/false, numeric when every non-empty cell parses as a
// float (empty cells become nulls), string otherwise. An all-empty column is
// numeric with every value null, so imputation sees it as an empty series.
func addInferredColumn(frame *Frame, name string, col int, records [][]string) error {
	isBool := len(records) > 0
	isNumeric := true
	for _, rec := range records {
		cell := strings.TrimSpace(rec[col])
		if cell != "true" && cell != "false" {
			isBool = false
		}
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			isNumeric = false
		}
		if !isBool && !isNumeric {
			break
		}
	}

	switch {
	case isBool:
		vals := make([]bool, len(records))
		for i, rec := range records {
			vals[i] = strings.TrimSpace(rec[col]) == "true"
		}
		return frame.AddBoolColumn(name, vals)
	case isNumeric:
		vals := make([]float64, len(records))
		for i, rec := range records {
			cell := strings.TrimSpace(rec[col])
			if cell == "" {
				vals[i] = Missing
				continue
			}
			v, _ := strconv.ParseFloat(cell, 64)
			vals[i] = v
		}
		return frame.AddNumericColumn(name, vals)
	default:
		vals := make([]string, len(records))
		for i, rec := range records {
			vals[i] = rec[col]
		}
		return frame.AddStringColumn(name, vals)
	}
}
