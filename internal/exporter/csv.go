package exporter

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"solarcli/internal/dataset"
	"solarcli/internal/errors"
)

// DefaultTempColumns are the transient working columns stripped from a frame
// before it is persisted. Absent names are ignored.
var DefaultTempColumns = []string{"Hour", "Month", "Day", "WD_bin", "Outlier_Flag"}

// CSVExporter writes cleaned frames to CSV files that round-trip through the
// loader: numeric cells use the shortest representation that re-parses to
// the same float64, nulls become empty cells.
type CSVExporter struct {
	logger          *slog.Logger
	timestampLayout string
}

// NewCSVExporter creates an exporter writing timestamps with the given
// layout. An empty layout falls back to the loader's default.
func NewCSVExporter(logger *slog.Logger, timestampLayout string) *CSVExporter {
	if logger == nil {
		logger = slog.Default()
	}
	if timestampLayout == "" {
		timestampLayout = dataset.DefaultTimestampLayout
	}
	return &CSVExporter{logger: logger, timestampLayout: timestampLayout}
}

// RemoveTempColumns returns a copy of the frame without the named working
// columns (DefaultTempColumns when names is empty). Names not present are
// ignored.
func RemoveTempColumns(frame *dataset.Frame, names ...string) *dataset.Frame {
	if len(names) == 0 {
		names = DefaultTempColumns
	}
	return frame.DropColumns(names...)
}

// Export writes the frame to path, creating parent directories as needed.
// An existing file is overwritten.
func (e *CSVExporter) Export(ctx context.Context, frame *dataset.Frame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create export directory", err).WithContext("path", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create export file", err).WithContext("path", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	columns := frame.Columns()
	if err := writer.Write(columns); err != nil {
		return errors.NewStorageError("failed to write header", err).WithContext("path", path)
	}

	record := make([]string, len(columns))
	for row := 0; row < frame.Rows(); row++ {
		for i, col := range columns {
			record[i] = e.cell(frame, col, row)
		}
		if err := writer.Write(record); err != nil {
			return errors.NewStorageError("failed to write record", err).
				WithContext("path", path).
				WithContext("row", row)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.NewStorageError("failed to flush export file", err).WithContext("path", path)
	}

	e.logger.InfoContext(ctx, "exported frame",
		slog.String("path", path),
		slog.Int("rows", frame.Rows()),
		slog.Int("columns", len(columns)))

	return nil
}

// cell formats one value for CSV output.
func (e *CSVExporter) cell(frame *dataset.Frame, col string, row int) string {
	kind, _ := frame.Kind(col)
	switch kind {
	case dataset.KindNumeric:
		vals, _ := frame.Numeric(col)
		v := vals[row]
		if dataset.IsMissing(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case dataset.KindTime:
		vals, _ := frame.Times(col)
		return vals[row].Format(e.timestampLayout)
	case dataset.KindBool:
		vals, _ := frame.Bools(col)
		return strconv.FormatBool(vals[row])
	default:
		vals, _ := frame.Strings(col)
		return vals[row]
	}
}
