package exporter

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"solarcli/internal/errors"
	"solarcli/pkg/contracts/domain"
)

// WriteReport persists a cleaning report as indented JSON next to the
// exported data files.
func (e *CSVExporter) WriteReport(ctx context.Context, report domain.CleaningReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create report directory", err).WithContext("path", path)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to marshal cleaning report", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewStorageError("failed to write cleaning report", err).WithContext("path", path)
	}

	e.logger.InfoContext(ctx, "wrote cleaning report",
		slog.String("path", path),
		slog.Int("total_outliers", report.TotalOutliers))

	return nil
}
