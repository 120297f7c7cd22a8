// Package validation checks raw source files before the pipeline spends
// time parsing them.
package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"solarcli/internal/errors"
)

// supportedExtensions are the source formats the loader can read.
var supportedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".xlsx": true,
}

// FileValidator validates source files and directories for the pipeline.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a file validator.
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{logger: logger}
}

// ValidateSourceFile checks that a raw site file exists, is a regular
// non-empty file and has a supported extension.
func (v *FileValidator) ValidateSourceFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError(fmt.Sprintf("source file %s", path), err)
		}
		return errors.NewStorageError("failed to stat source file", err).WithContext("path", path)
	}

	if info.IsDir() {
		return errors.NewValidationError(fmt.Sprintf("source path %s is a directory", path))
	}
	if info.Size() == 0 {
		return errors.NewValidationError(fmt.Sprintf("source file %s is empty", path))
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return errors.NewValidationError(
			fmt.Sprintf("unsupported source format %q, expected .csv, .txt or .xlsx", ext))
	}

	v.logger.Debug("source file validated",
		slog.String("path", path),
		slog.Int64("size_bytes", info.Size()))

	return nil
}

// ValidateOutputDirectory checks that the output directory exists or can be
// created and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewStorageError("failed to create output directory", err).WithContext("dir", dir)
	}

	probe := filepath.Join(dir, ".write_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return errors.NewStorageError("output directory is not writable", err).WithContext("dir", dir)
	}
	os.Remove(probe)

	return nil
}
