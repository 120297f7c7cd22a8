package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarcli/internal/errors"
)

func TestValidateSourceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.csv")
	require.NoError(t, os.WriteFile(path, []byte("Timestamp,GHI\n"), 0644))

	v := NewFileValidator(nil)
	assert.NoError(t, v.ValidateSourceFile(path))
}

func TestValidateSourceFileMissing(t *testing.T) {
	v := NewFileValidator(nil)
	err := v.ValidateSourceFile(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestValidateSourceFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	v := NewFileValidator(nil)
	err := v.ValidateSourceFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestValidateSourceFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.parquet")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	v := NewFileValidator(nil)
	err := v.ValidateSourceFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)
	dir := filepath.Join(t.TempDir(), "clean")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
