package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.txt", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	paths, err := collectPaths(dir, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.txt")}, paths)

	_, err = collectPaths("", nil)
	assert.Error(t, err)
	_, err = collectPaths(filepath.Join(dir, "missing.csv"), nil)
	assert.Error(t, err)
}

func TestImportFileDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed_sensor_data_2025-06-05 h run 2.csv")
	content := "timestamp,device_name,sensor_type,p1\n" +
		"2025-06-05T18:12:11.500Z,solesenseL,pressure,4\n" +
		"bad\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	stored, skipped, err := importFile(context.Background(), nil, path, options{
		kind:     kindInsole,
		location: time.UTC,
		dryRun:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, 1, skipped)
}
