package logtree

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHandlerEquality(t *testing.T) {
	dir := t.TempDir()
	a := NewFileHandler(dir + "/sub/../app.log")
	b := NewFileHandler(filepath.Join(dir, "app.log"))
	c := NewFileHandler(filepath.Join(dir, "other.log"))

	assert.True(t, Equal(a, b), "paths are compared after cleaning")
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, NewRotatingFileHandler(filepath.Join(dir, "app.log"))))
}

func TestFileHandlerWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "app.log")
	h := NewFileHandler(path)

	h.Publish(fixedRecord(LevelInfo, "svc", "first"))
	h.Publish(fixedRecord(LevelInfo, "svc", "second"))
	require.NoError(t, h.Flush())
	require.NoError(t, h.Close())
	assert.Equal(t, path, h.ResolvedPath())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "] second"))

	// reopened in append mode after close
	h.Publish(fixedRecord(LevelInfo, "svc", "third"))
	require.NoError(t, h.Close())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestFileHandlerDirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	h := NewFileHandler(dir)
	h.Publish(fixedRecord(LevelInfo, "svc", "in dir"))
	require.NoError(t, h.Close())

	data, err := os.ReadFile(filepath.Join(dir, defaultFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "in dir")
}

func TestFileHandlerJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	h := NewFileHandler(path)
	require.NoError(t, h.SetFormat("json"))
	assert.Error(t, h.SetFormat("xml"))
	assert.Equal(t, "json", h.Format())

	h.Publish(fixedRecord(LevelWarning, "svc", "value {}", 7))
	require.NoError(t, h.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "WARNING", got["level"])
	assert.Equal(t, "svc", got["logger"])
	assert.Equal(t, "value {}", got["message"])
	assert.Equal(t, []any{float64(7)}, got["params"])
}

func TestFileHandlerSetPathReopens(t *testing.T) {
	dir := t.TempDir()
	h := NewFileHandler(filepath.Join(dir, "one.log"))
	h.Publish(fixedRecord(LevelInfo, "svc", "to one"))

	h.SetPath(filepath.Join(dir, "two.log"))
	h.Publish(fixedRecord(LevelInfo, "svc", "to two"))
	require.NoError(t, h.Close())

	one, err := os.ReadFile(filepath.Join(dir, "one.log"))
	require.NoError(t, err)
	two, err := os.ReadFile(filepath.Join(dir, "two.log"))
	require.NoError(t, err)
	assert.Contains(t, string(one), "to one")
	assert.NotContains(t, string(one), "to two")
	assert.Contains(t, string(two), "to two")
}

func TestRotatingFileHandlerFreshFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	h := NewRotatingFileHandler(path)
	h.Publish(fixedRecord(LevelInfo, "svc", "this run"))
	require.NoError(t, h.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previous run")
	assert.Contains(t, string(data), "this run")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the old file is kept as a backup")
}

func TestRotatingFileHandlerEquality(t *testing.T) {
	dir := t.TempDir()
	a := NewRotatingFileHandler(filepath.Join(dir, "app.log"))
	b := NewRotatingFileHandler(filepath.Join(dir, "app.log"))
	assert.True(t, Equal(a, b))

	b.SetRotation(RotationConfig{MaxSizeMB: 1, MaxBackups: 9})
	assert.False(t, Equal(a, b))
}
