package logtree

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRecord(level Level, name, msg string, params ...any) *Record {
	r := NewRecord(level, msg, params...)
	r.LoggerName = name
	r.Time = time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
	return r
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler()
	h.SetOutput("buffer", &buf)

	h.Publish(fixedRecord(LevelInfo, "app", "a {}\nb", 1))
	assert.Equal(t, "[app-INFO/20240102-030405.000] a 1\n[app-INFO/20240102-030405.000] b\n", buf.String())

	buf.Reset()
	h.Publish(fixedRecord(LevelWarning, "", "no prefix"))
	assert.Equal(t, "no prefix\n", buf.String())

	buf.Reset()
	r := fixedRecord(LevelSevere, "app", "failed")
	r.Thrown = errors.New("disk gone")
	h.Publish(r)
	assert.Equal(t, "[app-SEVERE/20240102-030405.000] failed\n[app-SEVERE/20240102-030405.000] disk gone\n", buf.String())
}

func TestConsoleDateFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler()
	h.SetOutput("buffer", &buf)
	h.SetDateFormat("2006")

	h.Publish(fixedRecord(LevelInfo, "app", "m"))
	assert.Equal(t, "[app-INFO/2024] m\n", buf.String())
}

func TestConsoleColor(t *testing.T) {
	var buf bytes.Buffer
	h := NewConsoleHandler()
	h.SetOutput("buffer", &buf)
	h.SetColor(true)

	h.Publish(fixedRecord(LevelSevere, "app", "red"))
	assert.Contains(t, buf.String(), "\x1b[31m")

	buf.Reset()
	h.SetColor(false)
	h.Publish(fixedRecord(LevelSevere, "app", "plain"))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestConsoleTarget(t *testing.T) {
	h := NewConsoleHandler()
	assert.Equal(t, TargetStderr, h.Target())

	require.NoError(t, h.SetTarget("STDOUT"))
	assert.Equal(t, TargetStdout, h.Target())
	assert.False(t, Equal(h, NewConsoleHandler()))

	assert.Error(t, h.SetTarget("printer"))
	assert.Equal(t, TargetStdout, h.Target())
}
