package compat

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/panjf2000/gnet/v2/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logtree"
)

// createTestCompatBuilder creates a registry writing JSON lines to a temp file
func createTestCompatBuilder(t *testing.T) (*Builder, *logtree.Registry, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "app.log")
	reg, err := logtree.NewBuilder().
		LevelString("ALL").
		Console("none").
		File(logPath).
		FileFormat("json").
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	builder := NewBuilder().WithRegistry(reg)
	return builder, reg, logPath
}

// readLogFile flushes reg and returns the decoded JSON lines of path
func readLogFile(t *testing.T, reg *logtree.Registry, path string) []map[string]any {
	t.Helper()
	require.NoError(t, reg.Flush())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry), "Failed to parse log line: %s", scanner.Text())
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

// TestCompatBuilder verifies the compatibility builder can be initialized correctly
func TestCompatBuilder(t *testing.T) {
	t.Run("with registry", func(t *testing.T) {
		builder, reg, _ := createTestCompatBuilder(t)

		gnetAdapter, err := builder.BuildGnet()
		require.NoError(t, err)
		assert.Same(t, reg.GetLogger(GnetLoggerName), gnetAdapter.logger)

		fasthttpAdapter, err := builder.BuildFastHTTP()
		require.NoError(t, err)
		assert.Equal(t, FastHTTPLoggerName, fasthttpAdapter.logger.Name())
	})

	t.Run("with config", func(t *testing.T) {
		cfg := logtree.DefaultConfig()
		cfg.ConsoleTarget = "none"

		builder := NewBuilder().WithConfig(cfg)
		adapter, err := builder.BuildFastHTTP()
		require.NoError(t, err)
		assert.NotNil(t, adapter)

		reg1, _ := builder.GetRegistry()
		reg2, _ := builder.GetRegistry()
		assert.Same(t, reg1, reg2, "registry is cached")
		assert.NotSame(t, logtree.Default(), reg1)
	})

	t.Run("with logger", func(t *testing.T) {
		_, reg, _ := createTestCompatBuilder(t)
		l := reg.GetLogger("shared")

		builder := NewBuilder().WithRegistry(reg).WithLogger(l)
		g, err := builder.BuildGnet()
		require.NoError(t, err)
		f, err := builder.BuildFastHTTP()
		require.NoError(t, err)
		assert.Same(t, l, g.logger)
		assert.Same(t, l, f.logger)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := NewBuilder().WithRegistry(nil).BuildGnet()
		assert.Error(t, err)

		_, err = NewBuilder().WithLogger(nil).BuildFastHTTP()
		assert.Error(t, err)

		cfg := logtree.DefaultConfig()
		cfg.FileFormat = "xml"
		_, err = NewBuilder().WithConfig(cfg).BuildGnet()
		assert.Error(t, err)
	})
}

// TestGnetAdapter tests the gnet adapter's logging output and levels
func TestGnetAdapter(t *testing.T) {
	builder, reg, logPath := createTestCompatBuilder(t)

	var fatalMsg string
	adapter, err := builder.BuildGnet(WithFatalHandler(func(msg string) {
		fatalMsg = msg
	}))
	require.NoError(t, err)

	adapter.Debugf("gnet debug id=%d", 1)
	adapter.Infof("gnet info id=%d", 2)
	adapter.Warnf("gnet warn id=%d", 3)
	adapter.Errorf("gnet error id=%d", 4)
	adapter.Fatalf("gnet fatal id=%d", 5)

	entries := readLogFile(t, reg, logPath)
	expected := []struct{ level, msg string }{
		{"FINE", "gnet debug id=1"},
		{"INFO", "gnet info id=2"},
		{"WARNING", "gnet warn id=3"},
		{"SEVERE", "gnet error id=4"},
		{"SEVERE", "gnet fatal id=5"},
	}
	require.Len(t, entries, len(expected))
	for i, entry := range entries {
		assert.Equal(t, expected[i].level, entry["level"])
		assert.Equal(t, expected[i].msg, entry["message"])
		assert.Equal(t, "gnet", entry["logger"])
	}
	assert.Equal(t, "gnet fatal id=5", fatalMsg, "Custom fatal handler should have been called")
}

func TestFromGnetLevel(t *testing.T) {
	tests := []struct {
		in   logging.Level
		want logtree.Level
	}{
		{logging.DebugLevel - 1, logtree.LevelFinest},
		{logging.DebugLevel, logtree.LevelFine},
		{logging.InfoLevel, logtree.LevelInfo},
		{logging.WarnLevel, logtree.LevelWarning},
		{logging.ErrorLevel, logtree.LevelSevere},
		{logging.PanicLevel, logtree.LevelSevere},
		{logging.FatalLevel, logtree.LevelSevere},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromGnetLevel(tt.in), tt.in.String())
	}
}

// countingStringer records how often it is rendered
type countingStringer struct{ calls int }

func (c *countingStringer) String() string {
	c.calls++
	return "rendered"
}

func TestGnetAdapterSkipsFilteredLevels(t *testing.T) {
	builds := map[string]func(*Builder) (logging.Logger, error){
		"plain": func(b *Builder) (logging.Logger, error) {
			return b.BuildGnet()
		},
		"structured": func(b *Builder) (logging.Logger, error) {
			return b.BuildStructuredGnet()
		},
	}
	for name, build := range builds {
		t.Run(name, func(t *testing.T) {
			builder, reg, logPath := createTestCompatBuilder(t)
			adapter, err := build(builder)
			require.NoError(t, err)
			reg.GetLogger(GnetLoggerName).SetLevel(logtree.LevelInfo)

			arg := &countingStringer{}
			adapter.Debugf("engine tick value=%v", arg)
			assert.Zero(t, arg.calls, "filtered message must not be formatted")
			adapter.Infof("engine started value=%v", arg)

			entries := readLogFile(t, reg, logPath)
			require.Len(t, entries, 1)
			assert.Equal(t, "INFO", entries[0]["level"])
		})
	}
}

// TestStructuredGnetAdapter tests the gnet adapter with structured field extraction
func TestStructuredGnetAdapter(t *testing.T) {
	builder, reg, logPath := createTestCompatBuilder(t)

	adapter, err := builder.BuildStructuredGnet()
	require.NoError(t, err)

	adapter.Infof("request served status=%d client_ip=%s", 200, "127.0.0.1")
	adapter.Warnf("retrying after %dms", 50)

	entries := readLogFile(t, reg, logPath)
	require.Len(t, entries, 2)

	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "request served status={} client_ip={}", entries[0]["message"])
	assert.Equal(t, []any{200.0, "127.0.0.1"}, entries[0]["params"]) // JSON numbers are float64

	assert.Equal(t, "WARNING", entries[1]["level"])
	assert.Equal(t, "retrying after 50ms", entries[1]["message"])
	assert.NotContains(t, entries[1], "params")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name       string
		format     string
		args       []any
		wantMsg    string
		wantParams []any
	}{
		{"key value pairs", "conn closed fd=%d err: %v", []any{7, "eof"}, "conn closed fd={} err: {}", []any{7, "eof"}},
		{"no keys", "listening on %s", []any{":9000"}, "listening on :9000", nil},
		{"mixed", "id=%d from %s", []any{1, "x"}, "id=1 from x", nil},
		{"literal percent", "load=%v at 100%%", []any{0.5}, "load={} at 100%", []any{0.5}},
		{"flags fall back", "count=%05d", []any{3}, "count=00003", nil},
		{"missing args", "a=%d b=%d", []any{1}, "a=1 b=%!d(MISSING)", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, params := parseFormat(tt.format, tt.args)
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

// TestFastHTTPAdapter tests the fasthttp adapter's logging output and level detection
func TestFastHTTPAdapter(t *testing.T) {
	builder, reg, logPath := createTestCompatBuilder(t)

	adapter, err := builder.BuildFastHTTP()
	require.NoError(t, err)

	testMessages := []string{
		"this is some informational message",
		"a debug message for the developers",
		"warning: something might be wrong",
		"an error occurred while processing",
		"read timeout on idle connection",
	}
	for _, msg := range testMessages {
		adapter.Printf("%s", msg)
	}

	entries := readLogFile(t, reg, logPath)
	expectedLevels := []string{"INFO", "FINE", "WARNING", "SEVERE", "WARNING"}
	require.Len(t, entries, len(testMessages))
	for i, entry := range entries {
		assert.Equal(t, expectedLevels[i], entry["level"])
		assert.Equal(t, testMessages[i], entry["message"])
		assert.Equal(t, "fasthttp", entry["logger"])
	}
}

func TestFastHTTPAdapterOptions(t *testing.T) {
	builder, reg, logPath := createTestCompatBuilder(t)

	adapter, err := builder.BuildFastHTTP(
		WithDefaultLevel(logtree.LevelConfig),
		WithLevelDetector(func(msg string) logtree.Level {
			if msg == "loud" {
				return logtree.LevelSevere
			}
			return 0
		}),
	)
	require.NoError(t, err)

	adapter.Printf("quiet")
	adapter.Printf("loud")

	entries := readLogFile(t, reg, logPath)
	require.Len(t, entries, 2)
	assert.Equal(t, "CONFIG", entries[0]["level"])
	assert.Equal(t, "SEVERE", entries[1]["level"])
}
