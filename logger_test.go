package logtree

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerThreshold(t *testing.T) {
	h := newRecorder("a")
	l := NewLogger("app", LevelWarning)
	l.AddHandler(h)

	l.Info("ignored")
	assert.Empty(t, h.Records())
	assert.Equal(t, 0, h.SetUps(), "no handler work for filtered records")

	l.Warning("kept {}", 1)
	l.Severe("kept too")
	recs := h.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "app", recs[0].LoggerName)
	assert.Equal(t, []any{1}, recs[0].Params)

	l.SetLevel(LevelOff)
	l.Severe("nothing passes OFF")
	assert.Len(t, h.Records(), 2)

	l.SetLevel(LevelFinest)
	l.Log(&Record{Level: LevelOff, Message: "OFF records never pass"})
	assert.Len(t, h.Records(), 2)
}

func TestLoggerSugar(t *testing.T) {
	h := newRecorder("a")
	l := NewLogger("x", LevelFinest)
	l.AddHandler(h)

	l.Severe("s")
	l.Warning("w")
	l.Info("i")
	l.Config("c")
	l.Fine("f")
	l.Finer("fr")
	l.Finest("fst")
	l.LogAt(Level(850), "custom")

	var got []Level
	for _, r := range h.Records() {
		got = append(got, r.Level)
	}
	assert.Equal(t, []Level{LevelSevere, LevelWarning, LevelInfo, LevelConfig, LevelFine, LevelFiner, LevelFinest, Level(850)}, got)
}

func TestLoggerHandlerSet(t *testing.T) {
	l := NewLogger("x", LevelInfo)
	assert.True(t, l.AddHandler(newRecorder("a")))
	assert.False(t, l.AddHandler(newRecorder("a")), "equal handler is not added twice")
	assert.True(t, l.AddHandler(newRecorder("b")))
	assert.False(t, l.AddHandler(nil))
	assert.Len(t, l.Handlers(), 2)

	assert.True(t, l.RemoveHandler(newRecorder("a")))
	assert.False(t, l.RemoveHandler(newRecorder("a")))
	assert.Len(t, l.Handlers(), 1)
}

func TestLoggerRespectsHandlerLevel(t *testing.T) {
	quiet, loud := newRecorder("quiet"), newRecorder("loud")
	quiet.SetLevel(LevelSevere)
	l := NewLogger("x", LevelFinest)
	l.AddHandler(quiet)
	l.AddHandler(loud)

	l.Info("m")
	assert.Empty(t, quiet.Records())
	assert.Len(t, loud.Records(), 1)
}

func TestLoggerRecoversHandlerPanic(t *testing.T) {
	errs := captureErrors(t)
	bad, good := newRecorder("bad"), newRecorder("good")
	bad.panics = true
	l := NewLogger("x", LevelFinest)
	l.AddHandler(bad)
	l.AddHandler(good)

	assert.NotPanics(t, func() { l.Info("m") })
	assert.Len(t, good.Records(), 1)
	assert.Contains(t, errs.String(), "panicked")
}

func TestLogErrorAndHandleError(t *testing.T) {
	h := newRecorder("a")
	l := NewLogger("x", LevelFinest)
	l.AddHandler(h)

	boom := errors.New("boom")
	l.LogError(LevelWarning, "failed", boom)
	recs := h.Records()
	require.Len(t, recs, 1)
	assert.ErrorIs(t, recs[0].Thrown, boom)

	out := l.HandleError("operation failed", boom, true)
	assert.True(t, strings.HasPrefix(out, "operation failed\nboom"))
	assert.Contains(t, out, "\nat ")
	assert.Contains(t, out, "TestLogErrorAndHandleError")
	assert.Len(t, h.Records(), 1, "silent does not log")

	l.HandleError("operation failed", boom, false)
	recs = h.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, LevelSevere, recs[1].Level)
	assert.ErrorIs(t, recs[1].Thrown, boom)
}
