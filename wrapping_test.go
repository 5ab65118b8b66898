package logtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/logtree/sanitizer"
)

func TestSanitizingHandler(t *testing.T) {
	tests := []struct {
		name    string
		policy  sanitizer.PolicyPreset
		msg     string
		param   string
		wantMsg string
		wantArg string
	}{
		{"single folds lines", sanitizer.PolicySingle, "a\nb {}", "c\r\nd", "a b {}", "c  d"},
		{"shell strips", sanitizer.PolicyShell, "rm -rf; ls", "$(id)", "rm-rfls", "id"},
		{"raw passes", sanitizer.PolicyRaw, "a\nb", "x;y", "a\nb", "x;y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := newRecorder("inner")
			h := NewSanitizingHandler()
			h.SetInner(inner)
			h.SetPolicy(tt.policy)

			r := NewRecord(LevelInfo, tt.msg, tt.param, 7)
			h.Publish(r)

			got := inner.Records()
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantMsg, got[0].Message)
			assert.Equal(t, []any{tt.wantArg, 7}, got[0].Params)

			// the caller's record is untouched
			assert.Equal(t, tt.msg, r.Message)
			assert.Equal(t, tt.param, r.Params[0])
		})
	}
}

func TestSanitizingHandlerInner(t *testing.T) {
	h := NewSanitizingHandler()
	assert.Equal(t, "console", h.Inner().Kind(), "console by default")

	inner := newRecorder("inner")
	h.SetInner(inner)
	h.SetInner(nil)
	assert.Same(t, inner, h.Inner(), "nil is ignored")

	inner.SetLevel(LevelWarning)
	h.Publish(NewRecord(LevelInfo, "below inner level"))
	assert.Empty(t, inner.Records())

	require.NoError(t, h.Close())
	assert.Equal(t, 1, inner.Closes())
}

func TestSanitizingHandlerEquality(t *testing.T) {
	a := NewSanitizingHandler()
	b := NewSanitizingHandler()
	b.SetInner(newRecorder("other"))
	assert.True(t, Equal(a, b), "inner handler is not compared")

	b.SetPolicy(sanitizer.PolicyJSON)
	assert.False(t, Equal(a, b))
	assert.Equal(t, sanitizer.PolicyJSON, b.Policy())
}
