package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/logtree"
	"github.com/lixenwraith/logtree/formatter"
)

// keyValuePattern matches "key=%v" or "key: %v"
var keyValuePattern = regexp.MustCompile(`(\w+)\s*[:=]\s*%[vsdqxXeEfFgGpbcUt]`)

// verbPattern matches any single formatting verb, including "%%"
var verbPattern = regexp.MustCompile(`%[-+# 0-9.*]*[vsdqxXeEfFgGpbcUtT%]`)

// parseFormat turns a printf-style format whose verbs all follow a key into
// a {} message template with the args kept as typed params. Any other format
// is rendered eagerly and returned without params.
func parseFormat(format string, args []any) (string, []any) {
	matches := keyValuePattern.FindAllStringIndex(format, -1)
	verbs := 0
	for _, v := range verbPattern.FindAllString(format, -1) {
		if v != "%%" {
			verbs++
		}
	}
	if len(matches) == 0 || len(matches) != len(args) || verbs != len(matches) {
		// Fallback to simple message if pattern doesn't match
		return fmt.Sprintf(format, args...), nil
	}

	var sb strings.Builder
	lastEnd := 0
	for _, m := range matches {
		// verb is the last two bytes of the match
		sb.WriteString(strings.ReplaceAll(format[lastEnd:m[1]-2], "%%", "%"))
		sb.WriteString(formatter.Placeholder)
		lastEnd = m[1]
	}
	sb.WriteString(strings.ReplaceAll(format[lastEnd:], "%%", "%"))

	params := make([]any, len(args))
	copy(params, args)
	return sb.String(), params
}

var _ logging.Logger = (*StructuredGnetAdapter)(nil)

// StructuredGnetAdapter keeps the values of "key=%v" pairs as record params
type StructuredGnetAdapter struct {
	*GnetAdapter
	extractFields bool
}

// NewStructuredGnetAdapter creates a gnet adapter with structured field extraction
func NewStructuredGnetAdapter(logger *logtree.Logger, opts ...GnetOption) *StructuredGnetAdapter {
	return &StructuredGnetAdapter{
		GnetAdapter:   NewGnetAdapter(logger, opts...),
		extractFields: true,
	}
}

func (a *StructuredGnetAdapter) logf(level logging.Level, format string, args []any) {
	if !a.extractFields {
		a.GnetAdapter.logf(level, format, args)
		return
	}
	lvl := FromGnetLevel(level)
	if !a.logger.IsLoggable(lvl) {
		return
	}
	msg, params := parseFormat(format, args)
	a.logger.LogAt(lvl, msg, params...)
}

func (a *StructuredGnetAdapter) Debugf(format string, args ...any) {
	a.logf(logging.DebugLevel, format, args)
}

func (a *StructuredGnetAdapter) Infof(format string, args ...any) {
	a.logf(logging.InfoLevel, format, args)
}

func (a *StructuredGnetAdapter) Warnf(format string, args ...any) {
	a.logf(logging.WarnLevel, format, args)
}

func (a *StructuredGnetAdapter) Errorf(format string, args ...any) {
	a.logf(logging.ErrorLevel, format, args)
}
