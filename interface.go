package logtree

import (
	"strings"
)

// LogAt logs msg at level with {} placeholders filled from params
func (l *Logger) LogAt(level Level, msg string, params ...any) {
	if !l.IsLoggable(level) {
		return
	}
	l.Log(NewRecord(level, msg, params...))
}

// LogError logs msg at level with err attached
func (l *Logger) LogError(level Level, msg string, err error) {
	if !l.IsLoggable(level) {
		return
	}
	r := NewRecord(level, msg)
	r.Thrown = err
	l.Log(r)
}

// Severe logs at SEVERE
func (l *Logger) Severe(msg string, params ...any) {
	l.LogAt(LevelSevere, msg, params...)
}

// Warning logs at WARNING
func (l *Logger) Warning(msg string, params ...any) {
	l.LogAt(LevelWarning, msg, params...)
}

// Info logs at INFO
func (l *Logger) Info(msg string, params ...any) {
	l.LogAt(LevelInfo, msg, params...)
}

// Config logs at CONFIG
func (l *Logger) Config(msg string, params ...any) {
	l.LogAt(LevelConfig, msg, params...)
}

// Fine logs at FINE
func (l *Logger) Fine(msg string, params ...any) {
	l.LogAt(LevelFine, msg, params...)
}

// Finer logs at FINER
func (l *Logger) Finer(msg string, params ...any) {
	l.LogAt(LevelFiner, msg, params...)
}

// Finest logs at FINEST
func (l *Logger) Finest(msg string, params ...any) {
	l.LogAt(LevelFinest, msg, params...)
}

// HandleError renders msg followed by the error and its stack. Unless silent,
// the result is also logged at SEVERE with err attached.
// Errors without a stack of their own get the caller chain instead.
func (l *Logger) HandleError(msg string, err error, silent bool) string {
	var sb strings.Builder
	sb.WriteString(msg)
	if err != nil {
		detail := ErrorString(err, 0)
		sb.WriteByte('\n')
		sb.WriteString(detail)
		if detail == err.Error() {
			if trace := callerTrace(1, maxTraceDepth); trace != "" {
				sb.WriteString("\nat ")
				sb.WriteString(trace)
			}
		}
	}
	result := sb.String()
	if !silent {
		l.LogError(LevelSevere, msg, err)
	}
	return result
}
