// Package formatter renders log entries as prefixed text lines or JSON objects.
package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lixenwraith/logtree/sanitizer"
)

// DefaultTimestampFormat renders as yyyyMMdd-HHmmss.SSS
const DefaultTimestampFormat = "20060102-150405.000"

// Placeholder is replaced by parameters in order of appearance
const Placeholder = "{}"

// Entry is the formatter's view of a log record
type Entry struct {
	Logger  string
	Level   string
	Time    time.Time
	Message string
	Params  []any
	Thrown  error
}

// Formatter renders entries into a reused buffer; not safe for concurrent use
type Formatter struct {
	sanitizer       *sanitizer.Sanitizer
	format          string
	timestampFormat string
	buf             []byte
}

// New creates a txt formatter with an optional sanitizer
func New(s ...*sanitizer.Sanitizer) *Formatter {
	san := sanitizer.New()
	if len(s) > 0 && s[0] != nil {
		san = s[0]
	}
	return &Formatter{
		sanitizer:       san,
		format:          "txt",
		timestampFormat: DefaultTimestampFormat,
		buf:             make([]byte, 0, 512),
	}
}

// Type sets the output format, "txt" or "json"
func (f *Formatter) Type(format string) *Formatter {
	f.format = format
	return f
}

// TimestampFormat sets the time layout; empty keeps the current one
func (f *Formatter) TimestampFormat(layout string) *Formatter {
	if layout != "" {
		f.timestampFormat = layout
	}
	return f
}

// Format renders e. The returned slice is only valid until the next call.
func (f *Formatter) Format(e Entry) []byte {
	f.buf = f.buf[:0]
	if f.format == "json" {
		return f.formatJSON(e)
	}
	return f.formatTxt(e)
}

// Assemble substitutes params into msg and appends the thrown error
func (f *Formatter) Assemble(e Entry) string {
	se := sanitizer.NewSerializer("txt", nil)
	var sb strings.Builder
	rest := e.Message
	for _, p := range e.Params {
		i := strings.Index(rest, Placeholder)
		if i < 0 {
			break
		}
		sb.WriteString(rest[:i])
		var b []byte
		f.convertValue(&b, p, se)
		sb.Write(b)
		rest = rest[i+len(Placeholder):]
	}
	sb.WriteString(rest)
	if e.Thrown != nil {
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimRight(fmt.Sprintf("%+v", e.Thrown), "\n"))
	}
	return sb.String()
}

// formatTxt prefixes every line with [logger-LEVEL/time]; no prefix without a logger name
func (f *Formatter) formatTxt(e Entry) []byte {
	var prefix []byte
	if e.Logger != "" {
		prefix = append(prefix, '[')
		prefix = append(prefix, e.Logger...)
		prefix = append(prefix, '-')
		prefix = append(prefix, e.Level...)
		prefix = append(prefix, '/')
		prefix = e.Time.AppendFormat(prefix, f.timestampFormat)
		prefix = append(prefix, "] "...)
	}

	msg := f.sanitizer.Sanitize(f.Assemble(e))
	for _, line := range strings.Split(msg, "\n") {
		f.buf = append(f.buf, prefix...)
		f.buf = append(f.buf, line...)
		f.buf = append(f.buf, '\n')
	}
	return f.buf
}

func (f *Formatter) formatJSON(e Entry) []byte {
	se := sanitizer.NewSerializer("json", f.sanitizer)

	f.buf = append(f.buf, `{"time":"`...)
	f.buf = e.Time.AppendFormat(f.buf, f.timestampFormat)
	f.buf = append(f.buf, `","level":`...)
	se.WriteString(&f.buf, e.Level)
	if e.Logger != "" {
		f.buf = append(f.buf, `,"logger":`...)
		se.WriteString(&f.buf, e.Logger)
	}
	f.buf = append(f.buf, `,"message":`...)
	se.WriteString(&f.buf, f.sanitizer.Sanitize(e.Message))

	if len(e.Params) > 0 {
		f.buf = append(f.buf, `,"params":[`...)
		for i, p := range e.Params {
			if i > 0 {
				f.buf = append(f.buf, ',')
			}
			f.convertValue(&f.buf, p, se)
		}
		f.buf = append(f.buf, ']')
	}

	if e.Thrown != nil {
		f.buf = append(f.buf, `,"thrown":`...)
		se.WriteString(&f.buf, e.Thrown.Error())
		if full := fmt.Sprintf("%+v", e.Thrown); full != e.Thrown.Error() {
			f.buf = append(f.buf, `,"stack":`...)
			se.WriteString(&f.buf, full)
		}
	}

	f.buf = append(f.buf, '}', '\n')
	return f.buf
}

// convertValue writes v with the serializer; numbers and bools are written bare
func (f *Formatter) convertValue(buf *[]byte, v any, se *sanitizer.Serializer) {
	switch val := v.(type) {
	case string:
		se.WriteString(buf, val)
	case []byte:
		se.WriteString(buf, string(val))
	case int:
		*buf = strconv.AppendInt(*buf, int64(val), 10)
	case int32:
		*buf = strconv.AppendInt(*buf, int64(val), 10)
	case int64:
		*buf = strconv.AppendInt(*buf, val, 10)
	case uint:
		*buf = strconv.AppendUint(*buf, uint64(val), 10)
	case uint32:
		*buf = strconv.AppendUint(*buf, uint64(val), 10)
	case uint64:
		*buf = strconv.AppendUint(*buf, val, 10)
	case float32:
		*buf = strconv.AppendFloat(*buf, float64(val), 'g', -1, 32)
	case float64:
		*buf = strconv.AppendFloat(*buf, val, 'g', -1, 64)
	case bool:
		*buf = strconv.AppendBool(*buf, val)
	case nil:
		se.WriteNil(buf)
	case time.Time:
		se.WriteString(buf, val.Format(f.timestampFormat))
	case error:
		se.WriteString(buf, val.Error())
	case fmt.Stringer:
		se.WriteString(buf, val.String())
	default:
		se.WriteComplex(buf, val)
	}
}
