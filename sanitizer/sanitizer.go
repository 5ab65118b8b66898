// Package sanitizer rewrites untrusted text before it reaches a log sink.
// Rules pair a filter bitmask selecting runes with a transform applied to them;
// policies are named rule sets.
package sanitizer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
)

// Filter flags for rune matching
const (
	FilterNonPrintable uint64 = 1 << iota // !strconv.IsPrint
	FilterControl                         // unicode.IsControl
	FilterWhitespace                      // unicode.IsSpace
	FilterShellSpecial                    // '`', '$', ';', '|', '&', '>', '<', '(', ')', '#'
	FilterLineBreak                       // '\n', '\r'
)

// Transform flags
const (
	TransformStrip      uint64 = 1 << iota // drop the rune
	TransformHexEncode                     // "<XXYY>" of the UTF-8 bytes
	TransformJSONEscape                    // backslash escape
	TransformSpace                         // replace with a single space
)

// PolicyPreset names a pre-configured rule set
type PolicyPreset string

const (
	PolicyRaw    PolicyPreset = "raw"    // passthrough
	PolicyTxt    PolicyPreset = "txt"    // hex-encode anything non-printable
	PolicyJSON   PolicyPreset = "json"   // JSON-escape control characters
	PolicyShell  PolicyPreset = "shell"  // strip shell metacharacters and whitespace
	PolicySingle PolicyPreset = "single" // fold line breaks so one record stays one line
)

type rule struct {
	filter    uint64
	transform uint64
}

var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:    {},
	PolicyTxt:    {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyJSON:   {{filter: FilterControl, transform: TransformJSONEscape}},
	PolicyShell:  {{filter: FilterShellSpecial | FilterWhitespace, transform: TransformStrip}},
	PolicySingle: {{filter: FilterLineBreak, transform: TransformSpace}, {filter: FilterNonPrintable, transform: TransformHexEncode}},
}

var filterCheckers = map[uint64]func(rune) bool{
	FilterNonPrintable: func(r rune) bool { return !strconv.IsPrint(r) },
	FilterControl:      unicode.IsControl,
	FilterWhitespace:   unicode.IsSpace,
	FilterShellSpecial: func(r rune) bool {
		return strings.ContainsRune("`$;|&><()#", r)
	},
	FilterLineBreak: func(r rune) bool { return r == '\n' || r == '\r' },
}

// ParsePolicy resolves a policy name, case-insensitively
func ParsePolicy(name string) (PolicyPreset, error) {
	p := PolicyPreset(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := policyRules[p]; !ok {
		return "", fmt.Errorf("unknown sanitizer policy %q", name)
	}
	return p, nil
}

// Policies lists the known policy names
func Policies() []PolicyPreset {
	return []PolicyPreset{PolicyRaw, PolicyTxt, PolicyJSON, PolicyShell, PolicySingle}
}

// Sanitizer applies an ordered list of rules. Not safe for concurrent use:
// the output buffer is reused between calls.
type Sanitizer struct {
	rules []rule
	buf   []byte
}

// New creates a passthrough sanitizer
func New() *Sanitizer {
	return &Sanitizer{buf: make([]byte, 0, 256)}
}

// Rule appends a custom rule; earlier rules win
func (s *Sanitizer) Rule(filter uint64, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Policy appends the rules of a preset
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	s.rules = append(s.rules, policyRules[preset]...)
	return s
}

// Sanitize applies the configured rules to data
func (s *Sanitizer) Sanitize(data string) string {
	if len(s.rules) == 0 {
		return data
	}
	s.buf = s.buf[:0]
	for _, r := range data {
		matched := false
		for _, rl := range s.rules {
			if matchesFilter(r, rl.filter) {
				applyTransform(&s.buf, r, rl.transform)
				matched = true
				break
			}
		}
		if !matched {
			s.buf = utf8.AppendRune(s.buf, r)
		}
	}
	return string(s.buf)
}

func matchesFilter(r rune, mask uint64) bool {
	for flag, check := range filterCheckers {
		if mask&flag != 0 && check(r) {
			return true
		}
	}
	return false
}

func applyTransform(buf *[]byte, r rune, mask uint64) {
	switch {
	case mask&TransformStrip != 0:
	case mask&TransformSpace != 0:
		*buf = append(*buf, ' ')
	case mask&TransformHexEncode != 0:
		var rb [utf8.UTFMax]byte
		n := utf8.EncodeRune(rb[:], r)
		*buf = append(*buf, '<')
		*buf = append(*buf, hex.EncodeToString(rb[:n])...)
		*buf = append(*buf, '>')
	case mask&TransformJSONEscape != 0:
		appendJSONRune(buf, r)
	}
}

func appendJSONRune(buf *[]byte, r rune) {
	switch r {
	case '\n':
		*buf = append(*buf, '\\', 'n')
	case '\r':
		*buf = append(*buf, '\\', 'r')
	case '\t':
		*buf = append(*buf, '\\', 't')
	case '\b':
		*buf = append(*buf, '\\', 'b')
	case '\f':
		*buf = append(*buf, '\\', 'f')
	case '"', '\\':
		*buf = append(*buf, '\\', byte(r))
	default:
		if r < 0x20 || r == 0x7f {
			*buf = fmt.Appendf(*buf, "\\u%04x", r)
		} else {
			*buf = utf8.AppendRune(*buf, r)
		}
	}
}

// Serializer writes values for a given output format ("txt" or "json")
type Serializer struct {
	format    string
	sanitizer *Sanitizer
}

// NewSerializer binds a format to a sanitizer; a nil sanitizer passes text through
func NewSerializer(format string, san *Sanitizer) *Serializer {
	if san == nil {
		san = New()
	}
	return &Serializer{format: format, sanitizer: san}
}

// WriteString writes s, sanitized for txt and quoted and escaped for json
func (se *Serializer) WriteString(buf *[]byte, s string) {
	if se.format != "json" {
		*buf = append(*buf, se.sanitizer.Sanitize(s)...)
		return
	}
	*buf = append(*buf, '"')
	for _, r := range s {
		if r < 0x20 || r == 0x7f || r == '"' || r == '\\' {
			appendJSONRune(buf, r)
			continue
		}
		*buf = utf8.AppendRune(*buf, r)
	}
	*buf = append(*buf, '"')
}

// WriteNil writes a nil value
func (se *Serializer) WriteNil(buf *[]byte) {
	if se.format == "json" {
		*buf = append(*buf, "null"...)
		return
	}
	*buf = append(*buf, "<nil>"...)
}

var dumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          false,
	SortKeys:                true,
}

// WriteComplex writes a composite value. Pointers are followed and map keys
// sorted so the output is stable between runs.
func (se *Serializer) WriteComplex(buf *[]byte, v any) {
	var b bytes.Buffer
	dumper.Fprintf(&b, "%+v", v)
	se.WriteString(buf, b.String())
}
