package logtree

import (
	"fmt"
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Wire layout: one version byte followed by a CBOR map with integer keys.
//
//	1 level (int)         4 logger name (text)
//	2 message (text)      5 thrown {1 message, 2 stack}
//	3 params (array)      6 time (int, Unix nanoseconds)
//
// Parameters that are not CBOR primitives travel as their %+v text.
type wireRecord struct {
	Level   int32       `cbor:"1,keyasint"`
	Message string      `cbor:"2,keyasint"`
	Params  []any       `cbor:"3,keyasint,omitempty"`
	Logger  string      `cbor:"4,keyasint,omitempty"`
	Thrown  *wireThrown `cbor:"5,keyasint,omitempty"`
	Time    int64       `cbor:"6,keyasint,omitempty"`
}

type wireThrown struct {
	Msg   string `cbor:"1,keyasint"`
	Stack string `cbor:"2,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		IntDec:           cbor.IntDecConvertNone,
		MaxArrayElements: 1 << 16,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// EncodeRecord serialises r for the wire
func EncodeRecord(r *Record) ([]byte, error) {
	if r == nil {
		return nil, fmtErrorf("cannot encode nil record")
	}
	w := wireRecord{
		Level:   int32(r.Level),
		Message: r.Message,
		Logger:  r.LoggerName,
	}
	if !r.Time.IsZero() {
		w.Time = r.Time.UnixNano()
	}
	if len(r.Params) > 0 {
		w.Params = make([]any, len(r.Params))
		for i, p := range r.Params {
			w.Params[i] = wireValue(p)
		}
	}
	if r.Thrown != nil {
		w.Thrown = &wireThrown{Msg: r.Thrown.Error()}
		if full := fmt.Sprintf("%+v", r.Thrown); full != w.Thrown.Msg {
			w.Thrown.Stack = full
		}
	}

	body, err := encMode.Marshal(w)
	if err != nil {
		return nil, fmtErrorf("failed to encode record: %w", err)
	}
	out := make([]byte, 0, len(body)+1)
	out = append(out, WireVersion)
	return append(out, body...), nil
}

// DecodeRecord parses one record produced by EncodeRecord
func DecodeRecord(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, fmtErrorf("empty payload")
	}
	if data[0] != WireVersion {
		return nil, fmtErrorf("version 0x%02x: %w", data[0], ErrUnsupportedVersion)
	}
	var w wireRecord
	if err := decMode.Unmarshal(data[1:], &w); err != nil {
		return nil, fmtErrorf("failed to decode record: %w", err)
	}

	r := &Record{
		Level:      Level(w.Level),
		Message:    w.Message,
		Params:     signedParams(w.Params),
		LoggerName: w.Logger,
	}
	if w.Time != 0 {
		r.Time = time.Unix(0, w.Time)
	}
	if w.Thrown != nil {
		r.Thrown = &RemoteError{Msg: w.Thrown.Msg, Stack: w.Thrown.Stack}
	}
	return r, nil
}

// signedParams turns unsigned integers that fit an int64 back into int64,
// so only values above math.MaxInt64 arrive as uint64
func signedParams(params []any) []any {
	for i, p := range params {
		if u, ok := p.(uint64); ok && u <= math.MaxInt64 {
			params[i] = int64(u)
		}
	}
	return params
}

// wireValue keeps CBOR primitives and renders everything else as text
func wireValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%+v", val)
	}
}
