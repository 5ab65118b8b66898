package logtree

import (
	"cmp"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lixenwraith/logtree/formatter"
)

// messageFormatter only substitutes placeholders; it is never used to Format
var messageFormatter = formatter.New()

// ZapHandler forwards records to a zap logger
type ZapHandler struct {
	Base
	mu     sync.RWMutex
	logger *zap.Logger
	id     uint64
}

var (
	zapIDMu   sync.Mutex
	zapNextID uint64
)

func nextZapID() uint64 {
	zapIDMu.Lock()
	defer zapIDMu.Unlock()
	zapNextID++
	return zapNextID
}

// NewZapHandler wraps logger; nil selects a production JSON logger on stderr
func NewZapHandler(logger *zap.Logger) (*ZapHandler, error) {
	if logger == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.Sampling = nil
		var err error
		if logger, err = cfg.Build(); err != nil {
			return nil, fmtErrorf("failed to build zap logger: %w", err)
		}
	}
	return &ZapHandler{logger: logger, id: nextZapID()}, nil
}

// Kind implements Handler
func (h *ZapHandler) Kind() string { return "zap" }

// Logger returns the target zap logger
func (h *ZapHandler) Logger() *zap.Logger {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.logger
}

// SetLogger replaces the target zap logger
func (h *ZapHandler) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	h.mu.Lock()
	h.logger = logger
	h.id = nextZapID()
	h.mu.Unlock()
	resetHandler(h, &h.Base)
}

// zapLevel maps onto zap's coarser scale
func zapLevel(l Level) zapcore.Level {
	switch {
	case l >= LevelSevere:
		return zapcore.ErrorLevel
	case l >= LevelWarning:
		return zapcore.WarnLevel
	case l >= LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Publish implements Handler
func (h *ZapHandler) Publish(r *Record) {
	h.Dispatch(r, nil, h.doPublish)
}

func (h *ZapHandler) doPublish(r *Record) {
	e := r.entry()
	e.Thrown = nil
	ce := h.Logger().Check(zapLevel(r.Level), messageFormatter.Assemble(e))
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 4)
	fields = append(fields, zap.String("level_name", r.Level.String()))
	if r.LoggerName != "" {
		fields = append(fields, zap.String("logger", r.LoggerName))
	}
	if len(r.Params) > 0 {
		params := make([]string, len(r.Params))
		for i, p := range r.Params {
			params[i] = fmt.Sprintf("%+v", p)
		}
		fields = append(fields, zap.Strings("params", params))
	}
	if r.Thrown != nil {
		fields = append(fields, zap.Error(r.Thrown))
	}
	if !r.Time.IsZero() {
		ce.Time = r.Time
	}
	ce.Write(fields...)
}

// Flush syncs the zap logger
func (h *ZapHandler) Flush() error {
	if err := h.Logger().Sync(); err != nil {
		return fmtErrorf("zap sync failed: %w", err)
	}
	return nil
}

// Close syncs; the zap logger is owned by the caller
func (h *ZapHandler) Close() error {
	_ = h.Logger().Sync()
	return nil
}

// Compare orders zap handlers by the identity of their target logger
func (h *ZapHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*ZapHandler)
	if !ok {
		return 1
	}
	if h.Logger() == o.Logger() {
		return 0
	}
	h.mu.RLock()
	a := h.id
	h.mu.RUnlock()
	o.mu.RLock()
	b := o.id
	o.mu.RUnlock()
	return cmp.Compare(a, b)
}
