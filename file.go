package logtree

import (
	"cmp"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lixenwraith/logtree/formatter"
)

// resolveLogPath maps a directory target to the default file inside it and
// makes sure the parent directory exists
func resolveLogPath(path string) (string, error) {
	if path == "" {
		return "", fmtErrorf("no log file path configured")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, defaultFileName)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmtErrorf("failed to create log directory '%s': %w", filepath.Dir(path), err)
	}
	return path, nil
}

// fileSink holds what the file handlers share: target path, formatter and writer
type fileSink struct {
	mu       sync.Mutex
	path     string
	resolved string
	format   string
	f        *formatter.Formatter
	w        io.WriteCloser
}

func newFileSink() fileSink {
	return fileSink{
		format: "txt",
		f:      formatter.New().TimestampFormat(DefaultDateFormat),
	}
}

func (s *fileSink) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Format returns "txt" or "json"
func (s *fileSink) Format() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

// ResolvedPath is the file actually written, empty before the first record
func (s *fileSink) ResolvedPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

func (s *fileSink) write(r *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return
	}
	if _, err := s.w.Write(s.f.Format(r.entry())); err != nil {
		internalLog("failed to write log file '%s': %v", s.resolved, err)
	}
}

func (s *fileSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	if err != nil {
		return fmtErrorf("failed to close log file '%s': %w", s.resolved, err)
	}
	return nil
}

func (s *fileSink) configure(path, format string) error {
	format = strings.ToLower(format)
	if format != "txt" && format != "json" {
		return fmtErrorf("invalid file format %q", format)
	}
	s.mu.Lock()
	s.path = path
	s.format = format
	s.f.Type(format)
	s.mu.Unlock()
	return nil
}

// FileHandler appends formatted records to a file. A directory target gets
// logtree.log inside it. The file is opened on the first record.
type FileHandler struct {
	Base
	fileSink
}

// NewFileHandler creates a txt file handler for path
func NewFileHandler(path string) *FileHandler {
	h := &FileHandler{fileSink: newFileSink()}
	h.path = path
	return h
}

// Kind implements Handler
func (h *FileHandler) Kind() string { return "file" }

// SetPath changes the target file or directory
func (h *FileHandler) SetPath(path string) {
	_ = h.configure(path, h.Format())
	resetHandler(h, &h.Base)
}

// SetFormat selects "txt" or "json" output
func (h *FileHandler) SetFormat(format string) error {
	if err := h.configure(h.Path(), format); err != nil {
		return err
	}
	resetHandler(h, &h.Base)
	return nil
}

// Publish implements Handler
func (h *FileHandler) Publish(r *Record) {
	h.Dispatch(r, h.setUp, h.write)
}

func (h *FileHandler) setUp() {
	h.mu.Lock()
	defer h.mu.Unlock()
	path, err := resolveLogPath(h.path)
	if err != nil {
		internalLog("%v", err)
		return
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		internalLog("failed to open/create log file '%s': %v", path, err)
		return
	}
	h.resolved = path
	h.w = file
}

// Flush syncs the open file
func (h *FileHandler) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if file, ok := h.w.(*os.File); ok && file != nil {
		if err := file.Sync(); err != nil {
			return fmtErrorf("failed to sync log file '%s': %w", h.resolved, err)
		}
	}
	return nil
}

// Close closes the open file; the next record reopens it
func (h *FileHandler) Close() error {
	err := h.close()
	h.invalidate()
	return err
}

// Compare orders file handlers by cleaned path
func (h *FileHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*FileHandler)
	if !ok {
		return 1
	}
	return strings.Compare(filepath.Clean(h.Path()), filepath.Clean(o.Path()))
}

// RotationConfig bounds a rotating log file
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// RotatingFileHandler writes through lumberjack. Every set-up starts a fresh
// file: an existing non-empty file is rotated away first.
type RotatingFileHandler struct {
	Base
	fileSink
	rot RotationConfig
}

// NewRotatingFileHandler creates a handler keeping up to 5 backups of 10MB
func NewRotatingFileHandler(path string) *RotatingFileHandler {
	h := &RotatingFileHandler{
		fileSink: newFileSink(),
		rot:      RotationConfig{MaxSizeMB: 10, MaxBackups: 5},
	}
	h.path = path
	return h
}

// Kind implements Handler
func (h *RotatingFileHandler) Kind() string { return "rotating-file" }

// SetPath changes the target file or directory
func (h *RotatingFileHandler) SetPath(path string) {
	_ = h.configure(path, h.Format())
	resetHandler(h, &h.Base)
}

// SetFormat selects "txt" or "json" output
func (h *RotatingFileHandler) SetFormat(format string) error {
	if err := h.configure(h.Path(), format); err != nil {
		return err
	}
	resetHandler(h, &h.Base)
	return nil
}

// Rotation returns the rotation limits
func (h *RotatingFileHandler) Rotation() RotationConfig {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rot
}

// SetRotation changes the rotation limits
func (h *RotatingFileHandler) SetRotation(rc RotationConfig) {
	h.mu.Lock()
	h.rot = rc
	h.mu.Unlock()
	resetHandler(h, &h.Base)
}

// Publish implements Handler
func (h *RotatingFileHandler) Publish(r *Record) {
	h.Dispatch(r, h.setUp, h.write)
}

func (h *RotatingFileHandler) setUp() {
	h.mu.Lock()
	defer h.mu.Unlock()
	path, err := resolveLogPath(h.path)
	if err != nil {
		internalLog("%v", err)
		return
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    h.rot.MaxSizeMB,
		MaxBackups: h.rot.MaxBackups,
		MaxAge:     h.rot.MaxAgeDays,
		Compress:   h.rot.Compress,
		LocalTime:  true,
	}
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		if err := lj.Rotate(); err != nil {
			internalLog("failed to rotate log file '%s': %v", path, err)
		}
	}
	h.resolved = path
	h.w = lj
}

// Flush is a no-op; lumberjack writes through
func (h *RotatingFileHandler) Flush() error { return nil }

// Close closes the current file
func (h *RotatingFileHandler) Close() error {
	err := h.close()
	h.invalidate()
	return err
}

// Compare orders by cleaned path, then backup count
func (h *RotatingFileHandler) Compare(other Handler) int {
	if other == Handler(h) {
		return 0
	}
	if k := compareKind(h, other); k != 0 {
		return k
	}
	o, ok := other.(*RotatingFileHandler)
	if !ok {
		return 1
	}
	if c := strings.Compare(filepath.Clean(h.Path()), filepath.Clean(o.Path())); c != 0 {
		return c
	}
	return cmp.Compare(h.Rotation().MaxBackups, o.Rotation().MaxBackups)
}
