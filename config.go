package logtree

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lixenwraith/config"

	"github.com/lixenwraith/logtree/sanitizer"
)

// configPrefix namespaces the keys in a config file
const configPrefix = "logtree."

// Config describes the handler tree a Registry builds in ApplyConfig
type Config struct {
	// Loggers
	Level      string `toml:"level"`       // level of new loggers, name or number
	DateFormat string `toml:"date_format"` // Go time layout of the text prefix

	// Console; target "none" leaves the console out
	ConsoleTarget string `toml:"console_target"`
	ConsoleColor  bool   `toml:"console_color"`

	// File output, disabled when file_path is empty; rotation when rotate_max_size_mb > 0
	FilePath         string `toml:"file_path"`
	FileFormat       string `toml:"file_format"` // "txt" or "json"
	RotateMaxSizeMB  int64  `toml:"rotate_max_size_mb"`
	RotateMaxBackups int64  `toml:"rotate_max_backups"`
	RotateMaxAgeDays int64  `toml:"rotate_max_age_days"`
	RotateCompress   bool   `toml:"rotate_compress"`

	// Remote sending, disabled when remote_port is 0
	RemoteHost        string `toml:"remote_host"`
	RemotePort        int64  `toml:"remote_port"`
	RemoteMaxFailures int64  `toml:"remote_max_failures"` // < 1 never self-disables
	RemoteTimeoutMs   int64  `toml:"remote_timeout_ms"`

	// Remote receiving, used by NewReceiveHandler
	ReceivePort     int64 `toml:"receive_port"`
	AcceptTimeoutMs int64 `toml:"accept_timeout_ms"`

	// Wrap the root in a sanitizing handler with this policy, empty for none
	SanitizePolicy string `toml:"sanitize_policy"`

	// Internal diagnostics on the error channel
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"`
}

var defaultConfig = Config{
	Level:      "WARNING",
	DateFormat: DefaultDateFormat,

	ConsoleTarget: TargetStderr,
	ConsoleColor:  false,

	FilePath:         "",
	FileFormat:       "txt",
	RotateMaxSizeMB:  0,
	RotateMaxBackups: 5,
	RotateMaxAgeDays: 0,
	RotateCompress:   false,

	RemoteHost:        DefaultRemoteHost,
	RemotePort:        0,
	RemoteMaxFailures: UnlimitedFailures,
	RemoteTimeoutMs:   DefaultRemoteTimeout.Milliseconds(),

	ReceivePort:     DefaultRemotePort,
	AcceptTimeoutMs: DefaultAcceptTimeout.Milliseconds(),

	SanitizePolicy: "",

	InternalErrorsToStderr: true,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	c := defaultConfig
	return &c
}

// NewConfigFromFile loads a TOML file; keys live under [logtree] and a missing file yields the defaults
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()
	if err := loader.RegisterStruct(configPrefix, *cfg); err != nil {
		return nil, fmtErrorf("failed to register config struct: %w", err)
	}
	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmtErrorf("failed to load config from %s: %w", path, err)
	}
	if err := extractConfig(loader, configPrefix, cfg); err != nil {
		return nil, fmtErrorf("failed to extract config values: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigFromDefaults applies overrides keyed by toml tag to the defaults
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmtErrorf("failed to apply overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// extractConfig copies every registered key found by the loader into cfg
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("toml")
		if tag == "" {
			continue
		}
		val, found := loader.Get(prefix + tag)
		if !found {
			continue
		}
		if err := setFieldValue(v.Field(i), val); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}
	return nil
}

func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fields := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("toml"); tag != "" {
			fields[tag] = v.Field(i)
		}
	}
	for key, value := range overrides {
		fv, ok := fields[key]
		if !ok {
			return fmt.Errorf("unknown config key: %s", key)
		}
		if err := setFieldValue(fv, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(s)
	case reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		case float64:
			if n != float64(int64(n)) {
				return fmt.Errorf("expected integer, got %v", n)
			}
			field.SetInt(int64(n))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}
	case reflect.Bool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}
	return nil
}

func validPort(p int64) bool {
	return p >= 0 && p <= 65535
}

// validate checks ranges and enumerations
func (c *Config) validate() error {
	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}
	if strings.TrimSpace(c.DateFormat) == "" {
		return fmtErrorf("date_format cannot be empty")
	}
	switch c.ConsoleTarget {
	case TargetStdout, TargetStderr, "none":
	default:
		return fmtErrorf("invalid console_target: '%s' (use stdout, stderr or none)", c.ConsoleTarget)
	}
	if c.FileFormat != "txt" && c.FileFormat != "json" {
		return fmtErrorf("invalid file_format: '%s' (use txt or json)", c.FileFormat)
	}
	if c.RotateMaxSizeMB < 0 || c.RotateMaxBackups < 0 || c.RotateMaxAgeDays < 0 {
		return fmtErrorf("rotation limits cannot be negative")
	}
	if !validPort(c.RemotePort) || !validPort(c.ReceivePort) {
		return fmtErrorf("ports must be between 0 and 65535")
	}
	if c.RemotePort > 0 && strings.TrimSpace(c.RemoteHost) == "" {
		return fmtErrorf("remote_host cannot be empty when remote_port is set")
	}
	if c.RemoteTimeoutMs <= 0 || c.AcceptTimeoutMs <= 0 {
		return fmtErrorf("timeouts must be positive")
	}
	if c.SanitizePolicy != "" {
		if _, err := sanitizer.ParsePolicy(c.SanitizePolicy); err != nil {
			return fmtErrorf("invalid sanitize_policy: %w", err)
		}
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	return c.validate()
}

// Clone returns a copy
func (c *Config) Clone() *Config {
	cc := *c
	return &cc
}

// level returns the parsed logger level; call after validate
func (c *Config) level() Level {
	l, _ := ParseLevel(c.Level)
	return l
}

// buildRoot assembles the composite root described by c
func (c *Config) buildRoot(reg *Registry) (Handler, error) {
	root := NewCompositeHandler()

	if c.ConsoleTarget != "none" {
		ch := NewConsoleHandler()
		if err := ch.SetTarget(c.ConsoleTarget); err != nil {
			return nil, err
		}
		ch.SetColor(c.ConsoleColor)
		ch.SetDateFormat(c.DateFormat)
		root.AddHandler(ch)
	}

	if c.FilePath != "" {
		if c.RotateMaxSizeMB > 0 {
			rh := NewRotatingFileHandler(c.FilePath)
			if err := rh.SetFormat(c.FileFormat); err != nil {
				return nil, err
			}
			rh.SetRotation(RotationConfig{
				MaxSizeMB:  int(c.RotateMaxSizeMB),
				MaxBackups: int(c.RotateMaxBackups),
				MaxAgeDays: int(c.RotateMaxAgeDays),
				Compress:   c.RotateCompress,
			})
			root.AddHandler(rh)
		} else {
			fh := NewFileHandler(c.FilePath)
			if err := fh.SetFormat(c.FileFormat); err != nil {
				return nil, err
			}
			root.AddHandler(fh)
		}
	}

	if c.RemotePort > 0 {
		sh := NewRemoteSendHandler()
		sh.SetHost(c.RemoteHost)
		sh.SetPort(int(c.RemotePort))
		sh.SetMaxFailures(int(c.RemoteMaxFailures))
		sh.SetTimeout(time.Duration(c.RemoteTimeoutMs) * time.Millisecond)
		sh.SetRegistry(reg)
		root.AddHandler(sh)
	}

	return root, nil
}

// NewReceiveHandler creates a receive handler for receive_port and accept_timeout_ms
func (c *Config) NewReceiveHandler() *RemoteReceiveHandler {
	h := NewRemoteReceiveHandler()
	h.SetPort(int(c.ReceivePort))
	h.SetAcceptTimeout(time.Duration(c.AcceptTimeoutMs) * time.Millisecond)
	return h
}

// Config returns a copy of the configuration last applied
func (r *Registry) Config() *Config {
	if c := r.cfg.Load(); c != nil {
		return c.Clone()
	}
	return DefaultConfig()
}

// ApplyConfig replaces the root with the tree described by cfg and closes the
// old root. The level applies to loggers created afterwards.
func (r *Registry) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}
	if err := cfg.validate(); err != nil {
		return fmtErrorf("invalid configuration: %w", err)
	}
	root, err := cfg.buildRoot(r)
	if err != nil {
		return fmtErrorf("failed to build handler tree: %w", err)
	}

	internalEnabled.Store(cfg.InternalErrorsToStderr)
	old := r.Root()
	r.SetDefaultLevel(cfg.level())
	r.SetDefaultHandler(root)

	if cfg.SanitizePolicy != "" {
		policy, _ := sanitizer.ParsePolicy(cfg.SanitizePolicy)
		sh := NewSanitizingHandler()
		sh.SetPolicy(policy)
		if err := r.Wrap(sh); err != nil {
			return err
		}
	}
	r.cfg.Store(cfg.Clone())

	if old != nil && old != root {
		if err := combineErrors(old.Flush(), old.Close()); err != nil {
			internalLog("closing replaced root: %v", err)
		}
	}
	return nil
}
