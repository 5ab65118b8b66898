package logtree

import (
	"time"
)

// Builder provides a fluent API for building a configured Registry.
// Errors are kept until Build.
type Builder struct {
	cfg *Config
	err error
}

// NewBuilder starts from the default configuration
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// Build creates a Registry and applies the configuration
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	reg := NewRegistry()
	if err := reg.ApplyConfig(b.cfg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Level sets the level of new loggers
func (b *Builder) Level(level Level) *Builder {
	b.cfg.Level = level.String()
	return b
}

// LevelString sets the level of new loggers from a name or number
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := ParseLevel(level); err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = level
	return b
}

// DateFormat sets the time layout of the text prefix
func (b *Builder) DateFormat(layout string) *Builder {
	b.cfg.DateFormat = layout
	return b
}

// Console selects the console target: stdout, stderr or none
func (b *Builder) Console(target string) *Builder {
	b.cfg.ConsoleTarget = target
	return b
}

// Color toggles console colouring
func (b *Builder) Color(enable bool) *Builder {
	b.cfg.ConsoleColor = enable
	return b
}

// File adds file output at path, a file or a directory
func (b *Builder) File(path string) *Builder {
	b.cfg.FilePath = path
	return b
}

// FileFormat sets "txt" or "json" for file output
func (b *Builder) FileFormat(format string) *Builder {
	b.cfg.FileFormat = format
	return b
}

// Rotate turns file output into a rotating file
func (b *Builder) Rotate(maxSizeMB, maxBackups, maxAgeDays int64, compress bool) *Builder {
	b.cfg.RotateMaxSizeMB = maxSizeMB
	b.cfg.RotateMaxBackups = maxBackups
	b.cfg.RotateMaxAgeDays = maxAgeDays
	b.cfg.RotateCompress = compress
	return b
}

// Remote adds a send handler for host:port
func (b *Builder) Remote(host string, port int) *Builder {
	b.cfg.RemoteHost = host
	b.cfg.RemotePort = int64(port)
	return b
}

// RemoteMaxFailures sets the self-disable threshold of the send handler
func (b *Builder) RemoteMaxFailures(n int) *Builder {
	b.cfg.RemoteMaxFailures = int64(n)
	return b
}

// RemoteTimeout sets the dial and write timeout of the send handler
func (b *Builder) RemoteTimeout(d time.Duration) *Builder {
	b.cfg.RemoteTimeoutMs = d.Milliseconds()
	return b
}

// Receive sets the port and stop-check interval used for receive handlers
func (b *Builder) Receive(port int, acceptTimeout time.Duration) *Builder {
	b.cfg.ReceivePort = int64(port)
	b.cfg.AcceptTimeoutMs = acceptTimeout.Milliseconds()
	return b
}

// Sanitize wraps the root in a sanitizing handler with policy
func (b *Builder) Sanitize(policy string) *Builder {
	b.cfg.SanitizePolicy = policy
	return b
}

// InternalErrorsToStderr toggles the error channel
func (b *Builder) InternalErrorsToStderr(enable bool) *Builder {
	b.cfg.InternalErrorsToStderr = enable
	return b
}

// Config returns a copy of the configuration built so far
func (b *Builder) Config() *Config {
	return b.cfg.Clone()
}
