package compat

import (
	"fmt"

	"github.com/lixenwraith/logtree"
)

// Default logger names of the adapters
const (
	GnetLoggerName     = "gnet"
	FastHTTPLoggerName = "fasthttp"
)

// Builder creates adapters for gnet and fasthttp. Adapters log through a
// named logger of a Registry: an explicit one, one built from a Config, or
// the package default.
type Builder struct {
	reg    *logtree.Registry
	logCfg *logtree.Config
	logger *logtree.Logger
	err    error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithRegistry selects the registry the adapters' loggers come from
func (b *Builder) WithRegistry(reg *logtree.Registry) *Builder {
	if reg == nil {
		b.err = fmt.Errorf("logtree/compat: provided registry cannot be nil")
		return b
	}
	b.reg = reg
	return b
}

// WithConfig provides a configuration for a new registry.
// Ignored when WithRegistry is used.
func (b *Builder) WithConfig(cfg *logtree.Config) *Builder {
	b.logCfg = cfg
	return b
}

// WithLogger makes every adapter log through l instead of a per-adapter named logger
func (b *Builder) WithLogger(l *logtree.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("logtree/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// getRegistry resolves the registry, creating one from the config if necessary
func (b *Builder) getRegistry() (*logtree.Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.reg != nil {
		return b.reg, nil
	}
	if b.logCfg == nil {
		b.reg = logtree.Default()
		return b.reg, nil
	}

	reg := logtree.NewRegistry()
	if err := reg.ApplyConfig(b.logCfg); err != nil {
		return nil, err
	}
	// Cache the new registry for subsequent builds
	b.reg = reg
	return reg, nil
}

// getLogger returns the explicit logger or the registry's logger called name
func (b *Builder) getLogger(name string) (*logtree.Logger, error) {
	reg, err := b.getRegistry()
	if err != nil {
		return nil, err
	}
	if b.logger != nil {
		return b.logger, nil
	}
	return reg.GetLogger(name), nil
}

// BuildGnet creates a gnet adapter logging through the "gnet" logger
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger(GnetLoggerName)
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildStructuredGnet creates a gnet adapter that keeps "key=%v" values as params
func (b *Builder) BuildStructuredGnet(opts ...GnetOption) (*StructuredGnetAdapter, error) {
	l, err := b.getLogger(GnetLoggerName)
	if err != nil {
		return nil, err
	}
	return NewStructuredGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter logging through the "fasthttp" logger
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger(FastHTTPLoggerName)
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// GetRegistry returns the registry the adapters log into
func (b *Builder) GetRegistry() (*logtree.Registry, error) {
	return b.getRegistry()
}

// --- Example Usage ---
//
//	reg, err := logtree.NewBuilder().Level(logtree.LevelFine).Build()
//	if err != nil { /* handle error */ }
//
//	builder := compat.NewBuilder().WithRegistry(reg)
//	gnetLogger, _ := builder.BuildStructuredGnet()
//	fasthttpLogger, _ := builder.BuildFastHTTP()
//
//	// gnet: passed in the engine options
//	go gnet.Run(events, "tcp://:9000", gnet.WithLogger(gnetLogger))
//
//	// fasthttp: assigned to the server's Logger field
//	server := &fasthttp.Server{Handler: handler, Logger: fasthttpLogger}
//	go server.ListenAndServe(":8080")
