package logtree

import (
	"time"
)

// Remote transport defaults
const (
	DefaultRemoteHost    = "127.0.0.1"
	DefaultRemotePort    = 12345
	DefaultAcceptTimeout = 10000 * time.Millisecond
	DefaultRemoteTimeout = 3000 * time.Millisecond
	// UnlimitedFailures disables the self-disable threshold of a RemoteSendHandler
	UnlimitedFailures = -1
)

// Wire
const (
	// WireVersion is the first byte of every encoded record
	WireVersion byte = 0x01
	// maxPayloadSize caps the bytes buffered for a single connection
	maxPayloadSize = 16 << 20
)

// Backoff
const (
	baseBackoff       = 1000 * time.Millisecond
	maxBackoffExpStep = 7 // 2^7 * base = 128s
)

// Formatting
const (
	// DefaultDateFormat mirrors yyyyMMdd-HHmmss.SSS
	DefaultDateFormat = "20060102-150405.000"
	// defaultFileName is used when a FileHandler target resolves to a directory
	defaultFileName = "logtree.log"
)

// CLI
const (
	// HandlerOption is the command-line option selecting the root handler
	HandlerOption = "-logging-handler"
)

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Upper bound for waiting on a receive engine to exit
	engineStopTimeout = 5 * time.Second
)
