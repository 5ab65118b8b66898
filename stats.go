package logtree

import (
	"sync/atomic"
)

// Stats holds the transport counters of the remote handlers. Send handlers
// use the first three, receive handlers the rest.
type Stats struct {
	Sent    atomic.Uint64 // records written to a connection
	Failed  atomic.Uint64 // dial or write failures
	Dropped atomic.Uint64 // records skipped during cooldown or after disable

	Connections    atomic.Uint64 // accepted connections
	Received       atomic.Uint64 // records decoded and republished
	DecodeFailures atomic.Uint64 // payloads that could not be decoded
	ConnErrors     atomic.Uint64 // connections closed with a non-EOF error
}

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Sent           uint64 `json:"sent"`
	Failed         uint64 `json:"failed"`
	Dropped        uint64 `json:"dropped"`
	Connections    uint64 `json:"connections"`
	Received       uint64 `json:"received"`
	DecodeFailures uint64 `json:"decode_failures"`
	ConnErrors     uint64 `json:"conn_errors"`
}

// Snapshot reads every counter
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Sent:           s.Sent.Load(),
		Failed:         s.Failed.Load(),
		Dropped:        s.Dropped.Load(),
		Connections:    s.Connections.Load(),
		Received:       s.Received.Load(),
		DecodeFailures: s.DecodeFailures.Load(),
		ConnErrors:     s.ConnErrors.Load(),
	}
}
