// Package netLayer implements the wire-level building blocks shared by
// every tunnel variant: the address codec, the target type, the upstream
// dialer, and the shared timeout and size constants. The bidirectional
// splice and the UDP forwarder live in package session.
package netLayer

import "time"

// Default timeouts, overridable per listener via config.
const (
	DefaultConnectTimeout   = 15 * time.Second
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultUpstreamIdle     = 30 * time.Second
	DefaultUDPIdle          = 5 * time.Minute
	UDPIdleSweepInterval    = 60 * time.Second

	MaxChunkSize = 64 * 1024
)
