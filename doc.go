// Package sessions manages concurrent, cancellable serial port sessions.
//
// A Manager owns a registry of open ports keyed by device path. Each open
// port may run at most one background read loop that publishes everything it
// reads as ReadEvents on a per-port event channel, until the loop is
// cancelled or the session is torn down. Writes are synchronous and operate
// on the same underlying device without contending with the read loop.
//
// The package does not implement any protocol or framing on top of raw
// bytes and keeps no state beyond the lifetime of the process.
package sessions
