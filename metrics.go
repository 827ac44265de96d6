package sessions

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks session manager health statistics. All fields are atomic
// counters safe for concurrent update from command callers and read loops.
type Metrics struct {
	// Session lifecycle
	OpenAttempts   atomic.Int64 // Total Open calls reaching the device
	OpenFailures   atomic.Int64 // Failed device opens
	ActiveSessions atomic.Int64 // Currently open ports
	SessionsClosed atomic.Int64 // Ports torn down (close/force_close/close_all)

	// Read loops
	ReadLoopsStarted   atomic.Int64 // Workers spawned
	ReadLoopsCancelled atomic.Int64 // Explicit cancellation signals sent
	EventsPublished    atomic.Int64 // Read events emitted
	BytesRead          atomic.Int64 // Total bytes published

	// Writes
	WriteOperations atomic.Int64 // Successful writes
	WriteErrors     atomic.Int64 // Failed writes
	BytesWritten    atomic.Int64 // Total bytes written

	// Buffer pool
	BufferPoolHits   atomic.Int64
	BufferPoolMisses atomic.Int64
}

// Snapshot is a point-in-time copy of the counters for external consumers.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	OpenAttempts   int64 `json:"open_attempts"`
	OpenFailures   int64 `json:"open_failures"`
	ActiveSessions int64 `json:"active_sessions"`
	SessionsClosed int64 `json:"sessions_closed"`

	ReadLoopsStarted   int64 `json:"read_loops_started"`
	ReadLoopsCancelled int64 `json:"read_loops_cancelled"`
	EventsPublished    int64 `json:"events_published"`
	BytesRead          int64 `json:"bytes_read"`

	WriteOperations int64 `json:"write_operations"`
	WriteErrors     int64 `json:"write_errors"`
	BytesWritten    int64 `json:"bytes_written"`

	BufferPoolHits   int64 `json:"buffer_pool_hits"`
	BufferPoolMisses int64 `json:"buffer_pool_misses"`
}

func (m *Metrics) snapshot() Snapshot {
	return Snapshot{
		Timestamp:          time.Now(),
		OpenAttempts:       m.OpenAttempts.Load(),
		OpenFailures:       m.OpenFailures.Load(),
		ActiveSessions:     m.ActiveSessions.Load(),
		SessionsClosed:     m.SessionsClosed.Load(),
		ReadLoopsStarted:   m.ReadLoopsStarted.Load(),
		ReadLoopsCancelled: m.ReadLoopsCancelled.Load(),
		EventsPublished:    m.EventsPublished.Load(),
		BytesRead:          m.BytesRead.Load(),
		WriteOperations:    m.WriteOperations.Load(),
		WriteErrors:        m.WriteErrors.Load(),
		BytesWritten:       m.BytesWritten.Load(),
		BufferPoolHits:     m.BufferPoolHits.Load(),
		BufferPoolMisses:   m.BufferPoolMisses.Load(),
	}
}

// MetricsSnapshot returns the current counter values.
func (m *Manager) MetricsSnapshot() Snapshot {
	return m.metrics.snapshot()
}

// PoolStats returns the read buffer pool statistics.
func (m *Manager) PoolStats() PoolStats {
	return m.pool.Stats()
}

// MetricsBroadcaster periodically emits metrics snapshots on a channel until
// stopped. The channel is closed after Stop.
type MetricsBroadcaster struct {
	ch       chan Snapshot
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// BroadcastMetrics starts a broadcaster emitting a snapshot every interval.
// Emission is non-blocking: a snapshot is dropped when the consumer lags.
func (m *Manager) BroadcastMetrics(interval time.Duration, buffer int) *MetricsBroadcaster {
	if buffer <= 0 {
		buffer = 1
	}
	b := &MetricsBroadcaster{
		ch:     make(chan Snapshot, buffer),
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(b.done)
		defer close(b.ch)
		defer b.ticker.Stop()
		for {
			select {
			case <-b.stopCh:
				return
			case <-b.ticker.C:
				select {
				case b.ch <- m.metrics.snapshot():
				default:
				}
			}
		}
	}()

	return b
}

// Snapshots returns the broadcast stream.
func (b *MetricsBroadcaster) Snapshots() <-chan Snapshot {
	return b.ch
}

// Stop terminates the broadcast and waits for the stream to close. Safe to
// call multiple times.
func (b *MetricsBroadcaster) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	<-b.done
}
