package sessions

import (
	"context"
	"errors"
	"time"
)

// newReadContext builds the cancellation token for one read loop. The cause
// recorded at cancel time distinguishes an explicit stop (errReadCancelled)
// from the session being destroyed underneath the worker
// (errSessionDetached).
func newReadContext() (context.Context, context.CancelCauseFunc) {
	return context.WithCancelCause(context.Background())
}

// readLoop is the background worker for one port. It owns its handle clone,
// reads up to size bytes per iteration and publishes each successful read to
// the port's event channel, pacing itself by pace between iterations. Read
// errors and empty reads are expected steady state on a timeout-bounded port
// and are ignored; the loop exits only through its context. Nothing here
// reports back to the caller of Read, which returned as soon as the worker
// was spawned.
func (m *Manager) readLoop(ctx context.Context, h SerialPort, path string, size int, pace time.Duration) {
	log := m.log.With().Str("port", path).Logger()
	channel := m.EventChannel(path)

	buf, release := m.readBuffer(size)
	defer release()

	defer func() {
		if errors.Is(context.Cause(ctx), errSessionDetached) {
			log.Debug().Msg("read loop stopped: session detached")
		} else {
			log.Debug().Msg("read loop stopped: cancelled")
		}
	}()

	log.Debug().Int("size", size).Dur("pace", pace).Msg("read loop started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := h.Read(buf)
		if err == nil && n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if perr := m.sink.Publish(channel, ReadEvent{Data: data, Size: n}); perr != nil {
				log.Debug().Err(perr).Msg("publishing read event")
			} else {
				m.metrics.EventsPublished.Add(1)
				m.metrics.BytesRead.Add(int64(n))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pace):
		}
	}
}
