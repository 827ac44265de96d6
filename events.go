package sessions

import (
	"sync"
	"sync/atomic"
)

// ReadEvent is one published record of bytes read from a port. Data holds
// exactly Size bytes and is owned by the receiver.
type ReadEvent struct {
	Data []byte `json:"data"`
	Size int    `json:"size"`
}

// EventSink receives read events addressed to a named per-port channel.
// Implementations must be safe for concurrent use; read loops call Publish
// from their own goroutines.
type EventSink interface {
	Publish(channel string, ev ReadEvent) error
}

type busSubscriber struct {
	ch   chan ReadEvent
	once sync.Once
}

func (s *busSubscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Bus is the default in-process EventSink: a named-channel fan-out with
// buffered subscriber channels. Publish never blocks; events for a slow
// subscriber are dropped and counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]*busSubscriber
	closed  bool
	dropped atomic.Int64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*busSubscriber)}
}

// Subscribe registers a listener on channel and returns its event stream
// plus an unsubscribe function. The stream is closed on unsubscribe and on
// Bus.Close. buffer <= 0 selects DefaultSubscriberBuffer.
func (b *Bus) Subscribe(channel string, buffer int) (<-chan ReadEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	sub := &busSubscriber{ch: make(chan ReadEvent, buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		list := b.subs[channel]
		for i, s := range list {
			if s == sub {
				b.subs[channel] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		b.mu.Unlock()
		sub.close()
	}
	return sub.ch, unsubscribe
}

// Publish delivers ev to every subscriber of channel without blocking.
// Publishing to a channel with no subscribers is not an error; the event is
// simply discarded, matching fire-and-forget delivery.
func (b *Bus) Publish(channel string, ev ReadEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	for _, sub := range b.subs[channel] {
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Dropped reports how many events were discarded because a subscriber
// buffer was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close shuts the bus down: subsequent Publish calls fail with ErrBusClosed
// and all subscriber streams are closed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, list := range b.subs {
		for _, sub := range list {
			sub.close()
		}
	}
	b.subs = make(map[string][]*busSubscriber)
}
