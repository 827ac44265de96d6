package sessions

import (
	"context"
	"fmt"
	"sync"
)

// session is the per-port wrapper tracked by the registry: the open device
// handle plus the cancellation endpoint of the read loop, if one is running.
type session struct {
	handle SerialPort

	// cancel is nil when no read loop is active. Non-nil means exactly one
	// worker is running on the paired context. Mutated only while the
	// registry lock is held.
	cancel context.CancelCauseFunc

	// flow is the requested flow control, kept for introspection since the
	// backend cannot apply it (see FlowControl).
	flow FlowControl
}

// registry is the single source of truth for which ports are open. A path
// present in the map is open by definition. All structural mutations and all
// per-entry cancel mutations happen under mu; the lock is never held across
// a blocking read or write.
type registry struct {
	mu    sync.Mutex
	ports map[string]*session
}

func newRegistry() *registry {
	return &registry{ports: make(map[string]*session)}
}

// withPort looks up path and invokes f with exclusive access to its session.
// Returns ErrNotFound when the path is not open. Errors from f propagate
// unchanged.
func (r *registry) withPort(path string, f func(*session) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.ports[path]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return f(s)
}

// insert registers a session under path, using open to produce it. The open
// callback runs under the registry lock so two racing Opens of the same path
// cannot both reach the device.
func (r *registry) insert(path string, open func() (*session, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ports[path]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, path)
	}
	s, err := open()
	if err != nil {
		return err
	}
	r.ports[path] = s
	return nil
}

// remove deletes path and returns its session for cleanup. Returns ErrNotOpen
// when the path is not present.
func (r *registry) remove(path string) (*session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.ports[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, path)
	}
	delete(r.ports, path)
	return s, nil
}

// take is remove without the error: it reports whether the path was present.
func (r *registry) take(path string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.ports[path]
	if ok {
		delete(r.ports, path)
	}
	return s, ok
}

// clear removes every entry and returns them for cleanup.
func (r *registry) clear() map[string]*session {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.ports
	r.ports = make(map[string]*session)
	return all
}

// size returns the number of open sessions.
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ports)
}
