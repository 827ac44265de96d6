package sessions

import (
	"fmt"
	"sync"
	"testing"
	"time"

	gobug "go.bug.st/serial"
)

// time2ms is the read loop pacing used throughout the tests to keep
// cancellation latency far below the assertion deadlines.
const time2ms = 2 * time.Millisecond

// mockPort is an in-memory SerialPort. Read hands out queued chunks one per
// call; with nothing queued it behaves like a timed-out read (0, nil), which
// is the steady state of a real timeout-bounded port.
type mockPort struct {
	mu       sync.Mutex
	reads    [][]byte
	readErrs []error
	writes   [][]byte
	writeErr error
	cloneErr error
	closed   bool
	timeout  time.Duration
}

func (m *mockPort) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.readErrs) > 0 {
		err := m.readErrs[0]
		m.readErrs = m.readErrs[1:]
		return 0, err
	}
	if len(m.reads) == 0 {
		return 0, nil
	}
	chunk := m.reads[0]
	m.reads = m.reads[1:]
	n := copy(p, chunk)
	return n, nil
}

func (m *mockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	m.writes = append(m.writes, cp)
	return len(p), nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPort) SetReadTimeout(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = d
	return nil
}

func (m *mockPort) Clone() (SerialPort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cloneErr != nil {
		return nil, m.cloneErr
	}
	return m, nil
}

func (m *mockPort) queue(chunks ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, chunks...)
}

func (m *mockPort) queueReadErr(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrs = append(m.readErrs, errs...)
}

func (m *mockPort) written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

func (m *mockPort) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// portFabric stands in for the OS: a fixed set of mock devices behind the
// openPort and getPortsList seams. Tests that install a fabric mutate
// package-level state and therefore must not run in parallel.
type portFabric struct {
	mu      sync.Mutex
	ports   map[string]*mockPort
	modes   map[string]*gobug.Mode
	openErr error
	listErr error
}

func newFabric(paths ...string) *portFabric {
	f := &portFabric{
		ports: make(map[string]*mockPort),
		modes: make(map[string]*gobug.Mode),
	}
	for _, p := range paths {
		f.ports[p] = &mockPort{}
	}
	return f
}

func (f *portFabric) install(t *testing.T) {
	t.Helper()
	origOpen, origList := openPort, getPortsList
	openPort = func(name string, mode *gobug.Mode) (SerialPort, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.openErr != nil {
			return nil, f.openErr
		}
		mp, ok := f.ports[name]
		if !ok {
			return nil, fmt.Errorf("no such device: %s", name)
		}
		f.modes[name] = mode
		return mp, nil
	}
	getPortsList = func() ([]string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.listErr != nil {
			return nil, f.listErr
		}
		names := make([]string, 0, len(f.ports))
		for name := range f.ports {
			names = append(names, name)
		}
		return names, nil
	}
	t.Cleanup(func() {
		openPort = origOpen
		getPortsList = origList
	})
}

func (f *portFabric) port(name string) *mockPort {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ports[name]
}

func (f *portFabric) mode(name string) *gobug.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.modes[name]
}

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

// waitEvent receives one event or reports failure after the deadline.
func waitEvent(t *testing.T, events <-chan ReadEvent, d time.Duration) ReadEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(d):
		t.Fatalf("no read event within %v", d)
		return ReadEvent{}
	}
}

// expectNoEvent asserts that nothing arrives on events for the duration.
func expectNoEvent(t *testing.T, events <-chan ReadEvent, d time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-events:
		if ok {
			t.Fatalf("unexpected read event: %q", string(ev.Data))
		}
	case <-time.After(d):
	}
}
