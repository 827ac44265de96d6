package sessions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	gobug "go.bug.st/serial"
	"go.uber.org/atomic"
)

// Manager is the command surface over a registry of open serial ports. All
// methods are safe for concurrent use. One Manager is intended to live for
// the whole process; Shutdown tears down every session.
type Manager struct {
	cfg     Config
	log     zerolog.Logger
	sink    EventSink
	reg     *registry
	pool    *bufferPool
	metrics *Metrics
	closed  atomic.Bool

	// ownBus is non-nil when the manager created its own default bus and
	// therefore owns its shutdown.
	ownBus *Bus
}

// Option customizes a Manager during construction.
type Option func(*Manager)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithEventSink routes read events to an external sink instead of the
// built-in bus.
func WithEventSink(sink EventSink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithConfig overrides the default configuration. Zero-valued fields keep
// their defaults.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg.withDefaults() }
}

// NewManager constructs a Manager with an empty registry.
func NewManager(opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:     DefaultConfig(),
		log:     zerolog.Nop(),
		reg:     newRegistry(),
		metrics: &Metrics{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := ValidateConfig(m.cfg); err != nil {
		return nil, err
	}
	if m.sink == nil {
		m.ownBus = NewBus()
		m.sink = m.ownBus
	}
	m.pool = newBufferPool(m.cfg.DefaultReadSize)
	return m, nil
}

// Bus returns the built-in event bus, or nil when an external sink was
// supplied. Callers subscribe here to receive read events.
func (m *Manager) Bus() *Bus {
	return m.ownBus
}

// EventChannel returns the event channel name read loops publish to for the
// given port path.
func (m *Manager) EventChannel(path string) string {
	return m.cfg.EventPrefix + path
}

// SubscribeRead subscribes to the read events of path on the built-in bus,
// using the configured subscriber buffer depth. It fails when the manager
// publishes to an external sink instead.
func (m *Manager) SubscribeRead(path string) (<-chan ReadEvent, func(), error) {
	if m.ownBus == nil {
		return nil, nil, fmt.Errorf("manager publishes to an external sink")
	}
	events, unsubscribe := m.ownBus.Subscribe(m.EventChannel(path), m.cfg.SubscriberBuffer)
	return events, unsubscribe, nil
}

// AvailablePorts enumerates OS-visible serial ports, sorted lexicographically
// so repeated calls over an unchanged topology compare equal. Enumeration is
// best-effort: failures yield an empty list, never an error.
func (m *Manager) AvailablePorts() []string {
	ports, err := getPortsList()
	if err != nil {
		m.log.Warn().Err(err).Msg("enumerating serial ports")
		return []string{}
	}
	sort.Strings(ports)
	return ports
}

// Open opens the serial device at path with the given line parameters and
// registers the session. Fails with ErrAlreadyOpen when the path is already
// registered, or with the wrapped OS error when the device cannot be opened.
func (m *Manager) Open(path string, baudRate int, opts OpenOptions) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	if path == "" {
		return fmt.Errorf("empty port path")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("invalid port path %q: contains path traversal", path)
	}
	if baudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", baudRate)
	}

	mode := &gobug.Mode{
		BaudRate: baudRate,
		DataBits: dataBitsFrom(opts.DataBits).Int(),
		Parity:   parityFrom(opts.Parity).Get(),
		StopBits: stopBitsFrom(opts.StopBits).Get(),
	}
	flow := flowControlFrom(opts.FlowControl)
	timeout := opts.timeout()

	err := m.reg.insert(path, func() (*session, error) {
		m.metrics.OpenAttempts.Add(1)

		h, err := openPort(path, mode)
		if err != nil {
			m.metrics.OpenFailures.Add(1)
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		if err = h.SetReadTimeout(timeout); err != nil {
			_ = h.Close()
			m.metrics.OpenFailures.Add(1)
			return nil, fmt.Errorf("configuring read timeout on %s: %w", path, err)
		}
		return &session{handle: h, flow: flow}, nil
	})
	if err != nil {
		return err
	}

	if flow != FlowControlNone {
		// go.bug.st/serial exposes no flow control in Mode; the request is
		// recorded on the session but the device keeps the driver default.
		m.log.Warn().Str("port", path).Stringer("flow_control", flow).
			Msg("flow control requested but not supported by backend")
	}
	m.metrics.ActiveSessions.Add(1)
	m.log.Info().Str("port", path).Int("baud", baudRate).
		Int("data_bits", mode.DataBits).Dur("timeout", timeout).
		Msg("port opened")
	return nil
}

// Close removes the session and releases the device handle. It does not
// signal the read loop first: teardown cancels the loop's context with a
// detached cause, the equivalent of its signal channel disconnecting.
// Fails with ErrNotOpen when the path is not registered.
func (m *Manager) Close(path string) error {
	s, err := m.reg.remove(path)
	if err != nil {
		return err
	}
	m.teardown(path, s, errSessionDetached)
	return nil
}

// ForceClose signals any active read loop before removing the session.
// Closing a path that is not open is a silent no-op.
func (m *Manager) ForceClose(path string) error {
	s, ok := m.reg.take(path)
	if !ok {
		return nil
	}
	m.teardown(path, s, errReadCancelled)
	return nil
}

// CloseAll signals every active read loop and clears the registry
// unconditionally.
func (m *Manager) CloseAll() error {
	for path, s := range m.reg.clear() {
		m.teardown(path, s, errReadCancelled)
	}
	return nil
}

// Shutdown closes every session and retires the manager. Subsequent
// operations fail with ErrManagerClosed.
func (m *Manager) Shutdown() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := m.CloseAll()
	if m.ownBus != nil {
		m.ownBus.Close()
	}
	return err
}

// teardown cancels the session's read loop (if any) with the given cause and
// releases the device handle. The session must already be out of the
// registry; the orphaned worker owns its handle clone and exits on the next
// poll of its context.
func (m *Manager) teardown(path string, s *session, cause error) {
	if s.cancel != nil {
		s.cancel(cause)
		s.cancel = nil
		if cause == errReadCancelled {
			m.metrics.ReadLoopsCancelled.Add(1)
		}
	}
	if err := s.handle.Close(); err != nil {
		m.log.Warn().Err(err).Str("port", path).Msg("closing device handle")
	}
	m.metrics.ActiveSessions.Add(-1)
	m.metrics.SessionsClosed.Add(1)
	m.log.Info().Str("port", path).Msg("port closed")
}

// Read starts a background read loop for path, publishing each successful
// read to the port's event channel. Starting is idempotent: when a loop is
// already running the call is a no-op. The loop runs until cancelled via
// CancelRead, ForceClose, CloseAll or session teardown.
func (m *Manager) Read(path string, opts ReadOptions) error {
	if m.closed.Load() {
		return ErrManagerClosed
	}
	size := opts.Size
	if size <= 0 {
		size = m.cfg.DefaultReadSize
	}
	if size > MaxBufferSize {
		return fmt.Errorf("%w: read size %d", ErrBufferTooLarge, size)
	}
	pace := opts.Timeout
	if pace <= 0 {
		pace = m.cfg.DefaultTimeout
	}

	return m.reg.withPort(path, func(s *session) error {
		if s.cancel != nil {
			m.log.Debug().Str("port", path).Msg("read loop already running")
			return nil
		}
		clone, err := s.handle.Clone()
		if err != nil {
			return fmt.Errorf("cloning handle for %s: %w", path, err)
		}
		ctx, cancel := newReadContext()
		s.cancel = cancel
		m.metrics.ReadLoopsStarted.Add(1)
		go m.readLoop(ctx, clone, path, size, pace)
		return nil
	})
}

// CancelRead stops the read loop for path. The cancel endpoint is cleared
// unconditionally so the registry's no-active-worker invariant holds even if
// the worker already exited. A port with no active loop is a silent no-op;
// an unknown path fails with ErrNotFound.
func (m *Manager) CancelRead(path string) error {
	return m.reg.withPort(path, func(s *session) error {
		if s.cancel != nil {
			s.cancel(errReadCancelled)
			m.metrics.ReadLoopsCancelled.Add(1)
			m.log.Debug().Str("port", path).Msg("read loop cancellation requested")
		}
		s.cancel = nil
		return nil
	})
}

// Write writes text to the port and returns the number of bytes written.
func (m *Manager) Write(path string, text string) (int, error) {
	return m.WriteBinary(path, []byte(text))
}

// WriteBinary writes raw bytes to the port and returns the number of bytes
// written. The device handle is looked up under the registry lock but the
// write itself happens outside it, so a slow device never blocks other
// operations.
func (m *Manager) WriteBinary(path string, data []byte) (int, error) {
	if m.closed.Load() {
		return 0, ErrManagerClosed
	}
	if len(data) == 0 {
		return 0, ErrInvalidBuffer
	}
	if len(data) > m.cfg.MaxWriteSize {
		return 0, fmt.Errorf("%w: write of %d bytes", ErrBufferTooLarge, len(data))
	}

	var h SerialPort
	if err := m.reg.withPort(path, func(s *session) error {
		h = s.handle
		return nil
	}); err != nil {
		return 0, err
	}

	n, err := h.Write(data)
	if err != nil {
		m.metrics.WriteErrors.Add(1)
		return n, fmt.Errorf("writing to %s: %w", path, err)
	}
	m.metrics.WriteOperations.Add(1)
	m.metrics.BytesWritten.Add(int64(n))
	return n, nil
}

// OpenPorts returns the number of currently registered sessions.
func (m *Manager) OpenPorts() int {
	return m.reg.size()
}

// PortInfo describes one open session.
type PortInfo struct {
	Path        string      `json:"path"`
	FlowControl FlowControl `json:"flow_control"`
	Reading     bool        `json:"reading"`
}

// Info reports the state of the session at path, or ErrNotFound.
func (m *Manager) Info(path string) (PortInfo, error) {
	var info PortInfo
	err := m.reg.withPort(path, func(s *session) error {
		info = PortInfo{
			Path:        path,
			FlowControl: s.flow,
			Reading:     s.cancel != nil,
		}
		return nil
	})
	return info, err
}
