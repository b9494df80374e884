package sensor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/magnetometer/internal/lifecycle"
)

// Listener receives every reading emitted while it is registered
type Listener func(Reading)

// EventListener receives session state changes
type EventListener func(SessionEvent)

// Manager mediates between client requests, the sensor source and host
// lifecycle signals. All state, configuration and listener dispatch is owned by
// a single delivery goroutine. Listener callbacks run on that goroutine and must
// not call back into the Manager synchronously.
type Manager struct {
	source      Source
	unsubscribe func()

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by the delivery goroutine
	state      State
	frequency  float64
	session    *Session
	readings   uint64
	generation uint64
	nextID     uint64
	listeners  map[uint64]Listener
	observers  map[uint64]EventListener
}

// NewManager creates a manager in the Idle state and subscribes it to the
// notifier until Close. notifier may be nil.
func NewManager(source Source, notifier Notifier) *Manager {
	m := &Manager{
		source:      source,
		unsubscribe: func() {},
		ops:         make(chan func()),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		state:       StateIdle,
		listeners:   make(map[uint64]Listener),
		observers:   make(map[uint64]EventListener),
	}
	go m.run()

	if notifier != nil {
		m.unsubscribe = notifier.Subscribe(m.handleLifecycle)
	}
	return m
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		select {
		case op := <-m.ops:
			op()
		case <-m.quit:
			return
		}
	}
}

// do runs fn on the delivery goroutine and waits for it to finish
func (m *Manager) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}

	select {
	case m.ops <- op:
	case <-m.quit:
		return ErrManagerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// post queues fn on the delivery goroutine without waiting for it to run
func (m *Manager) post(fn func()) {
	select {
	case m.ops <- fn:
	case <-m.quit:
	}
}

// Start begins continuous sampling at frequencyHz. A non-positive or non-finite
// frequency falls back to DefaultFrequency. Starting an already running session
// replaces its configuration and restarts sampling.
func (m *Manager) Start(ctx context.Context, frequencyHz float64) (*Session, error) {
	var session *Session
	var err error
	if opErr := m.do(ctx, func() { session, err = m.start(frequencyHz) }); opErr != nil {
		return nil, opErr
	}
	return session, err
}

// Stop ends sampling from any state. Stopping an idle manager is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	return m.do(ctx, func() { m.stop() })
}

// Echo returns value unchanged
func (m *Manager) Echo(value string) string {
	return value
}

// Status returns a snapshot of the current session
func (m *Manager) Status(ctx context.Context) (Status, error) {
	var st Status
	err := m.do(ctx, func() {
		st = Status{
			State:     m.state,
			Listeners: len(m.listeners),
		}
		if m.session != nil {
			st.Frequency = m.frequency
			st.SessionID = m.session.ID
			st.Readings = m.readings
		}
	})
	return st, err
}

// AddListener registers fn for magnetometer readings. The returned function
// deregisters it and may be called more than once.
func (m *Manager) AddListener(fn Listener) (remove func()) {
	var id uint64
	if err := m.do(context.Background(), func() {
		m.nextID++
		id = m.nextID
		m.listeners[id] = fn
	}); err != nil {
		return func() {}
	}
	return func() {
		_ = m.do(context.Background(), func() { delete(m.listeners, id) })
	}
}

// OnSessionEvent registers fn for session state changes
func (m *Manager) OnSessionEvent(fn EventListener) (remove func()) {
	var id uint64
	if err := m.do(context.Background(), func() {
		m.nextID++
		id = m.nextID
		m.observers[id] = fn
	}); err != nil {
		return func() {}
	}
	return func() {
		_ = m.do(context.Background(), func() { delete(m.observers, id) })
	}
}

// Close stops sampling, releases the lifecycle subscription and shuts down the
// delivery goroutine.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		_ = m.do(context.Background(), func() { m.stop() })
		close(m.quit)
		<-m.done
	})
	return nil
}

func (m *Manager) start(hz float64) (*Session, error) {
	if !m.source.Available() {
		log.Warn().Str("state", m.state.String()).Msg("Start rejected, magnetometer not available")
		return nil, ErrSensorUnavailable
	}
	if m.state != StateIdle {
		m.stop()
	}

	hz = NormalizeFrequency(hz)
	m.frequency = hz
	m.session = newSession(hz)
	m.readings = 0
	m.beginSampling()
	m.state = StateActive

	log.Info().Str("sessionID", m.session.ID).Float64("frequency", hz).Dur("interval", Interval(hz)).Msg("Magnetometer updates started")
	m.emit(EventStarted, StateIdle, nil)
	return m.session, nil
}

func (m *Manager) stop() {
	if m.state == StateIdle {
		return
	}
	from := m.state
	m.haltSampling()
	m.state = StateIdle

	log.Info().Str("sessionID", m.session.ID).Uint64("readings", m.readings).Msg("Magnetometer updates stopped")
	m.emit(EventStopped, from, nil)
	m.session = nil
}

func (m *Manager) handleLifecycle(e lifecycle.Event) {
	m.post(func() {
		switch e {
		case lifecycle.EnteredBackground:
			if m.state != StateActive {
				return
			}
			m.haltSampling()
			m.state = StateSuspended
			log.Info().Str("sessionID", m.session.ID).Msg("Magnetometer updates suspended")
			m.emit(EventSuspended, StateActive, nil)
		case lifecycle.BecameActive:
			if m.state != StateSuspended {
				return
			}
			m.beginSampling()
			m.state = StateActive
			log.Info().Str("sessionID", m.session.ID).Float64("frequency", m.frequency).Msg("Magnetometer updates resumed")
			m.emit(EventResumed, StateSuspended, nil)
		}
	})
}

// beginSampling applies the stored frequency and starts the source. Callbacks
// are tagged with a generation so that samples from a stopped run are dropped.
func (m *Manager) beginSampling() {
	m.generation++
	gen := m.generation
	m.source.SetUpdateInterval(Interval(m.frequency))
	m.source.StartUpdates(func(r Reading, err error) {
		m.post(func() { m.deliver(gen, r, err) })
	})
}

func (m *Manager) haltSampling() {
	m.generation++
	m.source.StopUpdates()
}

func (m *Manager) deliver(gen uint64, r Reading, err error) {
	if gen != m.generation || m.state != StateActive {
		return
	}
	if err != nil {
		if wrapped := m.session.reportSampleError(err); wrapped != nil {
			log.Error().Err(err).Str("sessionID", m.session.ID).Msg("Magnetometer sample failed")
			m.emit(EventSampleError, StateActive, wrapped)
		}
		return
	}

	m.readings++
	for _, fn := range m.listeners {
		fn(r)
	}
}

func (m *Manager) emit(kind EventKind, from State, err error) {
	if len(m.observers) == 0 {
		return
	}
	ev := SessionEvent{
		Kind:      kind,
		SessionID: m.session.ID,
		From:      from,
		To:        m.state,
		Frequency: m.frequency,
		Readings:  m.readings,
		Err:       err,
		At:        time.Now(),
	}
	for _, fn := range m.observers {
		fn(ev)
	}
}
