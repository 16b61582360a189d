// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"errors"
	"sync"
	"time"

	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/metrics"
	"github.com/rs/zerolog"
)

// ErrManagerClosed is returned when posting after Close.
var ErrManagerClosed = errors.New("event manager closed")

// Manager routes posted events to the queue of their consumer identity.
// Queues are created lazily and live until Close.
type Manager struct {
	logger zerolog.Logger

	mu     sync.Mutex
	queues []*Queue // linear scan; typically one or two consumers
	closed bool
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return NewManagerWithLogger(cedlog.WithComponent("event"))
}

// NewManagerWithLogger creates an empty registry logging to logger.
func NewManagerWithLogger(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger}
}

// Close terminates every registered queue: undelivered events are
// discarded and blocked consumers wake up and return, as with Interrupt.
// Later posts fail with ErrManagerClosed. Close must not run while a
// consumer is in the middle of a draining pass, since it resets the list
// that pass is consuming; stop draining goroutines first.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	queues := m.queues
	m.queues = nil
	m.mu.Unlock()

	for _, q := range queues {
		q.close()
	}
	metrics.EventQueues.Set(0)
	m.logger.Info().
		Str("event", "event.manager_closed").
		Int("queues", len(queues)).
		Msg("event manager terminated")
}

func (m *Manager) lookup(id ConsumerID) *Queue {
	for _, q := range m.queues {
		if q.consumer == id {
			return q
		}
	}
	return nil
}

// CreateQueue registers a queue for id, returning the existing one if present.
func (m *Manager) CreateQueue(id ConsumerID) (*Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if q := m.lookup(id); q != nil {
		return q, nil
	}
	q := newQueue(id, m.logger)
	m.queues = append(m.queues, q)
	metrics.EventQueues.Set(float64(len(m.queues)))
	m.logger.Info().
		Str("event", "event.queue_created").
		Str(cedlog.FieldConsumer, string(id)).
		Msg("created event queue")
	return q, nil
}

// Queue returns the queue registered for id without creating one.
func (m *Manager) Queue(id ConsumerID) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.lookup(id)
	return q, q != nil
}

// HasPendingEvents reports false when no queue exists for id yet.
func (m *Manager) HasPendingEvents(id ConsumerID) bool {
	q, ok := m.Queue(id)
	if !ok {
		return false
	}
	return q.HasPendingEvents()
}

// ProcessEventsTimeout drains the queue of id on the calling goroutine,
// creating it on first use. It must be called by the consumer id only.
func (m *Manager) ProcessEventsTimeout(id ConsumerID, budget time.Duration, flags Flags) error {
	q, err := m.CreateQueue(id)
	if err != nil {
		return err
	}
	q.ProcessEventsTimeout(budget, flags)
	return nil
}

// ProcessEvents drains the queue of id with an unlimited budget.
func (m *Manager) ProcessEvents(id ConsumerID, flags Flags) error {
	return m.ProcessEventsTimeout(id, Infinite, flags)
}

// Interrupt wakes and stops a draining loop of id. Unknown ids are ignored.
func (m *Manager) Interrupt(id ConsumerID) {
	if q, ok := m.Queue(id); ok {
		q.Interrupt()
	}
}

// PostEvent hands e to the queue of id, creating the queue on first use.
// On error the event is discarded.
func (m *Manager) PostEvent(id ConsumerID, e *Event) error {
	q, err := m.CreateQueue(id)
	if err != nil {
		e.Discard()
		m.logger.Warn().
			Err(err).
			Str("event", "event.post_rejected").
			Str(cedlog.FieldConsumer, string(id)).
			Msg("event posted after manager termination")
		return err
	}
	q.AddEvent(e)
	return nil
}

// PostCall posts a payload-less event running fn on consumer id.
func (m *Manager) PostCall(id ConsumerID, fn func()) error {
	return m.PostEvent(id, NewCall(fn))
}

// PostRaw copies payload into a new event for consumer id.
func PostRaw[T any](m *Manager, id ConsumerID, notify func(*T), payload T) error {
	e, p := New(notify)
	*p = payload
	return m.PostEvent(id, e)
}

// PostPtr posts an event carrying ptr. Ownership of *ptr moves to the consumer.
func PostPtr[T any](m *Manager, id ConsumerID, notify func(*T), ptr *T) error {
	return m.PostEvent(id, &Event{notify: func() { notify(ptr) }})
}
