// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cursedearth/engine/internal/metrics"
	"github.com/cursedearth/engine/internal/timer"
	"github.com/rs/zerolog"
)

// Infinite is a drain budget that never expires.
const Infinite = time.Duration(math.MaxInt64)

// Flags select the draining behaviour of ProcessEvents calls.
type Flags uint8

const (
	// AllEvents drains what is pending within the budget and returns.
	AllEvents Flags = 0
	// WaitForMoreEvents keeps draining and blocks while idle until the
	// queue is interrupted.
	WaitForMoreEvents Flags = 1 << 0
)

// Queue is the per-consumer FIFO of posted events.
type Queue struct {
	consumer ConsumerID
	logger   zerolog.Logger

	mu          sync.Mutex
	cond        *sync.Cond
	pending     []*Event
	count       int // posted and not yet processed
	interrupted bool
	closed      bool

	// consumer-only state
	sending  []*Event
	sendHead int
	timer    *timer.Timer
}

func newQueue(consumer ConsumerID, logger zerolog.Logger) *Queue {
	q := &Queue{
		consumer: consumer,
		logger:   logger.With().Str("consumer", string(consumer)).Logger(),
		timer:    timer.New(),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Consumer returns the identity that drains this queue.
func (q *Queue) Consumer() ConsumerID {
	return q.consumer
}

// HasPendingEvents reports whether posted events are waiting to be processed.
func (q *Queue) HasPendingEvents() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count != 0
}

// Len returns the number of posted but unprocessed events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// AddEvent appends e to the pending list and wakes every waiting consumer.
// Events added to a closed queue are discarded.
func (q *Queue) AddEvent(e *Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		e.Discard()
		metrics.AddEventsDiscarded(string(q.consumer), 1)
		return
	}
	q.pending = append(q.pending, e)
	q.count++
	depth := q.count
	q.cond.Broadcast()
	q.mu.Unlock()

	metrics.IncEventPosted(string(q.consumer))
	metrics.SetEventQueueDepth(string(q.consumer), depth)
}

// Interrupt makes a draining loop exit instead of waiting. It is one-way.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	q.interrupted = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Interrupted reports whether Interrupt has been called.
func (q *Queue) Interrupted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.interrupted
}

// ProcessEvents drains with an unlimited budget.
func (q *Queue) ProcessEvents(flags Flags) {
	q.ProcessEventsTimeout(Infinite, flags)
}

// ProcessEventsTimeout runs notify callbacks on the calling goroutine.
//
// The budget is checked between callbacks, never during one, and at least
// one event is processed per pass when any is visible. With AllEvents the
// call returns once nothing is pending or the budget is spent. With
// WaitForMoreEvents each pass gets a fresh budget and the call blocks while
// idle, returning only after Interrupt.
func (q *Queue) ProcessEventsTimeout(budget time.Duration, flags Flags) {
	wait := flags&WaitForMoreEvents != 0
	var spent time.Duration

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.sendHead == len(q.sending) {
			q.pending, q.sending = q.sending[:0], q.pending
			q.sendHead = 0
		}

		if q.sendHead < len(q.sending) {
			limit := budget
			if !wait {
				limit = budget - spent
			}
			q.mu.Unlock()
			n, d := q.drain(limit)
			q.mu.Lock()
			q.count -= n
			spent += d
			metrics.SetEventQueueDepth(string(q.consumer), q.count)
		}

		if q.interrupted || q.closed {
			break
		}

		if !wait {
			if q.count == 0 || spent >= budget {
				break
			}
			continue
		}

		if q.count == 0 {
			q.cond.Wait()
		}
	}
}

// drain pops from sending until it is empty or limit is reached. It runs
// without the queue lock.
func (q *Queue) drain(limit time.Duration) (int, time.Duration) {
	q.timer.Start()
	var elapsed time.Duration
	n := 0
	for q.sendHead < len(q.sending) && (n == 0 || elapsed < limit) {
		e := q.sending[q.sendHead]
		q.sending[q.sendHead] = nil
		q.sendHead++
		q.dispatch(e)
		n++
		elapsed += q.timer.Advance()
	}
	if q.sendHead == len(q.sending) {
		q.sending = q.sending[:0]
		q.sendHead = 0
	}
	metrics.AddEventsProcessed(string(q.consumer), n)
	metrics.ObserveEventDrain(string(q.consumer), elapsed)
	return n, elapsed
}

func (q *Queue) dispatch(e *Event) {
	defer func() {
		if r := recover(); r != nil {
			e.Discard()
			metrics.IncEventPanic(string(q.consumer))
			q.logger.Error().
				Str("event", "event.notify_panic").
				Str("panic", fmt.Sprint(r)).
				Msg("notify callback panicked")
		}
	}()
	e.Notify()
}

// close discards whatever is still queued and rejects later posts.
func (q *Queue) close() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0
	}
	q.closed = true

	dropped := 0
	for _, e := range q.sending[q.sendHead:] {
		e.Discard()
		dropped++
	}
	for _, e := range q.pending {
		e.Discard()
		dropped++
	}
	q.sending, q.pending = nil, nil
	q.sendHead = 0
	q.count = 0
	q.cond.Broadcast()

	if dropped > 0 {
		metrics.AddEventsDiscarded(string(q.consumer), dropped)
		q.logger.Warn().
			Str("event", "event.queue_closed_undrained").
			Int("dropped", dropped).
			Msg("queue closed with undelivered events")
	}
	metrics.SetEventQueueDepth(string(q.consumer), 0)
	return dropped
}
