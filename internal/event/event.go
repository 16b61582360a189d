// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

// ConsumerID identifies the goroutine that drains a queue (e.g. "render").
type ConsumerID string

// Event is one unit of cross-goroutine work completion: a payload bound to
// the callback that consumes it. An Event is not safe for concurrent use;
// ownership moves from the producer to the queue on post.
type Event struct {
	notify func()
}

// New allocates a zeroed payload of type T and binds notify to it. The
// producer fills the payload through the returned pointer before posting.
func New[T any](notify func(*T)) (*Event, *T) {
	payload := new(T)
	return &Event{notify: func() { notify(payload) }}, payload
}

// NewCall returns an event without payload.
func NewCall(fn func()) *Event {
	return &Event{notify: fn}
}

// Notify runs the callback and releases the payload. Subsequent calls are no-ops.
func (e *Event) Notify() {
	fn := e.notify
	e.notify = nil
	if fn != nil {
		fn()
	}
}

// Discard releases the payload of an event that will never be notified.
func (e *Event) Discard() {
	e.notify = nil
}

// Consumed reports whether the event was notified or discarded.
func (e *Event) Consumed() bool {
	return e.notify == nil
}
