// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle position of a Task.
type TaskState int32

const (
	StateQueued TaskState = iota
	StateRunning
	StatePosting
	StateAwaiting
	StateDone
	StateFailed
	StateCancelled
)

func (s TaskState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StatePosting:
		return "posting"
	case StateAwaiting:
		return "awaiting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Task tracks one load request. Posted is written once on the worker
// before the first item is posted; Processed only grows on the consumer.
type Task struct {
	id       uuid.UUID
	kind     string
	name     string
	queuedAt time.Time

	state     atomic.Int32
	posted    atomic.Int64
	processed atomic.Int64
	cancelled atomic.Bool
	failure   atomic.Pointer[error]
}

func newTask(kind, name string, now time.Time) *Task {
	return &Task{id: uuid.New(), kind: kind, name: name, queuedAt: now}
}

func (t *Task) ID() uuid.UUID       { return t.id }
func (t *Task) Kind() string        { return t.kind }
func (t *Task) Name() string        { return t.name }
func (t *Task) QueuedAt() time.Time { return t.queuedAt }
func (t *Task) State() TaskState    { return TaskState(t.state.Load()) }
func (t *Task) Posted() int         { return int(t.posted.Load()) }
func (t *Task) Processed() int      { return int(t.processed.Load()) }

// Cancelled reports whether the task was dropped by Clear or Close.
func (t *Task) Cancelled() bool { return t.cancelled.Load() }

// fail records err as the outcome reported when t completes. The first
// recorded error wins.
func (t *Task) fail(err error) {
	t.failure.CompareAndSwap(nil, &err)
}

func (t *Task) err() error {
	if p := t.failure.Load(); p != nil {
		return *p
	}
	return nil
}

func (t *Task) setState(s TaskState) {
	t.state.Store(int32(s))
}

func (t *Task) advance(from, to TaskState) {
	t.state.CompareAndSwap(int32(from), int32(to))
}

// TaskInfo is a point-in-time view of a Task.
type TaskInfo struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Posted    int       `json:"posted"`
	Processed int       `json:"processed"`
	QueuedAt  time.Time `json:"queued_at"`
}

// Info snapshots the task.
func (t *Task) Info() TaskInfo {
	return TaskInfo{
		ID:        t.id.String(),
		Kind:      t.kind,
		Name:      t.name,
		State:     t.State().String(),
		Posted:    t.Posted(),
		Processed: t.Processed(),
		QueuedAt:  t.queuedAt,
	}
}

// Report describes a task transition to an Observer.
type Report struct {
	ID         uuid.UUID
	Kind       string
	Name       string
	Items      int
	QueuedAt   time.Time
	FinishedAt time.Time
	Err        error
}

// Observer is told about queued and finished tasks. TaskFinished runs on
// the consumer goroutine and must not block.
type Observer interface {
	TaskQueued(Report)
	TaskFinished(Report)
}

type nopObserver struct{}

func (nopObserver) TaskQueued(Report)   {}
func (nopObserver) TaskFinished(Report) {}
