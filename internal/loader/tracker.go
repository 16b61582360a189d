// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cursedearth/engine/internal/event"
	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/metrics"
	"github.com/cursedearth/engine/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("loader closed")
	// ErrCancelled is reported for tasks dropped by Clear or Close.
	ErrCancelled = errors.New("load cancelled")
	// ErrPanicked wraps a panic recovered from a task or sector body.
	ErrPanicked = errors.New("loader body panicked")
)

// Executor runs task bodies off the consumer goroutine.
type Executor interface {
	Enqueue(fn func()) error
}

// tracker is the task registry and wave accounting shared by loaders.
type tracker struct {
	kind     string
	consumer event.ConsumerID
	events   *event.Manager
	pool     Executor
	observer Observer
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	jobs Jobs

	mu     sync.Mutex
	tasks  []*Task
	closed bool
}

func newTracker(kind string, consumer event.ConsumerID, events *event.Manager, pool Executor, observer Observer) *tracker {
	if observer == nil {
		observer = nopObserver{}
	}
	return &tracker{
		kind:     kind,
		consumer: consumer,
		events:   events,
		pool:     pool,
		observer: observer,
		logger:   cedlog.WithComponent("loader").With().Str(cedlog.FieldKind, kind).Logger(),
		tracer:   telemetry.Tracer("github.com/cursedearth/engine/internal/loader"),
		now:      time.Now,
	}
}

func (tr *tracker) report(t *Task, err error) Report {
	return Report{
		ID:       t.id,
		Kind:     t.kind,
		Name:     t.name,
		Items:    t.Posted(),
		QueuedAt: t.queuedAt,
		Err:      err,
	}
}

// start registers a task for name, queues its job and enqueues exec.
func (tr *tracker) start(ctx context.Context, name string, exec func(context.Context, *Task)) (*Task, error) {
	t := newTask(tr.kind, name, tr.now())

	tr.mu.Lock()
	if tr.closed {
		tr.mu.Unlock()
		return nil, ErrClosed
	}
	tr.tasks = append(tr.tasks, t)
	tr.jobs.Queue()
	tr.mu.Unlock()

	metrics.LoaderTasksActive.WithLabelValues(tr.kind).Inc()
	metrics.IncLoaderJob(tr.kind, "queued")
	tr.observer.TaskQueued(tr.report(t, nil))

	ctx = cedlog.ContextWithTaskID(ctx, t.id.String())
	ctx = cedlog.ContextWithResource(ctx, name)
	if err := tr.pool.Enqueue(func() { tr.run(ctx, t, exec) }); err != nil {
		err = fmt.Errorf("enqueue %s task %q: %w", tr.kind, name, err)
		tr.finish(t, err)
		return nil, err
	}

	tr.logger.Info().
		Str(cedlog.FieldEvent, "loader.task_queued").
		Str(cedlog.FieldTaskID, t.id.String()).
		Str(cedlog.FieldResource, name).
		Msg("load queued")
	return t, nil
}

// run executes a task body. A panic fails the task instead of leaving its
// job queued forever.
func (tr *tracker) run(ctx context.Context, t *Task, exec func(context.Context, *Task)) {
	defer func() {
		if r := recover(); r != nil {
			tr.postFinish(ctx, t, panicError(r))
		}
	}()
	exec(ctx, t)
}

func panicError(r any) error {
	return fmt.Errorf("%w: %v", ErrPanicked, r)
}

func (tr *tracker) taskLogger(ctx context.Context) zerolog.Logger {
	return cedlog.WithContext(ctx, tr.logger)
}

// ack records one processed item on the consumer and reports whether it
// was the last one.
func (tr *tracker) ack(t *Task) bool {
	if t.Cancelled() {
		return false
	}
	return t.processed.Add(1) == t.posted.Load()
}

// finish unregisters t and completes its job. Consumer goroutine only,
// except for synchronous enqueue failures in start and posts rejected by a
// closed manager. A second call for the same task is a no-op.
func (tr *tracker) finish(t *Task, err error) {
	if err != nil {
		t.fail(err)
	}
	err = t.err()
	if t.Cancelled() || !tr.remove(t) {
		return
	}
	if err != nil {
		t.setState(StateFailed)
	} else {
		t.setState(StateDone)
	}

	closed := tr.jobs.Complete(err != nil)
	metrics.LoaderTasksActive.WithLabelValues(tr.kind).Dec()

	rep := tr.report(t, err)
	rep.FinishedAt = tr.now()
	tr.observer.TaskFinished(rep)

	logger := tr.logger.With().
		Str(cedlog.FieldTaskID, t.id.String()).
		Str(cedlog.FieldResource, t.name).
		Int(cedlog.FieldPosted, t.Posted()).
		Int(cedlog.FieldProcessed, t.Processed()).
		Logger()
	if err != nil {
		metrics.IncLoaderJob(tr.kind, "failed")
		logger.Error().Err(err).
			Str(cedlog.FieldEvent, "loader.task_failed").
			Msg("could not load resource")
	} else {
		metrics.IncLoaderJob(tr.kind, "completed")
		logger.Info().
			Str(cedlog.FieldEvent, "loader.task_done").
			Dur("duration", rep.FinishedAt.Sub(t.queuedAt)).
			Msg("done loading")
	}
	if closed {
		tr.logger.Debug().
			Str(cedlog.FieldEvent, "loader.wave_done").
			Msg("all queued jobs completed")
	}
}

// postFinish moves completion of t to the consumer goroutine. A zero-item
// task uses it with a nil error, a failed task with the failure. Once the
// manager is closed no consumer is left, so t is finished right here.
func (tr *tracker) postFinish(ctx context.Context, t *Task, err error) {
	if err != nil {
		t.fail(err)
	}
	if perr := tr.events.PostCall(tr.consumer, func() { tr.finish(t, err) }); perr != nil {
		logger := tr.taskLogger(ctx)
		logger.Warn().Err(perr).
			Str(cedlog.FieldEvent, "loader.finish_unposted").
			Msg("event manager closed, finishing task in place")
		if err == nil {
			err = perr
		}
		tr.finish(t, err)
	}
}

// dropped settles a task whose item at index posted could not be posted.
// Items already posted may still be acknowledged; whichever side runs
// last completes the task, with err as its outcome.
func (tr *tracker) dropped(ctx context.Context, t *Task, posted int, err error) {
	t.fail(err)
	t.posted.Store(int64(posted))
	tr.postFinish(ctx, t, err)
}

func (tr *tracker) remove(t *Task) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i, x := range tr.tasks {
		if x == t {
			tr.tasks = append(tr.tasks[:i], tr.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// registered reports whether t is still in the registry.
func (tr *tracker) registered(t *Task) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, x := range tr.tasks {
		if x == t {
			return true
		}
	}
	return false
}

// clear cancels every registered task and drops the current wave. Events
// still queued for cancelled tasks are ignored when they run.
func (tr *tracker) clear(closing bool) int {
	tr.mu.Lock()
	tasks := tr.tasks
	tr.tasks = nil
	if closing {
		tr.closed = true
	}
	tr.jobs.Reset()
	tr.mu.Unlock()

	for _, t := range tasks {
		t.cancelled.Store(true)
		t.setState(StateCancelled)
		metrics.IncLoaderJob(tr.kind, "cancelled")

		rep := tr.report(t, ErrCancelled)
		rep.FinishedAt = tr.now()
		tr.observer.TaskFinished(rep)
	}
	metrics.LoaderTasksActive.WithLabelValues(tr.kind).Set(0)
	if len(tasks) > 0 {
		tr.logger.Info().
			Str(cedlog.FieldEvent, "loader.cleared").
			Int("tasks", len(tasks)).
			Msg("dropped registered tasks")
	}
	return len(tasks)
}

func (tr *tracker) snapshot() []TaskInfo {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]TaskInfo, 0, len(tr.tasks))
	for _, t := range tr.tasks {
		out = append(out, t.Info())
	}
	return out
}
