// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/cursedearth/engine/internal/event"
	"github.com/cursedearth/engine/internal/loader"
	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/metrics"
)

// Consumer is the event queue the journal writes from.
const Consumer event.ConsumerID = "journal"

const writeTimeout = 5 * time.Second

// Journal is a loader.Observer that hands reports to its own event thread,
// so loader workers and the main consumer never wait on disk.
type Journal struct {
	store  *Store
	events *event.Manager
	thread *event.Thread
	logger zerolog.Logger
}

// Start launches the journal thread on events.
func Start(events *event.Manager, store *Store) (*Journal, error) {
	thread, err := event.StartThread(events, Consumer)
	if err != nil {
		return nil, err
	}
	return &Journal{
		store:  store,
		events: events,
		thread: thread,
		logger: cedlog.WithComponent("journal"),
	}, nil
}

// TaskQueued implements loader.Observer.
func (j *Journal) TaskQueued(r loader.Report) {
	j.post(j.writeQueued, r)
}

// TaskFinished implements loader.Observer.
func (j *Journal) TaskFinished(r loader.Report) {
	j.post(j.writeFinished, r)
}

func (j *Journal) post(write func(*loader.Report), r loader.Report) {
	if err := event.PostRaw(j.events, Consumer, write, r); err != nil {
		j.logger.Debug().Err(err).Str(cedlog.FieldTaskID, r.ID.String()).Msg("journal entry dropped")
	}
}

func (j *Journal) writeQueued(r *loader.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	j.record(r, j.store.Queued(ctx, entryOf(r)))
}

func (j *Journal) writeFinished(r *loader.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	j.record(r, j.store.Finished(ctx, entryOf(r)))
}

func (j *Journal) record(r *loader.Report, err error) {
	if err != nil {
		metrics.IncJournalWrite("error")
		j.logger.Warn().Err(err).
			Str(cedlog.FieldTaskID, r.ID.String()).
			Str(cedlog.FieldResource, r.Name).
			Msg("journal write failed")
		return
	}
	metrics.IncJournalWrite("ok")
}

// Recent lists the newest journal entries.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return j.store.Recent(ctx, limit)
}

// Stop flushes pending writes and stops the journal thread. The store stays
// open and is closed by its owner.
func (j *Journal) Stop() {
	j.thread.Stop()
}

func entryOf(r *loader.Report) Entry {
	e := Entry{
		ID:       r.ID.String(),
		Kind:     r.Kind,
		Name:     r.Name,
		Status:   StatusDone,
		Items:    r.Items,
		QueuedAt: r.QueuedAt,
	}
	if r.Err != nil {
		e.Status = StatusFailed
		if errors.Is(r.Err, loader.ErrCancelled) {
			e.Status = StatusCancelled
		}
		e.Error = r.Err.Error()
	}
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt
		e.FinishedAt = &t
	}
	return e
}
