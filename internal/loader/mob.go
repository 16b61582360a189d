// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import (
	"context"
	"fmt"

	"github.com/cursedearth/engine/internal/event"
	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/metrics"
	"github.com/cursedearth/engine/internal/resource"
	"github.com/cursedearth/engine/internal/telemetry"
	"github.com/go-gl/mathgl/mgl32"
)

// KindMob labels mob loading in logs, metrics and the journal.
const KindMob = "mob"

// MobOpener parses mob files.
type MobOpener interface {
	OpenMob(name string) (*resource.MobFile, error)
}

// Figure is the payload posted for one mob object, in world space.
// Parts and Textures reference the task's parsed file; they are valid
// while the figure's notify runs and must be copied to be kept.
type Figure struct {
	Task        *Task
	Type        uint32
	Name        string
	ModelName   string
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Complection mgl32.Vec3
	Parts       []string
	Textures    [2]string
}

// FigureSink creates scene entities. It is called on the consumer.
type FigureSink interface {
	CreateFigure(f *Figure)
}

// MobLoaderConfig wires a MobLoader.
type MobLoaderConfig struct {
	Consumer event.ConsumerID
	Events   *event.Manager
	Pool     Executor
	Opener   MobOpener
	Sink     FigureSink
	Observer Observer
}

// MobLoader loads mob files and posts one Figure per placed object.
type MobLoader struct {
	*tracker
	opener MobOpener
	sink   FigureSink
}

// NewMobLoader creates a MobLoader.
func NewMobLoader(cfg MobLoaderConfig) *MobLoader {
	return &MobLoader{
		tracker: newTracker(KindMob, cfg.Consumer, cfg.Events, cfg.Pool, cfg.Observer),
		opener:  cfg.Opener,
		sink:    cfg.Sink,
	}
}

// Load requests name. It never blocks on parsing; progress is visible
// through Jobs and the returned Task.
func (l *MobLoader) Load(ctx context.Context, name string) (*Task, error) {
	return l.start(ctx, name, l.exec)
}

// Jobs returns the counters of the current wave.
func (l *MobLoader) Jobs() JobCounts { return l.jobs.Snapshot() }

// Tasks lists registered tasks.
func (l *MobLoader) Tasks() []TaskInfo { return l.snapshot() }

// Registered reports whether t has not been released yet.
func (l *MobLoader) Registered(t *Task) bool { return l.registered(t) }

// Clear drops every registered task, e.g. when the scene is reset.
func (l *MobLoader) Clear() int { return l.clear(false) }

// Close drops every registered task and rejects later loads.
func (l *MobLoader) Close() { l.clear(true) }

func (l *MobLoader) exec(ctx context.Context, t *Task) {
	ctx, span := telemetry.StartTask(ctx, l.tracer, t.kind, t.name, t.id.String())
	logger := l.taskLogger(ctx)
	t.setState(StateRunning)

	mob, err := l.opener.OpenMob(t.name)
	if err != nil {
		telemetry.EndTask(span, 0, err)
		l.postFinish(ctx, t, err)
		return
	}

	n := len(mob.Objects)
	t.posted.Store(int64(n))
	logger.Info().
		Str(cedlog.FieldEvent, "loader.mob_parsed").
		Int(cedlog.FieldObjects, n).
		Msg("posting figure events")

	if n == 0 {
		telemetry.EndTask(span, 0, nil)
		l.postFinish(ctx, t, nil)
		return
	}

	t.setState(StatePosting)
	for i := range mob.Objects {
		f := newFigure(t, &mob.Objects[i])
		if err := event.PostPtr(l.events, l.consumer, l.react, f); err != nil {
			logger.Warn().Err(err).
				Str(cedlog.FieldEvent, "loader.post_failed").
				Int("index", i).
				Msg("figure event dropped")
			err = fmt.Errorf("post figure %d of %s: %w", i, t.name, err)
			telemetry.EndTask(span, i, err)
			l.dropped(ctx, t, i, err)
			return
		}
		metrics.LoaderItemsPostedTotal.WithLabelValues(KindMob).Inc()
	}
	t.advance(StatePosting, StateAwaiting)
	telemetry.EndTask(span, n, nil)
}

func newFigure(t *Task, obj *resource.MobObject) *Figure {
	return &Figure{
		Task:        t,
		Type:        obj.Type,
		Name:        obj.Name,
		ModelName:   obj.ModelName,
		Position:    WorldPosition(obj.Position, obj.Type),
		Orientation: WorldOrientation(obj.Rotation),
		Complection: mgl32.Vec3(obj.Complection),
		Parts:       obj.Parts,
		Textures:    [2]string{obj.PrimaryTexture, obj.SecondaryTexture},
	}
}

// react runs on the consumer for each posted figure.
func (l *MobLoader) react(f *Figure) {
	t := f.Task
	if t.Cancelled() {
		return
	}
	if l.sink != nil {
		l.sink.CreateFigure(f)
	}
	if l.ack(t) {
		l.finish(t, t.err())
	}
}
