// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import (
	"context"
	"testing"

	"github.com/cursedearth/engine/internal/event"
	"github.com/cursedearth/engine/internal/pool"
	"github.com/cursedearth/engine/internal/resource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMobLoader(t *testing.T, h *harness, o *fakeOpener, obs Observer) (*MobLoader, *figureSink) {
	t.Helper()
	sink := &figureSink{t: t}
	return NewMobLoader(MobLoaderConfig{
		Consumer: render,
		Events:   h.events,
		Pool:     h.pool,
		Opener:   o,
		Sink:     sink,
		Observer: obs,
	}), sink
}

func TestMobTaskFiveObjectsReleasedOnLastAck(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["zone1"] = mobWith(5)
	l, sink := newMobLoader(t, h, o, nil)

	task, err := l.Load(context.Background(), "zone1")
	require.NoError(t, err)
	assert.Equal(t, JobCounts{Queued: 1}, l.Jobs())
	assert.True(t, l.Registered(task))

	h.settle(t)

	require.Len(t, sink.figures, 5)
	for i, f := range sink.figures {
		assert.Equal(t, mobWith(5).Objects[i].Name, f.Name, "figures keep emission order")
	}
	assert.Equal(t, 5, task.Processed())
	assert.Equal(t, 5, task.Posted())
	assert.False(t, l.Registered(task))
	assert.Empty(t, l.Tasks())
	assert.Equal(t, JobCounts{}, l.Jobs())
	assert.Equal(t, StateDone, task.State())
}

func TestMobFigureWorldTransform(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["zone1"] = &resource.MobFile{Objects: []resource.MobObject{
		{Type: 50, ModelName: "unmoor", Position: [3]float32{1, 2, 3}, Rotation: [4]float32{1, 0, 0, 0},
			Complection: [3]float32{1, 2, 3}, Parts: []string{"hd"}, PrimaryTexture: "a", SecondaryTexture: "b"},
		{Type: 10, ModelName: "hut", Position: [3]float32{1, 2, 3}, Rotation: [4]float32{1, 0, 0, 0}},
	}}
	l, sink := newMobLoader(t, h, o, nil)

	_, err := l.Load(context.Background(), "zone1")
	require.NoError(t, err)
	h.settle(t)

	require.Len(t, sink.figures, 2)
	creature, hut := sink.figures[0], sink.figures[1]

	assert.True(t, creature.Position.ApproxEqual(mgl32.Vec3{1, 4, -2}), "got %v", creature.Position)
	assert.True(t, hut.Position.ApproxEqual(mgl32.Vec3{1, 3, -2}), "got %v", hut.Position)

	want := mgl32.QuatRotate(mgl32.DegToRad(-90), mgl32.Vec3{1, 0, 0})
	assert.True(t, creature.Orientation.ApproxEqual(want), "got %v", creature.Orientation)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, creature.Complection)
	assert.Equal(t, [2]string{"a", "b"}, creature.Textures)
	assert.Equal(t, []string{"hd"}, creature.Parts)
}

func TestWorldOrientationComposesRotation(t *testing.T) {
	yaw := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 0, 1})
	got := WorldOrientation([4]float32{yaw.W, yaw.V[0], yaw.V[1], yaw.V[2]})
	want := mgl32.QuatRotate(mgl32.DegToRad(-90), mgl32.Vec3{1, 0, 0}).Mul(yaw)
	assert.True(t, got.ApproxEqual(want))
}

func TestMobParseFailureCompletesAsFailed(t *testing.T) {
	h := newHarness(t)
	obs := &recordingObserver{}
	l, sink := newMobLoader(t, h, newFakeOpener(), obs)

	task, err := l.Load(context.Background(), "missing")
	require.NoError(t, err)
	h.settle(t)

	assert.Empty(t, sink.figures)
	assert.False(t, l.Registered(task))
	assert.Equal(t, JobCounts{}, l.Jobs())
	assert.Equal(t, StateFailed, task.State())

	reports := obs.finishedReports()
	require.Len(t, reports, 1)
	assert.ErrorIs(t, reports[0].Err, resource.ErrNotFound)
	assert.Equal(t, "missing", reports[0].Name)
	assert.Len(t, obs.queued, 1)
}

func TestMobFailureCountsInWave(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["good"] = mobWith(1)
	l, _ := newMobLoader(t, h, o, nil)

	// a second, never-drained consumer keeps the wave open
	l.jobs.Queue()

	_, err := l.Load(context.Background(), "bad")
	require.NoError(t, err)
	_, err = l.Load(context.Background(), "good")
	require.NoError(t, err)
	h.settle(t)

	assert.Equal(t, JobCounts{Queued: 3, Completed: 2, Failed: 1}, l.Jobs())
}

func TestMobZeroObjectsCompletes(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["empty"] = mobWith(0)
	l, sink := newMobLoader(t, h, o, nil)

	task, err := l.Load(context.Background(), "empty")
	require.NoError(t, err)
	h.pool.WaitAll()
	assert.True(t, l.Registered(task), "completion waits for the consumer")

	h.settle(t)
	assert.Empty(t, sink.figures)
	assert.False(t, l.Registered(task))
	assert.Equal(t, JobCounts{}, l.Jobs())
	assert.Equal(t, StateDone, task.State())
}

func TestMobClearIgnoresQueuedFigures(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["zone1"] = mobWith(3)
	l, sink := newMobLoader(t, h, o, nil)

	task, err := l.Load(context.Background(), "zone1")
	require.NoError(t, err)
	h.pool.WaitAll()

	assert.Equal(t, 1, l.Clear())
	assert.True(t, task.Cancelled())
	h.settle(t)

	assert.Empty(t, sink.figures)
	assert.Zero(t, task.Processed())
	assert.Equal(t, JobCounts{}, l.Jobs())
	assert.Equal(t, StateCancelled, task.State())
}

func TestMobPanicFailsTask(t *testing.T) {
	h := newHarness(t)
	obs := &recordingObserver{}
	l := NewMobLoader(MobLoaderConfig{
		Consumer: render,
		Events:   h.events,
		Pool:     h.pool,
		Opener:   panickingOpener{newFakeOpener()},
		Observer: obs,
	})

	task, err := l.Load(context.Background(), "zone1")
	require.NoError(t, err)
	h.settle(t)

	assert.False(t, l.Registered(task))
	assert.Equal(t, JobCounts{}, l.Jobs(), "wave closes")
	assert.Equal(t, StateFailed, task.State())

	reports := obs.finishedReports()
	require.Len(t, reports, 1)
	assert.ErrorIs(t, reports[0].Err, ErrPanicked)
	assert.Contains(t, reports[0].Err.Error(), "mob decoder bug")
}

func TestMobPostAfterManagerCloseSettlesTask(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["zone1"] = mobWith(3)
	exec := &heldExecutor{}
	obs := &recordingObserver{}
	l := NewMobLoader(MobLoaderConfig{
		Consumer: render,
		Events:   h.events,
		Pool:     exec,
		Opener:   o,
		Observer: obs,
	})

	task, err := l.Load(context.Background(), "zone1")
	require.NoError(t, err)
	h.events.Close()
	exec.release()

	assert.Zero(t, task.Posted())
	assert.False(t, l.Registered(task))
	assert.Equal(t, JobCounts{}, l.Jobs())
	assert.Equal(t, StateFailed, task.State())

	reports := obs.finishedReports()
	require.Len(t, reports, 1)
	assert.ErrorIs(t, reports[0].Err, event.ErrManagerClosed)
}

func TestMobClearReportsCancelled(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["zone1"] = mobWith(2)
	obs := &recordingObserver{}
	l, _ := newMobLoader(t, h, o, obs)

	task, err := l.Load(context.Background(), "zone1")
	require.NoError(t, err)
	h.pool.WaitAll()
	l.Close()
	h.settle(t)

	reports := obs.finishedReports()
	require.Len(t, reports, 1)
	assert.Equal(t, task.ID(), reports[0].ID)
	assert.ErrorIs(t, reports[0].Err, ErrCancelled)
	assert.False(t, reports[0].FinishedAt.IsZero())
}

func TestMobLoadAfterClose(t *testing.T) {
	h := newHarness(t)
	l, _ := newMobLoader(t, h, newFakeOpener(), nil)
	l.Close()

	_, err := l.Load(context.Background(), "zone1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMobLoadOnStoppedPool(t *testing.T) {
	h := newHarness(t)
	h.pool.Stop()
	obs := &recordingObserver{}
	l, _ := newMobLoader(t, h, newFakeOpener(), obs)

	task, err := l.Load(context.Background(), "zone1")
	assert.ErrorIs(t, err, pool.ErrPoolStopped)
	assert.Nil(t, task)
	assert.Empty(t, l.Tasks())
	assert.Equal(t, JobCounts{}, l.Jobs())
	require.Len(t, obs.finishedReports(), 1)
}

func TestMobTasksSnapshot(t *testing.T) {
	h := newHarness(t)
	o := newFakeOpener()
	o.mobs["zone1"] = mobWith(2)
	l, _ := newMobLoader(t, h, o, nil)

	task, err := l.Load(context.Background(), "zone1")
	require.NoError(t, err)
	h.pool.WaitAll()

	infos := l.Tasks()
	require.Len(t, infos, 1)
	assert.Equal(t, task.ID().String(), infos[0].ID)
	assert.Equal(t, KindMob, infos[0].Kind)
	assert.Equal(t, 2, infos[0].Posted)
	assert.Equal(t, "awaiting", infos[0].State)

	h.settle(t)
	assert.Empty(t, l.Tasks())
}
