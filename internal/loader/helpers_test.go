// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cursedearth/engine/internal/event"
	"github.com/cursedearth/engine/internal/pool"
	"github.com/cursedearth/engine/internal/resource"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const render event.ConsumerID = "render"

type harness struct {
	events *event.Manager
	pool   *pool.Pool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		events: event.NewManagerWithLogger(zerolog.Nop()),
		pool:   pool.New(pool.Config{Workers: 3}),
	}
	t.Cleanup(func() {
		h.pool.Stop()
		h.events.Close()
	})
	return h
}

// settle waits for every pool job and drains the render queue once.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	h.pool.WaitAll()
	require.NoError(t, h.events.ProcessEventsTimeout(render, event.Infinite, event.AllEvents))
}

type fakeOpener struct {
	mu       sync.Mutex
	mobs     map[string]*resource.MobFile
	maps     map[string]*resource.MprFile
	textures map[string]*resource.Texture

	textureOpens atomic.Int32
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{
		mobs:     make(map[string]*resource.MobFile),
		maps:     make(map[string]*resource.MprFile),
		textures: make(map[string]*resource.Texture),
	}
}

func (o *fakeOpener) OpenMob(name string) (*resource.MobFile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mob, ok := o.mobs[name]
	if !ok {
		return nil, fmt.Errorf("open mob %q: %w", name, resource.ErrNotFound)
	}
	return mob, nil
}

func (o *fakeOpener) OpenMpr(name string) (*resource.MprFile, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	mpr, ok := o.maps[name]
	if !ok {
		return nil, fmt.Errorf("open mpr %q: %w", name, resource.ErrNotFound)
	}
	return mpr, nil
}

func (o *fakeOpener) OpenTexture(name string) (*resource.Texture, error) {
	o.textureOpens.Add(1)
	o.mu.Lock()
	defer o.mu.Unlock()
	tex, ok := o.textures[name]
	if !ok {
		return nil, fmt.Errorf("open texture %q: %w", name, resource.ErrNotFound)
	}
	return tex, nil
}

func mobWith(n int) *resource.MobFile {
	mob := &resource.MobFile{Name: "zone"}
	for i := 0; i < n; i++ {
		mob.Objects = append(mob.Objects, resource.MobObject{
			Type:        10,
			Name:        fmt.Sprintf("obj%d", i),
			ModelName:   "hut01",
			Position:    [3]float32{float32(i), 2, 3},
			Rotation:    [4]float32{1, 0, 0, 0},
			Complection: [3]float32{1, 1, 1},
		})
	}
	return mob
}

// figureSink records figures and checks accounting on every call.
type figureSink struct {
	t       *testing.T
	figures []Figure
}

func (s *figureSink) CreateFigure(f *Figure) {
	// the figure being created is not acknowledged yet
	require.Less(s.t, f.Task.Processed(), f.Task.Posted())
	s.figures = append(s.figures, *f)
}

type sectorSink struct {
	sectors []*Sector
}

func (s *sectorSink) AddSector(sec *Sector) {
	s.sectors = append(s.sectors, sec)
}

type recordingObserver struct {
	mu       sync.Mutex
	queued   []Report
	finished []Report
}

func (o *recordingObserver) TaskQueued(r Report) {
	o.mu.Lock()
	o.queued = append(o.queued, r)
	o.mu.Unlock()
}

func (o *recordingObserver) TaskFinished(r Report) {
	o.mu.Lock()
	o.finished = append(o.finished, r)
	o.mu.Unlock()
}

func (o *recordingObserver) finishedReports() []Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Report(nil), o.finished...)
}

// panickingOpener fails every mob open with a panic.
type panickingOpener struct {
	*fakeOpener
}

func (panickingOpener) OpenMob(string) (*resource.MobFile, error) {
	panic("mob decoder bug")
}

// panickingGenerator panics while building sector textures.
type panickingGenerator struct{}

func (panickingGenerator) Generate(*resource.MprFile, []*resource.Texture, int, int, bool) (*resource.Texture, error) {
	panic("generator bug")
}

// heldExecutor keeps enqueued routines until release runs them inline.
type heldExecutor struct {
	fns []func()
}

func (e *heldExecutor) Enqueue(fn func()) error {
	e.fns = append(e.fns, fn)
	return nil
}

func (e *heldExecutor) release() {
	fns := e.fns
	e.fns = nil
	for _, fn := range fns {
		fn()
	}
}
