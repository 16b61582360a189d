// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scene

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cursedearth/engine/internal/event"
	"github.com/cursedearth/engine/internal/loader"
	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxIdleWait bounds how long Advance sleeps on the pool while loading.
const maxIdleWait = 100 * time.Millisecond

// State is the scene manager state.
type State int32

const (
	StateReady State = iota
	StateLoading
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Waiter blocks until background work makes progress.
type Waiter interface {
	WaitOneTimeout(d time.Duration) bool
}

// ManagerConfig wires a Manager. Mobs and Terrain must post to Consumer and
// use the manager's Scene as their sink.
type ManagerConfig struct {
	Consumer event.ConsumerID
	Events   *event.Manager
	Pool     Waiter
	Mobs     *loader.MobLoader
	Terrain  *loader.TerrainLoader
	Scene    *Scene
	// ProgressLogInterval throttles loading progress log lines.
	ProgressLogInterval time.Duration
}

// Manager drives loading from the render goroutine: each frame it drains
// the render queue, tracks progress over both loaders and switches to
// playing once every queued job has completed.
type Manager struct {
	consumer event.ConsumerID
	events   *event.Manager
	pool     Waiter
	mobs     *loader.MobLoader
	terrain  *loader.TerrainLoader
	scene    *Scene
	logger   zerolog.Logger
	limiter  *rate.Limiter

	state    atomic.Int32
	progress atomic.Uint64 // math.Float64bits
	summary  atomic.Pointer[Summary]

	mu        sync.Mutex
	listeners []func(old, new State)
}

// NewManager creates a Manager in the ready state.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Scene == nil {
		cfg.Scene = New()
	}
	if cfg.ProgressLogInterval <= 0 {
		cfg.ProgressLogInterval = time.Second
	}
	m := &Manager{
		consumer: cfg.Consumer,
		events:   cfg.Events,
		pool:     cfg.Pool,
		mobs:     cfg.Mobs,
		terrain:  cfg.Terrain,
		scene:    cfg.Scene,
		logger:   cedlog.WithComponent("scene"),
		limiter:  rate.NewLimiter(rate.Every(cfg.ProgressLogInterval), 1),
	}
	m.progress.Store(math.Float64bits(1))
	m.summary.Store(&Summary{})
	return m
}

// Scene returns the render-owned scene.
func (m *Manager) Scene() *Scene { return m.scene }

// State returns the current state. Safe from any goroutine.
func (m *Manager) State() State { return State(m.state.Load()) }

// Progress returns the last computed loading ratio in [0, 1]. Safe from any
// goroutine.
func (m *Manager) Progress() float64 { return math.Float64frombits(m.progress.Load()) }

// Summary returns the scene counts as of the last frame. Safe from any
// goroutine.
func (m *Manager) Summary() Summary { return *m.summary.Load() }

// Jobs sums the waves of both loaders.
func (m *Manager) Jobs() loader.JobCounts {
	var c loader.JobCounts
	if m.mobs != nil {
		c = c.Add(m.mobs.Jobs())
	}
	if m.terrain != nil {
		c = c.Add(m.terrain.Jobs())
	}
	return c
}

// OnStateChange registers fn to run after each transition, on the
// goroutine that caused it.
func (m *Manager) OnStateChange(fn func(old, new State)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Manager) changeState(s State) {
	old := State(m.state.Swap(int32(s)))
	if old == s {
		return
	}
	m.logger.Info().
		Str(cedlog.FieldEvent, "scene.state_changed").
		Str(cedlog.FieldOldState, old.String()).
		Str(cedlog.FieldNewState, s.String()).
		Msg("scene manager switched state")

	m.mu.Lock()
	listeners := append([]func(old, new State){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(old, s)
	}
}

// LoadMap requests a terrain map and enters the loading state.
func (m *Manager) LoadMap(ctx context.Context, name string) error {
	if m.terrain == nil {
		return fmt.Errorf("load map %q: no terrain loader", name)
	}
	if _, err := m.terrain.Load(ctx, name); err != nil {
		return err
	}
	m.changeState(StateLoading)
	return nil
}

// LoadMob requests a mob file and enters the loading state.
func (m *Manager) LoadMob(ctx context.Context, name string) error {
	if m.mobs == nil {
		return fmt.Errorf("load mob %q: no mob loader", name)
	}
	if _, err := m.mobs.Load(ctx, name); err != nil {
		return err
	}
	m.changeState(StateLoading)
	return nil
}

// Advance runs one frame: drain the render queue within budget, then
// advance the current state. Render goroutine only.
func (m *Manager) Advance(budget time.Duration) error {
	if err := m.events.ProcessEventsTimeout(m.consumer, budget, event.AllEvents); err != nil {
		return err
	}
	if m.State() == StateLoading {
		m.advanceLoading(budget)
	}
	sum := m.scene.Summarize()
	m.summary.Store(&sum)
	return nil
}

func (m *Manager) advanceLoading(budget time.Duration) {
	jobs := m.Jobs()
	progress := jobs.Progress()
	m.progress.Store(math.Float64bits(progress))

	if m.limiter.Allow() {
		m.logger.Info().
			Str(cedlog.FieldEvent, "scene.loading_progress").
			Int(cedlog.FieldQueued, jobs.Queued).
			Int(cedlog.FieldCompleted, jobs.Completed).
			Int(cedlog.FieldFailed, jobs.Failed).
			Float64("progress", progress).
			Msg("loading")
	}

	if jobs.Done() {
		attached := m.scene.AttachEntities()
		m.logger.Info().
			Str(cedlog.FieldEvent, "scene.loaded").
			Int("entities", len(m.scene.Entities())).
			Int("attached", attached).
			Int("sectors", len(m.scene.Nodes())).
			Msg("loading complete")
		m.changeState(StatePlaying)
		return
	}

	// nothing to draw yet: sleep until a worker finishes instead of
	// spinning, but hand control back to the frame loop within the budget
	if !m.events.HasPendingEvents(m.consumer) && m.pool != nil {
		m.pool.WaitOneTimeout(min(budget, maxIdleWait))
	}
}

// Reset drops all loads in flight and all scene content. Render goroutine only.
func (m *Manager) Reset() {
	if m.mobs != nil {
		m.mobs.Clear()
	}
	if m.terrain != nil {
		m.terrain.Clear()
	}
	m.scene.Reset()
	m.progress.Store(math.Float64bits(1))
	sum := m.scene.Summarize()
	m.summary.Store(&sum)
	m.changeState(StateReady)
}
