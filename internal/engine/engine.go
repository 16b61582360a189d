// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package engine is the composition root: it wires the event manager,
// worker pool, loaders, scene manager, journal and diagnostics from an
// AppConfig and drives the frame loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cursedearth/engine/internal/cache"
	"github.com/cursedearth/engine/internal/config"
	"github.com/cursedearth/engine/internal/diag"
	"github.com/cursedearth/engine/internal/event"
	"github.com/cursedearth/engine/internal/health"
	"github.com/cursedearth/engine/internal/journal"
	"github.com/cursedearth/engine/internal/loader"
	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/pool"
	"github.com/cursedearth/engine/internal/resource"
	"github.com/cursedearth/engine/internal/scene"
	"github.com/cursedearth/engine/internal/telemetry"
)

// RenderConsumer is the queue drained by the frame loop.
const RenderConsumer event.ConsumerID = "render"

// errLoaded stops the run group once loading completes in exit-when-loaded mode.
var errLoaded = errors.New("scene loaded")

// Options adjust how an App is built. The zero value is valid.
type Options struct {
	// Holder enables hot reload of frame timing and log level.
	Holder *config.ConfigHolder
	// Opener replaces the directory opener built from ResourceDirs.
	Opener resource.Opener
	// ExitWhenLoaded makes Run return once no load is in flight.
	ExitWhenLoaded bool
	// DiagListener serves diagnostics on an existing listener instead of
	// DiagListen.
	DiagListener net.Listener
}

// App owns every long-lived engine component.
type App struct {
	cfg            config.AppConfig
	holder         *config.ConfigHolder
	exitWhenLoaded bool
	logger         zerolog.Logger

	events    *event.Manager
	pool      *pool.Pool
	resources *resource.Manager
	textures  cache.TextureCache
	store     *journal.Store
	journal   *journal.Journal
	mobs      *loader.MobLoader
	terrain   *loader.TerrainLoader
	scenes    *scene.Manager
	diag      *diag.Server
	diagLn    net.Listener
	telemetry *telemetry.Provider

	frameBudget   atomic.Int64
	frameInterval atomic.Int64
	frames        atomic.Uint64

	closeOnce sync.Once
}

// New builds an App from cfg. On error every component built so far is
// released.
func New(ctx context.Context, cfg config.AppConfig, opts Options) (app *App, err error) {
	a := &App{
		cfg:            config.Clone(cfg),
		holder:         opts.Holder,
		exitWhenLoaded: opts.ExitWhenLoaded,
		logger:         cedlog.WithComponent("engine"),
		diagLn:         opts.DiagListener,
	}
	a.frameBudget.Store(int64(cfg.FrameBudget))
	a.frameInterval.Store(int64(cfg.FrameInterval))
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    "release",
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	a.events = event.NewManager()
	if _, err = a.events.CreateQueue(RenderConsumer); err != nil {
		return nil, err
	}
	a.pool = pool.New(pool.Config{Workers: cfg.Workers})

	opener := opts.Opener
	if opener == nil {
		opener = resource.NewDirOpener(cfg.ResourceDirs...)
	}
	a.resources = resource.NewManager(opener)

	backend := cfg.CacheBackend
	if !cfg.TextureCaching {
		backend = cache.BackendNone
	}
	if a.textures, err = cache.Open(backend, cfg.CacheDir); err != nil {
		return nil, fmt.Errorf("texture cache: %w", err)
	}

	var observer loader.Observer
	var loads diag.LoadLister
	if cfg.JournalEnabled {
		if a.store, err = journal.OpenStore(ctx, cfg.JournalPath); err != nil {
			return nil, err
		}
		if a.journal, err = journal.Start(a.events, a.store); err != nil {
			return nil, err
		}
		observer, loads = a.journal, a.journal
	}

	sc := scene.New()
	a.mobs = loader.NewMobLoader(loader.MobLoaderConfig{
		Consumer: RenderConsumer,
		Events:   a.events,
		Pool:     a.pool,
		Opener:   a.resources,
		Sink:     sc,
		Observer: observer,
	})
	a.terrain = loader.NewTerrainLoader(loader.TerrainLoaderConfig{
		Consumer: RenderConsumer,
		Events:   a.events,
		Pool:     a.pool,
		Opener:   a.resources,
		Cache:    a.textures,
		Caching:  cfg.TextureCaching,
		Sink:     sc,
		Observer: observer,
	})
	a.scenes = scene.NewManager(scene.ManagerConfig{
		Consumer: RenderConsumer,
		Events:   a.events,
		Pool:     a.pool,
		Mobs:     a.mobs,
		Terrain:  a.terrain,
		Scene:    sc,
	})

	if cfg.DiagListen != "" || a.diagLn != nil {
		var checks []health.Checker
		if opts.Opener == nil {
			checks = append(checks, health.NewDirChecker("resources", cfg.ResourceDirs...))
		}
		if a.store != nil {
			checks = append(checks, health.NewPingChecker("journal", a.store.Ping))
		}
		a.diag = diag.New(diag.Config{
			Listen:    cfg.DiagListen,
			RateLimit: cfg.DiagRateLimit,
			Tracing:   cfg.Telemetry.Enabled,
			Version:   cfg.Version,
			Checks:    checks,
		}, a, loads)
	}

	a.logger.Info().
		Str(cedlog.FieldEvent, "engine.ready").
		Int("workers", a.pool.Workers()).
		Str("cache_backend", backend).
		Bool("journal", cfg.JournalEnabled).
		Dur("frame_budget", cfg.FrameBudget).
		Msg("engine wired")
	return a, nil
}

// Scenes returns the scene manager.
func (a *App) Scenes() *scene.Manager { return a.scenes }

// Events returns the event manager.
func (a *App) Events() *event.Manager { return a.events }

// Frames returns how many frames have run.
func (a *App) Frames() uint64 { return a.frames.Load() }

// FrameBudget returns the current per-frame event budget.
func (a *App) FrameBudget() time.Duration { return time.Duration(a.frameBudget.Load()) }

// Status implements diag.Source.
func (a *App) Status() diag.Status {
	sum := a.scenes.Summary()
	tasks := append(a.mobs.Tasks(), a.terrain.Tasks()...)
	return diag.Status{
		State:    a.scenes.State().String(),
		Progress: a.scenes.Progress(),
		Jobs:     a.scenes.Jobs(),
		Tasks:    tasks,
		Entities: sum.Entities,
		Sectors:  sum.Sectors,
	}
}

// Run requests the configured scene and runs the frame loop, the
// diagnostics listener and the config watcher until ctx is done, a
// component fails, or loading completes in exit-when-loaded mode.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.diag != nil {
		g.Go(func() error {
			if a.diagLn != nil {
				return a.diag.Serve(ctx, a.diagLn)
			}
			return a.diag.Run(ctx)
		})
	}

	if a.holder != nil {
		updates := make(chan config.AppConfig, 1)
		a.holder.RegisterListener(updates)
		g.Go(func() error {
			// the watcher is best-effort: a failure must not stop the engine
			if err := a.holder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(cedlog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-updates:
					a.apply(cfg)
				}
			}
		})
	}

	g.Go(func() error { return a.frameLoop(ctx) })

	err := g.Wait()
	if errors.Is(err, errLoaded) {
		return nil
	}
	return err
}

func (a *App) apply(cfg config.AppConfig) {
	a.frameBudget.Store(int64(cfg.FrameBudget))
	a.frameInterval.Store(int64(cfg.FrameInterval))
	cedlog.Reconfigure(cedlog.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	a.logger.Info().
		Str(cedlog.FieldEvent, "engine.config_applied").
		Dur("frame_budget", cfg.FrameBudget).
		Dur("frame_interval", cfg.FrameInterval).
		Msg("applied reloaded configuration")
}

func (a *App) requestScene(ctx context.Context) error {
	if name := a.cfg.Scene.Mpr; name != "" {
		if err := a.scenes.LoadMap(ctx, name); err != nil {
			return fmt.Errorf("request map %s: %w", name, err)
		}
	}
	for _, name := range a.cfg.Scene.Mobs {
		if err := a.scenes.LoadMob(ctx, name); err != nil {
			return fmt.Errorf("request mob %s: %w", name, err)
		}
	}
	return nil
}

func (a *App) frameLoop(ctx context.Context) error {
	if err := a.requestScene(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		start := time.Now()
		if err := a.scenes.Advance(a.FrameBudget()); err != nil {
			return fmt.Errorf("advance frame: %w", err)
		}
		a.frames.Add(1)

		if a.exitWhenLoaded && a.scenes.State() != scene.StateLoading {
			sum := a.scenes.Summary()
			a.logger.Info().
				Str(cedlog.FieldEvent, "engine.loaded_exit").
				Int("entities", sum.Entities).
				Int("sectors", sum.Sectors).
				Uint64("frames", a.frames.Load()).
				Msg("loading finished, exiting")
			return errLoaded
		}

		wait := time.Duration(a.frameInterval.Load()) - time.Since(start)
		if wait <= 0 {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Close stops every component. Worker routines in flight finish, queued
// ones are abandoned, loads in flight are cancelled and pending journal
// writes are flushed. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.pool != nil {
			a.pool.Stop()
		}
		if a.mobs != nil {
			a.mobs.Close()
		}
		if a.terrain != nil {
			a.terrain.Close()
		}
		if a.journal != nil {
			a.journal.Stop()
		}
		if a.events != nil {
			a.events.Close()
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("close journal store")
			}
		}
		if a.textures != nil {
			if err := a.textures.Close(); err != nil {
				a.logger.Warn().Err(err).Msg("close texture cache")
			}
		}
		if a.telemetry != nil {
			if err := a.telemetry.Shutdown(context.Background()); err != nil {
				a.logger.Warn().Err(err).Msg("shutdown telemetry")
			}
		}
		a.logger.Info().Str(cedlog.FieldEvent, "engine.closed").Msg("engine stopped")
	})
}
