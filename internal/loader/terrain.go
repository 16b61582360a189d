// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cursedearth/engine/internal/cache"
	"github.com/cursedearth/engine/internal/event"
	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/metrics"
	"github.com/cursedearth/engine/internal/resource"
	"github.com/cursedearth/engine/internal/telemetry"
)

// KindTerrain labels terrain loading in logs, metrics and the journal.
const KindTerrain = "mpr"

// Cache lookup results recorded on sectors.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheStale    = "stale"
	CacheError    = "error"
	CacheDisabled = "disabled"
)

// MprOpener parses terrain maps and their tile textures.
type MprOpener interface {
	OpenMpr(name string) (*resource.MprFile, error)
	OpenTexture(name string) (*resource.Texture, error)
}

// Terrain is a map being loaded. Tile textures are read at most once, by
// the first sector that misses the cache, and released when the last
// sector is acknowledged.
type Terrain struct {
	Task *Task
	Mpr  *resource.MprFile

	tiles   func() ([]*resource.Texture, error)
	failed  int // consumer only
	Sectors []*Sector
}

// Sector is the payload posted for one terrain sector.
type Sector struct {
	Terrain     *Terrain
	Name        string
	X, Z        int
	Water       bool
	Texture     *resource.Texture
	CacheResult string
	Err         error
}

// SectorSink adds sectors to the scene. It is called on the consumer.
type SectorSink interface {
	AddSector(s *Sector)
}

// TerrainLoaderConfig wires a TerrainLoader.
type TerrainLoaderConfig struct {
	Consumer  event.ConsumerID
	Events    *event.Manager
	Pool      Executor
	Opener    MprOpener
	Generator resource.Generator
	// Cache is consulted for every sector; Caching controls whether
	// generated textures are stored back.
	Cache    cache.TextureCache
	Caching  bool
	Sink     SectorSink
	Observer Observer
}

// TerrainLoader loads MPR maps. Each sector texture is produced by its own
// pool job and posted to the consumer.
type TerrainLoader struct {
	*tracker
	opener    MprOpener
	generator resource.Generator
	cache     cache.TextureCache
	caching   bool
	sink      SectorSink
}

// NewTerrainLoader creates a TerrainLoader.
func NewTerrainLoader(cfg TerrainLoaderConfig) *TerrainLoader {
	if cfg.Generator == nil {
		cfg.Generator = resource.TileGenerator{}
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewNoop()
	}
	return &TerrainLoader{
		tracker:   newTracker(KindTerrain, cfg.Consumer, cfg.Events, cfg.Pool, cfg.Observer),
		opener:    cfg.Opener,
		generator: cfg.Generator,
		cache:     cfg.Cache,
		caching:   cfg.Caching,
		sink:      cfg.Sink,
	}
}

// Load requests the map name.
func (l *TerrainLoader) Load(ctx context.Context, name string) (*Task, error) {
	return l.start(ctx, name, l.exec)
}

// Jobs returns the counters of the current wave.
func (l *TerrainLoader) Jobs() JobCounts { return l.jobs.Snapshot() }

// Tasks lists registered tasks.
func (l *TerrainLoader) Tasks() []TaskInfo { return l.snapshot() }

// Registered reports whether t has not been released yet.
func (l *TerrainLoader) Registered(t *Task) bool { return l.registered(t) }

// Clear drops every registered task.
func (l *TerrainLoader) Clear() int { return l.clear(false) }

// Close drops every registered task and rejects later loads.
func (l *TerrainLoader) Close() { l.clear(true) }

func (l *TerrainLoader) exec(ctx context.Context, t *Task) {
	ctx, span := telemetry.StartTask(ctx, l.tracer, t.kind, t.name, t.id.String())
	logger := l.taskLogger(ctx)
	t.setState(StateRunning)

	mpr, err := l.opener.OpenMpr(t.name)
	if err != nil {
		telemetry.EndTask(span, 0, err)
		l.postFinish(ctx, t, err)
		return
	}

	terrain := &Terrain{Task: t, Mpr: mpr}
	terrain.tiles = sync.OnceValues(func() ([]*resource.Texture, error) {
		return l.loadTiles(mpr)
	})
	for z := 0; z < mpr.SectorZCount; z++ {
		for x := 0; x < mpr.SectorXCount; x++ {
			terrain.Sectors = append(terrain.Sectors, l.newSector(terrain, x, z, false))
		}
	}
	for z := 0; z < mpr.SectorZCount; z++ {
		for x := 0; x < mpr.SectorXCount; x++ {
			// no empty water geometry
			if mpr.Sector(x, z).WaterAllow {
				terrain.Sectors = append(terrain.Sectors, l.newSector(terrain, x, z, true))
			}
		}
	}

	n := len(terrain.Sectors)
	t.posted.Store(int64(n))
	logger.Info().
		Str(cedlog.FieldEvent, "loader.mpr_parsed").
		Int("sectors", n).
		Msg("sector jobs queued")

	if n == 0 {
		telemetry.EndTask(span, 0, nil)
		l.postFinish(ctx, t, nil)
		return
	}

	t.setState(StatePosting)
	for _, s := range terrain.Sectors {
		s := s
		if err := l.pool.Enqueue(func() { l.execSector(ctx, s) }); err != nil {
			s.Err = fmt.Errorf("enqueue sector %s: %w", s.Name, err)
			l.postSector(ctx, s)
		}
	}
	t.advance(StatePosting, StateAwaiting)
	telemetry.EndTask(span, n, nil)
}

func (l *TerrainLoader) newSector(terrain *Terrain, x, z int, water bool) *Sector {
	return &Sector{
		Terrain: terrain,
		Name:    terrain.Mpr.SectorName(x, z, water),
		X:       x,
		Z:       z,
		Water:   water,
	}
}

func (l *TerrainLoader) loadTiles(mpr *resource.MprFile) ([]*resource.Texture, error) {
	tiles := make([]*resource.Texture, 0, mpr.TextureCount)
	for i := 0; i < mpr.TextureCount; i++ {
		tex, err := l.opener.OpenTexture(mpr.TileName(i))
		if err != nil {
			return nil, fmt.Errorf("load tile textures of %s: %w", mpr.Name, err)
		}
		tiles = append(tiles, tex)
	}
	return tiles, nil
}

func (l *TerrainLoader) execSector(ctx context.Context, s *Sector) {
	_, span := l.tracer.Start(ctx, "mpr.sector")
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.Texture, s.Err = nil, panicError(r)
			}
		}()
		s.Texture, s.CacheResult, s.Err = l.sectorTexture(ctx, s)
	}()
	span.SetAttributes(telemetry.SectorAttributes(s.Name, s.Water, s.CacheResult)...)
	if s.Err != nil {
		span.RecordError(s.Err)
	}
	span.End()
	l.postSector(ctx, s)
}

func (l *TerrainLoader) postSector(ctx context.Context, s *Sector) {
	if err := event.PostPtr(l.events, l.consumer, l.reactSector, s); err != nil {
		logger := l.taskLogger(ctx)
		logger.Warn().Err(err).
			Str(cedlog.FieldEvent, "loader.post_failed").
			Str(cedlog.FieldSector, s.Name).
			Msg("sector event dropped")
		t := s.Terrain.Task
		l.postFinish(ctx, t, fmt.Errorf("post sector %s: %w", s.Name, err))
		return
	}
	metrics.LoaderItemsPostedTotal.WithLabelValues(KindTerrain).Inc()
}

// sectorTexture returns the cached texture of s when it is current and
// generates (and optionally stores) a new one otherwise.
func (l *TerrainLoader) sectorTexture(ctx context.Context, s *Sector) (*resource.Texture, string, error) {
	logger := l.taskLogger(ctx).With().Str(cedlog.FieldSector, s.Name).Logger()

	result := CacheMiss
	tex, err := l.cache.Get(s.Name)
	switch {
	case err == nil && tex.Version >= resource.TextureVersion:
		return tex, CacheHit, nil
	case err == nil:
		result = CacheStale
		logger.Debug().Uint32("version", tex.Version).Msg("cached sector texture is stale")
	case errors.Is(err, cache.ErrMiss):
	default:
		result = CacheError
		logger.Warn().Err(err).Msg("sector texture cache lookup failed")
	}

	tiles, err := s.Terrain.tiles()
	if err != nil {
		return nil, result, err
	}
	tex, err = l.generator.Generate(s.Terrain.Mpr, tiles, s.X, s.Z, s.Water)
	if err != nil {
		return nil, result, fmt.Errorf("generate sector %s: %w", s.Name, err)
	}

	if l.caching {
		if err := l.cache.Put(tex); err != nil {
			logger.Warn().Err(err).Msg("could not store sector texture")
		}
	} else if result == CacheMiss {
		result = CacheDisabled
	}
	return tex, result, nil
}

// reactSector runs on the consumer for each posted sector.
func (l *TerrainLoader) reactSector(s *Sector) {
	terrain := s.Terrain
	t := terrain.Task
	if t.Cancelled() {
		return
	}
	if s.Err != nil {
		terrain.failed++
		l.logger.Error().Err(s.Err).
			Str(cedlog.FieldEvent, "loader.sector_failed").
			Str(cedlog.FieldTaskID, t.id.String()).
			Str(cedlog.FieldSector, s.Name).
			Msg("could not build sector")
	} else if l.sink != nil {
		l.sink.AddSector(s)
	}

	if !l.ack(t) {
		return
	}
	// every sector job is done: tile textures are no longer needed
	terrain.tiles = nil

	var err error
	if terrain.failed > 0 {
		err = fmt.Errorf("%d of %d sectors failed", terrain.failed, t.Posted())
	}
	l.finish(t, err)
}
