// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package cache stores generated terrain sector textures between runs.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cursedearth/engine/internal/metrics"
	"github.com/cursedearth/engine/internal/resource"
)

// ErrMiss is returned by Get when no texture is stored under a name.
var ErrMiss = errors.New("texture cache miss")

// Backend names accepted by Open.
const (
	BackendBadger = "badger"
	BackendDir    = "fs"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// TextureCache stores textures by name. Implementations are safe for
// concurrent use by pool workers.
type TextureCache interface {
	// Get returns the stored texture or ErrMiss.
	Get(name string) (*resource.Texture, error)
	// Put stores tex under tex.Name, replacing any previous entry.
	Put(tex *resource.Texture) error
	// Stats returns hit/miss counters.
	Stats() Stats
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits   int64
	Misses int64
	Puts   int64
}

type counters struct {
	backend string
	hits    atomic.Int64
	misses  atomic.Int64
	puts    atomic.Int64
}

func (c *counters) hit() {
	c.hits.Add(1)
	metrics.IncTextureCache(c.backend, "hit")
}

func (c *counters) miss() {
	c.misses.Add(1)
	metrics.IncTextureCache(c.backend, "miss")
}

func (c *counters) put() {
	c.puts.Add(1)
	metrics.IncTextureCache(c.backend, "put")
}

func (c *counters) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Puts: c.puts.Load()}
}

// Open creates a TextureCache for backend rooted at path.
func Open(backend, path string) (TextureCache, error) {
	switch backend {
	case BackendBadger:
		return OpenBadger(path)
	case BackendDir:
		return OpenDir(path)
	case BackendMemory:
		return NewMemory(), nil
	case BackendNone, "":
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown texture cache backend: %s", backend)
	}
}

type memoryCache struct {
	counters
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemory returns a process-local cache. Entries are stored encoded so
// callers never share pixel buffers.
func NewMemory() TextureCache {
	return &memoryCache{
		counters: counters{backend: BackendMemory},
		entries:  make(map[string][]byte),
	}
}

func (c *memoryCache) Get(name string) (*resource.Texture, error) {
	c.mu.RLock()
	buf, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		c.miss()
		return nil, ErrMiss
	}
	tex, err := Decode(name, buf)
	if err != nil {
		return nil, err
	}
	c.hit()
	return tex, nil
}

func (c *memoryCache) Put(tex *resource.Texture) error {
	buf, err := Encode(tex)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[tex.Name] = buf
	c.mu.Unlock()
	c.put()
	return nil
}

func (c *memoryCache) Close() error {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
	return nil
}

type noopCache struct {
	counters
}

// NewNoop returns a cache that never stores anything.
func NewNoop() TextureCache {
	return &noopCache{counters: counters{backend: BackendNone}}
}

func (c *noopCache) Get(string) (*resource.Texture, error) {
	c.miss()
	return nil, ErrMiss
}

func (c *noopCache) Put(*resource.Texture) error { return nil }
func (c *noopCache) Close() error                { return nil }
