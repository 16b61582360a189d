// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/cursedearth/engine/internal/resource"
	"github.com/google/renameio/v2"
)

// DirCache keeps one file per texture under a directory.
type DirCache struct {
	counters
	dir string
}

// OpenDir creates dir if needed.
func OpenDir(dir string) (*DirCache, error) {
	if dir == "" {
		return nil, errors.New("open texture cache dir: empty path")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("open texture cache dir: %w", err)
	}
	return &DirCache{counters: counters{backend: BackendDir}, dir: dir}, nil
}

func (c *DirCache) path(name string) string {
	return filepath.Join(c.dir, name+".cetx")
}

func (c *DirCache) Get(name string) (*resource.Texture, error) {
	if filepath.Base(name) != name {
		return nil, fmt.Errorf("texture cache: invalid name %q", name)
	}
	data, err := os.ReadFile(c.path(name))
	if errors.Is(err, os.ErrNotExist) {
		c.miss()
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cached texture %s: %w", name, err)
	}
	tex, err := Decode(name, data)
	if err != nil {
		return nil, err
	}
	c.hit()
	return tex, nil
}

// Put writes the entry atomically: readers see the old file or the new one.
func (c *DirCache) Put(tex *resource.Texture) error {
	if filepath.Base(tex.Name) != tex.Name {
		return fmt.Errorf("texture cache: invalid name %q", tex.Name)
	}
	buf, err := Encode(tex)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(c.path(tex.Name))
	if err != nil {
		return fmt.Errorf("create pending texture file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := cedlog.WithComponent("cache")
			logger.Debug().Err(err).Msg("cleanup pending texture file")
		}
	}()
	if _, err := pending.Write(buf); err != nil {
		return fmt.Errorf("write texture data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit texture file: %w", err)
	}
	c.put()
	return nil
}

func (c *DirCache) Close() error { return nil }
