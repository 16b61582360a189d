// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"errors"
	"fmt"

	"github.com/cursedearth/engine/internal/resource"
	"github.com/dgraph-io/badger/v4"
)

// BadgerCache keeps textures in a badger database.
// key = "tex:<name>", value = Encode(texture)
type BadgerCache struct {
	counters
	db *badger.DB
}

// OpenBadger opens the database at path. An empty path opens an in-memory
// database.
func OpenBadger(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger texture cache: %w", err)
	}
	return &BadgerCache{counters: counters{backend: BackendBadger}, db: db}, nil
}

func (c *BadgerCache) Close() error { return c.db.Close() }

func (c *BadgerCache) Get(name string) (*resource.Texture, error) {
	var tex *resource.Texture
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("tex:" + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var derr error
			tex, derr = Decode(name, val)
			return derr
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.miss()
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	c.hit()
	return tex, nil
}

func (c *BadgerCache) Put(tex *resource.Texture) error {
	buf, err := Encode(tex)
	if err != nil {
		return err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("tex:"+tex.Name), buf)
	})
	if err != nil {
		return fmt.Errorf("store texture %s: %w", tex.Name, err)
	}
	c.put()
	return nil
}
