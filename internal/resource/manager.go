// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

import (
	"time"

	cedlog "github.com/cursedearth/engine/internal/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Manager wraps an Opener and collapses concurrent opens of the same
// resource into one parse. Results are shared and must not be mutated.
type Manager struct {
	opener Opener
	logger zerolog.Logger
	sf     singleflight.Group
}

// NewManager returns a Manager over opener.
func NewManager(opener Opener) *Manager {
	return &Manager{
		opener: opener,
		logger: cedlog.WithComponent("resource"),
	}
}

// OpenMob implements Opener.
func (m *Manager) OpenMob(name string) (*MobFile, error) {
	v, err := m.do("mob", name, func() (any, error) { return m.opener.OpenMob(name) })
	if err != nil {
		return nil, err
	}
	return v.(*MobFile), nil
}

// OpenMpr implements Opener.
func (m *Manager) OpenMpr(name string) (*MprFile, error) {
	v, err := m.do("mpr", name, func() (any, error) { return m.opener.OpenMpr(name) })
	if err != nil {
		return nil, err
	}
	return v.(*MprFile), nil
}

// OpenTexture implements Opener.
func (m *Manager) OpenTexture(name string) (*Texture, error) {
	v, err := m.do("texture", name, func() (any, error) { return m.opener.OpenTexture(name) })
	if err != nil {
		return nil, err
	}
	return v.(*Texture), nil
}

func (m *Manager) do(kind, name string, open func() (any, error)) (any, error) {
	v, err, shared := m.sf.Do(kind+":"+name, func() (any, error) {
		start := time.Now()
		v, err := open()
		if err != nil {
			return nil, err
		}
		m.logger.Debug().
			Str(cedlog.FieldKind, kind).
			Str(cedlog.FieldResource, name).
			Dur("duration", time.Since(start)).
			Msg("resource opened")
		return v, nil
	})
	if shared && err == nil {
		m.logger.Debug().
			Str(cedlog.FieldKind, kind).
			Str(cedlog.FieldResource, name).
			Msg("resource open shared")
	}
	return v, err
}
