// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no resource directory holds the named resource.
var ErrNotFound = errors.New("resource not found")

// Opener parses named resources. Implementations must be safe for
// concurrent use; callers treat every call as blocking and fallible.
type Opener interface {
	OpenMob(name string) (*MobFile, error)
	OpenMpr(name string) (*MprFile, error)
	OpenTexture(name string) (*Texture, error)
}

// DirOpener reads YAML descriptors from a list of resource directories.
type DirOpener struct {
	dirs []string
}

// NewDirOpener returns an opener searching dirs in order.
func NewDirOpener(dirs ...string) *DirOpener {
	return &DirOpener{dirs: append([]string(nil), dirs...)}
}

// Dirs returns the search path.
func (o *DirOpener) Dirs() []string {
	return append([]string(nil), o.dirs...)
}

// OpenMob implements Opener.
func (o *DirOpener) OpenMob(name string) (*MobFile, error) {
	var mob MobFile
	if err := o.decode("mobs", name, &mob); err != nil {
		return nil, err
	}
	mob.Name = name
	return &mob, nil
}

// OpenMpr implements Opener.
func (o *DirOpener) OpenMpr(name string) (*MprFile, error) {
	var mpr MprFile
	if err := o.decode("maps", name, &mpr); err != nil {
		return nil, err
	}
	mpr.Name = name
	if err := mpr.validate(); err != nil {
		return nil, err
	}
	return &mpr, nil
}

type textureDescriptor struct {
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Color  [4]byte `yaml:"color"`
}

// OpenTexture implements Opener. Descriptors define a solid color image.
func (o *DirOpener) OpenTexture(name string) (*Texture, error) {
	var desc textureDescriptor
	if err := o.decode("textures", name, &desc); err != nil {
		return nil, err
	}
	if desc.Width < 0 || desc.Height < 0 {
		return nil, fmt.Errorf("texture %s: negative size", name)
	}
	tex := NewTexture(name, desc.Width, desc.Height)
	for y := 0; y < desc.Height; y++ {
		for x := 0; x < desc.Width; x++ {
			tex.Set(x, y, desc.Color)
		}
	}
	return tex, nil
}

func (o *DirOpener) decode(kind, name string, out any) error {
	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("open %s %q: invalid name", kind, name)
	}
	for _, dir := range o.dirs {
		path := filepath.Join(dir, kind, name+".yaml")
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("open %s %q: %w", kind, name, err)
		}
		err = decodeStrict(f, out)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	return fmt.Errorf("open %s %q: %w", kind, name, ErrNotFound)
}

func decodeStrict(r io.Reader, out any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
