// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scene holds the world being assembled by the loaders. Everything
// here is owned by the render goroutine and is not safe for concurrent use.
package scene

import (
	"github.com/cursedearth/engine/internal/loader"
	"github.com/cursedearth/engine/internal/resource"
	"github.com/go-gl/mathgl/mgl32"
)

// Entity is a placed figure.
type Entity struct {
	ID          int
	Name        string
	Model       string
	Type        uint32
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Complection mgl32.Vec3
	Parts       []string
	Textures    [2]string

	// Node is the terrain sector the entity is attached to, if any.
	Node *Node
}

// Node is a terrain sector in the scene graph.
type Node struct {
	Name     string
	X, Z     int
	Water    bool
	Texture  *resource.Texture
	Children []*Entity
}

type nodeKey struct {
	x, z  int
	water bool
}

// Scene is the render-thread view of loaded content.
type Scene struct {
	entities []*Entity
	nodes    map[nodeKey]*Node
	order    []*Node
	terrain  *resource.MprFile
	nextID   int
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{nodes: make(map[nodeKey]*Node)}
}

// CreateFigure adds an entity for f. Parts are copied because f references
// the loader's parsed file.
func (s *Scene) CreateFigure(f *loader.Figure) {
	s.nextID++
	s.entities = append(s.entities, &Entity{
		ID:          s.nextID,
		Name:        f.Name,
		Model:       f.ModelName,
		Type:        f.Type,
		Position:    f.Position,
		Orientation: f.Orientation,
		Complection: f.Complection,
		Parts:       append([]string(nil), f.Parts...),
		Textures:    f.Textures,
	})
}

// AddSector adds the terrain sector node for sec.
func (s *Scene) AddSector(sec *loader.Sector) {
	s.terrain = sec.Terrain.Mpr
	n := &Node{
		Name:    sec.Name,
		X:       sec.X,
		Z:       sec.Z,
		Water:   sec.Water,
		Texture: sec.Texture,
	}
	key := nodeKey{sec.X, sec.Z, sec.Water}
	if old, ok := s.nodes[key]; ok {
		for i := range s.order {
			if s.order[i] == old {
				s.order[i] = n
			}
		}
	} else {
		s.order = append(s.order, n)
	}
	s.nodes[key] = n
}

// AttachEntities links every unattached entity to the land sector under
// it and returns how many were attached.
func (s *Scene) AttachEntities() int {
	if s.terrain == nil {
		return 0
	}
	attached := 0
	for _, e := range s.entities {
		if e.Node != nil {
			continue
		}
		x, z, ok := s.terrain.SectorAt(e.Position.X(), e.Position.Z())
		if !ok {
			continue
		}
		n, ok := s.nodes[nodeKey{x, z, false}]
		if !ok {
			continue
		}
		e.Node = n
		n.Children = append(n.Children, e)
		attached++
	}
	return attached
}

// Entities returns the placed entities in creation order.
func (s *Scene) Entities() []*Entity { return s.entities }

// Nodes returns the terrain sector nodes in arrival order.
func (s *Scene) Nodes() []*Node { return s.order }

// Node returns the sector node at x, z.
func (s *Scene) Node(x, z int, water bool) (*Node, bool) {
	n, ok := s.nodes[nodeKey{x, z, water}]
	return n, ok
}

// Terrain returns the map whose sectors are in the scene.
func (s *Scene) Terrain() *resource.MprFile { return s.terrain }

// Reset removes all content. Figures must go before the terrain.
func (s *Scene) Reset() {
	s.entities = nil
	s.nodes = make(map[nodeKey]*Node)
	s.order = nil
	s.terrain = nil
}

// Summary counts scene content.
type Summary struct {
	Entities int `json:"entities"`
	Attached int `json:"attached"`
	Sectors  int `json:"sectors"`
}

// Summarize counts the current content.
func (s *Scene) Summarize() Summary {
	sum := Summary{Entities: len(s.entities), Sectors: len(s.order)}
	for _, e := range s.entities {
		if e.Node != nil {
			sum.Attached++
		}
	}
	return sum
}
