// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

import "fmt"

// VertexSide is the number of vertices along one sector edge.
const VertexSide = 33

// MprSector holds the tile indices of one terrain sector.
type MprSector struct {
	LandTiles  []uint16 `yaml:"land_tiles"`
	WaterTiles []uint16 `yaml:"water_tiles,omitempty"`
	// WaterAllow is false when the sector has no water geometry.
	WaterAllow bool `yaml:"water"`
}

// MprFile is a parsed MPR terrain map.
type MprFile struct {
	Name         string      `yaml:"-"`
	MaxY         float32     `yaml:"max_y"`
	SectorXCount int         `yaml:"sectors_x"`
	SectorZCount int         `yaml:"sectors_z"`
	TextureCount int         `yaml:"textures"`
	Sectors      []MprSector `yaml:"sectors"` // row-major, z * SectorXCount + x
}

// Sector returns the sector at x, z.
func (m *MprFile) Sector(x, z int) *MprSector {
	return &m.Sectors[z*m.SectorXCount+x]
}

// SectorName names the generated texture of a sector.
func (m *MprFile) SectorName(x, z int, water bool) string {
	if water {
		return fmt.Sprintf("%s%03d%03dw", m.Name, x, z)
	}
	return fmt.Sprintf("%s%03d%03d", m.Name, x, z)
}

// TileName names the i-th tile texture of the map.
func (m *MprFile) TileName(i int) string {
	return fmt.Sprintf("%s%03d", m.Name, i)
}

// SectorAt maps a world position to sector coordinates. World Z is the
// negated file Z axis, so the map covers z <= 0 only.
func (m *MprFile) SectorAt(x, z float32) (int, int, bool) {
	if x < 0 || z > 0 {
		return 0, 0, false
	}
	z = -z
	sx := int(x) / (VertexSide - 1)
	sz := int(z) / (VertexSide - 1)
	if sx >= m.SectorXCount || sz >= m.SectorZCount {
		return 0, 0, false
	}
	return sx, sz, true
}

func (m *MprFile) validate() error {
	if m.SectorXCount <= 0 || m.SectorZCount <= 0 {
		if len(m.Sectors) == 0 {
			return nil
		}
		return fmt.Errorf("mpr %s: %d sectors for a %dx%d grid", m.Name, len(m.Sectors), m.SectorXCount, m.SectorZCount)
	}
	if want := m.SectorXCount * m.SectorZCount; len(m.Sectors) != want {
		return fmt.Errorf("mpr %s: %d sectors, want %d", m.Name, len(m.Sectors), want)
	}
	if m.TextureCount < 0 {
		return fmt.Errorf("mpr %s: negative texture count", m.Name)
	}
	return nil
}
