// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

import "fmt"

// TextureVersion is the current version of generated sector textures.
// Cached textures with a lower version are regenerated.
const TextureVersion uint32 = 2

// Texture is an RGBA8 image.
type Texture struct {
	Name    string
	Version uint32
	Width   int
	Height  int
	Pixels  []byte
}

// NewTexture allocates a zeroed w x h texture.
func NewTexture(name string, w, h int) *Texture {
	return &Texture{
		Name:    name,
		Version: TextureVersion,
		Width:   w,
		Height:  h,
		Pixels:  make([]byte, w*h*4),
	}
}

// At returns the RGBA of pixel x, y.
func (t *Texture) At(x, y int) [4]byte {
	i := (y*t.Width + x) * 4
	return [4]byte{t.Pixels[i], t.Pixels[i+1], t.Pixels[i+2], t.Pixels[i+3]}
}

// Set writes the RGBA of pixel x, y.
func (t *Texture) Set(x, y int, c [4]byte) {
	i := (y*t.Width + x) * 4
	copy(t.Pixels[i:i+4], c[:])
}

// Average returns the mean color of the texture.
func (t *Texture) Average() [4]byte {
	n := t.Width * t.Height
	if n == 0 {
		return [4]byte{}
	}
	var sum [4]int
	for i := 0; i < n; i++ {
		for c := 0; c < 4; c++ {
			sum[c] += int(t.Pixels[i*4+c])
		}
	}
	return [4]byte{byte(sum[0] / n), byte(sum[1] / n), byte(sum[2] / n), byte(sum[3] / n)}
}

func (t *Texture) validate() error {
	if t.Width < 0 || t.Height < 0 {
		return fmt.Errorf("texture %s: negative size", t.Name)
	}
	if len(t.Pixels) != t.Width*t.Height*4 {
		return fmt.Errorf("texture %s: %d bytes for %dx%d", t.Name, len(t.Pixels), t.Width, t.Height)
	}
	return nil
}

// Generator builds the texture of one terrain sector from its tiles.
type Generator interface {
	Generate(mpr *MprFile, tiles []*Texture, x, z int, water bool) (*Texture, error)
}

// TileGenerator paints one texel per sector tile with the mean color of
// the referenced tile texture.
type TileGenerator struct{}

// Generate implements Generator.
func (TileGenerator) Generate(mpr *MprFile, tiles []*Texture, x, z int, water bool) (*Texture, error) {
	sector := mpr.Sector(x, z)
	indices := sector.LandTiles
	if water {
		indices = sector.WaterTiles
	}

	side := 1
	for side*side < len(indices) {
		side++
	}
	out := NewTexture(mpr.SectorName(x, z, water), side, side)
	if len(tiles) == 0 {
		return out, nil
	}

	means := make([][4]byte, len(tiles))
	for i, t := range tiles {
		means[i] = t.Average()
	}
	for i, idx := range indices {
		if int(idx) >= len(tiles) {
			return nil, fmt.Errorf("sector %s: tile %d out of %d", out.Name, idx, len(tiles))
		}
		out.Set(i%side, i/side, means[idx])
	}
	return out, nil
}
