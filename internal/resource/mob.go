// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

// MobObject is one placed object of a mob file in file coordinates.
type MobObject struct {
	Type             uint32     `yaml:"type"`
	Name             string     `yaml:"name"`
	ModelName        string     `yaml:"model"`
	Position         [3]float32 `yaml:"position"`
	Rotation         [4]float32 `yaml:"rotation"` // w, x, y, z
	Complection      [3]float32 `yaml:"complection"`
	Parts            []string   `yaml:"parts,omitempty"`
	PrimaryTexture   string     `yaml:"primary_texture"`
	SecondaryTexture string     `yaml:"secondary_texture"`
}

// MobFile is a parsed mob resource.
type MobFile struct {
	Name    string      `yaml:"-"`
	Objects []MobObject `yaml:"objects"`
}
