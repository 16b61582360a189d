// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resource opens the game resources consumed by the loaders:
// mob object lists, MPR terrain maps and textures.
//
// Resources are described by YAML descriptors found under one or more
// resource directories:
//
//	<dir>/mobs/<name>.yaml
//	<dir>/maps/<name>.yaml
//	<dir>/textures/<name>.yaml
//
// The first directory that contains a descriptor wins.
package resource
