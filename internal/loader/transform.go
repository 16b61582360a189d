// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package loader

import "github.com/go-gl/mathgl/mgl32"

// creatureLift raises creature objects so they stand on the terrain.
const creatureLift = 1.0

// IsCreature reports whether objects of type t are creatures (types 50-52).
func IsCreature(t uint32) bool {
	return t >= 50 && t <= 52
}

// fileToWorld rotates file orientations into the engine's right-handed,
// Y-up world.
var fileToWorld = mgl32.QuatRotate(mgl32.DegToRad(-90), mgl32.Vec3{1, 0, 0})

// WorldPosition converts a mob file position (Z up) into world space: Y and
// Z swap and the new Z is negated.
func WorldPosition(p [3]float32, objType uint32) mgl32.Vec3 {
	v := mgl32.Vec3{p[0], p[2], -p[1]}
	if IsCreature(objType) {
		v[1] += creatureLift
	}
	return v
}

// WorldOrientation composes the file rotation (w, x, y, z) with the axis
// change.
func WorldOrientation(r [4]float32) mgl32.Quat {
	q := mgl32.Quat{W: r[0], V: mgl32.Vec3{r[1], r[2], r[3]}}
	return fileToWorld.Mul(q)
}
