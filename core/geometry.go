package core

import "math"

// Vec3 is a position or offset in detector coordinates, millimetres.
// The beam axis is +Z; the scintillator plate normal faces -Z toward
// the sample stage.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Box is an axis-aligned box described by its half extents, following
// the half-dimension convention used throughout the detector
// configuration: a Box{Half: Vec3{5, 5, 1}} is 10 x 10 x 2 mm.
type Box struct {
	Half Vec3
}

// VolumeMM3 returns the full box volume in cubic millimetres.
func (b Box) VolumeMM3() float64 {
	return 8 * b.Half.X * b.Half.Y * b.Half.Z
}

// fitsWithin reports whether a child box placed at offset (centre to
// centre) stays inside the parent box. Touching faces count as inside;
// placements are validated per axis:
//
//	|offset| + childHalf <= parentHalf
//
// A small tolerance absorbs floating-point noise from offsets computed
// out of configured dimensions.
func fitsWithin(child Box, offset Vec3, parent Box) bool {
	const tol = 1e-9
	if math.Abs(offset.X)+child.Half.X > parent.Half.X+tol {
		return false
	}
	if math.Abs(offset.Y)+child.Half.Y > parent.Half.Y+tol {
		return false
	}
	if math.Abs(offset.Z)+child.Half.Z > parent.Half.Z+tol {
		return false
	}
	return true
}
