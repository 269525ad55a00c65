package world

import (
	"math"

	"github.com/user/elemelon/internal/types"
)

// overlaps reports whether a moving body at pos with bounds b touches obj.
// All tests are horizontal; height is ignored.
func overlaps(pos types.Vec3, b types.Bounds, obj *types.WorldObject) bool {
	if b.IsBox() && obj.Bounds.IsBox() {
		return math.Abs(pos.X-obj.Position.X) < b.HalfX+obj.Bounds.HalfX &&
			math.Abs(pos.Z-obj.Position.Z) < b.HalfZ+obj.Bounds.HalfZ
	}
	if obj.Bounds.IsBox() {
		return circleBoxOverlap(pos, b.Extent(), obj.Position, obj.Bounds)
	}
	if b.IsBox() {
		return circleBoxOverlap(obj.Position, obj.Bounds.Radius, pos, b)
	}
	r := b.Radius + obj.Bounds.Radius
	dx := pos.X - obj.Position.X
	dz := pos.Z - obj.Position.Z
	return dx*dx+dz*dz < r*r
}

// circleBoxOverlap reports whether a circle intersects a box centered at boxPos.
func circleBoxOverlap(c types.Vec3, radius float64, boxPos types.Vec3, box types.Bounds) bool {
	closestX := clamp(c.X, boxPos.X-box.HalfX, boxPos.X+box.HalfX)
	closestZ := clamp(c.Z, boxPos.Z-box.HalfZ, boxPos.Z+box.HalfZ)
	dx := c.X - closestX
	dz := c.Z - closestZ
	return dx*dx+dz*dz < radius*radius
}

// clamp limits value to the range [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Intersects reports whether a body with bounds b at pos touches any
// collidable object in candidates.
func Intersects(pos types.Vec3, b types.Bounds, candidates []*types.WorldObject) bool {
	for _, obj := range candidates {
		if obj == nil || !obj.Collidable {
			continue
		}
		if overlaps(pos, b, obj) {
			return true
		}
	}
	return false
}

// Resolve returns the part of desired the body at pos may actually move.
// The full vector is tried first; if blocked, the X and Z components are
// tried independently and whichever succeed are summed, which lets bodies
// slide along walls. Corners can still clip occasionally.
func Resolve(pos, desired types.Vec3, b types.Bounds, candidates []*types.WorldObject) types.Vec3 {
	if !Intersects(pos.Add(desired), b, candidates) {
		return desired
	}
	var allowed types.Vec3
	allowed.Y = desired.Y
	if desired.X != 0 && !Intersects(pos.Add(types.Vec3{X: desired.X}), b, candidates) {
		allowed.X = desired.X
	}
	if desired.Z != 0 && !Intersects(pos.Add(types.Vec3{Z: desired.Z}), b, candidates) {
		allowed.Z = desired.Z
	}
	return allowed
}
