// Package picking provides rays, bounding volumes and the intersection tests
// used for model picking.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/kamishibai/pkg/math"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    [3]float32
	Direction [3]float32
}

// ViewRay converts screen coordinates to a view-space ray starting at the eye.
// proj is the projection matrix; only its focal terms are used.
func ViewRay(screenX, screenY, viewportW, viewportH float32, proj math.Mat4) Ray {
	ndcX, ndcY := toNDC(screenX, screenY, viewportW, viewportH)

	dir := [3]float32{ndcX / proj[0], ndcY / proj[5], -1}
	return Ray{Direction: normalize(dir)}
}

func toNDC(screenX, screenY, viewportW, viewportH float32) (x, y float32) {
	x = 2.0*screenX/viewportW - 1.0
	y = 1.0 - 2.0*screenY/viewportH // Flip Y
	return x, y
}

func normalize(d [3]float32) [3]float32 {
	l := math32.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	if l == 0 {
		return d
	}
	return [3]float32{d[0] / l, d[1] / l, d[2] / l}
}

// Transform returns the ray moved into the space described by m.
// The origin is transformed as a point and the direction as a vector; the
// direction is renormalized so distances stay comparable.
func (r Ray) Transform(m math.Mat4) Ray {
	return Ray{
		Origin:    m.TransformPoint(r.Origin),
		Direction: normalize(m.TransformDirection(r.Direction)),
	}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) [3]float32 {
	return [3]float32{
		r.Origin[0] + t*r.Direction[0],
		r.Origin[1] + t*r.Direction[1],
		r.Origin[2] + t*r.Direction[2],
	}
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		if r.Direction[axis] == 0 {
			if r.Origin[axis] < box.Min[axis] || r.Origin[axis] > box.Max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (box.Min[axis] - r.Origin[axis]) / r.Direction[axis]
		t2 := (box.Max[axis] - r.Origin[axis]) / r.Direction[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}

	// Return entry point, or exit point if starting inside
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// IntersectBox tests the ray against a center/extents bounding box.
func (r Ray) IntersectBox(b BoundingBox) (t float32, hit bool) {
	return r.IntersectAABB(b.AABB())
}
