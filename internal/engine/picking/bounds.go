package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/kamishibai/pkg/math"
)

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min [3]float32
	Max [3]float32
}

// NewAABB creates an AABB from min and max corners, handling negative scales.
func NewAABB(minX, minY, minZ, maxX, maxY, maxZ float32) AABB {
	box := AABB{
		Min: [3]float32{minX, minY, minZ},
		Max: [3]float32{maxX, maxY, maxZ},
	}
	for i := 0; i < 3; i++ {
		if box.Min[i] > box.Max[i] {
			box.Min[i], box.Max[i] = box.Max[i], box.Min[i]
		}
	}
	return box
}

// Corners returns the eight corners of the box.
func (b AABB) Corners() [8][3]float32 {
	var c [8][3]float32
	for i := range c {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				c[i][axis] = b.Max[axis]
			} else {
				c[i][axis] = b.Min[axis]
			}
		}
	}
	return c
}

// BoundingBox is an axis-aligned box stored as center and half extents,
// the form KSM files use.
type BoundingBox struct {
	Center  [3]float32
	Extents [3]float32
}

// AABB returns the box as min/max corners.
func (b BoundingBox) AABB() AABB {
	return NewAABB(
		b.Center[0]-b.Extents[0], b.Center[1]-b.Extents[1], b.Center[2]-b.Extents[2],
		b.Center[0]+b.Extents[0], b.Center[1]+b.Extents[1], b.Center[2]+b.Extents[2],
	)
}

// Transform returns the axis-aligned box enclosing b after transformation by m.
func (b BoundingBox) Transform(m math.Mat4) BoundingBox {
	lo := [3]float32{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	hi := [3]float32{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32}
	for _, c := range b.AABB().Corners() {
		p := m.TransformPoint(c)
		for axis := 0; axis < 3; axis++ {
			lo[axis] = math32.Min(lo[axis], p[axis])
			hi[axis] = math32.Max(hi[axis], p[axis])
		}
	}
	return FromAABB(AABB{Min: lo, Max: hi})
}

// FromAABB converts min/max corners to center/extents.
func FromAABB(a AABB) BoundingBox {
	var b BoundingBox
	for axis := 0; axis < 3; axis++ {
		b.Center[axis] = (a.Min[axis] + a.Max[axis]) / 2
		b.Extents[axis] = (a.Max[axis] - a.Min[axis]) / 2
	}
	return b
}
