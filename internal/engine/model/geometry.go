package model

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/kamishibai/internal/engine/picking"
)

// Geometry is generated vertex and index data, such as terrain patches or
// primitives, that is wrapped in a mesh without going through a KSM file.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

// Bounds returns the bounding box of the vertex positions.
func (g Geometry) Bounds() picking.BoundingBox {
	if len(g.Vertices) == 0 {
		return picking.BoundingBox{}
	}

	box := picking.AABB{Min: g.Vertices[0].Position, Max: g.Vertices[0].Position}
	for i := range g.Vertices {
		updateBounds(&box, g.Vertices[i].Position)
	}
	return picking.FromAABB(box)
}

// ComputeNormals sets every vertex normal from the faces that use it.
// Face normals are accumulated unnormalized so larger faces weigh more.
func (g Geometry) ComputeNormals() {
	sums := make([][3]float32, len(g.Vertices))
	for n := 0; n+2 < len(g.Indices); n += 3 {
		i0, i1, i2 := g.Indices[n], g.Indices[n+1], g.Indices[n+2]
		p0 := g.Vertices[i0].Position
		p1 := g.Vertices[i1].Position
		p2 := g.Vertices[i2].Position
		e1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		e2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		fn := cross(e1, e2)
		for _, i := range [3]uint32{i0, i1, i2} {
			sums[i][0] += fn[0]
			sums[i][1] += fn[1]
			sums[i][2] += fn[2]
		}
	}
	for i := range g.Vertices {
		g.Vertices[i].Normal = normalize(sums[i])
	}
}

// SmoothNormals averages normals at shared vertex positions.
// This hides seams where a generator duplicates vertices along UV borders.
func (g Geometry) SmoothNormals() {
	const epsilon float32 = 0.001

	// Group vertices by quantized position for O(n) lookup
	posMap := make(map[[3]int32][]int)
	for i := range g.Vertices {
		key := [3]int32{
			int32(g.Vertices[i].Position[0] / epsilon),
			int32(g.Vertices[i].Position[1] / epsilon),
			int32(g.Vertices[i].Position[2] / epsilon),
		}
		posMap[key] = append(posMap[key], i)
	}

	for _, idxs := range posMap {
		if len(idxs) < 2 {
			continue
		}

		var sum [3]float32
		for _, idx := range idxs {
			sum[0] += g.Vertices[idx].Normal[0]
			sum[1] += g.Vertices[idx].Normal[1]
			sum[2] += g.Vertices[idx].Normal[2]
		}

		avg := normalize(sum)
		for _, idx := range idxs {
			g.Vertices[idx].Normal = avg
		}
	}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// normalize returns +Y for degenerate vectors.
func normalize(v [3]float32) [3]float32 {
	length := math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if length < 0.0001 {
		return [3]float32{0, 1, 0}
	}
	return [3]float32{v[0] / length, v[1] / length, v[2] / length}
}

func updateBounds(b *picking.AABB, p [3]float32) {
	for axis := 0; axis < 3; axis++ {
		if p[axis] < b.Min[axis] {
			b.Min[axis] = p[axis]
		}
		if p[axis] > b.Max[axis] {
			b.Max[axis] = p[axis]
		}
	}
}
