package model

import (
	"fmt"

	"github.com/Faultbox/kamishibai/internal/engine/picking"
	"github.com/Faultbox/kamishibai/pkg/encoding"
	"github.com/Faultbox/kamishibai/pkg/formats"
	"github.com/Faultbox/kamishibai/pkg/math"
)

// Mesh is one drawable unit of a model.
type Mesh struct {
	VertexCount int
	IndexCount  int
	FaceCount   int

	Vertices    []Vertex
	Indices     []uint32 // always 32-bit in memory
	IndexFormat IndexFormat
	Skinned     bool // vertices carry bone weights

	Material         Material
	Opacity          float32
	Shininess        float32
	SpecularStrength float32

	Bones []Bone

	// Textures are owned by the asset cache.
	Diffuse *Texture
	Normal  *Texture

	// DefaultDiffuseName is the file name of the diffuse texture stored in the
	// model, used to map the texture onto an item slot.
	DefaultDiffuseName string

	Bounds picking.BoundingBox
}

func newMesh(km *formats.KSMMesh, textures TextureResolver) (*Mesh, error) {
	m := &Mesh{
		VertexCount: len(km.Vertices),
		IndexCount:  len(km.Indices),
		FaceCount:   int(km.FaceCount),
		Indices:     km.Indices,
		IndexFormat: IndexFormat32,
		Skinned:     km.Skinned,
		Material: Material{
			Diffuse:  km.Material.Diffuse,
			Ambient:  km.Material.Ambient,
			Reflect:  km.Material.Reflect,
			Specular: km.Material.Specular,
		},
		Opacity:          km.Opacity,
		Shininess:        km.Shininess,
		SpecularStrength: km.SpecularStrength,
		Bounds: picking.BoundingBox{
			Center:  km.BoundsCenter,
			Extents: km.BoundsExtents,
		},
	}
	if km.Indices16 && fits16(len(km.Vertices)) {
		m.IndexFormat = IndexFormat16
	}

	m.Vertices = make([]Vertex, len(km.Vertices))
	for i, v := range km.Vertices {
		m.Vertices[i] = Vertex(v)
	}

	if len(km.Bones) > 0 {
		m.Bones = make([]Bone, len(km.Bones))
		for i, b := range km.Bones {
			m.Bones[i] = Bone{Name: b.Name, Offset: math.FromRowMajor(b.Offset)}
		}
	}

	if km.DiffusePath != "" {
		m.DefaultDiffuseName = encoding.FileName(km.DiffusePath)
		if textures != nil {
			tex, err := textures.Texture(km.DiffusePath)
			if err != nil {
				return nil, fmt.Errorf("diffuse texture: %w", err)
			}
			m.Diffuse = tex
		}
	}
	if km.NormalPath != "" && textures != nil {
		tex, err := textures.Texture(km.NormalPath)
		if err != nil {
			return nil, fmt.Errorf("normal texture: %w", err)
		}
		m.Normal = tex
	}

	return m, nil
}

// NewGeometryMesh builds a mesh from generated geometry. The mesh has no
// bones and a plain grey material.
func NewGeometryMesh(geom Geometry, diffuse, normal *Texture) *Mesh {
	m := &Mesh{
		VertexCount: len(geom.Vertices),
		IndexCount:  len(geom.Indices),
		FaceCount:   len(geom.Indices) / 3,
		Vertices:    geom.Vertices,
		Indices:     geom.Indices,
		IndexFormat: IndexFormat32,
		Material: Material{
			Diffuse:  [4]float32{0.8, 0.8, 0.8, 0.8},
			Ambient:  [4]float32{0.8, 0.8, 0.8, 0.8},
			Specular: [4]float32{0.2, 0.2, 0.2, 16},
		},
		Opacity:          1,
		Shininess:        1,
		SpecularStrength: 16,
		Diffuse:          diffuse,
		Normal:           normal,
		Bounds:           geom.Bounds(),
	}
	if len(geom.Indices) < 0xFFFF && fits16(len(geom.Vertices)) {
		m.IndexFormat = IndexFormat16
	}
	return m
}

// HasBones reports whether the mesh is skinned by any bones.
func (m *Mesh) HasBones() bool {
	return len(m.Bones) > 0
}

// NumBones returns the number of bone bindings.
func (m *Mesh) NumBones() int {
	return len(m.Bones)
}

// Positions returns the vertex positions.
func (m *Mesh) Positions() [][3]float32 {
	p := make([][3]float32, len(m.Vertices))
	for i := range m.Vertices {
		p[i] = m.Vertices[i].Position
	}
	return p
}

// fits16 reports whether every index into vertexCount vertices fits in 16 bits.
func fits16(vertexCount int) bool {
	return vertexCount <= 0x10000
}

// Index16 returns the indices narrowed to 16 bits for IndexFormat16 payloads.
// Meshes with more vertices than 16-bit indices can address never get that
// format, so the narrowing is lossless for them.
func (m *Mesh) Index16() []uint16 {
	out := make([]uint16, len(m.Indices))
	for i, idx := range m.Indices {
		out[i] = uint16(idx)
	}
	return out
}

// Triangle returns the positions of triangle n.
func (m *Mesh) Triangle(n int) (v0, v1, v2 [3]float32) {
	return m.Vertices[m.Indices[n*3]].Position,
		m.Vertices[m.Indices[n*3+1]].Position,
		m.Vertices[m.Indices[n*3+2]].Position
}

// TriangleCount returns the number of whole triangles in the index list.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IntersectedBy reports whether a view-space ray hits the mesh.
//
// world is the model's world matrix, nodeGlobal the global transform of the
// node that owns the mesh, and invView the inverse view matrix. The mesh
// bounding box is tested first in mesh space. Triangles are then tested in
// storage order and the first hit wins; it is not necessarily the closest.
func (m *Mesh) IntersectedBy(ray picking.Ray, world, nodeGlobal, invView math.Mat4) bool {
	modelRay := ray.Transform(world.Inverse().Mul(invView))

	localRay := modelRay.Transform(nodeGlobal.Inverse())
	if _, hit := localRay.IntersectBox(m.Bounds); !hit {
		return false
	}

	for n := 0; n < m.TriangleCount(); n++ {
		v0, v1, v2 := m.Triangle(n)
		v0 = nodeGlobal.TransformPoint(v0)
		v1 = nodeGlobal.TransformPoint(v1)
		v2 = nodeGlobal.TransformPoint(v2)
		if _, hit := modelRay.IntersectTriangle(v0, v1, v2); hit {
			return true
		}
	}
	return false
}

// Intersections returns one point per triangle hit by ray, in triangle order.
// The point is the triangle's first vertex after transformation. When
// transform is nil the triangles are tested in mesh space.
func (m *Mesh) Intersections(ray picking.Ray, transform *math.Mat4) [][3]float32 {
	var points [][3]float32
	for n := 0; n < m.TriangleCount(); n++ {
		v0, v1, v2 := m.Triangle(n)
		if transform != nil {
			v0 = transform.TransformPoint(v0)
			v1 = transform.TransformPoint(v1)
			v2 = transform.TransformPoint(v2)
		}
		if _, hit := ray.IntersectTriangle(v0, v1, v2); hit {
			points = append(points, v0)
		}
	}
	return points
}
