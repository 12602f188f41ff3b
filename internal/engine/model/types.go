// Package model holds the in-memory scene graph built from KSM files: nodes,
// meshes, bones, animation clips, and the queries an engine runs against them.
//
// Nodes live in a per-model arena and refer to each other by NodeID. Matrices
// use the column-vector convention of pkg/math, so a node's global transform is
// Global(parent)·Local.
package model

import (
	"errors"

	"github.com/Faultbox/kamishibai/pkg/math"
)

// Model errors.
var (
	ErrUnresolvedBone = errors.New("bone does not name a node in the model")
	ErrNoRoot         = errors.New("model has no root node")
)

// TextureID identifies a texture loaded by the asset cache.
type TextureID uint32

// Texture is a shared, cache-owned texture. Handle is whatever the texture
// loader produced and is treated as opaque here.
type Texture struct {
	ID     TextureID
	Key    string
	Path   string
	Handle any
}

// TextureResolver turns a texture path stored in a model into a shared texture.
// A nil texture with a nil error means the texture is unavailable.
type TextureResolver interface {
	Texture(path string) (*Texture, error)
}

// Vertex is a mesh vertex. Weights and BoneIndices are zero on static meshes.
type Vertex struct {
	Position    [3]float32
	Normal      [3]float32
	TexCoord    [2]float32
	Weights     [3]float32
	BoneIndices [4]uint8
}

// Material holds the four lighting colors of a mesh.
type Material struct {
	Diffuse  [4]float32
	Ambient  [4]float32
	Reflect  [4]float32
	Specular [4]float32 // w is the specular power
}

// Bone binds mesh vertices to the node with the same name.
type Bone struct {
	Name   string
	Offset math.Mat4 // bind pose to bone space
}

// IndexFormat is the index width handed to the renderer.
type IndexFormat int

const (
	IndexFormat32 IndexFormat = iota
	IndexFormat16
)

// String returns the format name.
func (f IndexFormat) String() string {
	if f == IndexFormat16 {
		return "uint16"
	}
	return "uint32"
}

// TriangleSoup is flattened, transformed mesh geometry for physics shape
// construction.
type TriangleSoup struct {
	Vertices [][3]float32
	Indices  []uint32
}
