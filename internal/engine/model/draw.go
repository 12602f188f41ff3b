package model

import (
	"slices"

	"github.com/Faultbox/kamishibai/pkg/math"
)

// DrawParams are the per-instance inputs of a draw traversal.
type DrawParams struct {
	World            math.Mat4
	DisabledNodes    []string
	TextureOverrides map[ItemSlot]*Texture
}

// DrawItem is everything a renderer needs to submit one mesh.
type DrawItem struct {
	Node              NodeID
	Mesh              *Mesh
	World             math.Mat4
	WorldInvTranspose math.Mat4
	Material          Material
	SkinMatrices      []math.Mat4 // nil for static meshes
	Texture           *Texture
	IndexFormat       IndexFormat
	Skinned           bool
}

// Draw refreshes animated transforms from localBoneTransforms when the model
// has animations, then emits draw items for the whole tree.
func (m *Model) Draw(params DrawParams, localBoneTransforms []math.Mat4, emit func(DrawItem)) {
	if len(m.nodes) == 0 {
		return
	}
	if m.HasAnimations() {
		m.UpdateTransforms(localBoneTransforms)
	}
	m.DrawNode(m.Root(), params, emit)
}

// DrawNode emits one item per mesh of id and its subtree, in pre-order.
// Disabled nodes emit nothing but their children are still visited. Skin
// matrices are recomputed on every call.
func (m *Model) DrawNode(id NodeID, params DrawParams, emit func(DrawItem)) {
	n := &m.nodes[id]

	if !slices.Contains(params.DisabledNodes, n.Name) && len(n.Meshes) > 0 {
		world := params.World.Mul(n.Global)
		worldInvTranspose := world.InverseTranspose()

		for _, mesh := range n.Meshes {
			item := DrawItem{
				Node:              id,
				Mesh:              mesh,
				World:             world,
				WorldInvTranspose: worldInvTranspose,
				Material:          mesh.Material,
				Texture:           m.resolveTexture(mesh, params.TextureOverrides),
				IndexFormat:       mesh.IndexFormat,
				Skinned:           mesh.HasBones(),
			}
			if mesh.HasBones() {
				item.SkinMatrices = m.BoneMatrices(id, mesh)
			}
			emit(item)
		}
	}

	for _, c := range n.Children {
		m.DrawNode(c, params, emit)
	}
}

func (m *Model) resolveTexture(mesh *Mesh, overrides map[ItemSlot]*Texture) *Texture {
	if mesh.Diffuse == nil {
		return nil
	}
	if slot, ok := m.textureSlots[mesh.Diffuse.ID]; ok {
		if tex := overrides[slot]; tex != nil {
			return tex
		}
	}
	return mesh.Diffuse
}

// CollisionSoup returns the geometry of every mesh transformed into the space
// of scale, for building physics shapes. Vertices are moved by the owning
// node's global transform first, then by scale.
func (m *Model) CollisionSoup(scale math.Mat4) []TriangleSoup {
	var soups []TriangleSoup
	if len(m.nodes) == 0 {
		return soups
	}
	m.Walk(m.Root(), func(id NodeID, _ int) {
		n := &m.nodes[id]
		transform := scale.Mul(n.Global)
		for _, mesh := range n.Meshes {
			soup := TriangleSoup{
				Vertices: make([][3]float32, len(mesh.Vertices)),
				Indices:  mesh.Indices,
			}
			for i := range mesh.Vertices {
				soup.Vertices[i] = transform.TransformPoint(mesh.Vertices[i].Position)
			}
			soups = append(soups, soup)
		}
	})
	return soups
}
