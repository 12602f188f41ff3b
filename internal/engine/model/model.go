package model

import (
	"fmt"

	"github.com/Faultbox/kamishibai/internal/engine/picking"
	"github.com/Faultbox/kamishibai/pkg/formats"
	"github.com/Faultbox/kamishibai/pkg/math"
)

// Model owns a scene graph: the node arena, a flat mesh list, bone lookup,
// animation clips, and the texture to item slot mapping.
type Model struct {
	MeshCount      int
	MaterialCount  int
	TextureCount   int
	AnimationCount int

	Clips  []Clip
	Bounds picking.BoundingBox // model space

	nodes        []Node
	meshes       []*Mesh
	meshNodes    map[*Mesh]NodeID
	boneNodes    map[string]NodeID
	textureSlots map[TextureID]ItemSlot
}

func newModel() *Model {
	return &Model{
		meshNodes:    make(map[*Mesh]NodeID),
		boneNodes:    make(map[string]NodeID),
		textureSlots: make(map[TextureID]ItemSlot),
	}
}

// Load parses KSM data and builds a model from it.
func Load(data []byte, textures TextureResolver) (*Model, error) {
	file, err := formats.ParseKSM(data)
	if err != nil {
		return nil, err
	}
	return Build(file, textures)
}

// Build creates a model from a parsed KSM file, resolving texture paths
// through textures. textures may be nil, in which case meshes keep their
// default texture names but no handles.
func Build(file *formats.KSM, textures TextureResolver) (*Model, error) {
	if file.Root == nil {
		return nil, ErrNoRoot
	}

	m := newModel()
	m.MeshCount = int(file.Header.MeshCount)
	m.MaterialCount = int(file.Header.MaterialCount)
	m.TextureCount = int(file.Header.TextureCount)
	m.AnimationCount = int(file.Header.AnimationCount)

	if _, err := m.readNodeTree(file.Root, NoNode, textures); err != nil {
		return nil, err
	}

	if err := m.resolveBones(); err != nil {
		return nil, err
	}

	m.Clips = make([]Clip, len(file.Clips))
	for i := range file.Clips {
		m.Clips[i] = newClip(&file.Clips[i])
	}

	m.Bounds = picking.BoundingBox{Center: file.BoundsCenter, Extents: file.BoundsExtents}
	return m, nil
}

// NewGeometryModel wraps generated geometry in a two-node model: a root named
// "RootNode" with one child "MeshData" that holds the mesh.
func NewGeometryModel(geom Geometry, diffuse *Texture) *Model {
	m := newModel()
	mesh := NewGeometryMesh(geom, diffuse, nil)

	m.nodes = []Node{
		{Name: "RootNode", Local: math.Identity(), Global: math.Identity(), Parent: NoNode, Children: []NodeID{1}, Channel: NoChannel},
		{Name: "MeshData", Local: math.Identity(), Global: math.Identity(), Parent: 0, Meshes: []*Mesh{mesh}, Channel: NoChannel},
	}
	m.meshes = []*Mesh{mesh}
	m.meshNodes[mesh] = 1
	m.MeshCount = 1
	m.Bounds = mesh.Bounds
	return m
}

// resolveBones maps every bone name used by a mesh to the first node with that
// name in arena order.
func (m *Model) resolveBones() error {
	for _, mesh := range m.meshes {
		for _, bone := range mesh.Bones {
			if _, ok := m.boneNodes[bone.Name]; ok {
				continue
			}
			id, ok := m.FindNode(bone.Name)
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnresolvedBone, bone.Name)
			}
			m.boneNodes[bone.Name] = id
		}
	}
	return nil
}

// Root returns the root node ID.
func (m *Model) Root() NodeID {
	return 0
}

// NodeCount returns the number of nodes.
func (m *Model) NodeCount() int {
	return len(m.nodes)
}

// Node returns the node with the given ID.
func (m *Model) Node(id NodeID) *Node {
	return &m.nodes[id]
}

// FindNode returns the first node named name.
func (m *Model) FindNode(name string) (NodeID, bool) {
	for i := range m.nodes {
		if m.nodes[i].Name == name {
			return NodeID(i), true
		}
	}
	return NoNode, false
}

// BoneNode returns the node a bone name resolved to.
func (m *Model) BoneNode(name string) (NodeID, bool) {
	id, ok := m.boneNodes[name]
	return id, ok
}

// Meshes returns every mesh in the model. Meshes of a node follow the meshes
// of its descendants.
func (m *Model) Meshes() []*Mesh {
	return m.meshes
}

// MeshNode returns the node that owns mesh.
func (m *Model) MeshNode(mesh *Mesh) (NodeID, bool) {
	id, ok := m.meshNodes[mesh]
	return id, ok
}

// HasAnimations reports whether the model file declared animation clips.
func (m *Model) HasAnimations() bool {
	return m.AnimationCount > 0
}

// Clip returns the clip named name.
func (m *Model) Clip(name string) (*Clip, bool) {
	for i := range m.Clips {
		if m.Clips[i].Name == name {
			return &m.Clips[i], true
		}
	}
	return nil, false
}

// Walk visits the subtree rooted at id in pre-order.
func (m *Model) Walk(id NodeID, fn func(id NodeID, depth int)) {
	m.walk(id, 0, fn)
}

func (m *Model) walk(id NodeID, depth int, fn func(NodeID, int)) {
	fn(id, depth)
	for _, c := range m.nodes[id].Children {
		m.walk(c, depth+1, fn)
	}
}

// BoneMatrices computes the skin matrices of a mesh owned by node.
//
// Each matrix takes a vertex from bind pose to the current pose in mesh space:
// the bone offset is applied first, then the bone node's current global
// transform, then the inverse of the mesh node's global transform. Matrices
// for bones that did not resolve stay identity.
func (m *Model) BoneMatrices(node NodeID, mesh *Mesh) []math.Mat4 {
	out := make([]math.Mat4, len(mesh.Bones))
	for i := range out {
		out[i] = math.Identity()
	}

	inverseMesh := m.nodes[node].Global.Inverse()
	for i, bone := range mesh.Bones {
		id, ok := m.boneNodes[bone.Name]
		if !ok {
			continue
		}
		out[i] = inverseMesh.Mul(m.nodes[id].Global).Mul(bone.Offset)
	}
	return out
}

// SetTextureMapping records slot for the diffuse texture of every mesh whose
// default diffuse name is name. Empty names are ignored.
func (m *Model) SetTextureMapping(slot ItemSlot, name string) {
	if name == "" {
		return
	}
	for _, mesh := range m.meshes {
		if mesh.DefaultDiffuseName == name && mesh.Diffuse != nil {
			m.textureSlots[mesh.Diffuse.ID] = slot
		}
	}
}

// TextureSlot returns the slot a texture is mapped to.
func (m *Model) TextureSlot(id TextureID) (ItemSlot, bool) {
	slot, ok := m.textureSlots[id]
	return slot, ok
}

// TextureMapping returns a copy of the texture to slot table.
func (m *Model) TextureMapping() map[TextureID]ItemSlot {
	out := make(map[TextureID]ItemSlot, len(m.textureSlots))
	for k, v := range m.textureSlots {
		out[k] = v
	}
	return out
}

// ApplyMaterialOverride replaces the ambient and diffuse colors of every mesh.
func (m *Model) ApplyMaterialOverride(ambient, diffuse [4]float32) {
	for _, mesh := range m.meshes {
		mesh.Material.Ambient = ambient
		mesh.Material.Diffuse = diffuse
	}
}

// IntersectedBy reports whether a view-space ray hits any mesh of the model
// placed at world. It stops at the first mesh hit.
func (m *Model) IntersectedBy(ray picking.Ray, world, invView math.Mat4) bool {
	for i := range m.nodes {
		for _, mesh := range m.nodes[i].Meshes {
			if mesh.IntersectedBy(ray, world, m.nodes[i].Global, invView) {
				return true
			}
		}
	}
	return false
}

// Intersections collects every triangle hit from every mesh, in node order.
func (m *Model) Intersections(ray picking.Ray, transform *math.Mat4) [][3]float32 {
	var points [][3]float32
	for i := range m.nodes {
		for _, mesh := range m.nodes[i].Meshes {
			points = append(points, mesh.Intersections(ray, transform)...)
		}
	}
	return points
}
