package model

import (
	"fmt"
	gomath "math"

	"github.com/Faultbox/kamishibai/pkg/formats"
	"github.com/Faultbox/kamishibai/pkg/math"
)

// NodeID indexes a node in its model's arena.
type NodeID int

// NoNode is the parent of the root node.
const NoNode NodeID = -1

// NoChannel marks a node that no animation channel drives.
const NoChannel = -1

// Node is one element of the scene graph.
type Node struct {
	Name     string
	Local    math.Mat4
	Global   math.Mat4 // derived from the chain of locals
	Parent   NodeID
	Children []NodeID
	Meshes   []*Mesh
	Channel  int
}

// Animated reports whether an animation channel drives the node.
func (n *Node) Animated() bool {
	return n.Channel != NoChannel
}

func channelIndex(c uint64) int {
	if c == formats.KSMNoChannel || c > gomath.MaxInt32 {
		return NoChannel
	}
	return int(c)
}

// readNodeTree appends kn and its subtree to the arena in pre-order. Meshes
// are appended to the flat mesh list after the node's children.
func (m *Model) readNodeTree(kn *formats.KSMNode, parent NodeID, textures TextureResolver) (NodeID, error) {
	id := NodeID(len(m.nodes))
	m.nodes = append(m.nodes, Node{
		Name:    kn.Name,
		Local:   math.FromRowMajor(kn.Transform),
		Parent:  parent,
		Channel: channelIndex(kn.Channel),
	})
	m.CalculateGlobalTransform(id)

	meshes := make([]*Mesh, 0, len(kn.Meshes))
	for i, km := range kn.Meshes {
		mesh, err := newMesh(km, textures)
		if err != nil {
			return NoNode, fmt.Errorf("node %q mesh %d: %w", kn.Name, i, err)
		}
		meshes = append(meshes, mesh)
	}
	m.nodes[id].Meshes = meshes

	for _, kc := range kn.Children {
		child, err := m.readNodeTree(kc, id, textures)
		if err != nil {
			return NoNode, err
		}
		m.nodes[id].Children = append(m.nodes[id].Children, child)
	}

	for _, mesh := range meshes {
		m.meshes = append(m.meshes, mesh)
		m.meshNodes[mesh] = id
	}
	return id, nil
}

// CalculateGlobalTransform recomputes the global transform of a node by
// concatenating the local transforms of it and every ancestor.
func (m *Model) CalculateGlobalTransform(id NodeID) math.Mat4 {
	n := &m.nodes[id]
	global := n.Local
	for p := n.Parent; p != NoNode; p = m.nodes[p].Parent {
		global = m.nodes[p].Local.Mul(global)
	}
	n.Global = global
	return global
}

// UpdateTransforms applies per-channel local transforms to every animated node
// and refreshes global transforms for the whole tree.
func (m *Model) UpdateTransforms(transforms []math.Mat4) {
	if len(m.nodes) == 0 {
		return
	}
	m.UpdateNodeTransforms(m.Root(), transforms)
}

// UpdateNodeTransforms updates id and its subtree in pre-order. Every
// descendant is visited even when id has no channel, so children of animated
// nodes always see fresh globals. Channels outside transforms are ignored.
func (m *Model) UpdateNodeTransforms(id NodeID, transforms []math.Mat4) {
	n := &m.nodes[id]
	if n.Channel != NoChannel && n.Channel < len(transforms) {
		n.Local = transforms[n.Channel]
	}
	m.CalculateGlobalTransform(id)

	for _, c := range n.Children {
		m.UpdateNodeTransforms(c, transforms)
	}
}
