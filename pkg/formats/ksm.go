// KSM model format parser and encoder.
package formats

import (
	"errors"
	"fmt"
	"os"
)

// KSM format errors.
var (
	ErrTruncatedKSMData  = errors.New("truncated KSM data")
	ErrFaceCountMismatch = errors.New("KSM index count is not three times the face count")
	ErrIndexOutOfRange   = errors.New("KSM index references a missing vertex")
	ErrKSMNodeDepth      = errors.New("KSM node tree too deep")
)

// KSMNoChannel marks a node that is not driven by an animation channel.
const KSMNoChannel = ^uint64(0)

// maxKSMNodeDepth bounds recursion on malformed files.
const maxKSMNodeDepth = 512

// Encoded element sizes.
const (
	ksmStaticVertexSize  = 32 // position, normal, texcoord
	ksmSkinnedVertexSize = 48 // + 3 weights, 4 bone indices
	ksmIndexSize         = 4
	ksmBoneMinSize       = 4 + 64
	ksmKeyframeSize      = 44
	ksmMeshMinSize       = 4*4 + 16*4 + 3*4 + 1 + 1 + 4 + 4 + 24
	ksmNodeMinSize       = 4 + 64 + 8 + 4 + 4
)

// KSMHeader holds the counts stored at the start of a KSM file.
type KSMHeader struct {
	MeshCount      uint32
	MaterialCount  uint32
	TextureCount   uint32
	AnimationCount uint32
}

// KSMVertex is one vertex. Weights and BoneIndices are only stored for
// skinned meshes.
type KSMVertex struct {
	Position    [3]float32
	Normal      [3]float32
	TexCoord    [2]float32
	Weights     [3]float32
	BoneIndices [4]uint8
}

// KSMMaterial holds the four material colors.
type KSMMaterial struct {
	Diffuse  [4]float32
	Ambient  [4]float32
	Reflect  [4]float32
	Specular [4]float32
}

// KSMBone binds a mesh to a node by name. Offset is row-major as stored.
type KSMBone struct {
	Name   string
	Offset [16]float32
}

// KSMMesh is one drawable mesh record.
type KSMMesh struct {
	FaceCount        uint32
	Material         KSMMaterial
	Opacity          float32
	Shininess        float32
	SpecularStrength float32
	Indices16        bool // GPU index format, indices are 32-bit on disk
	Indices          []uint32
	Skinned          bool
	Vertices         []KSMVertex
	DiffusePath      string
	NormalPath       string
	Bones            []KSMBone
	BoundsCenter     [3]float32
	BoundsExtents    [3]float32
}

// KSMNode is one scene graph node. Transform is row-major as stored.
type KSMNode struct {
	Name      string
	Transform [16]float32
	Channel   uint64
	Meshes    []*KSMMesh
	Children  []*KSMNode
}

// KSMKeyframe is one animation key.
type KSMKeyframe struct {
	Translation [3]float32
	Scale       [3]float32
	Rotation    [4]float32 // x, y, z, w
	TimePos     float32
}

// KSMTrack is the keyframe list of one animation channel.
type KSMTrack struct {
	Keyframes []KSMKeyframe
}

// KSMClip is one animation clip.
type KSMClip struct {
	Name           string
	Duration       float32
	TicksPerSecond float32
	Tracks         []KSMTrack
	TotalFrames    uint32
}

// KSM is a parsed model file.
type KSM struct {
	Header        KSMHeader
	Root          *KSMNode
	Clips         []KSMClip
	BoundsCenter  [3]float32
	BoundsExtents [3]float32
}

// ParseKSM parses a KSM model from raw bytes.
func ParseKSM(data []byte) (*KSM, error) {
	r := NewReader(data)
	k := &KSM{}

	k.Header = KSMHeader{
		MeshCount:      r.U32(),
		MaterialCount:  r.U32(),
		TextureCount:   r.U32(),
		AnimationCount: r.U32(),
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	root, err := parseKSMNode(r, 0)
	if err != nil {
		return nil, fmt.Errorf("reading node tree: %w", err)
	}
	k.Root = root

	k.Clips = ReadArray(r, k.Header.AnimationCount, 4+4+4+4+4, readKSMClip)
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading animation clips: %w", err)
	}

	k.BoundsCenter = r.Vec3()
	k.BoundsExtents = r.Vec3()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading bounds: %w", err)
	}

	return k, nil
}

// ParseKSMFile reads and parses a KSM file from disk.
func ParseKSMFile(path string) (*KSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading KSM file: %w", err)
	}
	return ParseKSM(data)
}

func parseKSMNode(r *Reader, depth int) (*KSMNode, error) {
	if depth > maxKSMNodeDepth {
		return nil, ErrKSMNodeDepth
	}

	n := &KSMNode{
		Name:      r.String(),
		Transform: r.Mat4(),
		Channel:   r.U64(),
	}

	meshCount := r.U32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if uint64(meshCount)*ksmMeshMinSize > uint64(r.Remaining()) {
		return nil, ErrTruncatedKSMData
	}
	for i := uint32(0); i < meshCount; i++ {
		m, err := parseKSMMesh(r)
		if err != nil {
			return nil, fmt.Errorf("node %q mesh %d: %w", n.Name, i, err)
		}
		n.Meshes = append(n.Meshes, m)
	}

	childCount := r.U32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if uint64(childCount)*ksmNodeMinSize > uint64(r.Remaining()) {
		return nil, ErrTruncatedKSMData
	}
	for i := uint32(0); i < childCount; i++ {
		child, err := parseKSMNode(r, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}

	return n, nil
}

func parseKSMMesh(r *Reader) (*KSMMesh, error) {
	m := &KSMMesh{}

	numBones := r.U32()
	m.FaceCount = r.U32()
	vertexCount := r.U32()
	indexCount := r.U32()

	m.Material = KSMMaterial{
		Diffuse:  r.Vec4(),
		Ambient:  r.Vec4(),
		Reflect:  r.Vec4(),
		Specular: r.Vec4(),
	}
	m.Opacity = r.F32()
	m.Shininess = r.F32()
	m.SpecularStrength = r.F32()

	m.Indices16 = r.Bool()
	m.Indices = ReadArray(r, indexCount, ksmIndexSize, (*Reader).U32)

	m.Skinned = r.Bool()
	if m.Skinned {
		m.Vertices = ReadArray(r, vertexCount, ksmSkinnedVertexSize, readKSMSkinnedVertex)
	} else {
		m.Vertices = ReadArray(r, vertexCount, ksmStaticVertexSize, readKSMStaticVertex)
	}

	m.DiffusePath = r.String()
	m.NormalPath = r.String()
	m.Bones = ReadArray(r, numBones, ksmBoneMinSize, readKSMBone)

	m.BoundsCenter = r.Vec3()
	m.BoundsExtents = r.Vec3()

	if err := r.Err(); err != nil {
		return nil, err
	}

	if uint64(indexCount) != 3*uint64(m.FaceCount) {
		return nil, fmt.Errorf("%w: %d indices, %d faces", ErrFaceCountMismatch, indexCount, m.FaceCount)
	}
	for i, idx := range m.Indices {
		if idx >= vertexCount {
			return nil, fmt.Errorf("%w: index %d is %d, vertex count %d", ErrIndexOutOfRange, i, idx, vertexCount)
		}
	}

	return m, nil
}

func readKSMStaticVertex(r *Reader) KSMVertex {
	var v KSMVertex
	v.Position = r.Vec3()
	v.Normal = r.Vec3()
	v.TexCoord = [2]float32{r.F32(), r.F32()}
	return v
}

func readKSMSkinnedVertex(r *Reader) KSMVertex {
	v := readKSMStaticVertex(r)
	v.Weights = r.Vec3()
	for i := range v.BoneIndices {
		v.BoneIndices[i] = r.U8()
	}
	return v
}

func readKSMBone(r *Reader) KSMBone {
	return KSMBone{Name: r.String(), Offset: r.Mat4()}
}

func readKSMKeyframe(r *Reader) KSMKeyframe {
	return KSMKeyframe{
		Translation: r.Vec3(),
		Scale:       r.Vec3(),
		Rotation:    r.Vec4(),
		TimePos:     r.F32(),
	}
}

func readKSMTrack(r *Reader) KSMTrack {
	return KSMTrack{Keyframes: ReadArray(r, r.U32(), ksmKeyframeSize, readKSMKeyframe)}
}

func readKSMClip(r *Reader) KSMClip {
	c := KSMClip{
		Name:           r.String(),
		Duration:       r.F32(),
		TicksPerSecond: r.F32(),
	}
	c.Tracks = ReadArray(r, r.U32(), 4, readKSMTrack)
	c.TotalFrames = r.U32()
	return c
}

// EncodeKSM serializes k. Array counts are taken from slice lengths and
// Header.AnimationCount from len(Clips).
func EncodeKSM(k *KSM) []byte {
	w := &Writer{}

	w.U32(k.Header.MeshCount)
	w.U32(k.Header.MaterialCount)
	w.U32(k.Header.TextureCount)
	w.U32(uint32(len(k.Clips)))

	root := k.Root
	if root == nil {
		root = &KSMNode{Channel: KSMNoChannel}
	}
	encodeKSMNode(w, root)

	for _, c := range k.Clips {
		w.String(c.Name)
		w.F32(c.Duration)
		w.F32(c.TicksPerSecond)
		w.U32(uint32(len(c.Tracks)))
		for _, t := range c.Tracks {
			w.U32(uint32(len(t.Keyframes)))
			for _, kf := range t.Keyframes {
				w.Vec3(kf.Translation)
				w.Vec3(kf.Scale)
				w.Vec4(kf.Rotation)
				w.F32(kf.TimePos)
			}
		}
		w.U32(c.TotalFrames)
	}

	w.Vec3(k.BoundsCenter)
	w.Vec3(k.BoundsExtents)
	return w.Bytes()
}

func encodeKSMNode(w *Writer, n *KSMNode) {
	w.String(n.Name)
	w.Mat4(n.Transform)
	w.U64(n.Channel)

	w.U32(uint32(len(n.Meshes)))
	for _, m := range n.Meshes {
		encodeKSMMesh(w, m)
	}

	w.U32(uint32(len(n.Children)))
	for _, c := range n.Children {
		encodeKSMNode(w, c)
	}
}

func encodeKSMMesh(w *Writer, m *KSMMesh) {
	w.U32(uint32(len(m.Bones)))
	w.U32(m.FaceCount)
	w.U32(uint32(len(m.Vertices)))
	w.U32(uint32(len(m.Indices)))

	w.Vec4(m.Material.Diffuse)
	w.Vec4(m.Material.Ambient)
	w.Vec4(m.Material.Reflect)
	w.Vec4(m.Material.Specular)
	w.F32(m.Opacity)
	w.F32(m.Shininess)
	w.F32(m.SpecularStrength)

	w.Bool(m.Indices16)
	for _, idx := range m.Indices {
		w.U32(idx)
	}

	w.Bool(m.Skinned)
	for _, v := range m.Vertices {
		w.Vec3(v.Position)
		w.Vec3(v.Normal)
		w.F32(v.TexCoord[0])
		w.F32(v.TexCoord[1])
		if m.Skinned {
			w.Vec3(v.Weights)
			for _, b := range v.BoneIndices {
				w.U8(b)
			}
		}
	}

	w.String(m.DiffusePath)
	w.String(m.NormalPath)
	for _, b := range m.Bones {
		w.String(b.Name)
		w.Mat4(b.Offset)
	}

	w.Vec3(m.BoundsCenter)
	w.Vec3(m.BoundsExtents)
}

// Walk visits every node in pre-order.
func (k *KSM) Walk(fn func(n *KSMNode, depth int)) {
	var walk func(n *KSMNode, depth int)
	walk = func(n *KSMNode, depth int) {
		if n == nil {
			return
		}
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(k.Root, 0)
}

// NodeCount returns the number of nodes in the tree.
func (k *KSM) NodeCount() int {
	count := 0
	k.Walk(func(*KSMNode, int) { count++ })
	return count
}

// TotalVertexCount returns the total vertex count across all meshes.
func (k *KSM) TotalVertexCount() int {
	count := 0
	k.Walk(func(n *KSMNode, _ int) {
		for _, m := range n.Meshes {
			count += len(m.Vertices)
		}
	})
	return count
}

// TotalFaceCount returns the total face count across all meshes.
func (k *KSM) TotalFaceCount() int {
	count := 0
	k.Walk(func(n *KSMNode, _ int) {
		for _, m := range n.Meshes {
			count += int(m.FaceCount)
		}
	})
	return count
}

// HasAnimation reports whether the file carries animation clips.
func (k *KSM) HasAnimation() bool {
	return k.Header.AnimationCount > 0
}
