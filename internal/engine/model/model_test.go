package model

import (
	"errors"
	"testing"

	"github.com/Faultbox/kamishibai/internal/engine/picking"
	"github.com/Faultbox/kamishibai/pkg/formats"
	"github.com/Faultbox/kamishibai/pkg/math"
)

// fakeTextures hands out textures keyed by path with increasing IDs.
type fakeTextures struct {
	loaded map[string]*Texture
	calls  int
}

func (f *fakeTextures) Texture(path string) (*Texture, error) {
	f.calls++
	if f.loaded == nil {
		f.loaded = make(map[string]*Texture)
	}
	if tex, ok := f.loaded[path]; ok {
		return tex, nil
	}
	tex := &Texture{ID: TextureID(len(f.loaded) + 1), Key: path, Path: path}
	f.loaded[path] = tex
	return tex, nil
}

type failingTextures struct{}

func (failingTextures) Texture(string) (*Texture, error) {
	return nil, errors.New("disk on fire")
}

func rowMajor(m math.Mat4) [16]float32 {
	return m.RowMajor()
}

func quadKSMMesh(diffuse string) *formats.KSMMesh {
	return &formats.KSMMesh{
		FaceCount: 2,
		Material:  formats.KSMMaterial{Diffuse: [4]float32{1, 1, 1, 1}},
		Opacity:   1,
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Vertices: []formats.KSMVertex{
			{Position: [3]float32{-1, -1, 0}},
			{Position: [3]float32{1, -1, 0}},
			{Position: [3]float32{1, 1, 0}},
			{Position: [3]float32{-1, 1, 0}},
		},
		DiffusePath:   diffuse,
		BoundsExtents: [3]float32{1, 1, 0},
	}
}

// makeRiggedKSM builds:
//
//	RootNode
//	├── Body (T(1,0,0), skinned quad bound to Hip and Spine)
//	├── Hip (T(0,2,0), channel 0)
//	│   └── Spine (T(0,1,0), channel 1)
//	└── Sword (static quad)
//
// Bone offsets are chosen so the skin matrices are identity in the bind pose.
func makeRiggedKSM() *formats.KSM {
	body := quadKSMMesh(`Textures\Ochimusha\skin.dds`)
	body.Skinned = true
	for i := range body.Vertices {
		body.Vertices[i].Weights = [3]float32{1, 0, 0}
	}
	body.Bones = []formats.KSMBone{
		{Name: "Hip", Offset: rowMajor(math.Translate(1, -2, 0))},
		{Name: "Spine", Offset: rowMajor(math.Translate(1, -3, 0))},
	}

	return &formats.KSM{
		Header: formats.KSMHeader{MeshCount: 2, MaterialCount: 2, TextureCount: 2, AnimationCount: 1},
		Root: &formats.KSMNode{
			Name:      "RootNode",
			Transform: rowMajor(math.Identity()),
			Channel:   formats.KSMNoChannel,
			Children: []*formats.KSMNode{
				{
					Name:      "Body",
					Transform: rowMajor(math.Translate(1, 0, 0)),
					Channel:   formats.KSMNoChannel,
					Meshes:    []*formats.KSMMesh{body},
				},
				{
					Name:      "Hip",
					Transform: rowMajor(math.Translate(0, 2, 0)),
					Channel:   0,
					Children: []*formats.KSMNode{
						{Name: "Spine", Transform: rowMajor(math.Translate(0, 1, 0)), Channel: 1},
					},
				},
				{
					Name:      "Sword",
					Transform: rowMajor(math.Identity()),
					Channel:   formats.KSMNoChannel,
					Meshes:    []*formats.KSMMesh{quadKSMMesh("Textures/katana.dds")},
				},
			},
		},
		Clips: []formats.KSMClip{{
			Name:           "Idle",
			Duration:       10,
			TicksPerSecond: 10,
			Tracks: []formats.KSMTrack{
				{Keyframes: []formats.KSMKeyframe{
					{Translation: [3]float32{0, 2, 0}, Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}},
					{Translation: [3]float32{0, 4, 0}, Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}, TimePos: 10},
				}},
				{Keyframes: []formats.KSMKeyframe{
					{Translation: [3]float32{0, 1, 0}, Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}},
				}},
			},
			TotalFrames: 11,
		}},
		BoundsCenter:  [3]float32{0, 1, 0},
		BoundsExtents: [3]float32{2, 2, 1},
	}
}

func loadRigged(t *testing.T) (*Model, *fakeTextures) {
	t.Helper()
	textures := &fakeTextures{}
	m, err := Load(formats.EncodeKSM(makeRiggedKSM()), textures)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return m, textures
}

func mustFind(t *testing.T, m *Model, name string) NodeID {
	t.Helper()
	id, ok := m.FindNode(name)
	if !ok {
		t.Fatalf("node %q not found", name)
	}
	return id
}

func TestLoad_Structure(t *testing.T) {
	m, textures := loadRigged(t)

	if m.NodeCount() != 5 {
		t.Fatalf("NodeCount = %d, want 5", m.NodeCount())
	}

	var order []string
	m.Walk(m.Root(), func(id NodeID, _ int) {
		order = append(order, m.Node(id).Name)
	})
	want := []string{"RootNode", "Body", "Hip", "Spine", "Sword"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("pre-order[%d] = %q, want %q", i, order[i], want[i])
		}
	}

	if m.Node(m.Root()).Parent != NoNode {
		t.Error("root has a parent")
	}
	if got := m.Node(mustFind(t, m, "Spine")).Parent; got != mustFind(t, m, "Hip") {
		t.Errorf("Spine parent = %d", got)
	}
	if m.Node(m.Root()).Channel != NoChannel {
		t.Errorf("root channel = %d, want NoChannel", m.Node(m.Root()).Channel)
	}
	if m.Node(mustFind(t, m, "Spine")).Channel != 1 {
		t.Errorf("Spine channel = %d, want 1", m.Node(mustFind(t, m, "Spine")).Channel)
	}

	if len(m.Meshes()) != 2 {
		t.Fatalf("Meshes = %d, want 2", len(m.Meshes()))
	}
	body := m.Meshes()[0]
	if body.DefaultDiffuseName != "skin.dds" {
		t.Errorf("DefaultDiffuseName = %q, want skin.dds", body.DefaultDiffuseName)
	}
	if body.Diffuse == nil || body.Diffuse.Path != `Textures\Ochimusha\skin.dds` {
		t.Errorf("Diffuse = %+v", body.Diffuse)
	}
	if body.IndexCount != 3*body.FaceCount {
		t.Errorf("IndexCount = %d, FaceCount = %d", body.IndexCount, body.FaceCount)
	}
	if textures.calls != 2 {
		t.Errorf("texture resolver calls = %d, want 2", textures.calls)
	}
	if id, ok := m.MeshNode(body); !ok || m.Node(id).Name != "Body" {
		t.Errorf("MeshNode(body) = %d, %v", id, ok)
	}

	if !m.HasAnimations() || len(m.Clips) != 1 {
		t.Errorf("HasAnimations = %v, clips = %d", m.HasAnimations(), len(m.Clips))
	}
	if m.Bounds.Extents != [3]float32{2, 2, 1} {
		t.Errorf("Bounds = %+v", m.Bounds)
	}
}

func TestLoad_Errors(t *testing.T) {
	unresolved := makeRiggedKSM()
	unresolved.Root.Children[0].Meshes[0].Bones[1].Name = "Tail"

	tests := []struct {
		name     string
		data     []byte
		textures TextureResolver
		wantErr  error
	}{
		{"unresolved bone", formats.EncodeKSM(unresolved), &fakeTextures{}, ErrUnresolvedBone},
		{"truncated", formats.EncodeKSM(makeRiggedKSM())[:64], &fakeTextures{}, formats.ErrTruncatedKSMData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.data, tt.textures)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Load(formats.EncodeKSM(makeRiggedKSM()), failingTextures{}); err == nil {
		t.Error("expected texture failure to fail the load")
	}
	if _, err := Build(&formats.KSM{}, nil); !errors.Is(err, ErrNoRoot) {
		t.Errorf("Build without root: err = %v, want %v", err, ErrNoRoot)
	}
}

func TestLoad_NilResolver(t *testing.T) {
	m, err := Load(formats.EncodeKSM(makeRiggedKSM()), nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	body := m.Meshes()[0]
	if body.Diffuse != nil {
		t.Error("expected no diffuse handle without a resolver")
	}
	if body.DefaultDiffuseName != "skin.dds" {
		t.Errorf("DefaultDiffuseName = %q", body.DefaultDiffuseName)
	}
}

func TestLoad_IndexFormat(t *testing.T) {
	wide := quadKSMMesh("")
	wide.Vertices = make([]formats.KSMVertex, 70000)
	wide.Indices = []uint32{0, 69999, 1}
	wide.FaceCount = 1

	tests := []struct {
		name      string
		mesh      *formats.KSMMesh
		indices16 bool
		want      IndexFormat
	}{
		{"32-bit flag", quadKSMMesh(""), false, IndexFormat32},
		{"16-bit flag", quadKSMMesh(""), true, IndexFormat16},
		{"16-bit flag past 65536 vertices", wide, true, IndexFormat32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mesh.Indices16 = tt.indices16
			mesh, err := newMesh(tt.mesh, nil)
			if err != nil {
				t.Fatalf("newMesh: %v", err)
			}
			if mesh.IndexFormat != tt.want {
				t.Errorf("IndexFormat = %v, want %v", mesh.IndexFormat, tt.want)
			}
			if mesh.IndexFormat == IndexFormat16 {
				for i, idx := range mesh.Index16() {
					if uint32(idx) != mesh.Indices[i] {
						t.Errorf("Index16()[%d] = %d, want %d", i, idx, mesh.Indices[i])
					}
				}
			}
		})
	}
}

func assertGlobalInvariant(t *testing.T, m *Model) {
	t.Helper()
	for i := 0; i < m.NodeCount(); i++ {
		n := m.Node(NodeID(i))
		want := n.Local
		if n.Parent != NoNode {
			want = m.Node(n.Parent).Global.Mul(n.Local)
		}
		if !n.Global.ApproxEqual(want, 1e-5) {
			t.Errorf("node %q: Global = %v, want %v", n.Name, n.Global, want)
		}
	}
}

func TestGlobalTransformInvariant(t *testing.T) {
	m, _ := loadRigged(t)
	assertGlobalInvariant(t, m)

	m.UpdateTransforms([]math.Mat4{
		math.Translate(0, 4, 0).Mul(math.QuatFromAxisAngle(math.Vec3{Z: 1}, 0.5).ToMat4()),
		math.Translate(0, 1, 0).Mul(math.Scale(2, 2, 2)),
	})
	assertGlobalInvariant(t, m)

	spine := m.Node(mustFind(t, m, "Spine"))
	p := spine.Global.TransformPoint([3]float32{})
	want := math.Translate(0, 4, 0).Mul(math.QuatFromAxisAngle(math.Vec3{Z: 1}, 0.5).ToMat4()).TransformPoint([3]float32{0, 1, 0})
	if !math.Translate(p[0], p[1], p[2]).ApproxEqual(math.Translate(want[0], want[1], want[2]), 1e-5) {
		t.Errorf("Spine origin = %v, want %v", p, want)
	}
}

func TestUpdateTransforms_ChannelOutOfRange(t *testing.T) {
	m, _ := loadRigged(t)
	spine := m.Node(mustFind(t, m, "Spine"))
	before := spine.Local

	m.UpdateTransforms([]math.Mat4{math.Translate(0, 10, 0)})

	if spine.Local != before {
		t.Error("Spine local changed without a transform for its channel")
	}
	if got := spine.Global.TransformPoint([3]float32{}); got != [3]float32{0, 11, 0} {
		t.Errorf("Spine origin = %v, want (0, 11, 0)", got)
	}
}

func TestBoneMatrices(t *testing.T) {
	m, _ := loadRigged(t)
	bodyID := mustFind(t, m, "Body")
	body := m.Node(bodyID).Meshes[0]

	skin := m.BoneMatrices(bodyID, body)
	if len(skin) != body.NumBones() {
		t.Fatalf("got %d matrices, want %d", len(skin), body.NumBones())
	}
	for i, s := range skin {
		if !s.ApproxEqual(math.Identity(), 1e-5) {
			t.Errorf("bind pose skin[%d] = %v, want identity", i, s)
		}
	}

	m.UpdateTransforms([]math.Mat4{math.Translate(0, 4, 0), math.Translate(0, 1, 0)})
	skin = m.BoneMatrices(bodyID, body)

	for i, bone := range body.Bones {
		boneID, ok := m.BoneNode(bone.Name)
		if !ok {
			t.Fatalf("bone %q did not resolve", bone.Name)
		}
		want := m.Node(bodyID).Global.Inverse().Mul(m.Node(boneID).Global).Mul(bone.Offset)
		if !skin[i].ApproxEqual(want, 1e-5) {
			t.Errorf("skin[%d] = %v, want %v", i, skin[i], want)
		}
		if !skin[i].ApproxEqual(math.Translate(0, 2, 0), 1e-5) {
			t.Errorf("skin[%d] should lift vertices by 2, got %v", i, skin[i])
		}
	}
}

func TestNoBones(t *testing.T) {
	m, _ := loadRigged(t)
	swordID := mustFind(t, m, "Sword")
	sword := m.Node(swordID).Meshes[0]

	if sword.HasBones() {
		t.Fatal("static mesh reports bones")
	}
	if got := m.BoneMatrices(swordID, sword); len(got) != 0 {
		t.Errorf("BoneMatrices = %d matrices, want 0", len(got))
	}

	m.DrawNode(swordID, DrawParams{World: math.Identity()}, func(item DrawItem) {
		if item.Skinned || item.SkinMatrices != nil {
			t.Error("static mesh drawn as skinned")
		}
	})
}

func TestIntersection_Quad(t *testing.T) {
	m := NewGeometryModel(Geometry{
		Vertices: []Vertex{
			{Position: [3]float32{-1, -1, 0}},
			{Position: [3]float32{1, -1, 0}},
			{Position: [3]float32{1, 1, 0}},
			{Position: [3]float32{-1, 1, 0}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}, nil)

	hit := picking.Ray{Origin: [3]float32{0.5, -0.5, 5}, Direction: [3]float32{0, 0, -1}}
	miss := picking.Ray{Origin: [3]float32{5, 5, 5}, Direction: [3]float32{0, 0, -1}}

	if !m.IntersectedBy(hit, math.Identity(), math.Identity()) {
		t.Error("IntersectedBy = false, want true")
	}
	if m.IntersectedBy(miss, math.Identity(), math.Identity()) {
		t.Error("IntersectedBy = true for a ray beside the quad")
	}

	points := m.Intersections(hit, nil)
	if len(points) != 1 || points[0] != [3]float32{-1, -1, 0} {
		t.Errorf("Intersections = %v, want [(-1, -1, 0)]", points)
	}

	shift := math.Translate(0, 0, 1)
	points = m.Intersections(hit, &shift)
	if len(points) != 1 || points[0] != [3]float32{-1, -1, 1} {
		t.Errorf("transformed Intersections = %v, want [(-1, -1, 1)]", points)
	}

	if got := m.Intersections(miss, nil); len(got) != 0 {
		t.Errorf("miss Intersections = %v", got)
	}
}

func TestIntersection_WorldAndView(t *testing.T) {
	m, _ := loadRigged(t)

	// The Body quad sits at x=1 in model space; the model is placed 10 units
	// down -z and the camera is at the origin looking down -z.
	world := math.Translate(0, 0, -10)
	ray := picking.Ray{Origin: [3]float32{1.5, -0.5, 0}, Direction: [3]float32{0, 0, -1}}
	if !m.IntersectedBy(ray, world, math.Identity()) {
		t.Error("expected hit on the translated Body quad")
	}

	// Moving the camera 20 units right makes the same view ray miss.
	invView := math.Translate(20, 0, 0)
	if m.IntersectedBy(ray, world, invView) {
		t.Error("expected miss after moving the camera")
	}
}

func TestSetTextureMapping(t *testing.T) {
	m, textures := loadRigged(t)
	skin := textures.loaded[`Textures\Ochimusha\skin.dds`]

	m.SetTextureMapping(SlotBody, "skin.dds")
	first := m.TextureMapping()
	if slot, ok := m.TextureSlot(skin.ID); !ok || slot != SlotBody {
		t.Errorf("TextureSlot(skin) = %v, %v; want Body", slot, ok)
	}

	m.SetTextureMapping(SlotBody, "skin.dds")
	m.SetTextureMapping(SlotWeapon, "")
	second := m.TextureMapping()
	if len(first) != 1 || len(second) != 1 || first[skin.ID] != second[skin.ID] {
		t.Errorf("mapping not idempotent: %v then %v", first, second)
	}

	m.SetTextureMapping(SlotHead, "missing.dds")
	if len(m.TextureMapping()) != 1 {
		t.Error("unmatched name added a mapping")
	}
}

func TestDrawNode(t *testing.T) {
	m, textures := loadRigged(t)
	m.SetTextureMapping(SlotBody, "skin.dds")
	dyed := &Texture{ID: 99, Key: "skin_red"}

	var items []DrawItem
	collect := func(item DrawItem) { items = append(items, item) }

	m.DrawNode(m.Root(), DrawParams{World: math.Translate(0, 0, 5)}, collect)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	body := items[0]
	if !body.Skinned || len(body.SkinMatrices) != 2 {
		t.Errorf("body item skinned = %v with %d matrices", body.Skinned, len(body.SkinMatrices))
	}
	if got := body.World.TransformPoint([3]float32{}); got != [3]float32{1, 0, 5} {
		t.Errorf("body world origin = %v, want (1, 0, 5)", got)
	}
	if !body.WorldInvTranspose.ApproxEqual(body.World.InverseTranspose(), 1e-6) {
		t.Error("WorldInvTranspose mismatch")
	}
	if body.Texture != textures.loaded[`Textures\Ochimusha\skin.dds`] {
		t.Error("body should draw its own diffuse without overrides")
	}

	items = nil
	m.DrawNode(m.Root(), DrawParams{
		World:            math.Identity(),
		DisabledNodes:    []string{"Sword", "RootNode"},
		TextureOverrides: map[ItemSlot]*Texture{SlotBody: dyed, SlotWeapon: &Texture{ID: 100}},
	}, collect)
	if len(items) != 1 {
		t.Fatalf("got %d items with Sword disabled, want 1", len(items))
	}
	if items[0].Texture != dyed {
		t.Errorf("override not applied, got %+v", items[0].Texture)
	}
}

func TestDraw_AppliesAnimation(t *testing.T) {
	m, _ := loadRigged(t)
	anim := NewAnimator(&m.Clips[0])
	anim.Advance(1) // 10 ticks, last key

	var skin []math.Mat4
	m.Draw(DrawParams{World: math.Identity()}, anim.Transforms(), func(item DrawItem) {
		if item.Skinned {
			skin = item.SkinMatrices
		}
	})
	if len(skin) != 2 || !skin[0].ApproxEqual(math.Translate(0, 2, 0), 1e-5) {
		t.Errorf("skin after animation = %v", skin)
	}
}

func TestCollisionSoup(t *testing.T) {
	m, _ := loadRigged(t)
	soups := m.CollisionSoup(math.Scale(2, 2, 2))

	if len(soups) != 2 {
		t.Fatalf("got %d soups, want 2", len(soups))
	}
	// Body vertex (-1,-1,0) moved by T(1,0,0) then scaled by 2.
	if got := soups[0].Vertices[0]; got != [3]float32{0, -2, 0} {
		t.Errorf("Body vertex 0 = %v, want (0, -2, 0)", got)
	}
	if len(soups[0].Indices) != 6 {
		t.Errorf("Body indices = %d, want 6", len(soups[0].Indices))
	}
}

func TestApplyMaterialOverride(t *testing.T) {
	m, _ := loadRigged(t)
	bright := [4]float32{1.5, 1.5, 1.5, 1}
	m.ApplyMaterialOverride(bright, bright)
	for _, mesh := range m.Meshes() {
		if mesh.Material.Ambient != bright || mesh.Material.Diffuse != bright {
			t.Errorf("material = %+v", mesh.Material)
		}
	}
}
