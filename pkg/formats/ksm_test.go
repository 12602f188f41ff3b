package formats

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func identityRowMajor() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func translationRowMajor(x, y, z float32) [16]float32 {
	m := identityRowMajor()
	m[3], m[7], m[11] = x, y, z
	return m
}

func makeQuadMesh() *KSMMesh {
	return &KSMMesh{
		FaceCount: 2,
		Material: KSMMaterial{
			Diffuse:  [4]float32{0.8, 0.8, 0.8, 1},
			Ambient:  [4]float32{0.2, 0.2, 0.2, 1},
			Specular: [4]float32{0.5, 0.5, 0.5, 16},
		},
		Opacity:          1,
		Shininess:        2,
		SpecularStrength: 16,
		Indices16:        true,
		Indices:          []uint32{0, 1, 2, 0, 2, 3},
		Vertices: []KSMVertex{
			{Position: [3]float32{-1, -1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 1}},
			{Position: [3]float32{1, -1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 1}},
			{Position: [3]float32{1, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{1, 0}},
			{Position: [3]float32{-1, 1, 0}, Normal: [3]float32{0, 0, 1}, TexCoord: [2]float32{0, 0}},
		},
		DiffusePath:   `Textures\skin.dds`,
		BoundsExtents: [3]float32{1, 1, 0},
	}
}

func makeSkinnedMesh() *KSMMesh {
	m := makeQuadMesh()
	m.Indices16 = false
	m.Skinned = true
	for i := range m.Vertices {
		m.Vertices[i].Weights = [3]float32{0.75, 0.25, 0}
		m.Vertices[i].BoneIndices = [4]uint8{0, 1, 0, 0}
	}
	m.NormalPath = "Textures/skin_n.dds"
	m.Bones = []KSMBone{
		{Name: "Hip", Offset: translationRowMajor(0, -1, 0)},
		{Name: "Spine", Offset: translationRowMajor(0, -2, 0)},
	}
	return m
}

func makeTestKSM() *KSM {
	return &KSM{
		Header: KSMHeader{MeshCount: 2, MaterialCount: 2, TextureCount: 2, AnimationCount: 1},
		Root: &KSMNode{
			Name:      "RootNode",
			Transform: identityRowMajor(),
			Channel:   KSMNoChannel,
			Children: []*KSMNode{
				{
					Name:      "Hip",
					Transform: translationRowMajor(0, 1, 0),
					Channel:   0,
					Meshes:    []*KSMMesh{makeSkinnedMesh()},
					Children: []*KSMNode{
						{Name: "Spine", Transform: translationRowMajor(0, 1, 0), Channel: 1},
					},
				},
				{
					Name:      "落ち武者",
					Transform: identityRowMajor(),
					Channel:   KSMNoChannel,
					Meshes:    []*KSMMesh{makeQuadMesh()},
				},
			},
		},
		Clips: []KSMClip{
			{
				Name:           "Walk",
				Duration:       30,
				TicksPerSecond: 24,
				Tracks: []KSMTrack{
					{Keyframes: []KSMKeyframe{
						{Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}},
						{Translation: [3]float32{0, 2, 0}, Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}, TimePos: 30},
					}},
					{Keyframes: []KSMKeyframe{
						{Scale: [3]float32{1, 1, 1}, Rotation: [4]float32{0, 0, 0, 1}},
					}},
				},
				TotalFrames: 31,
			},
		},
		BoundsCenter:  [3]float32{0, 1, 0},
		BoundsExtents: [3]float32{1, 2, 1},
	}
}

func TestKSMRoundTrip(t *testing.T) {
	want := makeTestKSM()
	got, err := ParseKSM(EncodeKSM(want))
	if err != nil {
		t.Fatalf("ParseKSM failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestParseKSM_Counts(t *testing.T) {
	k, err := ParseKSM(EncodeKSM(makeTestKSM()))
	if err != nil {
		t.Fatalf("ParseKSM failed: %v", err)
	}

	if got := k.NodeCount(); got != 4 {
		t.Errorf("NodeCount = %d, want 4", got)
	}
	if got := k.TotalVertexCount(); got != 8 {
		t.Errorf("TotalVertexCount = %d, want 8", got)
	}
	if got := k.TotalFaceCount(); got != 4 {
		t.Errorf("TotalFaceCount = %d, want 4", got)
	}
	if !k.HasAnimation() {
		t.Error("HasAnimation = false, want true")
	}
	if name := k.Root.Children[1].Name; name != "落ち武者" {
		t.Errorf("UTF-16 name = %q", name)
	}
}

func TestParseKSM_VertexLayout(t *testing.T) {
	static := &KSM{Root: &KSMNode{Channel: KSMNoChannel, Meshes: []*KSMMesh{makeQuadMesh()}}}
	skinned := &KSM{Root: &KSMNode{Channel: KSMNoChannel, Meshes: []*KSMMesh{makeSkinnedMesh()}}}
	skinned.Root.Meshes[0].Bones = nil
	skinned.Root.Meshes[0].NormalPath = ""

	diff := len(EncodeKSM(skinned)) - len(EncodeKSM(static))
	if want := 4 * (ksmSkinnedVertexSize - ksmStaticVertexSize); diff != want {
		t.Errorf("skinned encoding is %d bytes larger, want %d", diff, want)
	}
}

func TestParseKSM_Errors(t *testing.T) {
	valid := EncodeKSM(makeTestKSM())

	mismatch := makeTestKSM()
	mismatch.Root.Children[1].Meshes[0].FaceCount = 3

	outOfRange := makeTestKSM()
	outOfRange.Root.Children[1].Meshes[0].Indices[5] = 9

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrTruncatedKSMData},
		{"header only", valid[:16], ErrTruncatedKSMData},
		{"truncated mesh", valid[:200], ErrTruncatedKSMData},
		{"missing bounds", valid[:len(valid)-4], ErrTruncatedKSMData},
		{"face count mismatch", EncodeKSM(mismatch), ErrFaceCountMismatch},
		{"index out of range", EncodeKSM(outOfRange), ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKSM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseKSM_HugeCounts(t *testing.T) {
	w := &Writer{}
	w.U32(1)
	w.U32(0)
	w.U32(0)
	w.U32(0)
	w.String("RootNode")
	w.Mat4(identityRowMajor())
	w.U64(KSMNoChannel)
	w.U32(0xFFFFFFFF) // mesh count

	if _, err := ParseKSM(w.Bytes()); !errors.Is(err, ErrTruncatedKSMData) {
		t.Errorf("err = %v, want %v", err, ErrTruncatedKSMData)
	}
}

func TestReader_Sticky(t *testing.T) {
	r := NewReader([]byte{1, 0, 0, 0, 2})

	if got := r.U32(); got != 1 {
		t.Errorf("U32 = %d, want 1", got)
	}
	if got := r.U32(); got != 0 {
		t.Errorf("overrun U32 = %d, want 0", got)
	}
	if !errors.Is(r.Err(), ErrTruncatedKSMData) {
		t.Errorf("Err = %v, want %v", r.Err(), ErrTruncatedKSMData)
	}
	if got := r.U8(); got != 0 {
		t.Errorf("read after error = %d, want 0", got)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestReader_String(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"ascii", "RootNode"},
		{"japanese", "提灯"},
		{"surrogate pair", "bone𝄞"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Writer{}
			w.String(tt.in)
			w.U8(0xAB)

			r := NewReader(w.Bytes())
			if got := r.String(); got != tt.in {
				t.Errorf("String = %q, want %q", got, tt.in)
			}
			if got := r.U8(); got != 0xAB {
				t.Errorf("cursor misplaced, next byte = %#x", got)
			}
			if r.Err() != nil {
				t.Errorf("unexpected error: %v", r.Err())
			}
		})
	}
}

func TestReader_StringTooLong(t *testing.T) {
	w := &Writer{}
	w.U32(100)
	w.U8('a')

	r := NewReader(w.Bytes())
	if got := r.String(); got != "" {
		t.Errorf("String = %q, want empty", got)
	}
	if !errors.Is(r.Err(), ErrTruncatedKSMData) {
		t.Errorf("Err = %v, want %v", r.Err(), ErrTruncatedKSMData)
	}
}

func TestReadArray(t *testing.T) {
	w := &Writer{}
	w.U32(7)
	w.U32(8)
	w.U32(9)

	r := NewReader(w.Bytes())
	got := ReadArray(r, 3, 4, (*Reader).U32)
	if !reflect.DeepEqual(got, []uint32{7, 8, 9}) {
		t.Errorf("ReadArray = %v", got)
	}
	if r.Offset() != 12 {
		t.Errorf("Offset = %d, want 12", r.Offset())
	}

	r = NewReader(w.Bytes())
	if got := ReadArray(r, 4, 4, (*Reader).U32); got != nil {
		t.Errorf("oversized ReadArray = %v, want nil", got)
	}
	if r.Err() == nil {
		t.Error("expected error for oversized array")
	}
}

func TestParseKSMFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.ksm")
	if err := os.WriteFile(path, EncodeKSM(makeTestKSM()), 0o644); err != nil {
		t.Fatal(err)
	}

	k, err := ParseKSMFile(path)
	if err != nil {
		t.Fatalf("ParseKSMFile failed: %v", err)
	}
	if k.Root.Name != "RootNode" {
		t.Errorf("root name = %q", k.Root.Name)
	}

	if _, err := ParseKSMFile(filepath.Join(t.TempDir(), "missing.ksm")); err == nil {
		t.Error("expected error for missing file")
	}
}
