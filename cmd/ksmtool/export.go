package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/multierr"

	"github.com/Faultbox/kamishibai/internal/engine/model"
	"github.com/Faultbox/kamishibai/pkg/math"
)

func cmdExport(args []string) error {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: ksmtool export <file.ksm> <out.glb|out.gltf>")
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	m, err := model.Load(data, nil)
	if err != nil {
		return err
	}

	doc := buildGLTF(m, strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])))
	if err := writeGLTF(doc, args[1]); err != nil {
		return err
	}
	fmt.Printf("Exported %d nodes, %d meshes to %s\n", len(doc.Nodes), len(doc.Meshes), args[1])
	return nil
}

// buildGLTF converts a model into a glTF document. Node i of the model becomes
// node i of the document; each node's meshes become primitives of one glTF mesh.
// Meshes without geometry are left out.
func buildGLTF(m *model.Model, name string) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Scenes[0].Name = name

	materials := make(map[*model.Mesh]int)
	images := make(map[string]int)

	for id := 0; id < m.NodeCount(); id++ {
		n := m.Node(model.NodeID(id))
		node := &gltf.Node{
			Name:   n.Name,
			Matrix: matrix64(n.Local),
		}
		for _, c := range n.Children {
			node.Children = append(node.Children, int(c))
		}

		mesh := &gltf.Mesh{Name: n.Name}
		for _, km := range n.Meshes {
			// glTF accessors must not be empty.
			if len(km.Vertices) == 0 || len(km.Indices) == 0 {
				continue
			}
			mat, ok := materials[km]
			if !ok {
				mat = addMaterial(doc, km, images)
				materials[km] = mat
			}
			mesh.Primitives = append(mesh.Primitives, addPrimitive(doc, km, mat))
		}
		if len(mesh.Primitives) > 0 {
			node.Mesh = gltf.Index(len(doc.Meshes))
			doc.Meshes = append(doc.Meshes, mesh)
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	if m.NodeCount() > 0 {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, int(m.Root()))
	}
	return doc
}

func addPrimitive(doc *gltf.Document, mesh *model.Mesh, material int) *gltf.Primitive {
	positions := make([][3]float32, len(mesh.Vertices))
	normals := make([][3]float32, len(mesh.Vertices))
	uvs := make([][2]float32, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		positions[i] = v.Position
		normals[i] = v.Normal
		uvs[i] = v.TexCoord
	}

	return &gltf.Primitive{
		Mode: gltf.PrimitiveTriangles,
		Attributes: map[string]int{
			gltf.POSITION:   modeler.WritePosition(doc, positions),
			gltf.NORMAL:     modeler.WriteNormal(doc, normals),
			gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, uvs),
		},
		Indices:  gltf.Index(modeler.WriteIndices(doc, mesh.Indices)),
		Material: gltf.Index(material),
	}
}

func addMaterial(doc *gltf.Document, mesh *model.Mesh, images map[string]int) int {
	d := mesh.Material.Diffuse
	pbr := &gltf.PBRMetallicRoughness{
		BaseColorFactor: &[4]float64{float64(d[0]), float64(d[1]), float64(d[2]), float64(mesh.Opacity)},
	}

	if mesh.DefaultDiffuseName != "" {
		img, ok := images[mesh.DefaultDiffuseName]
		if !ok {
			doc.Images = append(doc.Images, &gltf.Image{Name: mesh.DefaultDiffuseName, URI: mesh.DefaultDiffuseName})
			doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(len(doc.Images) - 1)})
			img = len(doc.Textures) - 1
			images[mesh.DefaultDiffuseName] = img
		}
		pbr.BaseColorTexture = &gltf.TextureInfo{Index: img}
	}

	mat := &gltf.Material{
		Name:                 fmt.Sprintf("material_%d", len(doc.Materials)),
		PBRMetallicRoughness: pbr,
		AlphaMode:            gltf.AlphaOpaque,
	}
	if mesh.Opacity < 1 {
		mat.AlphaMode = gltf.AlphaBlend
	}
	doc.Materials = append(doc.Materials, mat)
	return len(doc.Materials) - 1
}

// matrix64 widens a column-major matrix for glTF, which is column-major too.
func matrix64(m math.Mat4) [16]float64 {
	var out [16]float64
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

// writeGLTF saves doc as binary glTF for .glb, JSON with embedded buffers otherwise.
func writeGLTF(doc *gltf.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := gltf.NewEncoder(f)
	enc.AsBinary = strings.EqualFold(filepath.Ext(path), ".glb")
	if !enc.AsBinary {
		for _, b := range doc.Buffers {
			if b.URI == "" {
				b.URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b.Data)
			}
		}
	}
	if err := enc.Encode(doc); err != nil {
		return multierr.Append(fmt.Errorf("encoding glTF: %w", err), f.Close())
	}
	return f.Close()
}
