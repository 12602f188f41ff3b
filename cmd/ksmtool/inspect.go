package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Faultbox/kamishibai/internal/engine/model"
	"github.com/Faultbox/kamishibai/pkg/formats"
)

func cmdInfo(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ksmtool info <file.ksm>")
		os.Exit(1)
	}

	ksm, err := formats.ParseKSMFile(args[0])
	if err != nil {
		return err
	}
	printInfo(os.Stdout, args[0], ksm)
	return nil
}

func printInfo(w io.Writer, name string, ksm *formats.KSM) {
	h := ksm.Header
	fmt.Fprintf(w, "Model:     %s\n", name)
	fmt.Fprintf(w, "Header:    %d meshes, %d materials, %d textures, %d animations\n",
		h.MeshCount, h.MaterialCount, h.TextureCount, h.AnimationCount)
	fmt.Fprintf(w, "Nodes:     %d\n", ksm.NodeCount())
	fmt.Fprintf(w, "Vertices:  %d\n", ksm.TotalVertexCount())
	fmt.Fprintf(w, "Faces:     %d\n", ksm.TotalFaceCount())
	fmt.Fprintf(w, "Bounds:    center %v extents %v\n", ksm.BoundsCenter, ksm.BoundsExtents)

	if ksm.HasAnimation() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Clips:")
		for _, c := range ksm.Clips {
			fmt.Fprintf(w, "  %-20s %6.1f ticks @ %g/s, %d tracks, %d frames\n",
				c.Name, c.Duration, c.TicksPerSecond, len(c.Tracks), c.TotalFrames)
		}
	}
}

func cmdTree(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ksmtool tree <file.ksm>")
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
	printTree(os.Stdout, m)
	return nil
}

func printTree(w io.Writer, m *model.Model) {
	m.Walk(m.Root(), func(id model.NodeID, depth int) {
		n := m.Node(id)
		indent := strings.Repeat("  ", depth)

		line := fmt.Sprintf("%s%s", indent, n.Name)
		if n.Animated() {
			line += fmt.Sprintf(" [channel %d]", n.Channel)
		}
		fmt.Fprintln(w, line)

		for _, mesh := range n.Meshes {
			desc := fmt.Sprintf("%s  - mesh: %d verts, %d faces, %s indices", indent, mesh.VertexCount, mesh.FaceCount, mesh.IndexFormat)
			if mesh.HasBones() {
				desc += fmt.Sprintf(", %d bones", mesh.NumBones())
			}
			if mesh.DefaultDiffuseName != "" {
				desc += ", diffuse " + mesh.DefaultDiffuseName
			}
			fmt.Fprintln(w, desc)
		}
	})
}
