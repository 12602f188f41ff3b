package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"

	"github.com/Faultbox/kamishibai/internal/assets"
	"github.com/Faultbox/kamishibai/internal/config"
	"github.com/Faultbox/kamishibai/internal/engine/model"
	"github.com/Faultbox/kamishibai/internal/engine/texture"
	"github.com/Faultbox/kamishibai/internal/logger"
)

// errNoPreview marks textures whose format cannot be decoded on the CPU.
var errNoPreview = errors.New("no preview for texture format")

func cmdTextures(args []string) error {
	fs := flag.NewFlagSet("textures", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	size := fs.Int("size", 256, "Maximum preview edge in pixels")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: ksmtool textures [flags] <instance> <outdir>")
		os.Exit(1)
	}

	cfg, err := setup(&flags)
	if err != nil {
		return err
	}
	cache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer cache.Release()

	m, err := cache.Resolve(assets.InstanceType(fs.Arg(0)))
	if err != nil {
		return err
	}

	outDir := fs.Arg(1)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	log := logger.Named("ksmtool")
	written := 0
	for _, tex := range modelTextures(m) {
		out := filepath.Join(outDir, tex.Key+".webp")
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		err = writePreview(f, tex, *size)
		f.Close()
		if errors.Is(err, errNoPreview) {
			log.Warn("skipping texture", zap.String("path", tex.Path), zap.Error(err))
			os.Remove(out)
			continue
		}
		if err != nil {
			return fmt.Errorf("preview %s: %w", tex.Path, err)
		}
		written++
		fmt.Printf("  %s -> %s\n", tex.Path, out)
	}
	fmt.Printf("Wrote %d previews\n", written)
	return nil
}

// modelTextures lists the distinct diffuse and normal textures of a model.
func modelTextures(m *model.Model) []*model.Texture {
	seen := make(map[model.TextureID]bool)
	var out []*model.Texture
	for _, mesh := range m.Meshes() {
		for _, tex := range []*model.Texture{mesh.Diffuse, mesh.Normal} {
			if tex == nil || seen[tex.ID] {
				continue
			}
			seen[tex.ID] = true
			out = append(out, tex)
		}
	}
	return out
}

// writePreview encodes a scaled-down WebP of a loaded texture.
func writePreview(w io.Writer, tex *model.Texture, size int) error {
	var img *image.NRGBA
	switch h := tex.Handle.(type) {
	case *texture.Image:
		img = h.Pixels
	case *texture.DDS:
		px, err := h.Image()
		if err != nil {
			return fmt.Errorf("%w: %v", errNoPreview, err)
		}
		img = px
	default:
		return fmt.Errorf("%w: %T", errNoPreview, tex.Handle)
	}
	return nativewebp.Encode(w, texture.Thumbnail(img, size), nil)
}
