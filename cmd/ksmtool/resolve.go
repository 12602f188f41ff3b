package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Faultbox/kamishibai/internal/assets"
	"github.com/Faultbox/kamishibai/internal/config"
	"github.com/Faultbox/kamishibai/internal/engine/model"
	"github.com/Faultbox/kamishibai/internal/engine/texture"
)

// openCache builds an initialized asset cache from the config.
func openCache(cfg *config.Config) (*assets.Cache, error) {
	meta, err := config.LoadMetadata(cfg.Assets.Metadata)
	if err != nil {
		return nil, err
	}

	cache := assets.New()
	if cfg.Assets.ModelPattern != "" {
		cache.ModelPattern = cfg.Assets.ModelPattern
	}
	if err := cache.Initialize(texture.Loader{}, os.DirFS(cfg.Assets.Root), meta); err != nil {
		return nil, err
	}
	if cfg.Assets.PreloadList != "" {
		if err := cache.PreloadList(cfg.Assets.PreloadList); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func cmdResolve(args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	var flags config.Flags
	flags.Register(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ksmtool resolve [flags] <instance>...")
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

	for _, name := range fs.Args() {
		t := assets.InstanceType(name)
		m, err := cache.Resolve(t)
		if err != nil {
			return err
		}
		printResolved(os.Stdout, cache, t, m)
	}

	st := cache.Stats()
	fmt.Printf("\nCache: %d models, %d textures (models %d hit / %d miss, textures %d hit / %d miss)\n",
		cache.Models(), cache.Textures(), st.ModelHits, st.ModelMisses, st.TextureHits, st.TextureMisses)
	return nil
}

func printResolved(w io.Writer, cache *assets.Cache, t assets.InstanceType, m *model.Model) {
	fmt.Fprintf(w, "%s -> %s (%s)\n", t, cache.ModelInstanceType(t), cache.ModelPath(cache.ModelInstanceType(t)))
	fmt.Fprintf(w, "  nodes %d, meshes %d, clips %d\n", m.NodeCount(), len(m.Meshes()), len(m.Clips))

	mapping := m.TextureMapping()
	ids := make([]model.TextureID, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		fmt.Fprintf(w, "  texture %d -> %s\n", id, mapping[id])
	}
}
