// Package assets is the asset cache: it loads each texture and KSM model once
// and shares them across every instance type that maps onto them.
package assets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/kamishibai/internal/engine/model"
	"github.com/Faultbox/kamishibai/internal/logger"
	"github.com/Faultbox/kamishibai/pkg/encoding"
)

// ErrNotInitialized is returned when the cache is used before Initialize.
var ErrNotInitialized = errors.New("asset cache used before Initialize")

// DefaultModelPattern maps an instance type to its model file.
const DefaultModelPattern = "Models/%s.ksm"

// InstanceType names a logical kind of object in the world.
type InstanceType string

// MaterialOverride replaces the ambient and diffuse colors of every mesh.
type MaterialOverride struct {
	Ambient [4]float32
	Diffuse [4]float32
}

// Metadata drives what the cache does after loading a model.
type Metadata struct {
	// DefaultTextures maps a model instance type to the texture file name
	// bound to each item slot.
	DefaultTextures map[InstanceType]map[model.ItemSlot]string
	// Instances remaps logical instance types onto the type that owns a model.
	Instances map[InstanceType]InstanceType
	// UITextures holds the UI display texture path of item instance types.
	UITextures map[InstanceType]string
	// MaterialOverrides is keyed by logical instance type.
	MaterialOverrides map[InstanceType]MaterialOverride
}

// TextureLoader turns a texture file into an opaque handle.
type TextureLoader interface {
	Load(fsys fs.FS, name string) (any, error)
}

// Stats counts cache lookups.
type Stats struct {
	ModelHits     int
	ModelMisses   int
	TextureHits   int
	TextureMisses int
}

// Cache owns every texture and model it loads. It does no locking; callers
// serialize access.
type Cache struct {
	// ModelPattern is a fmt pattern taking the model instance type.
	ModelPattern string

	loader TextureLoader
	root   fs.FS
	meta   Metadata
	log    *zap.Logger

	textures map[string]*model.Texture
	models   map[InstanceType]*model.Model
	nextID   model.TextureID
	stats    Stats
}

// New creates an empty, uninitialized cache.
func New() *Cache {
	return &Cache{
		ModelPattern: DefaultModelPattern,
		textures:     make(map[string]*model.Texture),
		models:       make(map[InstanceType]*model.Model),
	}
}

// SetLogger replaces the component logger.
func (c *Cache) SetLogger(l *zap.Logger) {
	c.log = l
}

func (c *Cache) logger() *zap.Logger {
	if c.log == nil {
		return logger.Named("assets")
	}
	return c.log
}

// Initialize binds the cache to its texture loader, asset root and metadata.
func (c *Cache) Initialize(loader TextureLoader, root fs.FS, meta Metadata) error {
	if loader == nil {
		return errors.New("assets: nil texture loader")
	}
	if root == nil {
		return errors.New("assets: nil asset root")
	}
	c.loader = loader
	c.root = root
	c.meta = meta
	c.logger().Info("asset cache initialized",
		zap.Int("models", len(meta.DefaultTextures)),
		zap.Int("instances", len(meta.Instances)))
	return nil
}

// Initialized reports whether Initialize has been called.
func (c *Cache) Initialized() bool {
	return c.root != nil
}

// ModelInstanceType returns the instance type owning the model of t.
func (c *Cache) ModelInstanceType(t InstanceType) InstanceType {
	if mapped, ok := c.meta.Instances[t]; ok {
		return mapped
	}
	return t
}

// ModelPath returns the model file of a model instance type.
func (c *Cache) ModelPath(t InstanceType) string {
	return fmt.Sprintf(c.ModelPattern, t)
}

// Resolve returns the shared model for instance type t, loading it on first
// use. Default slot textures and material overrides are applied on every call.
func (c *Cache) Resolve(t InstanceType) (*model.Model, error) {
	if !c.Initialized() {
		return nil, ErrNotInitialized
	}

	canonical := c.ModelInstanceType(t)
	m, ok := c.models[canonical]
	if ok {
		c.stats.ModelHits++
		c.logger().Debug("model cache hit", zap.String("instance", string(t)), zap.String("model", string(canonical)))
	} else {
		c.stats.ModelMisses++
		var err error
		if m, err = c.loadModel(canonical); err != nil {
			c.logger().Error("model load failed", zap.String("instance", string(t)), zap.Error(err))
			return nil, err
		}
		c.models[canonical] = m
	}

	for _, slot := range model.ItemSlots() {
		m.SetTextureMapping(slot, c.meta.DefaultTextures[canonical][slot])
	}
	if o, ok := c.meta.MaterialOverrides[t]; ok {
		m.ApplyMaterialOverride(o.Ambient, o.Diffuse)
	}
	return m, nil
}

func (c *Cache) loadModel(t InstanceType) (*model.Model, error) {
	path := c.ModelPath(t)
	data, err := fs.ReadFile(c.root, path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}

	m, err := model.Load(data, c)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}

	c.logger().Debug("model parsed",
		zap.String("path", path),
		zap.Int("nodes", m.NodeCount()),
		zap.Int("meshes", len(m.Meshes())),
		zap.Int("clips", len(m.Clips)))
	return m, nil
}

// Texture returns the shared texture for an asset path. Textures are keyed by
// file name without directory or extension, so the same name in two folders
// is loaded once. An empty path yields no texture.
func (c *Cache) Texture(path string) (*model.Texture, error) {
	if !c.Initialized() {
		c.logger().Error("texture requested before Initialize", zap.String("path", path))
		return nil, nil
	}
	if path == "" {
		return nil, nil
	}

	key := encoding.FileNameOnly(path)
	if tex, ok := c.textures[key]; ok {
		c.stats.TextureHits++
		return tex, nil
	}
	c.stats.TextureMisses++

	name := encoding.NormalizeAssetPath(path)
	handle, err := c.loader.Load(c.root, name)
	if err != nil {
		c.logger().Error("texture load failed", zap.String("path", name), zap.Error(err))
		return nil, fmt.Errorf("loading texture %s: %w", name, err)
	}

	c.nextID++
	tex := &model.Texture{ID: c.nextID, Key: key, Path: name, Handle: handle}
	c.textures[key] = tex
	c.logger().Debug("texture loaded", zap.String("path", name), zap.Uint32("id", uint32(tex.ID)))
	return tex, nil
}

// ItemUITexture returns the UI display texture of an item instance type, or
// nil when the type has none.
func (c *Cache) ItemUITexture(t InstanceType) (*model.Texture, error) {
	path, ok := c.meta.UITextures[t]
	if !ok {
		return nil, nil
	}
	return c.Texture(path)
}

// Preload resolves every listed instance type, stopping at the first failure.
func (c *Cache) Preload(types ...InstanceType) error {
	for _, t := range types {
		if _, err := c.Resolve(t); err != nil {
			return fmt.Errorf("preloading %s: %w", t, err)
		}
	}
	return nil
}

// PreloadList reads one instance type per line from name and preloads them.
// Blank lines and lines starting with '#' are skipped.
func (c *Cache) PreloadList(name string) error {
	if !c.Initialized() {
		return ErrNotInitialized
	}
	data, err := fs.ReadFile(c.root, name)
	if err != nil {
		return fmt.Errorf("reading preload list %s: %w", name, err)
	}

	var types []InstanceType
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		types = append(types, InstanceType(line))
	}
	return c.Preload(types...)
}

// Dump drops every loaded model. Textures stay cached.
func (c *Cache) Dump() {
	c.logger().Debug("dumping models", zap.Int("count", len(c.models)))
	clear(c.models)
}

// Release drops every model and texture, closing texture handles that
// implement io.Closer. All close errors are returned combined.
func (c *Cache) Release() error {
	var err error
	for key, tex := range c.textures {
		if closer, ok := tex.Handle.(io.Closer); ok {
			if cerr := closer.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("closing texture %s: %w", key, cerr))
			}
		}
	}
	clear(c.textures)
	clear(c.models)
	if err != nil {
		c.logger().Error("asset release failed", zap.Error(err))
	}
	return err
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	return c.stats
}

// Models returns the number of loaded models.
func (c *Cache) Models() int {
	return len(c.models)
}

// Textures returns the number of loaded textures.
func (c *Cache) Textures() int {
	return len(c.textures)
}
