package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/kamishibai/internal/assets"
	"github.com/Faultbox/kamishibai/internal/engine/model"
)

// XML table file names inside a metadata directory.
const (
	ModelMetadataFile   = "ModelMetaData.xml"
	InstanceMappingFile = "InstanceToModelMapping.xml"
)

// metadataFile is the YAML metadata schema.
type metadataFile struct {
	Models            map[string]modelEntry       `yaml:"models"`
	Instances         map[string]string           `yaml:"instances"`
	UITextures        map[string]string           `yaml:"ui_textures"`
	MaterialOverrides map[string]materialOverride `yaml:"material_overrides"`
}

type modelEntry struct {
	Textures map[string]string `yaml:"textures"` // slot name -> texture file name
}

type materialOverride struct {
	Ambient [4]float32 `yaml:"ambient"`
	Diffuse [4]float32 `yaml:"diffuse"`
}

// xmlModels matches ModelMetaData.xml.
type xmlModels struct {
	Models []struct {
		Filename string `xml:"filename,attr"`
		Maps     []struct {
			Slot    string `xml:"slot,attr"`
			Texture string `xml:"texture,attr"`
		} `xml:"texturemappings>texturemap"`
	} `xml:"model"`
}

// xmlInstances matches InstanceToModelMapping.xml.
type xmlInstances struct {
	Instances []struct {
		Enum     string `xml:"enum,attr"`
		MappedTo string `xml:"mappedto,attr"`
	} `xml:"instance"`
}

// LoadMetadata reads the cache metadata tables. path is either a YAML file or
// a directory holding ModelMetaData.xml and InstanceToModelMapping.xml.
// An empty path yields empty tables.
func LoadMetadata(path string) (assets.Metadata, error) {
	if path == "" {
		return assets.Metadata{}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return assets.Metadata{}, fmt.Errorf("metadata: %w", err)
	}
	if info.IsDir() {
		return loadXMLMetadata(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return assets.Metadata{}, fmt.Errorf("metadata: read %s: %w", path, err)
	}
	return ParseMetadata(data)
}

// ParseMetadata parses the YAML metadata schema.
func ParseMetadata(data []byte) (assets.Metadata, error) {
	var f metadataFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return assets.Metadata{}, fmt.Errorf("metadata: parse yaml: %w", err)
	}

	meta := newMetadata()
	for name, entry := range f.Models {
		for slotName, tex := range entry.Textures {
			if err := addDefaultTexture(meta, name, slotName, tex); err != nil {
				return assets.Metadata{}, err
			}
		}
	}
	for from, to := range f.Instances {
		meta.Instances[assets.InstanceType(from)] = assets.InstanceType(to)
	}
	for item, path := range f.UITextures {
		meta.UITextures[assets.InstanceType(item)] = path
	}
	for t, o := range f.MaterialOverrides {
		meta.MaterialOverrides[assets.InstanceType(t)] = assets.MaterialOverride{Ambient: o.Ambient, Diffuse: o.Diffuse}
	}
	return meta, nil
}

func loadXMLMetadata(dir string) (assets.Metadata, error) {
	meta := newMetadata()

	var models xmlModels
	if err := readXML(filepath.Join(dir, ModelMetadataFile), &models); err != nil {
		return assets.Metadata{}, err
	}
	for _, m := range models.Models {
		if _, ok := meta.DefaultTextures[assets.InstanceType(m.Filename)]; !ok {
			meta.DefaultTextures[assets.InstanceType(m.Filename)] = make(map[model.ItemSlot]string)
		}
		for _, tm := range m.Maps {
			if err := addDefaultTexture(meta, m.Filename, tm.Slot, tm.Texture); err != nil {
				return assets.Metadata{}, err
			}
		}
	}

	var instances xmlInstances
	if err := readXML(filepath.Join(dir, InstanceMappingFile), &instances); err != nil {
		return assets.Metadata{}, err
	}
	for _, in := range instances.Instances {
		meta.Instances[assets.InstanceType(in.Enum)] = assets.InstanceType(in.MappedTo)
	}
	return meta, nil
}

func readXML(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("metadata: read %s: %w", path, err)
	}
	if err := xml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("metadata: parse %s: %w", path, err)
	}
	return nil
}

func newMetadata() assets.Metadata {
	return assets.Metadata{
		DefaultTextures:   make(map[assets.InstanceType]map[model.ItemSlot]string),
		Instances:         make(map[assets.InstanceType]assets.InstanceType),
		UITextures:        make(map[assets.InstanceType]string),
		MaterialOverrides: make(map[assets.InstanceType]assets.MaterialOverride),
	}
}

func addDefaultTexture(meta assets.Metadata, modelName, slotName, texture string) error {
	slot, err := model.ParseItemSlot(slotName)
	if err != nil {
		return fmt.Errorf("metadata: model %s: %w", modelName, err)
	}
	t := assets.InstanceType(modelName)
	if meta.DefaultTextures[t] == nil {
		meta.DefaultTextures[t] = make(map[model.ItemSlot]string)
	}
	meta.DefaultTextures[t][slot] = texture
	return nil
}
