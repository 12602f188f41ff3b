// Package texture loads texture files for the asset cache: DDS containers are
// parsed without decoding their pixel payload, everything else is decoded
// into an NRGBA image.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Image is a decoded texture.
type Image struct {
	Path   string
	Pixels *image.NRGBA
}

// Bounds returns the image bounds.
func (i *Image) Bounds() image.Rectangle {
	return i.Pixels.Bounds()
}

type decodeFunc func(io.Reader) (image.Image, error)

var decoders = map[string]decodeFunc{
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".bmp":  bmp.Decode,
	".webp": webp.Decode,
	".tga":  tga.Decode,
}

// Loader reads texture files from a file system, dispatching on extension.
type Loader struct{}

// Load reads name from fsys. DDS files return *DDS, other formats *Image.
func (Loader) Load(fsys fs.FS, name string) (any, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", name, err)
	}

	if Ext(name) == ".dds" {
		dds, err := ParseDDS(data)
		if err != nil {
			return nil, fmt.Errorf("texture: %s: %w", name, err)
		}
		dds.Path = name
		return dds, nil
	}

	img, err := Decode(name, data)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Decode decodes image data, choosing the decoder from the extension of name.
// Unknown extensions fall back to format sniffing.
func Decode(name string, data []byte) (*Image, error) {
	var (
		src image.Image
		err error
	)
	if decode, ok := decoders[Ext(name)]; ok {
		src, err = decode(bytes.NewReader(data))
	} else {
		src, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", name, err)
	}
	return &Image{Path: name, Pixels: toNRGBA(src)}, nil
}

// Ext returns the lower-cased extension of name.
func Ext(name string) string {
	return strings.ToLower(path.Ext(name))
}

// toNRGBA converts any image to NRGBA format.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

// Thumbnail scales img to fit within size x size, keeping its aspect ratio.
// Images that already fit are returned unchanged.
func Thumbnail(img *image.NRGBA, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= size && h <= size {
		return img
	}

	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
