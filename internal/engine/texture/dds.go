package texture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math/bits"
)

// DDS errors.
var (
	ErrInvalidDDSMagic      = errors.New("invalid DDS magic: expected 'DDS '")
	ErrTruncatedDDSData     = errors.New("truncated DDS data")
	ErrUnsupportedDDSFormat = errors.New("unsupported DDS pixel format")
)

const (
	ddsHeaderSize      = 124
	ddsDX10HeaderSize  = 20
	ddsPixelFormatBase = 72 // offset of the pixel format within the header

	ddpfAlphaPixels = 0x1
	ddpfFourCC      = 0x4
	ddpfRGB         = 0x40
)

// DDS is a parsed DirectDraw Surface container. The payload is kept as is;
// block-compressed formats are uploaded to the GPU without decoding.
type DDS struct {
	Path        string
	Width       int
	Height      int
	MipMapCount int
	FourCC      string // empty for uncompressed formats

	RGBBitCount int
	RMask       uint32
	GMask       uint32
	BMask       uint32
	AMask       uint32

	Data []byte
}

// ParseDDS parses the header of a DDS file.
func ParseDDS(data []byte) (*DDS, error) {
	if len(data) < 4 {
		return nil, ErrTruncatedDDSData
	}
	if string(data[:4]) != "DDS " {
		return nil, ErrInvalidDDSMagic
	}
	if len(data) < 4+ddsHeaderSize {
		return nil, ErrTruncatedDDSData
	}

	h := data[4 : 4+ddsHeaderSize]
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(h[off:]) }

	d := &DDS{
		Height:      int(u32(8)),
		Width:       int(u32(12)),
		MipMapCount: max(1, int(u32(24))),
	}

	pf := ddsPixelFormatBase
	flags := u32(pf + 4)
	if flags&ddpfFourCC != 0 {
		d.FourCC = string(h[pf+8 : pf+12])
	}
	if flags&ddpfRGB != 0 {
		d.RGBBitCount = int(u32(pf + 12))
		d.RMask = u32(pf + 16)
		d.GMask = u32(pf + 20)
		d.BMask = u32(pf + 24)
		if flags&ddpfAlphaPixels != 0 {
			d.AMask = u32(pf + 28)
		}
	}

	offset := 4 + ddsHeaderSize
	if d.FourCC == "DX10" {
		if len(data) < offset+ddsDX10HeaderSize {
			return nil, ErrTruncatedDDSData
		}
		offset += ddsDX10HeaderSize
	}
	d.Data = data[offset:]
	return d, nil
}

// Compressed reports whether the payload uses a FourCC (block) format.
func (d *DDS) Compressed() bool {
	return d.FourCC != ""
}

// Image decodes the top mip level of an uncompressed 32-bit surface.
func (d *DDS) Image() (*image.NRGBA, error) {
	if d.Compressed() || d.RGBBitCount != 32 {
		return nil, fmt.Errorf("%w: fourcc %q, %d bits", ErrUnsupportedDDSFormat, d.FourCC, d.RGBBitCount)
	}
	if len(d.Data) < d.Width*d.Height*4 {
		return nil, ErrTruncatedDDSData
	}

	img := image.NewNRGBA(image.Rect(0, 0, d.Width, d.Height))
	for i := 0; i < d.Width*d.Height; i++ {
		px := binary.LittleEndian.Uint32(d.Data[i*4:])
		img.Pix[i*4+0] = channel(px, d.RMask)
		img.Pix[i*4+1] = channel(px, d.GMask)
		img.Pix[i*4+2] = channel(px, d.BMask)
		if d.AMask == 0 {
			img.Pix[i*4+3] = 0xFF
		} else {
			img.Pix[i*4+3] = channel(px, d.AMask)
		}
	}
	return img, nil
}

func channel(px, mask uint32) uint8 {
	if mask == 0 {
		return 0
	}
	return uint8((px & mask) >> bits.TrailingZeros32(mask))
}
