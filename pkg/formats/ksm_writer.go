package formats

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/Faultbox/kamishibai/pkg/encoding"
)

// Writer encodes KSM fields sequentially, mirroring Reader.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// U8 writes one byte.
func (w *Writer) U8(v uint8) {
	w.buf.WriteByte(v)
}

// Bool writes a one-byte boolean.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
		return
	}
	w.U8(0)
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// F32 writes a little-endian float32.
func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

// Vec3 writes three float32 values.
func (w *Writer) Vec3(v [3]float32) {
	for _, f := range v {
		w.F32(f)
	}
}

// Vec4 writes four float32 values.
func (w *Writer) Vec4(v [4]float32) {
	for _, f := range v {
		w.F32(f)
	}
}

// Mat4 writes sixteen float32 values in file order.
func (w *Writer) Mat4(m [16]float32) {
	for _, f := range m {
		w.F32(f)
	}
}

// String writes a u32 code unit count followed by UTF-16LE code units.
func (w *Writer) String(s string) {
	b := encoding.UTF8ToUTF16(s)
	w.U32(uint32(len(b) / 2))
	w.buf.Write(b)
}
