package formats

import (
	"encoding/binary"
	"math"

	"github.com/Faultbox/kamishibai/pkg/encoding"
)

// Reader decodes KSM fields sequentially from a byte buffer.
// The first read past the end of the buffer sets a sticky ErrTruncatedKSMData;
// every later read returns a zero value.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the current cursor position in bytes.
func (r *Reader) Offset() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Err returns the first error encountered while reading.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.Remaining() {
		r.err = ErrTruncatedKSMData
		r.pos = len(r.data)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a one-byte boolean.
func (r *Reader) Bool() bool {
	return r.U8() != 0
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// F32 reads a little-endian float32.
func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Vec3 reads three float32 values.
func (r *Reader) Vec3() [3]float32 {
	return [3]float32{r.F32(), r.F32(), r.F32()}
}

// Vec4 reads four float32 values.
func (r *Reader) Vec4() [4]float32 {
	return [4]float32{r.F32(), r.F32(), r.F32(), r.F32()}
}

// Mat4 reads sixteen float32 values in file order.
func (r *Reader) Mat4() [16]float32 {
	var m [16]float32
	for i := range m {
		m[i] = r.F32()
	}
	return m
}

// String reads a u32 code unit count followed by that many UTF-16LE code units.
func (r *Reader) String() string {
	n := r.U32()
	if n == 0 {
		return ""
	}
	if uint64(n)*2 > uint64(r.Remaining()) {
		r.take(r.Remaining() + 1)
		return ""
	}
	b := r.take(int(n) * 2)
	if b == nil {
		return ""
	}
	return encoding.UTF16ToUTF8(b)
}

// ReadArray reads n elements using read. elemSize is the minimum encoded size
// of one element and is used to reject counts larger than the remaining data
// before anything is allocated.
func ReadArray[T any](r *Reader, n uint32, elemSize int, read func(*Reader) T) []T {
	if n == 0 || r.err != nil {
		return nil
	}
	if elemSize > 0 && uint64(n)*uint64(elemSize) > uint64(r.Remaining()) {
		r.take(r.Remaining() + 1)
		return nil
	}
	out := make([]T, n)
	for i := range out {
		out[i] = read(r)
		if r.err != nil {
			return nil
		}
	}
	return out
}
