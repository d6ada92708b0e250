package bitio

import "errors"

// ErrUnexpectedEOF is reported when a read runs past the end of the data.
var ErrUnexpectedEOF = errors.New("bitio: unexpected end of stream")

// Reader reads an MSB-first bitstream.
//
// Read errors are sticky: once the end of data is crossed every read returns
// zero and Err reports ErrUnexpectedEOF. Callers check Err at syntax
// boundaries instead of after every field.
type Reader struct {
	data []byte
	pos  int64 // bit position
	err  error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// BitPos returns the current bit position.
func (r *Reader) BitPos() int64 {
	return r.pos
}

// BitsLeft returns the number of unread bits.
func (r *Reader) BitsLeft() int64 {
	return int64(len(r.data))*8 - r.pos
}

// ReadBits reads n bits (n <= 32) as an unsigned value.
func (r *Reader) ReadBits(n int) uint32 {
	v := r.PeekBits(n)
	if r.err == nil {
		r.pos += int64(n)
	}
	return v
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() uint32 {
	return r.ReadBits(1)
}

// ReadFlag reads a single bit as a boolean.
func (r *Reader) ReadFlag() bool {
	return r.ReadBits(1) == 1
}

// PeekBits returns the next n bits without consuming them.
func (r *Reader) PeekBits(n int) uint32 {
	if r.err != nil {
		return 0
	}
	if int64(n) > r.BitsLeft() {
		r.err = ErrUnexpectedEOF
		return 0
	}
	var v uint32
	pos := r.pos
	for i := 0; i < n; i++ {
		b := r.data[pos>>3] >> (7 - uint(pos&7)) & 1
		v = v<<1 | uint32(b)
		pos++
	}
	return v
}

// Skip advances the position by n bits.
func (r *Reader) Skip(n int) {
	if r.err != nil {
		return
	}
	if int64(n) > r.BitsLeft() {
		r.err = ErrUnexpectedEOF
		return
	}
	r.pos += int64(n)
}

// Aligned reports whether the reader is on a byte boundary.
func (r *Reader) Aligned() bool {
	return r.pos&7 == 0
}

// Align skips to the next byte boundary.
func (r *Reader) Align() {
	if rem := r.pos & 7; rem != 0 {
		r.Skip(int(8 - rem))
	}
}

// NextStartCode aligns to a byte boundary and scans forward to the next
// 0x000001 prefix. It returns the start code value following the prefix
// and leaves the reader positioned after it. ok is false at end of data.
func (r *Reader) NextStartCode() (code byte, ok bool) {
	r.Align()
	if r.err != nil {
		return 0, false
	}
	i := int(r.pos >> 3)
	for ; i+3 < len(r.data); i++ {
		if r.data[i] == 0 && r.data[i+1] == 0 && r.data[i+2] == 1 {
			r.pos = int64(i+4) * 8
			return r.data[i+3], true
		}
	}
	r.pos = int64(len(r.data)) * 8
	return 0, false
}

// AtStartCode reports whether the next 24 bits (at a byte boundary) form a
// start code prefix. Only meaningful when aligned.
func (r *Reader) AtStartCode() bool {
	if r.err != nil || !r.Aligned() || r.BitsLeft() < 24 {
		return false
	}
	i := r.pos >> 3
	return r.data[i] == 0 && r.data[i+1] == 0 && r.data[i+2] == 1
}
