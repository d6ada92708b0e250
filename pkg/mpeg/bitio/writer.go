// Package bitio provides the MSB-first bit writer and reader used for
// MPEG-1 video elementary streams.
package bitio

// Writer is an append-only, bit-granular output buffer.
//
// Bits are accumulated in a 64-bit register and flushed one byte at a time
// in big-endian (most significant bit first) order, which is the order
// every MPEG-1 syntax element is defined in.
type Writer struct {
	acc   uint64 // pending bits, right-aligned
	used  int    // number of pending bits in acc (always < 8 between calls)
	buf   []byte
	count int64 // total bits written, including pending ones
}

// NewWriter creates a Writer with capacity for expectedSize bytes.
func NewWriter(expectedSize int) *Writer {
	if expectedSize < 1024 {
		expectedSize = 1024
	}
	return &Writer{buf: make([]byte, 0, expectedSize)}
}

// WriteBits appends the low n bits of v, most significant first.
// n must be in [0, 32].
func (w *Writer) WriteBits(v uint32, n int) {
	if n <= 0 {
		return
	}
	if n < 32 {
		v &= (1 << uint(n)) - 1
	}
	w.acc = w.acc<<uint(n) | uint64(v)
	w.used += n
	w.count += int64(n)
	for w.used >= 8 {
		w.used -= 8
		w.buf = append(w.buf, byte(w.acc>>uint(w.used)))
	}
	w.acc &= (1 << uint(w.used)) - 1
}

// WriteFlag appends a single bit.
func (w *Writer) WriteFlag(b bool) {
	if b {
		w.WriteBits(1, 1)
		return
	}
	w.WriteBits(0, 1)
}

// Align pads with zero bits up to the next byte boundary.
func (w *Writer) Align() {
	if w.used > 0 {
		w.WriteBits(0, 8-w.used)
	}
}

// Aligned reports whether the writer is on a byte boundary.
func (w *Writer) Aligned() bool {
	return w.used == 0
}

// BitCount returns the number of bits written so far. It never decreases.
func (w *Writer) BitCount() int64 {
	return w.count
}

// Len returns the number of complete bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the complete bytes written so far. Pending bits that do
// not yet form a full byte are not included; call Align first to flush them.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reset discards all written data while keeping the allocated buffer.
func (w *Writer) Reset() {
	w.acc = 0
	w.used = 0
	w.count = 0
	w.buf = w.buf[:0]
}
