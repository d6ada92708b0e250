package bitio

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestWriter_WriteBits_MSBFirst(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0x000001, 24)
	w.WriteBits(0xB3, 8)
	w.WriteBits(0x5, 3) // 101
	w.WriteBits(0x1, 1)
	w.Align()

	want := []byte{0x00, 0x00, 0x01, 0xB3, 0xB0}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got % x, want % x", w.Bytes(), want)
	}
	if w.BitCount() != 40 {
		t.Errorf("expected 40 bits, got %d", w.BitCount())
	}
}

func TestWriter_WriteBits_MasksHighBits(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0xFFFFFFFF, 4)
	w.WriteBits(0, 4)
	if got := w.Bytes(); len(got) != 1 || got[0] != 0xF0 {
		t.Errorf("got % x, want f0", got)
	}
}

func TestWriter_Align_NoopWhenAligned(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(0xAB, 8)
	w.Align()
	if w.BitCount() != 8 {
		t.Errorf("align on boundary should not add bits, got %d", w.BitCount())
	}
	if !w.Aligned() {
		t.Error("expected aligned writer")
	}
}

func TestWriter_Full32Bits(t *testing.T) {
	w := NewWriter(0)
	w.WriteBits(1, 1)
	w.WriteBits(0xDEADBEEF, 32)
	w.Align()
	r := NewReader(w.Bytes())
	if r.ReadBit() != 1 {
		t.Fatal("expected leading 1 bit")
	}
	if got := r.ReadBits(32); got != 0xDEADBEEF {
		t.Errorf("got %#x, want 0xdeadbeef", got)
	}
}

func TestWriterReader_RoundTrip_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	type field struct {
		v uint32
		n int
	}
	fields := make([]field, 2000)
	w := NewWriter(0)
	for i := range fields {
		n := rng.Intn(32) + 1
		v := rng.Uint32()
		if n < 32 {
			v &= (1 << uint(n)) - 1
		}
		fields[i] = field{v, n}
		w.WriteBits(v, n)
	}
	total := w.BitCount()
	w.Align()

	r := NewReader(w.Bytes())
	for i, f := range fields {
		if got := r.ReadBits(f.n); got != f.v {
			t.Fatalf("field %d: got %#x, want %#x (%d bits)", i, got, f.v, f.n)
		}
	}
	if r.BitPos() != total {
		t.Errorf("reader at %d, expected %d", r.BitPos(), total)
	}
	if r.Err() != nil {
		t.Errorf("unexpected error: %v", r.Err())
	}
}

func TestReader_StickyEOF(t *testing.T) {
	r := NewReader([]byte{0xFF})
	r.ReadBits(6)
	if got := r.ReadBits(4); got != 0 {
		t.Errorf("expected zero after EOF, got %d", got)
	}
	if r.Err() != ErrUnexpectedEOF {
		t.Errorf("expected ErrUnexpectedEOF, got %v", r.Err())
	}
	if got := r.ReadBits(1); got != 0 {
		t.Errorf("reads after EOF must return zero, got %d", got)
	}
}

func TestReader_NextStartCode(t *testing.T) {
	data := []byte{0xAA, 0x00, 0x00, 0x01, 0xB8, 0x12, 0x00, 0x00, 0x01, 0x00}
	r := NewReader(data)
	r.ReadBits(3)

	code, ok := r.NextStartCode()
	if !ok || code != 0xB8 {
		t.Fatalf("expected GOP start code, got %#x ok=%v", code, ok)
	}
	if r.BitPos() != 5*8 {
		t.Errorf("expected position after start code, got bit %d", r.BitPos())
	}
	if got := r.ReadBits(8); got != 0x12 {
		t.Errorf("got %#x, want 0x12", got)
	}
	code, ok = r.NextStartCode()
	if !ok || code != 0x00 {
		t.Fatalf("expected picture start code, got %#x ok=%v", code, ok)
	}
	if _, ok := r.NextStartCode(); ok {
		t.Error("expected no further start codes")
	}
}

func TestReader_AtStartCode(t *testing.T) {
	r := NewReader([]byte{0x00, 0x00, 0x01, 0xB7})
	if !r.AtStartCode() {
		t.Error("expected start code at position 0")
	}
	r.ReadBits(1)
	if r.AtStartCode() {
		t.Error("unaligned reader cannot be at a start code")
	}
}
