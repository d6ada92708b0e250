package inspect

import (
	"errors"
	"testing"

	"github.com/user/mpeg1enc/pkg/mpeg/bitio"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func intraBlocks(seed int) *[6][64]int16 {
	var b [6][64]int16
	for i := range b {
		b[i][0] = int16(40 + seed*7 + i*3)
		if i%2 == 0 {
			b[i][2] = int16(seed - 3)
		}
	}
	return &b
}

// buildStream encodes a 64x32 sequence with one I and one P picture.
func buildStream(t *testing.T) (data []byte, pLevels *[6][64]int16) {
	t.Helper()
	w := bitio.NewWriter(0)
	must(t, syntax.SequenceHeader{Width: 64, Height: 32, AspectCode: 1, RateCode: 5, BitRate: 2500, VBVBufferSize: 20}.Write(w))
	must(t, syntax.WriteUserData(w, []byte("test")))
	syntax.GOPHeader{Closed: true}.Write(w)

	c := syntax.NewCoder(w, 4)
	must(t, c.BeginPicture(syntax.PictureHeader{TemporalReference: 0, Type: syntax.PictureI, VBVDelay: 0xFFFF}))
	for row := 0; row < 2; row++ {
		must(t, c.BeginSlice(row, 8))
		for col := 0; col < 4; col++ {
			addr := row*4 + col
			must(t, c.Encode(&syntax.Macroblock{Address: addr, Intra: true, QScale: 8, Blocks: intraBlocks(addr)}))
		}
		c.EndSlice()
	}

	var coded [6][64]int16
	coded[0][0] = 3
	coded[0][9] = -2
	coded[5][40] = 300 - 256
	must(t, c.BeginPicture(syntax.PictureHeader{TemporalReference: 1, Type: syntax.PictureP, VBVDelay: 0xFFFF, ForwardFCode: 2}))
	must(t, c.BeginSlice(0, 8))
	must(t, c.Encode(&syntax.Macroblock{Address: 0, Forward: true, ForwardVector: syntax.Vector{V: 2, H: -2}}))
	must(t, c.Encode(&syntax.Macroblock{Address: 3, Forward: true, ForwardVector: syntax.Vector{V: 4}, QScale: 12,
		Pattern: syntax.PatternBit(0) | syntax.PatternBit(5), Blocks: &coded}))
	c.EndSlice()
	must(t, c.BeginSlice(1, 10))
	must(t, c.Encode(&syntax.Macroblock{Address: 4, Intra: true, QScale: 10, Blocks: intraBlocks(1)}))
	for addr := 5; addr < 8; addr++ {
		must(t, c.Encode(&syntax.Macroblock{Address: addr, QScale: 10, Pattern: syntax.PatternBit(0), Blocks: &coded}))
	}
	c.EndSlice()
	syntax.WriteSequenceEnd(w)
	w.Align()
	return w.Bytes(), &coded
}

func TestParse_RoundTrip(t *testing.T) {
	data, pLevels := buildStream(t)
	s, err := Parse(data, Options{KeepMacroblocks: true, KeepLevels: true})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Sequence == nil || s.Sequence.Width != 64 || s.Sequence.Height != 32 || s.Sequence.BitRate != 2500 {
		t.Fatalf("sequence = %+v", s.Sequence)
	}
	if !s.Ended {
		t.Error("sequence end code not seen")
	}
	if len(s.GOPs) != 1 || !s.GOPs[0].Closed {
		t.Errorf("GOPs = %+v", s.GOPs)
	}
	if len(s.UserData) != 1 || string(s.UserData[0]) != "test" {
		t.Errorf("user data = %q", s.UserData)
	}
	if len(s.Pictures) != 2 {
		t.Fatalf("pictures = %d", len(s.Pictures))
	}

	ip := s.Pictures[0]
	if ip.Type != syntax.PictureI || ip.Slices != 2 || ip.Intra != 8 || ip.CodedBlocks != 48 {
		t.Errorf("I picture = type %s slices %d intra %d blocks %d", ip.Type, ip.Slices, ip.Intra, ip.CodedBlocks)
	}
	for _, mb := range ip.Macroblocks {
		want := intraBlocks(mb.Address)
		if *mb.Levels != *want {
			t.Errorf("I macroblock %d levels differ", mb.Address)
		}
		for i := 0; i < 6; i++ {
			if mb.DC[i] != int(want[i][0]) {
				t.Errorf("I macroblock %d block %d DC = %d, want %d", mb.Address, i, mb.DC[i], want[i][0])
			}
		}
	}

	pp := s.Pictures[1]
	if pp.Type != syntax.PictureP || pp.ForwardFCode != 2 {
		t.Errorf("P picture header = %+v", pp)
	}
	if pp.MacroblockCount() != 8 || pp.Skipped != 2 || pp.Intra != 1 || pp.Inter != 5 {
		t.Errorf("P counts: intra %d inter %d skipped %d", pp.Intra, pp.Inter, pp.Skipped)
	}
	if pp.QuantChanges != 1 || pp.MinQ != 8 || pp.MaxQ != 12 {
		t.Errorf("P quant: changes %d min %d max %d", pp.QuantChanges, pp.MinQ, pp.MaxQ)
	}
	if pp.CodedBlocks != 2+6+3 {
		t.Errorf("P coded blocks = %d", pp.CodedBlocks)
	}
	if len(pp.Macroblocks) != 8 {
		t.Fatalf("P macroblocks = %d", len(pp.Macroblocks))
	}
	if v := pp.Macroblocks[0].Forward; v != (syntax.Vector{V: 2, H: -2}) {
		t.Errorf("macroblock 0 vector = %+v", v)
	}
	if !pp.Macroblocks[1].Skipped || !pp.Macroblocks[2].Skipped {
		t.Error("macroblocks 1 and 2 should be skipped")
	}
	mb3 := pp.Macroblocks[3]
	if mb3.Forward != (syntax.Vector{V: 4}) || mb3.QScale != 12 {
		t.Errorf("macroblock 3 = %+v", mb3)
	}
	if mb3.Levels[0] != pLevels[0] || mb3.Levels[5] != pLevels[5] {
		t.Error("macroblock 3 levels differ")
	}
	// Coefficients without motion are coded as pattern-only.
	if f := pp.Macroblocks[5].Flags; f != syntax.MBPattern {
		t.Errorf("macroblock 5 flags = %#x, want pattern only", f)
	}
	if pp.Bits <= 0 || ip.Bits <= pp.Bits {
		t.Errorf("picture bits I=%d P=%d", ip.Bits, pp.Bits)
	}
}

func TestParse_DCResetsPerSlice(t *testing.T) {
	w := bitio.NewWriter(0)
	must(t, syntax.SequenceHeader{Width: 16, Height: 32, AspectCode: 1, RateCode: 3}.Write(w))
	c := syntax.NewCoder(w, 1)
	must(t, c.BeginPicture(syntax.PictureHeader{Type: syntax.PictureI}))
	blocks := intraBlocks(9)
	for row := 0; row < 2; row++ {
		must(t, c.BeginSlice(row, 4))
		must(t, c.Encode(&syntax.Macroblock{Address: row, Intra: true, QScale: 4, Blocks: blocks}))
		c.EndSlice()
	}
	w.Align()
	s, err := Parse(w.Bytes(), Options{KeepMacroblocks: true})
	must(t, err)
	if len(s.Pictures) != 1 || len(s.Pictures[0].Macroblocks) != 2 {
		t.Fatalf("unexpected structure: %+v", s.Pictures)
	}
	a, b := s.Pictures[0].Macroblocks[0], s.Pictures[0].Macroblocks[1]
	if a.DC != b.DC {
		t.Errorf("identical macroblocks in separate slices decoded differently: %v vs %v", a.DC, b.DC)
	}
	if s.Ended {
		t.Error("stream without end code reported as ended")
	}
}

func TestParse_BSkipInheritsVectors(t *testing.T) {
	w := bitio.NewWriter(0)
	must(t, syntax.SequenceHeader{Width: 64, Height: 16, AspectCode: 1, RateCode: 3}.Write(w))
	c := syntax.NewCoder(w, 4)
	must(t, c.BeginPicture(syntax.PictureHeader{Type: syntax.PictureB, ForwardFCode: 1, BackwardFCode: 1}))
	must(t, c.BeginSlice(0, 8))
	v := syntax.Vector{V: -3, H: 5}
	must(t, c.Encode(&syntax.Macroblock{Address: 0, Forward: true, ForwardVector: v}))
	must(t, c.Encode(&syntax.Macroblock{Address: 3, Backward: true, BackwardVector: v}))
	c.EndSlice()
	w.Align()

	s, err := Parse(w.Bytes(), Options{KeepMacroblocks: true})
	must(t, err)
	mbs := s.Pictures[0].Macroblocks
	if len(mbs) != 4 {
		t.Fatalf("macroblocks = %d", len(mbs))
	}
	for _, mb := range mbs[1:3] {
		if !mb.Skipped || mb.Flags != syntax.MBForward || mb.Forward != v {
			t.Errorf("skipped macroblock %d = %+v", mb.Address, mb)
		}
	}
	if mbs[3].Backward != v {
		t.Errorf("macroblock 3 backward = %+v", mbs[3].Backward)
	}
}

func TestParse_NoSequenceHeader(t *testing.T) {
	w := bitio.NewWriter(0)
	must(t, syntax.PictureHeader{Type: syntax.PictureI}.Write(w))
	w.Align()
	if _, err := Parse(w.Bytes(), Options{}); !errors.Is(err, ErrNoSequenceHeader) {
		t.Errorf("expected ErrNoSequenceHeader, got %v", err)
	}
}

func TestParse_Truncated(t *testing.T) {
	data, _ := buildStream(t)
	// Cut inside the first slice of the I picture.
	_, err := Parse(data[:40], Options{})
	if err == nil {
		t.Skip("truncation landed on a macroblock boundary")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestStream_DisplayOrder(t *testing.T) {
	w := bitio.NewWriter(0)
	must(t, syntax.SequenceHeader{Width: 16, Height: 16, AspectCode: 1, RateCode: 3}.Write(w))
	syntax.GOPHeader{Closed: true}.Write(w)
	must(t, syntax.PictureHeader{TemporalReference: 0, Type: syntax.PictureI}.Write(w))
	must(t, syntax.PictureHeader{TemporalReference: 2, Type: syntax.PictureP, ForwardFCode: 1}.Write(w))
	must(t, syntax.PictureHeader{TemporalReference: 1, Type: syntax.PictureB, ForwardFCode: 1, BackwardFCode: 1}.Write(w))
	syntax.GOPHeader{}.Write(w)
	must(t, syntax.PictureHeader{TemporalReference: 1, Type: syntax.PictureI}.Write(w))
	must(t, syntax.PictureHeader{TemporalReference: 0, Type: syntax.PictureB, ForwardFCode: 1, BackwardFCode: 1}.Write(w))
	syntax.WriteSequenceEnd(w)
	w.Align()

	s, err := Parse(w.Bytes(), Options{})
	must(t, err)
	got := s.DisplayOrder()
	want := []int{0, 2, 1, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	counts := s.Counts()
	if counts[syntax.PictureI] != 2 || counts[syntax.PictureP] != 1 || counts[syntax.PictureB] != 2 {
		t.Errorf("counts = %v", counts)
	}
}
