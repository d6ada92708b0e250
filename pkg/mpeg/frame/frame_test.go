package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

func TestParsePattern(t *testing.T) {
	kinds, err := ParsePattern("IbP")
	if err != nil {
		t.Fatal(err)
	}
	want := []Kind{Intra, BiPredicted, ForwardPredicted}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kind %d = %s, want %s", i, kinds[i], want[i])
		}
	}
	if _, err := ParsePattern("IXP"); err == nil {
		t.Error("expected error for unknown letter")
	}
	if _, err := ParsePattern(""); err == nil {
		t.Error("expected error for empty pattern")
	}
}

func TestKind_PictureType(t *testing.T) {
	if Intra.PictureType() != syntax.PictureI || ForwardPredicted.PictureType() != syntax.PictureP || BiPredicted.PictureType() != syntax.PictureB {
		t.Error("unexpected picture type mapping")
	}
	if BiPredicted.IsReference() || !ForwardPredicted.IsReference() {
		t.Error("unexpected reference flags")
	}
}

func TestMacroblockDims(t *testing.T) {
	w, h := MacroblockDims(352, 240)
	if w != 22 || h != 15 {
		t.Errorf("got %dx%d", w, h)
	}
	w, h = MacroblockDims(17, 1)
	if w != 2 || h != 1 {
		t.Errorf("got %dx%d", w, h)
	}
}

func TestPlanes_LoadYCbCr_ReplicatesEdges(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 10, 6), image.YCbCrSubsampleRatio420)
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			img.Y[y*img.YStride+x] = uint8(10*y + x)
		}
	}
	for i := range img.Cb {
		img.Cb[i] = uint8(100 + i)
		img.Cr[i] = 200
	}
	p := NewPlanes(MacroblockDims(10, 6))
	if err := p.LoadYCbCr(img); err != nil {
		t.Fatal(err)
	}
	if got := p.Y.At(3, 2); got != 23 {
		t.Errorf("Y(3,2) = %d", got)
	}
	if got := p.Y.At(15, 2); got != 29 {
		t.Errorf("Y(15,2) should replicate column 9, got %d", got)
	}
	if got := p.Y.At(4, 15); got != 54 {
		t.Errorf("Y(4,15) should replicate row 5, got %d", got)
	}
	if got := p.Cb.At(7, 7); got != p.Cb.At(4, 2) {
		t.Errorf("Cb corner %d should replicate last visible sample %d", got, p.Cb.At(4, 2))
	}
	if p.Cr.At(7, 0) != 200 {
		t.Errorf("Cr = %d", p.Cr.At(7, 0))
	}

	out := p.ToYCbCr(10, 6)
	if out.Y[2*out.YStride+3] != 23 {
		t.Error("ToYCbCr did not copy luminance")
	}
}

func TestPlanes_LoadYCbCr_RejectsOversize(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 40, 16), image.YCbCrSubsampleRatio420)
	p := NewPlanes(2, 1)
	if err := p.LoadYCbCr(img); err == nil {
		t.Error("expected error for an image wider than the planes")
	}
	img444 := image.NewYCbCr(image.Rect(0, 0, 16, 16), image.YCbCrSubsampleRatio444)
	if err := p.LoadYCbCr(img444); err == nil {
		t.Error("expected error for 4:4:4 input")
	}
}

func TestPlanes_LoadImage_Gray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	p := NewPlanes(1, 1)
	if err := p.LoadImage(img); err != nil {
		t.Fatal(err)
	}
	wantY, wantCb, wantCr := color.RGBToYCbCr(128, 128, 128)
	if p.Y.At(5, 5) != wantY || p.Cb.At(3, 3) != wantCb || p.Cr.At(3, 3) != wantCr {
		t.Errorf("got Y=%d Cb=%d Cr=%d", p.Y.At(5, 5), p.Cb.At(3, 3), p.Cr.At(3, 3))
	}
}

func TestComputeHalf(t *testing.T) {
	p := NewPlane(2, 2)
	p.Pix = []uint8{10, 21, 30, 41}
	h := ComputeHalf(p)
	if h.X.Pix[0] != 16 || h.X.Pix[1] != 21 {
		t.Errorf("X = %v", h.X.Pix)
	}
	if h.Y.Pix[0] != 20 || h.Y.Pix[2] != 30 {
		t.Errorf("Y = %v", h.Y.Pix)
	}
	if h.XY.Pix[0] != 26 {
		t.Errorf("XY = %v", h.XY.Pix)
	}
	if h.Select(p, 0, 0) != p || h.Select(p, 1, 0) != h.X || h.Select(p, 0, 1) != h.Y || h.Select(p, 1, 1) != h.XY {
		t.Error("Select returned the wrong plane")
	}
}

func TestFrame_ReferenceAndHalf(t *testing.T) {
	pool := NewPool(1, 1)
	f := pool.NewFrame(3, ForwardPredicted)
	f.Orig.Y.Fill(50)
	if f.Reference(true) != f.Orig {
		t.Error("without reconstruction the original is the reference")
	}
	h1 := f.Half(true)
	if h1.XY.At(0, 0) != 50 {
		t.Errorf("half plane = %d", h1.XY.At(0, 0))
	}
	recon := f.EnsureRecon()
	recon.Y.Fill(60)
	if f.Reference(true) != recon || f.Reference(false) != f.Orig {
		t.Error("unexpected reference selection")
	}
	if got := f.Half(true).X.At(4, 4); got != 60 {
		t.Errorf("half planes not rebuilt from reconstruction: %d", got)
	}
	if got := f.Half(false).X.At(4, 4); got != 50 {
		t.Errorf("original half planes = %d", got)
	}
	f.Release()
	if f.Orig != nil || f.Recon != nil {
		t.Error("Release should drop planes")
	}
}

func TestPool_RejectsForeignGeometry(t *testing.T) {
	pool := NewPool(2, 2)
	pool.Put(NewPlanes(1, 1))
	if got := pool.Get(); got.MBWidth() != 2 || got.MBHeight() != 2 {
		t.Errorf("pool returned %dx%d planes", got.MBWidth(), got.MBHeight())
	}
}
