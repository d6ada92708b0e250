package ggrenderer

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/user/mpeg1enc/pkg/ports"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRenderer_EncodeDecode(t *testing.T) {
	r := New()
	img := solid(40, 24, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	for name, format := range map[string]ports.ImageFormat{"jpeg": ports.FormatJPEG, "png": ports.FormatPNG} {
		t.Run(name, func(t *testing.T) {
			data, err := r.EncodeImage(img, format, 90)
			if err != nil {
				t.Fatalf("EncodeImage() error = %v", err)
			}
			decoded, err := r.DecodeImage(data)
			if err != nil {
				t.Fatalf("DecodeImage() error = %v", err)
			}
			if b := decoded.Bounds(); b.Dx() != 40 || b.Dy() != 24 {
				t.Errorf("decoded %dx%d, want 40x24", b.Dx(), b.Dy())
			}
			red, _, _, _ := decoded.At(20, 12).RGBA()
			if red>>8 < 150 {
				t.Errorf("decoded red = %d", red>>8)
			}
		})
	}
}

func TestRenderer_DecodeImage_ExtendedFormats(t *testing.T) {
	r := New()
	img := solid(8, 6, color.RGBA{G: 255, A: 255})

	var bmpBuf, tiffBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, img); err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(&tiffBuf, img, nil); err != nil {
		t.Fatal(err)
	}

	for name, data := range map[string][]byte{"bmp": bmpBuf.Bytes(), "tiff": tiffBuf.Bytes()} {
		decoded, err := r.DecodeImage(data)
		if err != nil {
			t.Errorf("%s: DecodeImage() error = %v", name, err)
			continue
		}
		if b := decoded.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
			t.Errorf("%s: decoded %dx%d", name, b.Dx(), b.Dy())
		}
	}

	if _, err := r.DecodeImage([]byte("not an image")); err == nil {
		t.Error("expected error for unknown data")
	}
}

func TestRenderer_EncodeImage_UnknownFormat(t *testing.T) {
	if _, err := New().EncodeImage(solid(2, 2, color.Black), ports.ImageFormat(9), 0); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderer_ResizeImage(t *testing.T) {
	resized := New().ResizeImage(solid(100, 60, color.White), 48, 32)
	if b := resized.Bounds(); b.Dx() != 48 || b.Dy() != 32 {
		t.Errorf("resized to %dx%d, want 48x32", b.Dx(), b.Dy())
	}
	r, g, b, _ := resized.At(24, 16).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("resized white became %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestCanvas_Shapes(t *testing.T) {
	canvas := New().CreateCanvas(100, 100, color.White)
	canvas.DrawRect(10, 10, 20, 20, color.RGBA{R: 255, A: 255})
	canvas.DrawCircle(70, 70, 10, color.RGBA{B: 255, A: 255})
	canvas.DrawLine(0, 50, 100, 50, color.Black, 2)
	img := canvas.ToImage()

	if r, g, _, _ := img.At(20, 20).RGBA(); r>>8 != 255 || g>>8 != 0 {
		t.Error("expected red inside the rectangle")
	}
	if _, g, b, _ := img.At(70, 70).RGBA(); b>>8 != 255 || g>>8 != 0 {
		t.Error("expected blue at the circle centre")
	}
	if r, _, _, _ := img.At(50, 50).RGBA(); r>>8 > 128 {
		t.Error("expected a dark pixel on the line")
	}
	if r, g, b, _ := img.At(90, 5).RGBA(); r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Error("background should stay white")
	}
}

func TestCanvas_DrawGradient(t *testing.T) {
	canvas := New().CreateCanvas(64, 8, color.White)
	canvas.DrawGradient(color.Black, color.White)
	img := canvas.ToImage()

	left, _, _, _ := img.At(1, 4).RGBA()
	right, _, _, _ := img.At(62, 4).RGBA()
	if left >= right {
		t.Errorf("gradient not increasing: left %d, right %d", left>>8, right>>8)
	}
}

func TestCanvas_DrawImageAndText(t *testing.T) {
	canvas := New().CreateCanvas(120, 40, color.White)
	canvas.DrawImage(solid(10, 10, color.RGBA{G: 255, A: 255}), 100, 0)
	canvas.DrawText("frame 12", 10, 20, ports.TextStyle{FontSize: 12, Color: color.Black})
	canvas.DrawText("missing font", 60, 20, ports.TextStyle{FontSize: 12, FontPath: "/nonexistent.ttf", Color: color.Black, Align: ports.AlignCenter})
	img := canvas.ToImage()

	if _, g, _, _ := img.At(105, 5).RGBA(); g>>8 != 255 {
		t.Error("expected green from the drawn image")
	}
}
