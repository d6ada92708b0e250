package frame

import (
	"fmt"
	"image"
	"image/color"
)

// Plane is one 8-bit sample plane stored row-major with stride == Width.
type Plane struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPlane allocates a zeroed plane.
func NewPlane(width, height int) *Plane {
	return &Plane{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At returns the sample at (x, y) with coordinates clamped to the plane.
func (p *Plane) At(x, y int) uint8 {
	if x < 0 {
		x = 0
	} else if x >= p.Width {
		x = p.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.Height {
		y = p.Height - 1
	}
	return p.Pix[y*p.Width+x]
}

// Row returns row y.
func (p *Plane) Row(y int) []uint8 {
	return p.Pix[y*p.Width : (y+1)*p.Width]
}

// CopyFrom copies src into p. Both planes must share dimensions.
func (p *Plane) CopyFrom(src *Plane) {
	copy(p.Pix, src.Pix)
}

// Fill sets every sample to v.
func (p *Plane) Fill(v uint8) {
	for i := range p.Pix {
		p.Pix[i] = v
	}
}

// Planes holds the luminance and both 4:2:0 chrominance planes of a frame.
// Dimensions are padded to whole macroblocks.
type Planes struct {
	Y  *Plane
	Cb *Plane
	Cr *Plane
}

// NewPlanes allocates planes for mbWidth x mbHeight macroblocks.
func NewPlanes(mbWidth, mbHeight int) *Planes {
	return &Planes{
		Y:  NewPlane(mbWidth*16, mbHeight*16),
		Cb: NewPlane(mbWidth*8, mbHeight*8),
		Cr: NewPlane(mbWidth*8, mbHeight*8),
	}
}

// MBWidth returns the width in macroblocks.
func (p *Planes) MBWidth() int {
	return p.Y.Width / 16
}

// MBHeight returns the height in macroblocks.
func (p *Planes) MBHeight() int {
	return p.Y.Height / 16
}

// CopyFrom copies all three planes.
func (p *Planes) CopyFrom(src *Planes) {
	p.Y.CopyFrom(src.Y)
	p.Cb.CopyFrom(src.Cb)
	p.Cr.CopyFrom(src.Cr)
}

// MacroblockDims returns the macroblock grid covering width x height.
func MacroblockDims(width, height int) (mbWidth, mbHeight int) {
	return (width + 15) / 16, (height + 15) / 16
}

// LoadYCbCr fills p from a 4:2:0 image of the coded picture size. Samples
// beyond the image edge replicate the last row and column.
func (p *Planes) LoadYCbCr(img *image.YCbCr) error {
	if img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		return fmt.Errorf("unsupported chroma subsampling %v", img.SubsampleRatio)
	}
	b := img.Rect
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || w > p.Y.Width || h > p.Y.Height {
		return fmt.Errorf("image size %dx%d does not fit %dx%d planes", w, h, p.Y.Width, p.Y.Height)
	}
	for y := 0; y < p.Y.Height; y++ {
		sy := min(y, h-1)
		src := img.Y[img.YOffset(b.Min.X, b.Min.Y+sy):]
		row := p.Y.Row(y)
		copy(row, src[:w])
		for x := w; x < len(row); x++ {
			row[x] = row[w-1]
		}
	}
	cw, ch := (w+1)/2, (h+1)/2
	for y := 0; y < p.Cb.Height; y++ {
		sy := min(y, ch-1)
		off := img.COffset(b.Min.X, b.Min.Y+2*sy)
		cb, cr := p.Cb.Row(y), p.Cr.Row(y)
		copy(cb, img.Cb[off:off+cw])
		copy(cr, img.Cr[off:off+cw])
		for x := cw; x < len(cb); x++ {
			cb[x] = cb[cw-1]
			cr[x] = cr[cw-1]
		}
	}
	return nil
}

// LoadImage fills p from any image, converting to Y'CbCr with 2x2 chroma
// averaging. The image must not exceed the plane size.
func (p *Planes) LoadImage(img image.Image) error {
	if ycc, ok := img.(*image.YCbCr); ok && ycc.SubsampleRatio == image.YCbCrSubsampleRatio420 {
		return p.LoadYCbCr(ycc)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || w > p.Y.Width || h > p.Y.Height {
		return fmt.Errorf("image size %dx%d does not fit %dx%d planes", w, h, p.Y.Width, p.Y.Height)
	}
	cbSum := make([]int, p.Cb.Width*p.Cb.Height)
	crSum := make([]int, len(cbSum))
	for y := 0; y < p.Y.Height; y++ {
		sy := min(y, h-1)
		for x := 0; x < p.Y.Width; x++ {
			sx := min(x, w-1)
			r, g, bl, _ := img.At(b.Min.X+sx, b.Min.Y+sy).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(bl>>8))
			p.Y.Pix[y*p.Y.Width+x] = yy
			ci := (y/2)*p.Cb.Width + x/2
			cbSum[ci] += int(cb)
			crSum[ci] += int(cr)
		}
	}
	for i := range cbSum {
		p.Cb.Pix[i] = uint8((cbSum[i] + 2) / 4)
		p.Cr.Pix[i] = uint8((crSum[i] + 2) / 4)
	}
	return nil
}

// ToYCbCr copies the visible width x height area into a new 4:2:0 image.
func (p *Planes) ToYCbCr(width, height int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	for y := 0; y < height; y++ {
		copy(img.Y[y*img.YStride:y*img.YStride+width], p.Y.Row(y)[:width])
	}
	cw, ch := (width+1)/2, (height+1)/2
	for y := 0; y < ch; y++ {
		copy(img.Cb[y*img.CStride:y*img.CStride+cw], p.Cb.Row(y)[:cw])
		copy(img.Cr[y*img.CStride:y*img.CStride+cw], p.Cr.Row(y)[:cw])
	}
	return img
}
