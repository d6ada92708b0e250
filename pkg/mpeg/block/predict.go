package block

import (
	"github.com/user/mpeg1enc/pkg/mpeg/frame"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// ChromaVector derives the chrominance vector from a luminance vector in
// half-sample units.
func ChromaVector(v syntax.Vector) syntax.Vector {
	return syntax.Vector{V: v.V / 2, H: v.H / 2}
}

// InBounds reports whether a size x size block at (x, y) displaced by v
// (half-sample units) reads only samples inside a width x height plane.
func InBounds(width, height, x, y, size int, v syntax.Vector) bool {
	x0 := x + (v.H >> 1)
	y0 := y + (v.V >> 1)
	x1 := x0 + size - 1 + (v.H & 1)
	y1 := y0 + size - 1 + (v.V & 1)
	return x0 >= 0 && y0 >= 0 && x1 < width && y1 < height
}

// predictPlane fills dst (size x size) with half-sample interpolated
// samples of p at (x, y) displaced by v.
func predictPlane(p *frame.Plane, x, y, size int, v syntax.Vector, dst []uint8) {
	x0 := x + (v.H >> 1)
	y0 := y + (v.V >> 1)
	fx, fy := v.H&1, v.V&1
	for j := 0; j < size; j++ {
		for i := 0; i < size; i++ {
			a := int(p.At(x0+i, y0+j))
			switch {
			case fx == 0 && fy == 0:
				dst[j*size+i] = uint8(a)
			case fy == 0:
				b := int(p.At(x0+i+1, y0+j))
				dst[j*size+i] = uint8((a + b + 1) >> 1)
			case fx == 0:
				c := int(p.At(x0+i, y0+j+1))
				dst[j*size+i] = uint8((a + c + 1) >> 1)
			default:
				b := int(p.At(x0+i+1, y0+j))
				c := int(p.At(x0+i, y0+j+1))
				d := int(p.At(x0+i+1, y0+j+1))
				dst[j*size+i] = uint8((a + b + c + d + 2) >> 2)
			}
		}
	}
}

// Predict fills dst with the prediction of macroblock (mbx, mby) from ref
// displaced by v in half-sample units.
func Predict(ref *frame.Planes, mbx, mby int, v syntax.Vector, dst *Macroblock) {
	predictPlane(ref.Y, mbx*16, mby*16, 16, v, dst.Y[:])
	cv := ChromaVector(v)
	predictPlane(ref.Cb, mbx*8, mby*8, 8, cv, dst.Cb[:])
	predictPlane(ref.Cr, mbx*8, mby*8, 8, cv, dst.Cr[:])
}

// Average sets dst to the rounded mean of a and b.
func Average(a, b, dst *Macroblock) {
	for i := range dst.Y {
		dst.Y[i] = uint8((int(a.Y[i]) + int(b.Y[i]) + 1) >> 1)
	}
	for i := range dst.Cb {
		dst.Cb[i] = uint8((int(a.Cb[i]) + int(b.Cb[i]) + 1) >> 1)
		dst.Cr[i] = uint8((int(a.Cr[i]) + int(b.Cr[i]) + 1) >> 1)
	}
}
