// Package quant converts transform coefficients to levels and back using
// the MPEG-1 quantizer matrices and a per-macroblock quantizer scale.
package quant

import (
	"errors"
	"fmt"

	"github.com/user/mpeg1enc/pkg/mpeg/block"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// ErrInvalidScale is returned for a quantizer scale outside [1,31].
var ErrInvalidScale = errors.New("quant: quantizer scale out of range")

// Outcome classifies a quantized block.
type Outcome int

const (
	// Zero means every level is zero and the block can be left out of the
	// coded pattern.
	Zero Outcome = iota
	// Coded means at least one level is non-zero and all levels fit.
	Coded
	// Overflow means some level does not fit the escape code range.
	Overflow
)

// Quantizer holds the intra and non-intra matrices in natural order.
type Quantizer struct {
	Intra    [64]uint8
	NonIntra [64]uint8
}

// New returns a Quantizer using the given matrices, or the defaults where
// nil.
func New(intra, nonIntra *[64]uint8) *Quantizer {
	q := &Quantizer{Intra: syntax.DefaultIntraMatrix, NonIntra: syntax.DefaultNonIntraMatrix}
	if intra != nil {
		q.Intra = *intra
	}
	if nonIntra != nil {
		q.NonIntra = *nonIntra
	}
	return q
}

// QuantizeIntra quantizes an intra block into zig-zag ordered levels. The
// DC level is the coefficient divided by eight and never overflows.
func (q *Quantizer) QuantizeIntra(coef *block.Block, scale int, out *[64]int16) Outcome {
	dc := (int(coef[0]) + 4) >> 3
	if dc < 0 {
		dc = 0
	} else if dc > syntax.MaxLevel {
		dc = syntax.MaxLevel
	}
	out[0] = int16(dc)
	outcome := Coded
	for i := 1; i < 64; i++ {
		pos := syntax.ZigZag[i]
		f := int(coef[pos])
		qw := scale * int(q.Intra[pos])
		abs := f
		if abs < 0 {
			abs = -abs
		}
		l := (16*abs + qw) / (2 * qw)
		if l > syntax.MaxLevel {
			outcome = Overflow
		}
		if f < 0 {
			l = -l
		}
		out[i] = int16(l)
	}
	return outcome
}

// QuantizeNonIntra quantizes a residual block into zig-zag ordered levels
// with a dead zone around zero.
func (q *Quantizer) QuantizeNonIntra(coef *block.Block, scale int, out *[64]int16) Outcome {
	outcome := Zero
	for i := 0; i < 64; i++ {
		pos := syntax.ZigZag[i]
		f := int(coef[pos])
		qw := scale * int(q.NonIntra[pos])
		abs := f
		if abs < 0 {
			abs = -abs
		}
		l := 8 * abs / qw
		if l > syntax.MaxLevel {
			outcome = Overflow
		} else if l != 0 && outcome == Zero {
			outcome = Coded
		}
		if f < 0 {
			l = -l
		}
		out[i] = int16(l)
	}
	return outcome
}

// DequantizeIntra reconstructs coefficients from zig-zag ordered intra
// levels the way a decoder does.
func (q *Quantizer) DequantizeIntra(levels *[64]int16, scale int, out *block.Block) {
	*out = block.Block{}
	out[0] = int16(int(levels[0]) * 8)
	for i := 1; i < 64; i++ {
		l := int(levels[i])
		if l == 0 {
			continue
		}
		pos := syntax.ZigZag[i]
		out[pos] = finish(2 * l * scale * int(q.Intra[pos]) / 16)
	}
}

// DequantizeNonIntra reconstructs coefficients from zig-zag ordered
// non-intra levels.
func (q *Quantizer) DequantizeNonIntra(levels *[64]int16, scale int, out *block.Block) {
	*out = block.Block{}
	for i := 0; i < 64; i++ {
		l := int(levels[i])
		if l == 0 {
			continue
		}
		sign := 1
		if l < 0 {
			sign = -1
		}
		pos := syntax.ZigZag[i]
		out[pos] = finish((2*l + sign) * scale * int(q.NonIntra[pos]) / 16)
	}
}

// finish applies oddification and saturation.
func finish(v int) int16 {
	if v&1 == 0 && v != 0 {
		if v > 0 {
			v--
		} else {
			v++
		}
	}
	if v > block.MaxCoeff {
		v = block.MaxCoeff
	} else if v < block.MinCoeff {
		v = block.MinCoeff
	}
	return int16(v)
}

// Result is the outcome of quantizing a whole macroblock.
type Result struct {
	// QScale is the scale the levels were produced with.
	QScale int
	// Overflowed reports that QScale had to be raised above the request.
	Overflowed bool
	// Saturated reports that levels still overflowed at the largest scale
	// and were clipped.
	Saturated bool
	// Pattern is the coded_block_pattern; intra macroblocks code all blocks.
	Pattern int
	Levels  [6][64]int16
}

// QuantizeMacroblock quantizes all six blocks at scale, raising the scale
// and starting over while any block overflows. The loop ends at the largest
// legal scale, where remaining overflows are clipped.
func (q *Quantizer) QuantizeMacroblock(coefs *[6]block.Block, intra bool, scale int) (Result, error) {
	if scale < syntax.MinQScale || scale > syntax.MaxQScale {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidScale, scale)
	}
	res := Result{QScale: scale}
	for {
		overflow := false
		res.Pattern = 0
		for i := 0; i < 6; i++ {
			var o Outcome
			if intra {
				o = q.QuantizeIntra(&coefs[i], res.QScale, &res.Levels[i])
			} else {
				o = q.QuantizeNonIntra(&coefs[i], res.QScale, &res.Levels[i])
			}
			if o == Overflow {
				overflow = true
			}
			if o != Zero {
				res.Pattern |= syntax.PatternBit(i)
			}
		}
		if !overflow {
			return res, nil
		}
		if res.QScale == syntax.MaxQScale {
			res.Saturated = true
			for i := range res.Levels {
				clipLevels(&res.Levels[i])
			}
			return res, nil
		}
		res.QScale++
		res.Overflowed = true
	}
}

func clipLevels(levels *[64]int16) {
	for i, l := range levels {
		if l > syntax.MaxLevel {
			levels[i] = syntax.MaxLevel
		} else if l < -syntax.MaxLevel {
			levels[i] = -syntax.MaxLevel
		}
	}
}

// Dequantize reconstructs all blocks of r whose pattern bit is set.
func (q *Quantizer) Dequantize(r *Result, intra bool, out *[6]block.Block) {
	for i := 0; i < 6; i++ {
		if r.Pattern&syntax.PatternBit(i) == 0 {
			out[i] = block.Block{}
			continue
		}
		if intra {
			q.DequantizeIntra(&r.Levels[i], r.QScale, &out[i])
		} else {
			q.DequantizeNonIntra(&r.Levels[i], r.QScale, &out[i])
		}
	}
}
