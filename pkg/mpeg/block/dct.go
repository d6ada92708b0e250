// Package block is the block transform engine: the 8x8 DCT pair, macroblock
// sample extraction, motion-compensated prediction and residuals.
package block

import "math"

// Block is an 8x8 block of samples or coefficients in row-major order.
type Block [64]int16

// Coefficient range after the forward transform and before the inverse.
const (
	MinCoeff = -2048
	MaxCoeff = 2047
)

var dctBasis [8][8]float64

func init() {
	for u := 0; u < 8; u++ {
		c := 0.5
		if u == 0 {
			c = 0.5 / math.Sqrt2
		}
		for x := 0; x < 8; x++ {
			dctBasis[u][x] = c * math.Cos(float64((2*x+1)*u)*math.Pi/16)
		}
	}
}

// Forward computes the 2-D DCT of in. An intra block of samples in [0,255]
// yields a DC coefficient of eight times the block mean.
func Forward(in, out *Block) {
	var tmp [64]float64
	for y := 0; y < 8; y++ {
		row := in[y*8 : y*8+8]
		for u := 0; u < 8; u++ {
			s := 0.0
			for x := 0; x < 8; x++ {
				s += dctBasis[u][x] * float64(row[x])
			}
			tmp[y*8+u] = s
		}
	}
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			s := 0.0
			for y := 0; y < 8; y++ {
				s += dctBasis[v][y] * tmp[y*8+u]
			}
			out[v*8+u] = clamp16(math.Round(s), MinCoeff, MaxCoeff)
		}
	}
}

// Inverse computes the 2-D inverse DCT of in, clamping to [-256,255].
func Inverse(in, out *Block) {
	var tmp [64]float64
	for v := 0; v < 8; v++ {
		row := in[v*8 : v*8+8]
		for x := 0; x < 8; x++ {
			s := 0.0
			for u := 0; u < 8; u++ {
				if row[u] != 0 {
					s += dctBasis[u][x] * float64(row[u])
				}
			}
			tmp[v*8+x] = s
		}
	}
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			s := 0.0
			for v := 0; v < 8; v++ {
				s += dctBasis[v][y] * tmp[v*8+x]
			}
			out[y*8+x] = clamp16(math.Round(s), -256, 255)
		}
	}
}

func clamp16(v float64, lo, hi int16) int16 {
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int16(v)
}
