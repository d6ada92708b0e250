package block

import "github.com/user/mpeg1enc/pkg/mpeg/frame"

// Macroblock holds the samples of one 16x16 luminance area and the
// co-located 8x8 chrominance blocks.
type Macroblock struct {
	Y  [256]uint8
	Cb [64]uint8
	Cr [64]uint8
}

// Load copies macroblock (mbx, mby) out of p.
func Load(p *frame.Planes, mbx, mby int, dst *Macroblock) {
	for y := 0; y < 16; y++ {
		copy(dst.Y[y*16:y*16+16], p.Y.Row(mby*16 + y)[mbx*16:])
	}
	for y := 0; y < 8; y++ {
		copy(dst.Cb[y*8:y*8+8], p.Cb.Row(mby*8 + y)[mbx*8:])
		copy(dst.Cr[y*8:y*8+8], p.Cr.Row(mby*8 + y)[mbx*8:])
	}
}

// Store writes src into macroblock (mbx, mby) of p.
func Store(p *frame.Planes, mbx, mby int, src *Macroblock) {
	for y := 0; y < 16; y++ {
		copy(p.Y.Row(mby*16 + y)[mbx*16:mbx*16+16], src.Y[y*16:y*16+16])
	}
	for y := 0; y < 8; y++ {
		copy(p.Cb.Row(mby*8 + y)[mbx*8:mbx*8+8], src.Cb[y*8:y*8+8])
		copy(p.Cr.Row(mby*8 + y)[mbx*8:mbx*8+8], src.Cr[y*8:y*8+8])
	}
}

// sampleAt returns sample (x, y) of block i: blocks 0-3 are the luminance
// quadrants in raster order, 4 is Cb and 5 is Cr.
func (m *Macroblock) sampleAt(i, x, y int) int {
	switch i {
	case 4:
		return int(m.Cb[y*8+x])
	case 5:
		return int(m.Cr[y*8+x])
	}
	return int(m.Y[(y+(i>>1)*8)*16+x+(i&1)*8])
}

func (m *Macroblock) setSample(i, x, y int, v uint8) {
	switch i {
	case 4:
		m.Cb[y*8+x] = v
	case 5:
		m.Cr[y*8+x] = v
	default:
		m.Y[(y+(i>>1)*8)*16+x+(i&1)*8] = v
	}
}

// Blocks splits the macroblock into six sample blocks.
func (m *Macroblock) Blocks(out *[6]Block) {
	for i := 0; i < 6; i++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				out[i][y*8+x] = int16(m.sampleAt(i, x, y))
			}
		}
	}
}

// FromBlocks writes six sample blocks back, clamping to [0,255].
func (m *Macroblock) FromBlocks(in *[6]Block) {
	for i := 0; i < 6; i++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				m.setSample(i, x, y, clampPixel(int(in[i][y*8+x])))
			}
		}
	}
}

// Residual computes cur - pred per block.
func Residual(cur, pred *Macroblock, out *[6]Block) {
	for i := 0; i < 6; i++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				out[i][y*8+x] = int16(cur.sampleAt(i, x, y) - pred.sampleAt(i, x, y))
			}
		}
	}
}

// Reconstruct adds res to pred into dst. Blocks whose bit is clear in the
// coded pattern keep the prediction.
func Reconstruct(pred *Macroblock, res *[6]Block, coded int, dst *Macroblock) {
	*dst = *pred
	for i := 0; i < 6; i++ {
		if coded&(1<<uint(5-i)) == 0 {
			continue
		}
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				dst.setSample(i, x, y, clampPixel(pred.sampleAt(i, x, y)+int(res[i][y*8+x])))
			}
		}
	}
}

// LumaVariance returns the variance of the 16x16 luminance samples.
func (m *Macroblock) LumaVariance() int {
	sum, sq := 0, 0
	for _, v := range m.Y {
		sum += int(v)
		sq += int(v) * int(v)
	}
	return (sq - sum*sum/256) / 256
}

// MinBlockVariance returns the smallest variance among the four 8x8
// luminance blocks.
func (m *Macroblock) MinBlockVariance() int {
	best := -1
	for i := 0; i < 4; i++ {
		sum, sq := 0, 0
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				v := m.sampleAt(i, x, y)
				sum += v
				sq += v * v
			}
		}
		v := (sq - sum*sum/64) / 64
		if best < 0 || v < best {
			best = v
		}
	}
	return best
}

// ErrorVariance returns the variance of the luminance prediction error.
func ErrorVariance(cur, pred *Macroblock) int {
	sum, sq := 0, 0
	for i := range cur.Y {
		d := int(cur.Y[i]) - int(pred.Y[i])
		sum += d
		sq += d * d
	}
	return (sq - sum*sum/256) / 256
}

// LumaSAD returns the sum of absolute luminance differences.
func LumaSAD(cur, pred *Macroblock) int {
	s := 0
	for i := range cur.Y {
		s += abs(int(cur.Y[i]) - int(pred.Y[i]))
	}
	return s
}

// ChromaSAD returns the sum of absolute chrominance differences.
func ChromaSAD(cur, pred *Macroblock) int {
	s := 0
	for i := range cur.Cb {
		s += abs(int(cur.Cb[i])-int(pred.Cb[i])) + abs(int(cur.Cr[i])-int(pred.Cr[i]))
	}
	return s
}

func clampPixel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
