// Package mode holds the macroblock mode decisions taken between motion
// search and coding: intra fallback, zero-motion preference and skipping.
package mode

import "github.com/user/mpeg1enc/pkg/mpeg/block"

// Thresholds are the tuned constants behind the heuristics. They are not
// derived from the bitstream syntax and may be changed freely.
type Thresholds struct {
	// IntraVarianceFloor is the prediction error variance below which a
	// predicted macroblock is never switched to intra.
	IntraVarianceFloor int `yaml:"intra_variance_floor"`
	// SkipLumaError and SkipChromaError bound the luminance and
	// chrominance SAD of a macroblock that inherits its predecessor's
	// vectors without coefficients.
	SkipLumaError   int `yaml:"skip_luma_error"`
	SkipChromaError int `yaml:"skip_chroma_error"`
	// ZeroMotionSufficient is the zero-vector cost that is always accepted.
	ZeroMotionSufficient int `yaml:"zero_motion_sufficient"`
	// ZeroMotionSlack is how much worse than the searched vector the zero
	// vector may be and still be chosen, before the relative margin takes
	// over at larger costs.
	ZeroMotionSlack int `yaml:"zero_motion_slack"`
}

// DefaultThresholds returns the standard tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IntraVarianceFloor:   64,
		SkipLumaError:        512,
		SkipChromaError:      256,
		ZeroMotionSufficient: 256,
		ZeroMotionSlack:      256,
	}
}

// PreferIntra reports whether a predicted macroblock should be intra coded:
// the prediction error variance must exceed both the floor and the
// variance of the source samples.
func (t Thresholds) PreferIntra(errVariance, srcVariance int) bool {
	return errVariance > t.IntraVarianceFloor && errVariance > srcVariance
}

// PreferZero reports whether the zero vector should replace the searched
// vector. The allowed margin is ZeroMotionSlack or a tenth of the zero
// cost, whichever is larger.
func (t Thresholds) PreferZero(zeroCost, bestCost int) bool {
	if zeroCost <= t.ZeroMotionSufficient {
		return true
	}
	margin := t.ZeroMotionSlack
	if zeroCost/10 > margin {
		margin = zeroCost / 10
	}
	return zeroCost-bestCost <= margin
}

// InheritSkip reports whether pred is close enough to cur for the
// macroblock to be skipped with inherited vectors.
func (t Thresholds) InheritSkip(cur, pred *block.Macroblock) bool {
	return block.LumaSAD(cur, pred) < t.SkipLumaError && block.ChromaSAD(cur, pred) < t.SkipChromaError
}

// Slice describes the macroblock span of one slice.
type Slice struct {
	First int
	Last  int
}

// SkipPosition reports whether the macroblock at addr may be skipped given
// its slice, the last address of the picture and whether the previous
// macroblock was intra.
func SkipPosition(addr int, s Slice, frameLast int, prevIntra bool) bool {
	return addr != s.First && addr != s.Last && addr != frameLast && !prevIntra
}

// Slices splits mbHeight rows of mbWidth macroblocks into count slices of
// whole rows. count is clamped to [1, mbHeight].
func Slices(mbWidth, mbHeight, count int) []Slice {
	if count < 1 {
		count = 1
	}
	if count > mbHeight {
		count = mbHeight
	}
	out := make([]Slice, 0, count)
	row := 0
	for i := 0; i < count; i++ {
		rows := (mbHeight - row) / (count - i)
		out = append(out, Slice{First: row * mbWidth, Last: (row+rows)*mbWidth - 1})
		row += rows
	}
	return out
}
