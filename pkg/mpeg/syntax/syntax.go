// Package syntax holds the MPEG-1 video syntax tables and the entropy coder
// that turns sequence, GOP, picture, slice and macroblock decisions into a
// bit-exact elementary stream.
package syntax

import "errors"

// Start code values (the byte following the 0x000001 prefix).
const (
	StartPicture     = 0x00
	StartSliceFirst  = 0x01
	StartSliceLast   = 0xAF
	StartUserData    = 0xB2
	StartSequence    = 0xB3
	StartSequenceErr = 0xB4
	StartExtension   = 0xB5
	StartSequenceEnd = 0xB7
	StartGOP         = 0xB8
)

// PictureType is the 3-bit picture_coding_type field.
type PictureType uint8

const (
	PictureI PictureType = 1
	PictureP PictureType = 2
	PictureB PictureType = 3
	PictureD PictureType = 4
)

// String returns the single-letter name of the picture type.
func (t PictureType) String() string {
	switch t {
	case PictureI:
		return "I"
	case PictureP:
		return "P"
	case PictureB:
		return "B"
	case PictureD:
		return "D"
	default:
		return "?"
	}
}

// Macroblock type flags as decoded from the macroblock_type VLC.
const (
	MBIntra    = 0x01
	MBPattern  = 0x02
	MBBackward = 0x04
	MBForward  = 0x08
	MBQuant    = 0x10
)

// Address increment pseudo-values in the increment table.
const (
	incrementStuffing = 34
	incrementEscape   = 35
	maxIncrement      = 33
)

// Syntax limits.
const (
	MaxQScale    = 31
	MinQScale    = 1
	MaxFCode     = 7
	MaxDimension = 4095
	MaxLevel     = 255
	DCInit       = 128
	// MaxSliceRows is the number of slice start codes available.
	MaxSliceRows = StartSliceLast - StartSliceFirst + 1
)

var (
	// ErrVectorOutOfRange reports a motion vector that the configured f_code
	// cannot represent. It always indicates an encoder bug.
	ErrVectorOutOfRange = errors.New("syntax: motion vector out of range")
	// ErrInvalidMacroblock reports a flag combination with no macroblock_type code.
	ErrInvalidMacroblock = errors.New("syntax: invalid macroblock type for picture")
	// ErrIllegalSkip reports a macroblock address gap the decoder cannot reproduce.
	ErrIllegalSkip = errors.New("syntax: illegal skipped macroblock")
	// ErrInvalidHeader reports a header field outside its representable range.
	ErrInvalidHeader = errors.New("syntax: header field out of range")
)

// ZigZag maps scan position to natural (row-major) coefficient index.
var ZigZag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// DefaultIntraMatrix is the default intra quantizer matrix in natural order.
var DefaultIntraMatrix = [64]uint8{
	8, 16, 19, 22, 26, 27, 29, 34,
	16, 16, 22, 24, 27, 29, 34, 37,
	19, 22, 26, 27, 29, 34, 34, 38,
	22, 22, 26, 27, 29, 34, 37, 40,
	22, 26, 27, 29, 32, 35, 40, 48,
	26, 27, 29, 32, 35, 40, 48, 58,
	26, 27, 29, 34, 38, 46, 56, 69,
	27, 29, 35, 38, 46, 56, 69, 83,
}

// DefaultNonIntraMatrix is the flat default non-intra matrix.
var DefaultNonIntraMatrix = [64]uint8{
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
}

// PictureRates lists frame rates by picture_rate code. Index 0 is forbidden.
var PictureRates = [9]float64{0, 24000.0 / 1001, 24, 25, 30000.0 / 1001, 30, 50, 60000.0 / 1001, 60}

// AspectRatios lists pel aspect ratios by pel_aspect_ratio code.
var AspectRatios = [15]float64{
	0, 1.0000, 0.6735, 0.7031, 0.7615, 0.8055, 0.8437, 0.8935,
	0.9375, 0.9815, 1.0255, 1.0695, 1.1250, 1.1575, 1.2015,
}

// RateCode returns the picture_rate code closest to fps.
func RateCode(fps float64) int {
	best, bestDiff := 5, -1.0
	for code := 1; code < len(PictureRates); code++ {
		d := PictureRates[code] - fps
		if d < 0 {
			d = -d
		}
		if bestDiff < 0 || d < bestDiff {
			best, bestDiff = code, d
		}
	}
	return best
}

// FCodeForRange returns the smallest f_code whose vector range covers
// maxAbs, expressed in the vector units that will be coded. It returns 0
// when no legal f_code is large enough.
func FCodeForRange(maxAbs int) int {
	for f := 1; f <= MaxFCode; f++ {
		if maxAbs <= 16*(1<<uint(f-1))-1 {
			return f
		}
	}
	return 0
}

// VectorRange returns the inclusive range of vector values representable
// with fCode.
func VectorRange(fCode int) (lo, hi int) {
	scale := 1 << uint(fCode-1)
	return -16 * scale, 16*scale - 1
}

// BitSink is the output the coder writes to.
type BitSink interface {
	WriteBits(v uint32, n int)
	Align()
	BitCount() int64
}
