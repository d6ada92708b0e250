package syntax

import (
	"fmt"

	"github.com/user/mpeg1enc/pkg/mpeg/bitio"
)

// Code is a variable-length code of Len bits, right-aligned in Bits.
type Code struct {
	Bits uint32
	Len  int
}

// Write emits the code.
func (c Code) Write(w BitSink) {
	w.WriteBits(c.Bits, c.Len)
}

// Escape code prefixes.
var (
	coeffEscape     = Code{Bits: 0x01, Len: 6}
	coeffEndOfBlock = Code{Bits: 0x2, Len: 2}
)

const (
	maxCoeffRun   = 31
	maxCoeffLevel = 40
)

var (
	incrementCodes [incrementEscape + 1]Code
	typeCodes      [4][32]Code
	patternCodes   [64]Code
	motionCodes    [33]Code
	dcLumaCodes    [9]Code
	dcChromaCodes  [9]Code
	coeffCodes     [maxCoeffRun + 1][maxCoeffLevel + 1]Code
)

func init() {
	walkTree(addressIncrementTree, func(v int, c Code) { incrementCodes[v] = c })
	walkTree(typeTreeIntra, func(v int, c Code) { typeCodes[PictureI][v] = c })
	walkTree(typeTreePredictive, func(v int, c Code) { typeCodes[PictureP][v] = c })
	walkTree(typeTreeBidirectional, func(v int, c Code) { typeCodes[PictureB][v] = c })
	walkTree(codedBlockPatternTree, func(v int, c Code) { patternCodes[v] = c })
	walkTree(motionCodeTree, func(v int, c Code) { motionCodes[v+16] = c })
	walkTree(dcSizeLumaTree, func(v int, c Code) { dcLumaCodes[v] = c })
	walkTree(dcSizeChromaTree, func(v int, c Code) { dcChromaCodes[v] = c })
	walkCoeffTree(0, 0, 0)
}

func walkTree(tree []vlcNode, leaf func(value int, code Code)) {
	var walk func(offset int, bits uint32, n int)
	walk = func(offset int, bits uint32, n int) {
		for b := 0; b < 2; b++ {
			e := tree[offset+b]
			code := Code{Bits: bits<<1 | uint32(b), Len: n + 1}
			switch {
			case e.next > 0:
				walk(int(e.next), code.Bits, code.Len)
			case e.next == 0:
				leaf(int(e.value), code)
			}
		}
	}
	walk(0, 0, 0)
}

func walkCoeffTree(offset int, bits uint32, n int) {
	for b := 0; b < 2; b++ {
		e := coeffTree[offset+b]
		code := Code{Bits: bits<<1 | uint32(b), Len: n + 1}
		switch {
		case e.next > 0:
			walkCoeffTree(int(e.next), code.Bits, code.Len)
		case e.next == 0 && e.value != 0xffff:
			coeffCodes[e.value>>8][e.value&0xff] = code
		}
	}
}

func readTree(r *bitio.Reader, tree []vlcNode) (int, bool) {
	offset := 0
	for {
		e := tree[offset+int(r.ReadBit())]
		if r.Err() != nil || e.next < 0 {
			return 0, false
		}
		if e.next == 0 {
			return int(e.value), true
		}
		offset = int(e.next)
	}
}

// IncrementCode returns the code for a macroblock_address_increment in [1,33].
func IncrementCode(inc int) Code {
	return incrementCodes[inc]
}

// TypeCode returns the macroblock_type code for flags in picture type pt.
// ok is false when the combination cannot be coded.
func TypeCode(pt PictureType, flags int) (Code, bool) {
	if pt < PictureI || pt > PictureB || flags < 0 || flags >= 32 {
		return Code{}, false
	}
	c := typeCodes[pt][flags]
	return c, c.Len > 0
}

// PatternCode returns the coded_block_pattern code for cbp in [1,63].
func PatternCode(cbp int) Code {
	return patternCodes[cbp]
}

// MotionCodeVLC returns the motion_code VLC for code in [-16,16].
func MotionCodeVLC(code int) Code {
	return motionCodes[code+16]
}

// DCSizeCode returns the dct_dc_size code for a luminance or chrominance block.
func DCSizeCode(size int, luma bool) Code {
	if luma {
		return dcLumaCodes[size]
	}
	return dcChromaCodes[size]
}

// CoeffCode returns the table code for (run, |level|) without its sign bit.
// ok is false when the pair must be escape-coded.
func CoeffCode(run, level int) (Code, bool) {
	if run < 0 || run > maxCoeffRun || level < 1 || level > maxCoeffLevel {
		return Code{}, false
	}
	c := coeffCodes[run][level]
	return c, c.Len > 0
}

// WriteAddressIncrement emits escapes followed by the increment code.
func WriteAddressIncrement(w BitSink, inc int) {
	for inc > maxIncrement {
		incrementCodes[incrementEscape].Write(w)
		inc -= maxIncrement
	}
	incrementCodes[inc].Write(w)
}

// ReadAddressIncrement reads a complete macroblock_address_increment,
// consuming stuffing and escapes.
func ReadAddressIncrement(r *bitio.Reader) (int, error) {
	total := 0
	for {
		v, ok := readTree(r, addressIncrementTree)
		if !ok {
			return 0, fmt.Errorf("invalid macroblock address increment at bit %d", r.BitPos())
		}
		switch v {
		case incrementStuffing:
			continue
		case incrementEscape:
			total += maxIncrement
			continue
		}
		return total + v, nil
	}
}

// ReadMacroblockType reads macroblock_type flags for picture type pt.
func ReadMacroblockType(r *bitio.Reader, pt PictureType) (int, error) {
	var tree []vlcNode
	switch pt {
	case PictureI:
		tree = typeTreeIntra
	case PictureP:
		tree = typeTreePredictive
	case PictureB:
		tree = typeTreeBidirectional
	default:
		return 0, fmt.Errorf("unsupported picture type %d", pt)
	}
	v, ok := readTree(r, tree)
	if !ok {
		return 0, fmt.Errorf("invalid macroblock type at bit %d", r.BitPos())
	}
	return v, nil
}

// ReadCodedBlockPattern reads coded_block_pattern.
func ReadCodedBlockPattern(r *bitio.Reader) (int, error) {
	v, ok := readTree(r, codedBlockPatternTree)
	if !ok {
		return 0, fmt.Errorf("invalid coded block pattern at bit %d", r.BitPos())
	}
	return v, nil
}

// ReadMotionCode reads a motion_code in [-16,16].
func ReadMotionCode(r *bitio.Reader) (int, error) {
	v, ok := readTree(r, motionCodeTree)
	if !ok {
		return 0, fmt.Errorf("invalid motion code at bit %d", r.BitPos())
	}
	return v, nil
}

// ReadDCSize reads dct_dc_size_luminance or dct_dc_size_chrominance.
func ReadDCSize(r *bitio.Reader, luma bool) (int, error) {
	tree := dcSizeChromaTree
	if luma {
		tree = dcSizeLumaTree
	}
	v, ok := readTree(r, tree)
	if !ok {
		return 0, fmt.Errorf("invalid dc size at bit %d", r.BitPos())
	}
	return v, nil
}

// ReadCoefficient reads one run/level pair. first selects dct_coeff_first
// semantics, where a leading "1" means run 0 level 1 rather than end of block.
func ReadCoefficient(r *bitio.Reader, first bool) (run, level int, end bool, err error) {
	offset := 0
	var v uint16
	for {
		e := coeffTree[offset+int(r.ReadBit())]
		if r.Err() != nil {
			return 0, 0, false, r.Err()
		}
		if e.next < 0 {
			return 0, 0, false, fmt.Errorf("invalid dct coefficient at bit %d", r.BitPos())
		}
		if e.next == 0 {
			v = e.value
			break
		}
		offset = int(e.next)
	}

	if v == 0x0001 && !first {
		if r.ReadBit() == 0 {
			return 0, 0, true, r.Err()
		}
	}

	if v == 0xffff {
		run = int(r.ReadBits(6))
		level = int(r.ReadBits(8))
		switch {
		case level == 0:
			level = int(r.ReadBits(8))
		case level == 128:
			level = int(r.ReadBits(8)) - 256
		case level > 128:
			level -= 256
		}
		return run, level, false, r.Err()
	}

	run = int(v >> 8)
	level = int(v & 0xff)
	if r.ReadBit() == 1 {
		level = -level
	}
	return run, level, false, r.Err()
}
