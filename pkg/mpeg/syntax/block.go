package syntax

import "fmt"

// WriteIntraBlock emits an intra block. levels are quantized values in
// zig-zag order; levels[0] is the quantized DC coded against *pred, which
// is updated to the new DC.
func WriteIntraBlock(w BitSink, levels *[64]int16, luma bool, pred *int) error {
	dc := int(levels[0])
	if dc < 0 || dc > MaxLevel {
		return fmt.Errorf("%w: intra dc %d", ErrInvalidMacroblock, dc)
	}
	diff := dc - *pred
	*pred = dc
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	size := 0
	for abs>>uint(size) != 0 {
		size++
	}
	DCSizeCode(size, luma).Write(w)
	if size > 0 {
		if diff > 0 {
			w.WriteBits(uint32(diff), size)
		} else {
			w.WriteBits(uint32(diff+(1<<uint(size))-1), size)
		}
	}
	return writeCoefficients(w, levels, 1, false)
}

// WriteInterBlock emits a non-intra block. The block must contain at least
// one non-zero level.
func WriteInterBlock(w BitSink, levels *[64]int16) error {
	return writeCoefficients(w, levels, 0, true)
}

func writeCoefficients(w BitSink, levels *[64]int16, start int, first bool) error {
	run := 0
	coded := false
	for i := start; i < 64; i++ {
		lv := int(levels[i])
		if lv == 0 {
			run++
			continue
		}
		if err := writeRunLevel(w, run, lv, first); err != nil {
			return err
		}
		first = false
		coded = true
		run = 0
	}
	if start == 0 && !coded {
		return fmt.Errorf("%w: empty non-intra block", ErrInvalidMacroblock)
	}
	coeffEndOfBlock.Write(w)
	return nil
}

func writeRunLevel(w BitSink, run, level int, first bool) error {
	abs, sign := level, uint32(0)
	if level < 0 {
		abs, sign = -level, 1
	}
	if abs > MaxLevel {
		return fmt.Errorf("%w: level %d", ErrInvalidMacroblock, level)
	}
	if code, ok := CoeffCode(run, abs); ok {
		if run == 0 && abs == 1 && !first {
			w.WriteBits(0x3, 2)
		} else {
			code.Write(w)
		}
		w.WriteBits(sign, 1)
		return nil
	}

	coeffEscape.Write(w)
	w.WriteBits(uint32(run), 6)
	switch {
	case abs < 128:
		w.WriteBits(uint32(level)&0xff, 8)
	case level > 0:
		w.WriteBits(0x00, 8)
		w.WriteBits(uint32(level), 8)
	default:
		w.WriteBits(0x80, 8)
		w.WriteBits(uint32(level+256), 8)
	}
	return nil
}
