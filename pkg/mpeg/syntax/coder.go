package syntax

import "fmt"

// Macroblock is one coded macroblock handed to the Coder. Vectors are in
// coded units for the current picture.
type Macroblock struct {
	Address        int
	Intra          bool
	Forward        bool
	Backward       bool
	ForwardVector  Vector
	BackwardVector Vector
	QScale         int
	// Pattern is the coded_block_pattern; bit 5 is the first luma block.
	Pattern int
	// Blocks holds quantized levels in zig-zag order.
	Blocks *[6][64]int16
}

// PatternBit returns the coded_block_pattern bit for block i.
func PatternBit(i int) int {
	return 1 << uint(5-i)
}

// Coder emits pictures, slices and macroblocks while mirroring the
// prediction state a decoder keeps: DC predictors, motion vector
// predictors and the current quantizer scale.
type Coder struct {
	w       BitSink
	mbWidth int

	picture  PictureType
	fwdFCode int
	bwdFCode int
	fwdFull  bool
	bwdFull  bool

	sliceOpen  bool
	sliceStart int
	lastAddr   int
	lastIntra  bool
	lastFlags  int
	q          int
	dcPred     [3]int
	fwdPred    Vector
	bwdPred    Vector
}

// NewCoder creates a Coder writing pictures mbWidth macroblocks wide.
func NewCoder(w BitSink, mbWidth int) *Coder {
	return &Coder{w: w, mbWidth: mbWidth}
}

// Sink returns the underlying bit sink.
func (c *Coder) Sink() BitSink {
	return c.w
}

// BeginPicture writes the picture header and resets per-picture state.
func (c *Coder) BeginPicture(h PictureHeader) error {
	if err := h.Write(c.w); err != nil {
		return err
	}
	c.picture = h.Type
	c.fwdFCode = h.ForwardFCode
	c.bwdFCode = h.BackwardFCode
	c.fwdFull = h.FullPelForward
	c.bwdFull = h.FullPelBackward
	c.sliceOpen = false
	return nil
}

// BeginSlice writes a slice header starting at macroblock row row with
// quantizer scale q and resets all differential predictors.
func (c *Coder) BeginSlice(row, q int) error {
	if row < 0 || row >= MaxSliceRows {
		return fmt.Errorf("%w: slice row %d", ErrInvalidHeader, row)
	}
	if q < MinQScale || q > MaxQScale {
		return fmt.Errorf("%w: quantizer scale %d", ErrInvalidHeader, q)
	}
	writeStartCode(c.w, byte(StartSliceFirst+row))
	c.w.WriteBits(uint32(q), 5)
	c.w.WriteBits(0, 1) // extra_bit_slice

	c.sliceOpen = true
	c.sliceStart = row * c.mbWidth
	c.lastAddr = c.sliceStart - 1
	c.lastIntra = false
	c.lastFlags = 0
	c.q = q
	c.resetDC()
	c.fwdPred = Vector{}
	c.bwdPred = Vector{}
	return nil
}

// EndSlice closes the current slice by byte-aligning the stream.
func (c *Coder) EndSlice() {
	c.w.Align()
	c.sliceOpen = false
}

// QScale returns the quantizer scale a decoder would currently use.
func (c *Coder) QScale() int {
	return c.q
}

// LastAddress returns the address of the last coded macroblock.
func (c *Coder) LastAddress() int {
	return c.lastAddr
}

// Predictors returns the current forward and backward vector predictors.
func (c *Coder) Predictors() (fwd, bwd Vector) {
	return c.fwdPred, c.bwdPred
}

// LastFlags returns the macroblock_type flags of the previous coded
// macroblock in the slice, 0 at slice start.
func (c *Coder) LastFlags() int {
	return c.lastFlags
}

// LastIntra reports whether the previous coded macroblock was intra.
func (c *Coder) LastIntra() bool {
	return c.lastIntra
}

// SkipCompatible reports whether mb, if it carries no coefficients, would
// be reproduced exactly by a decoder when omitted from the stream. Position
// rules (first/last macroblock of a slice) are the caller's concern.
func (c *Coder) SkipCompatible(mb *Macroblock) bool {
	if !c.sliceOpen || mb.Intra || mb.Pattern != 0 || c.lastIntra {
		return false
	}
	switch c.picture {
	case PictureP:
		return !mb.Forward || mb.ForwardVector.IsZero()
	case PictureB:
		if c.lastFlags&(MBForward|MBBackward) == 0 {
			return false
		}
		if mb.Forward != (c.lastFlags&MBForward != 0) || mb.Backward != (c.lastFlags&MBBackward != 0) {
			return false
		}
		if mb.Forward && mb.ForwardVector != c.fwdPred {
			return false
		}
		if mb.Backward && mb.BackwardVector != c.bwdPred {
			return false
		}
		return true
	}
	return false
}

func (c *Coder) resetDC() {
	c.dcPred = [3]int{DCInit, DCInit, DCInit}
}

// Encode writes one macroblock. Macroblocks between the previous coded one
// and mb.Address are implicitly skipped.
func (c *Coder) Encode(mb *Macroblock) error {
	if !c.sliceOpen {
		return fmt.Errorf("%w: macroblock %d outside a slice", ErrInvalidMacroblock, mb.Address)
	}
	inc := mb.Address - c.lastAddr
	if inc < 1 {
		return fmt.Errorf("%w: address %d after %d", ErrInvalidMacroblock, mb.Address, c.lastAddr)
	}
	if inc > 1 {
		if c.lastAddr < c.sliceStart || c.picture == PictureI || (c.picture == PictureB && c.lastIntra) {
			return fmt.Errorf("%w: %d macroblocks before %d", ErrIllegalSkip, inc-1, mb.Address)
		}
		c.resetDC()
		if c.picture == PictureP {
			c.fwdPred = Vector{}
		}
	}

	m := *mb
	if c.picture == PictureI && !m.Intra {
		return fmt.Errorf("%w: non-intra macroblock in I picture", ErrInvalidMacroblock)
	}
	if c.picture == PictureP && !m.Intra {
		if m.Pattern == 0 && !m.Forward {
			m.Forward = true
			m.ForwardVector = Vector{}
		} else if m.Pattern != 0 && m.Forward && m.ForwardVector.IsZero() {
			m.Forward = false
		}
		m.Backward = false
	}
	if c.picture == PictureB && !m.Intra && !m.Forward && !m.Backward {
		return fmt.Errorf("%w: B macroblock without prediction", ErrInvalidMacroblock)
	}

	var flags int
	if m.Intra {
		flags = MBIntra
	} else {
		if m.Forward {
			flags |= MBForward
		}
		if m.Backward {
			flags |= MBBackward
		}
		if m.Pattern != 0 {
			flags |= MBPattern
		}
	}
	if (m.Intra || m.Pattern != 0) && m.QScale != c.q {
		if m.QScale < MinQScale || m.QScale > MaxQScale {
			return fmt.Errorf("%w: quantizer scale %d", ErrInvalidMacroblock, m.QScale)
		}
		flags |= MBQuant
	}
	code, ok := TypeCode(c.picture, flags)
	if !ok {
		return fmt.Errorf("%w: flags %#x in %s picture", ErrInvalidMacroblock, flags, c.picture)
	}

	WriteAddressIncrement(c.w, inc)
	code.Write(c.w)
	if flags&MBQuant != 0 {
		c.w.WriteBits(uint32(m.QScale), 5)
		c.q = m.QScale
	}

	if m.Intra {
		c.fwdPred = Vector{}
		c.bwdPred = Vector{}
	}
	if m.Forward {
		if err := c.writeVector(m.ForwardVector, &c.fwdPred, c.fwdFCode, c.fwdFull); err != nil {
			return err
		}
	} else if c.picture == PictureP {
		c.fwdPred = Vector{}
	}
	if m.Backward {
		if err := c.writeVector(m.BackwardVector, &c.bwdPred, c.bwdFCode, c.bwdFull); err != nil {
			return err
		}
	}

	if m.Intra {
		if !c.lastIntra || inc > 1 {
			c.resetDC()
		}
		if m.Blocks == nil {
			return fmt.Errorf("%w: intra macroblock without blocks", ErrInvalidMacroblock)
		}
		for i := 0; i < 6; i++ {
			comp := 0
			if i >= 4 {
				comp = i - 3
			}
			if err := WriteIntraBlock(c.w, &m.Blocks[i], i < 4, &c.dcPred[comp]); err != nil {
				return err
			}
		}
	} else {
		if m.Pattern != 0 {
			if m.Blocks == nil {
				return fmt.Errorf("%w: coded pattern without blocks", ErrInvalidMacroblock)
			}
			PatternCode(m.Pattern).Write(c.w)
			for i := 0; i < 6; i++ {
				if m.Pattern&PatternBit(i) == 0 {
					continue
				}
				if err := WriteInterBlock(c.w, &m.Blocks[i]); err != nil {
					return err
				}
			}
		}
		c.resetDC()
	}

	c.lastAddr = m.Address
	c.lastIntra = m.Intra
	c.lastFlags = flags
	return nil
}

// writeVector codes v against pred. Both are in half samples; in a
// full-pel direction they are halved before coding.
func (c *Coder) writeVector(v Vector, pred *Vector, fCode int, fullPel bool) error {
	cv, cp := v, *pred
	if fullPel {
		if v.V&1 != 0 || v.H&1 != 0 {
			return fmt.Errorf("%w: half-sample vector %+v in full-pel picture", ErrVectorOutOfRange, v)
		}
		cv = Vector{V: v.V / 2, H: v.H / 2}
		cp = Vector{V: pred.V / 2, H: pred.H / 2}
	}
	h, err := EncodeMotionComponent(cv.H, cp.H, fCode)
	if err != nil {
		return err
	}
	vv, err := EncodeMotionComponent(cv.V, cp.V, fCode)
	if err != nil {
		return err
	}
	WriteMotionComponent(c.w, h, fCode)
	WriteMotionComponent(c.w, vv, fCode)
	*pred = v
	return nil
}
