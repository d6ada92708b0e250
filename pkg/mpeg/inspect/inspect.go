// Package inspect walks an MPEG-1 video elementary stream and reports every
// header and macroblock it contains. It reproduces the decoder-side
// prediction rules (address increments, skipped macroblocks, DC and motion
// vector predictors, quantizer changes) without reconstructing pixels.
package inspect

import (
	"errors"
	"fmt"

	"github.com/user/mpeg1enc/pkg/mpeg/bitio"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

var (
	// ErrNoSequenceHeader is returned when picture data precedes any sequence header.
	ErrNoSequenceHeader = errors.New("inspect: picture before sequence header")
	// ErrMalformed wraps any syntax violation found while walking the stream.
	ErrMalformed = errors.New("inspect: malformed stream")
)

// Options controls how much detail Parse retains.
type Options struct {
	// KeepMacroblocks retains per-macroblock records on every picture.
	KeepMacroblocks bool
	// KeepLevels additionally retains the decoded coefficient levels.
	KeepLevels bool
}

// Sequence describes a sequence header.
type Sequence struct {
	Width          int
	Height         int
	AspectCode     int
	RateCode       int
	BitRate        int
	VBVBufferSize  int
	Constrained    bool
	CustomIntra    bool
	CustomNonIntra bool
	IntraMatrix    [64]uint8
	NonIntraMatrix [64]uint8
}

// GOP describes a group of pictures header.
type GOP struct {
	TimeCode     syntax.TimeCode
	Closed       bool
	BrokenLink   bool
	FirstPicture int
}

// Picture describes one coded picture in coding order.
type Picture struct {
	CodingIndex       int
	TemporalReference int
	Type              syntax.PictureType
	VBVDelay          uint16
	FullPelForward    bool
	ForwardFCode      int
	FullPelBackward   bool
	BackwardFCode     int
	Bits              int64
	Slices            int
	SliceRows         []int

	Intra        int
	Inter        int
	Skipped      int
	CodedBlocks  int
	MinQ         int
	MaxQ         int
	QuantChanges int

	Macroblocks []Macroblock
}

// MacroblockCount returns the number of coded plus skipped macroblocks.
func (p *Picture) MacroblockCount() int {
	return p.Intra + p.Inter + p.Skipped
}

// Macroblock describes one macroblock as a decoder would see it.
type Macroblock struct {
	Address  int
	Skipped  bool
	Flags    int
	QScale   int
	// Forward and Backward are in half samples.
	Forward  syntax.Vector
	Backward syntax.Vector
	Pattern  int
	// DC holds the reconstructed intra DC levels after prediction.
	DC     [6]int
	Blocks int
	Levels *[6][64]int16
}

// Stream is the result of Parse.
type Stream struct {
	Sequence *Sequence
	GOPs     []GOP
	Pictures []Picture
	UserData [][]byte
	Ended    bool
}

// Counts returns the number of pictures of each type.
func (s *Stream) Counts() map[syntax.PictureType]int {
	counts := make(map[syntax.PictureType]int)
	for _, p := range s.Pictures {
		counts[p.Type]++
	}
	return counts
}

// DisplayOrder returns the coding indices of the pictures sorted by their
// presentation position, resolving temporal references per GOP.
func (s *Stream) DisplayOrder() []int {
	order := make([]int, 0, len(s.Pictures))
	for g := 0; g < len(s.GOPs); g++ {
		first := s.GOPs[g].FirstPicture
		end := len(s.Pictures)
		if g+1 < len(s.GOPs) {
			end = s.GOPs[g+1].FirstPicture
		}
		byRef := make(map[int]int)
		maxRef := -1
		for i := first; i < end; i++ {
			tr := s.Pictures[i].TemporalReference
			byRef[tr] = i
			if tr > maxRef {
				maxRef = tr
			}
		}
		for tr := 0; tr <= maxRef; tr++ {
			if i, ok := byRef[tr]; ok {
				order = append(order, i)
			}
		}
	}
	return order
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Parse walks data and returns everything it found. Parsing stops at the
// sequence end code.
func Parse(data []byte, opts Options) (*Stream, error) {
	p := &parser{r: bitio.NewReader(data), opts: opts, stream: &Stream{}}
	if err := p.run(); err != nil {
		return p.stream, err
	}
	return p.stream, nil
}

type parser struct {
	r      *bitio.Reader
	opts   Options
	stream *Stream

	mbWidth  int
	mbHeight int
	pic      *Picture
	picStart int64
}

func (p *parser) run() error {
	code, ok := p.r.NextStartCode()
	for ok {
		startBit := p.r.BitPos() - 32
		switch {
		case code == syntax.StartSequence:
			p.closePicture(startBit)
			if err := p.parseSequence(); err != nil {
				return err
			}
		case code == syntax.StartGOP:
			p.closePicture(startBit)
			p.parseGOP()
		case code == syntax.StartPicture:
			p.closePicture(startBit)
			if p.stream.Sequence == nil {
				return ErrNoSequenceHeader
			}
			if err := p.parsePicture(startBit); err != nil {
				return err
			}
		case code >= syntax.StartSliceFirst && code <= syntax.StartSliceLast:
			if p.pic == nil {
				return malformed("slice %d outside a picture", code)
			}
			if err := p.parseSlice(int(code) - syntax.StartSliceFirst); err != nil {
				return err
			}
		case code == syntax.StartUserData:
			p.closePicture(startBit)
			p.parseUserData()
		case code == syntax.StartSequenceEnd:
			p.closePicture(startBit)
			p.stream.Ended = true
			return nil
		}
		if err := p.r.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		code, ok = p.r.NextStartCode()
	}
	p.closePicture(p.r.BitPos())
	return nil
}

func (p *parser) closePicture(endBit int64) {
	if p.pic == nil {
		return
	}
	p.pic.Bits = endBit - p.picStart
	p.stream.Pictures = append(p.stream.Pictures, *p.pic)
	p.pic = nil
}

func (p *parser) parseSequence() error {
	r := p.r
	s := &Sequence{
		Width:      int(r.ReadBits(12)),
		Height:     int(r.ReadBits(12)),
		AspectCode: int(r.ReadBits(4)),
		RateCode:   int(r.ReadBits(4)),
		BitRate:    int(r.ReadBits(18)),
	}
	if r.ReadBit() != 1 {
		return malformed("missing sequence header marker bit")
	}
	s.VBVBufferSize = int(r.ReadBits(10))
	s.Constrained = r.ReadFlag()
	s.IntraMatrix = syntax.DefaultIntraMatrix
	s.NonIntraMatrix = syntax.DefaultNonIntraMatrix
	if r.ReadFlag() {
		s.CustomIntra = true
		for i := 0; i < 64; i++ {
			s.IntraMatrix[syntax.ZigZag[i]] = uint8(r.ReadBits(8))
		}
	}
	if r.ReadFlag() {
		s.CustomNonIntra = true
		for i := 0; i < 64; i++ {
			s.NonIntraMatrix[syntax.ZigZag[i]] = uint8(r.ReadBits(8))
		}
	}
	if s.Width == 0 || s.Height == 0 {
		return malformed("zero picture size")
	}
	p.stream.Sequence = s
	p.mbWidth = (s.Width + 15) / 16
	p.mbHeight = (s.Height + 15) / 16
	return nil
}

func (p *parser) parseGOP() {
	r := p.r
	g := GOP{FirstPicture: len(p.stream.Pictures)}
	g.TimeCode.DropFrame = r.ReadFlag()
	g.TimeCode.Hours = int(r.ReadBits(5))
	g.TimeCode.Minutes = int(r.ReadBits(6))
	r.ReadBit()
	g.TimeCode.Seconds = int(r.ReadBits(6))
	g.TimeCode.Pictures = int(r.ReadBits(6))
	g.Closed = r.ReadFlag()
	g.BrokenLink = r.ReadFlag()
	p.stream.GOPs = append(p.stream.GOPs, g)
}

func (p *parser) parseUserData() {
	r := p.r
	var data []byte
	for r.BitsLeft() >= 8 && !r.AtStartCode() {
		data = append(data, byte(r.ReadBits(8)))
	}
	p.stream.UserData = append(p.stream.UserData, data)
}

func (p *parser) parsePicture(startBit int64) error {
	r := p.r
	pic := &Picture{
		CodingIndex:       len(p.stream.Pictures),
		TemporalReference: int(r.ReadBits(10)),
		Type:              syntax.PictureType(r.ReadBits(3)),
		VBVDelay:          uint16(r.ReadBits(16)),
		MinQ:              syntax.MaxQScale + 1,
	}
	if pic.Type < syntax.PictureI || pic.Type > syntax.PictureB {
		return malformed("unsupported picture type %d", pic.Type)
	}
	if pic.Type == syntax.PictureP || pic.Type == syntax.PictureB {
		pic.FullPelForward = r.ReadFlag()
		pic.ForwardFCode = int(r.ReadBits(3))
		if pic.ForwardFCode == 0 {
			return malformed("forward f_code 0")
		}
	}
	if pic.Type == syntax.PictureB {
		pic.FullPelBackward = r.ReadFlag()
		pic.BackwardFCode = int(r.ReadBits(3))
		if pic.BackwardFCode == 0 {
			return malformed("backward f_code 0")
		}
	}
	for r.ReadFlag() {
		r.ReadBits(8)
	}
	p.pic = pic
	p.picStart = startBit
	return nil
}

// slice holds the decoder-side state of the slice being parsed.
type slice struct {
	q         int
	lastAddr  int
	lastIntra bool
	lastFlags int
	dcPred    [3]int
	fwdPred   syntax.Vector
	bwdPred   syntax.Vector
}

func (s *slice) resetDC() {
	s.dcPred = [3]int{syntax.DCInit, syntax.DCInit, syntax.DCInit}
}

func (p *parser) parseSlice(row int) error {
	r := p.r
	pic := p.pic
	if row >= p.mbHeight {
		return malformed("slice row %d beyond picture height", row)
	}
	st := &slice{q: int(r.ReadBits(5)), lastAddr: row*p.mbWidth - 1}
	st.resetDC()
	if st.q == 0 {
		return malformed("slice quantizer scale 0")
	}
	for r.ReadFlag() {
		r.ReadBits(8)
	}
	pic.Slices++
	pic.SliceRows = append(pic.SliceRows, row)
	p.noteQ(st.q)

	first := true
	for r.BitsLeft() >= 23 && r.PeekBits(23) != 0 {
		if err := p.parseMacroblock(st, first); err != nil {
			return err
		}
		first = false
		if err := r.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return nil
}

func (p *parser) noteQ(q int) {
	if q < p.pic.MinQ {
		p.pic.MinQ = q
	}
	if q > p.pic.MaxQ {
		p.pic.MaxQ = q
	}
}

func (p *parser) parseMacroblock(st *slice, first bool) error {
	r := p.r
	pic := p.pic

	inc, err := syntax.ReadAddressIncrement(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	addr := st.lastAddr + inc
	if addr >= p.mbWidth*p.mbHeight {
		return malformed("macroblock address %d beyond picture", addr)
	}
	if inc > 1 {
		if first {
			return malformed("slice starts with skipped macroblocks")
		}
		if pic.Type == syntax.PictureI {
			return malformed("skipped macroblock in I picture")
		}
		if pic.Type == syntax.PictureB && st.lastIntra {
			return malformed("skipped B macroblock after intra macroblock")
		}
		if pic.Type == syntax.PictureP {
			st.fwdPred = syntax.Vector{}
		}
		for a := st.lastAddr + 1; a < addr; a++ {
			pic.Skipped++
			if p.opts.KeepMacroblocks {
				mb := Macroblock{Address: a, Skipped: true, QScale: st.q}
				if pic.Type == syntax.PictureB {
					mb.Flags = st.lastFlags & (syntax.MBForward | syntax.MBBackward)
					mb.Forward = halfSamples(st.fwdPred, pic.FullPelForward)
					mb.Backward = halfSamples(st.bwdPred, pic.FullPelBackward)
				} else {
					mb.Flags = syntax.MBForward
				}
				pic.Macroblocks = append(pic.Macroblocks, mb)
			}
		}
		st.resetDC()
	}

	flags, err := syntax.ReadMacroblockType(r, pic.Type)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	mb := Macroblock{Address: addr, Flags: flags}
	if flags&syntax.MBQuant != 0 {
		q := int(r.ReadBits(5))
		if q == 0 {
			return malformed("quantizer scale 0 at macroblock %d", addr)
		}
		if q != st.q {
			pic.QuantChanges++
		}
		st.q = q
		p.noteQ(q)
	}
	mb.QScale = st.q

	intra := flags&syntax.MBIntra != 0
	if intra {
		st.fwdPred = syntax.Vector{}
		st.bwdPred = syntax.Vector{}
	}
	if flags&syntax.MBForward != 0 {
		v, err := p.readVector(st.fwdPred, pic.ForwardFCode)
		if err != nil {
			return err
		}
		st.fwdPred = v
	} else if pic.Type == syntax.PictureP {
		st.fwdPred = syntax.Vector{}
	}
	if flags&syntax.MBBackward != 0 {
		v, err := p.readVector(st.bwdPred, pic.BackwardFCode)
		if err != nil {
			return err
		}
		st.bwdPred = v
	}
	mb.Forward = halfSamples(st.fwdPred, pic.FullPelForward)
	mb.Backward = halfSamples(st.bwdPred, pic.FullPelBackward)

	switch {
	case flags&syntax.MBPattern != 0:
		cbp, err := syntax.ReadCodedBlockPattern(r)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		mb.Pattern = cbp
	case intra:
		mb.Pattern = 0x3f
	}

	if intra && (!st.lastIntra || inc > 1) {
		st.resetDC()
	}
	var levels *[6][64]int16
	if p.opts.KeepLevels {
		levels = new([6][64]int16)
	}
	for i := 0; i < 6; i++ {
		if mb.Pattern&syntax.PatternBit(i) == 0 {
			continue
		}
		var blk *[64]int16
		if levels != nil {
			blk = &levels[i]
		}
		if intra {
			comp := 0
			if i >= 4 {
				comp = i - 3
			}
			dc, err := p.readIntraDC(i < 4, &st.dcPred[comp])
			if err != nil {
				return err
			}
			mb.DC[i] = dc
			if blk != nil {
				blk[0] = int16(dc)
			}
			if err := p.readCoefficients(blk, 1, false); err != nil {
				return err
			}
		} else if err := p.readCoefficients(blk, 0, true); err != nil {
			return err
		}
		mb.Blocks++
	}
	if !intra {
		st.resetDC()
	}

	if intra {
		pic.Intra++
	} else {
		pic.Inter++
	}
	pic.CodedBlocks += mb.Blocks
	mb.Levels = levels
	if p.opts.KeepMacroblocks {
		pic.Macroblocks = append(pic.Macroblocks, mb)
	}
	st.lastAddr = addr
	st.lastIntra = intra
	st.lastFlags = flags
	return nil
}

// halfSamples converts a decoded vector to half-sample units.
func halfSamples(v syntax.Vector, fullPel bool) syntax.Vector {
	if fullPel {
		return syntax.Vector{V: 2 * v.V, H: 2 * v.H}
	}
	return v
}

func (p *parser) readVector(pred syntax.Vector, fCode int) (syntax.Vector, error) {
	h, err := syntax.ReadMotionComponent(p.r, fCode)
	if err != nil {
		return syntax.Vector{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	v, err := syntax.ReadMotionComponent(p.r, fCode)
	if err != nil {
		return syntax.Vector{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return syntax.Vector{
		H: syntax.DecodeMotionComponent(h, pred.H, fCode),
		V: syntax.DecodeMotionComponent(v, pred.V, fCode),
	}, nil
}

func (p *parser) readIntraDC(luma bool, pred *int) (int, error) {
	size, err := syntax.ReadDCSize(p.r, luma)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	diff := 0
	if size > 0 {
		bits := int(p.r.ReadBits(size))
		if bits&(1<<uint(size-1)) != 0 {
			diff = bits
		} else {
			diff = bits - (1 << uint(size)) + 1
		}
	}
	*pred += diff
	if *pred < 0 || *pred > syntax.MaxLevel {
		return 0, malformed("intra dc %d out of range", *pred)
	}
	return *pred, nil
}

func (p *parser) readCoefficients(blk *[64]int16, start int, first bool) error {
	n := start
	for {
		run, level, end, err := syntax.ReadCoefficient(p.r, first && n == 0)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if end {
			return nil
		}
		n += run
		if n > 63 {
			return malformed("coefficient index %d beyond block", n)
		}
		if blk != nil {
			blk[n] = int16(level)
		}
		n++
	}
}
