package syntax

import (
	"bytes"
	"fmt"
)

// SequenceHeader holds the fields of a sequence_header.
type SequenceHeader struct {
	Width  int
	Height int
	// AspectCode is pel_aspect_ratio (1 = square pels).
	AspectCode int
	// RateCode is picture_rate (see PictureRates).
	RateCode int
	// BitRate is in units of 400 bit/s; 0 writes the variable-rate marker.
	BitRate int
	// VBVBufferSize is in units of 16384 bits.
	VBVBufferSize int
	Constrained   bool
	// IntraMatrix and NonIntraMatrix are in natural order. A nil matrix or
	// one equal to the default is not transmitted.
	IntraMatrix    *[64]uint8
	NonIntraMatrix *[64]uint8
}

// variableBitRate is the bit_rate value signalling variable bit rate.
const variableBitRate = 0x3FFFF

func writeStartCode(w BitSink, code byte) {
	w.Align()
	w.WriteBits(0x000001, 24)
	w.WriteBits(uint32(code), 8)
}

// Write emits the sequence header including any custom matrices.
func (h SequenceHeader) Write(w BitSink) error {
	if h.Width < 1 || h.Width > MaxDimension || h.Height < 1 || h.Height > MaxDimension {
		return fmt.Errorf("%w: picture size %dx%d", ErrInvalidHeader, h.Width, h.Height)
	}
	if h.AspectCode < 1 || h.AspectCode >= len(AspectRatios) {
		return fmt.Errorf("%w: aspect code %d", ErrInvalidHeader, h.AspectCode)
	}
	if h.RateCode < 1 || h.RateCode >= len(PictureRates) {
		return fmt.Errorf("%w: picture rate code %d", ErrInvalidHeader, h.RateCode)
	}
	bitRate := h.BitRate
	if bitRate <= 0 || bitRate >= variableBitRate {
		bitRate = variableBitRate
	}
	vbv := h.VBVBufferSize
	if vbv < 0 || vbv > 1023 {
		return fmt.Errorf("%w: vbv buffer size %d", ErrInvalidHeader, vbv)
	}

	writeStartCode(w, StartSequence)
	w.WriteBits(uint32(h.Width), 12)
	w.WriteBits(uint32(h.Height), 12)
	w.WriteBits(uint32(h.AspectCode), 4)
	w.WriteBits(uint32(h.RateCode), 4)
	w.WriteBits(uint32(bitRate), 18)
	w.WriteBits(1, 1) // marker
	w.WriteBits(uint32(vbv), 10)
	writeFlag(w, h.Constrained)
	writeMatrix(w, h.IntraMatrix, &DefaultIntraMatrix)
	writeMatrix(w, h.NonIntraMatrix, &DefaultNonIntraMatrix)
	return nil
}

func writeMatrix(w BitSink, m, def *[64]uint8) {
	if m == nil || *m == *def {
		w.WriteBits(0, 1)
		return
	}
	w.WriteBits(1, 1)
	for i := 0; i < 64; i++ {
		w.WriteBits(uint32(m[ZigZag[i]]), 8)
	}
}

func writeFlag(w BitSink, b bool) {
	if b {
		w.WriteBits(1, 1)
	} else {
		w.WriteBits(0, 1)
	}
}

// WriteUserData emits a user_data block. Data containing a start code
// prefix is rejected.
func WriteUserData(w BitSink, data []byte) error {
	if bytes.Contains(data, []byte{0, 0, 1}) {
		return fmt.Errorf("%w: user data contains a start code prefix", ErrInvalidHeader)
	}
	writeStartCode(w, StartUserData)
	for _, b := range data {
		w.WriteBits(uint32(b), 8)
	}
	return nil
}

// TimeCode is the SMPTE-style time_code carried by a GOP header.
type TimeCode struct {
	DropFrame bool
	Hours     int
	Minutes   int
	Seconds   int
	Pictures  int
}

// TimeCodeAt converts a display frame number into a time code at the given
// picture rate code.
func TimeCodeAt(frame, rateCode int) TimeCode {
	pps := 30
	if rateCode >= 1 && rateCode < len(PictureRates) {
		pps = int(PictureRates[rateCode] + 0.5)
	}
	secs := frame / pps
	return TimeCode{
		Hours:    (secs / 3600) % 24,
		Minutes:  (secs / 60) % 60,
		Seconds:  secs % 60,
		Pictures: frame % pps,
	}
}

// GOPHeader holds the fields of a group_of_pictures header.
type GOPHeader struct {
	TimeCode   TimeCode
	Closed     bool
	BrokenLink bool
}

// Write emits the GOP header.
func (h GOPHeader) Write(w BitSink) {
	tc := h.TimeCode
	writeStartCode(w, StartGOP)
	writeFlag(w, tc.DropFrame)
	w.WriteBits(uint32(tc.Hours), 5)
	w.WriteBits(uint32(tc.Minutes), 6)
	w.WriteBits(1, 1) // marker
	w.WriteBits(uint32(tc.Seconds), 6)
	w.WriteBits(uint32(tc.Pictures), 6)
	writeFlag(w, h.Closed)
	writeFlag(w, h.BrokenLink)
}

// PictureHeader holds the fields of a picture header.
type PictureHeader struct {
	TemporalReference int
	Type              PictureType
	// VBVDelay is in 90 kHz ticks; 0xFFFF marks variable rate.
	VBVDelay        uint16
	FullPelForward  bool
	ForwardFCode    int
	FullPelBackward bool
	BackwardFCode   int
}

// Write emits the picture header.
func (h PictureHeader) Write(w BitSink) error {
	if h.Type < PictureI || h.Type > PictureB {
		return fmt.Errorf("%w: picture type %d", ErrInvalidHeader, h.Type)
	}
	if h.Type != PictureI && (h.ForwardFCode < 1 || h.ForwardFCode > MaxFCode) {
		return fmt.Errorf("%w: forward f_code %d", ErrInvalidHeader, h.ForwardFCode)
	}
	if h.Type == PictureB && (h.BackwardFCode < 1 || h.BackwardFCode > MaxFCode) {
		return fmt.Errorf("%w: backward f_code %d", ErrInvalidHeader, h.BackwardFCode)
	}
	writeStartCode(w, StartPicture)
	w.WriteBits(uint32(h.TemporalReference&0x3FF), 10)
	w.WriteBits(uint32(h.Type), 3)
	w.WriteBits(uint32(h.VBVDelay), 16)
	if h.Type == PictureP || h.Type == PictureB {
		writeFlag(w, h.FullPelForward)
		w.WriteBits(uint32(h.ForwardFCode), 3)
	}
	if h.Type == PictureB {
		writeFlag(w, h.FullPelBackward)
		w.WriteBits(uint32(h.BackwardFCode), 3)
	}
	w.WriteBits(0, 1) // extra_bit_picture
	return nil
}

// WriteSequenceEnd aligns the stream and emits the sequence end code.
func WriteSequenceEnd(w BitSink) {
	writeStartCode(w, StartSequenceEnd)
}
