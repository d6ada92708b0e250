package syntax

import (
	"fmt"

	"github.com/user/mpeg1enc/pkg/mpeg/bitio"
)

// Vector is a motion vector in half samples. Pictures with the full_pel
// flag code it halved.
type Vector struct {
	V int
	H int
}

// IsZero reports whether both components are zero.
func (v Vector) IsZero() bool {
	return v.V == 0 && v.H == 0
}

// MotionCode is one differentially coded vector component split into its
// VLC part and its fixed-width residual.
type MotionCode struct {
	Code     int
	Residual int
}

// EncodeMotionComponent codes value against the predictor pred. The
// difference is wrapped into the f_code range before it is split.
func EncodeMotionComponent(value, pred, fCode int) (MotionCode, error) {
	if fCode < 1 || fCode > MaxFCode {
		return MotionCode{}, fmt.Errorf("%w: f_code %d", ErrVectorOutOfRange, fCode)
	}
	lo, hi := VectorRange(fCode)
	if value < lo || value > hi {
		return MotionCode{}, fmt.Errorf("%w: %d not in [%d,%d]", ErrVectorOutOfRange, value, lo, hi)
	}
	scale := 1 << uint(fCode-1)
	delta := value - pred
	if delta < lo {
		delta += 32 * scale
	} else if delta > hi {
		delta -= 32 * scale
	}
	if delta == 0 || scale == 1 {
		return MotionCode{Code: delta}, nil
	}
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	code := (abs-1)/scale + 1
	if delta < 0 {
		code = -code
	}
	return MotionCode{Code: code, Residual: (abs - 1) % scale}, nil
}

// DecodeMotionComponent reverses EncodeMotionComponent the way a decoder
// reconstructs a vector component.
func DecodeMotionComponent(mc MotionCode, pred, fCode int) int {
	rSize := uint(fCode - 1)
	scale := 1 << rSize
	d := mc.Code
	if mc.Code != 0 && scale != 1 {
		abs := mc.Code
		if abs < 0 {
			abs = -abs
		}
		d = ((abs - 1) << rSize) + mc.Residual + 1
		if mc.Code < 0 {
			d = -d
		}
	}
	v := pred + d
	if v > scale*16-1 {
		v -= scale * 32
	} else if v < -scale*16 {
		v += scale * 32
	}
	return v
}

// WriteMotionComponent emits a motion code and its residual.
func WriteMotionComponent(w BitSink, mc MotionCode, fCode int) {
	MotionCodeVLC(mc.Code).Write(w)
	if fCode > 1 && mc.Code != 0 {
		w.WriteBits(uint32(mc.Residual), fCode-1)
	}
}

// ReadMotionComponent reads a motion code and its residual.
func ReadMotionComponent(r *bitio.Reader, fCode int) (MotionCode, error) {
	code, err := ReadMotionCode(r)
	if err != nil {
		return MotionCode{}, err
	}
	mc := MotionCode{Code: code}
	if fCode > 1 && code != 0 {
		mc.Residual = int(r.ReadBits(fCode - 1))
	}
	return mc, r.Err()
}
