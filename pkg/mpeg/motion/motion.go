// Package motion is the motion estimator. It searches reference frames for
// the displacement that best predicts each macroblock, with one entry point
// per predicted frame kind.
package motion

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/mpeg1enc/pkg/mpeg/block"
	"github.com/user/mpeg1enc/pkg/mpeg/frame"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// PSearch selects the full-sample search for forward prediction.
type PSearch int

const (
	Exhaustive PSearch = iota
	Logarithmic
	Subsample
	TwoLevel
)

var pSearchNames = map[PSearch]string{Exhaustive: "exhaustive", Logarithmic: "logarithmic", Subsample: "subsample", TwoLevel: "twolevel"}

func (s PSearch) String() string {
	if n, ok := pSearchNames[s]; ok {
		return n
	}
	return fmt.Sprintf("PSearch(%d)", int(s))
}

// ParsePSearch converts a P search name.
func ParsePSearch(s string) (PSearch, error) {
	for v, name := range pSearchNames {
		if strings.EqualFold(s, name) {
			return v, nil
		}
	}
	return Exhaustive, fmt.Errorf("unknown P search %q", s)
}

// BSearch selects how bidirectional macroblocks are searched.
type BSearch int

const (
	// BSimple searches each direction independently and interpolates the
	// two winners.
	BSimple BSearch = iota
	// BCross2 additionally refines each interpolated vector with the other
	// held fixed.
	BCross2
	// BExhaustive pairs every forward candidate with the best backward
	// vector and the reverse.
	BExhaustive
)

var bSearchNames = map[BSearch]string{BSimple: "simple", BCross2: "cross2", BExhaustive: "exhaustive"}

func (s BSearch) String() string {
	if n, ok := bSearchNames[s]; ok {
		return n
	}
	return fmt.Sprintf("BSearch(%d)", int(s))
}

// ParseBSearch converts a B search name.
func ParseBSearch(s string) (BSearch, error) {
	for v, name := range bSearchNames {
		if strings.EqualFold(s, name) {
			return v, nil
		}
	}
	return BSimple, fmt.Errorf("unknown B search %q", s)
}

// Config configures an Estimator. Ranges are in full samples.
type Config struct {
	RangeP  int
	RangeB  int
	HalfPel bool
	PSearch PSearch
	BSearch BSearch
	Metric  Metric
}

// Reference is a frame searched against.
type Reference struct {
	Planes *frame.Planes
	Half   *frame.HalfPlanes
}

// RefOf builds a Reference from a frame, building half-sample planes when
// needed. It must not be called concurrently for the same frame.
func RefOf(f *frame.Frame, decoded, halfPel bool) Reference {
	r := Reference{Planes: f.Reference(decoded)}
	if halfPel {
		r.Half = f.Half(decoded)
	}
	return r
}

// Candidate is a vector and its cost.
type Candidate struct {
	Vector syntax.Vector
	Cost   int
}

// ForwardResult is the outcome of a forward search.
type ForwardResult struct {
	Best Candidate
	// ZeroCost is the cost of the zero vector.
	ZeroCost int
}

// Mode is the prediction direction chosen for a bidirectional macroblock.
type Mode int

const (
	ModeForward Mode = iota
	ModeBackward
	ModeInterpolated
)

func (m Mode) String() string {
	switch m {
	case ModeForward:
		return "forward"
	case ModeBackward:
		return "backward"
	default:
		return "interpolated"
	}
}

// BiResult is the outcome of a bidirectional search.
type BiResult struct {
	Mode     Mode
	Forward  syntax.Vector
	Backward syntax.Vector
	Cost     int
}

// Estimator performs motion search over frames of one geometry. It holds
// no per-search state and is safe for concurrent use.
type Estimator struct {
	cfg    Config
	width  int
	height int
}

// New creates an Estimator for luminance planes of width x height samples.
func New(cfg Config, width, height int) *Estimator {
	return &Estimator{cfg: cfg, width: width, height: height}
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// VectorLimit returns the largest vector component the estimator can
// produce for a full-sample range, in half-sample units.
func VectorLimit(rangeFull int) int {
	return 2*rangeFull + 1
}

// FCode returns the f_code covering vectors found with rangeFull.
func FCode(rangeFull int) int {
	return syntax.FCodeForRange(VectorLimit(rangeFull))
}

// FCodeFor is FCode for half-sample searches. Full-sample searches code
// their vectors in full samples and need only rangeFull.
func FCodeFor(rangeFull int, halfPel bool) int {
	if halfPel {
		return FCode(rangeFull)
	}
	return syntax.FCodeForRange(rangeFull)
}

func (e *Estimator) inBounds(mbx, mby int, v syntax.Vector) bool {
	return block.InBounds(e.width, e.height, mbx*16, mby*16, 16, v)
}

// fetch copies the luminance prediction for v.
func (e *Estimator) fetch(ref Reference, mbx, mby int, v syntax.Vector, dst *[256]uint8) {
	fx, fy := v.H&1, v.V&1
	pl := ref.Planes.Y
	if fx|fy != 0 {
		if ref.Half == nil {
			var mb block.Macroblock
			block.Predict(ref.Planes, mbx, mby, v, &mb)
			*dst = mb.Y
			return
		}
		pl = ref.Half.Select(pl, fx, fy)
	}
	x0 := mbx*16 + (v.H >> 1)
	y0 := mby*16 + (v.V >> 1)
	for j := 0; j < 16; j++ {
		off := (y0+j)*pl.Width + x0
		copy(dst[j*16:j*16+16], pl.Pix[off:off+16])
	}
}

// Cost returns the metric for predicting cur from ref displaced by v, or
// math.MaxInt32 when v reaches outside the frame.
func (e *Estimator) Cost(cur *[256]uint8, ref Reference, mbx, mby int, v syntax.Vector, limit int) int {
	if !e.inBounds(mbx, mby, v) {
		return math.MaxInt32
	}
	var pred [256]uint8
	e.fetch(ref, mbx, mby, v, &pred)
	return e.cfg.Metric.measure(cur, &pred, limit)
}

// BiCost returns the metric for the interpolated prediction.
func (e *Estimator) BiCost(cur *[256]uint8, fwd Reference, fv syntax.Vector, bwd Reference, bv syntax.Vector, mbx, mby int, limit int) int {
	if !e.inBounds(mbx, mby, fv) || !e.inBounds(mbx, mby, bv) {
		return math.MaxInt32
	}
	var a, b [256]uint8
	e.fetch(fwd, mbx, mby, fv, &a)
	e.fetch(bwd, mbx, mby, bv, &b)
	for i := range a {
		a[i] = uint8((int(a[i]) + int(b[i]) + 1) >> 1)
	}
	return e.cfg.Metric.measure(cur, &a, limit)
}
