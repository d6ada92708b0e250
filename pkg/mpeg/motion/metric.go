package motion

import (
	"fmt"
	"strings"

	"github.com/user/mpeg1enc/pkg/mpeg/block"
)

// Metric selects the block matching cost.
type Metric int

const (
	// SAD is the sum of absolute differences.
	SAD Metric = iota
	// SSE is the sum of squared differences.
	SSE
	// Rate estimates coefficient coding cost from a local transform of the
	// prediction error.
	Rate
	// NoDC is the sum of absolute differences after removing the mean
	// difference.
	NoDC
)

var metricNames = map[Metric]string{SAD: "sad", SSE: "sse", Rate: "rate", NoDC: "nodc"}

func (m Metric) String() string {
	if s, ok := metricNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// ParseMetric converts a metric name.
func ParseMetric(s string) (Metric, error) {
	for m, name := range metricNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return SAD, fmt.Errorf("unknown motion metric %q", s)
}

// measure computes the cost of predicting cur by pred. Costs are abandoned
// once they exceed limit where the metric allows it; the returned value is
// then some number greater than limit.
func (m Metric) measure(cur, pred *[256]uint8, limit int) int {
	switch m {
	case SSE:
		return sse(cur, pred, limit)
	case Rate:
		return rateCost(cur, pred)
	case NoDC:
		return noDC(cur, pred)
	default:
		return sad(cur, pred, limit)
	}
}

func sad(cur, pred *[256]uint8, limit int) int {
	s := 0
	for y := 0; y < 16; y++ {
		for x := y * 16; x < y*16+16; x++ {
			d := int(cur[x]) - int(pred[x])
			if d < 0 {
				d = -d
			}
			s += d
		}
		if s > limit {
			return s
		}
	}
	return s
}

func sse(cur, pred *[256]uint8, limit int) int {
	s := 0
	for y := 0; y < 16; y++ {
		for x := y * 16; x < y*16+16; x++ {
			d := int(cur[x]) - int(pred[x])
			s += d * d
		}
		if s > limit {
			return s
		}
	}
	return s
}

func noDC(cur, pred *[256]uint8) int {
	var diff [256]int
	sum := 0
	for i := range cur {
		diff[i] = int(cur[i]) - int(pred[i])
		sum += diff[i]
	}
	mean := sum / 256
	s := 0
	for _, d := range diff {
		d -= mean
		if d < 0 {
			d = -d
		}
		s += d
	}
	return s
}

// rateCost transforms the four luminance error blocks and charges each
// significant coefficient by its magnitude class, approximating the bits
// the residual would take to code.
func rateCost(cur, pred *[256]uint8) int {
	cost := 0
	var res, coef block.Block
	for b := 0; b < 4; b++ {
		ox, oy := (b&1)*8, (b>>1)*8
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				i := (oy+y)*16 + ox + x
				res[y*8+x] = int16(int(cur[i]) - int(pred[i]))
			}
		}
		block.Forward(&res, &coef)
		for _, c := range coef {
			a := int(c)
			if a < 0 {
				a = -a
			}
			a >>= 4
			if a == 0 {
				continue
			}
			bits := 4
			for a > 1 {
				bits += 2
				a >>= 1
			}
			cost += bits
		}
	}
	return cost
}
