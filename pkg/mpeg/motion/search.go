package motion

import (
	"math"

	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// SearchForward finds the vector that best predicts macroblock (mbx, mby)
// of a forward-predicted frame from ref.
func (e *Estimator) SearchForward(cur *[256]uint8, ref Reference, mbx, mby int) ForwardResult {
	zero := e.Cost(cur, ref, mbx, mby, syntax.Vector{}, math.MaxInt32)
	best := e.searchDirection(cur, ref, mbx, mby, e.cfg.RangeP, Candidate{Cost: zero})
	return ForwardResult{Best: best, ZeroCost: zero}
}

// searchDirection runs the configured full-sample search followed by the
// optional half-sample refinement. seed must hold the zero vector cost.
func (e *Estimator) searchDirection(cur *[256]uint8, ref Reference, mbx, mby, rng int, seed Candidate) Candidate {
	best := seed
	switch e.cfg.PSearch {
	case Logarithmic:
		e.logarithmic(cur, ref, mbx, mby, rng, &best)
	case Subsample:
		e.subsample(cur, ref, mbx, mby, rng, &best)
	case TwoLevel:
		e.twoLevel(cur, ref, mbx, mby, rng, &best)
	default:
		e.exhaustive(cur, ref, mbx, mby, rng, &best)
	}
	if e.cfg.HalfPel {
		e.refineHalf(cur, ref, mbx, mby, rng, &best)
	}
	return best
}

func (e *Estimator) try(cur *[256]uint8, ref Reference, mbx, mby int, v syntax.Vector, best *Candidate) {
	if c := e.Cost(cur, ref, mbx, mby, v, best.Cost); c < best.Cost {
		*best = Candidate{Vector: v, Cost: c}
	}
}

// full converts full-sample offsets to a half-sample vector.
func full(dy, dx int) syntax.Vector {
	return syntax.Vector{V: 2 * dy, H: 2 * dx}
}

func (e *Estimator) exhaustive(cur *[256]uint8, ref Reference, mbx, mby, rng int, best *Candidate) {
	for dy := -rng; dy <= rng; dy++ {
		for dx := -rng; dx <= rng; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			e.try(cur, ref, mbx, mby, full(dy, dx), best)
		}
	}
}

// logarithmic probes the eight neighbours of the current best at a step
// that halves each round.
func (e *Estimator) logarithmic(cur *[256]uint8, ref Reference, mbx, mby, rng int, best *Candidate) {
	step := (rng + 1) / 2
	if step < 1 {
		step = 1
	}
	cy, cx := best.Vector.V/2, best.Vector.H/2
	for {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				y, x := cy+dy*step, cx+dx*step
				if (dx == 0 && dy == 0) || abs(y) > rng || abs(x) > rng {
					continue
				}
				e.try(cur, ref, mbx, mby, full(y, x), best)
			}
		}
		cy, cx = best.Vector.V/2, best.Vector.H/2
		if step == 1 {
			return
		}
		step /= 2
	}
}

// subsample ranks every position by a checkerboard SAD and then measures
// the neighbourhood of the winner with the full metric.
func (e *Estimator) subsample(cur *[256]uint8, ref Reference, mbx, mby, rng int, best *Candidate) {
	var pred [256]uint8
	bestSub, by, bx := math.MaxInt32, 0, 0
	for dy := -rng; dy <= rng; dy++ {
		for dx := -rng; dx <= rng; dx++ {
			v := full(dy, dx)
			if !e.inBounds(mbx, mby, v) {
				continue
			}
			e.fetch(ref, mbx, mby, v, &pred)
			s := 0
			for y := 0; y < 16 && s < bestSub; y++ {
				for x := y & 1; x < 16; x += 2 {
					d := int(cur[y*16+x]) - int(pred[y*16+x])
					if d < 0 {
						d = -d
					}
					s += d
				}
			}
			if s < bestSub {
				bestSub, by, bx = s, dy, dx
			}
		}
	}
	e.neighbourhood(cur, ref, mbx, mby, rng, by, bx, 1, best)
}

// twoLevel searches every other full-sample position and then the
// neighbourhood of the winner.
func (e *Estimator) twoLevel(cur *[256]uint8, ref Reference, mbx, mby, rng int, best *Candidate) {
	for dy := -rng; dy <= rng; dy += 2 {
		for dx := -rng; dx <= rng; dx += 2 {
			e.try(cur, ref, mbx, mby, full(dy, dx), best)
		}
	}
	e.neighbourhood(cur, ref, mbx, mby, rng, best.Vector.V/2, best.Vector.H/2, 1, best)
}

func (e *Estimator) neighbourhood(cur *[256]uint8, ref Reference, mbx, mby, rng, cy, cx, radius int, best *Candidate) {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			y, x := cy+dy, cx+dx
			if abs(y) > rng || abs(x) > rng {
				continue
			}
			e.try(cur, ref, mbx, mby, full(y, x), best)
		}
	}
}

// refineHalf probes the eight half-sample neighbours of the best
// full-sample vector.
func (e *Estimator) refineHalf(cur *[256]uint8, ref Reference, mbx, mby, rng int, best *Candidate) {
	limit := VectorLimit(rng)
	c := best.Vector
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			v := syntax.Vector{V: c.V + dy, H: c.H + dx}
			if (dx == 0 && dy == 0) || abs(v.V) > limit || abs(v.H) > limit {
				continue
			}
			e.try(cur, ref, mbx, mby, v, best)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
