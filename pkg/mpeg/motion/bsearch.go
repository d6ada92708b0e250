package motion

import (
	"math"

	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

// SearchBi finds the best forward, backward and interpolated predictions
// for macroblock (mbx, mby) of a bidirectionally predicted frame and
// returns the cheapest. Ties favour the single-vector modes.
func (e *Estimator) SearchBi(cur *[256]uint8, fwd, bwd Reference, mbx, mby int) BiResult {
	rng := e.cfg.RangeB
	zf := e.Cost(cur, fwd, mbx, mby, syntax.Vector{}, math.MaxInt32)
	zb := e.Cost(cur, bwd, mbx, mby, syntax.Vector{}, math.MaxInt32)
	f := e.searchDirection(cur, fwd, mbx, mby, rng, Candidate{Cost: zf})
	b := e.searchDirection(cur, bwd, mbx, mby, rng, Candidate{Cost: zb})

	fv, bv := f.Vector, b.Vector
	switch e.cfg.BSearch {
	case BCross2:
		fv, bv = e.cross(cur, fwd, bwd, mbx, mby, rng, fv, bv, 2)
	case BExhaustive:
		fv, bv = e.pairs(cur, fwd, bwd, mbx, mby, rng, fv, bv)
	}
	ic := e.BiCost(cur, fwd, fv, bwd, bv, mbx, mby, math.MaxInt32)

	res := BiResult{Mode: ModeForward, Forward: f.Vector, Cost: f.Cost}
	if b.Cost < res.Cost {
		res = BiResult{Mode: ModeBackward, Backward: b.Vector, Cost: b.Cost}
	}
	if ic < res.Cost {
		res = BiResult{Mode: ModeInterpolated, Forward: fv, Backward: bv, Cost: ic}
	}
	return res
}

// cross refines an interpolated pair by searching a small window around
// the backward vector with the forward one fixed, then the reverse.
func (e *Estimator) cross(cur *[256]uint8, fwd, bwd Reference, mbx, mby, rng int, fv, bv syntax.Vector, radius int) (syntax.Vector, syntax.Vector) {
	limit := VectorLimit(rng)
	best := e.BiCost(cur, fwd, fv, bwd, bv, mbx, mby, math.MaxInt32)
	step := 2
	if e.cfg.HalfPel {
		step = 1
	}
	for pass := 0; pass < 2; pass++ {
		moving := &bv
		if pass == 1 {
			moving = &fv
		}
		c := *moving
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				v := syntax.Vector{V: c.V + dy*step, H: c.H + dx*step}
				if abs(v.V) > limit || abs(v.H) > limit {
					continue
				}
				tf, tb := fv, bv
				if pass == 0 {
					tb = v
				} else {
					tf = v
				}
				if cost := e.BiCost(cur, fwd, tf, bwd, tb, mbx, mby, best); cost < best {
					best = cost
					*moving = v
				}
			}
		}
	}
	return fv, bv
}

// pairs evaluates every full-sample forward vector against the best
// backward vector and then every backward vector against the resulting
// forward one.
func (e *Estimator) pairs(cur *[256]uint8, fwd, bwd Reference, mbx, mby, rng int, fv, bv syntax.Vector) (syntax.Vector, syntax.Vector) {
	best := e.BiCost(cur, fwd, fv, bwd, bv, mbx, mby, math.MaxInt32)
	for dy := -rng; dy <= rng; dy++ {
		for dx := -rng; dx <= rng; dx++ {
			v := full(dy, dx)
			if cost := e.BiCost(cur, fwd, v, bwd, bv, mbx, mby, best); cost < best {
				best, fv = cost, v
			}
		}
	}
	for dy := -rng; dy <= rng; dy++ {
		for dx := -rng; dx <= rng; dx++ {
			v := full(dy, dx)
			if cost := e.BiCost(cur, fwd, fv, bwd, v, mbx, mby, best); cost < best {
				best, bv = cost, v
			}
		}
	}
	if e.cfg.HalfPel {
		return e.cross(cur, fwd, bwd, mbx, mby, rng, fv, bv, 1)
	}
	return fv, bv
}
