package encoder

import (
	"fmt"

	"github.com/user/mpeg1enc/pkg/mpeg/frame"
)

// Step is one picture in coding order.
type Step struct {
	// Display is the frame index within the encoded range.
	Display int
	Kind    frame.Kind
	// Past and Future are the display indices of the reference frames,
	// -1 when unused.
	Past   int
	Future int
	// TemporalRef is the display position relative to the first displayed
	// picture of the group.
	TemporalRef int

	// GOPStart marks the first picture of a group; GOP fields are only
	// meaningful on such steps.
	GOPStart bool
	Closed   bool
	// GOPBase is the display index the group's time code refers to.
	GOPBase int
	// Counts holds the number of pictures per kind in the group.
	Counts [3]int
}

// Plan is the coding order of a whole stream.
type Plan struct {
	Steps []Step
	// Truncated is the number of trailing frames that could not be coded
	// because their future reference lies beyond the end of the stream.
	Truncated int
}

// DisplayKinds returns the kind of each of n display frames for pattern.
// The first frame is always intra; with forceLast a trailing
// bidirectional frame becomes forward predicted.
func DisplayKinds(pattern []frame.Kind, n int, forceLast bool) []frame.Kind {
	kinds := make([]frame.Kind, n)
	for i := range kinds {
		kinds[i] = pattern[i%len(pattern)]
	}
	if n > 0 {
		kinds[0] = frame.Intra
		if forceLast && kinds[n-1] == frame.BiPredicted {
			kinds[n-1] = frame.ForwardPredicted
		}
	}
	return kinds
}

// Sequence orders n display frames for coding. Each reference frame is
// coded before the bidirectional frames that precede it in display order,
// and a group starts at an intra frame once gopSize frames have passed
// since the previous group start.
func Sequence(kinds []frame.Kind, gopSize int) (Plan, error) {
	if len(kinds) == 0 {
		return Plan{}, fmt.Errorf("%w: no frames to encode", ErrInvalidConfig)
	}
	if kinds[0] != frame.Intra {
		return Plan{}, fmt.Errorf("%w: first frame must be intra", ErrInvalidConfig)
	}
	if gopSize < 1 {
		return Plan{}, fmt.Errorf("%w: GOP size %d", ErrInvalidConfig, gopSize)
	}

	var plan Plan
	lastRef := -1
	lastGOP := 0
	base := 0
	gopIndex := -1
	for i, k := range kinds {
		if k == frame.BiPredicted {
			continue
		}
		step := Step{Display: i, Kind: k, Past: -1, Future: -1}
		if k == frame.ForwardPredicted {
			step.Past = lastRef
		}
		if k == frame.Intra && (gopIndex < 0 || i-lastGOP >= gopSize) {
			base = lastRef + 1
			step.GOPStart = true
			step.Closed = base == i
			step.GOPBase = base
			lastGOP = i
			gopIndex = len(plan.Steps)
		}
		step.TemporalRef = i - base
		plan.Steps = append(plan.Steps, step)
		plan.Steps[gopIndex].Counts[k]++

		for b := lastRef + 1; b < i; b++ {
			plan.Steps = append(plan.Steps, Step{
				Display:     b,
				Kind:        frame.BiPredicted,
				Past:        lastRef,
				Future:      i,
				TemporalRef: b - base,
			})
			plan.Steps[gopIndex].Counts[frame.BiPredicted]++
		}
		lastRef = i
	}
	plan.Truncated = len(kinds) - 1 - lastRef
	return plan, nil
}

// DisplayOrder returns the display index of each step.
func (p Plan) DisplayOrder() []int {
	order := make([]int, len(p.Steps))
	for i, s := range p.Steps {
		order[i] = s.Display
	}
	return order
}
