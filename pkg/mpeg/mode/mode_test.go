package mode

import (
	"testing"

	"github.com/user/mpeg1enc/pkg/mpeg/block"
)

func TestThresholds_PreferIntra(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		errVar, srcVar int
		want           bool
	}{
		{0, 0, false},     // flat block predicted exactly
		{64, 10, false},   // at the floor
		{65, 10, true},    // above floor and source
		{500, 600, false}, // prediction still helps
	}
	for _, tt := range tests {
		if got := th.PreferIntra(tt.errVar, tt.srcVar); got != tt.want {
			t.Errorf("PreferIntra(%d, %d) = %v", tt.errVar, tt.srcVar, got)
		}
	}
}

// Tuning-sensitive: depends on the default zero-motion thresholds.
func TestThresholds_PreferZero_DefaultTuning(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		zero, best int
		want       bool
	}{
		{200, 0, true},     // sufficient on its own
		{900, 700, true},   // within the absolute slack
		{900, 600, false},  // beyond it
		{5000, 4600, true}, // within ten percent
		{5000, 4400, false},
	}
	for _, tt := range tests {
		if got := th.PreferZero(tt.zero, tt.best); got != tt.want {
			t.Errorf("PreferZero(%d, %d) = %v", tt.zero, tt.best, got)
		}
	}
}

func TestThresholds_PreferZero_Disabled(t *testing.T) {
	th := Thresholds{ZeroMotionSufficient: -1, ZeroMotionSlack: -1}
	if th.PreferZero(5, 4) {
		t.Error("a worse zero vector should not be preferred without slack")
	}
	if !th.PreferZero(5, 5) {
		t.Error("an equal zero vector should be preferred")
	}
}

// Tuning-sensitive: depends on the default skip thresholds.
func TestThresholds_InheritSkip_DefaultTuning(t *testing.T) {
	th := DefaultThresholds()
	var cur, pred block.Macroblock
	for i := range cur.Y {
		cur.Y[i] = 128
		pred.Y[i] = 128
	}
	if !th.InheritSkip(&cur, &pred) {
		t.Error("identical macroblocks should be skippable")
	}
	for i := 0; i < 256; i++ {
		pred.Y[i] = 130
	}
	if th.InheritSkip(&cur, &pred) {
		t.Error("luminance SAD 512 should not be skippable")
	}
	pred.Y = cur.Y
	for i := 0; i < 64; i++ {
		pred.Cb[i] = 4
	}
	if th.InheritSkip(&cur, &pred) {
		t.Error("chrominance SAD 256 should not be skippable")
	}
}

func TestSkipPosition(t *testing.T) {
	s := Slice{First: 10, Last: 19}
	tests := []struct {
		addr      int
		prevIntra bool
		want      bool
	}{
		{10, false, false},
		{11, false, true},
		{19, false, false},
		{15, true, false},
		{18, false, true},
	}
	for _, tt := range tests {
		if got := SkipPosition(tt.addr, s, 29, tt.prevIntra); got != tt.want {
			t.Errorf("SkipPosition(%d, prevIntra=%v) = %v", tt.addr, tt.prevIntra, got)
		}
	}
	if SkipPosition(18, Slice{First: 0, Last: 40}, 18, false) {
		t.Error("last macroblock of the picture must not be skipped")
	}
}

func TestSlices(t *testing.T) {
	got := Slices(4, 5, 2)
	want := []Slice{{0, 7}, {8, 19}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Slices(4,5,2) = %v", got)
	}
	if got := Slices(4, 2, 9); len(got) != 2 {
		t.Errorf("count should clamp to rows, got %d slices", len(got))
	}
	if got := Slices(3, 2, 0); len(got) != 1 || got[0] != (Slice{0, 5}) {
		t.Errorf("Slices(3,2,0) = %v", got)
	}
}
