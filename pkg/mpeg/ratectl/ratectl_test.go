package ratectl

import (
	"errors"
	"math"
	"testing"

	"github.com/user/mpeg1enc/pkg/mpeg/frame"
)

func newTestController(t *testing.T, bufferSize int) *Controller {
	t.Helper()
	c, err := New(Config{BitRate: 1_000_000, FrameRate: 25, BufferSize: bufferSize, MBCount: 40}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidConfig(t *testing.T) {
	bad := []Config{
		{BitRate: 0, FrameRate: 25, MBCount: 1},
		{BitRate: 1000, FrameRate: 0, MBCount: 1},
		{BitRate: 1000, FrameRate: 25, MBCount: 0},
		{BitRate: 1000, FrameRate: 25, MBCount: 1, BufferSize: -1},
	}
	for _, cfg := range bad {
		if _, err := New(cfg, nil); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("New(%+v) error = %v, want ErrInvalidConfig", cfg, err)
		}
	}
}

func TestController_StartPicture_SplitsByComplexity(t *testing.T) {
	c := newTestController(t, 0)
	c.StartGOP([3]int{1, 2, 6})
	// R = 360000; weights 160, 60 and 42/1.4 give a sum of 460.
	got := c.StartPicture(frame.Intra)
	want := 360000.0 * 160 / 460
	if math.Abs(got-want) > 1 {
		t.Errorf("I target = %.1f, want %.1f", got, want)
	}
}

func TestController_StartPicture_Floor(t *testing.T) {
	c := newTestController(t, 0)
	c.StartGOP([3]int{1, 0, 0})
	c.StartPicture(frame.Intra)
	c.EndPicture(1_000_000)
	c.StartGOP([3]int{0, 1, 0})
	if got := c.StartPicture(frame.ForwardPredicted); got != c.Floor() {
		t.Errorf("target after exhausting the budget = %.0f, want floor %.0f", got, c.Floor())
	}
}

func TestController_MacroblockQuant_Initial(t *testing.T) {
	tests := []struct {
		kind     frame.Kind
		activity int
		want     int
	}{
		{frame.Intra, 400, 10},
		{frame.ForwardPredicted, 400, 10},
		{frame.BiPredicted, 400, 14},
		{frame.Intra, 1, 5},       // flat areas get finer quantization
		{frame.Intra, 100000, 20}, // busy areas get coarser quantization
	}
	for _, tt := range tests {
		c := newTestController(t, 0)
		c.StartGOP([3]int{1, 1, 1})
		c.StartPicture(tt.kind)
		if got := c.MacroblockQuant(0, 0, tt.activity); got != tt.want {
			t.Errorf("%s activity %d: q = %d, want %d", tt.kind, tt.activity, got, tt.want)
		}
	}
}

func TestController_MacroblockQuant_Feedback(t *testing.T) {
	c := newTestController(t, 0)
	c.StartGOP([3]int{1, 0, 0})
	c.StartPicture(frame.Intra)
	first := c.MacroblockQuant(0, 0, 400)
	if got := c.MacroblockQuant(1, 500_000, 400); got != 31 {
		t.Errorf("overspent picture q = %d, want 31", got)
	}
	if got := c.MacroblockQuant(39, 0, 400); got != 1 {
		t.Errorf("underspent picture q = %d, want 1", got)
	}
	if first != 10 {
		t.Errorf("first q = %d, want 10", first)
	}
}

func TestController_EndPicture_UpdatesState(t *testing.T) {
	c := newTestController(t, 0)
	c.StartGOP([3]int{1, 0, 0})
	target := c.StartPicture(frame.Intra)
	for j := 0; j < 40; j++ {
		c.MacroblockQuant(j, 0, 400)
	}
	c.EndPicture(100_000)
	if got := c.GOPOvershoot(); got != 100_000-40_000 {
		t.Errorf("GOPOvershoot() = %.0f, want 60000", got)
	}
	if c.complexity[frame.Intra] <= 0 {
		t.Error("complexity not updated")
	}
	d0 := 10 * c.reaction / 31
	if want := d0 + 100_000 - target; math.Abs(c.fullness[frame.Intra]-want) > 1e-6 {
		t.Errorf("fullness = %.1f, want %.1f", c.fullness[frame.Intra], want)
	}
	// A second EndPicture without StartPicture is ignored.
	c.EndPicture(5)
	if got := c.GOPOvershoot(); got != 60_000 {
		t.Errorf("GOPOvershoot() after stray EndPicture = %.0f", got)
	}
}

func TestController_Buffer(t *testing.T) {
	c := newTestController(t, 0)
	if c.VBVDelay() != 0xFFFF {
		t.Errorf("VBVDelay() without buffer = %#x, want 0xFFFF", c.VBVDelay())
	}

	c = newTestController(t, 327_680)
	if got := c.BufferFullness(); got != 286_720 {
		t.Errorf("initial fullness = %.0f, want 286720", got)
	}
	c.StartGOP([3]int{1, 0, 0})
	c.StartPicture(frame.Intra)
	c.EndPicture(400_000)
	under, _ := c.BufferViolations()
	if under != 1 {
		t.Errorf("underflows = %d, want 1", under)
	}
	if got := c.BufferFullness(); got != 40_000 {
		t.Errorf("fullness after underflow = %.0f, want 40000", got)
	}
	if got := c.VBVDelay(); got != 3600 {
		t.Errorf("VBVDelay() = %d, want 3600", got)
	}
}

// simulate runs gops groups through the controller with a bit model that
// returns the bits of macroblock j coded at scale q, and reports the worst
// overshoot of any group.
func simulate(t *testing.T, gops int, activity func(j int) int, bits func(k frame.Kind, q, j int) int) float64 {
	t.Helper()
	c := newTestController(t, 0)
	order := []frame.Kind{
		frame.Intra, frame.ForwardPredicted, frame.BiPredicted, frame.BiPredicted,
		frame.ForwardPredicted, frame.BiPredicted, frame.BiPredicted, frame.BiPredicted, frame.BiPredicted,
	}
	worst := math.Inf(-1)
	for g := 0; g < gops; g++ {
		c.StartGOP([3]int{1, 2, 6})
		for _, k := range order {
			c.StartPicture(k)
			spent := 0
			for j := 0; j < 40; j++ {
				q := c.MacroblockQuant(j, spent, activity(j))
				if q < 1 || q > 31 {
					t.Fatalf("q = %d out of range", q)
				}
				spent += bits(k, q, j)
			}
			c.EndPicture(spent)
		}
		worst = math.Max(worst, c.GOPOvershoot())
	}
	return worst
}

// Tuning-sensitive: the bound holds for smooth bit models, not for
// arbitrary content.
func TestController_GOPBudgetBound(t *testing.T) {
	flat := func(int) int { return 400 }
	varied := func(j int) int { return 1 + (j*37)%600 }
	models := map[string]struct {
		activity func(int) int
		bits     func(k frame.Kind, q, j int) int
	}{
		"low complexity": {flat, func(k frame.Kind, q, j int) int {
			return [3]int{4000, 1500, 800}[k]/q + 10
		}},
		"high complexity": {flat, func(k frame.Kind, q, j int) int {
			return [3]int{40000, 15000, 8000}[k]/q + 10
		}},
		"varied activity": {varied, func(k frame.Kind, q, j int) int {
			return [3]int{4000, 1500, 800}[k]*(600+(j*37)%600)/(600*q) + 10
		}},
	}
	for name, m := range models {
		t.Run(name, func(t *testing.T) {
			worst := simulate(t, 10, m.activity, m.bits)
			if floor := 1_000_000.0 / (8 * 25); worst > floor {
				t.Errorf("worst GOP overshoot = %.0f bits, want <= %.0f", worst, floor)
			}
		})
	}
}
