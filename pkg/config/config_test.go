package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
)

func TestDefaults_MatchEncoder(t *testing.T) {
	enc, err := Defaults().EncoderConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := encoder.DefaultConfig(0, 0)
	if enc.Pattern != want.Pattern || enc.GOPSize != want.GOPSize || enc.QScale != want.QScale {
		t.Errorf("structure differs from encoder defaults: %+v", enc)
	}
	if enc.PSearch != want.PSearch || enc.BSearch != want.BSearch || enc.Metric != want.Metric || !enc.HalfPel {
		t.Error("motion settings differ from encoder defaults")
	}
	if enc.RetryDelay != want.RetryDelay || enc.Thresholds != want.Thresholds {
		t.Error("execution settings differ from encoder defaults")
	}
}

func TestLoadFromFile(t *testing.T) {
	yml := `
input: frames/*.png
output: out.mp4
container: mp4
fps: 29.97
pattern: IPP
gop_size: 9
qscale:
  i: 4
  p: 6
  b: 12
motion:
  range_p: 16
  precision: full
  p_search: exhaustive
  b_search: simple
  metric: sse
  reference: original
bitrate: 1150000
thresholds:
  skip_luma_error: 100
retry_delay_ms: 5
`
	path := filepath.Join(t.TempDir(), "enc.yaml")
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Container != "mp4" || cfg.Slices != 1 {
		t.Errorf("container %q slices %d", cfg.Container, cfg.Slices)
	}

	oc, err := cfg.ToOrchestratorConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	enc := oc.Encoder
	if oc.OutputPath != "out.mp4" || oc.FrameRate != 29.97 || oc.InputName != "frames/*.png" {
		t.Errorf("unexpected orchestrator config %+v", oc)
	}
	if enc.Pattern != "IPP" || enc.GOPSize != 9 {
		t.Errorf("pattern %q gop %d", enc.Pattern, enc.GOPSize)
	}
	if enc.QScale != (encoder.QScales{I: 4, P: 6, B: 12}) {
		t.Errorf("qscale %+v", enc.QScale)
	}
	if enc.SearchRangeP != 16 || enc.SearchRangeB != 10 || enc.HalfPel {
		t.Errorf("search %d/%d half %v", enc.SearchRangeP, enc.SearchRangeB, enc.HalfPel)
	}
	if enc.PSearch != motion.Exhaustive || enc.BSearch != motion.BSimple || enc.Metric != motion.SSE {
		t.Error("motion algorithms not applied")
	}
	if enc.Reference != encoder.ReferenceOriginal {
		t.Error("reference mode not applied")
	}
	if enc.BitRate != 1150000 {
		t.Errorf("bitrate %d", enc.BitRate)
	}
	if enc.Thresholds.SkipLumaError != 100 || enc.Thresholds.SkipChromaError != 256 {
		t.Errorf("thresholds %+v", enc.Thresholds)
	}
	if enc.RetryDelay != 5*time.Millisecond {
		t.Errorf("retry delay %v", enc.RetryDelay)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("gop_size: [1, 2"), 0644)
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_EncoderConfig_Invalid(t *testing.T) {
	tests := map[string]func(*Config){
		"precision":  func(c *Config) { c.Motion.Precision = "quarter" },
		"p search":   func(c *Config) { c.Motion.PSearch = "diamond" },
		"b search":   func(c *Config) { c.Motion.BSearch = "bogus" },
		"metric":     func(c *Config) { c.Motion.Metric = "mse" },
		"reference":  func(c *Config) { c.Motion.Reference = "future" },
		"short":      func(c *Config) { c.IntraMatrix = []int{8, 16} },
		"zero entry": func(c *Config) { c.NonIntraMatrix = make([]int, 64) },
		"wide entry": func(c *Config) { c.IntraMatrix = filled(256) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			if _, err := cfg.EncoderConfig(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func filled(v int) []int {
	m := make([]int, 64)
	for i := range m {
		m[i] = v
	}
	return m
}

func TestParseMatrix(t *testing.T) {
	m, err := ParseMatrix(filled(16))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m == nil || m[0] != 16 || m[63] != 16 {
		t.Errorf("unexpected matrix %v", m)
	}
	if m, err := ParseMatrix(nil); m != nil || err != nil {
		t.Errorf("empty list should select the default matrix, got %v, %v", m, err)
	}
}
