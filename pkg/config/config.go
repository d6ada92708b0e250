// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/mpeg/mode"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
	"github.com/user/mpeg1enc/pkg/orchestrator"
)

// Config represents the full configuration for mpeg1enc.
type Config struct {
	// Input/Output
	Input      string `yaml:"input"`
	OutputPath string `yaml:"output"`
	Container  string `yaml:"container"` // m1v, mpg or mp4; empty picks by extension

	// Source
	Width      int     `yaml:"width"` // raw YUV and resize target
	Height     int     `yaml:"height"`
	FPS        float64 `yaml:"fps"`
	StartFrame int     `yaml:"start_frame"`
	FrameCount int     `yaml:"frame_count"`

	// Stream structure
	Pattern   string `yaml:"pattern"`
	GOPSize   int    `yaml:"gop_size"`
	Slices    int    `yaml:"slices"`
	Aspect    int    `yaml:"aspect"`
	ForceLast bool   `yaml:"force_last"`
	UserData  string `yaml:"user_data"`

	// Quantization
	QScale         QScaleConfig `yaml:"qscale"`
	IntraMatrix    []int        `yaml:"intra_matrix"`
	NonIntraMatrix []int        `yaml:"non_intra_matrix"`

	// Motion
	Motion MotionConfig `yaml:"motion"`

	// Rate control
	BitRate    int `yaml:"bitrate"` // bits per second, 0 for fixed quantizer
	BufferSize int `yaml:"buffer_size"`

	Thresholds   mode.Thresholds `yaml:"thresholds"`
	BInheritSkip bool            `yaml:"b_inherit_skip"`

	// Execution
	Workers      int `yaml:"workers"`
	ReadRetries  int `yaml:"read_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms"`

	// Debug
	PSNR     bool   `yaml:"psnr"`
	Verify   bool   `yaml:"verify"`
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
}

// QScaleConfig holds the fixed quantizer scale per picture type.
type QScaleConfig struct {
	I int `yaml:"i"`
	P int `yaml:"p"`
	B int `yaml:"b"`
}

// MotionConfig selects the motion search.
type MotionConfig struct {
	RangeP    int    `yaml:"range_p"`
	RangeB    int    `yaml:"range_b"`
	Precision string `yaml:"precision"` // half or full
	PSearch   string `yaml:"p_search"`
	BSearch   string `yaml:"b_search"`
	Metric    string `yaml:"metric"`
	Reference string `yaml:"reference"` // decoded or original
}

// Defaults returns a Config with default values.
func Defaults() Config {
	enc := encoder.DefaultConfig(0, 0)
	return Config{
		OutputPath: "output.m1v",

		Pattern: enc.Pattern,
		GOPSize: enc.GOPSize,
		Slices:  enc.SlicesPerFrame,
		Aspect:  enc.AspectCode,

		QScale: QScaleConfig{I: enc.QScale.I, P: enc.QScale.P, B: enc.QScale.B},

		Motion: MotionConfig{
			RangeP:    enc.SearchRangeP,
			RangeB:    enc.SearchRangeB,
			Precision: "half",
			PSearch:   enc.PSearch.String(),
			BSearch:   enc.BSearch.String(),
			Metric:    enc.Metric.String(),
			Reference: enc.Reference.String(),
		},

		Thresholds:   enc.Thresholds,
		BInheritSkip: enc.BInheritSkip,

		ReadRetries:  enc.ReadRetries,
		RetryDelayMs: int(enc.RetryDelay / time.Millisecond),

		Verify:   true,
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file. Keys missing from
// the file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ParseMatrix converts a 64-entry list in natural order to a quantizer
// matrix. An empty list returns nil so the default matrix is used.
func ParseMatrix(values []int) (*[64]uint8, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) != 64 {
		return nil, fmt.Errorf("quantizer matrix has %d entries, want 64", len(values))
	}
	var m [64]uint8
	for i, v := range values {
		if v < 1 || v > 255 {
			return nil, fmt.Errorf("quantizer matrix entry %d is %d, want 1-255", i, v)
		}
		m[i] = uint8(v)
	}
	return &m, nil
}

// EncoderConfig converts the encoding settings to encoder.Config. Width
// and Height are left for the orchestrator to fill from the source.
func (c Config) EncoderConfig() (encoder.Config, error) {
	enc := encoder.DefaultConfig(c.Width, c.Height)
	enc.Pattern = c.Pattern
	enc.GOPSize = c.GOPSize
	enc.SlicesPerFrame = c.Slices
	enc.AspectCode = c.Aspect
	enc.ForceEncodeLast = c.ForceLast
	enc.UserData = c.UserData
	if c.FPS > 0 {
		enc.FrameRate = c.FPS
	}

	enc.QScale = encoder.QScales{I: c.QScale.I, P: c.QScale.P, B: c.QScale.B}
	var err error
	if enc.IntraMatrix, err = ParseMatrix(c.IntraMatrix); err != nil {
		return enc, fmt.Errorf("intra_matrix: %w", err)
	}
	if enc.NonIntraMatrix, err = ParseMatrix(c.NonIntraMatrix); err != nil {
		return enc, fmt.Errorf("non_intra_matrix: %w", err)
	}

	enc.SearchRangeP = c.Motion.RangeP
	enc.SearchRangeB = c.Motion.RangeB
	switch c.Motion.Precision {
	case "", "half":
		enc.HalfPel = true
	case "full":
		enc.HalfPel = false
	default:
		return enc, fmt.Errorf("unknown motion precision %q", c.Motion.Precision)
	}
	if c.Motion.PSearch != "" {
		if enc.PSearch, err = motion.ParsePSearch(c.Motion.PSearch); err != nil {
			return enc, err
		}
	}
	if c.Motion.BSearch != "" {
		if enc.BSearch, err = motion.ParseBSearch(c.Motion.BSearch); err != nil {
			return enc, err
		}
	}
	if c.Motion.Metric != "" {
		if enc.Metric, err = motion.ParseMetric(c.Motion.Metric); err != nil {
			return enc, err
		}
	}
	if c.Motion.Reference != "" {
		if enc.Reference, err = encoder.ParseReferenceMode(c.Motion.Reference); err != nil {
			return enc, err
		}
	}

	enc.BitRate = c.BitRate
	enc.BufferSize = c.BufferSize
	enc.Thresholds = c.Thresholds
	enc.BInheritSkip = c.BInheritSkip

	enc.ComputePSNR = c.PSNR
	enc.Workers = c.Workers
	enc.ReadRetries = c.ReadRetries
	enc.RetryDelay = time.Duration(c.RetryDelayMs) * time.Millisecond
	return enc, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() (orchestrator.Config, error) {
	enc, err := c.EncoderConfig()
	if err != nil {
		return orchestrator.Config{}, err
	}
	return orchestrator.Config{
		InputName:  c.Input,
		OutputPath: c.OutputPath,

		StartFrame: c.StartFrame,
		FrameCount: c.FrameCount,

		Encoder:   enc,
		FrameRate: c.FPS,

		SaveReconstructed: c.Debug,
		Verify:            c.Verify,
	}, nil
}
