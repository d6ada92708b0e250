// Package preset provides named encoder presets and a fluent builder over
// encoder.Config.
package preset

import (
	"fmt"

	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
)

// Name identifies an encoder preset.
type Name string

const (
	Default Name = "default"
	VCD     Name = "vcd"
	Draft   Name = "draft"
	Archive Name = "archive"
)

// Names lists the presets in the order they are documented.
var Names = []Name{Default, VCD, Draft, Archive}

// Parse converts a preset name.
func Parse(s string) (Name, error) {
	if s == "" {
		return Default, nil
	}
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return Default, fmt.Errorf("unknown preset %q", s)
}

// maxRange is the widest full-sample search radius f_code 7 can carry.
const maxRange = 511

// ConfigBuilder provides a fluent interface for building encoder.Config.
type ConfigBuilder struct {
	config encoder.Config
}

// NewConfigBuilder creates a builder starting from the default preset.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: encoder.DefaultConfig(0, 0)}
}

// NewConfigBuilderFrom creates a builder starting from cfg, typically one
// loaded from a configuration file.
func NewConfigBuilderFrom(cfg encoder.Config) *ConfigBuilder {
	return &ConfigBuilder{config: cfg}
}

// NewPresetBuilder creates a builder starting from a named preset.
func NewPresetBuilder(name Name) *ConfigBuilder {
	b := NewConfigBuilder()
	switch name {
	case VCD:
		// Video CD: SIF resolution at 1150 kbit/s.
		b.config.Width, b.config.Height = 352, 240
		b.config.FrameRate = 29.97
		b.config.Pattern = "IBBPBBPBBPBBPBB"
		b.config.GOPSize = 15
		b.config.BitRate = 1150000
		b.config.BufferSize = 40 * 1024 * 8
	case Draft:
		b.config.Pattern = "IPPPPPPPPPPP"
		b.config.QScale = encoder.QScales{I: 12, P: 14, B: 28}
		b.config.SearchRangeP = 7
		b.config.HalfPel = false
		b.config.PSearch = motion.Subsample
		b.config.Reference = encoder.ReferenceOriginal
	case Archive:
		b.config.QScale = encoder.QScales{I: 3, P: 5, B: 8}
		b.config.SearchRangeP, b.config.SearchRangeB = 16, 16
		b.config.PSearch = motion.Exhaustive
		b.config.BSearch = motion.BExhaustive
		b.config.BInheritSkip = false
		b.config.ComputePSNR = true
	}
	return b
}

// Build returns the final Config, applying constraints. Quantizer scales
// are clamped to 1-31 and search ranges to 1-511.
func (b *ConfigBuilder) Build() encoder.Config {
	cfg := b.config

	cfg.QScale.I = clamp(cfg.QScale.I, 1, 31)
	cfg.QScale.P = clamp(cfg.QScale.P, 1, 31)
	cfg.QScale.B = clamp(cfg.QScale.B, 1, 31)
	cfg.SearchRangeP = clamp(cfg.SearchRangeP, 1, maxRange)
	cfg.SearchRangeB = clamp(cfg.SearchRangeB, 1, maxRange)

	if cfg.GOPSize < 1 {
		cfg.GOPSize = 1
	}
	if cfg.SlicesPerFrame < 1 {
		cfg.SlicesPerFrame = 1
	}
	if cfg.BitRate < 0 {
		cfg.BitRate = 0
	}

	return cfg
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// WithSize sets the picture size.
func (b *ConfigBuilder) WithSize(width, height int) *ConfigBuilder {
	b.config.Width, b.config.Height = width, height
	return b
}

// WithFrameRate sets the frame rate; it is mapped to the nearest legal
// picture rate when encoding.
func (b *ConfigBuilder) WithFrameRate(fps float64) *ConfigBuilder {
	b.config.FrameRate = fps
	return b
}

// WithPattern sets the frame kind pattern in display order.
func (b *ConfigBuilder) WithPattern(pattern string) *ConfigBuilder {
	b.config.Pattern = pattern
	return b
}

// WithGOPSize sets the minimum number of pictures between GOP headers.
func (b *ConfigBuilder) WithGOPSize(n int) *ConfigBuilder {
	b.config.GOPSize = n
	return b
}

// WithSlices sets the number of slices per picture.
func (b *ConfigBuilder) WithSlices(n int) *ConfigBuilder {
	b.config.SlicesPerFrame = n
	return b
}

// WithQScale sets the fixed quantizer scale per picture type.
// Values outside 1-31 are clamped by Build.
func (b *ConfigBuilder) WithQScale(i, p, bq int) *ConfigBuilder {
	b.config.QScale = encoder.QScales{I: i, P: p, B: bq}
	return b
}

// WithSearchRange sets the full-sample search radius for P and B pictures.
func (b *ConfigBuilder) WithSearchRange(p, bRange int) *ConfigBuilder {
	b.config.SearchRangeP, b.config.SearchRangeB = p, bRange
	return b
}

// WithHalfPel enables or disables half-sample refinement.
func (b *ConfigBuilder) WithHalfPel(on bool) *ConfigBuilder {
	b.config.HalfPel = on
	return b
}

// WithSearch selects the P and B search algorithms and the cost metric.
func (b *ConfigBuilder) WithSearch(p motion.PSearch, bs motion.BSearch, m motion.Metric) *ConfigBuilder {
	b.config.PSearch, b.config.BSearch, b.config.Metric = p, bs, m
	return b
}

// WithReference selects decoded or original reference frames.
func (b *ConfigBuilder) WithReference(m encoder.ReferenceMode) *ConfigBuilder {
	b.config.Reference = m
	return b
}

// WithBitRate enables rate control at bitsPerSec; 0 selects fixed quantizers.
func (b *ConfigBuilder) WithBitRate(bitsPerSec int) *ConfigBuilder {
	b.config.BitRate = bitsPerSec
	return b
}

// WithBufferSize sets the decoder buffer size in bits.
func (b *ConfigBuilder) WithBufferSize(bits int) *ConfigBuilder {
	b.config.BufferSize = bits
	return b
}

// WithPSNR enables quality measurement.
func (b *ConfigBuilder) WithPSNR(on bool) *ConfigBuilder {
	b.config.ComputePSNR = on
	return b
}

// WithForceLast encodes trailing frames as P pictures instead of dropping them.
func (b *ConfigBuilder) WithForceLast(on bool) *ConfigBuilder {
	b.config.ForceEncodeLast = on
	return b
}

// WithWorkers bounds the analysis goroutines.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	b.config.Workers = n
	return b
}

// WithUserData embeds a user data string after the sequence header.
func (b *ConfigBuilder) WithUserData(s string) *ConfigBuilder {
	b.config.UserData = s
	return b
}

// KbpsToBits converts kilobits per second to bits per second.
func KbpsToBits(kbps float64) int {
	return int(kbps * 1000)
}
