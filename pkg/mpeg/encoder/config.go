// Package encoder turns a frame source into an MPEG-1 video elementary
// stream. It owns the per-stream EncoderContext, the coding-order
// sequencer and the two-pass (parallel analysis, sequential emission)
// picture encoder.
package encoder

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/mpeg1enc/pkg/mpeg/frame"
	"github.com/user/mpeg1enc/pkg/mpeg/mode"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
)

var (
	// ErrInvalidConfig reports a configuration rejected before any bits are written.
	ErrInvalidConfig = errors.New("invalid encoder configuration")
	// ErrFrameUnavailable reports a frame the source failed to deliver
	// after all retries.
	ErrFrameUnavailable = errors.New("frame unavailable")
)

// ReferenceMode selects the samples motion search and prediction use.
type ReferenceMode int

const (
	// ReferenceDecoded predicts from reconstructed frames, as a decoder does.
	ReferenceDecoded ReferenceMode = iota
	// ReferenceOriginal predicts from source frames. Faster, but decoder
	// output drifts from the encoder's view.
	ReferenceOriginal
)

func (m ReferenceMode) String() string {
	if m == ReferenceOriginal {
		return "original"
	}
	return "decoded"
}

// ParseReferenceMode parses "decoded" or "original".
func ParseReferenceMode(s string) (ReferenceMode, error) {
	switch s {
	case "decoded", "":
		return ReferenceDecoded, nil
	case "original":
		return ReferenceOriginal, nil
	}
	return ReferenceDecoded, fmt.Errorf("%w: unknown reference mode %q", ErrInvalidConfig, s)
}

// QScales holds the base quantizer scale per frame kind.
type QScales struct {
	I int
	P int
	B int
}

// For returns the scale for kind.
func (q QScales) For(k frame.Kind) int {
	switch k {
	case frame.ForwardPredicted:
		return q.P
	case frame.BiPredicted:
		return q.B
	default:
		return q.I
	}
}

// Config holds all encoder parameters.
type Config struct {
	Width      int
	Height     int
	FrameRate  float64 // mapped to the nearest legal picture rate
	AspectCode int     // pel_aspect_ratio, 1 for square pels

	Pattern        string // frame kinds in display order, repeated; the first frame is always I
	GOPSize        int    // minimum pictures between GOP headers
	SlicesPerFrame int

	QScale QScales

	// SearchRangeP and SearchRangeB are full-sample search radii.
	SearchRangeP int
	SearchRangeB int
	HalfPel      bool
	PSearch      motion.PSearch
	BSearch      motion.BSearch
	Metric       motion.Metric
	Reference    ReferenceMode

	// BitRate in bits per second enables rate control; 0 keeps QScale fixed.
	BitRate int
	// BufferSize is the decoder buffer in bits, 0 for the default.
	BufferSize int

	IntraMatrix    *[64]uint8
	NonIntraMatrix *[64]uint8

	Thresholds mode.Thresholds
	// BInheritSkip lets B macroblocks reuse the previous macroblock's
	// prediction without coefficients when it is close enough.
	BInheritSkip bool

	ComputePSNR     bool
	ForceEncodeLast bool
	UserData        string

	// Workers bounds the analysis goroutines; 0 uses GOMAXPROCS.
	Workers     int
	ReadRetries int
	RetryDelay  time.Duration

	// StartFrame and FrameCount select the source range; FrameCount 0
	// means every frame from StartFrame on.
	StartFrame int
	FrameCount int
}

// defaultBufferSize is the constrained-parameters VBV size in bits.
const defaultBufferSize = 20 * 16384

// maxSearchRange keeps the half-sample vector limit within f_code 7.
const maxSearchRange = 511

// DefaultConfig returns a configuration for width x height at 25 fps.
func DefaultConfig(width, height int) Config {
	return Config{
		Width:          width,
		Height:         height,
		FrameRate:      25,
		AspectCode:     1,
		Pattern:        "IBBPBBPBBPBB",
		GOPSize:        12,
		SlicesPerFrame: 1,
		QScale:         QScales{I: 8, P: 10, B: 25},
		SearchRangeP:   10,
		SearchRangeB:   10,
		HalfPel:        true,
		PSearch:        motion.Logarithmic,
		BSearch:        motion.BCross2,
		Metric:         motion.SAD,
		Reference:      ReferenceDecoded,
		Thresholds:     mode.DefaultThresholds(),
		BInheritSkip:   true,
		ReadRetries:    3,
		RetryDelay:     100 * time.Millisecond,
	}
}

// Validate checks every field that can be checked without the source.
func (c *Config) Validate() error {
	if c.Width < 1 || c.Width > syntax.MaxDimension || c.Height < 1 || c.Height > syntax.MaxDimension {
		return fmt.Errorf("%w: picture size %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if _, mbh := frame.MacroblockDims(c.Width, c.Height); mbh > syntax.MaxSliceRows {
		return fmt.Errorf("%w: %d macroblock rows exceed the slice limit", ErrInvalidConfig, mbh)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate %g", ErrInvalidConfig, c.FrameRate)
	}
	if c.AspectCode < 1 || c.AspectCode >= len(syntax.AspectRatios) {
		return fmt.Errorf("%w: aspect code %d", ErrInvalidConfig, c.AspectCode)
	}
	if _, err := frame.ParsePattern(c.Pattern); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.GOPSize < 1 {
		return fmt.Errorf("%w: GOP size %d", ErrInvalidConfig, c.GOPSize)
	}
	if c.SlicesPerFrame < 1 {
		return fmt.Errorf("%w: %d slices per frame", ErrInvalidConfig, c.SlicesPerFrame)
	}
	for _, q := range []int{c.QScale.I, c.QScale.P, c.QScale.B} {
		if q < syntax.MinQScale || q > syntax.MaxQScale {
			return fmt.Errorf("%w: quantizer scale %d", ErrInvalidConfig, q)
		}
	}
	for _, r := range []int{c.SearchRangeP, c.SearchRangeB} {
		if r < 0 || r > maxSearchRange {
			return fmt.Errorf("%w: search range %d", ErrInvalidConfig, r)
		}
	}
	if c.BitRate < 0 || c.BufferSize < 0 {
		return fmt.Errorf("%w: bit rate %d, buffer size %d", ErrInvalidConfig, c.BitRate, c.BufferSize)
	}
	if c.BufferSize > 1023*16384 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidConfig, c.BufferSize)
	}
	for _, m := range []*[64]uint8{c.IntraMatrix, c.NonIntraMatrix} {
		if m == nil {
			continue
		}
		for i, v := range m {
			if v == 0 {
				return fmt.Errorf("%w: zero quantizer matrix entry at %d", ErrInvalidConfig, i)
			}
		}
	}
	if c.Workers < 0 || c.ReadRetries < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: negative worker, retry or delay setting", ErrInvalidConfig)
	}
	if c.StartFrame < 0 || c.FrameCount < 0 {
		return fmt.Errorf("%w: frame range %d+%d", ErrInvalidConfig, c.StartFrame, c.FrameCount)
	}
	if len(c.UserData) > 0 {
		for i := 0; i+2 < len(c.UserData); i++ {
			if c.UserData[i] == 0 && c.UserData[i+1] == 0 && c.UserData[i+2] == 1 {
				return fmt.Errorf("%w: user data contains a start code prefix", ErrInvalidConfig)
			}
		}
	}
	return nil
}

// RateCode returns the picture_rate code for the configured frame rate.
func (c *Config) RateCode() int {
	return syntax.RateCode(c.FrameRate)
}

// bufferSize returns the VBV buffer size in bits.
func (c *Config) bufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return defaultBufferSize
}

func (c *Config) motionConfig() motion.Config {
	return motion.Config{
		RangeP:  c.SearchRangeP,
		RangeB:  c.SearchRangeB,
		HalfPel: c.HalfPel,
		PSearch: c.PSearch,
		BSearch: c.BSearch,
		Metric:  c.Metric,
	}
}
