package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/user/mpeg1enc/pkg/mpeg/inspect"
	"github.com/user/mpeg1enc/pkg/mpeg/motion"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
	"github.com/user/mpeg1enc/pkg/ports"
)

// memSource serves generated frames and can fail a number of reads.
type memSource struct {
	width, height int
	frames        []image.Image
	failures      map[int]int
	reads         int
}

func (s *memSource) Info(ctx context.Context) (ports.SourceInfo, error) {
	return ports.SourceInfo{Width: s.width, Height: s.height, FrameCount: len(s.frames), FrameRate: 25}, nil
}

func (s *memSource) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	s.reads++
	if s.failures[index] > 0 {
		s.failures[index]--
		return nil, fmt.Errorf("frame %d not ready", index)
	}
	if index < 0 || index >= len(s.frames) {
		return nil, fmt.Errorf("frame %d out of range", index)
	}
	return s.frames[index], nil
}

// newSource generates n frames with fill(t, x, y) as luminance and flat
// chrominance.
func newSource(width, height, n int, fill func(t, x, y int) uint8) *memSource {
	s := &memSource{width: width, height: height, failures: map[int]int{}}
	for t := 0; t < n; t++ {
		img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				img.Y[y*img.YStride+x] = fill(t, x, y)
			}
		}
		for i := range img.Cb {
			img.Cb[i] = 128
			img.Cr[i] = 128
		}
		s.frames = append(s.frames, img)
	}
	return s
}

func flat(t, x, y int) uint8 { return 128 }

// moving is a smooth pattern drifting two samples right per frame.
func moving(t, x, y int) uint8 {
	v := 128 + 60*((x-2*t+y/2+64)%32-16)/16
	return uint8(v)
}

func uniformMatrix(v uint8) *[64]uint8 {
	var m [64]uint8
	for i := range m {
		m[i] = v
	}
	return &m
}

func testConfig(width, height int) Config {
	cfg := DefaultConfig(width, height)
	cfg.SearchRangeP = 4
	cfg.SearchRangeB = 4
	cfg.Workers = 2
	cfg.RetryDelay = 0
	return cfg
}

func encode(t *testing.T, cfg Config, src ports.FrameSource) (*Result, *inspect.Stream) {
	t.Helper()
	res, err := Encode(context.Background(), cfg, src, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	stream, err := inspect.Parse(res.Data, inspect.Options{KeepMacroblocks: true})
	if err != nil {
		t.Fatalf("inspect.Parse() error = %v", err)
	}
	if !stream.Ended {
		t.Fatal("stream has no sequence end code")
	}
	return res, stream
}

func TestConfig_Validate(t *testing.T) {
	base := testConfig(64, 48)
	if err := base.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	tests := map[string]func(c *Config){
		"zero width":       func(c *Config) { c.Width = 0 },
		"too tall":         func(c *Config) { c.Height = 4096 },
		"frame rate":       func(c *Config) { c.FrameRate = 0 },
		"aspect":           func(c *Config) { c.AspectCode = 15 },
		"pattern":          func(c *Config) { c.Pattern = "IXP" },
		"gop":              func(c *Config) { c.GOPSize = 0 },
		"slices":           func(c *Config) { c.SlicesPerFrame = 0 },
		"q low":            func(c *Config) { c.QScale.P = 0 },
		"q high":           func(c *Config) { c.QScale.B = 32 },
		"range":            func(c *Config) { c.SearchRangeP = 512 },
		"bit rate":         func(c *Config) { c.BitRate = -1 },
		"matrix":           func(c *Config) { c.IntraMatrix = &[64]uint8{} },
		"workers":          func(c *Config) { c.Workers = -1 },
		"frame range":      func(c *Config) { c.StartFrame = -1 },
		"user data prefix": func(c *Config) { c.UserData = "a\x00\x00\x01b" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(64, 48)
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestParseReferenceMode(t *testing.T) {
	if m, err := ParseReferenceMode("original"); err != nil || m != ReferenceOriginal {
		t.Errorf("ParseReferenceMode(original) = %v, %v", m, err)
	}
	if _, err := ParseReferenceMode("future"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("ParseReferenceMode(future) error = %v", err)
	}
}

func TestContext_Encode_FlatPredictedPictureSkips(t *testing.T) {
	cfg := testConfig(48, 32)
	cfg.Pattern = "IP"
	_, stream := encode(t, cfg, newSource(48, 32, 2, flat))

	if len(stream.Pictures) != 2 {
		t.Fatalf("pictures = %d, want 2", len(stream.Pictures))
	}
	p := stream.Pictures[1]
	if p.Type != syntax.PictureP {
		t.Fatalf("second picture type = %v, want P", p.Type)
	}
	if p.Intra != 0 {
		t.Errorf("P picture has %d intra macroblocks, want 0", p.Intra)
	}
	// The first and last macroblocks of the slice must be coded.
	if p.Skipped != 4 || p.Inter != 2 || p.CodedBlocks != 0 {
		t.Errorf("P picture: %d skipped, %d inter, %d blocks; want 4, 2, 0", p.Skipped, p.Inter, p.CodedBlocks)
	}
	for _, mb := range p.Macroblocks {
		if !mb.Forward.IsZero() {
			t.Errorf("macroblock %d vector %+v, want zero", mb.Address, mb.Forward)
		}
	}
}

func TestContext_Encode_FlatSlicesKeepEdgesCoded(t *testing.T) {
	cfg := testConfig(48, 32)
	cfg.Pattern = "IP"
	cfg.SlicesPerFrame = 2
	_, stream := encode(t, cfg, newSource(48, 32, 2, flat))
	p := stream.Pictures[1]
	if p.Slices != 2 {
		t.Fatalf("slices = %d, want 2", p.Slices)
	}
	// Each three-macroblock slice codes its first and last macroblock.
	if p.Skipped != 2 || p.Inter != 4 {
		t.Errorf("P picture: %d skipped, %d inter; want 2, 4", p.Skipped, p.Inter)
	}
}

func TestContext_Encode_ReferenceCodedBeforeBidirectional(t *testing.T) {
	cfg := testConfig(32, 32)
	cfg.Pattern = "IBP"
	res, stream := encode(t, cfg, newSource(32, 32, 3, moving))

	var types []syntax.PictureType
	var refs []int
	for _, p := range stream.Pictures {
		types = append(types, p.Type)
		refs = append(refs, p.TemporalReference)
	}
	want := []syntax.PictureType{syntax.PictureI, syntax.PictureP, syntax.PictureB}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("coding order types = %v, want %v", types, want)
	}
	if fmt.Sprint(refs) != "[0 2 1]" {
		t.Errorf("temporal references = %v, want [0 2 1]", refs)
	}
	if fmt.Sprint(stream.DisplayOrder()) != "[0 2 1]" {
		t.Errorf("DisplayOrder() = %v", stream.DisplayOrder())
	}
	if len(res.AccessUnits) != 4 || res.AccessUnits[3] != len(res.Data) {
		t.Errorf("AccessUnits = %v for %d bytes", res.AccessUnits, len(res.Data))
	}
}

// overflowFrame is flat except for a vertical edge in the first luminance
// block of macroblock 1, whose first horizontal AC coefficient does not
// fit a level at quantizer scale 1.
func overflowFrame(t, x, y int) uint8 {
	if y < 8 && x >= 16 && x < 24 {
		if x < 20 {
			return 255
		}
		return 0
	}
	return 128
}

func TestContext_Encode_OverflowRaisesScaleForOneMacroblock(t *testing.T) {
	cfg := testConfig(48, 16)
	cfg.Pattern = "I"
	cfg.QScale = QScales{I: 1, P: 1, B: 1}
	res, stream := encode(t, cfg, newSource(48, 16, 1, overflowFrame))

	mbs := stream.Pictures[0].Macroblocks
	if len(mbs) != 3 {
		t.Fatalf("macroblocks = %d, want 3", len(mbs))
	}
	if mbs[0].QScale != 1 || mbs[0].Flags&syntax.MBQuant != 0 {
		t.Errorf("macroblock 0: q %d flags %#x, want q 1 without quant", mbs[0].QScale, mbs[0].Flags)
	}
	if mbs[1].QScale != 2 || mbs[1].Flags&syntax.MBQuant == 0 {
		t.Errorf("macroblock 1: q %d flags %#x, want q 2 with quant", mbs[1].QScale, mbs[1].Flags)
	}
	if mbs[2].QScale != 1 || mbs[2].Flags&syntax.MBQuant == 0 {
		t.Errorf("macroblock 2: q %d flags %#x, want q 1 with quant", mbs[2].QScale, mbs[2].Flags)
	}
	if res.Stats.QuantRetries != 1 || res.Stats.Saturated != 0 {
		t.Errorf("QuantRetries = %d, Saturated = %d; want 1, 0", res.Stats.QuantRetries, res.Stats.Saturated)
	}
}

func TestContext_Encode_DropsTrailingBidirectional(t *testing.T) {
	cfg := testConfig(32, 32)
	cfg.Pattern = "IBBPBB"
	res, stream := encode(t, cfg, newSource(32, 32, 6, moving))
	if res.Truncated() != 2 || res.Stats.Truncated != 2 {
		t.Errorf("Truncated() = %d, stats %d; want 2", res.Truncated(), res.Stats.Truncated)
	}
	if len(stream.Pictures) != 4 {
		t.Fatalf("pictures = %d, want 4", len(stream.Pictures))
	}
	if fmt.Sprint(stream.DisplayOrder()) != "[0 2 3 1]" {
		t.Errorf("DisplayOrder() = %v, want [0 2 3 1]", stream.DisplayOrder())
	}

	cfg.ForceEncodeLast = true
	res, stream = encode(t, cfg, newSource(32, 32, 6, moving))
	if res.Truncated() != 0 || len(stream.Pictures) != 6 {
		t.Errorf("forced: Truncated() = %d, pictures = %d; want 0, 6", res.Truncated(), len(stream.Pictures))
	}
}

func TestContext_Encode_MacroblockCountsAgree(t *testing.T) {
	tests := map[string]func(c *Config){
		"default":     func(c *Config) {},
		"full pel":    func(c *Config) { c.HalfPel = false },
		"original":    func(c *Config) { c.Reference = ReferenceOriginal },
		"exhaustive":  func(c *Config) { c.PSearch = motion.Exhaustive; c.BSearch = motion.BExhaustive },
		"slices":      func(c *Config) { c.SlicesPerFrame = 3 },
		"rate":        func(c *Config) { c.BitRate = 400_000 },
		"no inherit":  func(c *Config) { c.BInheritSkip = false },
		"short gop":   func(c *Config) { c.GOPSize = 3; c.Pattern = "IBBPBB" },
		"custom":      func(c *Config) { c.NonIntraMatrix = uniformMatrix(20) },
		"single work": func(c *Config) { c.Workers = 1 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig(64, 48)
			cfg.ForceEncodeLast = true
			mutate(&cfg)
			res, stream := encode(t, cfg, newSource(64, 48, 10, moving))
			if len(stream.Pictures) != 10 {
				t.Fatalf("pictures = %d, want 10", len(stream.Pictures))
			}
			for _, p := range stream.Pictures {
				if p.MacroblockCount() != 12 {
					t.Errorf("picture %d: %d macroblocks, want 12", p.CodingIndex, p.MacroblockCount())
				}
			}
			total := 0
			for _, k := range res.Stats.Kinds {
				total += k.Frames
			}
			if total != 10 || len(res.Stats.Frames) != 10 {
				t.Errorf("stats cover %d/%d frames, want 10", total, len(res.Stats.Frames))
			}
			if res.Stats.TotalBits != int64(len(res.Data))*8 {
				t.Errorf("TotalBits = %d, data %d bytes", res.Stats.TotalBits, len(res.Data))
			}
		})
	}
}

func TestContext_Encode_RateControlWritesBitRate(t *testing.T) {
	cfg := testConfig(64, 48)
	cfg.BitRate = 400_000
	_, stream := encode(t, cfg, newSource(64, 48, 4, moving))
	if stream.Sequence.BitRate != 1000 {
		t.Errorf("bit_rate = %d, want 1000", stream.Sequence.BitRate)
	}
	for _, p := range stream.Pictures {
		if p.VBVDelay == 0xFFFF {
			t.Errorf("picture %d has variable-rate vbv_delay", p.CodingIndex)
		}
	}
}

func TestContext_Encode_RateControlGOPBudget(t *testing.T) {
	for _, rate := range []int{200_000, 400_000, 1_000_000} {
		t.Run(fmt.Sprint(rate), func(t *testing.T) {
			cfg := testConfig(64, 48)
			cfg.BitRate = rate
			cfg.Pattern = "IBBP"
			cfg.GOPSize = 4
			cfg.ForceEncodeLast = true
			res, _ := encode(t, cfg, newSource(64, 48, 13, moving))

			fps := syntax.PictureRates[cfg.RateCode()]
			floor := float64(rate) / (8 * fps)
			var remaining, spent float64
			gops := 0
			check := func() {
				if over := spent - remaining; over > floor {
					t.Errorf("gop %d spent %.0f bits, budget %.0f, overshoot %.0f > %.0f", gops, spent, remaining, over, floor)
				}
				remaining -= spent
				spent = 0
			}
			for ci, step := range res.Plan.Steps {
				if step.GOPStart {
					if ci > 0 {
						check()
					}
					gops++
					n := step.Counts[0] + step.Counts[1] + step.Counts[2]
					remaining += float64(rate) * float64(n) / fps
				}
				spent += float64(res.Stats.Frames[ci].Bits)
			}
			check()
			if gops < 3 {
				t.Errorf("stream has %d groups, want at least 3", gops)
			}
		})
	}
}

func TestContext_Encode_FullPelCodesFullSampleVectors(t *testing.T) {
	cfg := testConfig(64, 48)
	cfg.HalfPel = false
	cfg.SearchRangeP = 8
	cfg.Pattern = "IP"
	res, err := Encode(context.Background(), cfg, newSource(64, 48, 4, moving), nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	stream, err := inspect.Parse(res.Data, inspect.Options{KeepMacroblocks: true})
	if err != nil {
		t.Fatalf("inspect.Parse() error = %v", err)
	}

	moved := false
	for _, p := range stream.Pictures {
		if p.Type != syntax.PictureP {
			continue
		}
		// Range 8 needs f_code 2 in half samples but fits f_code 1 in full samples.
		if !p.FullPelForward || p.ForwardFCode != 1 {
			t.Errorf("picture %d: full_pel_forward = %v, f_code = %d; want true, 1", p.CodingIndex, p.FullPelForward, p.ForwardFCode)
		}
		for _, mb := range p.Macroblocks {
			v := mb.Forward
			if v.V&1 != 0 || v.H&1 != 0 {
				t.Errorf("picture %d macroblock %d: vector %+v is not on a full sample", p.CodingIndex, mb.Address, v)
			}
			if mb.Flags&syntax.MBForward != 0 && (v.V != 0 || v.H != 0) {
				moved = true
			}
		}
	}
	if !moved {
		t.Error("no macroblock carries a nonzero forward vector")
	}
}

func TestContext_Encode_PSNRAndReconstruction(t *testing.T) {
	cfg := testConfig(48, 32)
	cfg.Pattern = "IBP"
	cfg.ComputePSNR = true
	c, err := NewContext(cfg, nil)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	var seen []int
	c.OnReconstructed(func(display int, img image.Image) {
		if img.Bounds().Dx() != 48 || img.Bounds().Dy() != 32 {
			t.Errorf("reconstruction %d is %v", display, img.Bounds())
		}
		seen = append(seen, display)
	})
	res, err := c.Encode(context.Background(), newSource(48, 32, 3, flat))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if fmt.Sprint(seen) != "[0 2 1]" {
		t.Errorf("reconstructed frames = %v, want [0 2 1]", seen)
	}
	for _, f := range res.Stats.Frames {
		if f.PSNRY != 99 {
			t.Errorf("frame %d PSNR = %.2f, want 99 for flat content", f.Display, f.PSNRY)
		}
	}
}

func TestContext_Encode_RetriesFrameReads(t *testing.T) {
	cfg := testConfig(32, 16)
	cfg.Pattern = "I"
	cfg.ReadRetries = 2
	src := newSource(32, 16, 2, flat)
	src.failures[1] = 2
	res, err := Encode(context.Background(), cfg, src, nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if res.Stats.ReadRetries != 2 {
		t.Errorf("ReadRetries = %d, want 2", res.Stats.ReadRetries)
	}

	src = newSource(32, 16, 2, flat)
	src.failures[1] = 3
	res, err = Encode(context.Background(), cfg, src, nil)
	if !errors.Is(err, ErrFrameUnavailable) {
		t.Fatalf("Encode() error = %v, want ErrFrameUnavailable", err)
	}
	if res != nil {
		t.Error("failed encode returned a result")
	}
}

func TestContext_Encode_RejectsRangeBeyondSource(t *testing.T) {
	cfg := testConfig(32, 16)
	cfg.StartFrame = 1
	cfg.FrameCount = 2
	src := newSource(32, 16, 2, flat)
	if _, err := Encode(context.Background(), cfg, src, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Encode() error = %v, want ErrInvalidConfig", err)
	}
	if src.reads != 0 {
		t.Errorf("source read %d times before the range was rejected", src.reads)
	}

	cfg = testConfig(48, 16)
	if _, err := Encode(context.Background(), cfg, src, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("size mismatch: error = %v, want ErrInvalidConfig", err)
	}
}

func TestContext_Encode_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Encode(ctx, testConfig(32, 16), newSource(32, 16, 2, flat), nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Encode() error = %v, want context.Canceled", err)
	}
}

func TestContext_Encode_UserDataAndGOP(t *testing.T) {
	cfg := testConfig(32, 16)
	cfg.UserData = "mpeg1enc"
	cfg.Pattern = "IPP"
	cfg.GOPSize = 3
	_, stream := encode(t, cfg, newSource(32, 16, 7, moving))
	if len(stream.UserData) != 1 || string(stream.UserData[0]) != "mpeg1enc" {
		t.Errorf("user data = %q", stream.UserData)
	}
	if len(stream.GOPs) != 3 {
		t.Fatalf("GOPs = %d, want 3", len(stream.GOPs))
	}
	for i, g := range stream.GOPs {
		if !g.Closed {
			t.Errorf("GOP %d not closed without B pictures", i)
		}
	}
	if tc := stream.GOPs[1].TimeCode; tc.Pictures != 3 {
		t.Errorf("second GOP time code pictures = %d, want 3", tc.Pictures)
	}
}
