// Package mpeg1encoder adapts the MPEG-1 encoder to ports.VideoEncoder for
// callers that push frames one at a time.
package mpeg1encoder

import (
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/ports"
)

// ErrNotStarted is returned when frames arrive before Begin.
var ErrNotStarted = errors.New("encoder not started")

// Encoder buffers frames between Begin and End and encodes them as one
// stream. Coding order needs future frames, so nothing is emitted before
// End.
type Encoder struct {
	base   encoder.Config
	logger ports.Logger

	cfg    *encoder.Config
	frames []image.Image
	lastTs int
	result *encoder.Result
}

// New creates an adapter. base supplies every setting EncoderOptions
// does not cover; its size and frame rate are replaced in Begin.
func New(base encoder.Config, logger ports.Logger) *Encoder {
	return &Encoder{base: base, logger: logger}
}

// Begin starts a new stream.
func (e *Encoder) Begin(width, height int, fps float64, opts ports.EncoderOptions) error {
	cfg := e.base
	cfg.Width, cfg.Height, cfg.FrameRate = width, height, fps
	if opts.Bitrate > 0 {
		cfg.BitRate = opts.Bitrate * 1000
	}
	if opts.QScale > 0 {
		cfg.QScale = encoder.QScales{I: opts.QScale, P: opts.QScale, B: opts.QScale}
	}
	if opts.Pattern != "" {
		cfg.Pattern = opts.Pattern
	}
	if opts.GOPSize > 0 {
		cfg.GOPSize = opts.GOPSize
	}
	cfg.StartFrame, cfg.FrameCount = 0, 0
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = &cfg
	e.frames = nil
	e.lastTs = -1
	e.result = nil
	return nil
}

// EncodeFrame copies img into the pending stream. Timestamps must not
// decrease.
func (e *Encoder) EncodeFrame(img image.Image, timestampMs int) error {
	if e.cfg == nil {
		return ErrNotStarted
	}
	if timestampMs < e.lastTs {
		return fmt.Errorf("timestamp %d ms before previous %d ms", timestampMs, e.lastTs)
	}
	b := img.Bounds()
	if b.Dx() != e.cfg.Width || b.Dy() != e.cfg.Height {
		return fmt.Errorf("frame is %dx%d, stream is %dx%d", b.Dx(), b.Dy(), e.cfg.Width, e.cfg.Height)
	}
	cp := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(cp, cp.Bounds(), img, b.Min, draw.Src)
	e.frames = append(e.frames, cp)
	e.lastTs = timestampMs
	return nil
}

// End encodes the buffered frames and returns the elementary stream.
func (e *Encoder) End() ([]byte, error) {
	if e.cfg == nil {
		return nil, ErrNotStarted
	}
	cfg := *e.cfg
	e.cfg = nil
	if len(e.frames) == 0 {
		return nil, fmt.Errorf("no frames to encode")
	}

	src := &memorySource{width: cfg.Width, height: cfg.Height, fps: cfg.FrameRate, frames: e.frames}
	e.frames = nil
	res, err := encoder.Encode(context.Background(), cfg, src, e.logger)
	if err != nil {
		return nil, err
	}
	e.result = res
	return res.Data, nil
}

// Result returns the last completed encode, or nil.
func (e *Encoder) Result() *encoder.Result {
	return e.result
}

var _ ports.VideoEncoder = (*Encoder)(nil)

type memorySource struct {
	width, height int
	fps           float64
	frames        []image.Image
}

func (s *memorySource) Info(ctx context.Context) (ports.SourceInfo, error) {
	return ports.SourceInfo{Width: s.width, Height: s.height, FrameCount: len(s.frames), FrameRate: s.fps}, nil
}

func (s *memorySource) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || index >= len(s.frames) {
		return nil, fmt.Errorf("frame %d outside %d frames", index, len(s.frames))
	}
	return s.frames[index], nil
}
