// Package patternsource draws a synthetic test sequence: a gradient
// background with shapes moving at known speeds and a frame counter.
package patternsource

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/user/mpeg1enc/pkg/ports"
)

// Options configures the generated sequence.
type Options struct {
	Width     int
	Height    int
	Frames    int
	FrameRate float64
	// Speed is the horizontal motion of the ball in samples per frame.
	Speed int
	// Label draws the frame number in the top left corner.
	Label bool
}

// Source implements ports.FrameSource by drawing each frame on demand.
type Source struct {
	renderer ports.Renderer
	opts     Options
}

// New creates a pattern source. Non-positive sizes fall back to 352x240.
func New(renderer ports.Renderer, opts Options) *Source {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 352, 240
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	return &Source{renderer: renderer, opts: opts}
}

func (s *Source) Info(ctx context.Context) (ports.SourceInfo, error) {
	return ports.SourceInfo{
		Width:      s.opts.Width,
		Height:     s.opts.Height,
		FrameCount: s.opts.Frames,
		FrameRate:  s.opts.FrameRate,
	}, nil
}

// ReadFrame draws frame index. The same index always gives the same image.
func (s *Source) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || index >= s.opts.Frames {
		return nil, fmt.Errorf("frame %d outside %d frames", index, s.opts.Frames)
	}
	w, h := s.opts.Width, s.opts.Height
	c := s.renderer.CreateCanvas(w, h, color.Black)
	c.DrawGradient(color.RGBA{R: 20, G: 40, B: 90, A: 255}, color.RGBA{R: 200, G: 160, B: 60, A: 255})

	// horizon bands give the vertical detail motion search locks onto
	for y := h / 8; y < h; y += max(h/4, 1) {
		c.DrawLine(0, y, w, y, color.RGBA{R: 230, G: 230, B: 230, A: 255}, 1)
	}

	r := max(h/8, 4)
	span := w + 2*r
	x := (index*s.opts.Speed)%span - r
	c.DrawCircle(x, h/2, r, color.RGBA{R: 220, G: 30, B: 30, A: 255})

	bw := max(w/6, 8)
	by := (index * 2) % max(h-bw, 1)
	c.DrawRect(w-bw-w/10, by, bw, bw, color.RGBA{R: 40, G: 200, B: 90, A: 255})

	if s.opts.Label {
		c.DrawText(fmt.Sprintf("%04d", index), 8, 12, ports.TextStyle{FontSize: 12, Color: color.White})
	}
	return c.ToImage(), nil
}

var _ ports.FrameSource = (*Source)(nil)
