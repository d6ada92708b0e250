package encoder

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/user/mpeg1enc/pkg/mpeg/frame"
	"github.com/user/mpeg1enc/pkg/ports"
)

// fetcher reads frames from a source with bounded retries.
type fetcher struct {
	src     ports.FrameSource
	start   int
	retries int
	delay   time.Duration
	log     ports.Logger
	pool    *frame.Pool
	width   int
	height  int
	retried int
}

// readImage returns the source frame at display index i of the encoded
// range, retrying failed reads.
func (f *fetcher) readImage(ctx context.Context, i int) (image.Image, error) {
	index := f.start + i
	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.retried++
			f.log.Warn("Retrying frame %d (attempt %d of %d): %v", index, attempt, f.retries, lastErr)
			if f.delay > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(f.delay):
				}
			}
		}
		img, err := f.src.ReadFrame(ctx, index)
		if err == nil && img == nil {
			err = fmt.Errorf("source returned no image")
		}
		if err == nil {
			return img, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: frame %d after %d attempts: %v", ErrFrameUnavailable, index, f.retries+1, lastErr)
}

// read loads display frame i into a pooled frame of the given kind.
func (f *fetcher) read(ctx context.Context, i int, kind frame.Kind) (*frame.Frame, error) {
	img, err := f.readImage(ctx, i)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() != f.width || b.Dy() != f.height {
		return nil, fmt.Errorf("%w: frame %d is %dx%d, want %dx%d",
			ErrFrameUnavailable, f.start+i, b.Dx(), b.Dy(), f.width, f.height)
	}
	fr := f.pool.NewFrame(i, kind)
	if err := fr.Orig.LoadImage(img); err != nil {
		fr.Release()
		return nil, fmt.Errorf("read frame %d: %w", f.start+i, err)
	}
	return fr, nil
}
