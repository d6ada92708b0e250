package ports

import (
	"context"
	"image"
)

// SourceInfo describes the frames a FrameSource can supply.
type SourceInfo struct {
	Width      int
	Height     int
	FrameCount int
	FrameRate  float64 // frames per second, 0 when the source has no timing
}

// FrameSource supplies raw frames by display index.
type FrameSource interface {
	// Info returns the source geometry and length.
	Info(ctx context.Context) (SourceInfo, error)

	// ReadFrame returns the frame at index. Callers may retry a failed read;
	// implementations must not keep state that makes a retry fail.
	// *image.YCbCr with 4:2:0 subsampling is the preferred result type.
	ReadFrame(ctx context.Context, index int) (image.Image, error)
}
