package ports

import (
	"image"
)

// VideoEncoder abstracts streaming video encoding operations.
type VideoEncoder interface {
	// Begin initializes the encoder with the specified dimensions and frame rate.
	Begin(width, height int, fps float64, opts EncoderOptions) error

	// EncodeFrame queues a single frame in display order.
	EncodeFrame(img image.Image, timestampMs int) error

	// End flushes queued frames and returns the elementary stream.
	End() ([]byte, error)
}

// EncoderOptions configures video encoding parameters.
type EncoderOptions struct {
	Bitrate int    // Target bitrate in kbps, 0 for fixed quantizer
	QScale  int    // Base quantizer scale 1-31 when Bitrate is 0
	Pattern string // Picture type pattern such as "IBBPBBPBB"
	GOPSize int
}

// StreamInfo describes an elementary stream handed to a Muxer.
type StreamInfo struct {
	Width     int
	Height    int
	FrameRate float64
	// DisplayOrder lists the display index of each picture in coding order.
	DisplayOrder []int
	// PictureOffsets are the byte offsets of each picture start code in
	// coding order, with the stream length appended.
	PictureOffsets []int
	// Sync marks intra pictures in coding order.
	Sync []bool
}

// Muxer wraps an elementary stream into a container.
type Muxer interface {
	// Mux returns the container bytes for es.
	Mux(es []byte, info StreamInfo) ([]byte, error)

	// Extension returns the file extension for the container, with the dot.
	Extension() string
}
