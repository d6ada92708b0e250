package pipeline

import (
	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/ports"
)

// =============================================================================
// Probe Stage Types
// =============================================================================

// ProbeInput names the source to examine.
type ProbeInput struct {
	Source ports.FrameSource
	// StartFrame and FrameCount select the range that will be encoded;
	// FrameCount 0 means every remaining frame.
	StartFrame int
	FrameCount int
}

// ProbeResult describes the source and the resolved frame range.
type ProbeResult struct {
	Info       ports.SourceInfo
	StartFrame int
	FrameCount int
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains the source and the complete encoder configuration.
// Config.Width and Config.Height must match the probed source.
type EncodeInput struct {
	Source ports.FrameSource
	Config encoder.Config
	// SaveReconstructed forwards every reconstructed frame to the debug sink.
	SaveReconstructed bool
}

// EncodeResult contains the elementary stream and its statistics.
type EncodeResult struct {
	Data      []byte
	Stats     *encoder.Stats
	Stream    ports.StreamInfo
	Truncated int
}

// =============================================================================
// Mux Stage Types
// =============================================================================

// MuxInput contains an elementary stream to wrap.
type MuxInput struct {
	Elementary []byte
	Stream     ports.StreamInfo
}

// MuxResult contains the container bytes.
type MuxResult struct {
	Data      []byte
	Extension string
}
