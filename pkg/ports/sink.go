package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveStatsJSON saves the per-frame encode statistics as JSON.
	SaveStatsJSON(data []byte) error

	// SaveInspectJSON saves the parsed structure of the output stream.
	SaveInspectJSON(data []byte) error

	// SaveReconstructed saves a reconstructed frame in display order.
	SaveReconstructed(index int, img image.Image) error
}
