// Package summarizer provides summary generation for encode results.
package summarizer

import (
	"time"

	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/mpeg/frame"
)

// Summary contains all data collected during an encode session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	SessionID   string

	// Source information
	Source SourceInfo

	// Encoder settings
	Settings Settings

	// Output stream details
	Stream StreamInfo

	// Per picture type statistics, in I, P, B order
	Kinds []KindRow
}

// SourceInfo describes the encoded input.
type SourceInfo struct {
	Name       string
	Width      int
	Height     int
	FrameRate  float64
	StartFrame int
	FrameCount int
}

// Settings contains the encoder configuration.
type Settings struct {
	Preset    string
	Pattern   string
	GOPSize   int
	QScale    encoder.QScales
	BitRate   int // target in bits per second, 0 for fixed quantizers
	Search    string
	Reference string
	Container string
}

// StreamInfo contains information about the output.
type StreamInfo struct {
	Path       string
	Bytes      int64 // elementary stream
	FileBytes  int64 // container
	DurationMs int
	GOPs       int
	Pictures   [3]int
	Truncated  int

	CompressionRatio float64
	AveragePSNR      float64 // luminance dB, 0 when not measured
	QuantRetries     int
	EncodeTimeMs     int
}

// KindRow summarizes one picture type.
type KindRow struct {
	Kind    string
	Frames  int
	Intra   int
	Inter   int
	Skipped int
	Blocks  int
	Bits    int64
}

// AverageBits returns the mean coded size of a picture of this type.
func (r KindRow) AverageBits() int64 {
	if r.Frames == 0 {
		return 0
	}
	return r.Bits / int64(r.Frames)
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSession sets the session identifier.
func (b *Builder) WithSession(id string) *Builder {
	b.summary.SessionID = id
	return b
}

// WithSource sets source information.
func (b *Builder) WithSource(source SourceInfo) *Builder {
	b.summary.Source = source
	return b
}

// WithSettings sets encoder settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithStream sets output information.
func (b *Builder) WithStream(stream StreamInfo) *Builder {
	b.summary.Stream = stream
	return b
}

// WithStats fills the per type rows and the derived stream figures from
// encoder statistics. Nil stats are ignored.
func (b *Builder) WithStats(stats *encoder.Stats) *Builder {
	if stats == nil {
		return b
	}
	b.summary.Kinds = b.summary.Kinds[:0]
	for _, k := range []frame.Kind{frame.Intra, frame.ForwardPredicted, frame.BiPredicted} {
		ks := stats.Kind(k)
		b.summary.Kinds = append(b.summary.Kinds, KindRow{
			Kind:    k.String(),
			Frames:  ks.Frames,
			Intra:   ks.Intra,
			Inter:   ks.Inter,
			Skipped: ks.Skipped,
			Blocks:  ks.Blocks,
			Bits:    ks.Bits,
		})
	}
	b.summary.Stream.CompressionRatio = stats.CompressionRatio()
	b.summary.Stream.AveragePSNR = stats.AveragePSNR()
	b.summary.Stream.QuantRetries = stats.QuantRetries
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
