package encoder

import (
	"math"

	"github.com/user/mpeg1enc/pkg/mpeg/frame"
)

// KindStats accumulates counts for one frame kind.
type KindStats struct {
	Frames  int   `json:"frames"`
	Intra   int   `json:"intraMacroblocks"`
	Inter   int   `json:"interMacroblocks"`
	Skipped int   `json:"skippedMacroblocks"`
	Blocks  int   `json:"codedBlocks"`
	Bits    int64 `json:"bits"`
}

// FrameStats describes one coded picture.
type FrameStats struct {
	Display   int     `json:"display"`
	Coding    int     `json:"coding"`
	Kind      string  `json:"kind"`
	Bits      int64   `json:"bits"`
	Target    float64 `json:"target,omitempty"`
	MinQ      int     `json:"minQ"`
	MaxQ      int     `json:"maxQ"`
	AverageQ  float64 `json:"averageQ"`
	Intra     int     `json:"intra"`
	Inter     int     `json:"inter"`
	Skipped   int     `json:"skipped"`
	Saturated int     `json:"saturated,omitempty"`
	PSNRY     float64 `json:"psnrY,omitempty"`
	PSNRCb    float64 `json:"psnrCb,omitempty"`
	PSNRCr    float64 `json:"psnrCr,omitempty"`
}

// Stats summarizes an encode.
type Stats struct {
	Kinds  [3]KindStats `json:"kinds"`
	Frames []FrameStats `json:"frames"`

	HeaderBits int64 `json:"headerBits"`
	TotalBits  int64 `json:"totalBits"`
	// SourceBytes is the size of the 4:2:0 source samples.
	SourceBytes int64 `json:"sourceBytes"`
	Truncated   int   `json:"truncated"`
	// QuantRetries counts macroblocks whose quantizer scale was raised to
	// avoid level overflow; Saturated counts those clipped at scale 31.
	QuantRetries int `json:"quantRetries"`
	Saturated    int `json:"saturated"`
	BufferUnder  int `json:"bufferUnderflows,omitempty"`
	BufferOver   int `json:"bufferOverflows,omitempty"`
	ReadRetries  int `json:"readRetries,omitempty"`
}

// Kind returns the statistics for kind.
func (s *Stats) Kind(k frame.Kind) *KindStats {
	return &s.Kinds[k]
}

// CompressionRatio returns source bytes per output byte.
func (s *Stats) CompressionRatio() float64 {
	if s.TotalBits == 0 {
		return 0
	}
	return float64(s.SourceBytes) * 8 / float64(s.TotalBits)
}

// AveragePSNR returns the mean luminance PSNR over frames that report it.
func (s *Stats) AveragePSNR() float64 {
	sum, n := 0.0, 0
	for _, f := range s.Frames {
		if f.PSNRY > 0 {
			sum += f.PSNRY
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// psnr compares the visible w x h area of two planes. Identical planes
// report 99 dB.
func psnr(a, b *frame.Plane, w, h int) float64 {
	var sse float64
	for y := 0; y < h; y++ {
		ra, rb := a.Row(y), b.Row(y)
		for x := 0; x < w; x++ {
			d := float64(int(ra[x]) - int(rb[x]))
			sse += d * d
		}
	}
	if sse == 0 {
		return 99
	}
	mse := sse / float64(w*h)
	return 10 * math.Log10(255*255/mse)
}
