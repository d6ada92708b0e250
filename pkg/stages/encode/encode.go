// Package encode implements the MPEG-1 encoding stage.
package encode

import (
	"context"
	"fmt"
	"image"

	"github.com/user/mpeg1enc/pkg/mpeg/encoder"
	"github.com/user/mpeg1enc/pkg/mpeg/syntax"
	"github.com/user/mpeg1enc/pkg/pipeline"
	"github.com/user/mpeg1enc/pkg/ports"
)

// Stage encodes a frame source into an elementary stream.
type Stage struct {
	sink   ports.DebugSink
	logger ports.Logger
}

// NewStage creates a new encode stage.
func NewStage(sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		sink:   sink,
		logger: logger,
	}
}

// Execute runs a complete encode. Nothing is returned unless every
// frame was coded.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	result := pipeline.EncodeResult{}
	if input.Source == nil {
		return result, fmt.Errorf("no frame source")
	}

	cfg := input.Config
	enc, err := encoder.NewContext(cfg, s.logger.WithComponent("encoder"))
	if err != nil {
		return result, err
	}
	if input.SaveReconstructed && s.sink.Enabled() {
		enc.OnReconstructed(func(display int, img image.Image) {
			if err := s.sink.SaveReconstructed(cfg.StartFrame+display, img); err != nil {
				s.logger.Warn("Failed to save reconstructed frame %d: %v", display, err)
			}
		})
	}

	s.logger.Info("Encoding %d frames at %dx%d, pattern %s", cfg.FrameCount, cfg.Width, cfg.Height, cfg.Pattern)
	res, err := enc.Encode(ctx, input.Source)
	if err != nil {
		return result, err
	}

	fps := syntax.PictureRates[cfg.RateCode()]
	result.Data = res.Data
	result.Stats = res.Stats
	result.Stream = res.StreamInfo(cfg.Width, cfg.Height, fps)
	result.Truncated = res.Truncated()
	return result, nil
}
