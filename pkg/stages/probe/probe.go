// Package probe implements the source probing stage.
package probe

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/mpeg1enc/pkg/pipeline"
	"github.com/user/mpeg1enc/pkg/ports"
)

// ErrEmptySource is returned when a source has no usable frames.
var ErrEmptySource = errors.New("source has no frames")

// Stage reads the source geometry and resolves the frame range.
type Stage struct {
	logger ports.Logger
}

// NewStage creates a new probe stage.
func NewStage(logger ports.Logger) *Stage {
	return &Stage{logger: logger.WithComponent("probe")}
}

// Execute queries the source and checks the requested range against it.
func (s *Stage) Execute(ctx context.Context, input pipeline.ProbeInput) (pipeline.ProbeResult, error) {
	result := pipeline.ProbeResult{}
	if input.Source == nil {
		return result, fmt.Errorf("no frame source")
	}

	info, err := input.Source.Info(ctx)
	if err != nil {
		return result, fmt.Errorf("source info: %w", err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return result, fmt.Errorf("source reports size %dx%d", info.Width, info.Height)
	}
	if info.FrameCount <= 0 {
		return result, ErrEmptySource
	}

	if input.StartFrame < 0 || input.StartFrame >= info.FrameCount {
		return result, fmt.Errorf("start frame %d outside a source of %d frames", input.StartFrame, info.FrameCount)
	}
	count := input.FrameCount
	if count <= 0 {
		count = info.FrameCount - input.StartFrame
	}
	if input.StartFrame+count > info.FrameCount {
		return result, fmt.Errorf("frames %d-%d outside a source of %d frames",
			input.StartFrame, input.StartFrame+count-1, info.FrameCount)
	}

	s.logger.Info("Source: %dx%d, %d frames", info.Width, info.Height, info.FrameCount)
	if info.Width%16 != 0 || info.Height%16 != 0 {
		s.logger.Debug("Padding %dx%d to whole macroblocks", info.Width, info.Height)
	}

	result.Info = info
	result.StartFrame = input.StartFrame
	result.FrameCount = count
	return result, nil
}
