// Package mux implements the container stage.
package mux

import (
	"context"
	"fmt"

	"github.com/user/mpeg1enc/pkg/pipeline"
	"github.com/user/mpeg1enc/pkg/ports"
)

// Stage wraps an elementary stream with a ports.Muxer.
type Stage struct {
	muxer  ports.Muxer
	logger ports.Logger
}

// NewStage creates a new mux stage.
func NewStage(muxer ports.Muxer, logger ports.Logger) *Stage {
	return &Stage{
		muxer:  muxer,
		logger: logger,
	}
}

// Execute builds the container.
func (s *Stage) Execute(ctx context.Context, input pipeline.MuxInput) (pipeline.MuxResult, error) {
	result := pipeline.MuxResult{}
	if len(input.Elementary) == 0 {
		return result, fmt.Errorf("empty elementary stream")
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	data, err := s.muxer.Mux(input.Elementary, input.Stream)
	if err != nil {
		return result, fmt.Errorf("mux %s: %w", s.muxer.Extension(), err)
	}
	s.logger.Debug("Muxed %d bytes into %d byte %s container", len(input.Elementary), len(data), s.muxer.Extension())

	result.Data = data
	result.Extension = s.muxer.Extension()
	return result, nil
}
