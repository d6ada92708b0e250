// Package nullsink provides a debug sink that discards everything.
package nullsink

import (
	"image"

	"github.com/user/mpeg1enc/pkg/ports"
)

// Sink is a no-op implementation of ports.DebugSink.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false so callers can skip building debug output.
func (s *Sink) Enabled() bool {
	return false
}

func (s *Sink) SaveStatsJSON(data []byte) error {
	return nil
}

func (s *Sink) SaveInspectJSON(data []byte) error {
	return nil
}

func (s *Sink) SaveReconstructed(index int, img image.Image) error {
	return nil
}

var _ ports.DebugSink = (*Sink)(nil)
