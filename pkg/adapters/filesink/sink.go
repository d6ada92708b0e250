// Package filesink writes debug output into a directory.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/user/mpeg1enc/pkg/ports"
)

// Sink saves debug output to files under a base directory:
//
//	stats.json            per-frame encoder statistics
//	inspect.json          parsed structure of the produced stream
//	recon/frame-NNNNN.png reconstructed frames, named by display index
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer

	once   sync.Once
	dirErr error
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

func (s *Sink) SaveStatsJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "stats.json"), data)
}

func (s *Sink) SaveInspectJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "inspect.json"), data)
}

// SaveReconstructed encodes img as PNG.
func (s *Sink) SaveReconstructed(index int, img image.Image) error {
	dir := filepath.Join(s.baseDir, "recon")
	s.once.Do(func() { s.dirErr = s.fs.MkdirAll(dir) })
	if s.dirErr != nil {
		return s.dirErr
	}
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode reconstructed frame %d: %w", index, err)
	}
	return s.fs.WriteFile(filepath.Join(dir, fmt.Sprintf("frame-%05d.png", index)), data)
}

var _ ports.DebugSink = (*Sink)(nil)
