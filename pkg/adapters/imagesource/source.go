// Package imagesource reads numbered still images as a frame sequence.
package imagesource

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/user/mpeg1enc/pkg/ports"
)

// ErrNoImages is returned when the pattern matches no files.
var ErrNoImages = errors.New("no images match")

// Options configures a Source.
type Options struct {
	// Width and Height scale every image to a fixed size; zero takes the
	// size of the first image.
	Width     int
	Height    int
	FrameRate float64
}

// Source implements ports.FrameSource over files matched by a glob
// pattern, in lexical order.
type Source struct {
	fs       ports.FileSystem
	renderer ports.Renderer
	files    []string
	opts     Options

	mu   sync.Mutex
	info *ports.SourceInfo
}

// New globs pattern and returns a source over the matches.
func New(fs ports.FileSystem, renderer ports.Renderer, pattern string, opts Options) (*Source, error) {
	files, err := fs.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w %s", ErrNoImages, pattern)
	}
	return &Source{fs: fs, renderer: renderer, files: files, opts: opts}, nil
}

// Files returns the matched file names.
func (s *Source) Files() []string {
	return s.files
}

// Info decodes the first image when no size was configured.
func (s *Source) Info(ctx context.Context) (ports.SourceInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info != nil {
		return *s.info, nil
	}

	info := ports.SourceInfo{
		Width:      s.opts.Width,
		Height:     s.opts.Height,
		FrameCount: len(s.files),
		FrameRate:  s.opts.FrameRate,
	}
	if info.Width == 0 || info.Height == 0 {
		img, err := s.decode(0)
		if err != nil {
			return ports.SourceInfo{}, err
		}
		b := img.Bounds()
		info.Width, info.Height = b.Dx(), b.Dy()
	}
	s.info = &info
	return info, nil
}

// ReadFrame decodes image index, scaling it to the source size.
func (s *Source) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || index >= len(s.files) {
		return nil, fmt.Errorf("frame %d outside %d images", index, len(s.files))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.Info(ctx)
	if err != nil {
		return nil, err
	}
	img, err := s.decode(index)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() != info.Width || b.Dy() != info.Height {
		img = s.renderer.ResizeImage(img, info.Width, info.Height)
	}
	return img, nil
}

func (s *Source) decode(index int) (image.Image, error) {
	data, err := s.fs.ReadFile(s.files[index])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.files[index], err)
	}
	img, err := s.renderer.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.files[index], err)
	}
	return img, nil
}

var _ ports.FrameSource = (*Source)(nil)
