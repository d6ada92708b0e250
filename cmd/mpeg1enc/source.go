package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/user/mpeg1enc/pkg/adapters/imagesource"
	"github.com/user/mpeg1enc/pkg/adapters/patternsource"
	"github.com/user/mpeg1enc/pkg/adapters/yuvsource"
	"github.com/user/mpeg1enc/pkg/ports"
)

const patternPrefix = "pattern:"

// defaultPatternFrames is the clip length of "pattern:" without a count.
const defaultPatternFrames = 60

type sourceOptions struct {
	Width     int
	Height    int
	FrameRate float64
	Frames    int
}

// openSource picks a frame source from the input argument: "pattern:N"
// draws a synthetic clip, .yuv and .y4m files are read as 4:2:0 video and
// anything else is treated as an image glob.
func openSource(input string, fs ports.FileSystem, renderer ports.Renderer, opts sourceOptions) (ports.FrameSource, func() error, error) {
	noop := func() error { return nil }

	if count, ok := strings.CutPrefix(input, patternPrefix); ok {
		frames := defaultPatternFrames
		if count != "" {
			n, err := strconv.Atoi(count)
			if err != nil || n < 1 {
				return nil, noop, fmt.Errorf("invalid pattern frame count %q", count)
			}
			frames = n
		}
		src := patternsource.New(renderer, patternsource.Options{
			Width:     opts.Width,
			Height:    opts.Height,
			Frames:    frames,
			FrameRate: opts.FrameRate,
			Speed:     4,
			Label:     true,
		})
		return src, noop, nil
	}

	switch strings.ToLower(filepath.Ext(input)) {
	case ".yuv", ".y4m":
		src, err := yuvsource.Open(input, opts.Width, opts.Height, opts.FrameRate)
		if err != nil {
			return nil, noop, fmt.Errorf("open %s: %w", input, err)
		}
		return src, src.Close, nil
	}

	src, err := imagesource.New(fs, renderer, input, imagesource.Options{
		Width:     opts.Width,
		Height:    opts.Height,
		FrameRate: opts.FrameRate,
	})
	if err != nil {
		return nil, noop, err
	}
	return src, noop, nil
}
