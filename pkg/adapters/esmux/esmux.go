// Package esmux writes the elementary stream unchanged.
package esmux

import (
	"fmt"

	"github.com/user/mpeg1enc/pkg/ports"
)

// Muxer implements ports.Muxer for raw MPEG-1 video files.
type Muxer struct {
	ext string
}

// New returns a muxer using ext (".m1v" when empty).
func New(ext string) *Muxer {
	if ext == "" {
		ext = ".m1v"
	}
	return &Muxer{ext: ext}
}

// Mux checks that es starts with a sequence header and returns it.
func (m *Muxer) Mux(es []byte, info ports.StreamInfo) ([]byte, error) {
	if len(es) < 4 || es[0] != 0 || es[1] != 0 || es[2] != 1 || es[3] != 0xB3 {
		return nil, fmt.Errorf("stream does not start with a sequence header")
	}
	return es, nil
}

func (m *Muxer) Extension() string {
	return m.ext
}

var _ ports.Muxer = (*Muxer)(nil)
