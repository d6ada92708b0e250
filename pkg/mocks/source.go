package mocks

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/user/mpeg1enc/pkg/ports"
)

// FrameSource is a mock implementation of ports.FrameSource producing
// 4:2:0 frames from a luminance function.
type FrameSource struct {
	mu sync.Mutex

	SourceInfo ports.SourceInfo
	InfoErr    error
	// Luma returns the luminance of sample (x, y) in frame t. Nil gives
	// mid-gray frames.
	Luma func(t, x, y int) uint8
	// Failures makes the next n reads of a frame fail.
	Failures map[int]int

	Reads int
}

// NewFrameSource creates a mock source of n frames.
func NewFrameSource(width, height, n int, luma func(t, x, y int) uint8) *FrameSource {
	return &FrameSource{
		SourceInfo: ports.SourceInfo{Width: width, Height: height, FrameCount: n, FrameRate: 25},
		Luma:       luma,
		Failures:   make(map[int]int),
	}
}

func (m *FrameSource) Info(ctx context.Context) (ports.SourceInfo, error) {
	return m.SourceInfo, m.InfoErr
}

func (m *FrameSource) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	if m.Failures[index] > 0 {
		m.Failures[index]--
		return nil, fmt.Errorf("frame %d not ready", index)
	}
	if index < 0 || index >= m.SourceInfo.FrameCount {
		return nil, fmt.Errorf("frame %d out of range", index)
	}

	w, h := m.SourceInfo.Width, m.SourceInfo.Height
	img := image.NewYCbCr(image.Rect(0, 0, w, h), image.YCbCrSubsampleRatio420)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(128)
			if m.Luma != nil {
				v = m.Luma(index, x, y)
			}
			img.Y[y*img.YStride+x] = v
		}
	}
	for i := range img.Cb {
		img.Cb[i] = 128
		img.Cr[i] = 128
	}
	return img, nil
}

var _ ports.FrameSource = (*FrameSource)(nil)

// Logger is a mock implementation of ports.Logger that records messages
// by level.
type Logger struct {
	mu       sync.Mutex
	Messages map[string][]string
}

// NewLogger creates a new recording logger.
func NewLogger() *Logger {
	return &Logger{Messages: make(map[string][]string)}
}

func (m *Logger) record(level, msg string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[level] = append(m.Messages[level], fmt.Sprintf(msg, args...))
}

func (m *Logger) Debug(msg string, args ...interface{}) { m.record("debug", msg, args...) }

func (m *Logger) Info(msg string, args ...interface{}) { m.record("info", msg, args...) }

func (m *Logger) Warn(msg string, args ...interface{}) { m.record("warn", msg, args...) }

func (m *Logger) Error(msg string, args ...interface{}) { m.record("error", msg, args...) }

func (m *Logger) WithComponent(component string) ports.Logger { return m }

// Count returns the number of messages logged at level.
func (m *Logger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages[level])
}

var _ ports.Logger = (*Logger)(nil)
