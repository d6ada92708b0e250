package mocks

import (
	"image"
	"sync"

	"github.com/user/mpeg1enc/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	StatsJSON     []byte
	InspectJSON   []byte
	Reconstructed map[int]image.Image
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:       enabled,
		Reconstructed: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveStatsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatsJSON = data
	return nil
}

func (m *DebugSink) SaveInspectJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InspectJSON = data
	return nil
}

func (m *DebugSink) SaveReconstructed(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reconstructed[index] = img
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
