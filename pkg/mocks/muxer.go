package mocks

import "github.com/user/mpeg1enc/pkg/ports"

// Muxer is a mock implementation of ports.Muxer.
type Muxer struct {
	MuxFunc func(es []byte, info ports.StreamInfo) ([]byte, error)
	Ext     string

	// Info records the last StreamInfo passed to Mux.
	Info ports.StreamInfo
}

func (m *Muxer) Mux(es []byte, info ports.StreamInfo) ([]byte, error) {
	m.Info = info
	if m.MuxFunc != nil {
		return m.MuxFunc(es, info)
	}
	return es, nil
}

func (m *Muxer) Extension() string {
	if m.Ext == "" {
		return ".m1v"
	}
	return m.Ext
}

var _ ports.Muxer = (*Muxer)(nil)
