package esmux

import (
	"testing"

	"github.com/user/mpeg1enc/pkg/ports"
)

func TestMuxer_Mux(t *testing.T) {
	m := New("")
	if m.Extension() != ".m1v" {
		t.Errorf("Extension() = %q", m.Extension())
	}
	es := []byte{0, 0, 1, 0xB3, 1, 2, 0, 0, 1, 0xB7}
	out, err := m.Mux(es, ports.StreamInfo{})
	if err != nil {
		t.Fatalf("Mux() error = %v", err)
	}
	if len(out) != len(es) {
		t.Errorf("Mux() changed the stream length to %d", len(out))
	}
	if _, err := m.Mux([]byte{0, 0, 1, 0x00}, ports.StreamInfo{}); err == nil {
		t.Error("expected error for a stream starting with a picture")
	}
	if New(".mpg").Extension() != ".mpg" {
		t.Error("custom extension ignored")
	}
}
