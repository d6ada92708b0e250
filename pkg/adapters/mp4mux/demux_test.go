package mp4mux

import (
	"bytes"
	"slices"
	"testing"
)

func TestDemux_RoundTrip(t *testing.T) {
	es, info := testStream()
	out, err := New().Mux(es, info)
	if err != nil {
		t.Fatalf("Mux() error = %v", err)
	}

	got, gotInfo, err := Demux(out)
	if err != nil {
		t.Fatalf("Demux() error = %v", err)
	}
	if !bytes.Equal(got, es) {
		t.Errorf("stream differs after round trip: %x", got)
	}
	if !slices.Equal(gotInfo.DisplayOrder, info.DisplayOrder) {
		t.Errorf("display order %v, want %v", gotInfo.DisplayOrder, info.DisplayOrder)
	}
	if !slices.Equal(gotInfo.PictureOffsets, info.PictureOffsets) {
		t.Errorf("offsets %v, want %v", gotInfo.PictureOffsets, info.PictureOffsets)
	}
	if !slices.Equal(gotInfo.Sync, info.Sync) {
		t.Errorf("sync %v, want %v", gotInfo.Sync, info.Sync)
	}
	if gotInfo.Width != 32 || gotInfo.Height != 16 || gotInfo.FrameRate != 25 {
		t.Errorf("geometry %dx%d at %g", gotInfo.Width, gotInfo.Height, gotInfo.FrameRate)
	}
}

func TestDemux_Invalid(t *testing.T) {
	if _, _, err := Demux([]byte("not an mp4 file")); err == nil {
		t.Error("expected error for garbage input")
	}
}
