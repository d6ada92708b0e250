package filesink

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/user/mpeg1enc/pkg/mocks"
	"github.com/user/mpeg1enc/pkg/ports"
)

var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{})
	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	if err := sink.SaveStatsJSON([]byte(`{"totalBits":8}`)); err != nil {
		t.Fatalf("SaveStatsJSON() error = %v", err)
	}
	if err := sink.SaveInspectJSON([]byte(`{"pictures":[]}`)); err != nil {
		t.Fatalf("SaveInspectJSON() error = %v", err)
	}

	for name, want := range map[string]string{
		"stats.json":   `{"totalBits":8}`,
		"inspect.json": `{"pictures":[]}`,
	} {
		data, ok := fs.GetFile(filepath.Join(testBaseDir, name))
		if !ok {
			t.Errorf("%s not written", name)
			continue
		}
		if string(data) != want {
			t.Errorf("%s = %s, want %s", name, data, want)
		}
	}
}

func TestSink_SaveReconstructed(t *testing.T) {
	fs := mocks.NewFileSystem()
	var formats []ports.ImageFormat
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			formats = append(formats, format)
			return []byte("png"), nil
		},
	}
	sink := New(testBaseDir, fs, renderer)

	img := image.NewYCbCr(image.Rect(0, 0, 16, 16), image.YCbCrSubsampleRatio420)
	for _, i := range []int{0, 3} {
		if err := sink.SaveReconstructed(i, img); err != nil {
			t.Fatalf("SaveReconstructed(%d) error = %v", i, err)
		}
	}

	for _, name := range []string{"frame-00000.png", "frame-00003.png"} {
		if _, ok := fs.GetFile(filepath.Join(testBaseDir, "recon", name)); !ok {
			t.Errorf("%s not written", name)
		}
	}
	if ok, _ := fs.Exists(filepath.Join(testBaseDir, "recon")); !ok {
		t.Error("recon directory not created")
	}
	if len(formats) != 2 || formats[0] != ports.FormatPNG {
		t.Errorf("encoded formats = %v, want PNG twice", formats)
	}
}

func TestSink_SaveReconstructed_EncodeError(t *testing.T) {
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			return nil, errors.New("boom")
		},
	}
	sink := New(testBaseDir, mocks.NewFileSystem(), renderer)
	if err := sink.SaveReconstructed(1, image.NewGray(image.Rect(0, 0, 1, 1))); err == nil {
		t.Error("expected encode error")
	}
}
