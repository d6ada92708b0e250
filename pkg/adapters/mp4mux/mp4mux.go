// Package mp4mux wraps an MPEG-1 video elementary stream in a fragmented
// MP4 file and reads such files back.
package mp4mux

import (
	"bytes"
	"fmt"
	"math"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/mpeg1enc/pkg/ports"
)

const (
	// objectTypeMPEG1Video is the MPEG-4 systems object type for
	// ISO/IEC 11172-2 video.
	objectTypeMPEG1Video = 0x6A
	// streamTypeVisual is the visual stream type shifted into place with
	// the reserved bit set.
	streamTypeVisual = 0x04<<2 | 1
)

// Muxer implements ports.Muxer for MP4.
type Muxer struct{}

// New creates a new Muxer.
func New() *Muxer {
	return &Muxer{}
}

func (m *Muxer) Extension() string {
	return ".mp4"
}

// Mux stores one sample per picture in coding order. Composition offsets
// restore display order; every offset is shifted by the deepest
// reordering so none is negative.
func (m *Muxer) Mux(es []byte, info ports.StreamInfo) ([]byte, error) {
	n := len(info.DisplayOrder)
	if n == 0 {
		return nil, fmt.Errorf("no pictures to mux")
	}
	if len(info.PictureOffsets) != n+1 || len(info.Sync) != n {
		return nil, fmt.Errorf("stream info lists %d pictures, %d offsets, %d sync flags",
			n, len(info.PictureOffsets), len(info.Sync))
	}
	if info.PictureOffsets[n] != len(es) {
		return nil, fmt.Errorf("picture offsets end at %d, stream is %d bytes", info.PictureOffsets[n], len(es))
	}
	if info.FrameRate <= 0 || info.Width <= 0 || info.Height <= 0 || info.Width > math.MaxUint16 || info.Height > math.MaxUint16 {
		return nil, fmt.Errorf("invalid stream geometry %dx%d at %g fps", info.Width, info.Height, info.FrameRate)
	}

	timescale := uint32(math.Round(info.FrameRate * 1000))
	dur := uint32(math.Round(float64(timescale) / info.FrameRate))
	trackID := uint32(1)

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "und")
	trak := init.Moov.Trak

	esds := mp4.CreateEsdsBox(nil)
	esds.DecConfigDescriptor.ObjectType = objectTypeMPEG1Video
	esds.DecConfigDescriptor.StreamType = streamTypeVisual
	mp4v := mp4.CreateVisualSampleEntryBox("mp4v", uint16(info.Width), uint16(info.Height), esds)
	trak.Mdia.Minf.Stbl.Stsd.AddChild(mp4v)
	trak.Tkhd.Width = mp4.Fixed32(info.Width << 16)
	trak.Tkhd.Height = mp4.Fixed32(info.Height << 16)

	frag, err := mp4.CreateFragment(1, trackID)
	if err != nil {
		return nil, fmt.Errorf("create fragment: %w", err)
	}

	shift := 0
	for i, d := range info.DisplayOrder {
		shift = max(shift, i-d)
	}
	for i := 0; i < n; i++ {
		start, end := info.PictureOffsets[i], info.PictureOffsets[i+1]
		if start > end {
			return nil, fmt.Errorf("picture %d has offsets %d-%d", i, start, end)
		}
		flags := mp4.NonSyncSampleFlags
		if info.Sync[i] {
			flags = mp4.SyncSampleFlags
		}
		cto := int32(info.DisplayOrder[i]-i+shift) * int32(dur)
		frag.AddFullSample(mp4.FullSample{
			Sample: mp4.Sample{
				Flags:                 flags,
				Size:                  uint32(end - start),
				Dur:                   dur,
				CompositionTimeOffset: cto,
			},
			DecodeTime: uint64(i) * uint64(dur),
			Data:       es[start:end],
		})
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}
	if err := frag.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode fragment: %w", err)
	}
	return buf.Bytes(), nil
}

var _ ports.Muxer = (*Muxer)(nil)
