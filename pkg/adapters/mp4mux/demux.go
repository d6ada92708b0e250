package mp4mux

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/mpeg1enc/pkg/ports"
)

// sample is one picture read back from a video track.
type sample struct {
	data   []byte
	decode uint64
	dur    uint32
	cto    int32
	sync   bool
}

// Demux reads the first video track of an MP4 file back into an
// elementary stream. Samples are concatenated in decode order and the
// returned info describes them the way Mux expects.
func Demux(data []byte) ([]byte, ports.StreamInfo, error) {
	r := bytes.NewReader(data)
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, ports.StreamInfo{}, fmt.Errorf("decode mp4: %w", err)
	}

	var samples []sample
	var moov *mp4.MoovBox
	if f.IsFragmented() {
		if f.Init == nil || f.Init.Moov == nil {
			return nil, ports.StreamInfo{}, fmt.Errorf("no init segment")
		}
		moov = f.Init.Moov
	} else {
		if f.Moov == nil {
			return nil, ports.StreamInfo{}, fmt.Errorf("no moov box found")
		}
		moov = f.Moov
	}

	trak := videoTrack(moov)
	if trak == nil {
		return nil, ports.StreamInfo{}, fmt.Errorf("no video track found")
	}
	if f.IsFragmented() {
		samples, err = fragmentedSamples(f, moov, trak.Tkhd.TrackID)
	} else {
		samples, err = progressiveSamples(trak, r)
	}
	if err != nil {
		return nil, ports.StreamInfo{}, err
	}
	if len(samples) == 0 {
		return nil, ports.StreamInfo{}, fmt.Errorf("video track has no samples")
	}

	info := ports.StreamInfo{
		DisplayOrder:   displayOrder(samples),
		PictureOffsets: make([]int, 0, len(samples)+1),
		Sync:           make([]bool, 0, len(samples)),
	}
	var es []byte
	for _, s := range samples {
		info.PictureOffsets = append(info.PictureOffsets, len(es))
		info.Sync = append(info.Sync, s.sync)
		es = append(es, s.data...)
	}
	info.PictureOffsets = append(info.PictureOffsets, len(es))

	if mdhd := trak.Mdia.Mdhd; mdhd != nil && samples[0].dur > 0 {
		info.FrameRate = float64(mdhd.Timescale) / float64(samples[0].dur)
	}
	info.Width = int(trak.Tkhd.Width >> 16)
	info.Height = int(trak.Tkhd.Height >> 16)
	return es, info, nil
}

func videoTrack(moov *mp4.MoovBox) *mp4.TrakBox {
	for _, trak := range moov.Traks {
		if trak.Mdia != nil && trak.Mdia.Hdlr != nil && trak.Mdia.Hdlr.HandlerType == "vide" {
			return trak
		}
	}
	return nil
}

func fragmentedSamples(f *mp4.File, moov *mp4.MoovBox, trackID uint32) ([]sample, error) {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var out []sample
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				if traf.Tfhd.TrackID != trackID {
					continue
				}
				full, err := frag.GetFullSamples(trex)
				if err != nil {
					return nil, fmt.Errorf("get samples: %w", err)
				}
				for _, s := range full {
					out = append(out, sample{
						data:   s.Data,
						decode: s.DecodeTime,
						dur:    s.Dur,
						cto:    s.CompositionTimeOffset,
						sync:   s.Flags == mp4.SyncSampleFlags,
					})
				}
			}
		}
	}
	return out, nil
}

func progressiveSamples(trak *mp4.TrakBox, r io.ReadSeeker) ([]sample, error) {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil {
		return nil, fmt.Errorf("no sample table found")
	}
	stbl := trak.Mdia.Minf.Stbl
	if stbl.Stsz == nil || stbl.Stts == nil {
		return nil, fmt.Errorf("no stsz or stts box found")
	}

	sync := make(map[uint32]bool)
	if stbl.Stss != nil {
		for _, nr := range stbl.Stss.SampleNumber {
			sync[nr] = true
		}
	}

	var out []sample
	for nr := uint32(1); nr <= stbl.Stsz.SampleNumber; nr++ {
		data, err := sampleData(stbl, r, nr)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", nr, err)
		}
		decode, dur := stbl.Stts.GetDecodeTime(nr)
		var cto int32
		if stbl.Ctts != nil {
			cto = stbl.Ctts.GetCompositionTimeOffset(nr)
		}
		out = append(out, sample{
			data:   data,
			decode: decode,
			dur:    dur,
			cto:    cto,
			sync:   sync[nr] || stbl.Stss == nil,
		})
	}
	return out, nil
}

func sampleData(stbl *mp4.StblBox, r io.ReadSeeker, nr uint32) ([]byte, error) {
	if stbl.Stsc == nil {
		return nil, fmt.Errorf("missing stsc box")
	}
	chunkNr, first, err := stbl.Stsc.ChunkNrFromSampleNr(int(nr))
	if err != nil {
		return nil, err
	}

	var offset uint64
	switch {
	case stbl.Stco != nil:
		if offset, err = stbl.Stco.GetOffset(chunkNr); err != nil {
			return nil, err
		}
	case stbl.Co64 != nil:
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk %d out of range", chunkNr)
		}
		offset = stbl.Co64.ChunkOffset[chunkNr-1]
	default:
		return nil, fmt.Errorf("no stco or co64 box")
	}
	for s := uint32(first); s < nr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}

	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, stbl.Stsz.GetSampleSize(int(nr)))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// displayOrder ranks samples by presentation time.
func displayOrder(samples []sample) []int {
	idx := make([]int, len(samples))
	for i := range idx {
		idx[i] = i
	}
	pts := func(i int) int64 { return int64(samples[i].decode) + int64(samples[i].cto) }
	sort.SliceStable(idx, func(a, b int) bool { return pts(idx[a]) < pts(idx[b]) })

	order := make([]int, len(samples))
	for rank, i := range idx {
		order[i] = rank
	}
	return order
}
