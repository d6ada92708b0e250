// Package yuvsource reads planar 4:2:0 video, either headerless (.yuv)
// or YUV4MPEG2 (.y4m).
package yuvsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/user/mpeg1enc/pkg/ports"
)

// ErrFormat reports an unreadable or unsupported stream header.
var ErrFormat = errors.New("yuvsource: unsupported format")

const y4mMagic = "YUV4MPEG2 "

// Source implements ports.FrameSource over an io.ReaderAt.
type Source struct {
	r         io.ReaderAt
	closer    io.Closer
	width     int
	height    int
	frameRate float64
	// offset of the first frame and distance between frames, both in bytes
	offset int64
	stride int64
	skip   int64
	count  int
}

func frameBytes(width, height int) int64 {
	cw, ch := (width+1)/2, (height+1)/2
	return int64(width*height + 2*cw*ch)
}

// NewRaw reads headerless I420 frames of width x height.
func NewRaw(r io.ReaderAt, size int64, width, height int, frameRate float64) (*Source, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raw size %dx%d", ErrFormat, width, height)
	}
	fb := frameBytes(width, height)
	return &Source{
		r:         r,
		width:     width,
		height:    height,
		frameRate: frameRate,
		stride:    fb,
		count:     int(size / fb),
	}, nil
}

// NewY4M parses a YUV4MPEG2 stream header. Only 4:2:0 colour spaces are
// accepted; every frame must carry a bare FRAME header.
func NewY4M(r io.ReaderAt, size int64) (*Source, error) {
	head := make([]byte, 256)
	n, err := r.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]
	if !bytes.HasPrefix(head, []byte(y4mMagic)) {
		return nil, fmt.Errorf("%w: missing YUV4MPEG2 signature", ErrFormat)
	}
	end := bytes.IndexByte(head, '\n')
	if end < 0 {
		return nil, fmt.Errorf("%w: header too long", ErrFormat)
	}

	s := &Source{r: r, offset: int64(end + 1)}
	for _, field := range strings.Fields(string(head[len(y4mMagic):end])) {
		value := field[1:]
		switch field[0] {
		case 'W':
			s.width, err = strconv.Atoi(value)
		case 'H':
			s.height, err = strconv.Atoi(value)
		case 'F':
			s.frameRate, err = parseRatio(value)
		case 'C':
			if !strings.HasPrefix(value, "420") {
				return nil, fmt.Errorf("%w: colour space %s", ErrFormat, value)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("%w: header field %s", ErrFormat, field)
		}
	}
	if s.width <= 0 || s.height <= 0 {
		return nil, fmt.Errorf("%w: missing picture size", ErrFormat)
	}

	s.skip = int64(len("FRAME\n"))
	s.stride = s.skip + frameBytes(s.width, s.height)
	s.count = int((size - s.offset) / s.stride)
	return s, nil
}

func parseRatio(v string) (float64, error) {
	num, den, ok := strings.Cut(v, ":")
	if !ok {
		return strconv.ParseFloat(v, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("bad ratio %s", v)
	}
	return n / d, nil
}

// Open opens path as YUV4MPEG2 when it carries the signature and as raw
// I420 of width x height otherwise. The caller must Close the source.
func Open(path string, width, height int, frameRate float64) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	magic := make([]byte, len(y4mMagic))
	var src *Source
	if _, err := f.ReadAt(magic, 0); err == nil && string(magic) == y4mMagic {
		src, err = NewY4M(f, st.Size())
		if err != nil {
			f.Close()
			return nil, err
		}
	} else {
		src, err = NewRaw(f, st.Size(), width, height, frameRate)
		if err != nil {
			f.Close()
			return nil, err
		}
	}
	src.closer = f
	return src, nil
}

// Close releases the underlying file, if any.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func (s *Source) Info(ctx context.Context) (ports.SourceInfo, error) {
	return ports.SourceInfo{
		Width:      s.width,
		Height:     s.height,
		FrameCount: s.count,
		FrameRate:  s.frameRate,
	}, nil
}

// ReadFrame returns frame index as a 4:2:0 image sharing no memory with
// other frames.
func (s *Source) ReadFrame(ctx context.Context, index int) (image.Image, error) {
	if index < 0 || index >= s.count {
		return nil, fmt.Errorf("frame %d outside %d frames", index, s.count)
	}
	pos := s.offset + int64(index)*s.stride
	if s.skip > 0 {
		marker := make([]byte, s.skip)
		if _, err := s.r.ReadAt(marker, pos); err != nil {
			return nil, fmt.Errorf("frame %d header: %w", index, err)
		}
		if string(marker) != "FRAME\n" {
			return nil, fmt.Errorf("%w: frame %d has header %q", ErrFormat, index, marker)
		}
		pos += s.skip
	}

	img := image.NewYCbCr(image.Rect(0, 0, s.width, s.height), image.YCbCrSubsampleRatio420)
	ySize := s.width * s.height
	cSize := len(img.Cb)
	buf := make([]byte, ySize+2*cSize)
	if _, err := s.r.ReadAt(buf, pos); err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}
	copy(img.Y, buf[:ySize])
	copy(img.Cb, buf[ySize:ySize+cSize])
	copy(img.Cr, buf[ySize+cSize:])
	return img, nil
}

var _ ports.FrameSource = (*Source)(nil)
