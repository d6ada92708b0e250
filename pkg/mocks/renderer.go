package mocks

import (
	"image"
	"image/color"

	"github.com/user/mpeg1enc/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	DecodeImageFunc  func(data []byte) (image.Image, error)
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image

	Resized int
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	return &Canvas{width: width, height: height}
}

func (m *Renderer) DecodeImage(data []byte) (image.Image, error) {
	if m.DecodeImageFunc != nil {
		return m.DecodeImageFunc(data)
	}
	return image.NewRGBA(image.Rect(0, 0, 16, 16)), nil
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	m.Resized++
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a mock implementation of ports.Canvas. It records the number
// of drawing calls.
type Canvas struct {
	width  int
	height int
	Calls  int
}

func (m *Canvas) DrawImage(img image.Image, x, y int) { m.Calls++ }

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) { m.Calls++ }

func (m *Canvas) DrawCircle(cx, cy, r int, c color.Color) { m.Calls++ }

func (m *Canvas) DrawGradient(from, to color.Color) { m.Calls++ }

func (m *Canvas) DrawText(text string, x, y int, style ports.TextStyle) { m.Calls++ }

func (m *Canvas) DrawLine(x1, y1, x2, y2 int, c color.Color, width float64) { m.Calls++ }

func (m *Canvas) ToImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
