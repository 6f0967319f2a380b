package mocks

import (
	"image"
	"image/color"

	"github.com/user/clipforge/pkg/ports"
)

// ImageRenderer is a mock implementation of ports.ImageRenderer.
type ImageRenderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image

	ResizeCalls int
}

func (m *ImageRenderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	return &Canvas{width: width, height: height}
}

func (m *ImageRenderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

func (m *ImageRenderer) ResizeImage(img image.Image, width, height int) image.Image {
	m.ResizeCalls++
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ ports.ImageRenderer = (*ImageRenderer)(nil)

// Canvas is a mock implementation of ports.Canvas.
type Canvas struct {
	width  int
	height int
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color)                          {}
func (m *Canvas) DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64) {}
func (m *Canvas) DrawLine(x1, y1, x2, y2 int, c color.Color, width float64)       {}
func (m *Canvas) DrawText(text string, x, y int, size float64, c color.Color)     {}

func (m *Canvas) ToImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
