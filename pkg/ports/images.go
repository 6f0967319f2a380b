package ports

import (
	"image"
	"image/color"
)

// ImageRenderer abstracts 2D image operations: scaling captured
// surfaces to the output size and drawing debug visualizations.
type ImageRenderer interface {
	// CreateCanvas creates a drawing canvas with the given dimensions
	// and background color.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations.
type Canvas interface {
	// DrawRect draws a filled rectangle.
	DrawRect(x, y, w, h int, c color.Color)

	// DrawRectStroke draws a rectangle outline.
	DrawRectStroke(x, y, w, h int, c color.Color, strokeWidth float64)

	// DrawLine draws a line between two points.
	DrawLine(x1, y1, x2, y2 int, c color.Color, width float64)

	// DrawText draws text at the specified position.
	DrawText(text string, x, y int, size float64, c color.Color)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatPNG ImageFormat = iota
	FormatJPEG
)
