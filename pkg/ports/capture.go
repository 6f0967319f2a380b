package ports

import (
	"image"
)

// CaptureOptions configures the capture sink for one video stream.
type CaptureOptions struct {
	// PreserveAlpha keeps the transparency channel when the target
	// codec supports it. The degraded strategy disables it to shrink
	// the encoder's memory footprint.
	PreserveAlpha bool

	// Bitrate is the target bitrate in kbps (0 = encoder default).
	Bitrate int

	// Quality is the CRF value (lower is higher quality, 0 = default).
	Quality int
}

// CaptureSink accepts rendered surfaces and accumulates them into an
// encoded video stream.
type CaptureSink interface {
	// Begin initializes the sink for the given dimensions and frame rate.
	Begin(width, height int, fps float64, opts CaptureOptions) error

	// AddFrame appends one rendered surface at the given timestamp.
	AddFrame(img image.Image, timestampMs int) error

	// End finalizes the stream and returns the encoded bytes.
	End() ([]byte, error)

	// Abort discards the partial stream and releases the sink's
	// resources without producing output. Safe on a sink that never
	// started; the sink is reusable afterwards.
	Abort()

	// MimeType returns the MIME type of the stream End will produce.
	MimeType() string
}
