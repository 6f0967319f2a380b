package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveTimelineJSON saves the resolved clip set as JSON.
	SaveTimelineJSON(data []byte) error

	// SaveTimelineImage saves the timeline lane visualization.
	SaveTimelineImage(img image.Image) error

	// SaveCapturedFrame saves one captured surface.
	SaveCapturedFrame(index int, img image.Image) error

	// SaveMixGraphJSON saves the audio mix graph description.
	SaveMixGraphJSON(data []byte) error

	// SaveStream saves an intermediate encoded stream.
	SaveStream(name string, data []byte) error
}
