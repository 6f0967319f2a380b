// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"image"
)

// RenderOptions configures the renderer for an export run.
type RenderOptions struct {
	Width     int
	Height    int
	FrameRate float64
}

// FrameRenderer abstracts the external compositor that presents the
// timeline for a given timestamp. The pipeline pulls frames by seeking;
// the renderer signals settle through Confirm. Timestamps are always
// increasing within one export, and exactly one settle cycle follows
// each confirm.
type FrameRenderer interface {
	// Prepare readies the renderer for an export run.
	Prepare(ctx context.Context, opts RenderOptions) error

	// HasRenderTarget reports whether the renderer has a visible
	// surface to draw on. Capture fails fast when it does not.
	HasRenderTarget() bool

	// Seek instructs the renderer to present its output for the given
	// timestamp in seconds. It returns once the seek is dispatched;
	// rendering may still be in flight until Confirm returns.
	Seek(ctx context.Context, timestamp float64) error

	// Confirm blocks until one render cycle has completed. Callers
	// wait for at least two cycles after a seek so a stale frame is
	// never captured.
	Confirm(ctx context.Context) error

	// Capture grabs the currently presented surface.
	Capture(ctx context.Context) (image.Image, error)

	// Close releases the renderer.
	Close() error
}
