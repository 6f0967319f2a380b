package mocks

import (
	"image"

	"github.com/user/clipforge/pkg/ports"
)

// CaptureSink is a mock implementation of ports.CaptureSink.
type CaptureSink struct {
	BeginFunc    func(width, height int, fps float64, opts ports.CaptureOptions) error
	AddFrameFunc func(img image.Image, timestampMs int) error
	EndFunc      func() ([]byte, error)
	AbortFunc    func()
	MimeTypeFunc func() string

	// Recorded calls for verification
	BeginCalled bool
	BeginOpts   ports.CaptureOptions
	Frames      []AddFrameCall
	EndCalled   bool
	AbortCalled bool
}

// AddFrameCall records one call to AddFrame.
type AddFrameCall struct {
	TimestampMs int
	Width       int
	Height      int
}

func (m *CaptureSink) Begin(width, height int, fps float64, opts ports.CaptureOptions) error {
	m.BeginCalled = true
	m.BeginOpts = opts
	if m.BeginFunc != nil {
		return m.BeginFunc(width, height, fps, opts)
	}
	return nil
}

func (m *CaptureSink) AddFrame(img image.Image, timestampMs int) error {
	b := img.Bounds()
	m.Frames = append(m.Frames, AddFrameCall{TimestampMs: timestampMs, Width: b.Dx(), Height: b.Dy()})
	if m.AddFrameFunc != nil {
		return m.AddFrameFunc(img, timestampMs)
	}
	return nil
}

func (m *CaptureSink) End() ([]byte, error) {
	m.EndCalled = true
	if m.EndFunc != nil {
		return m.EndFunc()
	}
	// Minimal WebM header
	return []byte{0x1A, 0x45, 0xDF, 0xA3}, nil
}

func (m *CaptureSink) Abort() {
	m.AbortCalled = true
	if m.AbortFunc != nil {
		m.AbortFunc()
	}
}

func (m *CaptureSink) MimeType() string {
	if m.MimeTypeFunc != nil {
		return m.MimeTypeFunc()
	}
	return "video/webm"
}

var _ ports.CaptureSink = (*CaptureSink)(nil)
