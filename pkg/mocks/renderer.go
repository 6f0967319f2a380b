// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"
	"image"

	"github.com/user/clipforge/pkg/ports"
)

// FrameRenderer is a mock implementation of ports.FrameRenderer.
type FrameRenderer struct {
	PrepareFunc         func(ctx context.Context, opts ports.RenderOptions) error
	HasRenderTargetFunc func() bool
	SeekFunc            func(ctx context.Context, timestamp float64) error
	ConfirmFunc         func(ctx context.Context) error
	CaptureFunc         func(ctx context.Context) (image.Image, error)
	CloseFunc           func() error

	// Recorded calls for verification
	PrepareCalled bool
	SeekCalls     []float64
	ConfirmCalls  int
	CaptureCalls  int
	CloseCalled   bool
}

func (m *FrameRenderer) Prepare(ctx context.Context, opts ports.RenderOptions) error {
	m.PrepareCalled = true
	if m.PrepareFunc != nil {
		return m.PrepareFunc(ctx, opts)
	}
	return nil
}

func (m *FrameRenderer) HasRenderTarget() bool {
	if m.HasRenderTargetFunc != nil {
		return m.HasRenderTargetFunc()
	}
	return true
}

func (m *FrameRenderer) Seek(ctx context.Context, timestamp float64) error {
	m.SeekCalls = append(m.SeekCalls, timestamp)
	if m.SeekFunc != nil {
		return m.SeekFunc(ctx, timestamp)
	}
	return nil
}

func (m *FrameRenderer) Confirm(ctx context.Context) error {
	m.ConfirmCalls++
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx)
	}
	return nil
}

func (m *FrameRenderer) Capture(ctx context.Context) (image.Image, error) {
	m.CaptureCalls++
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx)
	}
	return image.NewRGBA(image.Rect(0, 0, 64, 36)), nil
}

func (m *FrameRenderer) Close() error {
	m.CloseCalled = true
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Ensure FrameRenderer implements ports.FrameRenderer
var _ ports.FrameRenderer = (*FrameRenderer)(nil)
