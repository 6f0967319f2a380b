package mocks

import (
	"image"
	"sync"

	"github.com/user/clipforge/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	TimelineJSON   []byte
	TimelineImage  image.Image
	CapturedFrames map[int]image.Image
	MixGraphJSON   []byte
	Streams        map[string][]byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:        enabled,
		CapturedFrames: make(map[int]image.Image),
		Streams:        make(map[string][]byte),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveTimelineJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimelineJSON = data
	return nil
}

func (m *DebugSink) SaveTimelineImage(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TimelineImage = img
	return nil
}

func (m *DebugSink) SaveCapturedFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CapturedFrames[index] = img
	return nil
}

func (m *DebugSink) SaveMixGraphJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MixGraphJSON = data
	return nil
}

func (m *DebugSink) SaveStream(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Streams[name] = data
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
