// Package filesink implements ports.DebugSink on a directory tree.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/clipforge/pkg/ports"
)

// DebugSink writes intermediate artifacts under a debug directory:
//
//	timeline.json     resolved clip set
//	timeline.png      timeline visualization
//	frames/           captured surfaces
//	mix-graph.json    audio mix graph
//	streams/          intermediate encoded streams
//
// An empty directory disables the sink entirely.
type DebugSink struct {
	dir    string
	fs     ports.FileSystem
	images ports.ImageRenderer
	logger ports.Logger
}

// New creates a debug sink rooted at dir.
func New(dir string, fs ports.FileSystem, images ports.ImageRenderer, logger ports.Logger) *DebugSink {
	return &DebugSink{
		dir:    dir,
		fs:     fs,
		images: images,
		logger: logger.WithComponent("debug"),
	}
}

func (s *DebugSink) Enabled() bool {
	return s.dir != ""
}

func (s *DebugSink) SaveTimelineJSON(data []byte) error {
	return s.write(filepath.Join(s.dir, "timeline.json"), data)
}

func (s *DebugSink) SaveTimelineImage(img image.Image) error {
	if !s.Enabled() {
		return nil
	}
	data, err := s.images.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode timeline image: %w", err)
	}
	return s.write(filepath.Join(s.dir, "timeline.png"), data)
}

func (s *DebugSink) SaveCapturedFrame(index int, img image.Image) error {
	if !s.Enabled() {
		return nil
	}
	data, err := s.images.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", index, err)
	}
	return s.write(filepath.Join(s.dir, "frames", fmt.Sprintf("frame-%06d.png", index)), data)
}

func (s *DebugSink) SaveMixGraphJSON(data []byte) error {
	return s.write(filepath.Join(s.dir, "mix-graph.json"), data)
}

func (s *DebugSink) SaveStream(name string, data []byte) error {
	return s.write(filepath.Join(s.dir, "streams", name), data)
}

func (s *DebugSink) write(path string, data []byte) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create debug dir: %w", err)
	}
	if err := s.fs.WriteFile(path, data); err != nil {
		return fmt.Errorf("write debug file: %w", err)
	}
	s.logger.Debug("Saved %s", path)
	return nil
}

var _ ports.DebugSink = (*DebugSink)(nil)
