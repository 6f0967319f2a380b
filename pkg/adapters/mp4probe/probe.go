// Package mp4probe inspects MP4 containers in-process, without
// spawning ffprobe.
package mp4probe

import (
	"bytes"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/clipforge/pkg/ports"
)

// Probe reads the container's movie header and track handlers. The
// returned duration is zero for fragmented files whose movie header
// carries no total; callers treat zero as unknown.
func Probe(data []byte) (ports.StreamInfo, error) {
	parsed, err := mp4.DecodeFile(bytes.NewReader(data))
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("decode mp4: %w", err)
	}
	if parsed.Moov == nil {
		return ports.StreamInfo{}, fmt.Errorf("mp4 stream has no moov box")
	}

	info := ports.StreamInfo{Format: "mp4"}

	if mvhd := parsed.Moov.Mvhd; mvhd != nil && mvhd.Timescale > 0 {
		info.Duration = float64(mvhd.Duration) / float64(mvhd.Timescale)
	}

	for _, trak := range parsed.Moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
			continue
		}
		switch trak.Mdia.Hdlr.HandlerType {
		case "vide":
			info.HasVideo = true
		case "soun":
			info.HasAudio = true
		}
	}

	return info, nil
}
