// Package audiosource implements the audio source resolution stage.
//
// For every video clip it decides whether a distinct audio clip already
// carries the video's soundtrack, and synthesizes a virtual audio clip
// from the video's own bytes when none does. The guarantee is that a
// video clip contributes audio exactly once: never zero, never twice.
package audiosource

import (
	"context"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// Stage resolves the final audio clip set.
type Stage struct {
	logger ports.Logger
}

// NewStage creates a new audio source resolution stage.
func NewStage(logger ports.Logger) *Stage {
	return &Stage{
		logger: logger.WithComponent("audiosource"),
	}
}

// Execute returns the full clip set with virtual audio clips appended
// for video clips that have no linked audio. The explicit link table is
// authoritative; the flag/id/origin/name heuristics are a defensive
// fallback for legacy, untagged data.
func (s *Stage) Execute(ctx context.Context, input pipeline.ResolveAudioInput) (pipeline.ResolveAudioResult, error) {
	result := pipeline.ResolveAudioResult{
		Clips: make([]pipeline.Clip, len(input.Clips)),
	}
	copy(result.Clips, input.Clips)

	var audioClips []pipeline.Clip
	audioByID := make(map[string]bool)
	for _, c := range input.Clips {
		if c.Kind == pipeline.KindAudio {
			audioClips = append(audioClips, c)
			audioByID[c.ID] = true
		}
	}

	for _, c := range input.Clips {
		if c.Kind != pipeline.KindVideo {
			continue
		}
		if s.hasLinkedAudio(c, input.AudioLinks, audioClips, audioByID) {
			s.logger.Debug("Clip %s already has a linked audio source", c.ID)
			continue
		}

		virtual := synthesize(c)
		result.Clips = append(result.Clips, virtual)
		result.Synthesized++
		s.logger.Debug("Synthesized virtual audio clip for %s", c.ID)
	}

	return result, nil
}

// hasLinkedAudio runs the linkage checks in priority order. The name
// suffix convention is a weak signal and is consulted last, only when
// every id-based check has failed.
func (s *Stage) hasLinkedAudio(video pipeline.Clip, links map[string]string, audioClips []pipeline.Clip, audioByID map[string]bool) bool {
	// Explicit link table from the timeline editor.
	if id, ok := links[video.ID]; ok && audioByID[id] {
		return true
	}

	// 1. Explicit flag on the video clip.
	if video.HasLinkedAudio {
		return true
	}

	// 2. An audio clip pointing back at this video.
	for _, a := range audioClips {
		if a.SourceVideoID == video.ID || a.LinkedVideoID == video.ID {
			return true
		}
	}

	// 3. Same origin asset, re-imported.
	if video.SourceClipID != "" {
		for _, a := range audioClips {
			if a.SourceClipID == video.SourceClipID {
				return true
			}
		}
	}

	// 4. Reverse link field or naming convention.
	for _, a := range audioClips {
		if a.LinkedAudioID != "" && a.LinkedAudioID == video.ID {
			return true
		}
		if video.Name != "" && a.Name == video.Name+" (Audio)" {
			return true
		}
	}

	return false
}

// synthesize builds a virtual audio clip carrying the video clip's
// embedded soundtrack. The raw bytes are shared, not copied.
func synthesize(video pipeline.Clip) pipeline.Clip {
	return pipeline.Clip{
		ID:               video.ID + ":audio",
		Kind:             pipeline.KindAudio,
		Name:             video.Name + " (Audio)",
		StartTime:        video.StartTime,
		Duration:         video.Duration,
		SourceVideoID:    video.ID,
		DerivedFromVideo: true,
		RawSource:        video.RawSource,
	}
}
