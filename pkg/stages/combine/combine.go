// Package combine implements the stream combination stage.
//
// The captured video and the mixed audio are joined by stream copy,
// without re-encoding either side. The joined duration is clamped to
// the shorter of the two streams so neither freezes past its end.
package combine

import (
	"context"
	"fmt"
	"time"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

const defaultCommandTimeout = 2 * time.Minute

// Stage muxes video and audio into the final artifact.
type Stage struct {
	engine ports.CodecEngine
	dbg    ports.DebugSink
	logger ports.Logger

	commandTimeout time.Duration
}

// NewStage creates a new stream combination stage.
func NewStage(engine ports.CodecEngine, dbg ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		engine:         engine,
		dbg:            dbg,
		logger:         logger.WithComponent("combine"),
		commandTimeout: defaultCommandTimeout,
	}
}

// Execute combines the streams. Audio problems never fail the export:
// an absent, unreadable or unmuxable audio stream yields the video
// artifact unchanged with HasAudio false.
func (s *Stage) Execute(ctx context.Context, input pipeline.CombineInput) (pipeline.CombineResult, error) {
	result := pipeline.CombineResult{}

	if len(input.Video) == 0 {
		return result, fmt.Errorf("%w: empty video stream", pipeline.ErrInvalidInput)
	}
	if input.Duration <= 0 {
		return result, fmt.Errorf("%w: combine duration %f", pipeline.ErrInvalidInput, input.Duration)
	}

	videoOnly := pipeline.CombineResult{
		Artifact: input.Video,
		MimeType: input.MimeType,
		HasAudio: false,
	}

	if len(input.Audio) == 0 {
		s.logger.Debug("No audio stream, returning video-only")
		return videoOnly, nil
	}

	// A probe failure only means the duration is unknown, not that the
	// audio is absent: the stream still goes to the mux, clamped to the
	// resolved duration, and a real mux failure falls back below.
	target := input.Duration
	audioInfo, err := s.engine.Probe(ctx, input.Audio)
	switch {
	case err != nil:
		s.logger.Debug("Audio stream not probeable, muxing at resolved duration")
	case !audioInfo.HasAudio:
		s.logger.Debug("No audio stream, returning video-only")
		return videoOnly, nil
	case audioInfo.Duration > 0 && audioInfo.Duration < target:
		target = audioInfo.Duration
	}
	if videoInfo, err := s.engine.Probe(ctx, input.Video); err == nil {
		if videoInfo.Duration > 0 && videoInfo.Duration < target {
			target = videoInfo.Duration
		}
	}

	muxCtx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()
	combined, err := s.engine.MuxStreamCopy(muxCtx, input.Video, input.Audio, target)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		s.logger.Warn("Mux failed, falling back to video-only: %s", err)
		return videoOnly, nil
	}

	if s.dbg.Enabled() {
		s.dbg.SaveStream("combined", combined)
	}

	s.logger.Debug("Streams combined: %d bytes", len(combined))
	return pipeline.CombineResult{
		Artifact: combined,
		MimeType: input.MimeType,
		HasAudio: true,
	}, nil
}
