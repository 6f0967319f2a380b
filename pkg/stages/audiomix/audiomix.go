// Package audiomix implements the audio mixing stage.
//
// Each audio clip gets a transform chain (trim, rebase timestamps,
// delay by its start time, pad to the export duration) and all chains
// are combined into one additive mix spanning the resolved duration.
// Overlapping clips are summed, never replaced: the mix uses
// longest-duration semantics so no chain truncates another.
package audiomix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// defaultCommandTimeout bounds each codec engine command. A hang past
// the bound indicates a condition the resource-exhaustion retry cannot
// fix, so it is terminal.
const defaultCommandTimeout = 2 * time.Minute

// durationEpsilon absorbs float rounding when comparing clip spans
// against the resolved duration.
const durationEpsilon = 1e-9

// Stage mixes the resolved audio clip set into one stream.
type Stage struct {
	engine ports.CodecEngine
	dbg    ports.DebugSink
	logger ports.Logger

	commandTimeout time.Duration
}

// NewStage creates a new audio mix stage.
func NewStage(engine ports.CodecEngine, dbg ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		engine:         engine,
		dbg:            dbg,
		logger:         logger.WithComponent("audiomix"),
		commandTimeout: defaultCommandTimeout,
	}
}

// graphEntry describes one clip's chain for the debug mix graph.
type graphEntry struct {
	ClipID string            `json:"clip_id"`
	Chain  ports.FilterChain `json:"chain"`
}

// Execute builds and runs the mix graph. A nil Audio with a nil error
// means "no audio": individual clip failures drop the clip from the
// mix, and a mix with zero surviving clips is a soft outcome, not an
// error, so the pipeline can proceed video-only.
func (s *Stage) Execute(ctx context.Context, input pipeline.MixInput) (pipeline.MixResult, error) {
	result := pipeline.MixResult{}

	if input.Duration <= 0 {
		return result, fmt.Errorf("%w: mix duration %f", pipeline.ErrInvalidInput, input.Duration)
	}

	clips := audioOnly(input.Clips)
	if len(clips) == 0 {
		return result, nil
	}

	codec := ports.AudioAAC
	if input.VideoMimeType == "video/webm" {
		codec = ports.AudioOpus
	}

	// One clip covering the whole duration from zero needs no graph:
	// its source goes straight through the engine's trim/encode path.
	if len(clips) == 1 && clips[0].StartTime == 0 && clips[0].Duration >= input.Duration-durationEpsilon {
		return s.passthrough(ctx, clips[0], input.Duration, codec)
	}

	s.logger.Debug("Mixing %d audio clips", len(clips))

	var prepared [][]byte
	var graph []graphEntry
	for i, clip := range clips {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		chain := ports.FilterChain{
			TrimDuration:    clip.Duration,
			ResetTimestamps: true,
			DelaySeconds:    clip.StartTime,
			PadToDuration:   input.Duration,
		}

		stream, err := s.prepareClip(ctx, clip, chain)
		if err != nil {
			if terminal := s.classify(ctx, err); terminal != nil {
				return result, terminal
			}
			// A partial mix beats aborting the whole export.
			s.logger.Warn("Dropped audio clip %s: %s", clip.ID, err)
			result.Dropped++
			continue
		}

		prepared = append(prepared, stream)
		graph = append(graph, graphEntry{ClipID: clip.ID, Chain: chain})

		if input.OnProgress != nil {
			input.OnProgress(float64(i+1)/float64(len(clips)+1), "")
		}
	}

	if len(prepared) == 0 {
		s.logger.Warn("All audio clips failed, continuing video-only")
		return result, nil
	}

	if s.dbg.Enabled() {
		if data, err := json.MarshalIndent(graph, "", "  "); err == nil {
			s.dbg.SaveMixGraphJSON(data)
		}
	}

	mixed, err := s.runCommand(ctx, func(cmdCtx context.Context) ([]byte, error) {
		return s.engine.MixAudio(cmdCtx, prepared, input.Duration, codec)
	})
	if err != nil {
		if terminal := s.classify(ctx, err); terminal != nil {
			return result, terminal
		}
		s.logger.Warn("All audio clips failed, continuing video-only")
		result.Dropped += len(prepared)
		return pipeline.MixResult{Dropped: result.Dropped}, nil
	}

	s.logger.Debug("Audio mix completed: %d bytes", len(mixed))
	if input.OnProgress != nil {
		input.OnProgress(1, "")
	}

	result.Audio = mixed
	result.Mixed = len(prepared)
	return result, nil
}

// passthrough handles the single full-length clip shortcut.
func (s *Stage) passthrough(ctx context.Context, clip pipeline.Clip, duration float64, codec ports.AudioCodec) (pipeline.MixResult, error) {
	src, err := s.isolateAudio(ctx, clip)
	if err == nil {
		var out []byte
		out, err = s.runCommand(ctx, func(cmdCtx context.Context) ([]byte, error) {
			return s.engine.MixAudio(cmdCtx, [][]byte{src}, duration, codec)
		})
		if err == nil {
			return pipeline.MixResult{Audio: out, Mixed: 1}, nil
		}
	}
	if terminal := s.classify(ctx, err); terminal != nil {
		return pipeline.MixResult{}, terminal
	}
	s.logger.Warn("Dropped audio clip %s: %s", clip.ID, err)
	return pipeline.MixResult{Dropped: 1}, nil
}

// prepareClip isolates the clip's audio and applies its transform chain.
func (s *Stage) prepareClip(ctx context.Context, clip pipeline.Clip, chain ports.FilterChain) ([]byte, error) {
	src, err := s.isolateAudio(ctx, clip)
	if err != nil {
		return nil, err
	}
	return s.runCommand(ctx, func(cmdCtx context.Context) ([]byte, error) {
		return s.engine.TransformAudio(cmdCtx, src, chain)
	})
}

// isolateAudio returns the clip's audio-only stream, demuxing first
// when the raw source is a video file.
func (s *Stage) isolateAudio(ctx context.Context, clip pipeline.Clip) ([]byte, error) {
	if len(clip.RawSource) == 0 {
		return nil, fmt.Errorf("clip %s has no raw source", clip.ID)
	}

	needsDemux := clip.DerivedFromVideo
	if !needsDemux {
		info, err := s.engine.Probe(ctx, clip.RawSource)
		if err == nil && info.HasVideo {
			needsDemux = true
		}
	}
	if !needsDemux {
		return clip.RawSource, nil
	}

	return s.runCommand(ctx, func(cmdCtx context.Context) ([]byte, error) {
		return s.engine.DemuxAudio(cmdCtx, clip.RawSource)
	})
}

// runCommand executes one engine command under the per-command bound.
func (s *Stage) runCommand(ctx context.Context, f func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, s.commandTimeout)
	defer cancel()
	out, err := f(cmdCtx)
	if err != nil && errors.Is(cmdCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, fmt.Errorf("codec command timed out: %w", pipeline.ErrEncoderUnresponsive)
	}
	return out, err
}

// classify returns the error when it must abort the stage: caller
// cancellation, an unresponsive engine, or resource exhaustion (which
// the orchestrator turns into the degraded retry). Anything else is a
// droppable per-clip condition and yields nil.
func (s *Stage) classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, pipeline.ErrEncoderUnresponsive):
		return err
	case errors.Is(err, pipeline.ErrResourceExhausted):
		return fmt.Errorf("audio mix: %w", err)
	default:
		return nil
	}
}

func audioOnly(clips []pipeline.Clip) []pipeline.Clip {
	var out []pipeline.Clip
	for _, c := range clips {
		if c.Kind == pipeline.KindAudio {
			out = append(out, c)
		}
	}
	return out
}
