// Package orchestrator drives the export pipeline end to end.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
	"github.com/user/clipforge/pkg/viz"
)

// Progress weights per stage. Resolution stages are effectively
// instant, so the visible budget goes to capture, mix and combine.
const (
	captureWeight = 0.6
	mixWeight     = 0.3
	combineWeight = 0.1
)

const timelineImageWidth = 1200

// CaptureStrategy describes one tier of the capture fallback ladder.
type CaptureStrategy struct {
	Name          string
	PreserveAlpha bool
	Paced         bool
	FixedDelayMs  int
}

// DefaultStrategies returns the fallback ladder: full fidelity with
// alpha and paced scheduling first, then a degraded tier that trades
// both for a smaller memory footprint.
func DefaultStrategies() []CaptureStrategy {
	return []CaptureStrategy{
		{Name: "full-fidelity", PreserveAlpha: true, Paced: true},
		{Name: "degraded", PreserveAlpha: false, Paced: false, FixedDelayMs: 5},
	}
}

// Exporter orchestrates the export pipeline stages.
type Exporter struct {
	resolveAudio pipeline.Stage[pipeline.ResolveAudioInput, pipeline.ResolveAudioResult]
	duration     pipeline.Stage[pipeline.DurationInput, pipeline.DurationResult]
	capture      pipeline.Stage[pipeline.CaptureInput, pipeline.CaptureResult]
	mix          pipeline.Stage[pipeline.MixInput, pipeline.MixResult]
	combine      pipeline.Stage[pipeline.CombineInput, pipeline.CombineResult]

	strategies []CaptureStrategy
	images     ports.ImageRenderer
	dbg        ports.DebugSink
	logger     ports.Logger
}

// New creates an exporter wired with the given stages and the default
// capture strategy ladder.
func New(
	resolveAudio pipeline.Stage[pipeline.ResolveAudioInput, pipeline.ResolveAudioResult],
	duration pipeline.Stage[pipeline.DurationInput, pipeline.DurationResult],
	capture pipeline.Stage[pipeline.CaptureInput, pipeline.CaptureResult],
	mix pipeline.Stage[pipeline.MixInput, pipeline.MixResult],
	combine pipeline.Stage[pipeline.CombineInput, pipeline.CombineResult],
	images ports.ImageRenderer,
	dbg ports.DebugSink,
	logger ports.Logger,
) *Exporter {
	return &Exporter{
		resolveAudio: resolveAudio,
		duration:     duration,
		capture:      capture,
		mix:          mix,
		combine:      combine,
		strategies:   DefaultStrategies(),
		images:       images,
		dbg:          dbg,
		logger:       logger.WithComponent("export"),
	}
}

// Export runs the full pipeline. Resource exhaustion advances the
// capture strategy ladder exactly once; every other failure class is
// terminal on first occurrence.
func (e *Exporter) Export(ctx context.Context, req pipeline.ExportRequest, progress pipeline.ProgressFunc) (pipeline.ExportResult, error) {
	if err := validate(req); err != nil {
		return pipeline.ExportResult{}, err
	}

	e.logger.Info("Starting export")

	resolved, err := e.resolveAudio.Execute(ctx, pipeline.ResolveAudioInput{
		Clips:      req.Clips,
		AudioLinks: req.AudioLinks,
	})
	if err != nil {
		return e.fail(progress, err)
	}
	if resolved.Synthesized > 0 {
		e.logger.Info("Synthesized %d virtual audio clips", resolved.Synthesized)
	}

	dur, err := e.duration.Execute(ctx, pipeline.DurationInput{
		Clips:           resolved.Clips,
		NominalDuration: req.NominalDuration,
	})
	if err != nil {
		return e.fail(progress, err)
	}
	e.logger.Info("Resolved duration: %.3fs (nominal %.3fs)", dur.ActualDuration, req.NominalDuration)

	e.saveTimeline(resolved.Clips, dur.ActualDuration)

	var lastErr error
	for i, strategy := range e.strategies {
		if i > 0 {
			e.logger.Warn("Retrying with degraded capture strategy")
		}

		result, err := e.attempt(ctx, req, resolved, dur.ActualDuration, strategy, progress)
		if err == nil {
			msg := "Export completed"
			if result.Degraded {
				msg = "Export completed (degraded, no alpha)"
			}
			e.logger.Info(msg)
			if progress != nil {
				progress(1, msg)
			}
			return result, nil
		}

		lastErr = err
		if !errors.Is(err, pipeline.ErrResourceExhausted) {
			return e.fail(progress, err)
		}
	}

	return e.fail(progress, lastErr)
}

// ExportWithFallback runs the pipeline on the degraded tiers only,
// skipping the full-fidelity attempt entirely.
func (e *Exporter) ExportWithFallback(ctx context.Context, req pipeline.ExportRequest, progress pipeline.ProgressFunc) (pipeline.ExportResult, error) {
	degraded := *e
	degraded.strategies = nil
	for _, s := range e.strategies {
		if !s.PreserveAlpha {
			degraded.strategies = append(degraded.strategies, s)
		}
	}
	if len(degraded.strategies) == 0 {
		degraded.strategies = e.strategies[len(e.strategies)-1:]
	}
	return degraded.Export(ctx, req, progress)
}

// attempt runs capture, mix and combine under one strategy.
func (e *Exporter) attempt(ctx context.Context, req pipeline.ExportRequest, resolved pipeline.ResolveAudioResult, duration float64, strategy CaptureStrategy, progress pipeline.ProgressFunc) (pipeline.ExportResult, error) {
	captured, err := e.capture.Execute(ctx, pipeline.CaptureInput{
		Duration:      duration,
		FrameRate:     req.FrameRate,
		Width:         req.Width,
		Height:        req.Height,
		PreserveAlpha: strategy.PreserveAlpha,
		Paced:         strategy.Paced,
		FixedDelayMs:  strategy.FixedDelayMs,
		OnProgress:    scale(progress, 0, captureWeight),
	})
	if err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("capture: %w", err)
	}

	mixed, err := e.mix.Execute(ctx, pipeline.MixInput{
		Clips:         resolved.AudioClips(),
		Duration:      duration,
		VideoMimeType: captured.MimeType,
		OnProgress:    scale(progress, captureWeight, mixWeight),
	})
	if err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("audio mix: %w", err)
	}

	combined, err := e.combine.Execute(ctx, pipeline.CombineInput{
		Video:    captured.Video,
		Audio:    mixed.Audio,
		Duration: duration,
		MimeType: captured.MimeType,
	})
	if err != nil {
		return pipeline.ExportResult{}, fmt.Errorf("combine: %w", err)
	}

	return pipeline.ExportResult{
		Artifact:     combined.Artifact,
		MimeType:     combined.MimeType,
		DurationUsed: duration,
		HasAudio:     combined.HasAudio,
		Degraded:     !strategy.PreserveAlpha,
	}, nil
}

func (e *Exporter) fail(progress pipeline.ProgressFunc, err error) (pipeline.ExportResult, error) {
	e.logger.Error("Export failed: %s", err)
	if progress != nil {
		progress(1, fmt.Sprintf("Export failed: %s", err))
	}
	return pipeline.ExportResult{}, err
}

// saveTimeline writes the resolved timeline as JSON and as a rendered
// image when debug output is enabled.
func (e *Exporter) saveTimeline(clips []pipeline.Clip, duration float64) {
	if !e.dbg.Enabled() {
		return
	}

	type entry struct {
		ID      string  `json:"id"`
		Kind    string  `json:"kind"`
		Name    string  `json:"name,omitempty"`
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Virtual bool    `json:"virtual,omitempty"`
	}
	entries := make([]entry, 0, len(clips))
	for _, c := range clips {
		entries = append(entries, entry{
			ID:      c.ID,
			Kind:    string(c.Kind),
			Name:    c.Name,
			Start:   c.StartTime,
			End:     c.End(),
			Virtual: c.DerivedFromVideo,
		})
	}
	if data, err := json.MarshalIndent(entries, "", "  "); err == nil {
		e.dbg.SaveTimelineJSON(data)
	}

	if img, err := viz.RenderTimeline(e.images, clips, duration, timelineImageWidth); err == nil {
		e.dbg.SaveTimelineImage(img)
	}
}

// scale maps a stage-local [0,1] fraction into its slice of the
// overall progress budget.
func scale(progress pipeline.ProgressFunc, offset, weight float64) pipeline.ProgressFunc {
	if progress == nil {
		return nil
	}
	return func(fraction float64, message string) {
		progress(offset+fraction*weight, message)
	}
}

func validate(req pipeline.ExportRequest) error {
	if len(req.Clips) == 0 {
		return fmt.Errorf("%w: no clips to export", pipeline.ErrInvalidInput)
	}
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("%w: output size %dx%d", pipeline.ErrInvalidInput, req.Width, req.Height)
	}
	if req.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate %f", pipeline.ErrInvalidInput, req.FrameRate)
	}
	return nil
}
