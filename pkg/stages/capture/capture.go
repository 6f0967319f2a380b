// Package capture implements the frame capture stage.
//
// The stage drives the external renderer through the timeline
// frame-by-frame: seek, wait for the render to settle, grab the surface,
// hand it to the capture sink. The renderer and the sink are both
// external capabilities; this stage owns only the loop, the pacing and
// the failure classification.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// settleCycles is the minimum number of render-cycle confirmations
// after a seek. One cycle can still present the previous frame; two
// guarantee the sought frame is on the surface.
const settleCycles = 2

// minSettleTimeout is the floor for the per-frame settle bound, so very
// high frame rates don't produce sub-millisecond timeouts.
const minSettleTimeout = 2 * time.Second

// Stage captures rendered frames into an encoded video stream.
type Stage struct {
	renderer ports.FrameRenderer
	sink     ports.CaptureSink
	images   ports.ImageRenderer
	dbg      ports.DebugSink
	logger   ports.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewStage creates a new frame capture stage.
func NewStage(renderer ports.FrameRenderer, sink ports.CaptureSink, images ports.ImageRenderer, dbg ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		sink:     sink,
		images:   images,
		dbg:      dbg,
		logger:   logger.WithComponent("capture"),
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Execute captures ceil(duration * frameRate) frames.
//
// In paced mode each frame's dispatch is scheduled at
// frameIndex * idealInterval relative to stage start, computed against
// wall-clock elapsed time, so one slow render cycle does not accumulate
// drift across the export. The degraded mode replaces the scheduler
// with a fixed minimal delay.
func (s *Stage) Execute(ctx context.Context, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
	result := pipeline.CaptureResult{}

	if input.Duration <= 0 || input.FrameRate <= 0 || input.Width <= 0 || input.Height <= 0 {
		return result, fmt.Errorf("%w: duration=%f fps=%f size=%dx%d",
			pipeline.ErrInvalidInput, input.Duration, input.FrameRate, input.Width, input.Height)
	}

	opts := ports.RenderOptions{
		Width:     input.Width,
		Height:    input.Height,
		FrameRate: input.FrameRate,
	}
	if err := s.renderer.Prepare(ctx, opts); err != nil {
		return result, fmt.Errorf("prepare renderer: %w", err)
	}
	defer func() {
		s.renderer.Close()
		s.logger.Debug("Renderer closed")
	}()

	// Fail fast before spending any time budget.
	if !s.renderer.HasRenderTarget() {
		return result, fmt.Errorf("capture: %w", pipeline.ErrNoRenderTarget)
	}

	totalFrames := int(math.Ceil(input.Duration * input.FrameRate))
	interval := time.Duration(float64(time.Second) / input.FrameRate)
	settleTimeout := 10 * interval
	if settleTimeout < minSettleTimeout {
		settleTimeout = minSettleTimeout
	}

	sinkOpts := ports.CaptureOptions{PreserveAlpha: input.PreserveAlpha}
	if err := s.sink.Begin(input.Width, input.Height, input.FrameRate, sinkOpts); err != nil {
		return result, fmt.Errorf("begin capture sink: %w", err)
	}

	// The sink holds an encoder process once started. Any exit before
	// End must release it, or the next export finds it occupied.
	finalized := false
	defer func() {
		if !finalized {
			s.sink.Abort()
		}
	}()

	s.logger.Debug("Capturing %d frames at %.1f fps", totalFrames, input.FrameRate)
	start := s.now()

	for i := 0; i < totalFrames; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if input.Paced {
			target := start.Add(time.Duration(i) * interval)
			if wait := target.Sub(s.now()); wait > 0 {
				if err := s.sleep(ctx, wait); err != nil {
					return result, err
				}
			}
		} else if input.FixedDelayMs > 0 && i > 0 {
			if err := s.sleep(ctx, time.Duration(input.FixedDelayMs)*time.Millisecond); err != nil {
				return result, err
			}
		}

		t := float64(i) / input.FrameRate
		img, err := s.captureFrame(ctx, t, settleTimeout)
		if err != nil {
			return result, err
		}

		if b := img.Bounds(); b.Dx() != input.Width || b.Dy() != input.Height {
			img = s.images.ResizeImage(img, input.Width, input.Height)
		}

		timestampMs := int(math.Round(t * 1000))
		if err := s.sink.AddFrame(img, timestampMs); err != nil {
			return result, fmt.Errorf("add frame %d: %w", i, err)
		}

		if s.dbg.Enabled() {
			s.dbg.SaveCapturedFrame(i, img)
		}
		if input.OnProgress != nil {
			input.OnProgress(float64(i+1)/float64(totalFrames), "")
		}
	}

	finalized = true
	data, err := s.sink.End()
	if err != nil {
		return result, fmt.Errorf("finalize capture: %w", err)
	}
	if len(data) == 0 {
		return result, fmt.Errorf("capture sink produced no output: %w", pipeline.ErrEmptyCapture)
	}

	s.logger.Debug("Captured %d frames into %d bytes", totalFrames, len(data))

	result.Video = data
	result.MimeType = s.sink.MimeType()
	result.FrameCount = totalFrames
	return result, nil
}

// captureFrame seeks one timestamp, waits for the render to settle and
// grabs the surface, all under a single time bound. A bound overrun is
// classified as RendererUnresponsive: a hang is not a condition the
// resource-exhaustion fallback can fix.
func (s *Stage) captureFrame(ctx context.Context, t float64, settleTimeout time.Duration) (image.Image, error) {
	frameCtx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	if err := s.renderer.Seek(frameCtx, t); err != nil {
		return nil, s.classifySettle(ctx, frameCtx, err, t, "seek")
	}
	for c := 0; c < settleCycles; c++ {
		if err := s.renderer.Confirm(frameCtx); err != nil {
			return nil, s.classifySettle(ctx, frameCtx, err, t, "confirm")
		}
	}

	img, err := s.renderer.Capture(frameCtx)
	if err != nil {
		return nil, s.classifySettle(ctx, frameCtx, err, t, "capture surface")
	}
	return img, nil
}

// classifySettle maps a per-frame deadline overrun to
// RendererUnresponsive while passing cancellation and renderer errors
// through unchanged.
func (s *Stage) classifySettle(ctx, frameCtx context.Context, err error, t float64, op string) error {
	if errors.Is(frameCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		s.logger.Error("Renderer did not settle at %.3fs", t)
		return fmt.Errorf("%s at %.3fs: %w", op, t, pipeline.ErrRendererUnresponsive)
	}
	return fmt.Errorf("%s at %.3fs: %w", op, t, err)
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
