package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/mocks"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/stages/audiosource"
	"github.com/user/clipforge/pkg/stages/duration"
)

// harness wires real resolution stages with stubbed media stages.
type harness struct {
	exporter *Exporter
	dbg      *mocks.DebugSink

	captureInputs []pipeline.CaptureInput
	mixInputs     []pipeline.MixInput
	combineInputs []pipeline.CombineInput

	captureFunc func(n int, input pipeline.CaptureInput) (pipeline.CaptureResult, error)
	mixFunc     func(n int, input pipeline.MixInput) (pipeline.MixResult, error)
	combineFunc func(n int, input pipeline.CombineInput) (pipeline.CombineResult, error)
}

func newHarness(debug bool) *harness {
	h := &harness{dbg: mocks.NewDebugSink(debug)}

	capture := pipeline.StageFunc[pipeline.CaptureInput, pipeline.CaptureResult](
		func(ctx context.Context, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
			h.captureInputs = append(h.captureInputs, input)
			if h.captureFunc != nil {
				return h.captureFunc(len(h.captureInputs), input)
			}
			mime := "video/mp4"
			if input.PreserveAlpha {
				mime = "video/webm"
			}
			return pipeline.CaptureResult{Video: []byte("video"), MimeType: mime, FrameCount: 10}, nil
		})

	mix := pipeline.StageFunc[pipeline.MixInput, pipeline.MixResult](
		func(ctx context.Context, input pipeline.MixInput) (pipeline.MixResult, error) {
			h.mixInputs = append(h.mixInputs, input)
			if h.mixFunc != nil {
				return h.mixFunc(len(h.mixInputs), input)
			}
			if len(input.Clips) == 0 {
				return pipeline.MixResult{}, nil
			}
			return pipeline.MixResult{Audio: []byte("audio"), Mixed: len(input.Clips)}, nil
		})

	combine := pipeline.StageFunc[pipeline.CombineInput, pipeline.CombineResult](
		func(ctx context.Context, input pipeline.CombineInput) (pipeline.CombineResult, error) {
			h.combineInputs = append(h.combineInputs, input)
			if h.combineFunc != nil {
				return h.combineFunc(len(h.combineInputs), input)
			}
			return pipeline.CombineResult{Artifact: []byte("final"), MimeType: input.MimeType, HasAudio: len(input.Audio) > 0}, nil
		})

	h.exporter = New(
		audiosource.NewStage(logger.NewNoop()),
		duration.NewStage(),
		capture,
		mix,
		combine,
		&mocks.ImageRenderer{},
		h.dbg,
		logger.NewNoop(),
	)
	return h
}

func videoRequest() pipeline.ExportRequest {
	return pipeline.ExportRequest{
		Clips: []pipeline.Clip{
			{ID: "v1", Kind: pipeline.KindVideo, StartTime: 0, Duration: 5, RawSource: []byte("mp4")},
		},
		NominalDuration: 10,
		Width:           1920,
		Height:          1080,
		FrameRate:       15,
	}
}

func TestExport_FullFidelityFirstAttempt(t *testing.T) {
	h := newHarness(false)

	result, err := h.exporter.Export(context.Background(), videoRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Degraded {
		t.Error("first attempt must not be degraded")
	}
	if result.MimeType != "video/webm" {
		t.Errorf("expected webm from the alpha strategy, got %s", result.MimeType)
	}
	if result.DurationUsed != 5 {
		t.Errorf("duration must come from clip placement, not the nominal 10s, got %f", result.DurationUsed)
	}
	if !result.HasAudio {
		t.Error("the synthesized soundtrack should reach the final artifact")
	}

	if len(h.captureInputs) != 1 {
		t.Fatalf("expected 1 capture attempt, got %d", len(h.captureInputs))
	}
	in := h.captureInputs[0]
	if !in.PreserveAlpha || !in.Paced {
		t.Errorf("first strategy must be paced with alpha, got %+v", in)
	}
	if in.Duration != 5 || in.FrameRate != 15 || in.Width != 1920 || in.Height != 1080 {
		t.Errorf("unexpected capture input %+v", in)
	}
}

func TestExport_SynthesizedAudioReachesMix(t *testing.T) {
	h := newHarness(false)

	_, err := h.exporter.Export(context.Background(), videoRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(h.mixInputs) != 1 {
		t.Fatalf("expected 1 mix call, got %d", len(h.mixInputs))
	}
	clips := h.mixInputs[0].Clips
	if len(clips) != 1 {
		t.Fatalf("expected the virtual audio clip, got %d clips", len(clips))
	}
	if clips[0].ID != "v1:audio" || !clips[0].DerivedFromVideo {
		t.Errorf("unexpected mix clip %+v", clips[0])
	}
	if h.mixInputs[0].VideoMimeType != "video/webm" {
		t.Errorf("mix must see the capture container, got %s", h.mixInputs[0].VideoMimeType)
	}
}

func TestExport_ResourceExhaustionRetriesDegraded(t *testing.T) {
	h := newHarness(false)
	h.captureFunc = func(n int, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
		if n == 1 {
			return pipeline.CaptureResult{}, fmt.Errorf("encode: %w", pipeline.ErrResourceExhausted)
		}
		return pipeline.CaptureResult{Video: []byte("video"), MimeType: "video/mp4", FrameCount: 10}, nil
	}

	result, err := h.exporter.Export(context.Background(), videoRequest(), nil)
	if err != nil {
		t.Fatalf("expected the degraded retry to succeed, got %v", err)
	}

	if !result.Degraded {
		t.Error("a retried export must be flagged degraded")
	}
	if len(h.captureInputs) != 2 {
		t.Fatalf("expected 2 capture attempts, got %d", len(h.captureInputs))
	}
	second := h.captureInputs[1]
	if second.PreserveAlpha || second.Paced || second.FixedDelayMs != 5 {
		t.Errorf("second attempt must use the degraded strategy, got %+v", second)
	}
}

func TestExport_MixResourceExhaustionRetries(t *testing.T) {
	h := newHarness(false)
	h.mixFunc = func(n int, input pipeline.MixInput) (pipeline.MixResult, error) {
		if n == 1 {
			return pipeline.MixResult{}, fmt.Errorf("amix: %w", pipeline.ErrResourceExhausted)
		}
		return pipeline.MixResult{Audio: []byte("audio"), Mixed: 1}, nil
	}

	result, err := h.exporter.Export(context.Background(), videoRequest(), nil)
	if err != nil {
		t.Fatalf("expected the degraded retry to succeed, got %v", err)
	}
	if !result.Degraded {
		t.Error("a retried export must be flagged degraded")
	}
	if len(h.captureInputs) != 2 {
		t.Errorf("the retry must re-run capture, got %d attempts", len(h.captureInputs))
	}
}

func TestExport_ExhaustionOnBothTiersIsTerminal(t *testing.T) {
	h := newHarness(false)
	h.captureFunc = func(n int, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
		return pipeline.CaptureResult{}, fmt.Errorf("encode: %w", pipeline.ErrResourceExhausted)
	}

	_, err := h.exporter.Export(context.Background(), videoRequest(), nil)
	if !errors.Is(err, pipeline.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if len(h.captureInputs) != 2 {
		t.Errorf("exactly one retry is allowed, got %d attempts", len(h.captureInputs))
	}
}

func TestExport_OtherFailuresDoNotRetry(t *testing.T) {
	h := newHarness(false)
	h.captureFunc = func(n int, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
		return pipeline.CaptureResult{}, fmt.Errorf("settle: %w", pipeline.ErrRendererUnresponsive)
	}

	_, err := h.exporter.Export(context.Background(), videoRequest(), nil)
	if !errors.Is(err, pipeline.ErrRendererUnresponsive) {
		t.Fatalf("expected ErrRendererUnresponsive, got %v", err)
	}
	if len(h.captureInputs) != 1 {
		t.Errorf("a hang must not be retried, got %d attempts", len(h.captureInputs))
	}
}

func TestExport_ValidatesRequest(t *testing.T) {
	h := newHarness(false)

	cases := []pipeline.ExportRequest{
		{Width: 1920, Height: 1080, FrameRate: 15},
		func() pipeline.ExportRequest { r := videoRequest(); r.Width = 0; return r }(),
		func() pipeline.ExportRequest { r := videoRequest(); r.Height = -1; return r }(),
		func() pipeline.ExportRequest { r := videoRequest(); r.FrameRate = 0; return r }(),
	}
	for i, req := range cases {
		if _, err := h.exporter.Export(context.Background(), req, nil); !errors.Is(err, pipeline.ErrInvalidInput) {
			t.Errorf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
	if len(h.captureInputs) != 0 {
		t.Error("invalid requests must fail before capture")
	}
}

func TestExport_ProgressIsWeightedAndMonotonic(t *testing.T) {
	h := newHarness(false)
	h.captureFunc = func(n int, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
		input.OnProgress(0.5, "")
		input.OnProgress(1, "")
		return pipeline.CaptureResult{Video: []byte("video"), MimeType: "video/webm"}, nil
	}
	h.mixFunc = func(n int, input pipeline.MixInput) (pipeline.MixResult, error) {
		input.OnProgress(1, "")
		return pipeline.MixResult{Audio: []byte("audio"), Mixed: 1}, nil
	}

	var fractions []float64
	var messages []string
	_, err := h.exporter.Export(context.Background(), videoRequest(), func(f float64, msg string) {
		fractions = append(fractions, f)
		messages = append(messages, msg)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{0.3, 0.6, 0.9, 1.0}
	if len(fractions) != len(want) {
		t.Fatalf("expected %d progress reports, got %v", len(want), fractions)
	}
	for i := range want {
		if diff := fractions[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("progress %d: expected %f, got %f", i, want[i], fractions[i])
		}
	}
	if messages[len(messages)-1] != "Export completed" {
		t.Errorf("the final report must carry the outcome, got %q", messages[len(messages)-1])
	}
}

func TestExport_DegradedOutcomeReachesProgress(t *testing.T) {
	h := newHarness(false)
	h.captureFunc = func(n int, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
		if n == 1 {
			return pipeline.CaptureResult{}, fmt.Errorf("encode: %w", pipeline.ErrResourceExhausted)
		}
		return pipeline.CaptureResult{Video: []byte("video"), MimeType: "video/mp4"}, nil
	}

	var last string
	_, err := h.exporter.Export(context.Background(), videoRequest(), func(_ float64, msg string) {
		if msg != "" {
			last = msg
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last != "Export completed (degraded, no alpha)" {
		t.Errorf("expected the degraded outcome message, got %q", last)
	}
}

func TestExport_FailureReasonReachesProgress(t *testing.T) {
	h := newHarness(false)
	h.captureFunc = func(n int, input pipeline.CaptureInput) (pipeline.CaptureResult, error) {
		return pipeline.CaptureResult{}, fmt.Errorf("settle: %w", pipeline.ErrRendererUnresponsive)
	}

	var fractions []float64
	var last string
	_, err := h.exporter.Export(context.Background(), videoRequest(), func(f float64, msg string) {
		fractions = append(fractions, f)
		last = msg
	})
	if err == nil {
		t.Fatal("expected the capture failure to surface")
	}
	if len(fractions) == 0 || fractions[len(fractions)-1] != 1 {
		t.Errorf("a failed export must still report terminal progress, got %v", fractions)
	}
	if !strings.HasPrefix(last, "Export failed:") || !strings.Contains(last, "settle") {
		t.Errorf("the final report must carry the failure reason, got %q", last)
	}
}

func TestExportWithFallback_SkipsFullFidelity(t *testing.T) {
	h := newHarness(false)

	result, err := h.exporter.ExportWithFallback(context.Background(), videoRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Degraded {
		t.Error("fallback export must be flagged degraded")
	}
	if len(h.captureInputs) != 1 {
		t.Fatalf("expected 1 capture attempt, got %d", len(h.captureInputs))
	}
	if h.captureInputs[0].PreserveAlpha {
		t.Error("fallback must not attempt the alpha strategy")
	}
}

func TestExport_SavesTimelineWhenDebugging(t *testing.T) {
	h := newHarness(true)

	_, err := h.exporter.Export(context.Background(), videoRequest(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.dbg.TimelineJSON) == 0 {
		t.Error("expected the timeline JSON to be saved")
	}
	if h.dbg.TimelineImage == nil {
		t.Error("expected the timeline image to be saved")
	}
}
