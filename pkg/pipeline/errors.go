package pipeline

import "errors"

// Failure taxonomy for the export pipeline. Stages wrap these sentinels
// with fmt.Errorf("...: %w", ...) so the orchestrator can classify
// failures with errors.Is.
var (
	// ErrInvalidInput marks bad export parameters (non-positive
	// duration or frame rate, empty clip list). Fails fast, no retry.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoRenderTarget marks a renderer with no visible surface.
	// Terminal, no retry.
	ErrNoRenderTarget = errors.New("no render target")

	// ErrEmptyCapture marks a capture sink that produced a zero-length
	// stream. Terminal, no retry.
	ErrEmptyCapture = errors.New("empty capture")

	// ErrRendererUnresponsive marks a renderer settle that exceeded
	// its time bound. Terminal, no retry: a hang is not a condition
	// the resource-exhaustion fallback can fix.
	ErrRendererUnresponsive = errors.New("renderer unresponsive")

	// ErrEncoderUnresponsive marks a codec engine command that
	// exceeded its time bound. Terminal, no retry.
	ErrEncoderUnresponsive = errors.New("encoder unresponsive")

	// ErrResourceExhausted marks an out-of-memory class failure from
	// the codec engine. The orchestrator retries the whole pipeline
	// exactly once with the degraded capture strategy.
	ErrResourceExhausted = errors.New("resource exhausted")
)
