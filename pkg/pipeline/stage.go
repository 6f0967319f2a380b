// Package pipeline provides the pipeline infrastructure for clipforge.
package pipeline

import (
	"context"
)

// Stage represents a processing stage in the export pipeline.
// Each stage takes an input and produces an output.
type Stage[In, Out any] interface {
	// Execute runs the stage with the given input and returns the output.
	Execute(ctx context.Context, input In) (Out, error)
}

// StageFunc is a function adapter for the Stage interface.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

// Execute implements the Stage interface.
func (f StageFunc[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}

// ProgressFunc reports progress in the range [0, 1] with an optional
// status message. Stages report bare fractions that the orchestrator
// scales into their share of overall progress; the final report always
// carries the outcome (completed, completed degraded, or the failure
// reason).
type ProgressFunc func(fraction float64, message string)
