// Package duration implements the export duration resolution stage.
package duration

import (
	"context"
	"fmt"

	"github.com/user/clipforge/pkg/pipeline"
)

// Stage resolves the true export duration from clip placement. The
// nominal timeline duration is a UI-level ceiling that often exceeds the
// last clip's end time; exporting to it produces trailing blank frames
// and breaks seamless looping. The resolved duration is the last clip's
// end time, so the output is tight and loop-ready.
type Stage struct{}

// NewStage creates a new duration resolution stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute computes max(startTime + duration) over all clips. An empty
// clip list resolves to the nominal duration. The function is pure.
func (s *Stage) Execute(ctx context.Context, input pipeline.DurationInput) (pipeline.DurationResult, error) {
	if len(input.Clips) == 0 {
		if input.NominalDuration <= 0 {
			return pipeline.DurationResult{}, fmt.Errorf("%w: nominal duration %f", pipeline.ErrInvalidInput, input.NominalDuration)
		}
		return pipeline.DurationResult{ActualDuration: input.NominalDuration}, nil
	}

	var last float64
	for _, c := range input.Clips {
		if end := c.End(); end > last {
			last = end
		}
	}
	if last <= 0 {
		return pipeline.DurationResult{}, fmt.Errorf("%w: clips occupy no time", pipeline.ErrInvalidInput)
	}
	return pipeline.DurationResult{ActualDuration: last}, nil
}
