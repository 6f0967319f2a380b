// Package viz renders debug visualizations of the export timeline.
package viz

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

const (
	rowHeight    = 28
	rowGap       = 4
	marginX      = 10
	headerHeight = 24
	axisHeight   = 20
	labelSize    = 12.0
)

var (
	bgColor    = color.RGBA{R: 250, G: 250, B: 250, A: 255}
	axisColor  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	labelColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}

	kindColors = map[pipeline.ClipKind]color.Color{
		pipeline.KindVideo: color.RGBA{R: 66, G: 133, B: 244, A: 255},
		pipeline.KindImage: color.RGBA{R: 52, G: 168, B: 83, A: 255},
		pipeline.KindAudio: color.RGBA{R: 251, G: 140, B: 0, A: 255},
	}
	virtualColor = color.RGBA{R: 255, G: 193, B: 7, A: 255}
)

// RenderTimeline draws one row per clip over a shared time axis.
// Clips are grouped by kind, video first, so overlapping audio clips
// stay individually visible.
func RenderTimeline(images ports.ImageRenderer, clips []pipeline.Clip, duration float64, width int) (image.Image, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("timeline duration must be positive, got %f", duration)
	}
	if width < 2*marginX+100 {
		width = 2*marginX + 100
	}

	ordered := make([]pipeline.Clip, len(clips))
	copy(ordered, clips)
	sort.SliceStable(ordered, func(i, j int) bool {
		return kindRank(ordered[i].Kind) < kindRank(ordered[j].Kind)
	})

	height := headerHeight + len(ordered)*(rowHeight+rowGap) + axisHeight
	canvas := images.CreateCanvas(width, height, bgColor)
	plotWidth := width - 2*marginX

	canvas.DrawText(fmt.Sprintf("timeline %.3fs, %d clips", duration, len(ordered)), marginX, 16, labelSize, labelColor)

	for i, clip := range ordered {
		y := headerHeight + i*(rowHeight+rowGap)
		x := marginX + int(clip.StartTime/duration*float64(plotWidth))
		w := int(clip.Duration / duration * float64(plotWidth))
		if w < 2 {
			w = 2
		}

		fill := kindColors[clip.Kind]
		if clip.DerivedFromVideo {
			fill = virtualColor
		}
		canvas.DrawRect(x, y, w, rowHeight, fill)
		canvas.DrawRectStroke(x, y, w, rowHeight, labelColor, 1)
		canvas.DrawText(clip.ID, x+4, y+rowHeight-9, labelSize, labelColor)
	}

	axisY := height - axisHeight + 8
	canvas.DrawLine(marginX, axisY, marginX+plotWidth, axisY, axisColor, 1)
	for sec := 0; float64(sec) <= duration; sec++ {
		x := marginX + int(float64(sec)/duration*float64(plotWidth))
		canvas.DrawLine(x, axisY-3, x, axisY+3, axisColor, 1)
	}

	return canvas.ToImage(), nil
}

func kindRank(k pipeline.ClipKind) int {
	switch k {
	case pipeline.KindVideo:
		return 0
	case pipeline.KindImage:
		return 1
	default:
		return 2
	}
}
