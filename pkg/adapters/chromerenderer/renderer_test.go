package chromerenderer

import (
	"context"
	"testing"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/ports"
)

func TestBuildPreviewURL(t *testing.T) {
	got, err := buildPreviewURL("http://localhost:5173/preview", ports.RenderOptions{
		Width: 1920, Height: 1080, FrameRate: 15,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "http://localhost:5173/preview?fps=15&height=1080&width=1920"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestBuildPreviewURL_KeepsExistingQuery(t *testing.T) {
	got, err := buildPreviewURL("http://localhost:5173/preview?project=42", ports.RenderOptions{
		Width: 640, Height: 360, FrameRate: 29.97,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "http://localhost:5173/preview?fps=29.97&height=360&project=42&width=640"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSeekExpr(t *testing.T) {
	if got := seekExpr(2.5); got != "window.__previewSeek(2.5)" {
		t.Errorf("unexpected seek expression %q", got)
	}
	if got := seekExpr(0); got != "window.__previewSeek(0)" {
		t.Errorf("unexpected seek expression %q", got)
	}
}

func TestUnpreparedRendererRefusesWork(t *testing.T) {
	r := New("http://localhost:5173/preview", logger.NewNoop())

	if r.HasRenderTarget() {
		t.Error("an unprepared renderer has no render target")
	}
	if err := r.Seek(context.Background(), 1); err == nil {
		t.Error("seek before prepare must fail")
	}
	if err := r.Close(); err != nil {
		t.Errorf("closing an unprepared renderer must be safe, got %v", err)
	}
}
