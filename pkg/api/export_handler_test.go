package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/mocks"
	"github.com/user/clipforge/pkg/pipeline"
)

type stubExporter struct {
	requests []pipeline.ExportRequest
	result   pipeline.ExportResult
	err      error
}

func (s *stubExporter) Export(ctx context.Context, req pipeline.ExportRequest, progress pipeline.ProgressFunc) (pipeline.ExportResult, error) {
	s.requests = append(s.requests, req)
	return s.result, s.err
}

func newTestHandler(exporter *stubExporter) (*ExportHandler, *mocks.FileSystem) {
	fs := mocks.NewFileSystem()
	h := NewExportHandler(exporter, fs, "/out", logger.NewNoop())
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return h, fs
}

func postExport(t *testing.T, h *ExportHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/export", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func TestHandleExport_Success(t *testing.T) {
	exporter := &stubExporter{
		result: pipeline.ExportResult{
			Artifact:     []byte("webm-bytes"),
			MimeType:     "video/webm",
			DurationUsed: 5,
			HasAudio:     true,
		},
	}
	h, fs := newTestHandler(exporter)

	rec := postExport(t, h, exportPayload{
		Clips: []clipPayload{
			{ID: "v1", Kind: "video", StartTime: 0, Duration: 5, Source: []byte("mp4")},
		},
		NominalDuration: 10,
		Width:           1280, Height: 720, FrameRate: 15,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp exportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.MimeType != "video/webm" || !resp.HasAudio || resp.DurationUsed != 5 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Size != len("webm-bytes") {
		t.Errorf("expected size %d, got %d", len("webm-bytes"), resp.Size)
	}

	wantPath := filepath.Join("/out", "export-1700000000000.webm")
	if resp.ArtifactPath != wantPath {
		t.Errorf("expected artifact at %s, got %s", wantPath, resp.ArtifactPath)
	}
	if data, ok := fs.GetFile(wantPath); !ok || string(data) != "webm-bytes" {
		t.Error("artifact bytes must be written to the output dir")
	}

	if len(exporter.requests) != 1 {
		t.Fatalf("expected 1 export call, got %d", len(exporter.requests))
	}
	clip := exporter.requests[0].Clips[0]
	if clip.Kind != pipeline.KindVideo || string(clip.RawSource) != "mp4" {
		t.Errorf("unexpected clip %+v", clip)
	}
}

func TestHandleExport_SourcePathLoadedFromDisk(t *testing.T) {
	exporter := &stubExporter{result: pipeline.ExportResult{Artifact: []byte("x"), MimeType: "video/mp4"}}
	h, fs := newTestHandler(exporter)
	fs.WriteFile("/media/intro.mp4", []byte("file-bytes"))

	rec := postExport(t, h, exportPayload{
		Clips: []clipPayload{
			{ID: "v1", Kind: "video", Duration: 3, SourcePath: "/media/intro.mp4"},
		},
		Width: 640, Height: 360, FrameRate: 10,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if string(exporter.requests[0].Clips[0].RawSource) != "file-bytes" {
		t.Error("sourcePath must be read through the file system")
	}
}

func TestHandleExport_MissingSourcePathIs400(t *testing.T) {
	h, _ := newTestHandler(&stubExporter{})

	rec := postExport(t, h, exportPayload{
		Clips: []clipPayload{
			{ID: "v1", Kind: "video", Duration: 3, SourcePath: "/media/absent.mp4"},
		},
		Width: 640, Height: 360, FrameRate: 10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleExport_InvalidBodyIs400(t *testing.T) {
	h, _ := newTestHandler(&stubExporter{})

	req := httptest.NewRequest(http.MethodPost, "/export", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleExport_InvalidInputMapsTo400(t *testing.T) {
	exporter := &stubExporter{err: fmt.Errorf("no clips: %w", pipeline.ErrInvalidInput)}
	h, _ := newTestHandler(exporter)

	rec := postExport(t, h, exportPayload{Width: 640, Height: 360, FrameRate: 10})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleExport_PipelineFailureIs500(t *testing.T) {
	exporter := &stubExporter{err: fmt.Errorf("settle: %w", pipeline.ErrRendererUnresponsive)}
	h, _ := newTestHandler(exporter)

	rec := postExport(t, h, exportPayload{
		Clips: []clipPayload{{ID: "v1", Kind: "video", Duration: 3, Source: []byte("x")}},
		Width: 640, Height: 360, FrameRate: 10,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

// blockingExporter holds Export open until released, so a second
// request can arrive while the first is in flight.
type blockingExporter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExporter) Export(ctx context.Context, req pipeline.ExportRequest, progress pipeline.ProgressFunc) (pipeline.ExportResult, error) {
	close(b.entered)
	<-b.release
	return pipeline.ExportResult{Artifact: []byte("x"), MimeType: "video/mp4"}, nil
}

func TestHandleExport_ConcurrentRequestIs409(t *testing.T) {
	exporter := &blockingExporter{entered: make(chan struct{}), release: make(chan struct{})}
	h := NewExportHandler(exporter, mocks.NewFileSystem(), "/out", logger.NewNoop())

	body, err := json.Marshal(exportPayload{
		Clips: []clipPayload{{ID: "v1", Kind: "video", Duration: 3, Source: []byte("x")}},
		Width: 640, Height: 360, FrameRate: 10,
	})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/export", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		NewRouter(h).ServeHTTP(rec, req)
		done <- rec
	}()

	<-exporter.entered
	req := httptest.NewRequest(http.MethodPost, "/export", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while an export is in flight, got %d", rec.Code)
	}

	close(exporter.release)
	if first := <-done; first.Code != http.StatusOK {
		t.Fatalf("the in-flight export must still complete, got %d: %s", first.Code, first.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h, _ := newTestHandler(&stubExporter{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
