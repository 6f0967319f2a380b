// Package api exposes the export pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
)

// Exporter runs one export request. Satisfied by the orchestrator.
type Exporter interface {
	Export(ctx context.Context, req pipeline.ExportRequest, progress pipeline.ProgressFunc) (pipeline.ExportResult, error)
}

// ExportHandler serves the export endpoint.
type ExportHandler struct {
	exporter  Exporter
	fs        ports.FileSystem
	outputDir string
	logger    ports.Logger

	now func() time.Time

	// The renderer and capture sink behind the exporter are stateful
	// single-occupancy resources, so exports never run concurrently.
	inFlight sync.Mutex
}

// NewExportHandler creates a handler that stores artifacts under
// outputDir.
func NewExportHandler(exporter Exporter, fs ports.FileSystem, outputDir string, logger ports.Logger) *ExportHandler {
	return &ExportHandler{
		exporter:  exporter,
		fs:        fs,
		outputDir: outputDir,
		logger:    logger.WithComponent("api"),
		now:       time.Now,
	}
}

// NewRouter builds the HTTP routing table.
func NewRouter(h *ExportHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/export", h.HandleExport)
	return r
}

type clipPayload struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`

	HasLinkedAudio bool   `json:"hasLinkedAudio,omitempty"`
	LinkedAudioID  string `json:"linkedAudioId,omitempty"`
	SourceVideoID  string `json:"sourceVideoId,omitempty"`
	SourceClipID   string `json:"sourceClipId,omitempty"`
	LinkedVideoID  string `json:"linkedVideoId,omitempty"`

	// Source carries the media inline (base64 in JSON); SourcePath
	// points at a file readable by the server. Source wins when both
	// are present.
	Source     []byte `json:"source,omitempty"`
	SourcePath string `json:"sourcePath,omitempty"`
}

type exportPayload struct {
	Clips           []clipPayload     `json:"clips"`
	AudioLinks      map[string]string `json:"audioLinks,omitempty"`
	NominalDuration float64           `json:"nominalDuration"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	FrameRate       float64           `json:"frameRate"`
	Output          string            `json:"output,omitempty"`
}

type exportResponse struct {
	ArtifactPath string  `json:"artifactPath"`
	MimeType     string  `json:"mimeType"`
	DurationUsed float64 `json:"durationUsed"`
	HasAudio     bool    `json:"hasAudio"`
	Degraded     bool    `json:"degraded"`
	Size         int     `json:"size"`
}

// HandleExport runs the pipeline synchronously and stores the artifact.
// Only one export runs at a time; a second request gets 409.
func (h *ExportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !h.inFlight.TryLock() {
		WriteError(w, http.StatusConflict, "an export is already in progress")
		return
	}
	defer h.inFlight.Unlock()

	var payload exportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err))
		return
	}

	req, err := buildRequest(payload, h.fs)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.exporter.Export(r.Context(), req, nil)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		WriteError(w, status, err.Error())
		return
	}

	path, err := h.storeArtifact(payload.Output, result)
	if err != nil {
		h.logger.Error("Failed to write output: %s", err)
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, exportResponse{
		ArtifactPath: path,
		MimeType:     result.MimeType,
		DurationUsed: result.DurationUsed,
		HasAudio:     result.HasAudio,
		Degraded:     result.Degraded,
		Size:         len(result.Artifact),
	})
}

// ParseComposition decodes a composition document, loading clip
// sources referenced by path. It returns the request and the desired
// output name, if any. Shared by the HTTP handler and the CLI.
func ParseComposition(data []byte, fs ports.FileSystem) (pipeline.ExportRequest, string, error) {
	var payload exportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return pipeline.ExportRequest{}, "", fmt.Errorf("parse composition: %w", err)
	}
	req, err := buildRequest(payload, fs)
	return req, payload.Output, err
}

func buildRequest(payload exportPayload, fs ports.FileSystem) (pipeline.ExportRequest, error) {
	req := pipeline.ExportRequest{
		AudioLinks:      payload.AudioLinks,
		NominalDuration: payload.NominalDuration,
		Width:           payload.Width,
		Height:          payload.Height,
		FrameRate:       payload.FrameRate,
	}

	for _, p := range payload.Clips {
		source := p.Source
		if len(source) == 0 && p.SourcePath != "" {
			data, err := fs.ReadFile(p.SourcePath)
			if err != nil {
				return req, fmt.Errorf("clip %s: read source %s: %s", p.ID, p.SourcePath, err)
			}
			source = data
		}
		req.Clips = append(req.Clips, pipeline.Clip{
			ID:             p.ID,
			Kind:           pipeline.ClipKind(p.Kind),
			Name:           p.Name,
			StartTime:      p.StartTime,
			Duration:       p.Duration,
			HasLinkedAudio: p.HasLinkedAudio,
			LinkedAudioID:  p.LinkedAudioID,
			SourceVideoID:  p.SourceVideoID,
			SourceClipID:   p.SourceClipID,
			LinkedVideoID:  p.LinkedVideoID,
			RawSource:      source,
		})
	}
	return req, nil
}

func (h *ExportHandler) storeArtifact(name string, result pipeline.ExportResult) (string, error) {
	if name == "" {
		ext := ".webm"
		if result.MimeType == "video/mp4" {
			ext = ".mp4"
		}
		name = fmt.Sprintf("export-%d%s", h.now().UnixMilli(), ext)
	}
	path := filepath.Join(h.outputDir, name)

	if err := h.fs.MkdirAll(h.outputDir); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := h.fs.WriteFile(path, result.Artifact); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	h.logger.Info("Output saved to %s", path)
	return path, nil
}
