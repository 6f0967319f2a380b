// Package ffmpegengine implements ports.CodecEngine on an external
// ffmpeg process. Streams move through temporary files: ffmpeg's
// muxers need seekable output, so piping is not an option for most of
// these commands.
package ffmpegengine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/user/clipforge/pkg/adapters/mp4probe"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
	"github.com/tidwall/gjson"
)

// webmMagic is the EBML header prefix shared by WebM and Matroska.
var webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}

// oomPatterns match the stderr signatures ffmpeg emits when an
// allocation fails.
var oomPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cannot allocate memory`),
	regexp.MustCompile(`(?i)out of memory`),
	regexp.MustCompile(`(?i)error allocating`),
	regexp.MustCompile(`(?i)av_malloc.*failed`),
	regexp.MustCompile(`ENOMEM`),
}

// Engine runs ffmpeg and ffprobe as subprocesses.
type Engine struct {
	ffmpegPath  string
	ffprobePath string
	logger      ports.Logger
}

// New creates an engine, locating ffmpeg (required) and ffprobe
// (optional, the MP4 fast path covers most probes without it).
func New(ffmpegPath, ffprobePath string, logger ports.Logger) (*Engine, error) {
	ffmpeg, err := FindFFmpeg(ffmpegPath)
	if err != nil {
		return nil, err
	}
	ffprobe, err := FindFFprobe(ffprobePath)
	if err != nil {
		ffprobe = ""
	}
	return &Engine{
		ffmpegPath:  ffmpeg,
		ffprobePath: ffprobe,
		logger:      logger.WithComponent("ffmpeg"),
	}, nil
}

// DemuxAudio extracts the audio track as PCM WAV.
func (e *Engine) DemuxAudio(ctx context.Context, src []byte) ([]byte, error) {
	return e.convert(ctx, src, "out.wav", func(in, out string) []string {
		return []string{"-y", "-i", in, "-vn", "-acodec", "pcm_s16le", "-f", "wav", out}
	})
}

// TransformAudio applies the filter chain, keeping PCM WAV as the
// intermediate format so repeated passes do not stack lossy encodes.
func (e *Engine) TransformAudio(ctx context.Context, src []byte, chain ports.FilterChain) ([]byte, error) {
	filter := buildFilterChain(chain)
	return e.convert(ctx, src, "out.wav", func(in, out string) []string {
		args := []string{"-y", "-i", in}
		if filter != "" {
			args = append(args, "-af", filter)
		}
		return append(args, "-acodec", "pcm_s16le", "-f", "wav", out)
	})
}

// MixAudio sums the prepared inputs into one encoded stream.
func (e *Engine) MixAudio(ctx context.Context, inputs [][]byte, duration float64, codec ports.AudioCodec) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("mix requires at least one input")
	}

	dir, err := os.MkdirTemp("", "clipforge-mix-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-y"}
	for i, input := range inputs {
		in := filepath.Join(dir, fmt.Sprintf("in%d.wav", i))
		if err := os.WriteFile(in, input, 0600); err != nil {
			return nil, fmt.Errorf("write temp input: %w", err)
		}
		args = append(args, "-i", in)
	}
	args = append(args, "-filter_complex", buildMixGraph(len(inputs), duration), "-map", "[out]")

	var out string
	switch codec {
	case ports.AudioOpus:
		out = filepath.Join(dir, "out.webm")
		args = append(args, "-c:a", "libopus", "-b:a", "128k", "-f", "webm", out)
	default:
		out = filepath.Join(dir, "out.m4a")
		args = append(args, "-c:a", "aac", "-b:a", "192k", "-f", "mp4", out)
	}

	if err := e.run(ctx, args); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

// MuxStreamCopy joins video and audio without re-encoding. The output
// container follows the video stream.
func (e *Engine) MuxStreamCopy(ctx context.Context, video, audio []byte, duration float64) ([]byte, error) {
	dir, err := os.MkdirTemp("", "clipforge-mux-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ext := ".mp4"
	if bytes.HasPrefix(video, webmMagic) {
		ext = ".webm"
	}
	videoIn := filepath.Join(dir, "video"+ext)
	audioIn := filepath.Join(dir, "audio.bin")
	out := filepath.Join(dir, "out"+ext)

	if err := os.WriteFile(videoIn, video, 0600); err != nil {
		return nil, fmt.Errorf("write temp video: %w", err)
	}
	if err := os.WriteFile(audioIn, audio, 0600); err != nil {
		return nil, fmt.Errorf("write temp audio: %w", err)
	}

	args := []string{
		"-y", "-i", videoIn, "-i", audioIn,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c", "copy",
	}
	if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args, out)

	if err := e.run(ctx, args); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

// Probe inspects a stream. MP4 containers are read in-process; other
// formats fall back to ffprobe.
func (e *Engine) Probe(ctx context.Context, stream []byte) (ports.StreamInfo, error) {
	if info, err := mp4probe.Probe(stream); err == nil {
		return info, nil
	}
	if e.ffprobePath == "" {
		return ports.StreamInfo{}, fmt.Errorf("not an MP4 stream and ffprobe is unavailable")
	}

	dir, err := os.MkdirTemp("", "clipforge-probe-")
	if err != nil {
		return ports.StreamInfo{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "stream.bin")
	if err := os.WriteFile(in, stream, 0600); err != nil {
		return ports.StreamInfo{}, fmt.Errorf("write temp input: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		in,
	)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return ports.StreamInfo{}, ctx.Err()
		}
		return ports.StreamInfo{}, fmt.Errorf("ffprobe: %w", err)
	}

	return parseProbeOutput(output), nil
}

// parseProbeOutput extracts stream info from ffprobe's JSON report.
func parseProbeOutput(output []byte) ports.StreamInfo {
	doc := string(output)
	info := ports.StreamInfo{
		Duration: gjson.Get(doc, "format.duration").Float(),
		Format:   gjson.Get(doc, "format.format_name").String(),
	}
	gjson.Get(doc, "streams.#.codec_type").ForEach(func(_, value gjson.Result) bool {
		switch value.String() {
		case "video":
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
		return true
	})
	return info
}

// convert runs one single-input single-output ffmpeg command through
// temp files.
func (e *Engine) convert(ctx context.Context, src []byte, outName string, buildArgs func(in, out string) []string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "clipforge-ffmpeg-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.bin")
	out := filepath.Join(dir, outName)
	if err := os.WriteFile(in, src, 0600); err != nil {
		return nil, fmt.Errorf("write temp input: %w", err)
	}

	if err := e.run(ctx, buildArgs(in, out)); err != nil {
		return nil, err
	}
	return os.ReadFile(out)
}

// run executes ffmpeg and classifies failures from its stderr.
func (e *Engine) run(ctx context.Context, args []string) error {
	e.logger.Debug("ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ClassifyFailure(stderr.String(), err)
	}
	return nil
}

// ClassifyFailure maps allocation failures onto the resource
// exhaustion sentinel so the pipeline can trigger its degraded retry.
func ClassifyFailure(stderr string, err error) error {
	for _, pattern := range oomPatterns {
		if pattern.MatchString(stderr) {
			return fmt.Errorf("ffmpeg: %s: %w", lastStderrLine(stderr), pipeline.ErrResourceExhausted)
		}
	}
	if line := lastStderrLine(stderr); line != "" {
		return fmt.Errorf("ffmpeg: %s: %w", line, err)
	}
	return fmt.Errorf("ffmpeg: %w", err)
}

// lastStderrLine returns the last non-empty stderr line, which is
// where ffmpeg usually puts the actual error.
func lastStderrLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

var _ ports.CodecEngine = (*Engine)(nil)
