// Package ffmpegsink implements ports.CaptureSink by piping raw RGBA
// frames into an ffmpeg encoder process.
package ffmpegsink

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/user/clipforge/pkg/adapters/ffmpegengine"
	"github.com/user/clipforge/pkg/ports"
)

const (
	defaultAlphaCRF = 30
	defaultCRF      = 23
)

// Sink encodes frames as they arrive. With alpha preserved the output
// is VP9 in WebM (yuva420p); the degraded mode is H.264 in MP4
// (yuv420p), which every player handles but carries no transparency.
type Sink struct {
	ffmpegPath string
	logger     ports.Logger

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  bytes.Buffer
	tmpDir  string
	outPath string

	width    int
	height   int
	alpha    bool
	mimeType string
	started  bool
	frameBuf *image.RGBA
}

// New creates a sink using the given ffmpeg binary. An empty path
// triggers the standard binary search.
func New(ffmpegPath string, logger ports.Logger) (*Sink, error) {
	path, err := ffmpegengine.FindFFmpeg(ffmpegPath)
	if err != nil {
		return nil, err
	}
	return &Sink{
		ffmpegPath: path,
		logger:     logger.WithComponent("encoder"),
	}, nil
}

// Begin starts the encoder process. Frames arrive at a constant rate,
// so the pipe needs no per-frame timestamps.
func (s *Sink) Begin(width, height int, fps float64, opts ports.CaptureOptions) error {
	if s.started {
		return fmt.Errorf("capture sink already started")
	}
	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("invalid sink parameters %dx%d@%f", width, height, fps)
	}

	dir, err := os.MkdirTemp("", "clipforge-capture-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}

	s.alpha = opts.PreserveAlpha
	ext := ".mp4"
	s.mimeType = "video/mp4"
	if s.alpha {
		ext = ".webm"
		s.mimeType = "video/webm"
	}
	s.outPath = filepath.Join(dir, "capture"+ext)

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
	}
	args = append(args, s.codecArgs(opts)...)
	args = append(args, s.outPath)

	cmd := exec.Command(s.ffmpegPath, args...)
	s.stderr.Reset()
	cmd.Stderr = &s.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("open encoder pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return fmt.Errorf("start encoder: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.tmpDir = dir
	s.width = width
	s.height = height
	s.frameBuf = image.NewRGBA(image.Rect(0, 0, width, height))
	s.started = true

	s.logger.Debug("Encoder started: %dx%d at %.1f fps, alpha=%t", width, height, fps, s.alpha)
	return nil
}

func (s *Sink) codecArgs(opts ports.CaptureOptions) []string {
	if s.alpha {
		args := []string{
			"-c:v", "libvpx-vp9",
			"-pix_fmt", "yuva420p",
			// Alt-ref frames break the alpha side channel.
			"-auto-alt-ref", "0",
			"-f", "webm",
		}
		if opts.Bitrate > 0 {
			return append(args, "-b:v", fmt.Sprintf("%dk", opts.Bitrate))
		}
		crf := opts.Quality
		if crf <= 0 {
			crf = defaultAlphaCRF
		}
		return append(args, "-b:v", "0", "-crf", strconv.Itoa(crf))
	}

	args := []string{
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-preset", "veryfast",
		"-movflags", "+faststart",
		"-f", "mp4",
	}
	if opts.Bitrate > 0 {
		return append(args, "-b:v", fmt.Sprintf("%dk", opts.Bitrate))
	}
	crf := opts.Quality
	if crf <= 0 {
		crf = defaultCRF
	}
	return append(args, "-crf", strconv.Itoa(crf))
}

// AddFrame pipes one frame to the encoder. The timestamp is implied by
// frame order on a constant-rate stream; the argument exists for sinks
// with variable-rate containers.
func (s *Sink) AddFrame(img image.Image, timestampMs int) error {
	if !s.started {
		return fmt.Errorf("capture sink not started")
	}

	pix, err := s.rgbaPixels(img)
	if err != nil {
		return err
	}
	if _, err := s.stdin.Write(pix); err != nil {
		return s.fail(fmt.Errorf("write frame at %dms: %w", timestampMs, err))
	}
	return nil
}

// rgbaPixels returns the frame as tightly packed RGBA bytes, reusing
// the conversion buffer across frames.
func (s *Sink) rgbaPixels(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() != s.width || bounds.Dy() != s.height {
		return nil, fmt.Errorf("frame size %dx%d does not match stream %dx%d", bounds.Dx(), bounds.Dy(), s.width, s.height)
	}

	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*s.width && rgba.Rect.Min == (image.Point{}) {
		return rgba.Pix, nil
	}

	draw.Draw(s.frameBuf, s.frameBuf.Rect, img, bounds.Min, draw.Src)
	return s.frameBuf.Pix, nil
}

// End closes the pipe, waits for the encoder and returns the stream.
func (s *Sink) End() ([]byte, error) {
	if !s.started {
		return nil, fmt.Errorf("capture sink not started")
	}
	defer s.cleanup()

	if err := s.stdin.Close(); err != nil {
		return nil, fmt.Errorf("close encoder pipe: %w", err)
	}
	if err := s.cmd.Wait(); err != nil {
		return nil, ffmpegengine.ClassifyFailure(s.stderr.String(), err)
	}

	data, err := os.ReadFile(s.outPath)
	if err != nil {
		return nil, fmt.Errorf("read encoded stream: %w", err)
	}
	s.logger.Debug("Encoder finished: %d bytes", len(data))
	return data, nil
}

// Abort kills the encoder and discards the partial stream. The sink
// can Begin again afterwards.
func (s *Sink) Abort() {
	if !s.started {
		return
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.logger.Debug("Encoder aborted")
	s.cleanup()
}

// MimeType reports the container of the last stream Begin configured.
// The value survives End so callers can pair it with the returned
// bytes.
func (s *Sink) MimeType() string {
	if s.mimeType == "" {
		return "video/webm"
	}
	return s.mimeType
}

// fail kills the encoder after a pipe error so Wait cannot block.
func (s *Sink) fail(err error) error {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd.Wait()
	}
	s.cleanup()
	if classified := ffmpegengine.ClassifyFailure(s.stderr.String(), err); classified != nil {
		return classified
	}
	return err
}

func (s *Sink) cleanup() {
	if s.tmpDir != "" {
		os.RemoveAll(s.tmpDir)
	}
	s.cmd = nil
	s.stdin = nil
	s.tmpDir = ""
	s.started = false
	s.frameBuf = nil
}

var _ ports.CaptureSink = (*Sink)(nil)
