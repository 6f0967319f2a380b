// Command clipforge exports timeline compositions to video.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/user/clipforge/pkg/adapters/chromerenderer"
	"github.com/user/clipforge/pkg/adapters/ffmpegengine"
	"github.com/user/clipforge/pkg/adapters/ffmpegsink"
	"github.com/user/clipforge/pkg/adapters/filesink"
	"github.com/user/clipforge/pkg/adapters/ggcanvas"
	"github.com/user/clipforge/pkg/adapters/logger"
	"github.com/user/clipforge/pkg/adapters/osfs"
	"github.com/user/clipforge/pkg/api"
	"github.com/user/clipforge/pkg/config"
	"github.com/user/clipforge/pkg/orchestrator"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
	"github.com/user/clipforge/pkg/stages/audiomix"
	"github.com/user/clipforge/pkg/stages/audiosource"
	"github.com/user/clipforge/pkg/stages/capture"
	"github.com/user/clipforge/pkg/stages/combine"
	"github.com/user/clipforge/pkg/stages/duration"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "clipforge",
		Usage:   "Export timeline compositions to video",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn, error or quiet"},
			&cli.StringFlag{Name: "preview-url", Usage: "composition preview page URL"},
			&cli.StringFlag{Name: "ffmpeg", Usage: "ffmpeg binary path"},
			&cli.StringFlag{Name: "debug-dir", Usage: "write intermediate artifacts into this directory"},
		},
		Commands: []*cli.Command{
			exportCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export one composition JSON document",
		ArgsUsage: "<composition.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file path"},
			&cli.IntFlag{Name: "width", Usage: "output width override"},
			&cli.IntFlag{Name: "height", Usage: "output height override"},
			&cli.Float64Flag{Name: "fps", Usage: "frame rate override"},
			&cli.BoolFlag{Name: "fallback", Usage: "skip the alpha strategy, encode degraded directly"},
		},
		Action: runExport,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the export API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "bind address"},
			&cli.StringFlag{Name: "output-dir", Value: "exports", Usage: "artifact directory"},
		},
		Action: runServe,
	}
}

func runExport(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one composition file argument")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, fs, err := buildExporter(cfg, log)
	if err != nil {
		return err
	}

	data, err := fs.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("read composition: %w", err)
	}
	req, outName, err := api.ParseComposition(data, fs)
	if err != nil {
		return err
	}
	applyDefaults(&req, cfg, c)

	run := exporter.Export
	if c.Bool("fallback") {
		run = exporter.ExportWithFallback
	}
	result, err := run(ctx, req, nil)
	if errors.Is(err, context.Canceled) {
		log.Warn("Interrupted, shutting down...")
		return err
	}
	if err != nil {
		return err
	}

	out := c.String("output")
	if out == "" {
		out = outName
	}
	if out == "" {
		ext := ".webm"
		if result.MimeType == "video/mp4" {
			ext = ".mp4"
		}
		out = "export" + ext
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := fs.MkdirAll(dir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := fs.WriteFile(out, result.Artifact); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	log.Info("Output saved to %s", out)
	return nil
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exporter, fs, err := buildExporter(cfg, log)
	if err != nil {
		return err
	}

	handler := api.NewExportHandler(exporter, fs, c.String("output-dir"), log)
	addr := cfg.ListenAddr
	if listen := c.String("listen"); listen != "" {
		addr = listen
	}

	server := &http.Server{
		Addr:    addr,
		Handler: api.NewRouter(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Warn("Interrupted, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if v := c.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := c.String("preview-url"); v != "" {
		cfg.PreviewURL = v
	}
	if v := c.String("ffmpeg"); v != "" {
		cfg.FFmpegPath = v
	}
	if v := c.String("debug-dir"); v != "" {
		cfg.DebugDir = v
	}
	return cfg, nil
}

// applyDefaults fills request geometry from flags, then config.
func applyDefaults(req *pipeline.ExportRequest, cfg *config.Config, c *cli.Context) {
	if v := c.Int("width"); v > 0 {
		req.Width = v
	}
	if v := c.Int("height"); v > 0 {
		req.Height = v
	}
	if v := c.Float64("fps"); v > 0 {
		req.FrameRate = v
	}
	if req.Width <= 0 {
		req.Width = cfg.Width
	}
	if req.Height <= 0 {
		req.Height = cfg.Height
	}
	if req.FrameRate <= 0 {
		req.FrameRate = cfg.FrameRate
	}
}

func buildExporter(cfg *config.Config, log ports.Logger) (*orchestrator.Exporter, ports.FileSystem, error) {
	fs := osfs.New()
	images := ggcanvas.New()
	dbg := filesink.New(cfg.DebugDir, fs, images, log)

	engine, err := ffmpegengine.New(cfg.FFmpegPath, cfg.FFprobePath, log)
	if err != nil {
		return nil, nil, err
	}
	sink, err := ffmpegsink.New(cfg.FFmpegPath, log)
	if err != nil {
		return nil, nil, err
	}
	renderer := chromerenderer.New(cfg.PreviewURL, log)

	exporter := orchestrator.New(
		audiosource.NewStage(log),
		duration.NewStage(),
		capture.NewStage(renderer, sink, images, dbg, log),
		audiomix.NewStage(engine, dbg, log),
		combine.NewStage(engine, dbg, log),
		images,
		dbg,
		log,
	)
	return exporter, fs, nil
}
