// Package chromerenderer implements ports.FrameRenderer on a headless
// Chrome instance running the composition preview page.
package chromerenderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/url"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/user/clipforge/pkg/ports"
)

// JavaScript hooks the preview page exposes.
const (
	readyExpr  = "window.__previewReady === true"
	targetExpr = "!!document.querySelector('canvas, video')"
)

// Renderer drives the preview page: it seeks the composition clock,
// waits for render cycles and screenshots the surface.
type Renderer struct {
	previewURL string
	logger     ports.Logger

	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	browserCtx  context.Context
	prepared    bool
}

// New creates a renderer pointed at the preview page URL.
func New(previewURL string, logger ports.Logger) *Renderer {
	return &Renderer{
		previewURL: previewURL,
		logger:     logger.WithComponent("renderer"),
	}
}

// Prepare launches Chrome, loads the preview page sized to the export
// and clears the page background so alpha captures stay transparent.
func (r *Renderer) Prepare(ctx context.Context, opts ports.RenderOptions) error {
	if r.prepared {
		return fmt.Errorf("renderer already prepared")
	}

	target, err := buildPreviewURL(r.previewURL, opts)
	if err != nil {
		return fmt.Errorf("build preview url: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("force-device-scale-factor", "1"),
		chromedp.WindowSize(opts.Width, opts.Height),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	err = r.runIn(ctx, browserCtx,
		emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), 1, false),
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}),
		chromedp.Navigate(target),
		chromedp.Poll(readyExpr, nil),
	)
	if err != nil {
		ctxCancel()
		allocCancel()
		return fmt.Errorf("prepare renderer: %w", err)
	}

	r.allocCancel = allocCancel
	r.ctxCancel = ctxCancel
	r.browserCtx = browserCtx
	r.prepared = true

	r.logger.Debug("Preview page ready: %s", target)
	return nil
}

// HasRenderTarget reports whether the page presents a drawable surface.
func (r *Renderer) HasRenderTarget() bool {
	if !r.prepared {
		return false
	}
	var present bool
	err := chromedp.Run(r.browserCtx, chromedp.Evaluate(targetExpr, &present))
	return err == nil && present
}

// Seek dispatches the preview clock to the given timestamp. The page's
// seek hook resolves once the new state is committed for rendering.
func (r *Renderer) Seek(ctx context.Context, timestamp float64) error {
	return r.run(ctx, chromedp.Evaluate(seekExpr(timestamp), nil, awaitPromise))
}

// Confirm blocks until the next animation frame has been presented.
func (r *Renderer) Confirm(ctx context.Context) error {
	const frameExpr = "new Promise(resolve => requestAnimationFrame(() => resolve(true)))"
	return r.run(ctx, chromedp.Evaluate(frameExpr, nil, awaitPromise))
}

// Capture screenshots the current surface.
func (r *Renderer) Capture(ctx context.Context) (image.Image, error) {
	var buf []byte
	if err := r.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() error {
	if r.ctxCancel != nil {
		r.ctxCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.prepared = false
	r.logger.Debug("Renderer closed")
	return nil
}

// run executes actions on the browser context while honoring the
// caller's cancellation.
func (r *Renderer) run(ctx context.Context, actions ...chromedp.Action) error {
	if !r.prepared {
		return fmt.Errorf("renderer not prepared")
	}
	return r.runIn(ctx, r.browserCtx, actions...)
}

func (r *Renderer) runIn(ctx context.Context, browserCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func seekExpr(timestamp float64) string {
	return fmt.Sprintf("window.__previewSeek(%g)", timestamp)
}

// buildPreviewURL appends the export geometry to the preview page URL.
func buildPreviewURL(base string, opts ports.RenderOptions) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	q.Set("width", fmt.Sprintf("%d", opts.Width))
	q.Set("height", fmt.Sprintf("%d", opts.Height))
	q.Set("fps", fmt.Sprintf("%g", opts.FrameRate))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

var _ ports.FrameRenderer = (*Renderer)(nil)
