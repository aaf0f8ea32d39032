// Package browser renders video watch pages in headless Chrome so the
// engagement heatmap, which only exists after client-side rendering, can be read.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"heatclip/internal/heatmap"
	"heatclip/internal/logging"
	"heatclip/internal/services"
)

// Options configures the Chrome allocator and per-page behaviour.
type Options struct {
	ExecPath    string
	Headless    bool
	Settle      time.Duration
	PageTimeout time.Duration
	Logger      *slog.Logger
}

type renderFunc func(ctx context.Context, link string) (string, error)

// Session owns one Chrome process. Each Fetch opens and tears down its own tab.
type Session struct {
	render  renderFunc
	logger  *slog.Logger
	timeout time.Duration
	closers []context.CancelFunc
}

// Open starts Chrome and returns a session bound to it. Close must be called
// to stop the browser.
func Open(ctx context.Context, opts Options) (*Session, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(1280, 800),
	)
	if path := strings.TrimSpace(opts.ExecPath); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, services.Wrap(services.ErrExternalTool, "collect", "start chrome", "", err)
	}

	settle := opts.Settle
	logger := logging.NewComponentLogger(opts.Logger, "browser")
	s := &Session{
		logger:  logger,
		timeout: opts.PageTimeout,
		closers: []context.CancelFunc{cancelBrowser, cancelAlloc},
	}
	s.render = func(ctx context.Context, link string) (string, error) {
		tabCtx, cancelTab := chromedp.NewContext(browserCtx)
		defer cancelTab()
		stop := context.AfterFunc(ctx, cancelTab)
		defer stop()

		var html string
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(link),
			chromedp.Sleep(settle),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return html, err
	}
	logger.Debug("chrome started", logging.Bool("headless", opts.Headless))
	return s, nil
}

// Fetch renders link and extracts the heatmap path, duration, and title.
func (s *Session) Fetch(ctx context.Context, link string) (heatmap.Page, error) {
	if s == nil || s.render == nil {
		return heatmap.Page{}, errors.New("browser session is closed")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	html, err := s.render(ctx, link)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return heatmap.Page{}, services.Wrap(services.ErrTimeout, "collect", "render page", link, err)
		}
		return heatmap.Page{}, services.Wrap(services.ErrExternalTool, "collect", "render page", link, err)
	}
	page, err := heatmap.ParsePage(strings.NewReader(html))
	if err != nil {
		return heatmap.Page{}, services.Wrap(services.ErrValidation, "collect", "read page", link, err)
	}
	page.Link = link
	s.logger.Debug("page rendered",
		logging.String(logging.FieldLink, link),
		logging.Duration("elapsed", time.Since(start)),
		logging.Bool("heatmap", page.HeatmapPath != ""),
	)
	return page, nil
}

// Close stops the browser. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	for _, cancel := range s.closers {
		cancel()
	}
	s.closers = nil
	s.render = nil
	return nil
}
