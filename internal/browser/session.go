// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sumant2123/Travel-Itineary-Planner/internal/command"
	"github.com/sumant2123/Travel-Itineary-Planner/internal/config"
)

// Session represents the single live browser connection for a run. It is
// exclusively owned by the control loop: created at loop start and closed on
// every exit path. Close is idempotent.
type Session struct {
	id     string
	ctx    context.Context
	logger *zap.Logger
	cfg    config.BrowserConfig

	archiver *Archiver

	// cancel funcs tear down the tab and the allocator, in that order.
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

// parseChromeArg turns a config-supplied Chrome argument into a flag name
// and value for chromedp. Both "--flag" and "flag" spellings are accepted;
// "--window-size=800,600" becomes the flag "window-size" with value
// "800,600", while bare flags become boolean switches.
func parseChromeArg(arg string) (string, any) {
	arg = strings.TrimLeft(arg, "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

// New launches a Chrome instance and attaches a fresh tab to it.
// The returned Session must be closed by the caller.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	sessionLogger := logger.Named("browser").With(zap.String("session_id", sessionID))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("start-maximized", true),
		// Stability flags for containerized environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	for _, arg := range cfg.Args {
		opts = append(opts, chromedp.Flag(parseChromeArg(arg)))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	var tabOpts []chromedp.ContextOption
	if cfg.Debug {
		tabOpts = append(tabOpts, chromedp.WithDebugf(sessionLogger.Sugar().Debugf))
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, tabOpts...)

	s := &Session{
		id:          sessionID,
		ctx:         tabCtx,
		logger:      sessionLogger,
		cfg:         cfg,
		archiver:    NewArchiver(cfg.ScreenshotDir, sessionLogger),
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	// Force the browser process to start now so a broken Chrome install is a
	// setup failure, not a mystery on the first screenshot.
	if err := chromedp.Run(tabCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	sessionLogger.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Navigate loads the given URL in the session's tab, bounded by the
// configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating.", zap.String("url", url))

	navCtx, cancel := s.boundedCtx(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// ClickSelector waits for an element matching the selector to become visible
// and enabled, then clicks it. The wait is bounded by timeout.
func (s *Session) ClickSelector(ctx context.Context, selector string, kind command.SelectorKind, timeout time.Duration) error {
	clickCtx, cancel := s.boundedCtx(ctx, timeout)
	defer cancel()

	by := chromedp.ByQuery
	if kind == command.SelectorXPath {
		by = chromedp.BySearch
	}

	err := chromedp.Run(clickCtx,
		chromedp.WaitVisible(selector, by),
		chromedp.WaitEnabled(selector, by),
		chromedp.Click(selector, by),
	)
	if err != nil {
		return fmt.Errorf("failed to click element %q: %w", selector, err)
	}
	return nil
}

// TypeActive sends text to whatever element currently holds input focus.
// There is no element-found wait; if nothing is focused the key dispatch
// itself fails.
func (s *Session) TypeActive(ctx context.Context, text string) error {
	typeCtx, cancel := s.boundedCtx(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(typeCtx, chromedp.KeyEvent(text)); err != nil {
		return fmt.Errorf("failed to type into active element: %w", err)
	}
	return nil
}

// Close terminates the browser session. Safe to call more than once and from
// deferred cleanup on any exit path.
func (s *Session) Close() {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Info("Closing browser session.")
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

// boundedCtx derives a context that respects both the session lifetime and
// the incoming request context, with an optional timeout.
func (s *Session) boundedCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	merged, cancelMerge := mergeContexts(s.ctx, ctx)
	if timeout <= 0 {
		return merged, cancelMerge
	}
	timed, cancelTimed := context.WithTimeout(merged, timeout)
	return timed, func() {
		cancelTimed()
		cancelMerge()
	}
}

// mergeContexts returns a context that carries the chromedp session values
// from base but is additionally cancelled when aux is.
func mergeContexts(base, aux context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(base)
	stop := context.AfterFunc(aux, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
