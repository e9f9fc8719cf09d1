// File: internal/browser/snapshot.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// CaptureError signals that the current browser state could not be turned
// into an image. It is fatal to the iteration, never to the run: the control
// loop logs it, waits its recovery delay and starts a fresh iteration.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return fmt.Sprintf("screen capture failed: %v", e.Err) }
func (e *CaptureError) Unwrap() error { return e.Err }

// Screenshot captures the currently rendered viewport as PNG bytes.
// A copy is handed to the archiver for diagnostics; archival never blocks or
// fails the primary return path.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.logger.Debug("Taking screenshot.")

	shotCtx, cancel := s.boundedCtx(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	var buf []byte
	capture := chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(ctx)
		return err
	})
	if err := chromedp.Run(shotCtx, capture); err != nil {
		return nil, &CaptureError{Err: err}
	}
	if len(buf) == 0 {
		return nil, &CaptureError{Err: fmt.Errorf("browser returned an empty image")}
	}

	s.logger.Debug("Screenshot taken.", zap.Int("bytes", len(buf)))
	s.archiver.Save(buf)
	return buf, nil
}

// Archiver persists timestamp-named screenshot copies for offline debugging.
// The archive is append-only and never read back by the program.
type Archiver struct {
	dir    string
	logger *zap.Logger
}

// NewArchiver creates an archiver rooted at dir. An empty dir disables
// archival entirely.
func NewArchiver(dir string, logger *zap.Logger) *Archiver {
	return &Archiver{dir: dir, logger: logger.Named("archiver")}
}

// Save writes one image to the archive. Failures are logged and swallowed;
// a full disk must not take down a navigation run.
func (a *Archiver) Save(image []byte) {
	if a.dir == "" {
		return
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		a.logger.Warn("Could not create screenshot directory.", zap.String("dir", a.dir), zap.Error(err))
		return
	}

	now := time.Now()
	// The nanosecond suffix keeps same-second captures from clobbering each other.
	name := fmt.Sprintf("screenshot_%s_%09d.png", now.Format("20060102_150405"), now.Nanosecond())
	path := filepath.Join(a.dir, name)

	if err := os.WriteFile(path, image, 0o644); err != nil {
		a.logger.Warn("Could not archive screenshot.", zap.String("path", path), zap.Error(err))
		return
	}
	a.logger.Debug("Screenshot archived.", zap.String("path", path))
}
