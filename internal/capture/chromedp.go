// Package capture renders tracked pages with headless Chrome and produces
// snapshots for classification.
package capture

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// Config controls the behavior of the capture service.
type Config struct {
	MaxParallel    int
	UserAgent      string
	DefaultTimeout time.Duration
	ScreenshotQuality int
}

// Service implements watch.CaptureService using chromedp. The exec
// allocator is acquired once for the process lifetime and injected into
// the scheduler; no ambient browser state.
type Service struct {
	cfg         Config
	hasher      watch.Hasher
	clock       watch.Clock
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a chromedp-backed capture service.
func New(cfg Config, hasher watch.Hasher, clock watch.Clock) (*Service, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 10 * time.Second
	}
	if cfg.ScreenshotQuality <= 0 {
		cfg.ScreenshotQuality = 80
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Service{
		cfg:         cfg,
		hasher:      hasher,
		clock:       clock,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (s *Service) Close() {
	s.allocCancel()
}

// Capture navigates to url, waits for the document to render, and returns
// the observed status code, title, content checksum over the rendered
// markup, and a full-page JPEG screenshot. The context deadline is the
// only cancellation mechanism: on expiry the browser tab is torn down and
// the attempt fails fast.
func (s *Service) Capture(ctx context.Context, url string) (watch.PageSnapshot, error) {
	if err := s.acquire(ctx); err != nil {
		return watch.PageSnapshot{}, &watch.CaptureError{URL: url, Err: err}
	}
	defer s.release()

	taskCtx, taskCancel := chromedp.NewContext(s.allocator)
	defer taskCancel()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DefaultTimeout)
		defer cancel()
	}
	stopWatch := propagateCancel(ctx, taskCancel)
	defer stopWatch()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	var (
		title      string
		html       string
		screenshot []byte
	)
	actions := []chromedp.Action{
		s.networkSetupAction(),
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.FullScreenshot(&screenshot, s.cfg.ScreenshotQuality),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return watch.PageSnapshot{}, &watch.CaptureError{URL: url, Err: err}
	}

	checksum, err := s.hasher.Hash([]byte(html))
	if err != nil {
		return watch.PageSnapshot{}, &watch.CaptureError{URL: url, Err: fmt.Errorf("hash markup: %w", err)}
	}

	status := meta.status()
	if status == 0 {
		status = http.StatusOK
	}

	return watch.PageSnapshot{
		StatusCode:      status,
		Title:           title,
		ContentChecksum: checksum,
		ArtifactBytes:   screenshot,
		ArtifactName:    watch.ArtifactName(url, s.clock.Now()),
	}, nil
}

func (s *Service) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

func (s *Service) acquire(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	select {
	case s.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("capture slot wait canceled: %w", ctx.Err())
	}
}

func (s *Service) release() {
	if s.limiter == nil {
		return
	}
	select {
	case <-s.limiter:
	default:
	}
}

// propagateCancel tears the tab down when the caller's deadline expires,
// since the chromedp task context is derived from the allocator, not ctx.
func propagateCancel(ctx context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// responseMeta records the status code of the document response as CDP
// network events arrive.
type responseMeta struct {
	mu         sync.RWMutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusCode
}
