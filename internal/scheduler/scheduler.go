// Package scheduler orchestrates the poll cycle: cold-start checks for
// never-checked pages, staggered rechecks for due pages, and the per-page
// capture → classify → persist → notify → retain pipeline.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pagewatch/pagewatch/internal/classify"
	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/retain"
	"github.com/pagewatch/pagewatch/internal/throttle"
	"github.com/pagewatch/pagewatch/internal/watch"
)

const artifactContentType = "image/jpeg"

// Config controls cycle timing and recheck pacing.
type Config struct {
	// PollInterval is the fixed sleep between cycles. The timer is armed
	// after a cycle completes, so cycle duration is not compensated for;
	// staggering already self-limits load.
	PollInterval time.Duration
	// CaptureTimeout bounds each capture attempt. It is the only
	// cancellation mechanism in the pipeline.
	CaptureTimeout time.Duration
	// RecheckWorkers bounds concurrent recheck pipelines.
	RecheckWorkers int
	// StaggerRate is the recheck admission rate in captures per second.
	// It replaces per-index sleep staggering with a shared token bucket.
	StaggerRate float64
	// Topic, when non-empty, enables change-event publishing.
	Topic string
}

// Scheduler runs the engine's poll loop. Per-page pipelines are isolated:
// one page's failure never aborts the cycle for the others.
type Scheduler struct {
	repo      watch.Repository
	store     watch.ArtifactStore
	capture   watch.CaptureService
	notifier  watch.Notifier
	renderer  watch.Renderer
	publisher watch.Publisher
	throttle  *throttle.Throttle
	retention *retain.Manager
	clock     watch.Clock
	limiter   *rate.Limiter
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Scheduler. notifier and publisher may be nil; change
// events are then logged but not delivered/published.
func New(
	repo watch.Repository,
	store watch.ArtifactStore,
	capture watch.CaptureService,
	notifier watch.Notifier,
	renderer watch.Renderer,
	publisher watch.Publisher,
	throttle *throttle.Throttle,
	retention *retain.Manager,
	clock watch.Clock,
	cfg Config,
	logger *zap.Logger,
) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.CaptureTimeout <= 0 {
		cfg.CaptureTimeout = 10 * time.Second
	}
	if cfg.RecheckWorkers <= 0 {
		cfg.RecheckWorkers = 4
	}
	limit := rate.Limit(cfg.StaggerRate)
	if cfg.StaggerRate <= 0 {
		limit = rate.Inf
	}
	return &Scheduler{
		repo:      repo,
		store:     store,
		capture:   capture,
		notifier:  notifier,
		renderer:  renderer,
		publisher: publisher,
		throttle:  throttle,
		retention: retention,
		clock:     clock,
		limiter:   rate.NewLimiter(limit, 1),
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks, executing cycles with a fixed inter-cycle delay until the
// context finishes.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.RunCycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// RunCycle executes one full cycle: cold-start phase, then recheck phase.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := s.clock.Now()
	cycleID := uuid.NewString()
	logger := s.logger.With(zap.String("cycle_id", cycleID))

	s.coldStart(ctx, logger)
	s.recheck(ctx, cycleID, logger)

	metrics.ObserveCycle(s.clock.Now().Sub(start))
}

// coldStart captures a baseline for every page with zero log entries.
// First-time checks carry no notification risk, so they run concurrently
// and unstaggered.
func (s *Scheduler) coldStart(ctx context.Context, logger *zap.Logger) {
	pages, err := s.repo.ListUncheckedWebpages(ctx)
	if err != nil {
		logger.Error("list unchecked webpages failed", zap.Error(err))
		return
	}
	if len(pages) == 0 {
		return
	}
	logger.Info("cold-start phase", zap.Int("pages", len(pages)))

	var wg sync.WaitGroup
	for _, page := range pages {
		wg.Add(1)
		go func(p watch.Webpage) {
			defer wg.Done()
			s.baselineCheck(ctx, p, logger)
		}(page)
	}
	wg.Wait()
}

// baselineCheck captures a never-checked page and inserts the first log
// entry. No classification, no notification.
func (s *Scheduler) baselineCheck(ctx context.Context, page watch.Webpage, logger *zap.Logger) {
	logger = logger.With(zap.String("webpage_id", page.ID), zap.String("url", page.URL))

	snap, ok := s.captureAndUpload(ctx, page, logger)
	if !ok {
		return
	}
	if err := s.repo.InsertLogEntry(ctx, s.entryFor(page, snap)); err != nil {
		logger.Error("insert baseline log entry failed", zap.Error(err))
		return
	}
	metrics.ObserveCheck(classify.Baseline.String())
	logger.Info("baseline recorded", zap.Int("status", snap.StatusCode))
}

// recheck pushes every due page through a bounded worker pool. Workers
// wait on a shared rate limiter before each capture, bounding concurrent
// outbound load without caring about completion order.
func (s *Scheduler) recheck(ctx context.Context, cycleID string, logger *zap.Logger) {
	pages, err := s.repo.ListDueWebpages(ctx)
	if err != nil {
		logger.Error("list due webpages failed", zap.Error(err))
		return
	}
	if len(pages) == 0 {
		return
	}
	logger.Info("recheck phase", zap.Int("pages", len(pages)))

	jobs := make(chan watch.Webpage)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.RecheckWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}
				s.recheckPage(ctx, cycleID, page, logger)
			}
		}()
	}
	for _, page := range pages {
		select {
		case jobs <- page:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
}

// recheckPage runs one page's pipeline, strictly sequenced: capture →
// classify → persist → notify → retain. Errors are logged and the page is
// skipped for this cycle.
func (s *Scheduler) recheckPage(ctx context.Context, cycleID string, page watch.Webpage, logger *zap.Logger) {
	logger = logger.With(zap.String("webpage_id", page.ID), zap.String("url", page.URL))

	priorChecks, err := s.repo.CountLogEntries(ctx, page.ID)
	if err != nil {
		logger.Error("count log entries failed", zap.Error(err))
		return
	}
	latest, err := s.latestEntry(ctx, page)
	if err != nil {
		logger.Error("fetch latest log entry failed", zap.Error(err))
		return
	}

	snap, ok := s.captureAndUpload(ctx, page, logger)
	if !ok {
		return
	}

	result := classify.Classify(page, latest, snap)
	metrics.ObserveCheck(result.String())

	switch result {
	case classify.Baseline:
		// A due page without a log entry means its baseline insert was
		// lost; re-record it and stay silent.
		if err := s.repo.InsertLogEntry(ctx, s.entryFor(page, snap)); err != nil {
			logger.Error("insert baseline log entry failed", zap.Error(err))
		}
	case classify.Unchanged:
		s.retention.OnUnchanged(ctx, snap.ArtifactName)
		logger.Debug("no change detected")
	case classify.Changed:
		s.handleChange(ctx, cycleID, page, *latest, snap, priorChecks, logger)
	}
}

// handleChange persists the change, then notifies, publishes and trims
// retention, in that order. Log rows stand regardless of downstream
// failures; the next cycle classifies against them, so a lost
// notification is lost for good rather than duplicated.
func (s *Scheduler) handleChange(
	ctx context.Context,
	cycleID string,
	page watch.Webpage,
	previous watch.CheckLogEntry,
	snap watch.PageSnapshot,
	priorChecks int,
	logger *zap.Logger,
) {
	if err := s.repo.InsertLogEntry(ctx, s.entryFor(page, snap)); err != nil {
		logger.Error("insert change log entry failed", zap.Error(err))
		return
	}

	decision := s.throttle.Decide(page, priorChecks)
	if decision.Notify {
		s.sendNotification(ctx, page, previous, snap, priorChecks, decision.Tier, logger)
	} else {
		metrics.ObserveNotification("suppressed")
		logger.Info("notification suppressed by quota", zap.Int("prior_checks", priorChecks))
	}

	s.publishChange(ctx, cycleID, page, snap, logger)
	s.retention.OnChanged(ctx, page.ID)
	logger.Info("change recorded",
		zap.Int("status", snap.StatusCode),
		zap.Bool("notified", decision.Notify),
	)
}

func (s *Scheduler) sendNotification(
	ctx context.Context,
	page watch.Webpage,
	previous watch.CheckLogEntry,
	snap watch.PageSnapshot,
	priorChecks int,
	tier *watch.PriceTier,
	logger *zap.Logger,
) {
	if s.notifier == nil || s.renderer == nil {
		metrics.ObserveNotification("skipped")
		logger.Warn("no notifier configured, change alert dropped")
		return
	}
	msg, err := s.renderer.Render(watch.NotificationContext{
		Page:        page,
		Previous:    previous,
		Current:     snap,
		PriorChecks: priorChecks,
		Tier:        tier,
	})
	if err != nil {
		metrics.ObserveNotification("failed")
		logger.Error("render notification failed", zap.Error(err))
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		metrics.ObserveNotification("failed")
		logger.Error("send notification failed", zap.Error(err))
		return
	}
	metrics.ObserveNotification("sent")
}

func (s *Scheduler) publishChange(ctx context.Context, cycleID string, page watch.Webpage, snap watch.PageSnapshot, logger *zap.Logger) {
	if s.publisher == nil || s.cfg.Topic == "" {
		return
	}
	event := watch.ChangeEvent{
		CycleID:     cycleID,
		WebpageID:   page.ID,
		URL:         page.URL,
		StatusCode:  snap.StatusCode,
		Checksum:    snap.ContentChecksum,
		ArtifactRef: snap.ArtifactName,
		CheckedAt:   s.clock.Now(),
	}
	if _, err := s.publisher.Publish(ctx, s.cfg.Topic, event); err != nil {
		metrics.ObserveEventPublished("failed")
		logger.Warn("publish change event failed", zap.Error(err))
		return
	}
	metrics.ObserveEventPublished("ok")
}

// captureAndUpload runs a bounded capture attempt and uploads the
// resulting artifact. An upload failure does not abort the pipeline: the
// log entry still records the reference and the missing-artifact drift is
// tolerated until reconciliation.
func (s *Scheduler) captureAndUpload(ctx context.Context, page watch.Webpage, logger *zap.Logger) (watch.PageSnapshot, bool) {
	captureCtx, cancel := context.WithTimeout(ctx, s.cfg.CaptureTimeout)
	defer cancel()

	start := s.clock.Now()
	snap, err := s.capture.Capture(captureCtx, page.URL)
	metrics.ObserveCapture(s.clock.Now().Sub(start))
	if err != nil {
		metrics.ObserveCheck("capture_error")
		logger.Warn("capture failed, skipping page this cycle", zap.Error(err))
		return watch.PageSnapshot{}, false
	}

	if err := s.store.Upload(ctx, snap.ArtifactName, snap.ArtifactBytes, artifactContentType); err != nil {
		logger.Error("artifact upload failed", zap.String("artifact", snap.ArtifactName), zap.Error(err))
	}
	return snap, true
}

// latestEntry fetches the newest log entry; nil with no error means the
// page has never been checked.
func (s *Scheduler) latestEntry(ctx context.Context, page watch.Webpage) (*watch.CheckLogEntry, error) {
	entries, err := s.repo.RecentLogEntries(ctx, page.ID, 1)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Scheduler) entryFor(page watch.Webpage, snap watch.PageSnapshot) watch.CheckLogEntry {
	return watch.CheckLogEntry{
		WebpageID:    page.ID,
		CheckedAt:    s.clock.Now(),
		StatusCode:   snap.StatusCode,
		PageChecksum: snap.ContentChecksum,
		PageTitle:    snap.Title,
		ArtifactRef:  snap.ArtifactName,
	}
}
