// Package scheduler drives the periodic crawl and the one-off checks
// triggered by commands.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"outage_bot/internal/filter"
	"outage_bot/internal/metrics"
	"outage_bot/internal/model"
	"outage_bot/internal/storage"
	"outage_bot/internal/version"
)

// DefaultInterval is the crawl cadence when none is configured.
const DefaultInterval = 10 * time.Minute

// ErrNoSections is returned by CheckNow when the page has nothing to match.
var ErrNoSections = errors.New("no sections found on page")

// Crawler produces a parsed snapshot of the outage page.
type Crawler interface {
	Crawl(ctx context.Context) (*model.CrawlResult, error)
	Invalidate()
}

// Deliverer matches sections for one chat and sends the new ones.
type Deliverer interface {
	Deliver(ctx context.Context, req filter.Request) (int, error)
}

// Scheduler periodically crawls the page and notifies subscribed chats
// when the page version changes.
type Scheduler struct {
	store   storage.Storage
	crawler Crawler
	engine  Deliverer
	metrics metrics.Recorder
	log     *slog.Logger
	tick    time.Duration
}

// New creates a Scheduler. A nil recorder disables metrics.
func New(store storage.Storage, c Crawler, engine Deliverer, rec metrics.Recorder, log *slog.Logger) *Scheduler {
	if rec == nil {
		rec = metrics.Noop()
	}
	return &Scheduler{
		store:   store,
		crawler: c,
		engine:  engine,
		metrics: rec,
		log:     log,
		tick:    DefaultInterval,
	}
}

// SetTickInterval overrides the default crawl interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled. The first
// cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) {
	s.checkAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

// checkAll runs one crawl cycle. Every failure is logged and absorbed.
func (s *Scheduler) checkAll(ctx context.Context) {
	s.crawler.Invalidate()

	res, err := s.crawler.Crawl(ctx)
	if err != nil {
		s.log.Error("crawl", "error", err)
		s.metrics.IncCycle(metrics.CycleFetchError)
		return
	}
	s.metrics.SetSections(len(res.Sections))

	if len(res.Sections) == 0 {
		s.log.Warn("no sections found, waiting for next cycle", "last_update", res.LastUpdate)
		s.metrics.IncCycle(metrics.CycleEmpty)
		return
	}

	key := version.Resolve(res)
	previous, _, err := s.store.GetSetting(ctx, model.SettingLastUpdateSeen)
	if err != nil {
		s.log.Error("get last update", "error", err)
		return
	}

	tr := version.Compare(previous, key)
	if !tr.Changed {
		s.log.Debug("no new update", "version", key.Value)
		s.metrics.IncCycle(metrics.CycleUnchanged)
		return
	}

	s.log.Info("new update detected",
		"previous", tr.Previous,
		"current", tr.Current,
		"source", key.Source,
		"display", key.Display,
	)
	s.metrics.IncCycle(metrics.CycleChanged)
	s.metrics.IncVersionChange()

	// The ledger keeps a retry after a failed write from sending twice.
	if err := s.store.SetSetting(ctx, model.SettingLastUpdateSeen, key.Value); err != nil {
		s.log.Error("set last update", "version", key.Value, "error", err)
	}

	s.fanOut(ctx, res, key)
}

func (s *Scheduler) fanOut(ctx context.Context, res *model.CrawlResult, key version.Key) {
	chats, err := s.store.ListChats(ctx)
	if err != nil {
		s.log.Error("list chats", "error", err)
		return
	}

	var notified, sections int
	for _, chat := range chats {
		if ctx.Err() != nil {
			return
		}

		kws, err := s.store.ListKeywords(ctx, chat.ID)
		if err != nil {
			s.log.Error("list keywords", "chat_id", chat.ID, "error", err)
			continue
		}
		if len(kws) == 0 {
			continue
		}

		n, err := s.engine.Deliver(ctx, filter.Request{
			ChatID:          chat.ID,
			Keywords:        model.KeywordValues(kws),
			Sections:        res.Sections,
			VersionKey:      key.Value,
			AnnounceDisplay: res.AnnounceDisplay,
		})
		if err != nil {
			s.log.Error("deliver", "chat_id", chat.ID, "version", key.Value, "error", err)
			continue
		}
		if n > 0 {
			notified++
			sections += n
		}
	}

	s.log.Info("fan-out done", "version", key.Value, "chats", len(chats), "notified", notified, "sections", sections)
}

// CheckNow crawls the page and delivers every section matching keywords to
// the chat, ignoring what the ledger says was sent. It returns the number of
// sections delivered. Crawl errors are returned unchanged; a page without
// sections yields ErrNoSections.
func (s *Scheduler) CheckNow(ctx context.Context, chatID int64, keywords []string) (int, error) {
	res, err := s.crawler.Crawl(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Sections) == 0 {
		return 0, ErrNoSections
	}

	key := version.Resolve(res)
	return s.engine.Deliver(ctx, filter.Request{
		ChatID:          chatID,
		Keywords:        keywords,
		Sections:        res.Sections,
		VersionKey:      key.Value,
		AnnounceDisplay: res.AnnounceDisplay,
		Force:           true,
	})
}

// ForceNext clears the stored version so the next cycle fans out again.
func (s *Scheduler) ForceNext(ctx context.Context) error {
	s.crawler.Invalidate()
	return s.store.SetSetting(ctx, model.SettingLastUpdateSeen, "")
}
