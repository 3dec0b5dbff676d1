package penmark

import (
	"time"

	"github.com/go-co-op/gocron/v2"
)

// renderCacheMaxAge is how long unused render-cache rows are kept.
const renderCacheMaxAge = 30 * 24 * time.Hour

// startScheduler runs the preview server's periodic jobs: a minutely
// check that flips scheduled posts live once their publish time passes,
// and an hourly prune of stale render-cache rows.
func (s *Server) startScheduler() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(s.publishDue),
	); err != nil {
		return err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(s.pruneRenderCache),
	); err != nil {
		return err
	}

	sched.Start()
	s.sched = sched
	return nil
}

// publishDue invalidates the cache when a scheduled post's time has
// arrived, so it goes live without an edit or a restart.
func (s *Server) publishDue() {
	now := s.Engine.now()
	posts, _, _, err := s.Cache.ensureLoaded()
	if err != nil {
		s.log.Warn("schedule check failed", "error", err)
		return
	}

	due := false
	for _, p := range posts {
		if p.Published() && p.Date.After(s.lastPublishCheck) && !p.Date.After(now) {
			s.log.Info("scheduled post is live", "slug", p.Slug, "date", p.Date)
			due = true
		}
	}
	s.lastPublishCheck = now

	if due {
		s.Cache.Invalidate()
		s.refresh()
	}
}

// pruneRenderCache drops render-cache rows that have not been touched
// within renderCacheMaxAge.
func (s *Server) pruneRenderCache() {
	cutoff := s.Engine.now().Add(-renderCacheMaxAge)
	n, err := s.Engine.Store.PruneRenderCache(cutoff)
	if err != nil {
		s.log.Warn("render cache prune failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("render cache pruned", "rows", n)
	}
}
