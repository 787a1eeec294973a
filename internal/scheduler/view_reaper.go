package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/logger"
)

const (
	// DefaultViewIdleTTL is how long a view survives without being read
	DefaultViewIdleTTL = 2 * time.Minute
)

// Reaper unmounts idle views. Implemented by views.Registry.
type Reaper interface {
	Reap(now time.Time, ttl time.Duration) int
}

// ViewReaper stops the loops of views whose page went away without
// unmounting them.
type ViewReaper struct {
	views    Reaper
	logger   logger.Logger
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time
	stopCh   chan struct{}
}

// NewViewReaper creates a new view reaper
func NewViewReaper(views Reaper, log logger.Logger, interval, ttl time.Duration) *ViewReaper {
	if ttl <= 0 {
		ttl = DefaultViewIdleTTL
	}

	return &ViewReaper{
		views:    views,
		logger:   log,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic reaping process
func (vr *ViewReaper) Start(ctx context.Context) {
	ticker := time.NewTicker(vr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				vr.Collect()
			case <-vr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reaper
func (vr *ViewReaper) Stop() {
	close(vr.stopCh)
}

// Collect reaps once and returns how many views were unmounted
func (vr *ViewReaper) Collect() int {
	n := vr.views.Reap(vr.now(), vr.ttl)
	if n > 0 {
		vr.logger.Info("view reaping completed", logger.Int("reaped", n))
	} else {
		vr.logger.Debug("no idle views to reap")
	}
	return n
}
