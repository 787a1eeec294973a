package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/history"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
)

// ErrAlreadyStarted is returned when Start is called on a loop that has
// already been started. Loops are single use.
var ErrAlreadyStarted = errors.New("poll loop already started")

// SiteLoopConfig controls one per-site loop.
type SiteLoopConfig struct {
	Interval time.Duration
	Capacity int

	// TrackDowntime enables the consecutive downtime counter.
	TrackDowntime bool
}

// DetailView is the single-site page preset.
func DetailView() SiteLoopConfig {
	return SiteLoopConfig{
		Interval:      time.Second,
		Capacity:      history.DetailCapacity,
		TrackDowntime: true,
	}
}

// CompactView is the card preset used in client and fleet listings.
func CompactView() SiteLoopConfig {
	return SiteLoopConfig{
		Interval: 30 * time.Second,
		Capacity: history.CompactCapacity,
	}
}

// SiteState is a consistent copy of a loop's observable state.
type SiteState struct {
	Site            domain.MonitoredSite
	Current         domain.Status
	Samples         []domain.PingSample
	DowntimeSeconds int64
	Stats           history.Stats
	Active          bool
}

// SiteLoop polls one site on a fixed interval and keeps its history.
//
// Ticks may overlap when a probe outlives the interval. Every tick takes
// a sequence number before probing and only a result newer than the last
// recorded one is kept, so history never goes back in time.
type SiteLoop struct {
	site   domain.MonitoredSite
	prober probe.Prober
	logger logger.Logger
	cfg    SiteLoopConfig
	now    func() time.Time

	mu       sync.Mutex
	started  bool
	active   bool
	ring     *history.Ring
	current  domain.Status
	downtime time.Duration
	seq      uint64
	recorded uint64

	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewSiteLoop builds an idle loop. The site is copied so later roster
// changes never reach a running loop.
func NewSiteLoop(site domain.MonitoredSite, prober probe.Prober, log logger.Logger, cfg SiteLoopConfig) *SiteLoop {
	if cfg.Interval <= 0 {
		cfg.Interval = DetailView().Interval
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = history.DetailCapacity
	}

	return &SiteLoop{
		site:    site,
		prober:  prober,
		logger:  log.With(logger.String("site", site.ID())),
		cfg:     cfg,
		now:     time.Now,
		ring:    history.New(cfg.Capacity),
		current: domain.StatusPending,
		stopCh:  make(chan struct{}),
	}
}

// Start fires one tick immediately then one per interval until Stop is
// called or ctx is done.
func (l *SiteLoop) Start(ctx context.Context) error {
	loopCtx, err := l.begin(ctx)
	if err != nil {
		return err
	}

	go l.fire(loopCtx)

	ticker := time.NewTicker(l.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				go l.fire(loopCtx)
			case <-l.stopCh:
				return
			case <-loopCtx.Done():
				return
			}
		}
	}()

	return nil
}

func (l *SiteLoop) begin(ctx context.Context) (context.Context, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil, ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.started = true
	l.active = true
	l.cancel = cancel
	return loopCtx, nil
}

// Stop cancels the timer and any in-flight probe. Results landing after
// Stop are discarded. Safe to call more than once.
func (l *SiteLoop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.active = false
		cancel := l.cancel
		l.started = true
		l.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		close(l.stopCh)
	})
}

func (l *SiteLoop) fire(ctx context.Context) {
	if !l.Tick(ctx) {
		l.logger.Debug("probe result discarded")
	}
}

// Tick runs one probe and records it. It reports whether the result was
// recorded; a stopped loop or a stale result records nothing.
func (l *SiteLoop) Tick(ctx context.Context) bool {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return false
	}
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	status := l.prober.Probe(ctx, l.site.URL, l.site.Token)
	return l.record(ctx, seq, status)
}

func (l *SiteLoop) record(ctx context.Context, seq uint64, status domain.Status) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active || ctx.Err() != nil || seq <= l.recorded {
		return false
	}
	l.recorded = seq

	l.ring.Append(domain.PingSample{Status: status, At: l.now()})
	l.current = status

	if l.cfg.TrackDowntime {
		if status == domain.StatusOnline {
			l.downtime = 0
		} else {
			l.downtime += l.cfg.Interval
		}
	}
	return true
}

// State returns a snapshot safe to use without holding the loop.
func (l *SiteLoop) State() SiteState {
	l.mu.Lock()
	defer l.mu.Unlock()

	samples := l.ring.Samples()
	return SiteState{
		Site:            l.site,
		Current:         l.current,
		Samples:         samples,
		DowntimeSeconds: downtimeSeconds(l.downtime),
		Stats:           history.Summarize(samples),
		Active:          l.active,
	}
}

// downtimeSeconds rounds up so a sub-second outage never reads 0s.
func downtimeSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

// Config returns the loop configuration after defaults were applied.
func (l *SiteLoop) Config() SiteLoopConfig {
	return l.cfg
}
