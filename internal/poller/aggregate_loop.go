package poller

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
)

const (
	DefaultAggregateInterval    = 60 * time.Second
	DefaultAggregateConcurrency = 20
)

// AggregateConfig controls the fleet rollup loop.
// MaxConcurrency 0 probes every site at once.
type AggregateConfig struct {
	Interval       time.Duration
	MaxConcurrency int
}

// DefaultAggregate returns the fleet card preset.
func DefaultAggregate() AggregateConfig {
	return AggregateConfig{
		Interval:       DefaultAggregateInterval,
		MaxConcurrency: DefaultAggregateConcurrency,
	}
}

// AggregateLoop probes a fixed list of sites each tick and keeps the
// latest fleet snapshot.
type AggregateLoop struct {
	sites  []domain.MonitoredSite
	prober probe.Prober
	logger logger.Logger
	cfg    AggregateConfig
	now    func() time.Time

	mu       sync.Mutex
	started  bool
	active   bool
	snapshot domain.AggregateSnapshot
	seq      uint64
	recorded uint64

	stopCh   chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewAggregateLoop captures the site list. Total is fixed to its length
// for the lifetime of the loop.
func NewAggregateLoop(sites []domain.MonitoredSite, prober probe.Prober, log logger.Logger, cfg AggregateConfig) *AggregateLoop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultAggregateInterval
	}
	if cfg.MaxConcurrency < 0 {
		cfg.MaxConcurrency = 0
	}

	captured := make([]domain.MonitoredSite, len(sites))
	copy(captured, sites)

	return &AggregateLoop{
		sites:  captured,
		prober: prober,
		logger: log,
		cfg:    cfg,
		now:    time.Now,
		snapshot: domain.AggregateSnapshot{
			Total:   len(captured),
			Loading: len(captured) > 0,
		},
		stopCh: make(chan struct{}),
	}
}

// Start fires one tick immediately then one per interval.
func (a *AggregateLoop) Start(ctx context.Context) error {
	loopCtx, err := a.begin(ctx)
	if err != nil {
		return err
	}

	go a.Tick(loopCtx)

	ticker := time.NewTicker(a.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				go a.Tick(loopCtx)
			case <-a.stopCh:
				return
			case <-loopCtx.Done():
				return
			}
		}
	}()

	return nil
}

func (a *AggregateLoop) begin(ctx context.Context) (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return nil, ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	a.started = true
	a.active = true
	a.cancel = cancel
	return loopCtx, nil
}

// Stop cancels the timer and in-flight probes. Safe to call more than once.
func (a *AggregateLoop) Stop() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.active = false
		a.started = true
		cancel := a.cancel
		a.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		close(a.stopCh)
	})
}

// Tick probes every site, waits for all of them and records the rollup.
// An empty site list records a zero snapshot without probing.
func (a *AggregateLoop) Tick(ctx context.Context) bool {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return false
	}
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	results := a.probeAll(ctx)

	snap := domain.AggregateSnapshot{Total: len(a.sites)}
	for _, st := range results {
		if st == domain.StatusOnline {
			snap.Online++
		} else {
			snap.Offline++
		}
	}
	snap.CheckedAt = a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active || ctx.Err() != nil || seq <= a.recorded {
		a.logger.Debug("aggregate result discarded")
		return false
	}
	a.recorded = seq
	a.snapshot = snap

	a.logger.Debug("aggregate tick recorded",
		logger.Int("online", snap.Online),
		logger.Int("offline", snap.Offline),
		logger.Int("total", snap.Total))
	return true
}

// probeAll fans out one probe per site. Each goroutine owns one slot of
// the result slice.
func (a *AggregateLoop) probeAll(ctx context.Context) []domain.Status {
	results := make([]domain.Status, len(a.sites))
	if len(a.sites) == 0 {
		return results
	}

	var sem chan struct{}
	if a.cfg.MaxConcurrency > 0 {
		sem = make(chan struct{}, a.cfg.MaxConcurrency)
	}

	var wg sync.WaitGroup
	for i, site := range a.sites {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i] = domain.StatusOffline
					return
				}
			}

			results[i] = a.prober.Probe(ctx, site.URL, site.Token)
		}()
	}
	wg.Wait()

	return results
}

// Snapshot returns the latest recorded rollup.
func (a *AggregateLoop) Snapshot() domain.AggregateSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot
}

// Active reports whether the loop is still running.
func (a *AggregateLoop) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}
