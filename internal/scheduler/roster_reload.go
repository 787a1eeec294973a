package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/index"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
)

// RosterSource yields the current list of clients and sites.
type RosterSource interface {
	LoadClients(ctx context.Context) ([]*domain.Client, error)
}

// RosterCache mirrors the roster. Implemented by the Redis store.
type RosterCache interface {
	SaveClientsMany(ctx context.Context, clients []*domain.Client) error
	ListClientSlugs(ctx context.Context) ([]string, error)
	DeleteClient(ctx context.Context, slug string) error
}

// RosterReloader handles periodic reloading of the roster
type RosterReloader struct {
	source        RosterSource
	cache         RosterCache
	index         *index.MemoryIndex
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewRosterReloader creates a new roster reloader. cache may be nil.
func NewRosterReloader(
	source RosterSource,
	cache RosterCache,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *RosterReloader {
	return &RosterReloader{
		source:        source,
		cache:         cache,
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the roster once then keeps reloading it in the background.
// A failed initial load is returned so startup can decide what to do;
// periodic failures keep the previous roster.
func (rr *RosterReloader) Start(ctx context.Context) error {
	initialErr := rr.Reload(ctx)
	if initialErr != nil {
		initialErr = fmt.Errorf("initial reload failed: %w", initialErr)
	}

	ticker := time.NewTicker(rr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := rr.Reload(ctx); err != nil {
					rr.logger.Error("failed to reload roster", logger.Error(err))
				}
			case <-rr.manualTrigger:
				rr.logger.Info("manual reload triggered")
				if err := rr.Reload(ctx); err != nil {
					rr.logger.Error("failed to reload roster", logger.Error(err))
				}
			case <-rr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return initialErr
}

// Stop stops the reloader
func (rr *RosterReloader) Stop() {
	close(rr.stopCh)
}

// Reload loads the roster and replaces the memory index and cache.
// Running views keep the site list they captured at mount time.
func (rr *RosterReloader) Reload(ctx context.Context) error {
	rr.logger.Debug("reloading roster")

	clients, err := rr.source.LoadClients(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	rr.index.UpdateClients(clients)

	rr.logger.Info("roster loaded",
		logger.Int("clients", rr.index.Count()),
		logger.Int("sites", rr.index.SiteCount()))

	// Mirror to Redis (best effort)
	if rr.cache != nil {
		rr.syncCache(ctx, clients)
	}

	return nil
}

func (rr *RosterReloader) syncCache(ctx context.Context, clients []*domain.Client) {
	if err := rr.cache.SaveClientsMany(ctx, clients); err != nil {
		rr.logger.Warn("failed to save roster to redis", logger.Error(err))
		// Don't fail - memory index is the primary source
		return
	}

	cached, err := rr.cache.ListClientSlugs(ctx)
	if err != nil {
		rr.logger.Warn("failed to list cached clients", logger.Error(err))
		return
	}

	current := make(map[string]bool, len(clients))
	for _, c := range clients {
		current[c.Slug] = true
	}

	removed := 0
	for _, slug := range cached {
		if current[slug] {
			continue
		}
		if err := rr.cache.DeleteClient(ctx, slug); err != nil {
			rr.logger.Warn("failed to delete stale client from redis",
				logger.String("client", slug),
				logger.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		rr.logger.Info("removed stale clients from redis", logger.Int("count", removed))
	}
}
