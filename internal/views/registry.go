package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/poller"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
)

var (
	ErrViewNotFound   = errors.New("view not found")
	ErrClientNotFound = errors.New("client not found")
	ErrSiteNotFound   = errors.New("site not found")
	ErrInvalidKind    = errors.New("invalid view kind")
	ErrClosed         = errors.New("view registry closed")
)

// Roster resolves the sites a view polls.
type Roster interface {
	GetClient(slug string) (*domain.Client, bool)
	GetSite(clientSlug, siteSlug string) (*domain.MonitoredSite, bool)
	AllSites() []*domain.MonitoredSite
}

// Settings holds the loop presets used by new views.
type Settings struct {
	Detail    poller.SiteLoopConfig
	Compact   poller.SiteLoopConfig
	Aggregate poller.AggregateConfig
}

// DefaultSettings returns the dashboard cadences.
func DefaultSettings() Settings {
	return Settings{
		Detail:    poller.DetailView(),
		Compact:   poller.CompactView(),
		Aggregate: poller.DefaultAggregate(),
	}
}

// Registry owns every mounted view.
type Registry struct {
	ctx      context.Context
	roster   Roster
	prober   probe.Prober
	logger   logger.Logger
	settings Settings
	now      func() time.Time

	mu     sync.Mutex
	views  map[string]*View
	closed bool
}

// NewRegistry builds a registry whose loops are bound to ctx.
func NewRegistry(ctx context.Context, roster Roster, prober probe.Prober, log logger.Logger, settings Settings) *Registry {
	return &Registry{
		ctx:      ctx,
		roster:   roster,
		prober:   prober,
		logger:   log,
		settings: settings,
		now:      time.Now,
		views:    make(map[string]*View),
	}
}

// Mount resolves the request against the roster and starts its loops.
// The site list is captured now; roster reloads do not reach it.
func (r *Registry) Mount(req MountRequest) (*View, error) {
	if !req.Kind.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	sites, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	now := r.now()
	v := &View{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Client:    req.Client,
		Site:      req.Site,
		CreatedAt: now,
		lastSeen:  now,
	}

	cfg := r.settings.Compact
	if req.Kind == KindSite {
		cfg = r.settings.Detail
	}
	for _, s := range sites {
		v.sites = append(v.sites, poller.NewSiteLoop(s, r.prober, r.logger, cfg))
	}
	if req.Kind != KindSite {
		aggLog := r.logger.With(logger.String("view", v.ID))
		v.aggregate = poller.NewAggregateLoop(sites, r.prober, aggLog, r.settings.Aggregate)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if err := v.start(r); err != nil {
		v.stop()
		return nil, fmt.Errorf("failed to start view loops: %w", err)
	}
	r.views[v.ID] = v

	r.logger.Info("view mounted",
		logger.String("view", v.ID),
		logger.String("kind", string(v.Kind)),
		logger.Int("sites", len(sites)))

	return v, nil
}

func (r *Registry) resolve(req MountRequest) ([]domain.MonitoredSite, error) {
	switch req.Kind {
	case KindSite:
		if _, ok := r.roster.GetClient(req.Client); !ok {
			return nil, fmt.Errorf("%w: %q", ErrClientNotFound, req.Client)
		}
		s, ok := r.roster.GetSite(req.Client, req.Site)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrSiteNotFound, req.Site)
		}
		return []domain.MonitoredSite{*s}, nil

	case KindClient:
		c, ok := r.roster.GetClient(req.Client)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrClientNotFound, req.Client)
		}
		return copySites(c.Sites), nil

	default:
		return copySites(r.roster.AllSites()), nil
	}
}

func copySites(in []*domain.MonitoredSite) []domain.MonitoredSite {
	out := make([]domain.MonitoredSite, 0, len(in))
	for _, s := range in {
		out = append(out, *s)
	}
	return out
}

// Get returns the view state and marks the view as seen.
func (r *Registry) Get(id string) (ViewState, error) {
	r.mu.Lock()
	v, ok := r.views[id]
	if ok {
		v.lastSeen = r.now()
	}
	r.mu.Unlock()

	if !ok {
		return ViewState{}, ErrViewNotFound
	}
	return v.State(), nil
}

// Unmount stops every loop of the view.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if !ok {
		return ErrViewNotFound
	}
	v.stop()

	r.logger.Info("view unmounted", logger.String("view", id))
	return nil
}

// Reap unmounts views not read since now-ttl and returns how many.
func (r *Registry) Reap(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	var stale []*View
	for id, v := range r.views {
		if now.Sub(v.lastSeen) > ttl {
			stale = append(stale, v)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range stale {
		v.stop()
		r.logger.Info("reaped idle view",
			logger.String("view", v.ID),
			logger.String("idle_for", now.Sub(v.lastSeen).String()))
	}
	return len(stale)
}

// Count returns the number of mounted views.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close unmounts every view and rejects new mounts.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := r.views
	r.views = make(map[string]*View)
	r.mu.Unlock()

	for _, v := range all {
		v.stop()
	}
	if len(all) > 0 {
		r.logger.Info("unmounted all views", logger.Int("count", len(all)))
	}
}
