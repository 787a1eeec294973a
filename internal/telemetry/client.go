package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
	"github.com/MrSnakeDoc/sitewatch/internal/probe"
)

const (
	DefaultTimeout = 15 * time.Second

	// maxPayload bounds how much of a plugin response is read.
	maxPayload = 2 << 20
)

// ErrUnavailable wraps every failure to obtain a report.
var ErrUnavailable = errors.New("telemetry unavailable")

// Cache stores raw payloads keyed by site ID.
type Cache interface {
	CacheReport(ctx context.Context, siteID string, payload []byte, ttl time.Duration) error
	GetCachedReport(ctx context.Context, siteID string) ([]byte, error)
	InvalidateReport(ctx context.Context, siteID string) error
}

// Client fetches reports from the status plugin.
type Client struct {
	http     *http.Client
	cache    Cache
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewClient builds a report client. cache may be nil.
func NewClient(timeout time.Duration, cache Cache, cacheTTL time.Duration, log logger.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

// Fetch returns the site's report, from cache when possible.
func (c *Client) Fetch(ctx context.Context, site domain.MonitoredSite) (*Report, error) {
	id := site.ID()

	if c.cache != nil {
		data, err := c.cache.GetCachedReport(ctx, id)
		switch {
		case err != nil:
			c.logger.Warn("report cache read failed", logger.String("site", id), logger.Error(err))
		case data != nil:
			if r, err := Decode(data); err == nil {
				return r, nil
			}
		}
	}

	data, err := c.get(ctx, site)
	if err != nil {
		c.logger.Warn("failed to fetch telemetry", logger.String("site", id), logger.Error(err))
		return nil, err
	}

	r, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if c.cache != nil {
		if err := c.cache.CacheReport(ctx, id, data, c.cacheTTL); err != nil {
			c.logger.Warn("report cache write failed", logger.String("site", id), logger.Error(err))
		}
	}

	return r, nil
}

// Invalidate drops the cached report of site so the next Fetch hits the plugin.
func (c *Client) Invalidate(ctx context.Context, site domain.MonitoredSite) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.InvalidateReport(ctx, site.ID())
}

func (c *Client) get(ctx context.Context, site domain.MonitoredSite) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.Endpoint(site.URL), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(probe.TokenHeader, site.Token)
	req.Header.Set("User-Agent", probe.UserAgent)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayload))
		return nil, fmt.Errorf("%w: upstream returned %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return data, nil
}
