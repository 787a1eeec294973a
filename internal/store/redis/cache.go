package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultReportTTL is how long a telemetry report stays cached
const DefaultReportTTL = 5 * time.Minute

// CacheReport stores the raw report payload of one site
func (s *Store) CacheReport(ctx context.Context, siteID string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	if err := s.client.Set(ctx, ReportKey(siteID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

// GetCachedReport retrieves a cached payload. A miss returns nil, nil.
func (s *Store) GetCachedReport(ctx context.Context, siteID string) ([]byte, error) {
	data, err := s.client.Get(ctx, ReportKey(siteID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get cached report: %w", err)
	}
	return data, nil
}

// InvalidateReport removes a cached report
func (s *Store) InvalidateReport(ctx context.Context, siteID string) error {
	if err := s.client.Del(ctx, ReportKey(siteID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate report: %w", err)
	}
	return nil
}
