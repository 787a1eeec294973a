package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
)

// DefaultClientTTL is the default TTL for client roster records (48 hours)
const DefaultClientTTL = 48 * time.Hour

// ErrClientNotFound is returned when a client record is missing
var ErrClientNotFound = errors.New("client not found in redis")

// Store mirrors the roster in Redis so a restart can serve before the
// roster source is reachable again.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		ttl:    DefaultClientTTL,
	}
}

// Ping checks that Redis answers
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveClient stores a client with its sites
func (s *Store) SaveClient(ctx context.Context, c *domain.Client) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal client: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, ClientKey(c.Slug), data, s.ttl)
	pipe.SAdd(ctx, AllClientsKey(), c.Slug)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save client %s: %w", c.Slug, err)
	}

	return nil
}

// GetClient retrieves a client by slug
func (s *Store) GetClient(ctx context.Context, slug string) (*domain.Client, error) {
	data, err := s.client.Get(ctx, ClientKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, slug)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	var c domain.Client
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal client: %w", err)
	}

	return &c, nil
}

// ListClientSlugs returns every slug in the roster set
func (s *Store) ListClientSlugs(ctx context.Context) ([]string, error) {
	slugs, err := s.client.SMembers(ctx, AllClientsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get client slugs: %w", err)
	}
	return slugs, nil
}

// GetAllClients retrieves every client. Expired or unreadable records
// are skipped.
func (s *Store) GetAllClients(ctx context.Context) ([]*domain.Client, error) {
	slugs, err := s.ListClientSlugs(ctx)
	if err != nil {
		return nil, err
	}

	clients := make([]*domain.Client, 0, len(slugs))
	for _, slug := range slugs {
		c, err := s.GetClient(ctx, slug)
		if err != nil {
			continue
		}
		clients = append(clients, c)
	}

	return clients, nil
}

// DeleteClient removes a client record and its set membership
func (s *Store) DeleteClient(ctx context.Context, slug string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, ClientKey(slug))
	pipe.SRem(ctx, AllClientsKey(), slug)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete client %s: %w", slug, err)
	}
	return nil
}

// SaveClientsMany stores multiple clients in one pipeline
func (s *Store) SaveClientsMany(ctx context.Context, clients []*domain.Client) error {
	pipe := s.client.Pipeline()

	for _, c := range clients {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal client %s: %w", c.Slug, err)
		}

		pipe.Set(ctx, ClientKey(c.Slug), data, s.ttl)
		pipe.SAdd(ctx, AllClientsKey(), c.Slug)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save clients: %w", err)
	}

	return nil
}
