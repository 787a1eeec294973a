package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/sitewatch/internal/domain"
	"github.com/MrSnakeDoc/sitewatch/internal/index"
	"github.com/MrSnakeDoc/sitewatch/internal/logger"
)

// ClientReader reads the mirrored roster.
type ClientReader interface {
	GetAllClients(ctx context.Context) ([]*domain.Client, error)
}

// RedisSyncer warms the memory index from Redis on startup
type RedisSyncer struct {
	store  ClientReader
	index  *index.MemoryIndex
	logger logger.Logger
}

// NewRedisSyncer creates a new Redis syncer
func NewRedisSyncer(
	store ClientReader,
	idx *index.MemoryIndex,
	log logger.Logger,
) *RedisSyncer {
	return &RedisSyncer{
		store:  store,
		index:  idx,
		logger: log,
	}
}

// Sync loads clients from Redis into the memory index. An empty mirror
// leaves the index untouched.
func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing roster from redis to memory")

	clients, err := rs.store.GetAllClients(ctx)
	if err != nil {
		return err
	}

	if len(clients) == 0 {
		rs.logger.Info("no clients found in redis")
		return nil
	}

	rs.index.UpdateClients(clients)

	rs.logger.Info("synced roster from redis",
		logger.Int("clients", len(clients)))

	return nil
}
