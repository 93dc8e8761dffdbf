package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polyportfolio/internal/domain"
)

const labelHash = "sector_labels"

// LabelStore persists the slug to sector map as a single Redis hash.
type LabelStore struct {
	rdb *redis.Client
	key string
}

// NewLabelStore creates a LabelStore backed by the given Client.
func NewLabelStore(c *Client) *LabelStore {
	return &LabelStore{rdb: c.rdb, key: c.key(labelHash)}
}

// Load returns every stored label. A missing hash is an empty map.
func (s *LabelStore) Load(ctx context.Context) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: load labels: %w", err)
	}
	return m, nil
}

// Save replaces the hash with labels in one MULTI/EXEC transaction.
func (s *LabelStore) Save(ctx context.Context, labels map[string]string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(labels) > 0 {
			pipe.HSet(ctx, s.key, labels)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: save %d labels: %w", len(labels), err)
	}
	return nil
}

var _ domain.LabelStore = (*LabelStore)(nil)
