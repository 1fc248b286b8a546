package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/pkg/models"
)

const rankingKeyPrefix = "ranking"

// RankingCache stores ranked lists under a digest of their inputs. Rankings are
// deterministic, so identical inputs may reuse a cached list. A nil client
// disables caching.
type RankingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRankingCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RankingCache {
	return &RankingCache{client: client, ttl: ttl, logger: logger}
}

// Key derives the cache key for a ranking invocation.
func (c *RankingCache) Key(entityID string, inputs ...interface{}) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, in := range inputs {
		if err := enc.Encode(in); err != nil {
			return "", fmt.Errorf("failed to encode cache input: %w", err)
		}
	}
	return fmt.Sprintf("%s:%s:%s", rankingKeyPrefix, entityID, hex.EncodeToString(h.Sum(nil))), nil
}

// Get returns a cached list. Errors are logged and reported as a miss.
func (c *RankingCache) Get(ctx context.Context, key string) (*models.RankedList, bool) {
	if c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).WithField("key", key).Warn("Failed to read ranking cache")
		}
		return nil, false
	}

	var list models.RankedList
	if err := json.Unmarshal(data, &list); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cached ranking")
		return nil, false
	}
	return &list, true
}

// Set stores a list. Failures are logged; caching is best effort.
func (c *RankingCache) Set(ctx context.Context, key string, list *models.RankedList) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(list)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode ranking for cache")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to write ranking cache")
	}
}

// Invalidate drops every cached list of an entity.
func (c *RankingCache) Invalidate(ctx context.Context, entityID string) error {
	if c.client == nil {
		return nil
	}

	pattern := fmt.Sprintf("%s:%s:*", rankingKeyPrefix, entityID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached rankings for %s: %w", entityID, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached rankings for %s: %w", entityID, err)
	}
	return nil
}

// Ping reports cache connectivity.
func (c *RankingCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}
