package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DRSN-tech/med-caption/internal/cfg"
	"github.com/DRSN-tech/med-caption/internal/domain"
	"github.com/DRSN-tech/med-caption/internal/repository/redis/converter"
	"github.com/DRSN-tech/med-caption/pkg/clients"
	"github.com/DRSN-tech/med-caption/pkg/e"
	"github.com/DRSN-tech/med-caption/pkg/logger"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// CacheRepo кэш эмбеддингов. Ошибки Redis не прерывают запрос, только логируются.
type CacheRepo struct {
	client *clients.RedisClient
	model  string
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, model string, cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		model:  model,
		cfg:    cfg,
		logger: logger,
	}
}

// Get возвращает закэшированный вектор. Промах, ошибка и чужая модель дают false.
func (c *CacheRepo) Get(ctx context.Context, digest string) (domain.Embedding, bool) {
	key := c.embeddingKey(digest)

	data, err := c.client.Client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, r.Nil) {
			c.logger.Warnf("Redis GET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		}
		return nil, false
	}

	var model converter.EmbeddingRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		c.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
		c.drop(ctx, key)
		return nil, false
	}

	embedding := converter.ToDomain(c.model, &model)
	if embedding == nil {
		c.logger.Warnf("stale cache entry %s (model %q, dim %d)", key, model.Model, model.Dim)
		c.drop(ctx, key)
		return nil, false
	}

	return embedding, true
}

// Set кэширует вектор на EmbeddingTTL.
func (c *CacheRepo) Set(ctx context.Context, digest string, embedding domain.Embedding) {
	data, err := json.Marshal(converter.ToRedisModel(c.model, embedding))
	if err != nil {
		c.logger.Warnf("Failed to marshal embedding for caching: %v", e.Wrap(whereami.WhereAmI(), err))
		return
	}

	if err := c.client.Client.Set(ctx, c.embeddingKey(digest), data, c.cfg.EmbeddingTTL).Err(); err != nil {
		c.logger.Warnf("Redis SET failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

func (c *CacheRepo) drop(ctx context.Context, key string) {
	if err := c.client.Client.Del(ctx, key).Err(); err != nil {
		c.logger.Warnf("Redis DEL failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}
}

// embeddingKey возвращает Redis-ключ для файла с данным sha256
func (c *CacheRepo) embeddingKey(digest string) string {
	return fmt.Sprintf("embedding:%s:%s", c.model, digest)
}
