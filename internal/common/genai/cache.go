package genai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"petition-workers/internal/common/database"
	apperrors "petition-workers/internal/common/errors"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/common/metrics"
	"petition-workers/internal/models"
)

const cacheKeyPrefix = "petition:sections:"

// Generator produces raw section text for a context bundle.
type Generator interface {
	Generate(ctx context.Context, gc models.GenerationContext) (models.Sections, error)
}

// CacheKey is derived from the full context bundle, so any change in facts,
// directives or limits yields a new key.
func CacheKey(gc models.GenerationContext) string {
	sum := sha256.Sum256(contextJSON(gc))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// SectionCache stores generated sections in redis.
type SectionCache struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewSectionCache(r *database.RedisClient, ttl time.Duration) *SectionCache {
	return &SectionCache{redis: r, ttl: ttl}
}

// Lookup returns (nil, false, nil) on a miss and a CACHE_UNAVAILABLE error
// when redis fails.
func (c *SectionCache) Lookup(ctx context.Context, key string) (models.Sections, bool, error) {
	var raw map[string]string
	err := c.redis.GetJSON(ctx, key, &raw)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewCacheUnavailableError(err)
	}
	out := make(models.Sections, len(raw))
	for k, v := range raw {
		out[models.SectionName(k)] = v
	}
	return out, true, nil
}

func (c *SectionCache) Store(ctx context.Context, key string, sections models.Sections) error {
	raw := make(map[string]string, len(sections))
	for k, v := range sections {
		raw[string(k)] = v
	}
	if err := c.redis.SetJSON(ctx, key, raw, c.ttl); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	return nil
}

// CachedGenerator consults the cache before delegating. Cache failures are
// logged and bypassed; they never fail generation.
type CachedGenerator struct {
	next   Generator
	cache  *SectionCache
	logger logger.Logger
}

func NewCachedGenerator(next Generator, cache *SectionCache, log logger.Logger) *CachedGenerator {
	return &CachedGenerator{next: next, cache: cache, logger: log.Named("genai-cache")}
}

func (g *CachedGenerator) Generate(ctx context.Context, gc models.GenerationContext) (models.Sections, error) {
	key := CacheKey(gc)

	cached, hit, err := g.cache.Lookup(ctx, key)
	switch {
	case err != nil:
		metrics.GenerationCacheLookups.WithLabelValues("error").Inc()
		g.logger.WithError(err).Warn("section cache lookup failed", map[string]interface{}{"key": key})
	case hit:
		metrics.GenerationCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.GenerationCacheLookups.WithLabelValues("miss").Inc()
	}

	sections, err := g.next.Generate(ctx, gc)
	if err != nil {
		return nil, err
	}
	if err := g.cache.Store(ctx, key, sections); err != nil {
		g.logger.WithError(err).Warn("section cache store failed", map[string]interface{}{"key": key})
	}
	return sections, nil
}
