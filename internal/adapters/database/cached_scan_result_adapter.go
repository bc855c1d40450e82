package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/domain/repositories"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
)

// DefaultScanResultTTL is used when no TTL is configured.
const DefaultScanResultTTL = 3600

// CachedScanResultAdapter wraps a ScanResultRepository with a read-through,
// write-through cache. Cache failures never fail the call.
type CachedScanResultAdapter struct {
	adapter    repositories.ScanResultRepository
	cache      providers.CacheProvider
	ttlSeconds int
	metrics    *observability.Metrics
}

// NewCachedScanResultAdapter creates a cached scan result adapter.
func NewCachedScanResultAdapter(adapter repositories.ScanResultRepository, cache providers.CacheProvider, ttlSeconds int, metrics *observability.Metrics) repositories.ScanResultRepository {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultScanResultTTL
	}
	return &CachedScanResultAdapter{
		adapter:    adapter,
		cache:      cache,
		ttlSeconds: ttlSeconds,
		metrics:    metrics,
	}
}

func scanCacheKey(id string) string {
	return fmt.Sprintf("scan:%s", id)
}

// Save stores the scan and then caches it.
func (a *CachedScanResultAdapter) Save(ctx context.Context, result *entities.ScanResult) error {
	if err := a.adapter.Save(ctx, result); err != nil {
		return err
	}
	a.store(ctx, result)
	return nil
}

// GetByID serves from cache, falling back to the wrapped repository.
func (a *CachedScanResultAdapter) GetByID(ctx context.Context, id string) (*entities.ScanResult, error) {
	logger := observability.LoggerFromContext(ctx)
	key := scanCacheKey(id)

	cached, err := a.cache.Get(ctx, key)
	switch {
	case err == nil:
		var result entities.ScanResult
		decodeErr := json.Unmarshal(cached, &result)
		if decodeErr == nil {
			observability.RecordCacheHit(ctx, a.metrics, "scan")
			return &result, nil
		}
		logger.Warn().Err(decodeErr).Str("scan_id", id).Msg("discarding undecodable cached scan")
	case !errors.Is(err, providers.ErrCacheMiss):
		logger.Warn().Err(err).Str("scan_id", id).Msg("scan cache unavailable")
	}
	observability.RecordCacheMiss(ctx, a.metrics, "scan")

	result, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, result)
	return result, nil
}

func (a *CachedScanResultAdapter) store(ctx context.Context, result *entities.ScanResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, scanCacheKey(result.ID), data, a.ttlSeconds); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("scan_id", result.ID).Msg("failed to cache scan")
	}
}
