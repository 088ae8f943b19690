package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-api/internal/models"
	appErrors "github.com/noah-isme/admission-api/pkg/errors"
)

// CacheRepository wraps Redis with JSON encoding for cached records.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository. A nil client behaves as an
// always-missing cache.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into dest.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set marshals value and stores it with ttl.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a cached key.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

type applicationBackend interface {
	FetchByOwner(ctx context.Context, ownerID string) (*models.ApplicationRecord, error)
	UpsertByOwner(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error)
}

type cacheRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// CachedApplicationStore fronts the database store with a read-through,
// write-through Redis cache. Cache faults never fail a call.
type CachedApplicationStore struct {
	backend applicationBackend
	cache   *CacheRepository
	ttl     time.Duration
	metrics cacheRecorder
	logger  *zap.Logger
}

// NewCachedApplicationStore wires the cache in front of backend.
func NewCachedApplicationStore(backend applicationBackend, cache *CacheRepository, ttl time.Duration, metrics cacheRecorder, logger *zap.Logger) *CachedApplicationStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedApplicationStore{backend: backend, cache: cache, ttl: ttl, metrics: metrics, logger: logger}
}

// ApplicationCacheKey is the Redis key holding an owner's record.
func ApplicationCacheKey(ownerID string) string {
	return "application:" + ownerID
}

// FetchByOwner serves from cache when possible and fills it on a miss.
func (s *CachedApplicationStore) FetchByOwner(ctx context.Context, ownerID string) (*models.ApplicationRecord, error) {
	key := ApplicationCacheKey(ownerID)
	start := time.Now()
	var cached models.ApplicationRecord
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		s.recordLookup(true, time.Since(start))
		return &cached, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		s.recordLookup(false, time.Since(start))
	default:
		s.recordLookup(false, time.Since(start))
		s.logger.Warn("application cache read failed", zap.String("owner_id", ownerID), zap.Error(err))
	}

	record, err := s.backend.FetchByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, record)
	return record, nil
}

// UpsertByOwner writes through to the backend and refreshes the cache entry.
func (s *CachedApplicationStore) UpsertByOwner(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error) {
	stored, err := s.backend.UpsertByOwner(ctx, record)
	if err != nil {
		return nil, err
	}
	s.store(ctx, ApplicationCacheKey(stored.OwnerID), stored)
	return stored, nil
}

func (s *CachedApplicationStore) store(ctx context.Context, key string, record *models.ApplicationRecord) {
	start := time.Now()
	if err := s.cache.Set(ctx, key, record, s.ttl); err != nil {
		s.logger.Warn("application cache write failed", zap.String("key", key), zap.Error(err))
		if delErr := s.cache.Delete(ctx, key); delErr != nil {
			s.logger.Warn("application cache evict failed", zap.String("key", key), zap.Error(delErr))
		}
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
}

func (s *CachedApplicationStore) recordLookup(hit bool, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, d)
	}
}
