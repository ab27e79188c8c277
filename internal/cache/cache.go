// Package cache memoizes JSON responses in redis so repeated catalog
// requests do not hit the upstream sites. Every operation is best-effort:
// a missing or unreachable redis degrades to pass-through, never to errors.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// keyPrefix namespaces all cache entries written by this service.
const keyPrefix = "api:"

// Store wraps a redis client for response memoization.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis at the given URL. An empty URL returns a disabled
// store; a connection failure is logged and also yields a disabled store.
func New(ctx context.Context, url string, ttl time.Duration) *Store {
	if strings.TrimSpace(url) == "" {
		return &Store{ttl: ttl}
	}
	opts, errParse := redis.ParseURL(url)
	if errParse != nil {
		log.WithError(errParse).Warn("cache: invalid redis url, caching disabled")
		return &Store{ttl: ttl}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		log.WithError(errPing).Warn("cache: redis unreachable, caching disabled")
		_ = client.Close()
		return &Store{ttl: ttl}
	}
	log.Info("cache: connected to redis")
	return &Store{client: client, ttl: ttl}
}

// Enabled reports whether a redis backend is attached.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// Close releases the redis connection.
func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}

// Get returns the cached payload for key, or nil on miss or failure.
func (s *Store) Get(ctx context.Context, key string) []byte {
	if !s.Enabled() {
		return nil
	}
	data, errGet := s.client.Get(ctx, key).Bytes()
	if errGet != nil {
		if errGet != redis.Nil {
			log.WithError(errGet).Debug("cache: get failed")
		}
		return nil
	}
	return data
}

// Set stores a payload under key with the configured TTL.
func (s *Store) Set(ctx context.Context, key string, payload []byte) {
	if !s.Enabled() || len(payload) == 0 {
		return
	}
	ttl := s.ttl
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if errSet := s.client.Set(ctx, key, payload, ttl).Err(); errSet != nil {
		log.WithError(errSet).Debug("cache: set failed")
	}
}

// Delete removes a single cache entry. It reports whether the key existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	removed, errDel := s.client.Del(ctx, key).Result()
	if errDel != nil {
		return false, fmt.Errorf("cache: delete: %w", errDel)
	}
	return removed > 0, nil
}

// ClearPattern removes all entries matching the given glob pattern and
// returns how many were deleted. The service prefix is enforced.
func (s *Store) ClearPattern(ctx context.Context, pattern string) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	if !strings.HasPrefix(pattern, keyPrefix) {
		pattern = keyPrefix + strings.TrimPrefix(pattern, "/")
	}
	keys, errScan := s.scanKeys(ctx, pattern)
	if errScan != nil {
		return 0, errScan
	}
	if len(keys) == 0 {
		return 0, nil
	}
	removed, errDel := s.client.Del(ctx, keys...).Result()
	if errDel != nil {
		return 0, fmt.Errorf("cache: clear pattern: %w", errDel)
	}
	return removed, nil
}

// ClearAll removes every entry written by this service.
func (s *Store) ClearAll(ctx context.Context) (int64, error) {
	return s.ClearPattern(ctx, keyPrefix+"*")
}

// Keys lists all cache keys written by this service.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}
	return s.scanKeys(ctx, keyPrefix+"*")
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if errIter := iter.Err(); errIter != nil {
		return nil, fmt.Errorf("cache: scan: %w", errIter)
	}
	return keys, nil
}

// RequestKey derives a deterministic cache key from a request path and its
// query parameters. Parameters are sorted so equivalent URLs share an entry.
func RequestKey(path string, query map[string][]string) string {
	if len(query) == 0 {
		return keyPrefix + path
	}
	params := make([]string, 0, len(query))
	for name, values := range query {
		for _, value := range values {
			params = append(params, name+"="+value)
		}
	}
	sort.Strings(params)
	return keyPrefix + path + "?" + strings.Join(params, "&")
}
