package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Options controls how long payloads stay cached.
type Options struct {
	// TTL applies to match and timeline payloads, which never change.
	TTL time.Duration `mapstructure:"ttl"`

	// ListTTL applies to player match-id lists, which grow as games are played.
	ListTTL time.Duration `mapstructure:"list_ttl"`
}

// DefaultOptions returns 7 days for matches and timelines, 1 hour for id lists.
func DefaultOptions() Options {
	return Options{
		TTL:     7 * 24 * time.Hour,
		ListTTL: time.Hour,
	}
}

// Manager handles caching operations with Redis backend.
type Manager struct {
	redis   *redis.Client
	options Options
}

// NewManager creates a new cache manager with Redis backend.
func NewManager(redisClient *redis.Client, options Options) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	defaults := DefaultOptions()
	if options.TTL <= 0 {
		options.TTL = defaults.TTL
	}
	if options.ListTTL <= 0 {
		options.ListTTL = defaults.ListTTL
	}
	return &Manager{
		redis:   redisClient,
		options: options,
	}
}

// TTLFor returns the lifetime of a freshly stored payload for an endpoint.
func (m *Manager) TTLFor(endpoint string) time.Duration {
	if endpoint == EndpointMatchIDs {
		return m.options.ListTTL
	}
	return m.options.TTL
}

// Get retrieves a cache entry by key.
// Returns ErrCacheMiss if the key doesn't exist or entry is expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(key.Endpoint).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		CacheMisses.WithLabelValues(key.Endpoint).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(key.Endpoint).Inc()
	return &entry, nil
}

// Set stores a cache entry with TTL based on the entry's Expires field.
// The entry will be automatically removed from Redis when it expires.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		// Already expired, don't cache
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheSize.Add(float64(len(data)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Lookup returns the cached payload of a request URL.
func (m *Manager) Lookup(ctx context.Context, rawURL string) ([]byte, bool, error) {
	key, err := KeyFromURL(rawURL)
	if err != nil {
		return nil, false, err
	}

	entry, err := m.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Data, true, nil
}

// Store caches the payload of a request URL with the endpoint's TTL.
func (m *Manager) Store(ctx context.Context, rawURL string, payload []byte) error {
	key, err := KeyFromURL(rawURL)
	if err != nil {
		return err
	}
	return m.Set(ctx, key, NewEntry(payload, m.TTLFor(key.Endpoint)))
}

// Connect opens a Redis client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
