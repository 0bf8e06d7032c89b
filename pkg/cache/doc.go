// Package cache provides a Redis-backed payload cache for match-v5 responses.
//
// Match and timeline payloads never change once a game has ended, so a rerun
// of a pipeline stage can be served from the cache instead of spending the
// per-domain request budget again. Player match-id lists do change and are
// kept for a much shorter time.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, cache.DefaultOptions())
//
//	key := cache.Key{Endpoint: cache.EndpointMatch, ID: "EUW1_6543210"}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # Client Integration
//
// Manager implements client.PayloadCache. Lookup and Store derive the key from
// the request URL; the api_key query parameter never becomes part of a key.
//
// # Metrics
//
//   - lol_cache_hits_total{endpoint} - Cache hits
//   - lol_cache_misses_total{endpoint} - Cache misses
//   - lol_cache_size_bytes - Bytes written to the cache
//   - lol_cache_errors_total{operation} - Cache operation errors
package cache
