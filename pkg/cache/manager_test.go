package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, Options{})
	require.NotNil(t, manager)
	assert.Same(t, client, manager.redis)
	assert.Equal(t, DefaultOptions(), manager.options)
}

func TestNewManager_Panic(t *testing.T) {
	assert.Panics(t, func() { NewManager(nil, DefaultOptions()) })
}

func TestManager_TTLFor(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, Options{TTL: 48 * time.Hour, ListTTL: 10 * time.Minute})

	tests := map[string]time.Duration{
		EndpointMatch:    48 * time.Hour,
		EndpointTimeline: 48 * time.Hour,
		EndpointMatchIDs: 10 * time.Minute,
	}
	for endpoint, want := range tests {
		assert.Equal(t, want, manager.TTLFor(endpoint), "TTLFor(%s)", endpoint)
	}
}

func TestManager_UnsupportedURL(t *testing.T) {
	// Unreachable address: the URL is rejected before Redis is contacted.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	manager := NewManager(client, DefaultOptions())

	_, _, err := manager.Lookup(context.Background(), "https://example.com/other")
	assert.ErrorIs(t, err, ErrUnsupportedURL)
	assert.ErrorIs(t, manager.Store(context.Background(), "https://example.com/other", []byte(`{}`)), ErrUnsupportedURL)
}

func TestManager_SetNil(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()
	manager := NewManager(client, DefaultOptions())

	assert.Error(t, manager.Set(context.Background(), Key{Endpoint: EndpointMatch, ID: "x"}, nil))
}
