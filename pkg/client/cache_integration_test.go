//go:build integration

package client

import (
	"context"
	"testing"

	"github.com/Sternrassler/lol-match-collector/internal/testutil"
	"github.com/Sternrassler/lol-match-collector/pkg/cache"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_RedisCacheAcrossKeyRotation(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResponse(testutil.MatchPath("EUW1_1"), testutil.NewOKResponse(testutil.ClassicMatchJSON("EUW1_1")))

	manager := cache.NewManager(testutil.StartRedis(t), cache.DefaultOptions())
	c, _ := newTestClient(t, manager)
	ctx := context.Background()

	first, err := c.Fetch(ctx, routing.Europe, "EUW1_1", NewEndpoints(mock.URL(), "RGAPI-old").Match(routing.Europe, "EUW1_1"))
	require.NoError(t, err)

	// A rotated key must still hit the cached payload.
	second, err := c.Fetch(ctx, routing.Europe, "EUW1_1", NewEndpoints(mock.URL(), "RGAPI-new").Match(routing.Europe, "EUW1_1"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.RequestCount(""))

	key, err := cache.KeyFromURL(NewEndpoints(mock.URL(), "x").Match(routing.Europe, "EUW1_1"))
	require.NoError(t, err)
	entry, err := manager.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Positive(t, entry.TTL())
}
