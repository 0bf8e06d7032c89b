package cache

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "match",
			key:  Key{Endpoint: EndpointMatch, ID: "EUW1_123"},
			want: "lol:match:EUW1_123",
		},
		{
			name: "timeline",
			key:  Key{Endpoint: EndpointTimeline, ID: "KR_9"},
			want: "lol:timeline:KR_9",
		},
		{
			name: "params sorted",
			key: Key{
				Endpoint: EndpointMatchIDs,
				ID:       "pu-1",
				Params:   url.Values{"start": {"0"}, "count": {"10"}},
			},
			want: "lol:match-ids:pu-1:count=10:start=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	key := Key{
		Endpoint: EndpointMatchIDs,
		ID:       "pu-1",
		Params:   url.Values{"start": {"0"}, "count": {"10"}, "queue": {"420"}},
	}

	first := key.String()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, key.String(), "key generation must be deterministic")
	}
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    string
		wantErr bool
	}{
		{
			name:   "match",
			rawURL: "https://europe.api.riotgames.com/lol/match/v5/matches/EUW1_1?api_key=RGAPI-a",
			want:   "lol:match:EUW1_1",
		},
		{
			name:   "timeline",
			rawURL: "https://asia.api.riotgames.com/lol/match/v5/matches/KR_5/timeline?api_key=RGAPI-a",
			want:   "lol:timeline:KR_5",
		},
		{
			name:   "match ids",
			rawURL: "https://sea.api.riotgames.com/lol/match/v5/matches/by-puuid/pu-7/ids?start=0&count=10&api_key=RGAPI-a",
			want:   "lol:match-ids:pu-7:count=10:start=0",
		},
		{
			name:   "host ignored",
			rawURL: "http://127.0.0.1:9999/lol/match/v5/matches/EUW1_1?api_key=other",
			want:   "lol:match:EUW1_1",
		},
		{
			name:    "other api",
			rawURL:  "https://europe.api.riotgames.com/riot/account/v1/accounts/by-puuid/x",
			wantErr: true,
		},
		{
			name:    "nested path",
			rawURL:  "https://europe.api.riotgames.com/lol/match/v5/matches/EUW1_1/events",
			wantErr: true,
		},
		{
			name:    "empty id",
			rawURL:  "https://europe.api.riotgames.com/lol/match/v5/matches/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := KeyFromURL(tt.rawURL)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key.String())
		})
	}
}

func TestKeyFromURL_APIKeyRotation(t *testing.T) {
	a, errA := KeyFromURL("https://europe.api.riotgames.com/lol/match/v5/matches/EUW1_1?api_key=old")
	b, errB := KeyFromURL("https://europe.api.riotgames.com/lol/match/v5/matches/EUW1_1?api_key=new")
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a.String(), b.String(), "keys must not depend on the api key")
}
