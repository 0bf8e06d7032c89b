package cache

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Endpoint names used in cache keys.
const (
	EndpointMatch    = "match"
	EndpointTimeline = "timeline"
	EndpointMatchIDs = "match-ids"
)

const matchesPrefix = "/lol/match/v5/matches/"

// ErrUnsupportedURL indicates a URL that does not address a cacheable endpoint.
var ErrUnsupportedURL = errors.New("unsupported url for payload cache")

// Key represents a unique identifier for a cached payload.
type Key struct {
	// Endpoint is one of EndpointMatch, EndpointTimeline, EndpointMatchIDs.
	Endpoint string

	// ID is the match id or, for match-id lists, the player puuid.
	ID string

	// Params are the query parameters that change the payload (e.g. count).
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: lol:endpoint:id:param1=val1:param2=val2
//
// Example:
//
//	lol:match-ids:abc-puuid:count=10:start=0
func (k Key) String() string {
	parts := []string{"lol", k.Endpoint, k.ID}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params.Get(name)))
		}
	}

	return strings.Join(parts, ":")
}

// KeyFromURL derives the cache key of a match-v5 request URL. The host and
// the api_key parameter are ignored, so keys survive key rotation.
func KeyFromURL(rawURL string) (Key, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}

	rest, ok := strings.CutPrefix(u.Path, matchesPrefix)
	if !ok || rest == "" {
		return Key{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, u.Path)
	}

	params := u.Query()
	params.Del("api_key")
	if len(params) == 0 {
		params = nil
	}

	switch {
	case strings.HasPrefix(rest, "by-puuid/") && strings.HasSuffix(rest, "/ids"):
		puuid := strings.TrimSuffix(strings.TrimPrefix(rest, "by-puuid/"), "/ids")
		if puuid == "" || strings.Contains(puuid, "/") {
			break
		}
		return Key{Endpoint: EndpointMatchIDs, ID: puuid, Params: params}, nil

	case strings.HasSuffix(rest, "/timeline"):
		id := strings.TrimSuffix(rest, "/timeline")
		if id == "" || strings.Contains(id, "/") {
			break
		}
		return Key{Endpoint: EndpointTimeline, ID: id, Params: params}, nil

	case !strings.Contains(rest, "/"):
		return Key{Endpoint: EndpointMatch, ID: rest, Params: params}, nil
	}

	return Key{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, u.Path)
}
