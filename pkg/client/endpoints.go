package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/lol-match-collector/pkg/routing"
)

// DefaultBaseURL is the regional match-v5 host template.
const DefaultBaseURL = "https://{domain}.api.riotgames.com"

// Endpoints builds request URLs for the match-v5 API. The API key is appended
// verbatim as the api_key query parameter.
type Endpoints struct {
	// BaseURL may contain a {domain} placeholder replaced by the routing domain.
	BaseURL string

	// APIKey is opaque to the client.
	APIKey string
}

// NewEndpoints returns URL builders for the given host template and key.
func NewEndpoints(baseURL, apiKey string) Endpoints {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Endpoints{BaseURL: strings.TrimRight(baseURL, "/"), APIKey: apiKey}
}

// MatchIDs returns the URL listing the most recent match ids of a player.
func (e Endpoints) MatchIDs(domain routing.Domain, puuid string, count int) string {
	return fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=0&count=%d&api_key=%s",
		e.host(domain), url.PathEscape(puuid), count, e.APIKey)
}

// Match returns the URL of a match payload.
func (e Endpoints) Match(domain routing.Domain, matchID string) string {
	return fmt.Sprintf("%s/lol/match/v5/matches/%s?api_key=%s",
		e.host(domain), url.PathEscape(matchID), e.APIKey)
}

// Timeline returns the URL of a match timeline payload.
func (e Endpoints) Timeline(domain routing.Domain, matchID string) string {
	return fmt.Sprintf("%s/lol/match/v5/matches/%s/timeline?api_key=%s",
		e.host(domain), url.PathEscape(matchID), e.APIKey)
}

func (e Endpoints) host(domain routing.Domain) string {
	return strings.ReplaceAll(e.BaseURL, "{domain}", domain.String())
}

// RedactURL replaces the api_key query value so URLs can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
