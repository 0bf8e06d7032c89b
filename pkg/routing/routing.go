// Package routing maps platform region codes onto the regional routing
// clusters of the match-v5 API. Each cluster has its own rate-limit budget,
// so the cluster is the unit of concurrency for the whole collector.
package routing

import (
	"errors"
	"fmt"
	"strings"
)

// Domain is a regional routing cluster sharing one rate-limit budget.
type Domain string

const (
	// Europe serves eun1, euw1 and ru.
	Europe Domain = "europe"

	// Americas serves na1 and br1.
	Americas Domain = "americas"

	// Asia serves kr and jp.
	Asia Domain = "asia"

	// SEA serves oc1.
	SEA Domain = "sea"
)

// ErrUnknownRegion is returned when a region code has no routing entry.
var ErrUnknownRegion = errors.New("unknown region")

// regionDomains is the static region -> cluster table.
var regionDomains = map[string]Domain{
	"eun1": Europe,
	"euw1": Europe,
	"ru":   Europe,
	"na1":  Americas,
	"br1":  Americas,
	"kr":   Asia,
	"jp":   Asia,
	"oc1":  SEA,
}

// Domains returns every routing domain in a stable order.
func Domains() []Domain {
	return []Domain{Europe, Americas, Asia, SEA}
}

// Regions returns the region codes known to the routing table.
func Regions() []string {
	return []string{"eun1", "euw1", "ru", "na1", "br1", "kr", "jp", "oc1"}
}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	switch d {
	case Europe, Americas, Asia, SEA:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (d Domain) String() string {
	return string(d)
}

// Resolve returns the routing domain for a region code. The lookup ignores case
// and surrounding whitespace.
func Resolve(region string) (Domain, error) {
	normalized := strings.ToLower(strings.TrimSpace(region))
	domain, ok := regionDomains[normalized]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	return domain, nil
}

// RegionFromMatchID extracts the platform prefix of a match id,
// e.g. "EUW1_7012345678" -> "euw1".
func RegionFromMatchID(matchID string) string {
	prefix, _, found := strings.Cut(strings.TrimSpace(matchID), "_")
	if !found {
		return ""
	}
	return strings.ToLower(prefix)
}
