package routing

import (
	"fmt"
	"strings"
)

// Kind describes what a work item's key identifies.
type Kind string

const (
	// KindPlayer keys are player PUUIDs.
	KindPlayer Kind = "player"

	// KindMatch keys are match ids such as "KR_7012345678".
	KindMatch Kind = "match"
)

// WorkItem is one unit of fetch work bound to its routing domain.
// Values are immutable once constructed.
type WorkItem struct {
	Key    string
	Kind   Kind
	Region string
	Domain Domain
}

// NewPlayerItem builds a player work item routed by the player's region.
func NewPlayerItem(puuid, region string) (WorkItem, error) {
	puuid = strings.TrimSpace(puuid)
	if puuid == "" {
		return WorkItem{}, fmt.Errorf("player puuid is empty")
	}
	domain, err := Resolve(region)
	if err != nil {
		return WorkItem{}, err
	}
	return WorkItem{
		Key:    puuid,
		Kind:   KindPlayer,
		Region: strings.ToLower(strings.TrimSpace(region)),
		Domain: domain,
	}, nil
}

// NewMatchItem builds a match work item routed by the platform prefix of its id.
func NewMatchItem(matchID string) (WorkItem, error) {
	matchID = strings.TrimSpace(matchID)
	region := RegionFromMatchID(matchID)
	if region == "" {
		return WorkItem{}, fmt.Errorf("%w: match id %q has no platform prefix", ErrUnknownRegion, matchID)
	}
	domain, err := Resolve(region)
	if err != nil {
		return WorkItem{}, err
	}
	return WorkItem{
		Key:    matchID,
		Kind:   KindMatch,
		Region: region,
		Domain: domain,
	}, nil
}

// Partition groups work items by routing domain. Order within a domain follows
// the input order and a key is queued at most once per domain. Items without a
// valid domain are returned separately.
func Partition(items []WorkItem) (map[Domain][]WorkItem, []WorkItem) {
	groups := make(map[Domain][]WorkItem)
	seen := make(map[Domain]map[string]struct{})
	var unroutable []WorkItem

	for _, item := range items {
		if !item.Domain.Valid() {
			unroutable = append(unroutable, item)
			continue
		}

		keys, ok := seen[item.Domain]
		if !ok {
			keys = make(map[string]struct{})
			seen[item.Domain] = keys
		}
		if _, dup := keys[item.Key]; dup {
			continue
		}
		keys[item.Key] = struct{}{}
		groups[item.Domain] = append(groups[item.Domain], item)
	}

	return groups, unroutable
}
