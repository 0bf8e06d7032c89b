// Package aggregate merges the results of concurrent domain workers.
package aggregate

import (
	"sort"
	"sync"

	"github.com/Sternrassler/lol-match-collector/pkg/parser"
)

// Counts summarizes the contents of an Aggregator.
type Counts struct {
	MatchIDs        int
	Roles           int
	Trajectories    int
	FilteredMatches int
}

// Aggregator collects match ids, role rows and trajectory rows for one run.
// All methods are safe for concurrent use; a single mutex covers every merge.
type Aggregator struct {
	mu           sync.Mutex
	matchIDs     map[string]struct{}
	filtered     map[string]struct{}
	roles        []parser.RoleRecord
	trajectories []parser.TrajectoryRecord
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		matchIDs: make(map[string]struct{}),
		filtered: make(map[string]struct{}),
	}
}

// MergeIDs adds match ids to the deduplicated set and returns how many were new.
func (a *Aggregator) MergeIDs(ids ...string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	added := 0
	for _, id := range ids {
		if _, ok := a.matchIDs[id]; ok {
			continue
		}
		a.matchIDs[id] = struct{}{}
		added++
	}
	return added
}

// MergeRoles appends the role rows of a classic match and records the match
// in the filtered set.
func (a *Aggregator) MergeRoles(rows []parser.RoleRecord, matchID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.roles = append(a.roles, rows...)
	if matchID != "" {
		a.filtered[matchID] = struct{}{}
	}
}

// MergeTrajectories appends trajectory rows.
func (a *Aggregator) MergeTrajectories(rows []parser.TrajectoryRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.trajectories = append(a.trajectories, rows...)
}

// MatchIDs returns the merged match ids, sorted.
func (a *Aggregator) MatchIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sortedKeys(a.matchIDs)
}

// FilteredMatches returns the ids of matches that produced role rows, sorted.
func (a *Aggregator) FilteredMatches() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return sortedKeys(a.filtered)
}

// Roles returns a copy of the merged role rows.
func (a *Aggregator) Roles() []parser.RoleRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]parser.RoleRecord(nil), a.roles...)
}

// Trajectories returns a copy of the merged trajectory rows.
func (a *Aggregator) Trajectories() []parser.TrajectoryRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]parser.TrajectoryRecord(nil), a.trajectories...)
}

// Counts returns the current sizes of all collections.
func (a *Aggregator) Counts() Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Counts{
		MatchIDs:        len(a.matchIDs),
		Roles:           len(a.roles),
		Trajectories:    len(a.trajectories),
		FilteredMatches: len(a.filtered),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
