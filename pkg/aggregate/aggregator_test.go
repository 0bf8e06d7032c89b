package aggregate

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Sternrassler/lol-match-collector/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeIDs_Dedup(t *testing.T) {
	agg := New()

	assert.Equal(t, 2, agg.MergeIDs("EUW1_2", "EUW1_1"))
	assert.Equal(t, 1, agg.MergeIDs("EUW1_1", "KR_1"))
	assert.Equal(t, 0, agg.MergeIDs())

	assert.Equal(t, []string{"EUW1_1", "EUW1_2", "KR_1"}, agg.MatchIDs())
}

func TestMergeIDs_Concurrent(t *testing.T) {
	const workers = 8
	const perWorker = 500

	agg := New()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Every id is published twice by its own worker.
				id := fmt.Sprintf("W%d_%d", w, i)
				agg.MergeIDs(id, id)
			}
		}(w)
	}
	wg.Wait()

	ids := agg.MatchIDs()
	require.Len(t, ids, workers*perWorker)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestMergeRows_Concurrent(t *testing.T) {
	const workers = 4
	const matches = 50

	agg := New()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for m := 0; m < matches; m++ {
				matchID := fmt.Sprintf("D%d_%d", w, m)
				roles := make([]parser.RoleRecord, parser.Slots)
				trajectories := make([]parser.TrajectoryRecord, parser.Slots)
				for i := range roles {
					roles[i] = parser.RoleRecord{MatchID: matchID, Slot: i + 1}
					trajectories[i] = parser.TrajectoryRecord{MatchID: matchID, Slot: i + 1}
				}
				agg.MergeRoles(roles, matchID)
				agg.MergeTrajectories(trajectories)
			}
		}(w)
	}
	wg.Wait()

	counts := agg.Counts()
	assert.Equal(t, workers*matches*parser.Slots, counts.Roles)
	assert.Equal(t, workers*matches*parser.Slots, counts.Trajectories)
	assert.Equal(t, workers*matches, counts.FilteredMatches)
	assert.Equal(t, 0, counts.MatchIDs)
	assert.Len(t, agg.FilteredMatches(), workers*matches)
}

func TestSnapshotsAreCopies(t *testing.T) {
	agg := New()
	agg.MergeRoles([]parser.RoleRecord{{PUUID: "a", MatchID: "M_1", Slot: 1}}, "M_1")
	agg.MergeTrajectories([]parser.TrajectoryRecord{{PUUID: "a", MatchID: "M_1", Slot: 1}})

	roles := agg.Roles()
	roles[0].PUUID = "changed"
	trajectories := agg.Trajectories()
	trajectories[0].PUUID = "changed"

	assert.Equal(t, "a", agg.Roles()[0].PUUID)
	assert.Equal(t, "a", agg.Trajectories()[0].PUUID)
}

func TestMergeRoles_EmptyMatchID(t *testing.T) {
	agg := New()
	agg.MergeRoles(nil, "")
	assert.Equal(t, Counts{}, agg.Counts())
}
