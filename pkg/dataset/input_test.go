package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadPlayers(t *testing.T) {
	path := writeFile(t, "player_index.csv",
		"puuid,region,rank\n"+
			"pu-1,euw1,challenger\n"+
			" pu-2 , KR ,master\n"+
			",na1,master\n"+
			"pu-3,xx9,master\n")

	items, err := ReadPlayers(path)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, routing.WorkItem{Key: "pu-1", Kind: routing.KindPlayer, Region: "euw1", Domain: routing.Europe}, items[0])
	assert.Equal(t, routing.WorkItem{Key: "pu-2", Kind: routing.KindPlayer, Region: "kr", Domain: routing.Asia}, items[1])

	// Unknown regions stay in the input so the run reports them.
	assert.Equal(t, "pu-3", items[2].Key)
	assert.False(t, items[2].Domain.Valid())
}

func TestReadPlayers_ColumnOrder(t *testing.T) {
	path := writeFile(t, "players.csv", "\ufeffrank,region,puuid\nmaster,oc1,pu-9\n")

	items, err := ReadPlayers(path)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, routing.SEA, items[0].Domain)
	assert.Equal(t, "pu-9", items[0].Key)
}

func TestReadPlayers_MissingColumn(t *testing.T) {
	path := writeFile(t, "players.csv", "puuid,rank\npu-1,master\n")

	_, err := ReadPlayers(path)
	assert.ErrorContains(t, err, `missing column "region"`)
}

func TestReadMatchIDs(t *testing.T) {
	path := writeFile(t, "match_ids.csv", "match_id\nEUW1_1\nNA1_2\n\nbogus\nXX_3\n")

	items, err := ReadMatchIDs(path)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, routing.Europe, items[0].Domain)
	assert.Equal(t, routing.Americas, items[1].Domain)
	assert.Equal(t, "bogus", items[2].Key)
	assert.False(t, items[2].Domain.Valid())
	assert.Equal(t, "xx", items[3].Region)
	assert.False(t, items[3].Domain.Valid())
	for _, item := range items {
		assert.Equal(t, routing.KindMatch, item.Kind)
	}
}

func TestReadMatchIDs_MissingFile(t *testing.T) {
	_, err := ReadMatchIDs(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
