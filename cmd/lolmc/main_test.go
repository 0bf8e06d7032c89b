package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sternrassler/lol-match-collector/internal/testutil"
	"github.com/Sternrassler/lol-match-collector/pkg/aggregate"
	"github.com/Sternrassler/lol-match-collector/pkg/dataset"
	"github.com/Sternrassler/lol-match-collector/pkg/parser"
	"github.com/Sternrassler/lol-match-collector/pkg/pipeline"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRun writes a config pointing at the mock server and a fresh data dir.
func setupRun(t *testing.T, mock *testutil.MockAPI) (configPath, dataDir string) {
	t.Helper()
	t.Setenv("LOLMC_API_KEY", "RGAPI-test")

	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	configPath = filepath.Join(dir, "lolmc.yaml")
	content := "base_url: " + mock.URL() + "\n" +
		"rate_limit:\n  policy:\n    requests: 1000\n    period: 1s\n" +
		"output:\n  format: csv\n  dir: " + dataDir + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))
	return configPath, dataDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func readRecords(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err, "read %s", path)
	return records
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{pipeline.StageMatchIDs, pipeline.StageRoles, pipeline.StageTrajectories}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, "subcommand %q", name)
		require.Equal(t, name, cmd.Name())
		assert.NotNil(t, cmd.Flags().Lookup("input"), "subcommand %q has no --input flag", name)
	}

	for _, flag := range []string{"config", "log-level", "pretty", "metrics-addr"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing persistent flag --%s", flag)
	}
}

func TestMatchIDsCommand(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	configPath, dataDir := setupRun(t, mock)

	players := "puuid,region\npu-1,euw1\npu-2,kr\npu-3,xx1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, dataset.PlayersFile), []byte(players), 0o644))
	mock.SetResponse(testutil.MatchIDsPath("pu-1"), testutil.NewOKResponse(`["EUW1_1","EUW1_2"]`))
	mock.SetResponse(testutil.MatchIDsPath("pu-2"), testutil.NewOKResponse(`["KR_9","EUW1_1"]`))

	out, err := execute(t, "match-ids", "--config", configPath)
	require.NoError(t, err)

	records := readRecords(t, filepath.Join(dataDir, dataset.MatchIDsFile))
	got := make([]string, 0, len(records))
	for _, r := range records[1:] {
		got = append(got, r[0])
	}
	assert.Equal(t, []string{"EUW1_1", "EUW1_2", "KR_9"}, got)

	for _, want := range []string{"match-ids run", "europe", "asia", "unroutable 1", "match ids 3"} {
		assert.Contains(t, out, want)
	}

	for _, r := range mock.Requests() {
		assert.Equal(t, "RGAPI-test", r.APIKey, "request %s", r.Path)
	}
}

func TestRolesCommand(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	configPath, dataDir := setupRun(t, mock)

	input := filepath.Join(t.TempDir(), "ids.csv")
	require.NoError(t, os.WriteFile(input, []byte("match_id\nEUW1_1\nKR_2\nNA1_3\n"), 0o644))
	mock.SetResponse(testutil.MatchPath("EUW1_1"), testutil.NewOKResponse(testutil.ClassicMatchJSON("EUW1_1")))
	mock.SetResponse(testutil.MatchPath("KR_2"), testutil.NewOKResponse(testutil.MatchJSON("KR_2", "ARAM", nil)))
	// NA1_3 is not scripted and answers 404.

	out, err := execute(t, "roles", "--config", configPath, "--input", input)
	require.NoError(t, err)

	roles := readRecords(t, filepath.Join(dataDir, dataset.RolesFile))
	require.Len(t, roles, 11, "header + 10")
	assert.Equal(t, []string{"EUW1_1-p1", "EUW1_1", "1", "TOP", "Champ1"}, roles[1])

	filtered := readRecords(t, filepath.Join(dataDir, dataset.FilteredMatchesFile))
	require.Len(t, filtered, 2)
	assert.Equal(t, "EUW1_1", filtered[1][0])

	assert.Contains(t, out, "roles 10, filtered matches 1")
	assert.Equal(t, 1, mock.RequestCount(testutil.MatchPath("NA1_3")), "404 is not retried")
}

func TestStageCommand_MissingInput(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	configPath, _ := setupRun(t, mock)

	_, err := execute(t, "trajectories", "--config", configPath)
	require.Error(t, err, "match_ids_filtered.csv is missing")
	assert.Zero(t, mock.RequestCount(""))
}

func TestStageCommand_InvalidConfig(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	configPath, _ := setupRun(t, mock)
	t.Setenv("LOLMC_MATCH_COUNT", "0")

	_, err := execute(t, "match-ids", "--config", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestExport(t *testing.T) {
	results := aggregate.New()
	results.MergeIDs("EUW1_1")
	results.MergeRoles([]parser.RoleRecord{{PUUID: "a", MatchID: "EUW1_1", Slot: 1}}, "EUW1_1")
	results.MergeTrajectories([]parser.TrajectoryRecord{{PUUID: "a", MatchID: "EUW1_1", Slot: 1}})

	dir := t.TempDir()
	sink, err := dataset.NewCSVSink(dir)
	require.NoError(t, err)

	tests := []struct {
		stage string
		files []string
	}{
		{stage: pipeline.StageMatchIDs, files: []string{dataset.MatchIDsFile}},
		{stage: pipeline.StageRoles, files: []string{dataset.RolesFile, dataset.FilteredMatchesFile}},
		{stage: pipeline.StageTrajectories, files: []string{dataset.TrajectoriesFile}},
	}
	for _, tt := range tests {
		require.NoError(t, export(context.Background(), sink, tt.stage, results), "export(%s)", tt.stage)
		for _, name := range tt.files {
			assert.FileExists(t, filepath.Join(dir, name), "export(%s)", tt.stage)
		}
	}

	assert.Error(t, export(context.Background(), sink, "players", results))
}

func TestWriteSummary(t *testing.T) {
	report := &pipeline.Report{
		RunID:       "run-1",
		Stage:       pipeline.StageTrajectories,
		Input:       5,
		Unroutable:  1,
		Processed:   4,
		Contributed: 3,
		Failed:      1,
		PerDomain: map[routing.Domain]pipeline.DomainReport{
			routing.SEA:    {Domain: routing.SEA, Items: 1, Processed: 1, Contributed: 1},
			routing.Europe: {Domain: routing.Europe, Items: 3, Processed: 3, Contributed: 2, Failed: 1},
		},
		Results: aggregate.New(),
	}

	var buf bytes.Buffer
	require.NoError(t, writeSummary(&buf, report))
	out := buf.String()

	for _, want := range []string{"trajectories run run-1", "europe", "sea", "input 5, unroutable 1"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "europe"), strings.Index(out, "sea"), "domains listed in routing order")
	assert.NotContains(t, out, "americas", "domains without work are omitted")
}
