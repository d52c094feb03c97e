package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/carlospaes120/scapegoat/burst"
	"github.com/carlospaes120/scapegoat/community"
	"github.com/carlospaes120/scapegoat/interaction"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/metrics"
	"github.com/carlospaes120/scapegoat/pipeline"
)

func at(h int) time.Time {
	return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(h) * time.Hour)
}

func run(t *testing.T) *pipeline.Result {
	t.Helper()
	store := interaction.NewStore([]interaction.Event{
		{Source: "a", Target: "b", Timestamp: at(0)},
		{Source: "b", Target: "a", Timestamp: at(1)},
		{Source: "c", Target: "v", Timestamp: at(2)},
		{Source: "a", Target: "v", Timestamp: at(14)},
		{Source: "a", Target: "b", Timestamp: at(18)},
	})
	cfg := pipeline.DefaultConfig()
	cfg.TargetID = "v"
	cfg.Workers = 1
	res, err := pipeline.Run(context.Background(), store, cfg)
	require.NoError(t, err)
	require.Len(t, res.Windows, 3)
	return res
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCreatesLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := run(t)

	written, err := Write(res, Options{Dir: dir, SaveCommunities: true, SaveRanks: true, Case: "demo"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	for _, rel := range []string{
		MetricsFile, BurstsFile, DoseResponseFile, ThresholdsFile, InteractionsFile, ReportFile, SummaryFile,
		"communities/window_0.csv", "communities/window_2.csv",
		"node_ranks/window_0.csv", "node_ranks/window_1.csv",
	} {
		assert.FileExists(t, filepath.Join(dir, rel))
		assert.Contains(t, written, filepath.Join(dir, rel))
	}

	rows := readCSV(t, filepath.Join(dir, MetricsFile))
	require.Len(t, rows, 4, "header plus one row per window")
	header := rows[0]
	assert.Equal(t, []string{"window", "t_start", "t_end"}, header[:3])
	assert.Contains(t, header, "victim_inshare")
	assert.Contains(t, header, "topk_pr_share_k5")

	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	assert.Equal(t, "0", rows[1][col("window")])
	assert.Equal(t, at(6).Format(time.RFC3339), rows[2][col("t_start")])
	assert.Equal(t, "0", rows[2][col("peak_mean")], "empty windows are kept")
	assert.Equal(t, "NaN", rows[1][col("nmi_with_previous")])

	var sum Summary
	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &sum))
	assert.Equal(t, "demo", sum.Case)
	assert.Equal(t, 3, sum.Windows)
	assert.Equal(t, 1, sum.EmptyWindows)
	assert.Equal(t, 4, sum.Interactions)
	assert.Equal(t, "6h0m0s", sum.Window)
}

func TestWriteSkipsOptionalOutputs(t *testing.T) {
	dir := t.TempDir()
	_, err := Write(run(t), Options{Dir: dir}, nil)
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, CommunitiesDir))
	assert.NoDirExists(t, filepath.Join(dir, RanksDir))
}

func TestWriteMetricsWithoutWindows(t *testing.T) {
	res := &pipeline.Result{Config: pipeline.DefaultConfig()}
	var buf bytes.Buffer
	require.NoError(t, WriteMetrics(&buf, res))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "topk_pr_share_k10")
}

func TestWriteCommunitiesSortsNodes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCommunities(&buf, community.Partition{"b": 1, "a": 0, "c": 1}))
	assert.Equal(t, "node_id,community_id\na,0\nb,1\nc,1\n", buf.String())
}

func TestWriteRanks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRanks(&buf, []metrics.NodeRecord{
		{Node: "a", PageRank: 0.5, Betweenness: 1, InDegree: 2, OutDegree: 1, Community: value.Defined(0)},
		{Node: "b", PageRank: 0.25},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "a,0.5,1,2,1,0", lines[1])
	assert.Equal(t, "b,0.25,0,0,0,", lines[2])
}

func TestWriteBursts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBursts(&buf, []burst.Period{{ID: 1, StartIndex: 2, EndIndex: 3, Duration: 2, PeakValue: 9, MeanValue: 8, TotalValue: 16, Intensity: 4}}))
	assert.Equal(t,
		"burst_id,start_index,end_index,duration,peak_value,mean_value,total_value,intensity\n1,2,3,2,9,8,16,4\n",
		buf.String())
}
