package commands

import (
	"database/sql"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/carlospaes120/scapegoat/db"
	"github.com/carlospaes120/scapegoat/display"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/logger"
	"github.com/carlospaes120/scapegoat/runstore"
)

// RunsCmd inspects the run store.
var RunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List, inspect and delete stored runs",
	Long: `Inspect the runs recorded by compute.

Run ids may be abbreviated to any unique prefix.

Examples:
  scapegoat runs ls                       # All runs, newest first
  scapegoat runs ls --case alpha          # Runs of one case
  scapegoat runs show 3f2a9c1b            # Run header and summary
  scapegoat runs show 3f2a --metric victim_inshare
  scapegoat runs show 3f2a --communities 4
  scapegoat runs rm 3f2a9c1b`,
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored runs",
	Args:  cobra.NoArgs,
	RunE:  runRunsLs,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Delete a stored run and its window metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsRm,
}

var runsFlags struct {
	caseName    string
	metric      string
	communities int
}

func init() {
	runsLsCmd.Flags().StringVar(&runsFlags.caseName, "case", "", "Only runs of this case")
	runsShowCmd.Flags().StringVar(&runsFlags.metric, "metric", "", "Print this metric's series across windows")
	runsShowCmd.Flags().IntVar(&runsFlags.communities, "communities", -1, "Print the community assignment of this window")

	RunsCmd.AddCommand(runsLsCmd)
	RunsCmd.AddCommand(runsShowCmd)
	RunsCmd.AddCommand(runsRmCmd)
}

// openRunStore opens the configured run store database.
func openRunStore(cmd *cobra.Command) (*runstore.Store, *sql.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log := logger.ComponentLogger("runs")
	conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), log)
	if err != nil {
		return nil, nil, err
	}
	if schema, err := db.SchemaVersion(conn); err == nil {
		log.Debugw("Run store opened", logger.FieldPath, cfg.GetDatabasePath(), "schema_version", schema)
	}
	return runstore.New(conn, log), conn, nil
}

func runRunsLs(cmd *cobra.Command, args []string) error {
	store, conn, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	runs, err := store.List(cmd.Context(), runsFlags.caseName)
	if err != nil {
		return err
	}
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(runs)
	}

	t := display.Table{Header: []string{"id", "case", "target", "window", "windows", "interactions", "engine", "started"}}
	for _, r := range runs {
		t.Append(
			shortID(r.ID),
			orDash(r.Case),
			orDash(r.TargetID),
			r.WindowSize+"/"+r.WindowStep,
			strconv.Itoa(r.Windows),
			strconv.Itoa(r.Interactions),
			r.EngineVersion,
			r.Started.Local().Format(time.DateTime),
		)
	}
	return t.Render(cmd)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	store, conn, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()
	ctx := cmd.Context()

	run, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	ok, err := run.Comparable()
	if err != nil {
		return err
	}
	if !ok {
		pterm.Warning.Printfln("Run %s was computed by engine %s; its metrics are not comparable with this build", shortID(run.ID), run.EngineVersion)
	}

	switch {
	case runsFlags.metric != "":
		series, err := store.Series(ctx, run.ID, runsFlags.metric)
		if err != nil {
			return err
		}
		t := display.Table{Header: []string{"window", runsFlags.metric}}
		for i, v := range series {
			t.Append(strconv.Itoa(i), value.FormatFloat(v))
		}
		return t.Render(cmd)

	case runsFlags.communities >= 0:
		assignments, err := store.Communities(ctx, run.ID, runsFlags.communities)
		if err != nil {
			return err
		}
		nodes := make([]string, 0, len(assignments))
		for n := range assignments {
			nodes = append(nodes, n)
		}
		sort.Strings(nodes)
		t := display.Table{Header: []string{"node_id", "community_id"}}
		for _, n := range nodes {
			t.Append(n, strconv.Itoa(assignments[n]))
		}
		return t.Render(cmd)
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(run)
	}

	t := display.Table{Header: []string{"field", "value"}}
	t.Append("id", run.ID)
	t.Append("case", orDash(run.Case))
	t.Append("input", run.InputPath)
	t.Append("target", orDash(run.TargetID))
	t.Append("window", run.WindowSize+"/"+run.WindowStep)
	t.Append("windows", strconv.Itoa(run.Windows))
	t.Append("interactions", strconv.Itoa(run.Interactions))
	t.Append("engine", run.EngineVersion)
	t.Append("started", run.Started.Local().Format(time.DateTime))
	t.Append("duration", run.Duration.String())

	var sum runstore.Summary
	if len(run.Summary) > 0 {
		if err := json.Unmarshal(run.Summary, &sum); err != nil {
			return errors.Wrap(err, "failed to decode run summary")
		}
		tl := sum.Timeline
		t.Append("time_to_isolation", orDash(value.FormatInt(tl.TimeToIsolation)))
		t.Append("peak_inshare", orDash(value.FormatInt(tl.PeakInShare)))
		t.Append("inshare_half_life", orDash(value.FormatInt(tl.InShareHalfLife)))
		t.Append("bursts", strconv.Itoa(len(tl.Periods)))
		t.Append("dose_response_curves", strconv.Itoa(len(sum.Curves)))
	}
	return t.Render(cmd)
}

func runRunsRm(cmd *cobra.Command, args []string) error {
	store, conn, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer conn.Close()

	run, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(cmd.Context(), run.ID); err != nil {
		return err
	}
	pterm.Success.Printfln("Deleted run %s", run.ID)
	return nil
}
