package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carlospaes120/scapegoat/am"
	"github.com/carlospaes120/scapegoat/db"
	"github.com/carlospaes120/scapegoat/display"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/interaction"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/logger"
	"github.com/carlospaes120/scapegoat/pipeline"
	"github.com/carlospaes120/scapegoat/report"
	"github.com/carlospaes120/scapegoat/runstore"
	"github.com/carlospaes120/scapegoat/window"
)

// ComputeCmd runs the pipeline over one interaction file or a case manifest.
var ComputeCmd = &cobra.Command{
	Use:   "compute [input.csv]",
	Short: "Compute windowed network metrics for an interaction log",
	Long: `Compute windowed network metrics for an interaction log.

Reads a CSV of timestamped directed interactions, slices it into sliding
windows and writes per-window metrics, communities, node rankings, burst
periods and dose-response tables into the output directory. Runs are also
recorded in the SQLite run store unless --no-db is given.

With --cases, every case of a TOML manifest is computed into its own
subdirectory of the output directory:

  [cases.alpha]
  input  = "alpha.csv"
  target = "V001"
  window = "12h"

Examples:
  scapegoat compute events.csv --target V001
  scapegoat compute events.csv --window 1d --step 6h --labels toxic
  scapegoat compute --cases cases.toml --out results
  scapegoat compute events.csv --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompute,
}

var computeFlags struct {
	window   string
	step     string
	target   string
	leader   string
	labels   []string
	out      string
	workers  int
	dbPath   string
	noDB     bool
	noExtras bool
	cases    string
	watch    bool
}

func init() {
	f := ComputeCmd.Flags()
	f.StringVarP(&computeFlags.window, "window", "w", "", "Window width (e.g. 6h, 1d, 30m)")
	f.StringVarP(&computeFlags.step, "step", "s", "", "Window step; equal to --window for tumbling windows")
	f.StringVarP(&computeFlags.target, "target", "t", "", "Target node whose isolation is tracked")
	f.StringVar(&computeFlags.leader, "leader", "", "Leader node whose PageRank is tracked")
	f.StringSliceVar(&computeFlags.labels, "labels", nil, "Event label columns to load (comma separated)")
	f.StringVarP(&computeFlags.out, "out", "o", "", "Output directory")
	f.IntVar(&computeFlags.workers, "workers", 0, "Parallel window workers (0 = one per CPU)")
	f.StringVar(&computeFlags.dbPath, "db", "", "Run store database path")
	f.BoolVar(&computeFlags.noDB, "no-db", false, "Do not record the run in the run store")
	f.BoolVar(&computeFlags.noExtras, "no-node-files", false, "Skip per-window community and node rank files")
	f.StringVar(&computeFlags.cases, "cases", "", "Compute every case of a TOML case manifest")
	f.BoolVar(&computeFlags.watch, "watch", false, "Recompute when the input, manifest or config changes")
}

func runCompute(cmd *cobra.Command, args []string) error {
	if computeFlags.cases != "" && len(args) > 0 {
		return errors.NewInvalidRequestError("give either an input file or --cases, not both")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyComputeFlags(cmd, &cfg, args)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithComponent(ctx, "compute")

	if err := computeAll(ctx, cmd, cfg); err != nil {
		if !computeFlags.watch {
			return err
		}
		logger.Errorw("Compute failed", logger.FieldError, err)
	}
	if !computeFlags.watch {
		return nil
	}
	return watch(ctx, cmd, cfg, args)
}

// applyComputeFlags overrides cfg with the flags the user set.
func applyComputeFlags(cmd *cobra.Command, cfg *am.Config, args []string) {
	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}
	f := cmd.Flags()
	if f.Changed("window") {
		cfg.Window.Size = computeFlags.window
		if !f.Changed("step") {
			cfg.Window.Step = computeFlags.window
		}
	}
	if f.Changed("step") {
		cfg.Window.Step = computeFlags.step
	}
	if f.Changed("target") {
		cfg.Target.ID = computeFlags.target
	}
	if f.Changed("leader") {
		cfg.Target.LeaderID = computeFlags.leader
	}
	if f.Changed("labels") {
		cfg.Input.LabelColumns = append([]string(nil), computeFlags.labels...)
	}
	if f.Changed("out") {
		cfg.Output.Dir = computeFlags.out
	}
	if f.Changed("workers") {
		cfg.Pipeline.Workers = computeFlags.workers
	}
	if f.Changed("db") {
		cfg.Database.Path = computeFlags.dbPath
	}
	if computeFlags.noDB {
		cfg.Database.Enabled = false
	}
	if computeFlags.noExtras {
		cfg.Output.SaveCommunities = false
		cfg.Output.SaveRanks = false
	}
}

// computeAll runs the single input or every case of the manifest and prints
// the summaries.
func computeAll(ctx context.Context, cmd *cobra.Command, cfg am.Config) error {
	if computeFlags.cases == "" {
		if cfg.Input.Path == "" {
			return errors.WithHint(
				errors.NewInvalidRequestError("no input file"),
				"pass an interaction CSV, set input.path or use --cases",
			)
		}
		s, err := computeCase(ctx, cmd, cfg, "", cfg.Output.Dir)
		if err != nil {
			return err
		}
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(s)
		}
		return printSummaries(cmd, []report.Summary{s}, cfg.Output.Dir)
	}

	cases, err := am.LoadCases(computeFlags.cases)
	if err != nil {
		return err
	}
	var (
		summaries []report.Summary
		failed    int
	)
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "batch cancelled")
		}
		s, err := computeCase(logger.WithCase(ctx, c.Name), cmd, c.Apply(cfg), c.Name, filepath.Join(cfg.Output.Dir, c.Name))
		if err != nil {
			failed++
			logger.Errorw("Case failed", logger.FieldCase, c.Name, logger.FieldError, err)
			continue
		}
		summaries = append(summaries, s)
	}
	if err := printSummaries(cmd, summaries, cfg.Output.Dir); err != nil {
		return err
	}
	if failed > 0 {
		return errors.Newf("%d of %d cases failed", failed, len(cases))
	}
	return nil
}

// computeCase loads, computes, stores and writes one case.
func computeCase(ctx context.Context, cmd *cobra.Command, cfg am.Config, caseName, outDir string) (report.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return report.Summary{}, err
	}
	pcfg, err := pipeline.FromAM(&cfg)
	if err != nil {
		return report.Summary{}, err
	}
	log := logger.LoggerFromContext(ctx, logger.Logger)
	if logger.ShouldOutput(verbosity(cmd), logger.OutputConfig) {
		log.Infow("Resolved configuration", "config", cfg.String(), "label_columns", pcfg.LabelColumns)
	}

	store, err := loadInteractions(cfg.Input, pcfg.LabelColumns, log)
	if err != nil {
		return report.Summary{}, err
	}

	p, err := pipeline.New(pcfg, log, newProgress(cmd, store, pcfg))
	if err != nil {
		return report.Summary{}, err
	}
	res, err := p.Run(ctx, store)
	if err != nil {
		return report.Summary{}, err
	}
	if logger.ShouldOutput(verbosity(cmd), logger.OutputTiming) {
		log.Infow("Run timing", logger.FieldWindows, len(res.Windows), logger.FieldDurationMS, res.Duration.Milliseconds())
	}

	opts := report.Options{
		Dir:             outDir,
		SaveCommunities: cfg.Output.SaveCommunities,
		SaveRanks:       cfg.Output.SaveRanks,
		Case:            caseName,
		Input:           cfg.Input.Path,
	}
	if cfg.Database.Enabled {
		id, err := saveRun(ctx, cfg, caseName, res, log)
		if err != nil {
			return report.Summary{}, err
		}
		opts.RunID = id
		log = logger.LoggerFromContext(logger.WithRunID(ctx, id), logger.Logger)
	}
	if _, err := report.Write(res, opts, log); err != nil {
		return report.Summary{}, err
	}
	return report.NewSummary(res, opts), nil
}

func loadInteractions(in am.InputConfig, labels []string, log *zap.SugaredLogger) (*interaction.Store, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", in.Path)
	}
	defer f.Close()

	store, stats, err := interaction.LoadCSV(f, interaction.Columns{
		Source:     in.SourceColumn,
		Target:     in.TargetColumn,
		Timestamp:  in.TimestampColumn,
		Labels:     labels,
		TimeLayout: in.TimestampLayout,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", in.Path)
	}
	log.Infow("Interactions loaded",
		logger.FieldPath, in.Path,
		"rows", stats.Rows,
		logger.FieldInteractions, stats.Kept,
		"self_loops", stats.SelfLoops,
		"missing_values", stats.MissingValues,
		"bad_timestamps", stats.BadTimestamps)
	return store, nil
}

func newProgress(cmd *cobra.Command, store *interaction.Store, cfg pipeline.Config) pipeline.Progress {
	if display.ShouldOutputJSON(cmd) {
		return display.NewJSONProgress(os.Stderr)
	}
	var total int
	if min, max, ok := store.Span(); ok {
		total = window.Count(min, max, cfg.Window, cfg.Step)
	}
	return display.NewCLIProgress(verbosity(cmd), total)
}

func saveRun(ctx context.Context, cfg am.Config, caseName string, res *pipeline.Result, log *zap.SugaredLogger) (string, error) {
	conn, err := db.OpenWithMigrations(cfg.GetDatabasePath(), log)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	return runstore.New(conn, log).Save(ctx, runstore.Meta{
		Case:       caseName,
		InputPath:  cfg.Input.Path,
		WindowSize: cfg.Window.Size,
		WindowStep: cfg.Window.Step,
	}, res)
}

func printSummaries(cmd *cobra.Command, summaries []report.Summary, outDir string) error {
	if display.ShouldOutputJSON(cmd) {
		if summaries == nil {
			summaries = []report.Summary{}
		}
		return display.OutputJSON(summaries)
	}

	t := display.Table{Header: []string{"case", "windows", "empty", "interactions", "bursts", "time_to_isolation", "peak_inshare", "run"}}
	for _, s := range summaries {
		t.Append(
			orDash(s.Case),
			strconv.Itoa(s.Windows),
			strconv.Itoa(s.EmptyWindows),
			strconv.Itoa(s.Interactions),
			strconv.Itoa(s.Bursts),
			orDash(value.FormatInt(s.TimeToIsolation)),
			orDash(value.FormatInt(s.PeakInShare)),
			orDash(shortID(s.RunID)),
		)
	}
	if err := t.Render(cmd); err != nil {
		return err
	}
	pterm.Success.Printfln("Results written to %s", outDir)
	return nil
}

// watch recomputes on every debounced change of the config, the input or
// the case manifest until ctx is cancelled.
func watch(ctx context.Context, cmd *cobra.Command, cfg am.Config, args []string) error {
	paths, err := watchedInputs(cfg)
	if err != nil {
		return err
	}
	cfgPath := configPath(cmd)
	if cfgPath == "" {
		for _, e := range am.Cascade() {
			if e.Exists {
				paths = append(paths, e.Path)
			}
		}
	}

	w, err := am.NewConfigWatcher(cfgPath, paths...)
	if err != nil {
		return err
	}
	defer w.Stop()
	am.SetGlobalWatcher(w)
	defer am.SetGlobalWatcher(nil)

	// holds at most the latest pending config
	reruns := make(chan am.Config, 1)
	w.OnReload(func(next *am.Config) error {
		c := *next
		applyComputeFlags(cmd, &c, args)
		select {
		case <-reruns:
		default:
		}
		reruns <- c
		return nil
	})
	w.Start()

	pterm.Info.Printfln("Watching %s (Ctrl+C to stop)", strings.Join(w.Paths(), ", "))
	for {
		select {
		case <-ctx.Done():
			logger.Infow("Watch stopped")
			return nil
		case next := <-reruns:
			if err := computeAll(ctx, cmd, next); err != nil {
				logger.Errorw("Recompute failed", logger.FieldError, err)
			}
		}
	}
}

// watchedInputs is the input file, or the manifest plus every case input.
func watchedInputs(cfg am.Config) ([]string, error) {
	if computeFlags.cases == "" {
		return []string{cfg.Input.Path}, nil
	}
	cases, err := am.LoadCases(computeFlags.cases)
	if err != nil {
		return nil, err
	}
	paths := []string{computeFlags.cases}
	for _, c := range cases {
		paths = append(paths, c.Input)
	}
	return paths, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
