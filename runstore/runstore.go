// Package runstore persists pipeline results in the SQLite run database.
//
// A run is stored as one row in runs plus its long-form window table
// (window_metrics), the per-window community assignments and the fitted
// dose-response curves. Everything of a run is written in one transaction.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carlospaes120/scapegoat/doseresponse"
	"github.com/carlospaes120/scapegoat/errors"
	"github.com/carlospaes120/scapegoat/internal/value"
	"github.com/carlospaes120/scapegoat/logger"
	"github.com/carlospaes120/scapegoat/pipeline"
	"github.com/carlospaes120/scapegoat/version"
)

// Meta is what the caller knows about a run besides its result.
type Meta struct {
	Case       string
	InputPath  string
	WindowSize string
	WindowStep string
}

// Run is a stored run header.
type Run struct {
	ID            string          `json:"id"`
	Case          string          `json:"case,omitempty"`
	InputPath     string          `json:"input_path"`
	TargetID      string          `json:"target_id,omitempty"`
	WindowSize    string          `json:"window_size"`
	WindowStep    string          `json:"window_step"`
	Windows       int             `json:"n_windows"`
	Interactions  int             `json:"n_interactions"`
	EngineVersion string          `json:"engine_version"`
	Started       time.Time       `json:"started_at"`
	Duration      time.Duration   `json:"duration"`
	Config        json.RawMessage `json:"config,omitempty"`
	Summary       json.RawMessage `json:"summary,omitempty"`
}

// Comparable reports whether the run's metrics can be compared with runs of
// the current engine.
func (r Run) Comparable() (bool, error) {
	return version.Compatible(r.EngineVersion)
}

// Summary is the run-level digest stored with each run.
type Summary struct {
	Timeline pipeline.Timeline         `json:"timeline"`
	Curves   []doseresponse.SummaryRow `json:"dose_response"`
}

// Store reads and writes runs.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// New wraps an open, migrated database.
func New(db *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.Logger
	}
	return &Store{db: db, log: log.Named("runstore")}
}

// Save writes res under a fresh run id and returns the id.
func (s *Store) Save(ctx context.Context, meta Meta, res *pipeline.Result) (string, error) {
	id := uuid.New().String()

	cfgJSON, err := json.Marshal(res.Config)
	if err != nil {
		return "", errors.Wrap(err, "encode run config")
	}
	summary := Summary{Timeline: res.Timeline, Curves: doseresponse.Summarize(res.Analysis.Curves)}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", errors.Wrap(err, "encode run summary")
	}

	interactions := 0
	for _, w := range res.Windows {
		interactions += w.Record.Interactions
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errors.Wrap(err, "begin run transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, case_name, input_path, target_id, window_size, window_step,
			n_windows, n_interactions, engine_version, config_json, summary_json,
			started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, meta.Case, meta.InputPath, res.Config.TargetID, meta.WindowSize, meta.WindowStep,
		len(res.Windows), interactions, version.EngineVersion, string(cfgJSON), string(summaryJSON),
		res.Started.UTC(), res.Duration.Milliseconds(),
	)
	if err != nil {
		return "", errors.Wrap(err, "insert run")
	}

	if err := saveWindows(ctx, tx, id, res); err != nil {
		return "", err
	}
	if err := saveCurves(ctx, tx, id, res.Analysis.Curves); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", errors.Wrap(err, "commit run")
	}
	s.log.Infow("Run saved",
		logger.FieldRunID, id,
		logger.FieldCase, meta.Case,
		logger.FieldWindows, len(res.Windows))
	return id, nil
}

func saveWindows(ctx context.Context, tx *sql.Tx, id string, res *pipeline.Result) error {
	metricStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO window_metrics (run_id, window_index, t_start, t_end, metric, value)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare window metrics insert")
	}
	defer metricStmt.Close()

	commStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO community_assignments (run_id, window_index, node_id, community_id)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare community insert")
	}
	defer commStmt.Close()

	for _, w := range res.Windows {
		rec := w.Record
		for _, col := range rec.Columns() {
			if _, err := metricStmt.ExecContext(ctx, id, rec.Window, rec.Start.UTC(), rec.End.UTC(), col.Name, nullFloat(col.Value)); err != nil {
				return errors.Wrapf(err, "insert %s for window %d", col.Name, rec.Window)
			}
		}
		for _, node := range w.Partition.Nodes() {
			if _, err := commStmt.ExecContext(ctx, id, rec.Window, node, w.Partition[node]); err != nil {
				return errors.Wrapf(err, "insert community of %s for window %d", node, rec.Window)
			}
		}
	}
	return nil
}

func saveCurves(ctx context.Context, tx *sql.Tx, id string, curves []doseresponse.Curve) error {
	for _, row := range doseresponse.Summarize(curves) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dose_response (
				run_id, factor, response, binning, n_bins, slope, intercept,
				r2, correlation, total_samples
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, row.Factor, row.Response, binning(curves, row), row.NBins, row.Slope, row.Intercept,
			nullFloat(row.R2), nullFloat(row.Correlation), row.TotalSamples,
		)
		if err != nil {
			return errors.Wrapf(err, "insert dose-response %s/%s", row.Factor, row.Response)
		}
	}
	return nil
}

func binning(curves []doseresponse.Curve, row doseresponse.SummaryRow) string {
	for _, c := range curves {
		if c.Factor == row.Factor && c.Response == row.Response {
			return string(c.Binning)
		}
	}
	return ""
}

func nullFloat(m value.Maybe[float64]) sql.NullFloat64 {
	v, ok := m.Get()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

const runColumns = `id, case_name, input_path, target_id, window_size, window_step,
	n_windows, n_interactions, engine_version, config_json, summary_json,
	started_at, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r        Run
		cfg, sum string
		ms       int64
	)
	err := row.Scan(&r.ID, &r.Case, &r.InputPath, &r.TargetID, &r.WindowSize, &r.WindowStep,
		&r.Windows, &r.Interactions, &r.EngineVersion, &cfg, &sum, &r.Started, &ms)
	if err != nil {
		return Run{}, err
	}
	r.Config = json.RawMessage(cfg)
	r.Summary = json.RawMessage(sum)
	r.Duration = time.Duration(ms) * time.Millisecond
	return r, nil
}

// List returns stored runs, newest first. A non-empty caseName filters.
// Config and summary payloads are left out.
func (s *Store) List(ctx context.Context, caseName string) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var args []any
	if caseName != "" {
		query += " WHERE case_name = ?"
		args = append(args, caseName)
	}
	query += " ORDER BY started_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		r.Config, r.Summary = nil, nil
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}
	return out, nil
}

// Get loads one run by id or unique id prefix.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	full, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := scanRun(s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", full))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load run %s", id)
	}
	return &r, nil
}

// resolve expands an id prefix. Ambiguous prefixes are ErrInvalidRequest.
func (s *Store) resolve(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", errors.NewInvalidRequestError("empty run id")
	}
	escaped := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escaped+"%")
	if err != nil {
		return "", errors.Wrapf(err, "resolve run %s", prefix)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", errors.Wrap(err, "scan run id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, "iterate run ids")
	}
	switch len(ids) {
	case 0:
		return "", errors.NewNotFoundError("run %s", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", errors.WithHint(
			errors.NewInvalidRequestError("run id prefix %q is ambiguous", prefix),
			"give more characters of the id",
		)
	}
}

// Series returns one metric of a run in window order; undefined values stay
// undefined.
func (s *Store) Series(ctx context.Context, id, metric string) ([]value.Maybe[float64], error) {
	full, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT value FROM window_metrics
		WHERE run_id = ? AND metric = ?
		ORDER BY window_index`, full, metric)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s of run %s", metric, id)
	}
	defer rows.Close()

	var out []value.Maybe[float64]
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan metric")
		}
		if v.Valid {
			out = append(out, value.Defined(v.Float64))
		} else {
			out = append(out, value.Undefined[float64]())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate metrics")
	}
	if len(out) == 0 {
		return nil, errors.WithHint(
			errors.NewNotFoundError("metric %s in run %s", metric, id),
			"see metrics_by_window.csv for the column names",
		)
	}
	return out, nil
}

// Communities returns node -> community id for one window of a run.
func (s *Store) Communities(ctx context.Context, id string, window int) (map[string]int, error) {
	full, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, community_id FROM community_assignments
		WHERE run_id = ? AND window_index = ?`, full, window)
	if err != nil {
		return nil, errors.Wrapf(err, "load communities of run %s", id)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var node string
		var c int
		if err := rows.Scan(&node, &c); err != nil {
			return nil, errors.Wrap(err, "scan community")
		}
		out[node] = c
	}
	return out, errors.Wrap(rows.Err(), "iterate communities")
}

// Delete removes a run and, by cascade, everything stored with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	full, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", full); err != nil {
		return errors.Wrapf(err, "delete run %s", id)
	}
	s.log.Infow("Run deleted", logger.FieldRunID, full)
	return nil
}
