package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS selection_runs (
	run_id        TEXT PRIMARY KEY,
	version       TEXT NOT NULL,
	quality       TEXT NOT NULL,
	disabled_cuts TEXT NOT NULL,
	source        TEXT,
	created_at    TEXT NOT NULL,
	summary_json  TEXT
);

CREATE TABLE IF NOT EXISTS jet_decisions (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	jet_index     INTEGER NOT NULL,
	jet_json      TEXT NOT NULL,
	cuts_json     TEXT NOT NULL,
	flagged_json  TEXT NOT NULL,
	passed        INTEGER NOT NULL,
	FOREIGN KEY (run_id) REFERENCES selection_runs(run_id)
);

CREATE INDEX IF NOT EXISTS jet_decisions_run ON jet_decisions(run_id, jet_index);

CREATE TABLE IF NOT EXISTS selection_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES selection_runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store keeps selection runs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps the per-connection pragmas below in force.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-run
// execer is the part of *sql.DB and *sql.Tx the insert helpers need.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Prepare(query string) (*sql.Stmt, error)
}

// CreateRun assigns a run ID and creation time and inserts the run.
func (s *Store) CreateRun(rec RunRecord) (RunRecord, error) {
	return insertRun(s.db, rec)
}

func insertRun(ex execer, rec RunRecord) (RunRecord, error) {
	rec.RunID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.DisabledCuts == nil {
		rec.DisabledCuts = []string{}
	}

	disabledJSON, err := json.Marshal(rec.DisabledCuts)
	if err != nil {
		return RunRecord{}, fmt.Errorf("marshal disabled cuts: %w", err)
	}

	_, err = ex.Exec(
		`INSERT INTO selection_runs (run_id, version, quality, disabled_cuts, source, created_at, summary_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Version, rec.Quality, string(disabledJSON),
		nullIfEmpty(rec.Source), rec.CreatedAt.Format(time.RFC3339Nano), nullIfEmpty(rec.SummaryJSON),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// #endregion create-run

// #region record-run
// RecordRun inserts a finished run with its decisions and summary in one
// transaction. On error nothing is stored.
func (s *Store) RecordRun(rec RunRecord, decisions []Decision, summaryJSON string) (RunRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return RunRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rec.SummaryJSON = summaryJSON
	rec, err = insertRun(tx, rec)
	if err != nil {
		return RunRecord{}, err
	}
	if err := insertDecisions(tx, rec.RunID, decisions); err != nil {
		return RunRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("commit run: %w", err)
	}
	return rec, nil
}

// #endregion record-run

// #region record-decisions
// RecordDecisions appends jet decisions to a run in one transaction.
func (s *Store) RecordDecisions(runID string, decisions []Decision) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertDecisions(tx, runID, decisions); err != nil {
		return err
	}
	return tx.Commit()
}

func insertDecisions(ex execer, runID string, decisions []Decision) error {
	stmt, err := ex.Prepare(
		`INSERT INTO jet_decisions (run_id, jet_index, jet_json, cuts_json, flagged_json, passed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		jetJSON, err := json.Marshal(d.Jet)
		if err != nil {
			return fmt.Errorf("marshal jet %d: %w", d.JetIndex, err)
		}
		cutsJSON, err := json.Marshal(d.Cuts)
		if err != nil {
			return fmt.Errorf("marshal cuts %d: %w", d.JetIndex, err)
		}
		flagged := d.Flagged
		if flagged == nil {
			flagged = []string{}
		}
		flaggedJSON, err := json.Marshal(flagged)
		if err != nil {
			return fmt.Errorf("marshal flagged %d: %w", d.JetIndex, err)
		}
		if _, err := stmt.Exec(runID, d.JetIndex, string(jetJSON), string(cutsJSON), string(flaggedJSON), boolToInt(d.Passed)); err != nil {
			return fmt.Errorf("insert decision %d: %w", d.JetIndex, err)
		}
	}
	return nil
}

// #endregion record-decisions

// #region finish-run
// FinishRun stores the run summary.
func (s *Store) FinishRun(runID, summaryJSON string) error {
	res, err := s.db.Exec(`UPDATE selection_runs SET summary_json = ? WHERE run_id = ?`, summaryJSON, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// #endregion finish-run

// #region get-run
// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (RunRecord, error) {
	row := s.db.QueryRow(
		`SELECT run_id, version, quality, disabled_cuts, source, created_at, summary_json
		 FROM selection_runs WHERE run_id = ?`, id,
	)
	rec, err := scanRun(row)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunRecord, error) {
	var rec RunRecord
	var disabledJSON, createdStr string
	var source, summary sql.NullString

	if err := row.Scan(&rec.RunID, &rec.Version, &rec.Quality, &disabledJSON, &source, &createdStr, &summary); err != nil {
		return RunRecord{}, err
	}
	if err := json.Unmarshal([]byte(disabledJSON), &rec.DisabledCuts); err != nil {
		return RunRecord{}, fmt.Errorf("unmarshal disabled cuts: %w", err)
	}
	rec.Source = source.String
	rec.SummaryJSON = summary.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, version, quality, disabled_cuts, source, created_at, summary_json
		 FROM selection_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListRunsWithLog returns recent runs with jet counts and their latest log row.
func (s *Store) ListRunsWithLog(limit int) ([]RunWithLog, error) {
	runs, err := s.ListRuns(limit)
	if err != nil {
		return nil, err
	}

	out := make([]RunWithLog, 0, len(runs))
	for _, r := range runs {
		rl := RunWithLog{RunRecord: r}
		err := s.db.QueryRow(
			`SELECT COUNT(*), COALESCE(SUM(passed), 0) FROM jet_decisions WHERE run_id = ?`, r.RunID,
		).Scan(&rl.Jets, &rl.Selected)
		if err != nil {
			return nil, fmt.Errorf("count decisions %s: %w", r.RunID, err)
		}

		var reason sql.NullString
		err = s.db.QueryRow(
			`SELECT decision, reason FROM selection_log WHERE run_id = ? ORDER BY id DESC LIMIT 1`, r.RunID,
		).Scan(&rl.Decision, &reason)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("latest log %s: %w", r.RunID, err)
		}
		rl.Reason = reason.String
		out = append(out, rl)
	}
	return out, nil
}

// #endregion list-runs

// #region decisions
// Decisions returns a run's jet decisions in jet order.
func (s *Store) Decisions(runID string) ([]Decision, error) {
	rows, err := s.db.Query(
		`SELECT jet_index, jet_json, cuts_json, flagged_json, passed
		 FROM jet_decisions WHERE run_id = ? ORDER BY jet_index`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []Decision
	for rows.Next() {
		var d Decision
		var jetJSON, cutsJSON, flaggedJSON string
		var passed int
		if err := rows.Scan(&d.JetIndex, &jetJSON, &cutsJSON, &flaggedJSON, &passed); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if err := json.Unmarshal([]byte(jetJSON), &d.Jet); err != nil {
			return nil, fmt.Errorf("unmarshal jet %d: %w", d.JetIndex, err)
		}
		if err := json.Unmarshal([]byte(cutsJSON), &d.Cuts); err != nil {
			return nil, fmt.Errorf("unmarshal cuts %d: %w", d.JetIndex, err)
		}
		if err := json.Unmarshal([]byte(flaggedJSON), &d.Flagged); err != nil {
			return nil, fmt.Errorf("unmarshal flagged %d: %w", d.JetIndex, err)
		}
		d.Passed = passed != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// #endregion decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
