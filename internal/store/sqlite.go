package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
	"github.com/blewis-maker/Katapult-Automation/internal/model"
	"github.com/blewis-maker/Katapult-Automation/pkg/katapult"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// PRAGMAs are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	replay_of  TEXT,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_jobs (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	job_id      TEXT NOT NULL,
	job_name    TEXT NOT NULL,
	job_status  TEXT NOT NULL,
	position    INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	error       TEXT,
	poles       INTEGER NOT NULL DEFAULT 0,
	anchors     INTEGER NOT NULL DEFAULT 0,
	connections INTEGER NOT NULL DEFAULT 0,
	stats       TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	recorded_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, job_id)
);

CREATE TABLE IF NOT EXISTS payloads (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	job_id      TEXT NOT NULL,
	job_name    TEXT NOT NULL,
	job_status  TEXT NOT NULL,
	position    INTEGER NOT NULL,
	body        BLOB NOT NULL,
	archived_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, job_id)
);

CREATE TABLE IF NOT EXISTS features (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	layer       TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	geom        BLOB NOT NULL,
	properties  TEXT NOT NULL,
	PRIMARY KEY (run_id, layer, idx)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_jobs_outcome ON run_jobs(run_id, outcome);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source model.RunSource, replayOf string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, replay_of, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(source), nullString(replayOf), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		ReplayOf:  replayOf,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, replay_of, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, source, replay_of, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) RecordJob(ctx context.Context, jr model.JobRun) error {
	statsJSON, err := json.Marshal(jr.Stats)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job stats")
	}
	if jr.RecordedAt.IsZero() {
		jr.RecordedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_jobs
		 (run_id, job_id, job_name, job_status, position, outcome, error, poles, anchors, connections, stats, duration_ms, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jr.RunID, jr.JobID, jr.JobName, jr.JobStatus, jr.Position, string(jr.Outcome), nullString(jr.Error),
		jr.Poles, jr.Anchors, jr.Connections, string(statsJSON), jr.DurationMs, jr.RecordedAt,
	)
	return eris.Wrapf(err, "sqlite: record job %s for run %s", jr.JobID, jr.RunID)
}

func (s *SQLiteStore) ListJobResults(ctx context.Context, runID string) ([]model.JobRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, job_id, job_name, job_status, position, outcome, error, poles, anchors, connections, stats, duration_ms, recorded_at
		 FROM run_jobs WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list job results for run %s", runID)
	}
	defer rows.Close()

	var out []model.JobRun
	for rows.Next() {
		var jr model.JobRun
		var errText sql.NullString
		var statsJSON string
		if err := rows.Scan(&jr.RunID, &jr.JobID, &jr.JobName, &jr.JobStatus, &jr.Position, &jr.Outcome, &errText,
			&jr.Poles, &jr.Anchors, &jr.Connections, &statsJSON, &jr.DurationMs, &jr.RecordedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job result")
		}
		jr.Error = errText.String
		if err := json.Unmarshal([]byte(statsJSON), &jr.Stats); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal job stats")
		}
		out = append(out, jr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list job results iterate")
}

func (s *SQLiteStore) ArchivePayload(ctx context.Context, runID string, position int, job katapult.Job, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO payloads (run_id, job_id, job_name, job_status, position, body, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, job.ID, job.Name, job.Status, position, body, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: archive payload %s for run %s", job.ID, runID)
}

func (s *SQLiteStore) LoadPayloads(ctx context.Context, runID string) ([]Payload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, job_id, job_name, job_status, body FROM payloads WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load payloads for run %s", runID)
	}
	defer rows.Close()

	var out []Payload
	for rows.Next() {
		var p Payload
		if err := rows.Scan(&p.Position, &p.Job.ID, &p.Job.Name, &p.Job.Status, &p.Body); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan payload")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load payloads iterate")
}

func (s *SQLiteStore) SaveFeatures(ctx context.Context, runID string, layers []aggregate.Layer) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin save features")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO features (run_id, layer, idx, geom, properties) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare feature insert")
	}
	defer stmt.Close()

	var n int
	for _, l := range layers {
		for i, f := range l.Features {
			wkb, err := EncodeEWKB(f.Geometry)
			if err != nil {
				return 0, err
			}
			props, err := json.Marshal(l.Record(i))
			if err != nil {
				return 0, eris.Wrap(err, "sqlite: marshal feature properties")
			}
			if _, err := stmt.ExecContext(ctx, runID, l.Name, i, wkb, string(props)); err != nil {
				return 0, eris.Wrapf(err, "sqlite: insert %s feature %d", l.Name, i)
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit features")
	}
	return n, nil
}

func (s *SQLiteStore) LoadFeatures(ctx context.Context, runID, layer string) ([]StoredFeature, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT layer, idx, geom, properties FROM features WHERE run_id = ? AND layer = ? ORDER BY idx`,
		runID, layer,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: load %s features for run %s", layer, runID)
	}
	defer rows.Close()

	var out []StoredFeature
	for rows.Next() {
		var f StoredFeature
		var props string
		if err := rows.Scan(&f.Layer, &f.Index, &f.Geometry, &props); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature")
		}
		if err := json.Unmarshal([]byte(props), &f.Properties); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal feature properties")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load features iterate")
}

// helpers

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var replayOf, resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Source, &replayOf, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	r.ReplayOf = replayOf.String
	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
