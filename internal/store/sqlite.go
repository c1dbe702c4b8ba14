package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/access-cli/internal/access"
)

// SQLiteStore implements Store using modernc.org/sqlite, for single-machine
// runs with no Postgres available.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
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
CREATE TABLE IF NOT EXISTS locations (
	id   TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT,
	lng  REAL NOT NULL,
	lat  REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	destination_id TEXT PRIMARY KEY,
	value          REAL NOT NULL CHECK (value >= 0)
);

CREATE TABLE IF NOT EXISTS cost_edges (
	origin_id      TEXT NOT NULL,
	destination_id TEXT NOT NULL,
	cost           REAL NOT NULL,
	PRIMARY KEY (origin_id, destination_id)
);

CREATE TABLE IF NOT EXISTS scores (
	origin_id  TEXT NOT NULL,
	measure    TEXT NOT NULL,
	score      REAL NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (origin_id, measure)
);

CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	status            TEXT NOT NULL DEFAULT 'running',
	batch_size        INTEGER NOT NULL,
	measures          TEXT NOT NULL,
	batches_committed INTEGER NOT NULL DEFAULT 0,
	origins_scored    INTEGER NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_locations_kind ON locations(kind);
CREATE INDEX IF NOT EXISTS idx_cost_edges_origin ON cost_edges(origin_id);
CREATE INDEX IF NOT EXISTS idx_scores_measure ON scores(measure);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLocations(ctx context.Context, locs []Location) error {
	if len(locs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert locations")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO locations (id, kind, name, lng, lat) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, name = excluded.name,
		 lng = excluded.lng, lat = excluded.lat`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert locations")
	}
	defer stmt.Close()

	for _, l := range locs {
		if _, err := stmt.ExecContext(ctx, l.ID, string(l.Kind), l.Name, l.Lng, l.Lat); err != nil {
			return eris.Wrapf(err, "sqlite: upsert location %s", l.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert locations")
}

func (s *SQLiteStore) ListOriginIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM locations WHERE kind = ? ORDER BY id`, string(KindOrigin))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list origin ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan origin id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list origin ids iterate")
}

func (s *SQLiteStore) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, name, lng, lat FROM locations ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list locations")
	}
	defer rows.Close()

	var locs []Location
	for rows.Next() {
		var l Location
		var kind string
		var name sql.NullString
		if err := rows.Scan(&l.ID, &kind, &name, &l.Lng, &l.Lat); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan location")
		}
		l.Kind = LocationKind(kind)
		l.Name = name.String
		locs = append(locs, l)
	}
	return locs, eris.Wrap(rows.Err(), "sqlite: list locations iterate")
}

func (s *SQLiteStore) UpsertOpportunities(ctx context.Context, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert opportunities")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO opportunities (destination_id, value) VALUES (?, ?)
		 ON CONFLICT(destination_id) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert opportunities")
	}
	defer stmt.Close()

	for id, v := range values {
		if _, err := stmt.ExecContext(ctx, id, v); err != nil {
			return eris.Wrapf(err, "sqlite: upsert opportunity %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert opportunities")
}

func (s *SQLiteStore) LoadOpportunities(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT destination_id, value FROM opportunities`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load opportunities")
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var v float64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan opportunity")
		}
		out[id] = v
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load opportunities iterate")
}

func (s *SQLiteStore) InsertCostEdges(ctx context.Context, edges []access.CostEdge) error {
	if len(edges) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert cost edges")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cost_edges (origin_id, destination_id, cost) VALUES (?, ?, ?)
		 ON CONFLICT(origin_id, destination_id) DO UPDATE SET cost = excluded.cost`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert cost edges")
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.OriginID, e.DestinationID, e.Cost); err != nil {
			return eris.Wrapf(err, "sqlite: insert cost edge %s->%s", e.OriginID, e.DestinationID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit insert cost edges")
}

func (s *SQLiteStore) CostEdges(ctx context.Context, originIDs []string) ([]access.CostEdge, error) {
	if len(originIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(originIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(originIDs))
	for i, id := range originIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT origin_id, destination_id, cost FROM cost_edges WHERE origin_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query cost edges")
	}
	defer rows.Close()

	var edges []access.CostEdge
	for rows.Next() {
		var e access.CostEdge
		if err := rows.Scan(&e.OriginID, &e.DestinationID, &e.Cost); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cost edge")
		}
		edges = append(edges, e)
	}
	return edges, eris.Wrap(rows.Err(), "sqlite: query cost edges iterate")
}

// UpsertScores commits one batch of score rows in a single transaction, so a
// batch lands whole or not at all.
func (s *SQLiteStore) UpsertScores(ctx context.Context, rows []access.ScoreRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert scores")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scores (origin_id, measure, score, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(origin_id, measure) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert scores")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range rows {
		for m, score := range row.Scores {
			if _, err := stmt.ExecContext(ctx, row.OriginID, m, score, now); err != nil {
				return eris.Wrapf(err, "sqlite: upsert score %s/%s", row.OriginID, m)
			}
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert scores")
}

func (s *SQLiteStore) ScoresForOrigin(ctx context.Context, originID string) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT measure, score FROM scores WHERE origin_id = ?`, originID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: scores for %s", originID)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var m string
		var v float64
		if err := rows.Scan(&m, &v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		out[m] = v
	}
	return out, eris.Wrap(rows.Err(), "sqlite: scores iterate")
}

func (s *SQLiteStore) CreateRun(ctx context.Context, batchSize int, measures []string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, batch_size, measures, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(RunStatusRunning), batchSize, strings.Join(measures, ","), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:        id,
		Status:    RunStatusRunning,
		BatchSize: batchSize,
		Measures:  measures,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, batchesCommitted, originsScored int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET batches_committed = ?, origins_scored = ?, updated_at = ? WHERE id = ?`,
		batchesCommitted, originsScored, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run progress %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, batch_size, measures, batches_committed, origins_scored, created_at, updated_at
		 FROM runs WHERE id = ?`, runID)

	var r Run
	var status, measures string
	err := row.Scan(&r.ID, &status, &r.BatchSize, &measures, &r.BatchesCommitted, &r.OriginsScored, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.Status = RunStatus(status)
	if measures != "" {
		r.Measures = strings.Split(measures, ",")
	}
	return &r, nil
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
