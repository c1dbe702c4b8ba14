package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/access-cli/internal/access"
	"github.com/sells-group/access-cli/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS locations (
	id   TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT,
	lng  DOUBLE PRECISION NOT NULL,
	lat  DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	destination_id TEXT PRIMARY KEY,
	value          DOUBLE PRECISION NOT NULL CHECK (value >= 0)
);

CREATE TABLE IF NOT EXISTS cost_edges (
	origin_id      TEXT NOT NULL,
	destination_id TEXT NOT NULL,
	cost           DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (origin_id, destination_id)
);

CREATE TABLE IF NOT EXISTS scores (
	origin_id  TEXT NOT NULL,
	measure    TEXT NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (origin_id, measure)
);

CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	status            TEXT NOT NULL DEFAULT 'running',
	batch_size        INTEGER NOT NULL,
	measures          TEXT NOT NULL,
	batches_committed INTEGER NOT NULL DEFAULT 0,
	origins_scored    INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_locations_kind ON locations(kind);
CREATE INDEX IF NOT EXISTS idx_cost_edges_origin ON cost_edges(origin_id);
CREATE INDEX IF NOT EXISTS idx_scores_measure ON scores(measure);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertLocations(ctx context.Context, locs []Location) error {
	rows := make([][]any, 0, len(locs))
	for _, l := range locs {
		rows = append(rows, []any{l.ID, string(l.Kind), l.Name, l.Lng, l.Lat})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "locations",
		Columns:      []string{"id", "kind", "name", "lng", "lat"},
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert locations")
}

func (s *PostgresStore) ListOriginIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM locations WHERE kind = $1 ORDER BY id`, string(KindOrigin))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list origin ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan origin id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list origin ids iterate")
}

func (s *PostgresStore) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, name, lng, lat FROM locations ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list locations")
	}
	defer rows.Close()

	var locs []Location
	for rows.Next() {
		var l Location
		var kind string
		if err := rows.Scan(&l.ID, &kind, &l.Name, &l.Lng, &l.Lat); err != nil {
			return nil, eris.Wrap(err, "postgres: scan location")
		}
		l.Kind = LocationKind(kind)
		locs = append(locs, l)
	}
	return locs, eris.Wrap(rows.Err(), "postgres: list locations iterate")
}

func (s *PostgresStore) UpsertOpportunities(ctx context.Context, values map[string]float64) error {
	rows := make([][]any, 0, len(values))
	for id, v := range values {
		rows = append(rows, []any{id, v})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "opportunities",
		Columns:      []string{"destination_id", "value"},
		ConflictKeys: []string{"destination_id"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert opportunities")
}

func (s *PostgresStore) LoadOpportunities(ctx context.Context) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `SELECT destination_id, value FROM opportunities`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load opportunities")
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var v float64
		if err := rows.Scan(&id, &v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan opportunity")
		}
		out[id] = v
	}
	return out, eris.Wrap(rows.Err(), "postgres: load opportunities iterate")
}

// InsertCostEdges loads cost edges. A first-time load into an empty table
// goes straight through COPY; once the table has rows, the temp-table upsert
// handles conflicts on (origin_id, destination_id).
func (s *PostgresStore) InsertCostEdges(ctx context.Context, edges []access.CostEdge) error {
	rows := make([][]any, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, []any{e.OriginID, e.DestinationID, e.Cost})
	}

	var populated bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cost_edges)`).Scan(&populated); err != nil {
		return eris.Wrap(err, "postgres: check cost edges")
	}
	if !populated {
		_, err := db.CopyFrom(ctx, s.pool, "cost_edges",
			[]string{"origin_id", "destination_id", "cost"}, rows)
		return eris.Wrap(err, "postgres: copy cost edges")
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "cost_edges",
		Columns:      []string{"origin_id", "destination_id", "cost"},
		ConflictKeys: []string{"origin_id", "destination_id"},
	}, rows)
	return eris.Wrap(err, "postgres: insert cost edges")
}

func (s *PostgresStore) CostEdges(ctx context.Context, originIDs []string) ([]access.CostEdge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT origin_id, destination_id, cost FROM cost_edges WHERE origin_id = ANY($1)`,
		originIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query cost edges")
	}
	defer rows.Close()

	var edges []access.CostEdge
	for rows.Next() {
		var e access.CostEdge
		if err := rows.Scan(&e.OriginID, &e.DestinationID, &e.Cost); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cost edge")
		}
		edges = append(edges, e)
	}
	return edges, eris.Wrap(rows.Err(), "postgres: query cost edges iterate")
}

// UpsertScores commits one batch of score rows in a single transaction. The
// (origin_id, measure) key makes re-commits of a replayed batch idempotent.
func (s *PostgresStore) UpsertScores(ctx context.Context, rows []access.ScoreRow) error {
	now := time.Now().UTC()
	flat := make([][]any, 0, len(rows))
	for _, row := range rows {
		for m, score := range row.Scores {
			flat = append(flat, []any{row.OriginID, m, score, now})
		}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "scores",
		Columns:      []string{"origin_id", "measure", "score", "updated_at"},
		ConflictKeys: []string{"origin_id", "measure"},
	}, flat)
	return eris.Wrap(err, "postgres: upsert scores")
}

func (s *PostgresStore) ScoresForOrigin(ctx context.Context, originID string) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT measure, score FROM scores WHERE origin_id = $1`, originID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: scores for %s", originID)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var m string
		var v float64
		if err := rows.Scan(&m, &v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		out[m] = v
	}
	return out, eris.Wrap(rows.Err(), "postgres: scores iterate")
}

func (s *PostgresStore) CreateRun(ctx context.Context, batchSize int, measures []string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, batch_size, measures, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(RunStatusRunning), batchSize, strings.Join(measures, ","), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) UpdateRunProgress(ctx context.Context, runID string, batchesCommitted, originsScored int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET batches_committed = $1, origins_scored = $2, updated_at = $3 WHERE id = $4`,
		batchesCommitted, originsScored, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run progress %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, batch_size, measures, batches_committed, origins_scored, created_at, updated_at
		 FROM runs WHERE id = $1`, runID)

	var r Run
	var status, measures string
	err := row.Scan(&r.ID, &status, &r.BatchSize, &measures, &r.BatchesCommitted, &r.OriginsScored, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	r.Status = RunStatus(status)
	if measures != "" {
		r.Measures = strings.Split(measures, ",")
	}
	return &r, nil
}
