// Package store persists the accessibility inputs and outputs: locations,
// opportunity tables, the precomputed cost relation, score rows, and run
// checkpoints for resumable batch computations.
package store

import (
	"context"
	"time"

	"github.com/sells-group/access-cli/internal/access"
)

// LocationKind distinguishes rows of the locations table.
type LocationKind string

const (
	KindOrigin      LocationKind = "origin"
	KindDestination LocationKind = "destination"
)

// Location is a scored place (origin) or an opportunity site (destination).
type Location struct {
	ID   string       `json:"id"`
	Kind LocationKind `json:"kind"`
	Name string       `json:"name,omitempty"`
	Lng  float64      `json:"lng"`
	Lat  float64      `json:"lat"`
}

// RunStatus tracks the lifecycle of a batch computation.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a checkpoint record for one batch computation. BatchesCommitted
// records how far an interrupted run got; resumption is by idempotent
// replay, since score upserts are keyed (origin_id, measure).
type Run struct {
	ID               string    `json:"id"`
	Status           RunStatus `json:"status"`
	BatchSize        int       `json:"batch_size"`
	Measures         []string  `json:"measures"`
	BatchesCommitted int       `json:"batches_committed"`
	OriginsScored    int       `json:"origins_scored"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Store defines the persistence interface for the accessibility engine.
type Store interface {
	// Locations
	UpsertLocations(ctx context.Context, locs []Location) error
	ListOriginIDs(ctx context.Context) ([]string, error)
	ListLocations(ctx context.Context) ([]Location, error)

	// Opportunities, keyed by destination id.
	UpsertOpportunities(ctx context.Context, values map[string]float64) error
	LoadOpportunities(ctx context.Context) (map[string]float64, error)

	// Cost relation
	InsertCostEdges(ctx context.Context, edges []access.CostEdge) error
	CostEdges(ctx context.Context, originIDs []string) ([]access.CostEdge, error)

	// Scores
	UpsertScores(ctx context.Context, rows []access.ScoreRow) error
	ScoresForOrigin(ctx context.Context, originID string) (map[string]float64, error)

	// Runs
	CreateRun(ctx context.Context, batchSize int, measures []string) (*Run, error)
	UpdateRunProgress(ctx context.Context, runID string, batchesCommitted, originsScored int) error
	FinishRun(ctx context.Context, runID string, status RunStatus) error
	GetRun(ctx context.Context, runID string) (*Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
