// Package access computes place-based accessibility scores: for each origin,
// the sum over destinations of opportunity magnitude weighted by a decay
// function of travel cost. Computation is batched over origins so the full
// origin-destination cost relation never has to be resident at once.
package access

import (
	"context"

	"github.com/rotisserie/eris"
)

// CostEdge is one origin-destination travel cost. Edges are delivered batch
// by batch; destinations with no edge are unreachable and contribute nothing.
type CostEdge struct {
	OriginID      string
	DestinationID string
	Cost          float64
}

// ScoreRow is the finished accessibility record for one origin: one score
// per configured measure.
type ScoreRow struct {
	OriginID string
	Scores   map[string]float64
}

// BatchEdges is the cost relation for one batch of origins, keyed by origin.
// Origins whose cost lookup failed after retries appear in Failed (as a
// *CostUnavailableError) instead of Edges; origins with no reachable
// destinations appear in neither.
type BatchEdges struct {
	Edges  map[string][]CostEdge
	Failed map[string]error
}

// CostSource yields cost edges for a batch of origins. Implementations
// should issue I/O once per batch, not per edge.
type CostSource interface {
	Edges(ctx context.Context, originIDs []string) (*BatchEdges, error)
}

// Sink receives finished score rows one batch at a time. Writes must be
// keyed upserts by origin id: a batch may be re-committed after a failed
// write, and batch ordering is not meaningful.
type Sink interface {
	WriteScores(ctx context.Context, rows []ScoreRow) error
}

// ValidateOpportunities rejects negative opportunity magnitudes before any
// computation runs.
func ValidateOpportunities(opportunities map[string]float64) error {
	for id, v := range opportunities {
		if v < 0 {
			return eris.Errorf("access: destination %s: opportunity must be >= 0 (got %g)", id, v)
		}
	}
	return nil
}
