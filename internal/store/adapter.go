package store

import (
	"context"
	"sync"

	"github.com/sells-group/access-cli/internal/access"
)

// Source adapts a Store's precomputed cost relation to access.CostSource.
type Source struct {
	store Store
}

// NewSource wraps st as a cost source.
func NewSource(st Store) *Source {
	return &Source{store: st}
}

// Edges implements access.CostSource. Missing origins come back with no
// edges, not as failures: a stored relation has no per-origin error mode.
func (s *Source) Edges(ctx context.Context, originIDs []string) (*access.BatchEdges, error) {
	edges, err := s.store.CostEdges(ctx, originIDs)
	if err != nil {
		return nil, err
	}
	out := &access.BatchEdges{Edges: make(map[string][]access.CostEdge, len(originIDs))}
	for _, e := range edges {
		out.Edges[e.OriginID] = append(out.Edges[e.OriginID], e)
	}
	return out, nil
}

// Sink adapts a Store to access.Sink and keeps the run checkpoint current:
// after each committed batch it advances batches_committed so an interrupted
// run can resume from the first uncommitted batch.
type Sink struct {
	mu      sync.Mutex
	store   Store
	runID   string
	batches int
	origins int
}

// NewSink wraps st as a score sink. runID may be empty to skip checkpoints.
func NewSink(st Store, runID string) *Sink {
	return &Sink{store: st, runID: runID}
}

// WriteScores implements access.Sink.
func (s *Sink) WriteScores(ctx context.Context, rows []access.ScoreRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpsertScores(ctx, rows); err != nil {
		return err
	}
	s.batches++
	s.origins += len(rows)

	if s.runID == "" {
		return nil
	}
	return s.store.UpdateRunProgress(ctx, s.runID, s.batches, s.origins)
}
