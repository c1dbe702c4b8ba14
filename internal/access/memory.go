package access

import (
	"context"
	"sync"
)

// MemorySource serves a cost relation held in memory, for small runs and
// tests where the matrix fits comfortably in RAM.
type MemorySource struct {
	byOrigin map[string][]CostEdge
}

// NewMemorySource indexes edges by origin.
func NewMemorySource(edges []CostEdge) *MemorySource {
	byOrigin := make(map[string][]CostEdge)
	for _, e := range edges {
		byOrigin[e.OriginID] = append(byOrigin[e.OriginID], e)
	}
	return &MemorySource{byOrigin: byOrigin}
}

// Edges implements CostSource.
func (s *MemorySource) Edges(_ context.Context, originIDs []string) (*BatchEdges, error) {
	out := &BatchEdges{Edges: make(map[string][]CostEdge, len(originIDs))}
	for _, id := range originIDs {
		if edges, ok := s.byOrigin[id]; ok {
			out.Edges[id] = edges
		}
	}
	return out, nil
}

// MemorySink accumulates score rows keyed by origin. Writes are idempotent
// upserts, so re-committing a batch is safe. Safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	rows   map[string]map[string]float64
	writes int
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{rows: make(map[string]map[string]float64)}
}

// WriteScores implements Sink.
func (s *MemorySink) WriteScores(_ context.Context, rows []ScoreRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		scores := make(map[string]float64, len(row.Scores))
		for k, v := range row.Scores {
			scores[k] = v
		}
		s.rows[row.OriginID] = scores
	}
	s.writes++
	return nil
}

// Scores returns a copy of everything written so far, keyed by origin.
func (s *MemorySink) Scores() map[string]map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]float64, len(s.rows))
	for origin, scores := range s.rows {
		c := make(map[string]float64, len(scores))
		for k, v := range scores {
			c[k] = v
		}
		out[origin] = c
	}
	return out
}

// Writes returns the number of batch commits received.
func (s *MemorySink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
