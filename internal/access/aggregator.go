package access

import (
	"github.com/sells-group/access-cli/internal/measure"
)

// Compute produces the accessibility score of a single origin for every
// measure. It is a pure function of its inputs and holds no state across
// calls, which is what makes batched and unbatched runs equivalent.
//
// Travel cost is identical across measures for a given edge, so each edge is
// visited once and every measure accumulates from the same cost. Edges whose
// destination is missing from the opportunity table fail the origin with an
// IncompleteDataError.
func Compute(originID string, edges []CostEdge, opportunities map[string]float64, measures []measure.Measure) (map[string]float64, error) {
	scores := make(map[string]float64, len(measures))
	for _, m := range measures {
		scores[m.Name] = 0
	}

	for _, e := range edges {
		if e.OriginID != originID {
			continue
		}
		opp, ok := opportunities[e.DestinationID]
		if !ok {
			return nil, &IncompleteDataError{OriginID: originID, DestinationID: e.DestinationID}
		}
		for _, m := range measures {
			if m.Excludes(e.Cost) {
				continue
			}
			scores[m.Name] += opp * m.Function.Weight(e.Cost)
		}
	}

	return scores, nil
}
