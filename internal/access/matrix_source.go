package access

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/access-cli/internal/resilience"
	"github.com/sells-group/access-cli/pkg/matrix"
)

// MatrixSource serves the cost relation live from a travel-time matrix
// service. Each origin becomes one request against the full destination set;
// origins whose request exhausts its retries are reported in Failed so the
// rest of the batch still scores.
type MatrixSource struct {
	Client matrix.Client

	// Locations maps origin and destination ids to coordinates.
	Locations map[string]matrix.Point

	// DestinationIDs fixes the destination set and its request order.
	DestinationIDs []string

	// Retry governs per-origin matrix requests. Zero value = defaults.
	Retry resilience.RetryConfig
}

// NewMatrixSource builds a source over client for the given destination set.
func NewMatrixSource(client matrix.Client, locations map[string]matrix.Point, destinationIDs []string) *MatrixSource {
	return &MatrixSource{
		Client:         client,
		Locations:      locations,
		DestinationIDs: destinationIDs,
	}
}

// Edges implements CostSource. The batch-level error is reserved for
// cancellation; all service failures degrade to per-origin entries.
func (s *MatrixSource) Edges(ctx context.Context, originIDs []string) (*BatchEdges, error) {
	destinations := make([]matrix.Point, 0, len(s.DestinationIDs))
	for _, id := range s.DestinationIDs {
		pt, ok := s.Locations[id]
		if !ok {
			return nil, eris.Errorf("access: destination %q has no location", id)
		}
		destinations = append(destinations, pt)
	}

	log := zap.L().With(zap.String("component", "access.matrix"))
	retry := s.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("access.matrix", "matrix request")
	}
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = retryableMatrixError
	}

	out := &BatchEdges{
		Edges:  make(map[string][]CostEdge, len(originIDs)),
		Failed: make(map[string]error),
	}

	for _, originID := range originIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		origin, ok := s.Locations[originID]
		if !ok {
			out.Failed[originID] = &CostUnavailableError{
				OriginID: originID,
				Err:      eris.New("no location on record"),
			}
			continue
		}

		durations, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]*float64, error) {
			return s.Client.Durations(ctx, origin, destinations)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Warn("matrix lookup failed", zap.String("origin", originID), zap.Error(err))
			out.Failed[originID] = &CostUnavailableError{OriginID: originID, Err: err}
			continue
		}

		edges := make([]CostEdge, 0, len(durations))
		for i, cost := range durations {
			if cost == nil {
				continue // no path: destination is unreachable from this origin
			}
			edges = append(edges, CostEdge{
				OriginID:      originID,
				DestinationID: s.DestinationIDs[i],
				Cost:          *cost,
			})
		}
		out.Edges[originID] = edges
	}
	return out, nil
}

// retryableMatrixError retries transport faults and overload statuses; a 4xx
// from the service is a permanent request problem.
func retryableMatrixError(err error) bool {
	var se *matrix.StatusError
	if errors.As(err, &se) {
		return resilience.IsTransientHTTPStatus(se.StatusCode)
	}
	return resilience.IsTransient(err)
}
