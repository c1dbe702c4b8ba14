package access

import "fmt"

// IncompleteDataError reports an origin whose cost relation references a
// destination missing from the opportunity table. It fails that origin's
// computation only; the rest of the batch proceeds.
type IncompleteDataError struct {
	OriginID      string
	DestinationID string
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("access: origin %s: destination %s has no opportunity value", e.OriginID, e.DestinationID)
}

// CostUnavailableError reports a cost lookup that failed after retries for a
// specific origin. A source that can distinguish "no path" must simply omit
// the edge instead; this error is reserved for transient faults that
// exhausted their retry budget.
type CostUnavailableError struct {
	OriginID string
	Err      error
}

func (e *CostUnavailableError) Error() string {
	return fmt.Sprintf("access: origin %s: cost lookup failed: %v", e.OriginID, e.Err)
}

func (e *CostUnavailableError) Unwrap() error { return e.Err }
