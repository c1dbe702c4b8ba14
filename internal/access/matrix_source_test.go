package access

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/access-cli/internal/resilience"
	"github.com/sells-group/access-cli/pkg/matrix"
)

// fakeMatrix answers per-origin with canned durations or errors, keyed by
// the origin's longitude so tests can address origins by coordinate.
type fakeMatrix struct {
	mu       sync.Mutex
	rows     map[float64][]*float64
	errs     map[float64]error
	failOnce map[float64]int
	calls    int
}

func (f *fakeMatrix) Durations(_ context.Context, origin matrix.Point, destinations []matrix.Point) ([]*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if n := f.failOnce[origin.Lng]; n > 0 {
		f.failOnce[origin.Lng] = n - 1
		return nil, resilience.NewTransientError(errors.New("matrix timeout"), 503)
	}
	if err, ok := f.errs[origin.Lng]; ok {
		return nil, err
	}
	row, ok := f.rows[origin.Lng]
	if !ok {
		return nil, errors.New("unexpected origin")
	}
	if len(row) != len(destinations) {
		return nil, errors.New("destination count mismatch")
	}
	return row, nil
}

func ptr(v float64) *float64 { return &v }

func matrixLocations() map[string]matrix.Point {
	return map[string]matrix.Point{
		"O1": {Lng: 1, Lat: 0},
		"O2": {Lng: 2, Lat: 0},
		"D1": {Lng: 10, Lat: 0},
		"D2": {Lng: 11, Lat: 0},
	}
}

func TestMatrixSource_EdgesFromDurations(t *testing.T) {
	fm := &fakeMatrix{rows: map[float64][]*float64{
		1: {ptr(5), ptr(15)},
		2: {ptr(3), nil}, // D2 unreachable from O2
	}}

	src := NewMatrixSource(fm, matrixLocations(), []string{"D1", "D2"})
	src.Retry = noBackoff(1)

	out, err := src.Edges(context.Background(), []string{"O1", "O2"})
	require.NoError(t, err)
	assert.Empty(t, out.Failed)

	require.Len(t, out.Edges["O1"], 2)
	assert.Equal(t, CostEdge{OriginID: "O1", DestinationID: "D1", Cost: 5}, out.Edges["O1"][0])
	assert.Equal(t, CostEdge{OriginID: "O1", DestinationID: "D2", Cost: 15}, out.Edges["O1"][1])

	require.Len(t, out.Edges["O2"], 1)
	assert.Equal(t, "D1", out.Edges["O2"][0].DestinationID)
}

func TestMatrixSource_RetriesTransientThenSucceeds(t *testing.T) {
	fm := &fakeMatrix{
		rows:     map[float64][]*float64{1: {ptr(5), ptr(15)}},
		failOnce: map[float64]int{1: 2},
	}

	src := NewMatrixSource(fm, matrixLocations(), []string{"D1", "D2"})
	src.Retry = noBackoff(3)

	out, err := src.Edges(context.Background(), []string{"O1"})
	require.NoError(t, err)
	assert.Empty(t, out.Failed)
	assert.Len(t, out.Edges["O1"], 2)
	assert.Equal(t, 3, fm.calls)
}

func TestMatrixSource_ExhaustedRetriesFailTheOriginOnly(t *testing.T) {
	fm := &fakeMatrix{
		rows:     map[float64][]*float64{1: {ptr(5), ptr(15)}, 2: {ptr(3), ptr(9)}},
		failOnce: map[float64]int{2: 1 << 30},
	}

	src := NewMatrixSource(fm, matrixLocations(), []string{"D1", "D2"})
	src.Retry = noBackoff(2)

	out, err := src.Edges(context.Background(), []string{"O1", "O2"})
	require.NoError(t, err)
	assert.Len(t, out.Edges["O1"], 2)

	var cue *CostUnavailableError
	require.ErrorAs(t, out.Failed["O2"], &cue)
	assert.Equal(t, "O2", cue.OriginID)
}

func TestMatrixSource_ClientErrorIsNotRetried(t *testing.T) {
	fm := &fakeMatrix{errs: map[float64]error{
		1: &matrix.StatusError{StatusCode: 400, Body: "bad coordinates"},
	}}

	src := NewMatrixSource(fm, matrixLocations(), []string{"D1", "D2"})
	src.Retry = noBackoff(5)

	out, err := src.Edges(context.Background(), []string{"O1"})
	require.NoError(t, err)
	assert.Equal(t, 1, fm.calls)

	var cue *CostUnavailableError
	require.ErrorAs(t, out.Failed["O1"], &cue)
}

func TestMatrixSource_MissingOriginLocation(t *testing.T) {
	fm := &fakeMatrix{rows: map[float64][]*float64{}}
	src := NewMatrixSource(fm, matrixLocations(), []string{"D1"})
	src.Retry = noBackoff(1)

	out, err := src.Edges(context.Background(), []string{"GHOST"})
	require.NoError(t, err)
	assert.Equal(t, 0, fm.calls)

	var cue *CostUnavailableError
	require.ErrorAs(t, out.Failed["GHOST"], &cue)
	assert.Equal(t, "GHOST", cue.OriginID)
}

func TestMatrixSource_MissingDestinationLocationIsFatal(t *testing.T) {
	fm := &fakeMatrix{}
	src := NewMatrixSource(fm, matrixLocations(), []string{"D1", "NOWHERE"})

	_, err := src.Edges(context.Background(), []string{"O1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOWHERE")
}
