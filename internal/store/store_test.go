package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/access-cli/internal/impedance"
	"github.com/sells-group/access-cli/internal/measure"
)

// testAccessRegistry builds a small measure set shared by store tests.
func testAccessRegistry(t *testing.T) *measure.Registry {
	t.Helper()
	r := measure.NewRegistry()
	require.NoError(t, r.Register("CUMR_10", impedance.CumulativeRectangular, 10, 0))
	require.NoError(t, r.Register("EXP_0_15", impedance.NegativeExponential, 0.15, 0))
	return r
}
