// Package measure binds named, immutable configurations of decay functions
// for accessibility computation. A registry is built once per run and is
// read-only afterwards.
package measure

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/access-cli/internal/impedance"
)

// Measure pairs a decay function with an optional hard travel-cost cutoff.
// A cutoff of 0 means none; when set, origin-destination pairs costlier than
// the cutoff are excluded entirely, independent of the function's own decay.
type Measure struct {
	Name     string
	Function impedance.Function
	Cutoff   float64
}

// New validates and builds a Measure.
func New(name string, fn impedance.Function, cutoff float64) (Measure, error) {
	if name == "" {
		return Measure{}, eris.New("measure: name must not be empty")
	}
	if cutoff < 0 {
		return Measure{}, eris.Errorf("measure: %s: cutoff must be >= 0 (got %g)", name, cutoff)
	}
	return Measure{Name: name, Function: fn, Cutoff: cutoff}, nil
}

// Excludes reports whether the measure-level cutoff removes an edge with
// travel cost t from the sum.
func (m Measure) Excludes(t float64) bool {
	return m.Cutoff > 0 && t > m.Cutoff
}

// DuplicateNameError reports a second registration under an existing name.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("measure: duplicate name %q", e.Name)
}

// UnknownMeasureError reports a lookup of a name that was never registered.
type UnknownMeasureError struct {
	Name string
}

func (e *UnknownMeasureError) Error() string {
	return fmt.Sprintf("measure: unknown measure %q", e.Name)
}
