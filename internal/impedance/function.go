// Package impedance implements the distance-decay functions that convert a
// travel cost into a dimensionless opportunity weight in [0,1].
package impedance

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Family identifies one of the five supported decay families.
type Family string

const (
	// InversePower weights by t^(-beta), clamped to 1 below unit cost.
	InversePower Family = "inverse_power"
	// NegativeExponential weights by e^(-beta*t).
	NegativeExponential Family = "negative_exponential"
	// ModifiedGaussian weights by e^(-t^2/beta).
	ModifiedGaussian Family = "modified_gaussian"
	// CumulativeRectangular weights 1 inside the cutoff, 0 beyond it.
	CumulativeRectangular Family = "cumulative_rectangular"
	// CumulativeLinear weights 1-t/cutoff inside the cutoff, 0 beyond it.
	CumulativeLinear Family = "cumulative_linear"
)

// Families lists all supported decay families.
var Families = []Family{
	InversePower,
	NegativeExponential,
	ModifiedGaussian,
	CumulativeRectangular,
	CumulativeLinear,
}

// ParseFamily converts a config string into a Family.
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	switch f {
	case InversePower, NegativeExponential, ModifiedGaussian,
		CumulativeRectangular, CumulativeLinear:
		return f, nil
	}
	return "", eris.Errorf("impedance: unknown family %q", s)
}

// Continuous reports whether the family's parameter is a decay rate (beta)
// rather than a travel-cost cutoff.
func (f Family) Continuous() bool {
	return f == InversePower || f == NegativeExponential || f == ModifiedGaussian
}

// ParamName returns the conventional name of the family's parameter.
func (f Family) ParamName() string {
	if f.Continuous() {
		return "beta"
	}
	return "cutoff"
}

// InvalidParameterError reports a non-positive decay parameter or cutoff.
type InvalidParameterError struct {
	Family Family
	Param  string
	Value  float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("impedance: %s: %s must be > 0 (got %g)", e.Family, e.Param, e.Value)
}

// Function is an immutable, validated decay function. The zero value is not
// usable; construct via New.
type Function struct {
	family Family
	param  float64
}

// New builds a Function for the given family. The single parameter is beta
// for the continuous families and the travel-cost cutoff for the cumulative
// ones. Non-positive parameters are rejected.
func New(family Family, param float64) (Function, error) {
	if _, err := ParseFamily(string(family)); err != nil {
		return Function{}, err
	}
	if param <= 0 {
		return Function{}, &InvalidParameterError{Family: family, Param: family.ParamName(), Value: param}
	}
	return Function{family: family, param: param}, nil
}

// Family returns the decay family.
func (fn Function) Family() Family { return fn.family }

// Param returns beta for continuous families and the cutoff for cumulative ones.
func (fn Function) Param() float64 { return fn.param }

// Weight evaluates the decay function at travel cost t. It is pure and total
// on t >= 0; every family returns a value in [0,1].
func (fn Function) Weight(t float64) float64 {
	switch fn.family {
	case InversePower:
		// Clamp below unit cost: t^(-beta) blows up as t -> 0.
		if t < 1 {
			return 1
		}
		return math.Pow(t, -fn.param)
	case NegativeExponential:
		return math.Exp(-fn.param * t)
	case ModifiedGaussian:
		return math.Exp(-(t * t) / fn.param)
	case CumulativeRectangular:
		// Inclusive at the boundary.
		if t <= fn.param {
			return 1
		}
		return 0
	case CumulativeLinear:
		if t <= fn.param {
			return 1 - t/fn.param
		}
		return 0
	}
	return 0
}
