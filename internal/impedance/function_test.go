package impedance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFamily(t *testing.T) {
	for _, f := range Families {
		got, err := ParseFamily(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseFamily("bisquare")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown family")
}

func TestNew_RejectsNonPositiveParams(t *testing.T) {
	tests := []struct {
		name   string
		family Family
		param  float64
	}{
		{"zero beta", NegativeExponential, 0},
		{"negative beta", InversePower, -0.5},
		{"zero gaussian beta", ModifiedGaussian, 0},
		{"zero cutoff", CumulativeRectangular, 0},
		{"negative cutoff", CumulativeLinear, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.family, tt.param)
			require.Error(t, err)
			var ipe *InvalidParameterError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, tt.family, ipe.Family)
			assert.Equal(t, tt.param, ipe.Value)
		})
	}
}

func TestNew_RejectsUnknownFamily(t *testing.T) {
	_, err := New(Family("logistic"), 1)
	require.Error(t, err)
}

func TestInversePower_ClampsBelowUnitCost(t *testing.T) {
	for _, beta := range []float64{0.5, 1, 2, 10} {
		fn, err := New(InversePower, beta)
		require.NoError(t, err)
		for _, tc := range []float64{0, 0.01, 0.5, 0.999} {
			assert.Equal(t, 1.0, fn.Weight(tc), "beta=%g t=%g", beta, tc)
		}
		assert.Equal(t, 1.0, fn.Weight(1))
		assert.InDelta(t, math.Pow(2, -beta), fn.Weight(2), 1e-12)
	}
}

func TestCumulativeRectangular_InclusiveBoundary(t *testing.T) {
	fn, err := New(CumulativeRectangular, 10)
	require.NoError(t, err)

	assert.Equal(t, 1.0, fn.Weight(0))
	assert.Equal(t, 1.0, fn.Weight(10))
	assert.Equal(t, 0.0, fn.Weight(10.0001))
	assert.Equal(t, 0.0, fn.Weight(11))
}

func TestCumulativeLinear_ExactInterpolation(t *testing.T) {
	fn, err := New(CumulativeLinear, 20)
	require.NoError(t, err)

	assert.Equal(t, 1.0, fn.Weight(0))
	assert.Equal(t, 0.0, fn.Weight(20))
	assert.InDelta(t, 0.75, fn.Weight(5), 1e-12)
	assert.InDelta(t, 0.5, fn.Weight(10), 1e-12)
	assert.InDelta(t, 0.25, fn.Weight(15), 1e-12)
	assert.Equal(t, 0.0, fn.Weight(25))
}

func TestWeight_NonIncreasing(t *testing.T) {
	fns := []struct {
		name   string
		family Family
		param  float64
	}{
		{"inverse power", InversePower, 1.5},
		{"negative exponential", NegativeExponential, 0.15},
		{"modified gaussian", ModifiedGaussian, 180},
		{"cumulative rectangular", CumulativeRectangular, 30},
		{"cumulative linear", CumulativeLinear, 30},
	}

	for _, tt := range fns {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := New(tt.family, tt.param)
			require.NoError(t, err)

			prev := fn.Weight(0)
			assert.LessOrEqual(t, prev, 1.0)
			for tc := 0.25; tc <= 90; tc += 0.25 {
				w := fn.Weight(tc)
				assert.GreaterOrEqual(t, w, 0.0, "t=%g", tc)
				assert.LessOrEqual(t, w, prev+1e-12, "t=%g", tc)
				prev = w
			}
		})
	}
}

func TestWeight_StrictlyDecreasingAboveClamp(t *testing.T) {
	inv, err := New(InversePower, 1.0)
	require.NoError(t, err)
	exp, err := New(NegativeExponential, 0.15)
	require.NoError(t, err)
	gaus, err := New(ModifiedGaussian, 100)
	require.NoError(t, err)

	for tc := 1.0; tc < 60; tc += 1.0 {
		assert.Greater(t, inv.Weight(tc), inv.Weight(tc+1))
		assert.Greater(t, exp.Weight(tc), exp.Weight(tc+1))
		assert.Greater(t, gaus.Weight(tc), gaus.Weight(tc+1))
	}
}

// The continuous families are calibrated so that weight decays to roughly 0.1
// at the average trip length: beta=0.15 reaches it at t=15 for the negative
// exponential, beta=180 at t=20 for the modified Gaussian.
func TestCalibrationTargets(t *testing.T) {
	exp, err := New(NegativeExponential, 0.15)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, exp.Weight(15), 0.02)

	gaus, err := New(ModifiedGaussian, 180)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, gaus.Weight(20), 0.02)

	// A beta hitting 0.1 at t=10 exists for each family too.
	exp10, err := New(NegativeExponential, math.Log(10)/10)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, exp10.Weight(10), 0.001)

	gaus10, err := New(ModifiedGaussian, 100/math.Log(10))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, gaus10.Weight(10), 0.001)
}

func TestWeight_WithinUnitInterval(t *testing.T) {
	for _, p := range Presets() {
		fn, err := New(p.Family, p.Param)
		require.NoError(t, err)
		for tc := 0.0; tc <= 120; tc += 0.5 {
			w := fn.Weight(tc)
			assert.GreaterOrEqual(t, w, 0.0, "%s t=%g", p.Name, tc)
			assert.LessOrEqual(t, w, 1.0, "%s t=%g", p.Name, tc)
		}
	}
}
