package impedance

// Preset is a named parameterization of a decay family.
type Preset struct {
	Name   string
	Family Family
	Param  float64
}

// Presets returns the 28 standard parameterizations used for cross-measure
// comparison runs. Continuous betas span slow to steep decay; cumulative
// cutoffs span 10 to 60 minutes. The list is regenerated on each call so
// callers may not mutate shared state.
func Presets() []Preset {
	return []Preset{
		{Name: "INVP_0_5", Family: InversePower, Param: 0.5},
		{Name: "INVP_1_0", Family: InversePower, Param: 1.0},
		{Name: "INVP_1_5", Family: InversePower, Param: 1.5},
		{Name: "INVP_2_0", Family: InversePower, Param: 2.0},

		{Name: "EXP_0_08", Family: NegativeExponential, Param: 0.08},
		{Name: "EXP_0_12", Family: NegativeExponential, Param: 0.12},
		{Name: "EXP_0_15", Family: NegativeExponential, Param: 0.15},
		{Name: "EXP_0_23", Family: NegativeExponential, Param: 0.23},
		{Name: "EXP_0_30", Family: NegativeExponential, Param: 0.30},
		{Name: "EXP_0_45", Family: NegativeExponential, Param: 0.45},

		{Name: "MGAUS_10", Family: ModifiedGaussian, Param: 10},
		{Name: "MGAUS_40", Family: ModifiedGaussian, Param: 40},
		{Name: "MGAUS_100", Family: ModifiedGaussian, Param: 100},
		{Name: "MGAUS_180", Family: ModifiedGaussian, Param: 180},
		{Name: "MGAUS_360", Family: ModifiedGaussian, Param: 360},

		{Name: "CUMR_10", Family: CumulativeRectangular, Param: 10},
		{Name: "CUMR_15", Family: CumulativeRectangular, Param: 15},
		{Name: "CUMR_20", Family: CumulativeRectangular, Param: 20},
		{Name: "CUMR_30", Family: CumulativeRectangular, Param: 30},
		{Name: "CUMR_40", Family: CumulativeRectangular, Param: 40},
		{Name: "CUMR_45", Family: CumulativeRectangular, Param: 45},
		{Name: "CUMR_60", Family: CumulativeRectangular, Param: 60},

		{Name: "CUML_10", Family: CumulativeLinear, Param: 10},
		{Name: "CUML_20", Family: CumulativeLinear, Param: 20},
		{Name: "CUML_30", Family: CumulativeLinear, Param: 30},
		{Name: "CUML_40", Family: CumulativeLinear, Param: 40},
		{Name: "CUML_45", Family: CumulativeLinear, Param: 45},
		{Name: "CUML_60", Family: CumulativeLinear, Param: 60},
	}
}
