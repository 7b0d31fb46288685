package geostat

// ModelType names a parametric variogram model family.
type ModelType string

const (
	Gaussian    ModelType = "gaussian"
	Exponential ModelType = "exponential"
	Spherical   ModelType = "spherical"
)

// Estimator names an empirical semivariance estimator.
type Estimator string

const (
	Matheron         Estimator = "matheron"
	PairwiseRelative Estimator = "pairwise-relative"
	Cressie          Estimator = "cressie"
)
