package geostat

import (
	"math"
)

func exp(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Exp(x)
}

func pow2(x float64) float64 {
	return x * x
}

func pow3(x float64) float64 {
	return x * x * x
}

func dist(x0, y0, x1, y1 float64) float64 {
	return math.Sqrt(pow2(x1-x0) + pow2(y1-y0))
}
