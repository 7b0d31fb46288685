package geostat

import (
	"fmt"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/optimize"
)

// variogramBins is the number of equal-width lag bins up to the cutoff.
const variogramBins = 15

// VariogramBin is one lag class of an empirical variogram.
type VariogramBin struct {
	Dist  float64
	Gamma float64
	Pairs int
}

// Variogram is a binned empirical semivariogram under one estimator.
type Variogram struct {
	Estimator Estimator
	Cutoff    float64
	Bins      []VariogramBin
}

func distinctLocations(pos []vec3d.T) int {
	seen := make(map[[2]float64]struct{}, len(pos))
	for _, p := range pos {
		seen[[2]float64{p[0], p[1]}] = struct{}{}
	}
	return len(seen)
}

// Empirical bins the pairwise semivariances of the observations. The
// cutoff is a third of the bounding-box diagonal, split into
// variogramBins equal lag classes; each bin reports the mean pair
// distance. Estimators: Matheron ½·mean(Δz²), PairwiseRelative
// ½·mean((Δz/mean(z))²), Cressie ½·mean(√|Δz|)⁴ / (0.457+0.494/N).
func Empirical(ps *PointSet, est Estimator) (*Variogram, error) {
	pos := ps.pos
	if n := distinctLocations(pos); n < 3 {
		return nil, fmt.Errorf("empirical variogram: %w: %d distinct locations, need at least 3",
			ErrVariogramFit, n)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pos {
		minX = math.Min(minX, p[0])
		minY = math.Min(minY, p[1])
		maxX = math.Max(maxX, p[0])
		maxY = math.Max(maxY, p[1])
	}
	cutoff := dist(minX, minY, maxX, maxY) / 3
	width := cutoff / variogramBins

	type acc struct {
		dist float64
		sum  float64
		n    int
	}
	bins := make([]acc, variogramBins)
	for i := 0; i < len(pos); i++ {
		for j := 0; j < i; j++ {
			h := dist(pos[i][0], pos[i][1], pos[j][0], pos[j][1])
			if h == 0 || h > cutoff {
				continue
			}
			k := int(h / width)
			if k == variogramBins {
				k--
			}
			dz := pos[i][2] - pos[j][2]
			var v float64
			switch est {
			case PairwiseRelative:
				m := (pos[i][2] + pos[j][2]) / 2
				if m == 0 {
					continue
				}
				v = pow2(dz / m)
			case Cressie:
				v = math.Sqrt(math.Abs(dz))
			default:
				v = pow2(dz)
			}
			bins[k].dist += h
			bins[k].sum += v
			bins[k].n++
		}
	}

	out := &Variogram{Estimator: est, Cutoff: cutoff}
	for _, b := range bins {
		if b.n == 0 {
			continue
		}
		n := float64(b.n)
		var gamma float64
		switch est {
		case Cressie:
			m := b.sum / n
			gamma = 0.5 * pow2(pow2(m)) / (0.457 + 0.494/n)
		default:
			gamma = b.sum / (2 * n)
		}
		out.Bins = append(out.Bins, VariogramBin{Dist: b.dist / n, Gamma: gamma, Pairs: b.n})
	}
	if len(out.Bins) < 2 {
		return nil, fmt.Errorf("empirical variogram: %w: %d non-empty lag bins, need at least 2",
			ErrVariogramFit, len(out.Bins))
	}
	return out, nil
}

// VariogramModel is a fitted parametric model: nugget plus partial sill
// reached at the range.
type VariogramModel struct {
	Model  ModelType
	Nugget float64
	Psill  float64
	Range  float64
}

// Sill is the total sill, nugget included.
func (m VariogramModel) Sill() float64 { return m.Nugget + m.Psill }

// Gamma evaluates the model at lag h. Gamma(0) is zero, so kriging
// reproduces observed values exactly at observation locations.
func (m VariogramModel) Gamma(h float64) float64 {
	if h <= 0 {
		return 0
	}
	if m.Range <= 0 {
		return m.Nugget + m.Psill
	}
	x := h / m.Range
	switch m.Model {
	case Gaussian:
		return m.Nugget + m.Psill*(1-exp(-pow2(x)))
	case Exponential:
		return m.Nugget + m.Psill*(1-exp(-x))
	default:
		if x >= 1 {
			return m.Nugget + m.Psill
		}
		return m.Nugget + m.Psill*(1.5*x-0.5*pow3(x))
	}
}

func (m VariogramModel) usable() bool {
	for _, v := range []float64{m.Nugget, m.Psill, m.Range} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return m.Psill > 0 && m.Range > 0
}

// FitModel fits init's model family to the empirical variogram by
// weighted nonlinear least squares, weighting each lag bin by
// pairs/distance².
func FitModel(emp *Variogram, init VariogramModel) (VariogramModel, error) {
	flat := true
	for _, b := range emp.Bins {
		if b.Gamma > 0 {
			flat = false
			break
		}
	}
	if flat {
		return VariogramModel{}, fmt.Errorf("fit %s model to %s variogram: %w: empirical variogram is zero at every lag",
			init.Model, emp.Estimator, ErrVariogramFit)
	}

	obj := func(x []float64) float64 {
		m := VariogramModel{
			Model:  init.Model,
			Nugget: math.Abs(x[0]),
			Psill:  math.Abs(x[1]),
			Range:  math.Abs(x[2]),
		}
		if m.Range == 0 {
			return math.Inf(1)
		}
		var sse float64
		for _, b := range emp.Bins {
			w := float64(b.Pairs) / pow2(b.Dist)
			sse += w * pow2(m.Gamma(b.Dist)-b.Gamma)
		}
		return sse
	}

	x0 := []float64{init.Nugget, init.Psill, init.Range}
	res, err := optimize.Minimize(optimize.Problem{Func: obj}, x0, nil, &optimize.NelderMead{})
	if err != nil {
		return VariogramModel{}, fmt.Errorf("fit %s model to %s variogram: %w: %v",
			init.Model, emp.Estimator, ErrVariogramFit, err)
	}
	fitted := VariogramModel{
		Model:  init.Model,
		Nugget: math.Abs(res.X[0]),
		Psill:  math.Abs(res.X[1]),
		Range:  math.Abs(res.X[2]),
	}
	if !fitted.usable() {
		return VariogramModel{}, fmt.Errorf("fit %s model to %s variogram: %w: no usable sill (psill=%g range=%g)",
			init.Model, emp.Estimator, ErrVariogramFit, fitted.Psill, fitted.Range)
	}
	return fitted, nil
}

// SelectModel fits candidate estimators in preference order (Cressie
// robust first, then Matheron) and returns the first usable fit; when
// every candidate fails the run cannot continue. A constant-valued
// target has no spatial structure to estimate, and any positive sill
// reproduces it exactly through the kriging unbiasedness constraint, so
// a unit-sill model is returned directly with an empty estimator.
func SelectModel(ps *PointSet, init VariogramModel) (VariogramModel, Estimator, error) {
	if n := distinctLocations(ps.pos); n < 3 {
		return VariogramModel{}, "", fmt.Errorf("select variogram model: %w: %d distinct locations, need at least 3",
			ErrVariogramFit, n)
	}
	if ps.Variance() == 0 {
		return VariogramModel{Model: init.Model, Psill: 1, Range: init.Range}, "", nil
	}
	for _, est := range []Estimator{Cressie, Matheron} {
		emp, err := Empirical(ps, est)
		if err != nil {
			continue
		}
		fitted, err := FitModel(emp, init)
		if err != nil {
			continue
		}
		return fitted, est, nil
	}
	return VariogramModel{}, "", fmt.Errorf("select variogram model: %w: no candidate estimator produced a usable fit",
		ErrVariogramFit)
}
