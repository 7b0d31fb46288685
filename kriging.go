package geostat

import (
	"fmt"
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
	"gonum.org/v1/gonum/mat"
)

// Kriging interpolates with ordinary kriging under a fitted variogram
// model. The bordered system (pairwise semivariances plus the
// unbiasedness row) is factorized once; every prediction solves
// against the same factorization.
type Kriging struct {
	pos   []vec3d.T
	model VariogramModel
	n     int
	lu    mat.LU
}

func NewKriging(ps *PointSet, model VariogramModel) (*Kriging, error) {
	n := ps.Len()
	if n < 1 {
		return nil, fmt.Errorf("kriging: %w: no observations", ErrVariogramFit)
	}
	if !model.usable() {
		return nil, fmt.Errorf("kriging: %w: model %+v has no usable sill", ErrVariogramFit, model)
	}
	pos := ps.pos
	a := mat.NewDense(n+1, n+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			g := model.Gamma(dist(pos[i][0], pos[i][1], pos[j][0], pos[j][1]))
			a.Set(i, j, g)
			a.Set(j, i, g)
		}
		a.Set(i, n, 1)
		a.Set(n, i, 1)
	}

	k := &Kriging{pos: pos, model: model, n: n}
	k.lu.Factorize(a)
	return k, nil
}

// Predict returns the estimate and the kriging variance at (x, y). The
// weights solve the bordered system, so they sum to one and reproduce
// observed values exactly at observation locations.
func (k *Kriging) Predict(x, y float64) (float64, float64, error) {
	rhs := mat.NewVecDense(k.n+1, nil)
	for i := 0; i < k.n; i++ {
		rhs.SetVec(i, k.model.Gamma(dist(x, y, k.pos[i][0], k.pos[i][1])))
	}
	rhs.SetVec(k.n, 1)

	var w mat.VecDense
	if err := k.lu.SolveVecTo(&w, false, rhs); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return 0, 0, fmt.Errorf("kriging solve at (%g, %g): %v", x, y, err)
		}
	}

	var pred, variance float64
	for i := 0; i < k.n; i++ {
		pred += w.AtVec(i) * k.pos[i][2]
		variance += w.AtVec(i) * rhs.AtVec(i)
	}
	variance += w.AtVec(k.n)
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		return 0, 0, fmt.Errorf("kriging solve at (%g, %g): singular system", x, y)
	}
	if variance < 0 {
		variance = 0
	}
	return pred, variance, nil
}

// InterpolateGrid fills a clone of the lattice with predictions and
// per-cell variances.
func (k *Kriging) InterpolateGrid(g *Grid) (*Surface, error) {
	out := g.Clone()
	variance := make([]float64, len(out.Coordinates))
	for i := range out.Coordinates {
		c := &out.Coordinates[i]
		v, s2, err := k.Predict(c[0], c[1])
		if err != nil {
			return nil, err
		}
		c[2] = v
		variance[i] = s2
	}
	return &Surface{Grid: out, Variance: variance}, nil
}
