package geostat

import (
	"math"

	vec3d "github.com/flywave/go3d/float64/vec3"
)

// IDW interpolates with inverse-distance weighting over all
// observations. Predictions are convex combinations of the observed
// values, so they stay inside the observed min/max.
type IDW struct {
	pos   []vec3d.T
	power float64
}

func NewIDW(ps *PointSet, power float64) *IDW {
	if power <= 0 {
		power = 2
	}
	return &IDW{pos: ps.pos, power: power}
}

// Predict returns the weighted mean at (x, y), or the observed value
// itself at a coincident location.
func (w *IDW) Predict(x, y float64) float64 {
	var num, den float64
	for i := range w.pos {
		h := dist(x, y, w.pos[i][0], w.pos[i][1])
		if h == 0 {
			return w.pos[i][2]
		}
		wt := 1 / math.Pow(h, w.power)
		num += wt * w.pos[i][2]
		den += wt
	}
	return num / den
}

// InterpolateGrid fills a clone of the lattice with predictions. IDW
// carries no variance.
func (w *IDW) InterpolateGrid(g *Grid) *Surface {
	out := g.Clone()
	for i := range out.Coordinates {
		c := &out.Coordinates[i]
		c[2] = w.Predict(c[0], c[1])
	}
	return &Surface{Grid: out}
}
