package geostat

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	vec2d "github.com/flywave/go3d/float64/vec2"

	"github.com/flywave/go-geo"
	"github.com/flywave/go-geom"
	"github.com/flywave/go-geom/general"
)

type ring []vec2d.T

func (r ring) contains(x, y float64) bool {
	k := len(r)
	if k < 3 {
		return false
	}
	if r[0] == r[k-1] {
		k--
	}
	in := false
	j := k - 1
	for i := 0; i < k; i++ {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			in = !in
		}
		j = i
	}
	return in
}

// Boundary is the study area: one or more polygons with an SRS and a
// cached extent. Immutable after load.
type Boundary struct {
	polys  [][]ring // per polygon: shell first, then holes
	srs    geo.Proj
	extent vec2d.Rect
}

// ReadBoundary collects every polygon and multipolygon feature of a
// GeoJSON feature collection. Geometries without a shell ring are
// skipped.
func ReadBoundary(path string, srs geo.Proj) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("boundary %s: %w", path, ErrMissingInput)
	}
	if err != nil {
		return nil, fmt.Errorf("boundary %s: %v", path, err)
	}
	fc, err := general.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("boundary %s: %w: %v", path, ErrMissingInput, err)
	}
	b := &Boundary{srs: srs}
	for _, fea := range fc.Features {
		switch g := fea.Geometry.(type) {
		case *general.Polygon:
			if rings := polygonRings(g); len(rings) > 0 && len(rings[0]) > 0 {
				b.polys = append(b.polys, rings)
			}
		case *general.MultiPolygon:
			for _, poly := range g.Polygons() {
				if rings := polygonRings(poly); len(rings) > 0 && len(rings[0]) > 0 {
					b.polys = append(b.polys, rings)
				}
			}
		}
	}
	if len(b.polys) == 0 {
		return nil, fmt.Errorf("boundary %s: %w: no polygon feature", path, ErrMissingInput)
	}
	b.extent = shellExtent(b.polys)
	return b, nil
}

func polygonRings(poly geom.Polygon) []ring {
	rings := make([]ring, 0, len(poly.Sublines()))
	for _, line := range poly.Sublines() {
		r := make(ring, 0, len(line.Subpoints()))
		for _, pos := range line.Subpoints() {
			r = append(r, vec2d.T{pos.X(), pos.Y()})
		}
		rings = append(rings, r)
	}
	return rings
}

func shellExtent(polys [][]ring) vec2d.Rect {
	ext := vec2d.Rect{
		Min: vec2d.T{math.Inf(1), math.Inf(1)},
		Max: vec2d.T{math.Inf(-1), math.Inf(-1)},
	}
	for _, rings := range polys {
		for _, p := range rings[0] {
			ext.Min[0] = math.Min(ext.Min[0], p[0])
			ext.Min[1] = math.Min(ext.Min[1], p[1])
			ext.Max[0] = math.Max(ext.Max[0], p[0])
			ext.Max[1] = math.Max(ext.Max[1], p[1])
		}
	}
	return ext
}

func (b *Boundary) Extent() vec2d.Rect { return b.extent }

func (b *Boundary) Srs() geo.Proj { return b.srs }

// Contains reports whether the point lies inside any polygon shell and
// outside its holes.
func (b *Boundary) Contains(x, y float64) bool {
	for _, rings := range b.polys {
		if !rings[0].contains(x, y) {
			continue
		}
		inHole := false
		for _, h := range rings[1:] {
			if h.contains(x, y) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}
