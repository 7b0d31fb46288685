package geostat

import (
	"fmt"
	"math"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go-geo"
)

// noData marks masked grid cells in tables and rasters.
const noData = float64(-9999)

type Coordinates []vec3d.T

// Grid is the regular prediction lattice over the boundary extent. The
// first sample sits one cell size in from the extent origin; rows run
// north to south, row-major, so the layout matches the raster output.
type Grid struct {
	Width       int
	Height      int
	CellSize    float64
	Coordinates Coordinates
	bounds      vec2d.Rect
	srs         geo.Proj
}

// BuildGrid lays the lattice over the boundary extent. The same boundary
// and cell size always produce the identical grid.
func BuildGrid(b *Boundary, cellSize float64) (*Grid, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("grid: cell size %v must be positive", cellSize)
	}
	ext := b.Extent()
	width := int(math.Floor((ext.Max[0] - ext.Min[0]) / cellSize))
	height := int(math.Floor((ext.Max[1] - ext.Min[1]) / cellSize))
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("grid: boundary extent %v by %v holds no cell of size %v",
			ext.Max[0]-ext.Min[0], ext.Max[1]-ext.Min[1], cellSize)
	}

	x0 := ext.Min[0] + cellSize
	y0 := ext.Min[1] + cellSize
	coords := make(Coordinates, 0, width*height)
	for y := height - 1; y >= 0; y-- {
		yc := y0 + float64(y)*cellSize
		for x := 0; x < width; x++ {
			coords = append(coords, vec3d.T{x0 + float64(x)*cellSize, yc, 0})
		}
	}

	return &Grid{
		Width:       width,
		Height:      height,
		CellSize:    cellSize,
		Coordinates: coords,
		bounds: vec2d.Rect{
			Min: vec2d.T{x0, y0},
			Max: vec2d.T{x0 + float64(width)*cellSize, y0 + float64(height)*cellSize},
		},
		srs: b.Srs(),
	}, nil
}

// Clone copies the lattice so each interpolation fills its own values.
func (g *Grid) Clone() *Grid {
	coords := make(Coordinates, len(g.Coordinates))
	copy(coords, g.Coordinates)
	out := *g
	out.Coordinates = coords
	return &out
}

func (g *Grid) Bounds() vec2d.Rect { return g.bounds }

func (g *Grid) Srs() geo.Proj { return g.srs }

func (g *Grid) Value(row, column int) float64 {
	return g.Coordinates[row*g.Width+column][2]
}

// TileData exports the cell values in raster order for the GeoTIFF
// writer, with the grid size, bounds and SRS.
func (g *Grid) TileData() ([]float64, [2]uint32, vec2d.Rect, geo.Proj) {
	tiledata := make([]float64, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			tiledata[y*g.Width+x] = g.Value(y, x)
		}
	}
	return tiledata, [2]uint32{uint32(g.Width), uint32(g.Height)}, g.bounds, g.srs
}

// Surface is a grid with predictions filled in. Kriging surfaces carry
// the prediction variance per cell, aligned with Coordinates; IDW
// surfaces leave it nil.
type Surface struct {
	Grid     *Grid
	Variance []float64
}

// Mask writes the no-data value into every cell outside the boundary.
func (s *Surface) Mask(b *Boundary) {
	for i := range s.Grid.Coordinates {
		c := &s.Grid.Coordinates[i]
		if !b.Contains(c[0], c[1]) {
			c[2] = noData
			if s.Variance != nil {
				s.Variance[i] = noData
			}
		}
	}
}
