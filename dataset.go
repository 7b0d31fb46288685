package geostat

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	vec2d "github.com/flywave/go3d/float64/vec2"
	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go-geo"
	"github.com/flywave/go-geoid"
	"gonum.org/v1/gonum/stat"
)

// PointSet holds the observations: position and target value per point
// plus every numeric column of the source table by header name.
type PointSet struct {
	pos     []vec3d.T
	target  string
	columns map[string][]float64
	srs     geo.Proj
}

func newPointSet(pos []vec3d.T, target string, srs geo.Proj) *PointSet {
	ps := &PointSet{pos: pos, target: target, srs: srs}
	ps.columns = map[string][]float64{
		"X":    make([]float64, len(pos)),
		"Y":    make([]float64, len(pos)),
		target: make([]float64, len(pos)),
	}
	for i, p := range pos {
		ps.columns["X"][i] = p[0]
		ps.columns["Y"][i] = p[1]
		ps.columns[target][i] = p[2]
	}
	return ps
}

func (ps *PointSet) Len() int { return len(ps.pos) }

func (ps *PointSet) Target() string { return ps.target }

func (ps *PointSet) Srs() geo.Proj { return ps.srs }

// Values returns a copy of the target column in observation order.
func (ps *PointSet) Values() []float64 {
	vals := make([]float64, len(ps.pos))
	for i := range ps.pos {
		vals[i] = ps.pos[i][2]
	}
	return vals
}

func (ps *PointSet) Column(name string) []float64 { return ps.columns[name] }

// Variance is the sample variance of the target, the initial sill of the
// variogram fit when none is configured.
func (ps *PointSet) Variance() float64 {
	if len(ps.pos) < 2 {
		return 0
	}
	return stat.Variance(ps.Values(), nil)
}

// DiscoverInputs locates exactly one boundary file (.geojson/.json) and
// one point table (.txt/.csv) in dir. Zero or multiple candidates for
// either role is ErrMissingInput.
func DiscoverInputs(dir string) (string, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("input directory %s: %w: %v", dir, ErrMissingInput, err)
	}
	var boundaries, tables []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".geojson", ".json":
			boundaries = append(boundaries, e.Name())
		case ".txt", ".csv":
			tables = append(tables, e.Name())
		}
	}
	sort.Strings(boundaries)
	sort.Strings(tables)
	if len(boundaries) == 0 {
		return "", "", fmt.Errorf("input directory %s: %w: no boundary file (.geojson/.json)", dir, ErrMissingInput)
	}
	if len(boundaries) > 1 {
		return "", "", fmt.Errorf("input directory %s: %w: ambiguous boundary files %v", dir, ErrMissingInput, boundaries)
	}
	if len(tables) == 0 {
		return "", "", fmt.Errorf("input directory %s: %w: no point table (.txt/.csv)", dir, ErrMissingInput)
	}
	if len(tables) > 1 {
		return "", "", fmt.Errorf("input directory %s: %w: ambiguous point tables %v", dir, ErrMissingInput, tables)
	}
	return filepath.Join(dir, boundaries[0]), filepath.Join(dir, tables[0]), nil
}

// ReadPointSet parses a delimited table with a header row. Columns X and
// Y and the target column are required; every column must be numeric and
// finite.
func ReadPointSet(path, target string) (*PointSet, error) {
	rows, err := readTable(path)
	if err != nil {
		return nil, err
	}
	header := rows[0]
	ix, iy, it := -1, -1, -1
	for i, name := range header {
		switch {
		case strings.EqualFold(name, "X"):
			ix = i
		case strings.EqualFold(name, "Y"):
			iy = i
		case strings.EqualFold(name, target):
			it = i
		}
	}
	if ix < 0 || iy < 0 {
		return nil, fmt.Errorf("point table %s: %w: no X/Y coordinate columns", path, ErrSchema)
	}
	if it < 0 {
		return nil, fmt.Errorf("point table %s: %w: no column %q", path, ErrSchema, target)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("point table %s: %w: no data rows", path, ErrSchema)
	}

	columns := make(map[string][]float64, len(header))
	for _, name := range header {
		columns[name] = make([]float64, 0, len(rows)-1)
	}
	pos := make([]vec3d.T, 0, len(rows)-1)
	for li, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("point table %s: %w: row %d has %d fields, header has %d",
				path, ErrSchema, li+2, len(row), len(header))
		}
		var x, y, z float64
		for ci, cell := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("point table %s: %w: row %d column %q: %q is not a number",
					path, ErrSchema, li+2, header[ci], cell)
			}
			// ParseFloat accepts NaN and Inf spellings; neither is a
			// usable coordinate or observation.
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("point table %s: %w: row %d column %q: %q is not finite",
					path, ErrSchema, li+2, header[ci], cell)
			}
			columns[header[ci]] = append(columns[header[ci]], v)
			switch ci {
			case ix:
				x = v
			case iy:
				y = v
			}
			if ci == it {
				z = v
			}
		}
		pos = append(pos, vec3d.T{x, y, z})
	}
	return &PointSet{pos: pos, target: header[it], columns: columns}, nil
}

func readTable(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("point table %s: %w", path, ErrMissingInput)
	}
	if err != nil {
		return nil, fmt.Errorf("point table %s: %v", path, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	var trimmed []string
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			trimmed = append(trimmed, ln)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("point table %s: %w: empty file", path, ErrSchema)
	}
	if strings.Contains(trimmed[0], ",") {
		r := csv.NewReader(strings.NewReader(strings.Join(trimmed, "\n")))
		r.TrimLeadingSpace = true
		rows, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("point table %s: %w: %v", path, ErrSchema, err)
		}
		return rows, nil
	}
	rows := make([][]string, 0, len(trimmed))
	for _, ln := range lines {
		if fields := strings.Fields(ln); len(fields) > 0 {
			rows = append(rows, fields)
		}
	}
	return rows, nil
}

// Reproject transforms the observation coordinates between reference
// systems, leaving values untouched.
func (ps *PointSet) Reproject(from, to geo.Proj) {
	if from == nil || to == nil || from.Eq(to) {
		return
	}
	pts := make([]vec2d.T, len(ps.pos))
	for i, p := range ps.pos {
		pts[i] = vec2d.T{p[0], p[1]}
	}
	pts = from.TransformTo(to, pts)
	for i := range ps.pos {
		ps.pos[i][0] = pts[i][0]
		ps.pos[i][1] = pts[i][1]
	}
	ps.srs = to
}

// NormalizeHeights converts a height-valued target to ellipsoidal
// heights, or shifts it by a constant offset for hae.
func (ps *PointSet) NormalizeHeights(datum geoid.VerticalDatum, offset float64) {
	if (datum == geoid.HAE && offset == 0) || datum == geoid.UNKNOWN {
		return
	}
	if datum == geoid.HAE {
		for i := range ps.pos {
			ps.pos[i][2] += offset
		}
		return
	}
	gid := geoid.NewGeoid(datum, false)
	for i := range ps.pos {
		ps.pos[i][2] = gid.ConvertHeight(ps.pos[i][0], ps.pos[i][1], ps.pos[i][2], geoid.GEOIDTOELLIPSOID)
	}
}

// Collapse averages observations that share a cell of the given size,
// or exactly co-located observations when cell is zero. Duplicate
// locations otherwise make the kriging system singular. Encounter order
// is preserved, so the result is deterministic.
func (ps *PointSet) Collapse(cell float64) *PointSet {
	type bucket struct {
		sum vec3d.T
		num int
	}
	keyOf := func(p vec3d.T) [2]float64 {
		if cell <= 0 {
			return [2]float64{p[0], p[1]}
		}
		return [2]float64{math.Floor(p[0] / cell), math.Floor(p[1] / cell)}
	}
	buckets := make(map[[2]float64]*bucket, len(ps.pos))
	order := make([][2]float64, 0, len(ps.pos))
	for _, p := range ps.pos {
		k := keyOf(p)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
			order = append(order, k)
		}
		b.sum.Add(&p)
		b.num++
	}
	if len(order) == len(ps.pos) {
		return ps
	}
	pos := make([]vec3d.T, 0, len(order))
	for _, k := range order {
		b := buckets[k]
		n := float64(b.num)
		pos = append(pos, vec3d.T{b.sum[0] / n, b.sum[1] / n, b.sum[2] / n})
	}
	return newPointSet(pos, ps.target, ps.srs)
}
