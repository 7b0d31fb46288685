package geostat

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	vec3d "github.com/flywave/go3d/float64/vec3"

	"github.com/flywave/go-geoid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointsWhitespace = `X Y layer1 layer5
1.0 2.0 0.5 10
3.0 4.0 0.7 20
5.0 6.0 0.9 30
`

const pointsCSV = `x,y,layer5
1.5, 2.5, 11
3.5, 4.5, 22
`

func TestReadPointSetWhitespace(t *testing.T) {
	a := assert.New(t)

	path := writeFixture(t, t.TempDir(), "points.txt", pointsWhitespace)
	ps, err := ReadPointSet(path, "layer5")
	require.NoError(t, err)

	a.Equal(3, ps.Len())
	a.Equal("layer5", ps.Target())
	a.Equal([]float64{10, 20, 30}, ps.Values())
	a.Equal([]float64{1, 3, 5}, ps.Column("X"))
	a.Equal([]float64{0.5, 0.7, 0.9}, ps.Column("layer1"))
}

func TestReadPointSetCSV(t *testing.T) {
	a := assert.New(t)

	// headers match case-insensitively
	path := writeFixture(t, t.TempDir(), "points.csv", pointsCSV)
	ps, err := ReadPointSet(path, "layer5")
	require.NoError(t, err)

	a.Equal(2, ps.Len())
	a.Equal([]float64{11, 22}, ps.Values())
	a.Equal([]float64{2.5, 4.5}, ps.Column("y"))
}

func TestReadPointSetSchemaErrors(t *testing.T) {
	a := assert.New(t)
	dir := t.TempDir()

	cases := map[string]string{
		"no-target.txt":  "X Y layer1\n1 2 3\n4 5 6\n7 8 9\n",
		"no-coords.txt":  "lon lat layer5\n1 2 3\n",
		"bad-cell.txt":   "X Y layer5\n1 2 3\n4 five 6\n",
		"nan-coord.txt":  "X Y layer5\nNaN 2 3\n4 5 6\n7 8 9\n",
		"inf-target.txt": "X Y layer5\n1 2 Inf\n4 5 6\n",
		"short-row.txt":  "X Y layer5\n1 2 3\n4 5\n",
		"no-rows.txt":    "X Y layer5\n",
		"empty-file.txt": "\n\n",
	}
	for name, content := range cases {
		path := writeFixture(t, dir, name, content)
		_, err := ReadPointSet(path, "layer5")
		a.True(errors.Is(err, ErrSchema), "%s: %v", name, err)
	}

	_, err := ReadPointSet(filepath.Join(dir, "absent.txt"), "layer5")
	a.True(errors.Is(err, ErrMissingInput))
}

func TestDiscoverInputs(t *testing.T) {
	a := assert.New(t)

	dir := t.TempDir()
	writeFixture(t, dir, "area.geojson", squareGeoJSON)
	writeFixture(t, dir, "obs.txt", pointsWhitespace)
	writeFixture(t, dir, "readme.md", "notes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.txt"), 0o755))

	bpath, ppath, err := DiscoverInputs(dir)
	require.NoError(t, err)
	a.Equal(filepath.Join(dir, "area.geojson"), bpath)
	a.Equal(filepath.Join(dir, "obs.txt"), ppath)
}

func TestDiscoverInputsErrors(t *testing.T) {
	a := assert.New(t)

	empty := t.TempDir()
	_, _, err := DiscoverInputs(empty)
	a.True(errors.Is(err, ErrMissingInput))

	_, _, err = DiscoverInputs(filepath.Join(empty, "gone"))
	a.True(errors.Is(err, ErrMissingInput))

	noTable := t.TempDir()
	writeFixture(t, noTable, "area.geojson", squareGeoJSON)
	_, _, err = DiscoverInputs(noTable)
	a.True(errors.Is(err, ErrMissingInput))

	ambiguous := t.TempDir()
	writeFixture(t, ambiguous, "area.geojson", squareGeoJSON)
	writeFixture(t, ambiguous, "obs.txt", pointsWhitespace)
	writeFixture(t, ambiguous, "obs2.txt", pointsWhitespace)
	_, _, err = DiscoverInputs(ambiguous)
	a.True(errors.Is(err, ErrMissingInput))
}

func TestCollapseDuplicates(t *testing.T) {
	a := assert.New(t)

	ps := newPointSet([]vec3d.T{
		{1, 1, 10},
		{2, 2, 20},
		{1, 1, 30},
	}, "layer5", nil)
	out := ps.Collapse(0)

	require.Equal(t, 2, out.Len())
	a.Equal([]float64{20, 20}, out.Values())
	a.Equal([]float64{1, 2}, out.Column("X"))
}

func TestCollapseCells(t *testing.T) {
	a := assert.New(t)

	ps := newPointSet([]vec3d.T{
		{0.2, 0.2, 10},
		{0.8, 0.6, 20},
		{3.5, 3.5, 30},
	}, "layer5", nil)
	out := ps.Collapse(1)

	require.Equal(t, 2, out.Len())
	a.InDelta(0.5, out.Column("X")[0], 1e-12)
	a.InDelta(0.4, out.Column("Y")[0], 1e-12)
	a.InDelta(15, out.Values()[0], 1e-12)
	a.Equal(30.0, out.Values()[1])
}

func TestCollapseNoop(t *testing.T) {
	a := assert.New(t)

	ps := newPointSet([]vec3d.T{{1, 1, 10}, {2, 2, 20}}, "layer5", nil)
	a.Same(ps, ps.Collapse(0))
}

func TestVariance(t *testing.T) {
	a := assert.New(t)

	ps := newPointSet([]vec3d.T{
		{0, 0, 2}, {1, 0, 4}, {2, 0, 4}, {3, 0, 4},
		{4, 0, 5}, {5, 0, 5}, {6, 0, 7}, {7, 0, 9},
	}, "layer5", nil)
	a.InDelta(32.0/7.0, ps.Variance(), 1e-12)

	single := newPointSet([]vec3d.T{{0, 0, 2}}, "layer5", nil)
	a.Equal(0.0, single.Variance())
}

func TestNormalizeHeightsOffset(t *testing.T) {
	a := assert.New(t)

	ps := newPointSet([]vec3d.T{{1, 1, 10}, {2, 2, 20}}, "layer5", nil)
	ps.NormalizeHeights(geoid.HAE, 2.5)
	a.Equal([]float64{12.5, 22.5}, ps.Values())

	ps.NormalizeHeights(geoid.UNKNOWN, 99)
	a.Equal([]float64{12.5, 22.5}, ps.Values())

	ps.NormalizeHeights(geoid.HAE, 0)
	a.Equal([]float64{12.5, 22.5}, ps.Values())
}
