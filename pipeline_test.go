package geostat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/flywave/go-cog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleGeoJSON = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[0,10],[0,0]]]}}]}`

// constantPoints lays n observations on a small lattice inside the
// square boundary, every one with the same target value.
func constantPoints(n int, value float64) string {
	var sb strings.Builder
	sb.WriteString("X Y layer1 layer5\n")
	for i := 0; i < n; i++ {
		x := 0.5 + float64(i%5)*2
		y := 0.5 + float64(i/5)*2.5
		fmt.Fprintf(&sb, "%g %g %g %g\n", x, y, float64(i)*0.1, value)
	}
	return sb.String()
}

func pipelineOptions(t *testing.T, boundary, points string) Options {
	t.Helper()
	root := t.TempDir()
	input := filepath.Join(root, "input")
	require.NoError(t, os.Mkdir(input, 0o755))
	writeFixture(t, input, "boundary.geojson", boundary)
	writeFixture(t, input, "points.txt", points)

	opts := DefaultOptions()
	opts.InputDir = input
	opts.ResultsDir = filepath.Join(root, "results")
	return opts
}

func readColumn(t *testing.T, path string, col int) []float64 {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	out := make([]float64, 0, len(lines)-1)
	for _, ln := range lines[1:] {
		fields := strings.Split(ln, "\t")
		require.Greater(t, len(fields), col)
		v, err := strconv.ParseFloat(fields[col], 64)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestPipelineConstantField(t *testing.T) {
	a := assert.New(t)

	opts := pipelineOptions(t, squareGeoJSON, constantPoints(20, 42))
	pipe, err := NewPipeline(opts)
	require.NoError(t, err)

	report, err := pipe.Run(context.Background())
	require.NoError(t, err)

	a.Equal("layer5", report.Target)
	a.Equal(20, report.Points)
	a.Equal(10, report.GridWidth)
	a.Equal(10, report.GridHeight)
	a.Equal(Estimator(""), report.Estimator)
	a.InDelta(0, report.RMSE, 1e-9)
	a.InDelta(0, report.ME, 1e-9)

	for _, path := range []string{
		report.KrigedTable, report.IDWTable, report.CVTable,
		report.KrigedRaster, report.IDWRaster,
	} {
		info, err := os.Stat(path)
		require.NoError(t, err, path)
		a.Greater(info.Size(), int64(0), path)
	}
	a.Equal(filepath.Join(opts.ResultsDir, "kriged_layer5.txt"), report.KrigedTable)
	a.Equal(filepath.Join(opts.ResultsDir, "idw_layer5.txt"), report.IDWTable)
	a.Equal(filepath.Join(opts.ResultsDir, "layer5_krig.tif"), report.KrigedRaster)
	a.Equal(filepath.Join(opts.ResultsDir, "layer5_idw.tif"), report.IDWRaster)

	for _, pred := range readColumn(t, report.KrigedTable, 2) {
		a.InDelta(42, pred, 1e-6)
	}
	for _, pred := range readColumn(t, report.IDWTable, 2) {
		a.InDelta(42, pred, 1e-6)
	}
	a.Len(readColumn(t, report.CVTable, 4), 20)

	r := cog.Read(report.KrigedRaster)
	require.NotNil(t, r)
	a.Equal([2]uint32{10, 10}, r.GetSize(0))
}

func TestPipelineZeroValuedTarget(t *testing.T) {
	a := assert.New(t)

	// a zero-valued field leaves the pairwise-relative estimator with no
	// pairs; the run continues on the remaining candidates
	opts := pipelineOptions(t, squareGeoJSON, constantPoints(20, 0))
	pipe, err := NewPipeline(opts)
	require.NoError(t, err)

	report, err := pipe.Run(context.Background())
	require.NoError(t, err)

	a.Equal(Estimator(""), report.Estimator)
	a.InDelta(0, report.RMSE, 1e-9)
	a.InDelta(0, report.ME, 1e-9)
	for _, pred := range readColumn(t, report.KrigedTable, 2) {
		a.InDelta(0, pred, 1e-6)
	}
}

func TestPipelineMaskedTriangle(t *testing.T) {
	a := assert.New(t)

	var sb strings.Builder
	sb.WriteString("X Y layer5\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&sb, "%g %g 5\n", 0.5+float64(i%4)*2, 0.5+float64(i/4)*1.5)
	}

	opts := pipelineOptions(t, triangleGeoJSON, sb.String())
	opts.MaskToBoundary = true
	pipe, err := NewPipeline(opts)
	require.NoError(t, err)

	report, err := pipe.Run(context.Background())
	require.NoError(t, err)
	a.InDelta(0, report.RMSE, 1e-9)

	preds := readColumn(t, report.KrigedTable, 2)
	masked, kept := 0, 0
	for _, pred := range preds {
		if pred == noData {
			masked++
			continue
		}
		kept++
		a.InDelta(5, pred, 1e-6)
	}
	a.Greater(masked, 0, "cells outside the triangle carry the no-data value")
	a.Greater(kept, 0)
}

func TestPipelineMissingTargetColumn(t *testing.T) {
	a := assert.New(t)

	points := "X Y layer1\n1 1 3\n2 2 4\n3 3 5\n"
	opts := pipelineOptions(t, squareGeoJSON, points)
	pipe, err := NewPipeline(opts)
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	a.True(errors.Is(err, ErrSchema))

	// the run failed before any output was produced
	_, statErr := os.Stat(opts.ResultsDir)
	a.True(os.IsNotExist(statErr))
}

func TestPipelineTooFewDistinctPoints(t *testing.T) {
	a := assert.New(t)

	points := "X Y layer5\n1 1 3\n2 2 4\n"
	opts := pipelineOptions(t, squareGeoJSON, points)
	pipe, err := NewPipeline(opts)
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	a.True(errors.Is(err, ErrVariogramFit))
	_, statErr := os.Stat(opts.ResultsDir)
	a.True(os.IsNotExist(statErr))
}

func TestPipelineAmbiguousInputs(t *testing.T) {
	a := assert.New(t)

	opts := pipelineOptions(t, squareGeoJSON, constantPoints(20, 42))
	writeFixture(t, opts.InputDir, "extra.txt", constantPoints(5, 1))
	pipe, err := NewPipeline(opts)
	require.NoError(t, err)

	_, err = pipe.Run(context.Background())
	a.True(errors.Is(err, ErrMissingInput))
}

func TestPipelineExplicitPaths(t *testing.T) {
	a := assert.New(t)

	base := pipelineOptions(t, squareGeoJSON, constantPoints(20, 42))
	// a second table would make discovery ambiguous, explicit paths
	// bypass it
	writeFixture(t, base.InputDir, "extra.txt", constantPoints(5, 1))
	base.BoundaryPath = filepath.Join(base.InputDir, "boundary.geojson")
	base.PointsPath = filepath.Join(base.InputDir, "points.txt")

	pipe, err := NewPipeline(base)
	require.NoError(t, err)
	report, err := pipe.Run(context.Background())
	require.NoError(t, err)
	a.Equal(20, report.Points)
}

func TestNewPipelineInvalidOptions(t *testing.T) {
	a := assert.New(t)

	opts := DefaultOptions()
	opts.CellSize = -1
	_, err := NewPipeline(opts)
	a.Error(err)
}
