package geostat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"

	"github.com/flywave/go-geostat/internal/logging"
)

// Report summarizes a completed run.
type Report struct {
	Target     string
	Points     int
	Estimator  Estimator
	Model      VariogramModel
	GridWidth  int
	GridHeight int
	RMSE       float64
	ME         float64

	KrigedTable  string
	IDWTable     string
	CVTable      string
	KrigedRaster string
	IDWRaster    string
}

// Pipeline runs the full analysis as one synchronous pass: load inputs,
// build the grid, select a variogram model, interpolate the kriging and
// IDW surfaces, cross-validate, export.
type Pipeline struct {
	opts Options
}

func NewPipeline(opts Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts}, nil
}

// Run executes the stages strictly in order. Any stage error aborts the
// run; nothing is retried and no partial raster or table survives.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	logger := logging.FromContext(ctx)
	opts := p.opts

	bpath, ppath := opts.BoundaryPath, opts.PointsPath
	if bpath == "" || ppath == "" {
		db, dp, err := DiscoverInputs(opts.InputDir)
		if err != nil {
			return nil, err
		}
		if bpath == "" {
			bpath = db
		}
		if ppath == "" {
			ppath = dp
		}
	}
	logger.Infof("inputs: boundary %s, points %s", bpath, ppath)

	srs, err := parseSRS(opts.SRS)
	if err != nil {
		return nil, err
	}
	boundary, err := ReadBoundary(bpath, srs)
	if err != nil {
		return nil, err
	}
	ext := boundary.Extent()
	logger.Infof("boundary: %d polygons, extent [%g %g, %g %g]",
		len(boundary.polys), ext.Min[0], ext.Min[1], ext.Max[0], ext.Max[1])

	points, err := ReadPointSet(ppath, opts.Target)
	if err != nil {
		return nil, err
	}
	if opts.PointSRS != "" {
		psrs, err := parseSRS(opts.PointSRS)
		if err != nil {
			return nil, err
		}
		points.Reproject(psrs, srs)
	}
	points.srs = srs
	points.NormalizeHeights(parseDatum(opts.HeightDatum), opts.HeightOffset)
	before := points.Len()
	points = points.Collapse(opts.CollapseCellSize)
	if points.Len() != before {
		logger.Infof("collapsed %d co-located observations", before-points.Len())
	}
	logger.Infof("point dataset: %d observations of %q, variance %.6g",
		points.Len(), opts.Target, points.Variance())

	grid, err := BuildGrid(boundary, opts.CellSize)
	if err != nil {
		return nil, err
	}
	logger.Infof("grid: %dx%d cells of size %g", grid.Width, grid.Height, grid.CellSize)

	initSill := opts.InitSill
	if initSill == 0 {
		initSill = points.Variance()
	}
	init := VariogramModel{
		Model:  opts.Model,
		Nugget: opts.InitNugget,
		Psill:  initSill,
		Range:  opts.InitRange,
	}

	// Every estimator is reported for diagnostics; only the selection
	// below decides whether the run can continue.
	for _, est := range []Estimator{Matheron, PairwiseRelative, Cressie} {
		emp, err := Empirical(points, est)
		if err != nil {
			logger.Warnf("variogram %s: %v", est, err)
			continue
		}
		logger.Infof("variogram %s: %d lag bins to cutoff %.6g", est, len(emp.Bins), emp.Cutoff)
	}

	model, est, err := SelectModel(points, init)
	if err != nil {
		return nil, err
	}
	if est == "" {
		logger.Infof("target is constant, using unit-sill %s model", model.Model)
	} else {
		logger.Infof("selected %s estimator: %s model nugget=%.6g psill=%.6g range=%.6g",
			est, model.Model, model.Nugget, model.Psill, model.Range)
	}

	kr, err := NewKriging(points, model)
	if err != nil {
		return nil, err
	}
	kriged, err := kr.InterpolateGrid(grid)
	if err != nil {
		return nil, err
	}
	idw := NewIDW(points, opts.IDWPower).InterpolateGrid(grid)
	if opts.MaskToBoundary {
		kriged.Mask(boundary)
		idw.Mask(boundary)
	}
	kvals, _, _, _ := kriged.Grid.TileData()
	ivals, _, _, _ := idw.Grid.TileData()
	logger.Infof("surfaces: kriged [%.6g, %.6g], idw [%.6g, %.6g]",
		floats.Min(kvals), floats.Max(kvals), floats.Min(ivals), floats.Max(ivals))

	records, err := CrossValidate(points, model, opts.Folds, opts.Seed)
	if err != nil {
		return nil, err
	}
	rmse, me := Summary(records)
	logger.Infof("cross-validation: %d folds, seed %d, RMSE %.6g, ME %.6g",
		opts.Folds, opts.Seed, rmse, me)

	if err := os.MkdirAll(opts.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("results directory %s: %v", opts.ResultsDir, err)
	}
	rep := &Report{
		Target:       opts.Target,
		Points:       points.Len(),
		Estimator:    est,
		Model:        model,
		GridWidth:    grid.Width,
		GridHeight:   grid.Height,
		RMSE:         rmse,
		ME:           me,
		KrigedTable:  filepath.Join(opts.ResultsDir, fmt.Sprintf("kriged_%s.txt", opts.Target)),
		IDWTable:     filepath.Join(opts.ResultsDir, fmt.Sprintf("idw_%s.txt", opts.Target)),
		CVTable:      filepath.Join(opts.ResultsDir, fmt.Sprintf("cv_%s.txt", opts.Target)),
		KrigedRaster: filepath.Join(opts.ResultsDir, fmt.Sprintf("%s_krig.tif", opts.Target)),
		IDWRaster:    filepath.Join(opts.ResultsDir, fmt.Sprintf("%s_idw.tif", opts.Target)),
	}
	if err := WriteSurfaceTable(rep.KrigedTable, kriged); err != nil {
		return nil, err
	}
	if err := WriteSurfaceTable(rep.IDWTable, idw); err != nil {
		return nil, err
	}
	if err := WriteCVTable(rep.CVTable, records); err != nil {
		return nil, err
	}
	if err := WriteRaster(rep.KrigedRaster, kriged); err != nil {
		return nil, err
	}
	if err := WriteRaster(rep.IDWRaster, idw); err != nil {
		return nil, err
	}
	logger.Infof("exported tables and rasters to %s", opts.ResultsDir)

	return rep, nil
}
