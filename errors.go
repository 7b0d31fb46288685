package geostat

import "errors"

// Fatal pipeline errors. Stage code wraps these with fmt.Errorf("...: %w: ...")
// so callers can test the class with errors.Is while keeping the detail.
var (
	// ErrMissingInput reports an absent or ambiguous boundary or point file.
	ErrMissingInput = errors.New("geostat: required input file missing")

	// ErrSchema reports a point table without the required coordinate or
	// target columns, or with cells that do not parse as numbers.
	ErrSchema = errors.New("geostat: point table schema invalid")

	// ErrVariogramFit reports that no candidate estimator produced a usable
	// fitted model.
	ErrVariogramFit = errors.New("geostat: variogram fit failed")

	// ErrRasterWrite reports a failed GeoTIFF export.
	ErrRasterWrite = errors.New("geostat: raster write failed")
)
