package geostat

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/flywave/go-geo"
	"github.com/flywave/go-geoid"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Options configures a pipeline run. Values are resolved in order:
// DefaultOptions, then a YAML config file, then environment variables,
// then command-line flags.
type Options struct {
	// InputDir is scanned for one boundary file (.geojson/.json) and one
	// point table (.txt/.csv) unless explicit paths are set.
	InputDir     string `yaml:"input_dir" envconfig:"GEOSTAT_INPUT_DIR" validate:"required"`
	ResultsDir   string `yaml:"results_dir" envconfig:"GEOSTAT_RESULTS_DIR" validate:"required"`
	BoundaryPath string `yaml:"boundary_path" envconfig:"GEOSTAT_BOUNDARY_PATH"`
	PointsPath   string `yaml:"points_path" envconfig:"GEOSTAT_POINTS_PATH"`

	// Target is the point attribute interpolated onto the grid.
	Target   string  `yaml:"target" envconfig:"GEOSTAT_TARGET" validate:"required"`
	CellSize float64 `yaml:"cell_size" envconfig:"GEOSTAT_CELL_SIZE" validate:"gt=0"`

	// SRS applies to the boundary and the grid. PointSRS, when set and
	// different, reprojects the observations onto SRS after load.
	SRS      string `yaml:"srs" envconfig:"GEOSTAT_SRS" validate:"required"`
	PointSRS string `yaml:"point_srs" envconfig:"GEOSTAT_POINT_SRS"`

	Model      ModelType `yaml:"model" envconfig:"GEOSTAT_MODEL" validate:"required,oneof=spherical exponential gaussian"`
	InitSill   float64   `yaml:"init_sill" envconfig:"GEOSTAT_INIT_SILL" validate:"gte=0"`
	InitRange  float64   `yaml:"init_range" envconfig:"GEOSTAT_INIT_RANGE" validate:"gt=0"`
	InitNugget float64   `yaml:"init_nugget" envconfig:"GEOSTAT_INIT_NUGGET" validate:"gte=0"`

	Folds    int     `yaml:"folds" envconfig:"GEOSTAT_FOLDS" validate:"gte=2"`
	Seed     int64   `yaml:"seed" envconfig:"GEOSTAT_SEED"`
	IDWPower float64 `yaml:"idw_power" envconfig:"GEOSTAT_IDW_POWER" validate:"gt=0"`

	// MaskToBoundary writes the no-data value into grid cells outside the
	// boundary polygon instead of a prediction.
	MaskToBoundary bool `yaml:"mask_to_boundary" envconfig:"GEOSTAT_MASK_TO_BOUNDARY"`

	// CollapseCellSize averages observations that share a cell of this
	// size before interpolation. Zero collapses exact duplicates only.
	CollapseCellSize float64 `yaml:"collapse_cell_size" envconfig:"GEOSTAT_COLLAPSE_CELL_SIZE" validate:"gte=0"`

	// HeightDatum converts a height-valued target to ellipsoidal heights
	// before interpolation; HeightOffset shifts hae targets by a constant.
	HeightDatum  string  `yaml:"height_datum" envconfig:"GEOSTAT_HEIGHT_DATUM" validate:"omitempty,oneof=hae egm84 egm96 egm2008"`
	HeightOffset float64 `yaml:"height_offset" envconfig:"GEOSTAT_HEIGHT_OFFSET"`

	Verbose bool `yaml:"verbose" envconfig:"GEOSTAT_VERBOSE"`
}

func DefaultOptions() Options {
	return Options{
		InputDir:   "input",
		ResultsDir: "results",
		Target:     "layer5",
		CellSize:   1,
		SRS:        "EPSG:4326",
		Model:      Spherical,
		InitSill:   0,
		InitRange:  400,
		InitNugget: 0,
		Folds:      5,
		Seed:       1,
		IDWPower:   2,
	}
}

// LoadOptions reads a YAML config on top of the defaults. An empty or
// nonexistent path yields the defaults unchanged.
func LoadOptions(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return opts, nil
	}
	if err != nil {
		return opts, fmt.Errorf("read config %s: %v", path, err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse config %s: %v", path, err)
	}
	return opts, nil
}

func (o *Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return fmt.Errorf("invalid options: %v", err)
	}
	if _, err := parseSRS(o.SRS); err != nil {
		return err
	}
	if o.PointSRS != "" {
		if _, err := parseSRS(o.PointSRS); err != nil {
			return err
		}
	}
	return nil
}

func parseSRS(s string) (geo.Proj, error) {
	code := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "EPSG:")
	epsg, err := strconv.Atoi(code)
	if err != nil {
		return nil, fmt.Errorf("invalid srs %q: want EPSG:<code>", s)
	}
	return geo.NewProj(epsg), nil
}

func parseDatum(s string) geoid.VerticalDatum {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hae":
		return geoid.HAE
	case "egm84":
		return geoid.EGM84
	case "egm96":
		return geoid.EGM96
	case "egm2008":
		return geoid.EGM2008
	default:
		return geoid.UNKNOWN
	}
}
