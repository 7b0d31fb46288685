package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	geostat "github.com/flywave/go-geostat"
	"github.com/flywave/go-geostat/internal/logging"
)

// setFlags reports which flags were given on the command line, so an
// explicit zero such as -seed 0 overrides the config like any other
// value.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	inputDir := flag.String("input", "", "directory holding the boundary and point files")
	resultsDir := flag.String("results", "", "directory receiving tables and rasters")
	target := flag.String("target", "", "point attribute to interpolate")
	cellSize := flag.Float64("cellsize", 0, "grid cell size in map units")
	folds := flag.Int("folds", 0, "cross-validation fold count")
	seed := flag.Int64("seed", 0, "cross-validation shuffle seed")
	mask := flag.Bool("mask", false, "write no-data outside the boundary")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	_ = godotenv.Load()

	// Resolution order: defaults, config file, environment, flags.
	opts, err := geostat.LoadOptions(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := envconfig.Process("", &opts); err != nil {
		log.Fatalf("environment: %v", err)
	}
	set := setFlags(flag.CommandLine)
	if set["input"] {
		opts.InputDir = *inputDir
	}
	if set["results"] {
		opts.ResultsDir = *resultsDir
	}
	if set["target"] {
		opts.Target = *target
	}
	if set["cellsize"] {
		opts.CellSize = *cellSize
	}
	if set["folds"] {
		opts.Folds = *folds
	}
	if set["seed"] {
		opts.Seed = *seed
	}
	if set["mask"] {
		opts.MaskToBoundary = *mask
	}
	if set["v"] {
		opts.Verbose = *verbose
	}

	logger := logging.NewLogger(opts.Verbose).With("run", uuid.NewString())
	defer logger.Sync()
	ctx := logging.WithLogger(context.Background(), logger)

	pipe, err := geostat.NewPipeline(opts)
	if err != nil {
		log.Fatalf("configure: %v", err)
	}
	report, err := pipe.Run(ctx)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	fmt.Printf("interpolated %q over a %dx%d grid from %d observations\n",
		report.Target, report.GridWidth, report.GridHeight, report.Points)
	if report.Estimator != "" {
		fmt.Printf("model: %s (%s estimator) nugget=%.6g psill=%.6g range=%.6g\n",
			report.Model.Model, report.Estimator,
			report.Model.Nugget, report.Model.Psill, report.Model.Range)
	} else {
		fmt.Printf("model: %s nugget=%.6g psill=%.6g range=%.6g\n",
			report.Model.Model, report.Model.Nugget, report.Model.Psill, report.Model.Range)
	}
	fmt.Printf("Root Mean Square Error (RMSE): %.6f\n", report.RMSE)
	fmt.Printf("Mean Error (ME): %.6f\n", report.ME)
	fmt.Printf("results: %s\n", report.KrigedTable)
	fmt.Printf("         %s\n", report.IDWTable)
	fmt.Printf("         %s\n", report.CVTable)
	fmt.Printf("         %s\n", report.KrigedRaster)
	fmt.Printf("         %s\n", report.IDWRaster)
}
