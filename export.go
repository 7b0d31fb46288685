package geostat

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strconv"

	"github.com/flywave/go-cog"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteSurfaceTable writes one tab-delimited row per grid cell: X, Y,
// the prediction, and the kriging variance when the surface carries one.
func WriteSurfaceTable(path string, s *Surface) error {
	return writeTable(path, func(w *bufio.Writer) {
		if s.Variance != nil {
			fmt.Fprintln(w, "X\tY\tpred\tvar")
		} else {
			fmt.Fprintln(w, "X\tY\tpred")
		}
		for i, c := range s.Grid.Coordinates {
			if s.Variance != nil {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					formatFloat(c[0]), formatFloat(c[1]), formatFloat(c[2]), formatFloat(s.Variance[i]))
			} else {
				fmt.Fprintf(w, "%s\t%s\t%s\n",
					formatFloat(c[0]), formatFloat(c[1]), formatFloat(c[2]))
			}
		}
	})
}

// WriteCVTable writes the cross-validation records, one row per
// observation.
func WriteCVTable(path string, records []CVRecord) error {
	return writeTable(path, func(w *bufio.Writer) {
		fmt.Fprintln(w, "X\tY\tobserved\tpredicted\tresidual")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				formatFloat(r.X), formatFloat(r.Y),
				formatFloat(r.Observed), formatFloat(r.Predicted), formatFloat(r.Residual))
		}
	})
}

// writeTable lands the file through a temp-then-rename step so a failed
// run leaves no partially-written artifact. Existing files are
// overwritten.
func writeTable(path string, fill func(*bufio.Writer)) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write table %s: %v", path, err)
	}
	w := bufio.NewWriter(f)
	fill(w)
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write table %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write table %s: %v", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write table %s: %v", path, err)
	}
	return nil
}

// WriteRaster writes the surface as a single-band float64 GeoTIFF
// aligned with the grid, through the same temp-then-rename step.
func WriteRaster(path string, s *Surface) error {
	tiledata, si, bbox, srs := s.Grid.TileData()
	rect := image.Rect(0, 0, int(si[0]), int(si[1]))
	src := cog.NewSource(tiledata, &rect, cog.CTLZW)

	tmp := path + ".tmp"
	if err := cog.WriteTile(tmp, src, bbox, srs, si, nil); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("raster %s: %w: %v", path, ErrRasterWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("raster %s: %w: %v", path, ErrRasterWrite, err)
	}
	return nil
}
