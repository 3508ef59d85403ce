// Package output writes measurement results: one CSV per link in the
// layout of the manifest, a GeoJSON FeatureCollection, and a SQLite
// results store keyed by run id.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/street-width-mcp/internal/estimate"
	"github.com/ironsheep/street-width-mcp/internal/manifest"
)

// NoBufferText is written in the width column for the classified "no
// buffer" verdict.
const NoBufferText = "None"

// Row is one manifest point with the result of its link side.
type Row struct {
	manifest.Point
	Result estimate.Result
}

var pointColumns = []string{
	"link_id", "point_id", "bearing", "side", "pano_id",
	"pano_lat", "pano_lon", "pano_heading", "pano_date",
}

// Columns returns the CSV header for variant v.
func Columns(v estimate.Variant) []string {
	cols := append([]string(nil), pointColumns...)
	if v == estimate.Buffer {
		return append(cols, "buffer_width", "buffer_error_code")
	}
	return append(cols, "width", "error_code")
}

// Record returns the CSV fields of r in Columns order.
func (r Row) Record() []string {
	return []string{
		r.LinkID,
		r.PointID,
		FormatFloat(r.Bearing),
		r.Side,
		r.PanoID,
		FormatFloat(r.PanoLat),
		FormatFloat(r.PanoLon),
		FormatFloat(r.PanoHeading),
		r.PanoDate,
		FormatWidth(r.Result),
		FormatCode(r.Result),
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatWidth renders the width column: the width rounded to two
// decimals, NoBufferText for the no-buffer verdict, or empty.
func FormatWidth(r estimate.Result) string {
	switch {
	case r.Value != nil:
		return FormatFloat(Round2(*r.Value))
	case r.IsNoBuffer():
		return NoBufferText
	default:
		return ""
	}
}

// FormatCode renders the error code column, empty without a code.
func FormatCode(r estimate.Result) string {
	if r.Code == nil {
		return ""
	}
	return strconv.Itoa(int(*r.Code))
}

// FormatFloat writes v in its shortest exact decimal form with at least
// one fractional digit ("3.0", "1.55").
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".IN") {
		s += ".0"
	}
	return s
}

// WriteCSV writes the header and rows.
func WriteCSV(w io.Writer, v estimate.Variant, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(v)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLinkCSV writes the rows of one link to <dir>/<pano_id>.csv, named
// after the first row's panorama, and returns the path.
func WriteLinkCSV(dir string, v estimate.Variant, rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows to write")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, rows[0].PanoID+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := WriteCSV(f, v, rows); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
