// Package batch measures every midpoint of a manifest. Links are
// distributed over a bounded worker pool; a failing location becomes a
// row with an error code and never stops the run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/street-width-mcp/internal/estimate"
	"github.com/ironsheep/street-width-mcp/internal/imaging"
	"github.com/ironsheep/street-width-mcp/internal/logging"
	"github.com/ironsheep/street-width-mcp/internal/manifest"
	"github.com/ironsheep/street-width-mcp/internal/output"
)

// Options configures a Runner.
type Options struct {
	// Root holds the captures, laid out as <root>/<pano_id>/<side>.
	Root string

	// OutDir receives one CSV per link. Empty disables CSV output.
	OutDir string

	// GeoJSONPath receives every row as one FeatureCollection. Optional.
	GeoJSONPath string

	// Store receives every row under a new run id. Optional.
	Store *output.Store

	Variant estimate.Variant
	Workers int

	// FOV is the field of view of a capture that is not aligned with its
	// link; AlignedFOV is used otherwise.
	FOV        float64
	AlignedFOV float64

	// Diagnostics writes side files next to the captures, or under
	// DiagnosticsDir/<pano_id>/<side> when DiagnosticsDir is set.
	Diagnostics    bool
	DiagnosticsDir string

	// Cache shares label tables with other users. A private cache is
	// created when nil.
	Cache *imaging.LabelCache
}

// Summary describes a finished run.
type Summary struct {
	RunID     string   `json:"run_id"`
	Links     int      `json:"links"`
	Locations int      `json:"locations"`
	Measured  int      `json:"measured"`
	Failed    int      `json:"failed"`
	NoBuffer  int      `json:"no_buffer"`
	Files     []string `json:"files,omitempty"`
}

// Runner measures manifests with one engine.
type Runner struct {
	engine *estimate.Engine
	opts   Options
	cache  *imaging.LabelCache
}

// NewRunner creates a runner. Workers below 1 run links one at a time.
func NewRunner(e *estimate.Engine, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	cache := opts.Cache
	if cache == nil {
		cache = imaging.NewLabelCache(e.Config().ImageSize)
	}
	return &Runner{engine: e, opts: opts, cache: cache}
}

// Run measures every link of m and writes the configured outputs. Rows
// are returned in link order. Cancelling ctx stops the run between
// locations and returns the context error.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest) (*Summary, []output.Row, error) {
	sum := &Summary{Links: len(m.IDs)}
	if r.opts.Store != nil {
		id, err := r.opts.Store.StartRun(ctx, r.opts.Variant)
		if err != nil {
			return nil, nil, err
		}
		sum.RunID = id
	}
	logging.Opsf("batch: %s run %s over %d links (%d with both sides), %d workers",
		r.opts.Variant, sum.RunID, len(m.IDs), m.BothSides(), r.opts.Workers)

	perLink := make([][]output.Row, len(m.IDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, id := range m.IDs {
		g.Go(func() error {
			rows, err := r.measureLink(ctx, m.Links[id])
			if err != nil {
				return err
			}
			perLink[i] = rows

			var file string
			if r.opts.OutDir != "" {
				if file, err = output.WriteLinkCSV(r.opts.OutDir, r.opts.Variant, rows); err != nil {
					return err
				}
			}
			if r.opts.Store != nil {
				if err := r.opts.Store.Record(ctx, sum.RunID, rows); err != nil {
					return err
				}
			}

			mu.Lock()
			defer mu.Unlock()
			if file != "" {
				sum.Files = append(sum.Files, file)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []output.Row
	for _, rows := range perLink {
		for _, row := range rows {
			sum.Locations++
			switch {
			case row.Result.Value != nil:
				sum.Measured++
			case row.Result.Code != nil:
				sum.Failed++
			default:
				sum.NoBuffer++
			}
		}
		all = append(all, rows...)
	}

	if r.opts.GeoJSONPath != "" {
		if err := writeGeoJSON(r.opts.GeoJSONPath, r.opts.Variant, all); err != nil {
			return nil, nil, err
		}
		sum.Files = append(sum.Files, r.opts.GeoJSONPath)
	}
	if r.opts.Store != nil {
		if err := r.opts.Store.FinishRun(context.WithoutCancel(ctx), sum.RunID, sum.Locations, sum.Failed); err != nil {
			return nil, nil, err
		}
	}

	logging.Opsf("batch: %d locations, %d measured, %d failed, %d no buffer",
		sum.Locations, sum.Measured, sum.Failed, sum.NoBuffer)
	return sum, all, nil
}

// measureLink measures every side of one link. Each point is one location.
func (r *Runner) measureLink(ctx context.Context, points []manifest.Point) ([]output.Row, error) {
	rows := make([]output.Row, 0, len(points))
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := r.MeasurePoint(ctx, p)
		if err != nil {
			return nil, err
		}
		rows = append(rows, output.Row{Point: p, Result: res})
	}
	return rows, nil
}

// MeasurePoint loads the captures of one midpoint and measures it.
//
// Captures whose label table is missing or unreadable are skipped with a
// log line. A location left without captures reports CodeNoEdges.
func (r *Runner) MeasurePoint(ctx context.Context, p manifest.Point) (estimate.Result, error) {
	fov := r.opts.FOV
	if fov == 0 {
		fov = r.engine.Config().SidewalkFOV
		if r.opts.Variant == estimate.Buffer {
			fov = r.engine.Config().BufferFOV
		}
	}
	aligned := r.opts.AlignedFOV
	if aligned == 0 {
		aligned = r.engine.Config().AlignedFOV
	}
	shots := manifest.Plan(r.opts.Root, p, fov, aligned)

	loc := estimate.Location{ID: fmt.Sprintf("%s/%s", p.LinkID, p.Side)}
	if r.opts.Diagnostics {
		loc.Dir = shots[0].Dir
		if r.opts.DiagnosticsDir != "" {
			loc.Dir = filepath.Join(r.opts.DiagnosticsDir, p.PanoID, p.Side)
		}
	}

	var paths []string
	defer func() {
		for _, path := range paths {
			r.cache.Evict(path)
		}
	}()
	for _, s := range shots {
		path, err := s.FindLabels()
		if err != nil {
			logging.Diagf("%s: %v", loc.ID, err)
			continue
		}
		labels, err := r.cache.Load(path)
		if err != nil {
			logging.Opsf("%s: %v", loc.ID, err)
			continue
		}
		paths = append(paths, path)
		loc.Captures = append(loc.Captures, estimate.Capture{Pitch: s.Pitch, Name: s.Name, Labels: labels})
	}
	if len(loc.Captures) == 0 {
		return estimate.Failed(estimate.CodeNoEdges, "no readable captures"), nil
	}

	res, err := r.engine.Measure(ctx, r.opts.Variant, loc)
	if err != nil {
		if ctx.Err() != nil {
			return estimate.Result{}, ctx.Err()
		}
		// Failures outside the pipeline stay local to this location.
		logging.Opsf("%s: %v", loc.ID, err)
		return estimate.Failed(estimate.CodeNoEdges, err.Error()), nil
	}
	return res, nil
}

func writeGeoJSON(path string, v estimate.Variant, rows []output.Row) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return output.WriteGeoJSON(f, v, rows)
}
