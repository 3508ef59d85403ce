// Package estimate runs the width-estimation pipeline for one location:
// per-capture surface extraction, cross-capture aggregation and the angle
// solve, with the buffer classifier in front of the solve for the
// street-buffer variant.
//
// Pipeline failures are data. Every Measure call returns a Result with a
// width, an ErrorCode, or neither (the "no buffer" verdict). A Go error is
// returned only for failures outside the pipeline, such as invalid
// configuration or cancellation.
package estimate

import (
	"context"
	"fmt"
	"image"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/street-width-mcp/internal/config"
	"github.com/ironsheep/street-width-mcp/internal/detection"
	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/imaging"
	"github.com/ironsheep/street-width-mcp/internal/logging"
	"github.com/ironsheep/street-width-mcp/internal/solver"
)

// Variant selects what an Engine measures.
type Variant int

const (
	// Sidewalk measures between the top and bottom edge of the sidewalk.
	Sidewalk Variant = iota

	// Buffer measures between the sidewalk's bottom edge and the road's top
	// edge, after the buffer classifier.
	Buffer
)

// String returns "sidewalk" or "buffer".
func (v Variant) String() string {
	if v == Buffer {
		return "buffer"
	}
	return "sidewalk"
}

// ParseVariant accepts "sidewalk", "buffer" and "street_buffer".
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sidewalk", "":
		return Sidewalk, nil
	case "buffer", "street_buffer", "street-buffer":
		return Buffer, nil
	default:
		return Sidewalk, fmt.Errorf("unknown variant %q (want sidewalk or buffer)", s)
	}
}

// Capture is one photograph of a location with its segmentation labels.
type Capture struct {
	// Pitch is the camera pitch in degrees, 0 or -10.
	Pitch int `json:"pitch"`

	// Name is the capture's base file name without extension, used for
	// diagnostic side files.
	Name string `json:"name"`

	Labels imaging.LabelTable `json:"-"`
}

// Location is the unit of measurement: the captures of one side of one
// link.
type Location struct {
	// ID labels the location in logs.
	ID string `json:"id"`

	// Dir receives diagnostic files. Empty disables them.
	Dir string `json:"dir,omitempty"`

	Captures []Capture `json:"captures"`
}

// Sink receives intermediate results for rendering. Implementations must
// be safe for concurrent use; CaptureLines is called from worker
// goroutines.
type Sink interface {
	CaptureLines(loc Location, c Capture, class imaging.Class, segs []geometry.Segment)
	TypedEdges(loc Location, typed []geometry.Segment)
	SidewalkSelection(loc Location, candidates, selected []geometry.Segment)
	BufferEdges(loc Location, edges []geometry.Segment)
}

type nopSink struct{}

func (nopSink) CaptureLines(Location, Capture, imaging.Class, []geometry.Segment)  {}
func (nopSink) TypedEdges(Location, []geometry.Segment)                            {}
func (nopSink) SidewalkSelection(Location, []geometry.Segment, []geometry.Segment) {}
func (nopSink) BufferEdges(Location, []geometry.Segment)                           {}

// Engine runs the pipeline with a fixed configuration. It holds no
// per-location state and is safe for concurrent use.
type Engine struct {
	cfg        config.Config
	params     detection.Params
	bounds     []int
	solver     solver.Solver
	thresholds BufferThresholds
	sink       Sink
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink routes intermediate results to s.
func WithSink(s Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// NewEngine creates an engine. A nil cfg uses config.Default.
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg: *cfg,
		params: detection.Params{
			CannyLow:      cfg.CannyLow,
			CannyHigh:     cfg.CannyHigh,
			CannyAperture: cfg.CannyAperture,
			Hough: detection.HoughParams{
				Rho:       1,
				Theta:     detection.DefaultHoughParams().Theta,
				Threshold: cfg.HoughThreshold,
				MinLength: cfg.HoughMinLength,
				MaxGap:    cfg.HoughMaxGap,
			},
		},
		bounds: cfg.Boundaries(),
		solver: solver.Solver{Scale: cfg.Scale, MaxIterations: cfg.MaxIterations},
		thresholds: BufferThresholds{
			Alignment:      cfg.AlignmentThreshold,
			AlignmentRatio: cfg.AlignmentRatio,
			Proximity:      cfg.ProximityThreshold,
		},
		sink: nopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the detection parameters derived from the configuration.
func (e *Engine) Params() detection.Params { return e.params }

// Config returns a copy of the engine configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// ExtractSurface runs mask building, line extraction, horizontal
// filtering, dedup and band splitting for one surface class of one
// capture. Errors are the stage sentinels, see CodeOf.
func (e *Engine) ExtractSurface(c Capture, class imaging.Class) ([]geometry.Segment, error) {
	mask, err := detection.BuildMask(c.Labels, class, e.cfg.MinAreaDivisor)
	if err != nil {
		return nil, err
	}
	return e.ExtractMask(mask, c.Pitch, c.Name+" "+class.String())
}

// ExtractMask runs the stages after mask building on a cleaned binary mask
// taken at pitch. label names the mask in trace logs.
func (e *Engine) ExtractMask(mask *image.Gray, pitch int, label string) ([]geometry.Segment, error) {
	lines, err := detection.ExtractLines(mask, e.params)
	if err != nil {
		return nil, err
	}
	horiz := geometry.FilterHorizontal(lines, e.cfg.AngleTolerance)
	kept := geometry.Number(geometry.Dedup(horiz, e.cfg.DedupBuffer, e.cfg.OverlapThreshold))
	pieces, err := geometry.SplitByBoundaries(kept, e.bounds, pitch)
	if err != nil {
		return nil, err
	}
	logging.Tracef("%s: %d lines, %d horizontal, %d after dedup, %d pieces",
		label, len(lines), len(horiz), len(kept), len(pieces))
	return pieces, nil
}

// Measure dispatches to MeasureSidewalk or MeasureBuffer.
func (e *Engine) Measure(ctx context.Context, v Variant, loc Location) (Result, error) {
	if v == Buffer {
		return e.MeasureBuffer(ctx, loc)
	}
	return e.MeasureSidewalk(ctx, loc)
}

// MeasureSidewalk estimates the sidewalk width of a location.
//
// The first capture that fails extraction decides the error code. Missing
// pitch/edge combinations give CodeNoSegments and a negative width gives
// CodeNegativeWidth.
func (e *Engine) MeasureSidewalk(ctx context.Context, loc Location) (Result, error) {
	runs, err := e.extract(ctx, loc, imaging.ClassSidewalk)
	if err != nil {
		return Result{}, err
	}
	segs, failure, err := collect(loc, runs[0])
	if err != nil {
		return Result{}, err
	}
	if failure != nil {
		logging.Diagf("%s: sidewalk %s", loc.ID, failure)
		return *failure, nil
	}

	typed := geometry.WithCentralDistance(geometry.AssignEdgeTypes(segs), e.cfg.CenterY)
	e.sink.TypedEdges(loc, typed)

	sol, err := e.solver.Solve(geometry.Summarize(typed), geometry.Top, geometry.Bottom)
	if err != nil {
		return e.solveFailure(loc, err)
	}
	if sol.Width < 0 {
		r := Failed(CodeNegativeWidth, fmt.Sprintf("width %.3f m", sol.Width))
		r.Solution = sol
		logging.Diagf("%s: sidewalk %s", loc.ID, r)
		return r, nil
	}
	r := Measured(sol.Width)
	r.Solution = sol
	logging.Diagf("%s: sidewalk %s (T_top %.3f°, T_bottom %.3f°)", loc.ID, r, sol.TTop, sol.TBottom)
	return r, nil
}

// MeasureBuffer estimates the street buffer width of a location.
//
// Code precedence: a surface missing from every capture (5, 6, 7), then a
// code produced while solving (3, 8, 9), then the first failing sidewalk
// capture, then the first failing road capture. Without a code the result
// is a width or the classified "no buffer" verdict.
func (e *Engine) MeasureBuffer(ctx context.Context, loc Location) (Result, error) {
	runs, err := e.extract(ctx, loc, imaging.ClassSidewalk, imaging.ClassRoad)
	if err != nil {
		return Result{}, err
	}
	sidewalk, swFailure, err := collect(loc, runs[0])
	if err != nil {
		return Result{}, err
	}
	road, rdFailure, err := collect(loc, runs[1])
	if err != nil {
		return Result{}, err
	}

	switch {
	case len(sidewalk) == 0 && len(road) == 0:
		return e.bufferFailure(loc, Failed(CodeBothMissing, "no sidewalk or road edges in any capture"))
	case len(sidewalk) == 0:
		return e.bufferFailure(loc, Failed(CodeSidewalkMissing, "no sidewalk edges in any capture"))
	case len(road) == 0:
		return e.bufferFailure(loc, Failed(CodeRoadMissing, "no road edges in any capture"))
	}

	typed := geometry.AssignEdgeTypes(sidewalk)
	bottoms := SelectSidewalkBottom(typed)
	e.sink.SidewalkSelection(loc, typed, bottoms)

	r := e.solveBuffer(loc, bottoms, SelectRoadTop(road))
	if r.Code != nil {
		return e.bufferFailure(loc, r)
	}
	if swFailure != nil {
		return e.bufferFailure(loc, *swFailure)
	}
	if rdFailure != nil {
		return e.bufferFailure(loc, *rdFailure)
	}
	logging.Diagf("%s: buffer %s", loc.ID, r)
	return r, nil
}

func (e *Engine) solveBuffer(loc Location, bottoms, tops []geometry.Segment) Result {
	edges, pairs := MatchBufferEdges(bottoms, tops, e.cfg.CenterY)
	if len(pairs) == 0 {
		return NoBuffer("no cluster has sidewalk and road edges at both pitches")
	}
	e.sink.BufferEdges(loc, edges)

	v := ClassifyBuffer(pairs, e.thresholds)
	if v.NoBuffer {
		r := NoBuffer(v.Reason())
		r.Verdict = &v
		return r
	}

	// The sidewalk edge is farther from the camera, so it takes the first
	// slot of the cotangent difference.
	sol, err := e.solver.Solve(geometry.Summarize(edges), geometry.Bottom, geometry.Top)
	if err != nil {
		code, ok := CodeOf(err)
		if !ok {
			code = CodeNoSolution
		}
		r := Failed(code, err.Error())
		r.Verdict = &v
		return r
	}
	if sol.Width < 0 {
		r := Failed(CodeNegativeBuffer, fmt.Sprintf("buffer width %.3f m", sol.Width))
		r.Solution, r.Verdict = sol, &v
		return r
	}
	r := Measured(sol.Width)
	r.Solution, r.Verdict = sol, &v
	return r
}

func (e *Engine) bufferFailure(loc Location, r Result) (Result, error) {
	logging.Diagf("%s: buffer %s", loc.ID, r)
	return r, nil
}

func (e *Engine) solveFailure(loc Location, err error) (Result, error) {
	code, ok := CodeOf(err)
	if !ok {
		return Result{}, err
	}
	r := Failed(code, err.Error())
	logging.Diagf("%s: sidewalk %s", loc.ID, r)
	return r, nil
}

type surfaceRun struct {
	segs []geometry.Segment
	err  error
}

// extract runs ExtractSurface for every (class, capture) pair concurrently.
// runs[i][j] belongs to classes[i] and loc.Captures[j].
func (e *Engine) extract(ctx context.Context, loc Location, classes ...imaging.Class) ([][]surfaceRun, error) {
	if len(loc.Captures) == 0 {
		return nil, fmt.Errorf("location %s has no captures", loc.ID)
	}
	runs := make([][]surfaceRun, len(classes))
	for i := range runs {
		runs[i] = make([]surfaceRun, len(loc.Captures))
	}

	g, ctx := errgroup.WithContext(ctx)
	for ci, class := range classes {
		for pi, c := range loc.Captures {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				segs, err := e.ExtractSurface(c, class)
				runs[ci][pi] = surfaceRun{segs: segs, err: err}
				if err == nil {
					e.sink.CaptureLines(loc, c, class, segs)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// collect concatenates the successful runs and returns the first pipeline
// failure in capture order. Errors outside the pipeline are returned as
// errors.
func collect(loc Location, runs []surfaceRun) ([]geometry.Segment, *Result, error) {
	var segs []geometry.Segment
	var failure *Result
	for i, r := range runs {
		c := loc.Captures[i]
		if r.err == nil {
			segs = append(segs, r.segs...)
			continue
		}
		code, ok := CodeOf(r.err)
		if !ok {
			return nil, nil, fmt.Errorf("%s %s: %w", loc.ID, c.Name, r.err)
		}
		if failure == nil {
			f := Failed(code, fmt.Sprintf("pitch %d: %v", c.Pitch, r.err))
			failure = &f
		}
	}
	return segs, failure, nil
}
