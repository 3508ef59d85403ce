// Package solver recovers the elevation angle of an edge from its offsets
// in two captures taken 10° apart and converts a pair of angles into a
// ground distance.
//
// An edge seen at offset p0 from the image centerline at pitch 0° and at
// p10 at pitch −10° satisfies
//
//	tan(T) / tan(10 − T) = p0 / |p10|   when p10 < 0
//	tan(T) / tan(T − 10) = p0 / p10     otherwise
//
// where T is the angle below the horizon in degrees. With x = tan(T) and
// k = tan(10°) both forms reduce to k·x² + (1 − r)·x + r·k = 0 with
// r = p0/p10, which SolveAngle uses when Newton iteration fails.
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/ironsheep/street-width-mcp/internal/geometry"
)

const (
	// DefaultScale is the camera height in meters.
	DefaultScale = 2.5

	// DefaultMaxIterations caps Newton iteration.
	DefaultMaxIterations = 50

	// PitchStep is the pitch difference between the two captures in degrees.
	PitchStep = 10.0

	// Capture pitches used as EdgeSummary keys.
	PitchLevel = 0
	PitchDown  = -10
)

const (
	residualTol = 1e-10
	stepTol     = 1e-12
)

var (
	// ErrNoSolution is returned when no angle in (0°, 90°) satisfies the
	// offset ratio.
	ErrNoSolution = errors.New("no elevation angle solves the offset ratio")

	// ErrMissingPitchData is returned when a summary lacks one of the four
	// (pitch, edge) offsets.
	ErrMissingPitchData = errors.New("missing top/bottom data for pitch 0 or -10")
)

// Residual evaluates the offset equation at angle t (degrees).
func Residual(t, p0, p10 float64) float64 {
	tan := math.Tan(radians(t))
	if p10 < 0 {
		return tan/math.Tan(radians(PitchStep-t)) - p0/math.Abs(p10)
	}
	return tan/math.Tan(radians(t-PitchStep)) - p0/p10
}

// Seed returns the starting angle for Newton iteration: 8° for edges that
// move up between captures, 13° otherwise.
func Seed(p10 float64) float64 {
	if p10 < 0 {
		return 8
	}
	return 13
}

// SolveAngle solves for T with DefaultMaxIterations.
func SolveAngle(p0, p10 float64) (float64, error) {
	return Solver{Scale: DefaultScale, MaxIterations: DefaultMaxIterations}.Angle(p0, p10)
}

// Width returns scale × (cot tTop − cot tBottom). Angles are in degrees.
func Width(tTop, tBottom, scale float64) float64 {
	return scale * (cot(tTop) - cot(tBottom))
}

// Solver holds the calibration used by Solve.
type Solver struct {
	// Scale is the camera height in meters.
	Scale float64

	// MaxIterations caps Newton iteration per angle.
	MaxIterations int
}

// Solution is the outcome of a two-edge solve.
type Solution struct {
	P0Top     float64 `json:"p0_top"`
	P10Top    float64 `json:"p10_top"`
	P0Bottom  float64 `json:"p0_bottom"`
	P10Bottom float64 `json:"p10_bottom"`

	TTop    float64 `json:"t_top"`
	TBottom float64 `json:"t_bottom"`
	Width   float64 `json:"width"`
}

// Angle solves the offset equation for T in (0°, 90°).
//
// Newton iteration with a central finite-difference derivative starts from
// Seed(p10). If it does not converge inside the range, the closed form
// supplies the in-range root nearest the seed. The result depends only on
// the inputs.
func (s Solver) Angle(p0, p10 float64) (float64, error) {
	if p10 == 0 || !finite(p0) || !finite(p10) {
		return 0, fmt.Errorf("%w: p0=%g p10=%g", ErrNoSolution, p0, p10)
	}
	seed := Seed(p10)
	maxIter := s.MaxIterations
	if maxIter < 1 {
		maxIter = DefaultMaxIterations
	}

	f := func(t float64) float64 { return Residual(t, p0, p10) }
	if t, ok := newton(f, seed, maxIter); ok && t > 0 && t < 90 {
		return t, nil
	}

	roots := closedForm(p0 / p10)
	if len(roots) == 0 {
		return 0, fmt.Errorf("%w: p0=%g p10=%g", ErrNoSolution, p0, p10)
	}
	best := roots[0]
	for _, r := range roots[1:] {
		if math.Abs(r-seed) < math.Abs(best-seed) {
			best = r
		}
	}
	return best, nil
}

// Solve reads the four offsets for edge types top and bottom at pitch 0 and
// −10 from sum, solves both angles and returns the width.
func (s Solver) Solve(sum geometry.EdgeSummary, top, bottom geometry.EdgeType) (*Solution, error) {
	var sol Solution
	var ok [4]bool
	sol.P0Top, ok[0] = sum.Get(PitchLevel, top)
	sol.P10Top, ok[1] = sum.Get(PitchDown, top)
	sol.P0Bottom, ok[2] = sum.Get(PitchLevel, bottom)
	sol.P10Bottom, ok[3] = sum.Get(PitchDown, bottom)
	for _, present := range ok {
		if !present {
			return nil, ErrMissingPitchData
		}
	}

	var err error
	if sol.TTop, err = s.Angle(sol.P0Top, sol.P10Top); err != nil {
		return nil, fmt.Errorf("%s edge: %w", top, err)
	}
	if sol.TBottom, err = s.Angle(sol.P0Bottom, sol.P10Bottom); err != nil {
		return nil, fmt.Errorf("%s edge: %w", bottom, err)
	}

	scale := s.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	sol.Width = Width(sol.TTop, sol.TBottom, scale)
	return &sol, nil
}

func newton(f func(float64) float64, t0 float64, maxIter int) (float64, bool) {
	settings := &fd.Settings{Formula: fd.Central}
	t := t0
	for i := 0; i < maxIter; i++ {
		v := f(t)
		if !finite(v) {
			return t, false
		}
		if math.Abs(v) < residualTol {
			return t, true
		}
		d := fd.Derivative(f, t, settings)
		if d == 0 || !finite(d) {
			return t, false
		}
		step := v / d
		t -= step
		if !finite(t) {
			return t, false
		}
		if math.Abs(step) < stepTol {
			return t, math.Abs(f(t)) < 1e-8
		}
	}
	return t, false
}

// closedForm returns the roots of k·x² + (1 − r)·x + r·k = 0 as angles in
// (0°, 90°), ascending.
func closedForm(r float64) []float64 {
	k := math.Tan(radians(PitchStep))
	a, b, c := k, 1-r, r*k
	disc := b*b - 4*a*c
	if disc < 0 {
		return nil
	}
	// Stable pairing avoids cancellation when b² dominates.
	q := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
	var xs []float64
	if q != 0 {
		xs = append(xs, q/a, c/q)
	} else {
		xs = append(xs, 0)
	}

	var out []float64
	for _, x := range xs {
		t := degrees(math.Atan(x))
		if t > 0 && t < 90 {
			out = append(out, t)
		}
	}
	if len(out) == 2 && out[0] > out[1] {
		out[0], out[1] = out[1], out[0]
	}
	return out
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
func cot(d float64) float64     { return 1 / math.Tan(radians(d)) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
