package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/imaging"
)

// Extraction failures, in pipeline order.
var (
	ErrNoEdges = errors.New("no edges detected")
	ErrNoLines = errors.New("no lines detected")
)

// Params configures Extract.
type Params struct {
	CannyLow      float64     `json:"canny_low"`
	CannyHigh     float64     `json:"canny_high"`
	CannyAperture int         `json:"canny_aperture"`
	Hough         HoughParams `json:"hough"`
}

// DefaultParams returns Canny 30/100 with a 5x5 aperture and
// DefaultHoughParams.
func DefaultParams() Params {
	return Params{
		CannyLow:      30,
		CannyHigh:     100,
		CannyAperture: 5,
		Hough:         DefaultHoughParams(),
	}
}

// Extraction holds the intermediate rasters of one run alongside the
// detected segments, for diagnostics.
type Extraction struct {
	Mask     *image.Gray
	Edges    *image.Gray
	Lines    []Line
	Segments []geometry.Segment
}

// Extract runs Canny and HoughLinesP on a cleaned mask. Segments are
// numbered "1".."n" in detection order.
//
// Returns ErrNoEdges when Canny finds nothing and ErrNoLines when the Hough
// transform finds nothing. The partial Extraction is returned with both
// errors.
func Extract(mask *image.Gray, p Params) (*Extraction, error) {
	edges, err := imaging.Canny(mask, p.CannyLow, p.CannyHigh, p.CannyAperture)
	if err != nil {
		return nil, fmt.Errorf("canny: %w", err)
	}
	ex := &Extraction{Mask: mask, Edges: edges}
	if imaging.CountNonZero(edges) == 0 {
		return ex, ErrNoEdges
	}

	ex.Lines = HoughLinesP(edges, p.Hough)
	if len(ex.Lines) == 0 {
		return ex, ErrNoLines
	}

	segs := make([]geometry.Segment, len(ex.Lines))
	for i, l := range ex.Lines {
		segs[i] = geometry.Segment{
			X1: float64(l.Start.X),
			Y1: float64(l.Start.Y),
			X2: float64(l.End.X),
			Y2: float64(l.End.Y),
		}
	}
	ex.Segments = geometry.Number(segs)
	return ex, nil
}

// ExtractLines is Extract without the intermediate rasters.
func ExtractLines(mask *image.Gray, p Params) ([]geometry.Segment, error) {
	ex, err := Extract(mask, p)
	if err != nil {
		return nil, err
	}
	return ex.Segments, nil
}

// LinesResult contains detected lines.
type LinesResult struct {
	Lines []Line `json:"lines"`
	Count int    `json:"count"`
}

// DetectLines returns the Hough segments of a mask before any filtering.
// Empty outcomes are reported as an empty result rather than an error.
func DetectLines(mask *image.Gray, p Params) (*LinesResult, error) {
	ex, err := Extract(mask, p)
	if err != nil && !errors.Is(err, ErrNoEdges) && !errors.Is(err, ErrNoLines) {
		return nil, err
	}
	lines := []Line{}
	if ex != nil && ex.Lines != nil {
		lines = ex.Lines
	}
	return &LinesResult{Lines: lines, Count: len(lines)}, nil
}
