package estimate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/street-width-mcp/internal/detection"
	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/solver"
)

// ErrorCode explains why a location has no measurement. Codes are written
// to the output tables and must stay stable.
type ErrorCode int

const (
	CodeNoTargetPixels  ErrorCode = 0 // no pixels of the surface class
	CodeNoEdges         ErrorCode = 1
	CodeNoLines         ErrorCode = 2
	CodeNoSegments      ErrorCode = 3 // no banded segments, or a pitch/edge combination is missing
	CodeNegativeWidth   ErrorCode = 4
	CodeBothMissing     ErrorCode = 5 // buffer: neither surface detected in any capture
	CodeSidewalkMissing ErrorCode = 6
	CodeRoadMissing     ErrorCode = 7
	CodeNegativeBuffer  ErrorCode = 8
	CodeNoSolution      ErrorCode = 9
)

var codeText = map[ErrorCode]string{
	CodeNoTargetPixels:  "no target pixels",
	CodeNoEdges:         "no edges",
	CodeNoLines:         "no lines",
	CodeNoSegments:      "no valid segmented lines",
	CodeNegativeWidth:   "negative width",
	CodeBothMissing:     "sidewalk and road missing",
	CodeSidewalkMissing: "sidewalk missing",
	CodeRoadMissing:     "road missing",
	CodeNegativeBuffer:  "negative buffer width",
	CodeNoSolution:      "no solution",
}

// String returns a short description of the code.
func (c ErrorCode) String() string {
	if s, ok := codeText[c]; ok {
		return s
	}
	return fmt.Sprintf("code %d", int(c))
}

// CodeOf maps a pipeline error to its code. The second result is false for
// errors outside the pipeline, such as I/O failures.
func CodeOf(err error) (ErrorCode, bool) {
	switch {
	case err == nil:
		return 0, false
	case errors.Is(err, detection.ErrNoTargetPixels):
		return CodeNoTargetPixels, true
	case errors.Is(err, detection.ErrNoEdges):
		return CodeNoEdges, true
	case errors.Is(err, detection.ErrNoLines):
		return CodeNoLines, true
	case errors.Is(err, geometry.ErrNoSegments), errors.Is(err, solver.ErrMissingPitchData):
		return CodeNoSegments, true
	case errors.Is(err, solver.ErrNoSolution):
		return CodeNoSolution, true
	default:
		return 0, false
	}
}

// Result is the outcome for one location. Exactly one of Value and Code is
// set, except for the classified "no buffer" verdict where both are nil.
type Result struct {
	Value  *float64   `json:"value"`
	Code   *ErrorCode `json:"error_code"`
	Reason string     `json:"reason,omitempty"`

	Solution *solver.Solution `json:"solution,omitempty"`
	Verdict  *Verdict         `json:"verdict,omitempty"`
}

// Measured returns a Result carrying width v in meters.
func Measured(v float64) Result {
	return Result{Value: &v}
}

// Failed returns a Result carrying code c.
func Failed(c ErrorCode, reason string) Result {
	return Result{Code: &c, Reason: reason}
}

// NoBuffer returns the classified verdict: edges were found and they touch.
func NoBuffer(reason string) Result {
	return Result{Reason: reason}
}

// IsNoBuffer reports whether r is the classified "no buffer" verdict.
func (r Result) IsNoBuffer() bool {
	return r.Value == nil && r.Code == nil
}

// String renders the result for logs.
func (r Result) String() string {
	var b strings.Builder
	switch {
	case r.Value != nil:
		fmt.Fprintf(&b, "width=%.2f", *r.Value)
	case r.Code != nil:
		fmt.Fprintf(&b, "code=%d (%s)", int(*r.Code), *r.Code)
	default:
		b.WriteString("no buffer")
	}
	if r.Reason != "" {
		b.WriteString(": ")
		b.WriteString(r.Reason)
	}
	return b.String()
}
