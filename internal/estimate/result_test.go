package estimate

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ironsheep/street-width-mcp/internal/detection"
	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/solver"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   ErrorCode
		wantOK bool
	}{
		{"no target pixels", detection.ErrNoTargetPixels, CodeNoTargetPixels, true},
		{"no edges", detection.ErrNoEdges, CodeNoEdges, true},
		{"no lines wrapped", fmt.Errorf("pitch 0: %w", detection.ErrNoLines), CodeNoLines, true},
		{"no segments", geometry.ErrNoSegments, CodeNoSegments, true},
		{"missing pitch data", solver.ErrMissingPitchData, CodeNoSegments, true},
		{"no solution", fmt.Errorf("top edge: %w", solver.ErrNoSolution), CodeNoSolution, true},
		{"io error", os.ErrNotExist, 0, false},
		{"other", errors.New("boom"), 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CodeOf(tt.err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResult(t *testing.T) {
	m := Measured(1.234)
	assert.False(t, m.IsNoBuffer())
	assert.Nil(t, m.Code)
	assert.Equal(t, "width=1.23", m.String())

	f := Failed(CodeRoadMissing, "no road edges in any capture")
	assert.False(t, f.IsNoBuffer())
	assert.Nil(t, f.Value)
	assert.Equal(t, "code=7 (road missing): no road edges in any capture", f.String())

	n := NoBuffer("edges touch")
	assert.True(t, n.IsNoBuffer())
	assert.Equal(t, "no buffer: edges touch", n.String())
}

func TestErrorCode_String(t *testing.T) {
	assert.Equal(t, "no target pixels", CodeNoTargetPixels.String())
	assert.Equal(t, "no solution", CodeNoSolution.String())
	assert.Equal(t, "code 42", ErrorCode(42).String())
}
