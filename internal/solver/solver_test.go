package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/street-width-mcp/internal/geometry"
)

func TestSolveAngle(t *testing.T) {
	tests := []struct {
		name    string
		p0, p10 float64
		want    float64
	}{
		{"upward edge newton", 50, -20, 7.133967412981},
		{"steep upward edge", 30, -60, 3.340854699436},
		{"downward edge newton", 60, 20, 15.161018508248},
		{"newton leaves range, closed form", -30, 10, 7.490462660964},
		{"closed form small angle", -5, 20, 2.009780988913},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SolveAngle(tt.p0, tt.p10)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
			assert.InDelta(t, 0, Residual(got, tt.p0, tt.p10), 1e-6)
		})
	}
}

func TestSolveAngle_NoSolution(t *testing.T) {
	tests := []struct {
		name    string
		p0, p10 float64
	}{
		{"zero p10", 40, 0},
		{"negative discriminant", 200, 150},
		{"roots out of range", 10, 20},
		{"nan", math.NaN(), -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SolveAngle(tt.p0, tt.p10)
			assert.True(t, errors.Is(err, ErrNoSolution), "got %v", err)
		})
	}
}

func TestSeed(t *testing.T) {
	assert.Equal(t, 8.0, Seed(-1))
	assert.Equal(t, 13.0, Seed(0))
	assert.Equal(t, 13.0, Seed(5))
}

func TestWidth(t *testing.T) {
	assert.InDelta(t, 0, Width(30, 30, 2.5), 1e-12)
	// cot 45° = 1, cot 60° = 1/√3
	assert.InDelta(t, 2.5*(1-1/math.Sqrt(3)), Width(45, 60, 2.5), 1e-12)
	assert.Less(t, Width(60, 45, 2.5), 0.0)
}

func summary(p0Top, p10Top, p0Bottom, p10Bottom float64) geometry.EdgeSummary {
	return geometry.EdgeSummary{
		{Pitch: PitchLevel, Type: geometry.Top}:    p0Top,
		{Pitch: PitchDown, Type: geometry.Top}:     p10Top,
		{Pitch: PitchLevel, Type: geometry.Bottom}: p0Bottom,
		{Pitch: PitchDown, Type: geometry.Bottom}:  p10Bottom,
	}
}

func TestSolve_Deterministic(t *testing.T) {
	s := Solver{Scale: DefaultScale, MaxIterations: DefaultMaxIterations}
	sum := summary(50, -20, -30, 10)

	first, err := s.Solve(sum, geometry.Top, geometry.Bottom)
	require.NoError(t, err)

	assert.Greater(t, first.TTop, 0.0)
	assert.Less(t, first.TTop, 90.0)
	assert.Greater(t, first.TBottom, 0.0)
	assert.Less(t, first.TBottom, 90.0)
	assert.InDelta(t, 0.960803007753, first.Width, 1e-6)

	for i := 0; i < 5; i++ {
		again, err := s.Solve(sum, geometry.Top, geometry.Bottom)
		require.NoError(t, err)
		assert.InDelta(t, first.Width, again.Width, 1e-6)
	}
}

func TestSolve_MissingPitchData(t *testing.T) {
	sum := summary(50, -20, -30, 10)
	delete(sum, geometry.EdgeKey{Pitch: PitchDown, Type: geometry.Bottom})

	_, err := Solver{}.Solve(sum, geometry.Top, geometry.Bottom)
	assert.True(t, errors.Is(err, ErrMissingPitchData))
}

func TestSolve_NoSolutionNamesEdge(t *testing.T) {
	_, err := Solver{}.Solve(summary(50, -20, 10, 20), geometry.Top, geometry.Bottom)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSolution))
	assert.Contains(t, err.Error(), "bottom edge")
}
