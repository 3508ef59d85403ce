package detection

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// edgeRow draws a one pixel edge from (x1, y) to (x2, y) inclusive.
func edgeRow(img *image.Gray, y, x1, x2 int) {
	for x := x1; x <= x2; x++ {
		img.SetGray(x, y, color.Gray{Y: 255})
	}
}

func TestHoughLinesP_Horizontal(t *testing.T) {
	edges := image.NewGray(image.Rect(0, 0, 80, 40))
	edgeRow(edges, 20, 5, 60)

	got := HoughLinesP(edges, DefaultHoughParams())
	require.Len(t, got, 1)
	assert.Equal(t, Point{X: 5, Y: 20}, got[0].Start)
	assert.Equal(t, Point{X: 60, Y: 20}, got[0].End)
	assert.Equal(t, 55.0, got[0].Length)
	assert.Equal(t, 0.0, got[0].AngleDegrees)
}

func TestHoughLinesP_Vertical(t *testing.T) {
	edges := image.NewGray(image.Rect(0, 0, 80, 80))
	for y := 5; y <= 60; y++ {
		edges.SetGray(30, y, color.Gray{Y: 255})
	}

	got := HoughLinesP(edges, DefaultHoughParams())
	require.Len(t, got, 1)
	assert.Equal(t, Point{X: 30, Y: 60}, got[0].Start)
	assert.Equal(t, Point{X: 30, Y: 5}, got[0].End)
}

func TestHoughLinesP_TooFewVotes(t *testing.T) {
	edges := image.NewGray(image.Rect(0, 0, 80, 40))
	edgeRow(edges, 20, 5, 15)

	assert.Empty(t, HoughLinesP(edges, DefaultHoughParams()))
}

func TestHoughLinesP_BridgesGaps(t *testing.T) {
	edges := image.NewGray(image.Rect(0, 0, 120, 40))
	edgeRow(edges, 20, 0, 40)
	edgeRow(edges, 20, 60, 100)

	got := HoughLinesP(edges, DefaultHoughParams())
	require.Len(t, got, 1, "a 19px gap is within the 30px limit")
	assert.ElementsMatch(t, []int{0, 100}, []int{got[0].Start.X, got[0].End.X})
}

func TestHoughLinesP_EmptyInput(t *testing.T) {
	assert.Empty(t, HoughLinesP(image.NewGray(image.Rect(0, 0, 0, 0)), DefaultHoughParams()))
	assert.Empty(t, HoughLinesP(image.NewGray(image.Rect(0, 0, 20, 20)), DefaultHoughParams()))
}

func TestHoughNumAngle(t *testing.T) {
	assert.Equal(t, 180, houghNumAngle(float64(float32(DefaultHoughParams().Theta))))
	assert.Equal(t, 4, houghNumAngle(0.75))
}

// bandMask fills full-width rows [y1, y2) of a w x h mask.
func bandMask(w, h, y1, y2 int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for y := y1; y < y2; y++ {
		edgeRow(m, y, 0, w-1)
	}
	return m
}

func TestExtract_Band(t *testing.T) {
	mask := bandMask(200, 200, 50, 150)

	ex, err := Extract(mask, DefaultParams())
	require.NoError(t, err)
	require.NotEmpty(t, ex.Segments)

	rows := make(map[float64]bool)
	for i, s := range ex.Segments {
		assert.Equal(t, ex.Lines[i].Start.X, int(s.X1))
		assert.Contains(t, []float64{49, 149}, s.Y1, "segment %s", s.ID)
		assert.Contains(t, []float64{49, 149}, s.Y2, "segment %s", s.ID)
		rows[s.Y1] = true
	}
	assert.True(t, rows[49] && rows[149], "both band edges found: %v", rows)
	assert.Equal(t, "1", ex.Segments[0].ID)
}

func TestExtract_Deterministic(t *testing.T) {
	mask := bandMask(160, 120, 30, 90)

	first, err := ExtractLines(mask, DefaultParams())
	require.NoError(t, err)
	second, err := ExtractLines(mask, DefaultParams())
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated extraction differs (-first +second):\n%s", diff)
	}
}

func TestExtract_Errors(t *testing.T) {
	_, err := ExtractLines(image.NewGray(image.Rect(0, 0, 40, 40)), DefaultParams())
	assert.True(t, errors.Is(err, ErrNoEdges), "got %v", err)

	blob := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 8; y < 11; y++ {
		edgeRow(blob, y, 8, 10)
	}
	ex, err := Extract(blob, DefaultParams())
	assert.True(t, errors.Is(err, ErrNoLines), "got %v", err)
	require.NotNil(t, ex)
	assert.NotNil(t, ex.Edges)

	p := DefaultParams()
	p.CannyAperture = 4
	_, err = ExtractLines(blob, p)
	assert.ErrorContains(t, err, "aperture")
}

func TestDetectLines(t *testing.T) {
	got, err := DetectLines(bandMask(200, 200, 50, 150), DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, len(got.Lines), got.Count)
	assert.NotZero(t, got.Count)

	// Empty masks give an empty result, not an error.
	empty, err := DetectLines(image.NewGray(image.Rect(0, 0, 40, 40)), DefaultParams())
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.NotNil(t, empty.Lines)

	p := DefaultParams()
	p.CannyAperture = 4
	_, err = DetectLines(bandMask(40, 40, 10, 20), p)
	assert.Error(t, err)
}
