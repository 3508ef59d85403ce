package diagnostics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/street-width-mcp/internal/config"
	"github.com/ironsheep/street-width-mcp/internal/estimate"
	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/imaging"
)

func capture(pitch int, name string) estimate.Capture {
	var t imaging.LabelTable
	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			c := imaging.ClassRoad
			if y >= 10 && y < 20 {
				c = imaging.ClassSidewalk
			}
			t = append(t, imaging.PixelLabel{X: x, Y: y, Class: c})
		}
	}
	return estimate.Capture{Pitch: pitch, Name: name, Labels: t}
}

func estimateConfig() *config.Config {
	cfg := config.Default()
	cfg.ImageSize = 60
	cfg.CenterY = 20
	return cfg
}

func edges() []geometry.Segment {
	return []geometry.Segment{
		{ID: "1_1", Parent: "1", X1: 0, Y1: 9, X2: 10, Y2: 9, Cluster: 1, Pitch: 0, Type: geometry.Top},
		{ID: "2_1", Parent: "2", X1: 0, Y1: 19, X2: 10, Y2: 19, Cluster: 1, Pitch: 0, Type: geometry.Bottom},
		{ID: "1_1", Parent: "1", X1: 0, Y1: 5, X2: 10, Y2: 5, Cluster: 1, Pitch: -10, Type: geometry.Top},
		{ID: "2_1", Parent: "2", X1: 0, Y1: 12, X2: 10, Y2: 12, Cluster: 1, Pitch: -10, Type: geometry.Bottom},
	}
}

func TestRenderer_CaptureLines(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(60, 20, 10)
	loc := estimate.Location{ID: "loc", Dir: dir}

	r.CaptureLines(loc, capture(0, "pitch0_heading90"), imaging.ClassSidewalk, edges()[:2])
	r.CaptureLines(loc, capture(0, "pitch0_heading90"), imaging.ClassRoad, edges()[:1])

	require.NoError(t, r.Err())
	want := []string{
		filepath.Join(dir, "pitch0_heading90"+SidewalkLinesSuffix),
		filepath.Join(dir, "pitch0_heading90"+RoadLinesSuffix),
	}
	assert.ElementsMatch(t, want, r.Written())

	img, err := imgio.Open(want[0])
	require.NoError(t, err)
	assert.Equal(t, 60, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestRenderer_Charts(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(60, 20, 10)
	loc := estimate.Location{ID: "loc", Dir: dir}

	r.TypedEdges(loc, edges())
	r.SidewalkSelection(loc, edges(), edges()[1:2])
	r.BufferEdges(loc, edges())

	require.NoError(t, r.Err())
	for _, name := range []string{TopBottomChart, SelectionChart, BufferChart} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestRenderer_NoDir(t *testing.T) {
	r := NewRenderer(60, 20, 10)
	loc := estimate.Location{ID: "loc"}

	r.CaptureLines(loc, capture(0, "c"), imaging.ClassSidewalk, edges())
	r.TypedEdges(loc, edges())
	r.SidewalkSelection(loc, edges(), nil)
	r.BufferEdges(loc, edges())

	assert.Empty(t, r.Written())
	assert.NoError(t, r.Err())
}

func TestRenderer_AsEngineSink(t *testing.T) {
	dir := t.TempDir()
	cfg := estimateConfig()
	r := NewRenderer(cfg.ImageSize, cfg.CenterY, cfg.BandWidth)
	e := estimate.NewEngine(cfg, estimate.WithSink(r))

	loc := estimate.Location{ID: "loc", Dir: dir, Captures: []estimate.Capture{capture(0, "p0"), capture(-10, "p10")}}
	_, err := e.MeasureSidewalk(t.Context(), loc)
	require.NoError(t, err)

	require.NoError(t, r.Err())
	assert.Contains(t, r.Written(), filepath.Join(dir, "p0"+SidewalkLinesSuffix))
	assert.Contains(t, r.Written(), filepath.Join(dir, "p10"+SidewalkLinesSuffix))
}

func TestParentOrder(t *testing.T) {
	segs := []geometry.Segment{{Parent: "3"}, {Parent: "1"}, {Parent: "3"}, {Parent: "2"}}
	assert.Equal(t, map[string]int{"3": 0, "1": 1, "2": 2}, parentOrder(segs))
}
