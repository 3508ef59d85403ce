package estimate

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/street-width-mcp/internal/config"
	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/imaging"
)

const gridSize = 200

// rows paints full-width horizontal bands [from, to) of a class.
type rows struct {
	from, to int
	class    imaging.Class
}

// street builds a 200x200 capture of terrain with the given bands. A full
// width band [a, b) produces edges on rows a-1 and b-1.
func street(pitch int, bands ...rows) Capture {
	t := make(imaging.LabelTable, 0, gridSize*gridSize)
	for y := 0; y < gridSize; y++ {
		c := imaging.ClassTerrain
		for _, b := range bands {
			if y >= b.from && y < b.to {
				c = b.class
			}
		}
		for x := 0; x < gridSize; x++ {
			t = append(t, imaging.PixelLabel{X: x, Y: y, Class: c})
		}
	}
	return Capture{Pitch: pitch, Name: fmt.Sprintf("pitch%d", pitch), Labels: t}
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ImageSize = gridSize
	cfg.CenterY = gridSize / 2
	return cfg
}

// Sidewalk edges at offsets 27/47 (pitch 0) and 9/27 (pitch -10), road top
// edge at 58 and 38.
func bufferLocation() Location {
	return Location{ID: "loc-1", Captures: []Capture{
		street(0, rows{128, 148, imaging.ClassSidewalk}, rows{159, 200, imaging.ClassRoad}),
		street(-10, rows{110, 128, imaging.ClassSidewalk}, rows{139, 200, imaging.ClassRoad}),
	}}
}

type recordingSink struct {
	mu       sync.Mutex
	captures map[string]int
	typed    []geometry.Segment
	selected []geometry.Segment
	buffer   []geometry.Segment
}

func (r *recordingSink) CaptureLines(_ Location, c Capture, class imaging.Class, segs []geometry.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.captures == nil {
		r.captures = make(map[string]int)
	}
	r.captures[c.Name+" "+class.String()] = len(segs)
}

func (r *recordingSink) TypedEdges(_ Location, typed []geometry.Segment) {
	r.typed = typed
}

func (r *recordingSink) SidewalkSelection(_ Location, _, selected []geometry.Segment) {
	r.selected = selected
}

func (r *recordingSink) BufferEdges(_ Location, edges []geometry.Segment) {
	r.buffer = edges
}

func TestExtractSurface(t *testing.T) {
	e := NewEngine(testConfig())
	c := street(0, rows{128, 148, imaging.ClassSidewalk})

	segs, err := e.ExtractSurface(c, imaging.ClassSidewalk)

	require.NoError(t, err)
	// Two full-width edges, cut into 20 bands each.
	require.Len(t, segs, 40)
	for _, s := range segs {
		assert.Equal(t, 0, s.Pitch)
		assert.NotZero(t, s.Cluster)
		assert.Contains(t, []float64{127, 147}, s.MidY())
	}
}

func TestMeasureSidewalk(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(testConfig(), WithSink(sink))
	loc := Location{ID: "loc-1", Captures: []Capture{
		street(0, rows{128, 148, imaging.ClassSidewalk}),
		street(-10, rows{110, 128, imaging.ClassSidewalk}),
	}}

	r, err := e.MeasureSidewalk(context.Background(), loc)

	require.NoError(t, err)
	require.NotNil(t, r.Value, r.String())
	assert.Nil(t, r.Code)
	assert.InDelta(t, 3.862421915616, *r.Value, 1e-6)

	require.NotNil(t, r.Solution)
	assert.Equal(t, 27.0, r.Solution.P0Top)
	assert.Equal(t, 9.0, r.Solution.P10Top)
	assert.Equal(t, 47.0, r.Solution.P0Bottom)
	assert.Equal(t, 27.0, r.Solution.P10Bottom)
	assert.InDelta(t, 15.161018508248, r.Solution.TTop, 1e-6)
	assert.InDelta(t, 24.989180757850, r.Solution.TBottom, 1e-6)

	assert.Len(t, sink.typed, 80)
	assert.Equal(t, map[string]int{"pitch0 sidewalk": 40, "pitch-10 sidewalk": 40}, sink.captures)
}

func TestMeasureSidewalk_Deterministic(t *testing.T) {
	e := NewEngine(testConfig())
	loc := Location{ID: "loc-1", Captures: []Capture{
		street(0, rows{128, 148, imaging.ClassSidewalk}),
		street(-10, rows{110, 128, imaging.ClassSidewalk}),
	}}

	first, err := e.MeasureSidewalk(context.Background(), loc)
	require.NoError(t, err)
	second, err := e.MeasureSidewalk(context.Background(), loc)
	require.NoError(t, err)

	require.NotNil(t, first.Value)
	require.NotNil(t, second.Value)
	assert.Equal(t, *first.Value, *second.Value)
}

func TestMeasureSidewalk_Failures(t *testing.T) {
	tests := []struct {
		name     string
		captures []Capture
		want     ErrorCode
	}{
		{
			name:     "no sidewalk pixels",
			captures: []Capture{street(0), street(-10)},
			want:     CodeNoTargetPixels,
		},
		{
			name: "second capture has no sidewalk",
			captures: []Capture{
				street(0, rows{128, 148, imaging.ClassSidewalk}),
				street(-10),
			},
			want: CodeNoTargetPixels,
		},
		{
			name:     "single pitch",
			captures: []Capture{street(0, rows{128, 148, imaging.ClassSidewalk})},
			want:     CodeNoSegments,
		},
	}

	e := NewEngine(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := e.MeasureSidewalk(context.Background(), Location{ID: tt.name, Captures: tt.captures})
			require.NoError(t, err)
			assert.Nil(t, r.Value)
			require.NotNil(t, r.Code)
			assert.Equal(t, tt.want, *r.Code)
		})
	}
}

// A capture that fails extraction reports its own code, even though the
// surviving capture alone would also leave pitch data missing (code 3).
func TestMeasureSidewalk_FailingCaptureDecides(t *testing.T) {
	sidewalk0 := street(0, rows{128, 148, imaging.ClassSidewalk})
	sidewalk10 := street(-10, rows{110, 128, imaging.ClassSidewalk})
	// A 2x2 speckle survives the class check but not cleaning.
	speckle := street(-10)
	for i := range speckle.Labels {
		if p := speckle.Labels[i]; p.X < 2 && p.Y < 2 {
			speckle.Labels[i].Class = imaging.ClassSidewalk
		}
	}

	tests := []struct {
		name       string
		captures   []Capture
		want       ErrorCode
		wantReason string
	}{
		{"pitch -10 empty", []Capture{sidewalk0, street(-10)}, CodeNoTargetPixels, "pitch -10:"},
		{"pitch 0 empty", []Capture{street(0), sidewalk10}, CodeNoTargetPixels, "pitch 0:"},
		{"pitch -10 only speckle", []Capture{sidewalk0, speckle}, CodeNoTargetPixels, "pitch -10:"},
		{"both empty, capture order wins", []Capture{street(-10), street(0)}, CodeNoTargetPixels, "pitch -10:"},
	}

	e := NewEngine(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := e.MeasureSidewalk(context.Background(), Location{ID: tt.name, Captures: tt.captures})

			require.NoError(t, err)
			require.NotNil(t, r.Code)
			assert.Equal(t, tt.want, *r.Code)
			assert.NotEqual(t, CodeNoSegments, *r.Code)
			assert.Contains(t, r.Reason, tt.wantReason)
			assert.Nil(t, r.Solution)
		})
	}
}

func TestMeasureBuffer(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(testConfig(), WithSink(sink))

	r, err := e.MeasureBuffer(context.Background(), bufferLocation())

	require.NoError(t, err)
	require.NotNil(t, r.Value, r.String())
	assert.InDelta(t, 1.547955980339, *r.Value, 1e-6)

	require.NotNil(t, r.Verdict)
	assert.False(t, r.Verdict.NoBuffer)
	assert.Equal(t, 20, r.Verdict.Clusters)
	assert.InDelta(t, 11, r.Verdict.AverageGap, 1e-9)

	require.NotNil(t, r.Solution)
	assert.Equal(t, 47.0, r.Solution.P0Top)
	assert.Equal(t, 58.0, r.Solution.P0Bottom)

	// One road top and one sidewalk bottom per cluster and pitch.
	assert.Len(t, sink.buffer, 80)
	assert.Len(t, sink.selected, 40)
	assert.Len(t, sink.captures, 4)
}

func TestMeasureBuffer_NoBuffer(t *testing.T) {
	e := NewEngine(testConfig())
	// The road starts right under the sidewalk in both captures.
	loc := Location{ID: "touching", Captures: []Capture{
		street(0, rows{128, 148, imaging.ClassSidewalk}, rows{148, 200, imaging.ClassRoad}),
		street(-10, rows{110, 128, imaging.ClassSidewalk}, rows{128, 200, imaging.ClassRoad}),
	}}

	r, err := e.MeasureBuffer(context.Background(), loc)

	require.NoError(t, err)
	assert.True(t, r.IsNoBuffer(), r.String())
	require.NotNil(t, r.Verdict)
	assert.Equal(t, RuleAlignment, r.Verdict.Rule)
	assert.Equal(t, 20, r.Verdict.Aligned)
}

func TestMeasureBuffer_MissingSurface(t *testing.T) {
	tests := []struct {
		name string
		p0   []rows
		p10  []rows
		want ErrorCode
	}{
		{"neither surface", nil, nil, CodeBothMissing},
		{
			"no sidewalk",
			[]rows{{159, 200, imaging.ClassRoad}},
			[]rows{{139, 200, imaging.ClassRoad}},
			CodeSidewalkMissing,
		},
		{
			"no road",
			[]rows{{128, 148, imaging.ClassSidewalk}},
			[]rows{{110, 128, imaging.ClassSidewalk}},
			CodeRoadMissing,
		},
	}

	e := NewEngine(testConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := Location{ID: tt.name, Captures: []Capture{street(0, tt.p0...), street(-10, tt.p10...)}}
			r, err := e.MeasureBuffer(context.Background(), loc)
			require.NoError(t, err)
			require.NotNil(t, r.Code, r.String())
			assert.Equal(t, tt.want, *r.Code)
		})
	}
}

func TestMeasure_Dispatch(t *testing.T) {
	e := NewEngine(testConfig())
	loc := bufferLocation()

	sw, err := e.Measure(context.Background(), Sidewalk, loc)
	require.NoError(t, err)
	buf, err := e.Measure(context.Background(), Buffer, loc)
	require.NoError(t, err)

	require.NotNil(t, sw.Value)
	require.NotNil(t, buf.Value)
	assert.NotEqual(t, *sw.Value, *buf.Value)
}

func TestMeasure_Errors(t *testing.T) {
	e := NewEngine(nil)

	_, err := e.MeasureSidewalk(context.Background(), Location{ID: "empty"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.MeasureBuffer(ctx, bufferLocation())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{
		"sidewalk":      Sidewalk,
		"":              Sidewalk,
		"Buffer":        Buffer,
		"street_buffer": Buffer,
	} {
		got, err := ParseVariant(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseVariant("curb")
	assert.Error(t, err)
	assert.Equal(t, "buffer", Buffer.String())
}
