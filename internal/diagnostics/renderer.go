// Package diagnostics renders the intermediate results of a measurement
// next to the captures: line overlays per capture and edge charts per
// location. Rendering failures are logged and never change a result.
package diagnostics

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ironsheep/street-width-mcp/internal/estimate"
	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/imaging"
	"github.com/ironsheep/street-width-mcp/internal/logging"
)

// Overlay file suffixes, appended to the capture name.
const (
	SidewalkLinesSuffix = "_final_lines.jpg"
	RoadLinesSuffix     = "_road_lines.jpg"
)

// Renderer writes diagnostic files for locations that have a Dir. It
// implements estimate.Sink and is safe for concurrent use.
type Renderer struct {
	width     int
	centerY   float64
	bandWidth int

	mu      sync.Mutex
	written []string
	errs    []error
}

// NewRenderer creates a renderer for captures width pixels wide with the
// given centerline and band width.
func NewRenderer(width int, centerY float64, bandWidth int) *Renderer {
	return &Renderer{width: width, centerY: centerY, bandWidth: bandWidth}
}

var _ estimate.Sink = (*Renderer)(nil)

// CaptureLines draws the banded segments of one surface over the colorized
// labels of a capture.
func (r *Renderer) CaptureLines(loc estimate.Location, c estimate.Capture, class imaging.Class, segs []geometry.Segment) {
	if loc.Dir == "" {
		return
	}
	suffix := SidewalkLinesSuffix
	if class == imaging.ClassRoad {
		suffix = RoadLinesSuffix
	}
	path := filepath.Join(loc.Dir, c.Name+suffix)

	img := imaging.Colorize(c.Labels, class)
	imaging.DrawGuides(img, []int{int(r.centerY)}, imaging.Named("white"), r.bandWidth, imaging.Named("gray"))

	parents := parentOrder(segs)
	colors := imaging.Palette(len(parents))
	strokes := make([]imaging.Stroke, len(segs))
	for i, s := range segs {
		strokes[i] = imaging.Stroke{X1: s.X1, Y1: s.Y1, X2: s.X2, Y2: s.Y2, Color: colors[parents[s.Parent]]}
	}
	imaging.DrawStrokes(img, strokes, 3)
	imaging.DrawCaption(img, 4, 4,
		fmt.Sprintf("%s pitch %d: %d lines, %d pieces", class, c.Pitch, len(parents), len(segs)),
		imaging.Named("white"), color.RGBA{A: 160})

	r.record(path, imaging.SaveImage(path, img))
}

// TypedEdges charts the top and bottom sidewalk edges of both pitches.
func (r *Renderer) TypedEdges(loc estimate.Location, typed []geometry.Segment) {
	if loc.Dir == "" {
		return
	}
	series := byPitchAndType(typed,
		map[geometry.EdgeType]color.Color{geometry.Top: imaging.Named("blue"), geometry.Bottom: imaging.Named("red")},
		map[geometry.EdgeType]string{geometry.Top: "top", geometry.Bottom: "bottom"})
	r.chart(loc, TopBottomChart, fmt.Sprintf("%s: sidewalk top and bottom edges", loc.ID), series)
}

// SidewalkSelection charts every typed sidewalk edge and highlights the
// bottommost edge kept per cluster and pitch.
func (r *Renderer) SidewalkSelection(loc estimate.Location, candidates, selected []geometry.Segment) {
	if loc.Dir == "" {
		return
	}
	series := []Series{
		{Name: "candidates", Segs: candidates, Color: imaging.Named("lightblue")},
		{Name: "selected, pitch 0", Segs: withPitch(selected, 0), Color: imaging.Named("red")},
		{Name: "selected, pitch -10", Segs: withPitch(selected, -10), Color: imaging.Named("orange"), Dashed: true},
	}
	r.chart(loc, SelectionChart, fmt.Sprintf("%s: sidewalk bottommost selection", loc.ID), series)
}

// BufferEdges charts the road top and sidewalk bottom edges that feed the
// buffer solve.
func (r *Renderer) BufferEdges(loc estimate.Location, edges []geometry.Segment) {
	if loc.Dir == "" {
		return
	}
	series := byPitchAndType(edges,
		map[geometry.EdgeType]color.Color{geometry.Top: imaging.Named("purple"), geometry.Bottom: imaging.Named("green")},
		map[geometry.EdgeType]string{geometry.Top: "road top", geometry.Bottom: "sidewalk bottom"})
	r.chart(loc, BufferChart, fmt.Sprintf("%s: buffer edges", loc.ID), series)
}

// Written returns the paths of files written so far, sorted.
func (r *Renderer) Written() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.written...)
	sort.Strings(out)
	return out
}

// Err joins every rendering failure so far.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

func (r *Renderer) chart(loc estimate.Location, name, title string, series []Series) {
	path := filepath.Join(loc.Dir, name)
	p, err := EdgeChart(title, float64(r.width), r.centerY, series)
	if err == nil {
		err = SaveChart(p, path)
	}
	r.record(path, err)
}

func (r *Renderer) record(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		logging.Opsf("diagnostics: %v", err)
		r.errs = append(r.errs, err)
		return
	}
	logging.Tracef("diagnostics: wrote %s", path)
	r.written = append(r.written, path)
}

// parentOrder numbers the parent lines of segs in first-seen order.
func parentOrder(segs []geometry.Segment) map[string]int {
	order := make(map[string]int)
	for _, s := range segs {
		if _, ok := order[s.Parent]; !ok {
			order[s.Parent] = len(order)
		}
	}
	return order
}

func withPitch(segs []geometry.Segment, pitch int) []geometry.Segment {
	var out []geometry.Segment
	for _, s := range segs {
		if s.Pitch == pitch {
			out = append(out, s)
		}
	}
	return out
}
