package diagnostics

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ironsheep/street-width-mcp/internal/geometry"
)

// Chart file names written into a location directory.
const (
	TopBottomChart = "top_bottom_edges.png"
	SelectionChart = "sidewalk_bottommost_selection.png"
	BufferChart    = "buffer_edges.png"
)

// Series is one group of segments drawn in a single style.
type Series struct {
	Name   string
	Segs   []geometry.Segment
	Color  color.Color
	Dashed bool
}

// EdgeChart plots segments in image coordinates. The y axis is negated so
// the chart reads like the photo: higher in the chart is higher in the
// image. The centerline is drawn as a dotted guide.
func EdgeChart(title string, width, centerY float64, series []Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "-y (px)"
	p.X.Min, p.X.Max = 0, width
	p.Add(plotter.NewGrid())

	center, err := plotter.NewLine(plotter.XYs{{X: 0, Y: -centerY}, {X: width, Y: -centerY}})
	if err != nil {
		return nil, err
	}
	center.Color = color.Gray{Y: 128}
	center.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
	p.Add(center)
	p.Legend.Add("centerline", center)

	for _, s := range series {
		if len(s.Segs) == 0 {
			continue
		}
		var first *plotter.Line
		for _, seg := range s.Segs {
			l, err := plotter.NewLine(plotter.XYs{{X: seg.X1, Y: -seg.Y1}, {X: seg.X2, Y: -seg.Y2}})
			if err != nil {
				return nil, fmt.Errorf("%s: %w", s.Name, err)
			}
			l.Color = s.Color
			l.Width = vg.Points(1.5)
			if s.Dashed {
				l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
			}
			p.Add(l)
			if first == nil {
				first = l
			}
		}

		mids := make(plotter.XYs, len(s.Segs))
		for i, seg := range s.Segs {
			mids[i] = plotter.XY{X: seg.MidX(), Y: -seg.MidY()}
		}
		sc, err := plotter.NewScatter(mids)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		sc.GlyphStyle.Color = s.Color
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(s.Name, first, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveChart writes p as a PNG, creating the parent directory.
func SaveChart(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// byPitchAndType splits segments into one series per (pitch, type) pair,
// pitch 0 solid and pitch -10 dashed.
func byPitchAndType(segs []geometry.Segment, colors map[geometry.EdgeType]color.Color, names map[geometry.EdgeType]string) []Series {
	var out []Series
	for _, pitch := range []int{0, -10} {
		for _, typ := range []geometry.EdgeType{geometry.Top, geometry.Bottom} {
			s := Series{
				Name:   fmt.Sprintf("%s, pitch %d", names[typ], pitch),
				Color:  colors[typ],
				Dashed: pitch != 0,
			}
			for _, seg := range segs {
				if seg.Pitch == pitch && seg.Type == typ {
					s.Segs = append(s.Segs, seg)
				}
			}
			out = append(out, s)
		}
	}
	return out
}
