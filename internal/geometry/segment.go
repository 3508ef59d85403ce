package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// EdgeType is the role of a segment within its (cluster, pitch) group.
type EdgeType int

const (
	Unset EdgeType = iota
	Top
	Bottom
)

// String returns "top", "bottom" or "" for Unset.
func (t EdgeType) String() string {
	switch t {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t EdgeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EdgeType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "top":
		*t = Top
	case "bottom":
		*t = Bottom
	case "":
		*t = Unset
	default:
		return fmt.Errorf("unknown edge type %q", b)
	}
	return nil
}

// Segment is a detected straight edge in image pixel coordinates, enriched
// by later stages with its band, capture pitch, role and centerline offset.
type Segment struct {
	ID     string `json:"line_id"`
	Parent string `json:"parent_id,omitempty"`

	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`

	Cluster     int      `json:"cluster,omitempty"`
	Pitch       int      `json:"pitch"`
	Type        EdgeType `json:"type,omitempty"`
	DistCentral *float64 `json:"dist_central,omitempty"`
}

// MidX returns the x coordinate of the midpoint.
func (s Segment) MidX() float64 { return (s.X1 + s.X2) / 2 }

// MidY returns the y coordinate of the midpoint.
func (s Segment) MidY() float64 { return (s.Y1 + s.Y2) / 2 }

// MinX returns the smaller x endpoint.
func (s Segment) MinX() float64 { return math.Min(s.X1, s.X2) }

// MinY returns the smaller y endpoint, the visually higher end.
func (s Segment) MinY() float64 { return math.Min(s.Y1, s.Y2) }

// Length returns the Euclidean length in pixels.
func (s Segment) Length() float64 { return math.Hypot(s.X2-s.X1, s.Y2-s.Y1) }

// Angle returns atan2(dy, dx) in degrees normalized to [0, 360).
func (s Segment) Angle() float64 {
	a := math.Atan2(s.Y2-s.Y1, s.X2-s.X1) * 180 / math.Pi
	if a < 0 {
		a += 360
	}
	return a
}

// Midpoint returns the midpoint as an orb point.
func (s Segment) Midpoint() orb.Point { return orb.Point{s.MidX(), s.MidY()} }

// LineString returns the segment as a two-point orb line.
func (s Segment) LineString() orb.LineString {
	return orb.LineString{{s.X1, s.Y1}, {s.X2, s.Y2}}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b orb.Point) float64 {
	return math.Hypot(b[0]-a[0], b[1]-a[1])
}

// Key groups segments by band and capture pitch.
type Key struct {
	Cluster int
	Pitch   int
}

// Key returns the (cluster, pitch) group of s.
func (s Segment) Key() Key { return Key{Cluster: s.Cluster, Pitch: s.Pitch} }

// Number assigns sequential ids "1".."n" in slice order and returns the
// renumbered copy.
func Number(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		s.ID = fmt.Sprint(i + 1)
		out[i] = s
	}
	return out
}
