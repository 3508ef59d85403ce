package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// quadSegments is the number of chords per quarter circle in buffer caps.
const quadSegments = 16

// Dedup removes near-duplicate segments. Every segment is inflated into a
// round-capped buffer of radius bufferPx; segment j is dropped when some
// surviving i < j satisfies
//
//	area(Bi ∩ Bj) / min(area(Bi), area(Bj)) > threshold
//
// Detection order decides which of a mutually overlapping set survives.
func Dedup(segs []Segment, bufferPx, threshold float64) []Segment {
	buffers := make([]orb.Ring, len(segs))
	areas := make([]float64, len(segs))
	for i, s := range segs {
		buffers[i] = Buffer(s, bufferPx)
		areas[i] = math.Abs(planar.Area(buffers[i]))
	}

	dropped := make([]bool, len(segs))
	for i := range segs {
		if dropped[i] {
			continue
		}
		for j := i + 1; j < len(segs); j++ {
			if dropped[j] {
				continue
			}
			minArea := math.Min(areas[i], areas[j])
			if minArea == 0 {
				continue
			}
			inter := math.Abs(planar.Area(clipConvex(buffers[j], buffers[i])))
			if inter/minArea > threshold {
				dropped[j] = true
			}
		}
	}

	var out []Segment
	for i, s := range segs {
		if !dropped[i] {
			out = append(out, s)
		}
	}
	return out
}

// Overlap returns area(Ba ∩ Bb) / min(area(Ba), area(Bb)) for the buffers
// of two segments.
func Overlap(a, b Segment, bufferPx float64) float64 {
	ba, bb := Buffer(a, bufferPx), Buffer(b, bufferPx)
	minArea := math.Min(math.Abs(planar.Area(ba)), math.Abs(planar.Area(bb)))
	if minArea == 0 {
		return 0
	}
	return math.Abs(planar.Area(clipConvex(ba, bb))) / minArea
}

// Buffer returns the closed, counter-clockwise ring of all points within r
// of the segment: a rectangle with semicircular caps. A zero-length
// segment yields a circle.
func Buffer(s Segment, r float64) orb.Ring {
	dx, dy := s.X2-s.X1, s.Y2-s.Y1
	length := math.Hypot(dx, dy)

	var ring orb.Ring
	if length == 0 {
		n := 4 * quadSegments
		for k := 0; k < n; k++ {
			a := 2 * math.Pi * float64(k) / float64(n)
			ring = append(ring, orb.Point{s.X1 + r*math.Cos(a), s.Y1 + r*math.Sin(a)})
		}
		return append(ring, ring[0])
	}

	// Cap around the end point sweeps from the right normal through the
	// direction of travel to the left normal; the start cap mirrors it.
	heading := math.Atan2(dy, dx)
	n := 2 * quadSegments
	for k := 0; k <= n; k++ {
		a := heading - math.Pi/2 + math.Pi*float64(k)/float64(n)
		ring = append(ring, orb.Point{s.X2 + r*math.Cos(a), s.Y2 + r*math.Sin(a)})
	}
	for k := 0; k <= n; k++ {
		a := heading + math.Pi/2 + math.Pi*float64(k)/float64(n)
		ring = append(ring, orb.Point{s.X1 + r*math.Cos(a), s.Y1 + r*math.Sin(a)})
	}
	return append(ring, ring[0])
}

// clipConvex intersects two convex counter-clockwise rings with the
// Sutherland-Hodgman algorithm and returns the closed result ring, or nil
// when they do not overlap.
func clipConvex(subject, clip orb.Ring) orb.Ring {
	out := openRing(subject)
	c := openRing(clip)
	for i := range c {
		if len(out) == 0 {
			return nil
		}
		a, b := c[i], c[(i+1)%len(c)]
		in := out
		out = nil
		for k := range in {
			cur, prev := in[k], in[(k+len(in)-1)%len(in)]
			curIn, prevIn := inside(a, b, cur), inside(a, b, prev)
			switch {
			case curIn && prevIn:
				out = append(out, cur)
			case curIn && !prevIn:
				out = append(out, intersect(prev, cur, a, b), cur)
			case !curIn && prevIn:
				out = append(out, intersect(prev, cur, a, b))
			}
		}
	}
	if len(out) < 3 {
		return nil
	}
	return append(out, out[0])
}

func openRing(r orb.Ring) []orb.Point {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}

// inside reports whether p is on the left of (or on) the directed edge a->b.
func inside(a, b, p orb.Point) bool {
	return (b[0]-a[0])*(p[1]-a[1])-(b[1]-a[1])*(p[0]-a[0]) >= 0
}

// intersect returns where segment p->q crosses the infinite line a->b.
func intersect(p, q, a, b orb.Point) orb.Point {
	ex, ey := b[0]-a[0], b[1]-a[1]
	dx, dy := q[0]-p[0], q[1]-p[1]
	den := ex*dy - ey*dx
	if den == 0 {
		return q
	}
	t := (ex*(a[1]-p[1]) - ey*(a[0]-p[0])) / den
	return orb.Point{p[0] + t*dx, p[1] + t*dy}
}
