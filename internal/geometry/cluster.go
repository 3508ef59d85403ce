package geometry

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoSegments is returned when band splitting leaves nothing to measure.
var ErrNoSegments = errors.New("no valid segmented lines")

// SplitByBoundaries cuts every segment at each boundary lying strictly
// between its x endpoints and tags the pieces with their band and pitch.
//
// Cuts are made in the direction of travel, so the pieces of one segment
// chain end to start back to the original endpoints. Piece i (1-based) of
// segment k gets ID "k_i" and Parent "k". The band index is j+1 where
// boundaries[j] <= min(x) < boundaries[j+1]; pieces starting outside the
// boundary range keep Cluster 0 and are never typed. A segment with
// x1 == x2 has no defined slope and passes through as a single piece.
//
// An empty result returns ErrNoSegments.
func SplitByBoundaries(segs []Segment, boundaries []int, pitch int) ([]Segment, error) {
	if len(boundaries) < 2 {
		return nil, fmt.Errorf("need at least two boundaries, got %d", len(boundaries))
	}
	bounds := make([]float64, len(boundaries))
	for i, b := range boundaries {
		bounds[i] = float64(b)
	}
	sort.Float64s(bounds)

	var out []Segment
	for _, s := range segs {
		for i, piece := range cutSegment(s, bounds) {
			piece.Parent = s.ID
			piece.ID = fmt.Sprintf("%s_%d", s.ID, i+1)
			piece.Cluster = bandOf(piece.MinX(), bounds)
			piece.Pitch = pitch
			out = append(out, piece)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoSegments
	}
	return out, nil
}

func cutSegment(s Segment, bounds []float64) []Segment {
	if s.X1 == s.X2 {
		return []Segment{s}
	}
	slope := (s.Y2 - s.Y1) / (s.X2 - s.X1)
	lo, hi := s.X1, s.X2
	if lo > hi {
		lo, hi = hi, lo
	}

	cuts := make([]float64, 0, 4)
	for _, b := range bounds {
		if b > lo && b < hi {
			cuts = append(cuts, b)
		}
	}
	if s.X1 > s.X2 {
		for i, j := 0, len(cuts)-1; i < j; i, j = i+1, j-1 {
			cuts[i], cuts[j] = cuts[j], cuts[i]
		}
	}

	pieces := make([]Segment, 0, len(cuts)+1)
	sx, sy := s.X1, s.Y1
	for _, b := range cuts {
		y := s.Y1 + slope*(b-s.X1)
		p := s
		p.X1, p.Y1, p.X2, p.Y2 = sx, sy, b, y
		pieces = append(pieces, p)
		sx, sy = b, y
	}
	last := s
	last.X1, last.Y1 = sx, sy
	return append(pieces, last)
}

// bandOf returns the 1-based band containing x, or 0 when x is outside.
func bandOf(x float64, bounds []float64) int {
	for j := 0; j+1 < len(bounds); j++ {
		if bounds[j] <= x && x < bounds[j+1] {
			return j + 1
		}
	}
	return 0
}
