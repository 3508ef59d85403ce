package estimate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/street-width-mcp/internal/geometry"
	"github.com/ironsheep/street-width-mcp/internal/solver"
)

// BufferThresholds tunes ClassifyBuffer. Distances are in pixels.
type BufferThresholds struct {
	Alignment      float64 `json:"alignment_threshold"`
	AlignmentRatio float64 `json:"alignment_ratio"`
	Proximity      float64 `json:"proximity_threshold"`
}

// DefaultBufferThresholds returns 5px, 0.2 and 10px.
func DefaultBufferThresholds() BufferThresholds {
	return BufferThresholds{Alignment: 5, AlignmentRatio: 0.2, Proximity: 10}
}

// BufferPair is the centerline offset of the sidewalk's bottom edge and the
// road's top edge in one (cluster, pitch) group.
type BufferPair struct {
	Cluster  int     `json:"cluster"`
	Pitch    int     `json:"pitch"`
	Sidewalk float64 `json:"sidewalk"`
	Road     float64 `json:"road"`
}

// Gap returns |Sidewalk − Road|.
func (p BufferPair) Gap() float64 { return math.Abs(p.Sidewalk - p.Road) }

// Verdict records how ClassifyBuffer decided.
type Verdict struct {
	NoBuffer bool   `json:"no_buffer"`
	Rule     string `json:"rule,omitempty"`

	// Alignment rule, evaluated on pitch 0 only.
	Clusters     int     `json:"clusters"`
	Aligned      int     `json:"aligned"`
	AlignedRatio float64 `json:"aligned_ratio"`

	// Proximity rule: mean over pitches of |mean sidewalk − mean road|.
	AverageGap float64 `json:"average_gap"`
}

// Rules named in Verdict.Rule.
const (
	RuleAlignment = "alignment"
	RuleProximity = "proximity"
)

// ClassifyBuffer decides whether the sidewalk and road edges touch.
//
// First, among pitch 0 pairs, if the share with Gap() < Alignment is at
// least AlignmentRatio the location has no buffer. No pitch 0 pairs skips
// this rule. Second, for each pitch the mean sidewalk offset and mean road
// offset are compared; if the average of those gaps over pitches is below
// Proximity the location has no buffer.
func ClassifyBuffer(pairs []BufferPair, th BufferThresholds) Verdict {
	var v Verdict
	for _, p := range pairs {
		if p.Pitch != solver.PitchLevel {
			continue
		}
		v.Clusters++
		if p.Gap() < th.Alignment {
			v.Aligned++
		}
	}
	if v.Clusters > 0 {
		v.AlignedRatio = float64(v.Aligned) / float64(v.Clusters)
		if v.AlignedRatio >= th.AlignmentRatio {
			v.NoBuffer = true
			v.Rule = RuleAlignment
			return v
		}
	}

	byPitch := make(map[int][2][]float64)
	for _, p := range pairs {
		e := byPitch[p.Pitch]
		e[0] = append(e[0], p.Sidewalk)
		e[1] = append(e[1], p.Road)
		byPitch[p.Pitch] = e
	}
	if len(byPitch) == 0 {
		return v
	}
	gaps := make([]float64, 0, len(byPitch))
	for _, e := range byPitch {
		gaps = append(gaps, math.Abs(stat.Mean(e[0], nil)-stat.Mean(e[1], nil)))
	}
	sort.Float64s(gaps)
	v.AverageGap = stat.Mean(gaps, nil)
	if v.AverageGap < th.Proximity {
		v.NoBuffer = true
		v.Rule = RuleProximity
	}
	return v
}

// Reason describes the verdict for result rows and logs.
func (v Verdict) Reason() string {
	switch v.Rule {
	case RuleAlignment:
		return fmt.Sprintf("%d/%d clusters at pitch 0 nearly touch (%.0f%%)", v.Aligned, v.Clusters, v.AlignedRatio*100)
	case RuleProximity:
		return fmt.Sprintf("edges touch on average (gap %.1fpx)", v.AverageGap)
	default:
		return ""
	}
}

// SelectRoadTop keeps, per (cluster, pitch), the road segment with the
// smallest mean y and labels it Top. Unbanded segments are ignored.
func SelectRoadTop(road []geometry.Segment) []geometry.Segment {
	return selectExtreme(road, geometry.Top, func(a, b float64) bool { return a < b })
}

// SelectSidewalkBottom keeps, per (cluster, pitch), the Bottom sidewalk
// segment with the largest mean y.
func SelectSidewalkBottom(typed []geometry.Segment) []geometry.Segment {
	var bottoms []geometry.Segment
	for _, s := range typed {
		if s.Type == geometry.Bottom {
			bottoms = append(bottoms, s)
		}
	}
	return selectExtreme(bottoms, geometry.Bottom, func(a, b float64) bool { return a > b })
}

func selectExtreme(segs []geometry.Segment, typ geometry.EdgeType, better func(a, b float64) bool) []geometry.Segment {
	groups, keys := geometry.GroupByKey(segs)
	var out []geometry.Segment
	for _, k := range keys {
		if k.Cluster == 0 {
			continue
		}
		g := groups[k]
		best := g[0]
		for _, s := range g[1:] {
			if better(s.MidY(), best.MidY()) {
				best = s
			}
		}
		best.Type = typ
		out = append(out, best)
	}
	return out
}

// MatchBufferEdges keeps the clusters where both the sidewalk bottom and
// the road top were selected at both capture pitches. It returns the kept
// edges (road as Top, sidewalk as Bottom) with centerline offsets, and the
// per-group pairs for ClassifyBuffer.
func MatchBufferEdges(sidewalk, road []geometry.Segment, centerY float64) ([]geometry.Segment, []BufferPair) {
	type slot struct{ sw, rd *geometry.Segment }
	index := make(map[geometry.Key]*slot)
	get := func(k geometry.Key) *slot {
		if index[k] == nil {
			index[k] = &slot{}
		}
		return index[k]
	}
	for i := range sidewalk {
		get(sidewalk[i].Key()).sw = &sidewalk[i]
	}
	for i := range road {
		get(road[i].Key()).rd = &road[i]
	}

	clusters := make(map[int]bool)
	for k := range index {
		clusters[k.Cluster] = true
	}
	var valid []int
	for c := range clusters {
		ok := true
		for _, pitch := range []int{solver.PitchLevel, solver.PitchDown} {
			s := index[geometry.Key{Cluster: c, Pitch: pitch}]
			if s == nil || s.sw == nil || s.rd == nil {
				ok = false
				break
			}
		}
		if ok {
			valid = append(valid, c)
		}
	}
	sort.Ints(valid)

	var edges []geometry.Segment
	var pairs []BufferPair
	for _, c := range valid {
		for _, pitch := range []int{solver.PitchLevel, solver.PitchDown} {
			s := index[geometry.Key{Cluster: c, Pitch: pitch}]
			e := geometry.WithCentralDistance([]geometry.Segment{*s.rd, *s.sw}, centerY)
			e[0].Type = geometry.Top
			e[1].Type = geometry.Bottom
			edges = append(edges, e...)
			pairs = append(pairs, BufferPair{
				Cluster:  c,
				Pitch:    pitch,
				Sidewalk: *e[1].DistCentral,
				Road:     *e[0].DistCentral,
			})
		}
	}
	return edges, pairs
}
