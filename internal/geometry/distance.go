package geometry

import (
	"encoding/json"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultCenterY is the centerline of a 640px tall capture.
const DefaultCenterY = 320.0

// WithCentralDistance returns a copy of segs with DistCentral set to
// midY - centerY. Positive values are below the centerline.
func WithCentralDistance(segs []Segment, centerY float64) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		d := s.MidY() - centerY
		s.DistCentral = &d
		out[i] = s
	}
	return out
}

// PairDistance is the midpoint distance between the top and bottom edge of
// one (cluster, pitch) group.
type PairDistance struct {
	Cluster  int     `json:"cluster"`
	Pitch    int     `json:"pitch"`
	Distance float64 `json:"dist_btwn"`
}

// PairDistances measures every group holding exactly one Top and one
// Bottom segment. Other groups are skipped.
func PairDistances(segs []Segment) []PairDistance {
	groups, keys := GroupByKey(segs)

	var out []PairDistance
	for _, k := range keys {
		var tops, bottoms []Segment
		for _, s := range groups[k] {
			switch s.Type {
			case Top:
				tops = append(tops, s)
			case Bottom:
				bottoms = append(bottoms, s)
			}
		}
		if len(tops) != 1 || len(bottoms) != 1 {
			continue
		}
		out = append(out, PairDistance{
			Cluster:  k.Cluster,
			Pitch:    k.Pitch,
			Distance: Distance(tops[0].Midpoint(), bottoms[0].Midpoint()),
		})
	}
	return out
}

// EdgeKey identifies one row of an EdgeSummary.
type EdgeKey struct {
	Pitch int
	Type  EdgeType
}

// EdgeSummary maps (pitch, edge type) to the mean centerline offset.
type EdgeSummary map[EdgeKey]float64

// Summarize averages DistCentral per (pitch, type). Segments without a
// type or without a distance are ignored.
func Summarize(segs []Segment) EdgeSummary {
	values := make(map[EdgeKey][]float64)
	for _, s := range segs {
		if s.Type == Unset || s.DistCentral == nil {
			continue
		}
		k := EdgeKey{Pitch: s.Pitch, Type: s.Type}
		values[k] = append(values[k], *s.DistCentral)
	}

	sum := make(EdgeSummary, len(values))
	for k, v := range values {
		sum[k] = stat.Mean(v, nil)
	}
	return sum
}

// Get returns the mean offset for (pitch, typ) and whether it exists.
func (e EdgeSummary) Get(pitch int, typ EdgeType) (float64, bool) {
	v, ok := e[EdgeKey{Pitch: pitch, Type: typ}]
	return v, ok
}

// SummaryRow is the flat form of one EdgeSummary entry.
type SummaryRow struct {
	Pitch           int      `json:"pitch"`
	Type            EdgeType `json:"type"`
	MeanDistCentral float64  `json:"mean_dist_central"`
}

// Rows lists the summary ordered by pitch descending, then Top before
// Bottom.
func (e EdgeSummary) Rows() []SummaryRow {
	rows := make([]SummaryRow, 0, len(e))
	for k, v := range e {
		rows = append(rows, SummaryRow{Pitch: k.Pitch, Type: k.Type, MeanDistCentral: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Pitch != rows[j].Pitch {
			return rows[i].Pitch > rows[j].Pitch
		}
		return rows[i].Type < rows[j].Type
	})
	return rows
}

// MarshalJSON encodes the summary as its Rows.
func (e EdgeSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Rows())
}
