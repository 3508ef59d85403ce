package geometry

import "sort"

// AssignEdgeTypes labels the two visually highest segments of every
// (cluster, pitch) group: the one with the smallest min-y becomes Top, the
// next Bottom. Groups need at least two segments; smaller groups, any
// segment past the second and unbanded segments (Cluster 0) are left out of
// the result.
//
// Ties in min-y keep input order. The result is ordered by group (cluster,
// then pitch descending so 0° precedes −10°) with Top before Bottom.
func AssignEdgeTypes(segs []Segment) []Segment {
	groups, keys := GroupByKey(segs)

	var out []Segment
	for _, k := range keys {
		g := append([]Segment(nil), groups[k]...)
		if k.Cluster == 0 || len(g) < 2 {
			continue
		}
		sort.SliceStable(g, func(i, j int) bool { return g[i].MinY() < g[j].MinY() })
		top, bottom := g[0], g[1]
		top.Type = Top
		bottom.Type = Bottom
		out = append(out, top, bottom)
	}
	return out
}

// GroupByKey buckets segments by (cluster, pitch), keeping input order
// within each bucket. Keys are sorted by cluster, then pitch descending.
func GroupByKey(segs []Segment) (map[Key][]Segment, []Key) {
	groups := make(map[Key][]Segment)
	var keys []Key
	for _, s := range segs {
		k := s.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], s)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Cluster != keys[j].Cluster {
			return keys[i].Cluster < keys[j].Cluster
		}
		return keys[i].Pitch > keys[j].Pitch
	})
	return groups, keys
}
