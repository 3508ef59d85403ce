// Package geometry turns raw line detections into typed, clustered edge
// measurements.
//
// Stages are pure functions over []Segment: each returns a new slice and
// leaves its input untouched. In order of use:
//
//   - FilterHorizontal keeps near-horizontal segments
//   - Dedup drops segments whose buffered footprint mostly overlaps an
//     earlier one
//   - SplitByBoundaries cuts segments at vertical band boundaries and tags
//     each piece with its band (cluster) and capture pitch
//   - AssignEdgeTypes labels the upper and lower edge of each band
//   - WithCentralDistance, PairDistances and Summarize measure offsets
//     from the image centerline and average them per pitch and edge type
package geometry
