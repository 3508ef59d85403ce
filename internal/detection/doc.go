// Package detection turns a semantic label table into straight edge
// segments of one surface class.
//
// The pipeline for a single capture is:
//
//  1. Mask: pixels of the target class become 255, everything else 0.
//     8-connected components smaller than w*h/divisor² are removed
//     (BuildMask).
//  2. Edges: Canny with an L1 gradient on the cleaned mask
//     (imaging.Canny).
//  3. Lines: progressive probabilistic Hough transform (HoughLinesP).
//
// Extract runs all three and maps the empty outcomes to ErrNoTargetPixels,
// ErrNoEdges and ErrNoLines so callers can report a per-capture error code.
//
// # Determinism
//
// The probabilistic Hough transform visits edge pixels in a pseudo-random
// order. The generator is a fixed-seed multiply-with-carry sequence, so the
// same mask always yields the same segments in the same order.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package detection
