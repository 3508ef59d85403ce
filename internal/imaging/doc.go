// Package imaging holds the raster side of the width pipeline: semantic
// label tables, class-index maps, Canny edge detection and the overlays
// written as diagnostics.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner. X
// grows rightward and Y grows downward, so a smaller Y is visually higher
// in the photograph.
//
// # Label Tables
//
// The segmentation step emits one (x, y, label) row per pixel. Grid size is
// never passed separately; it is inferred as max(x)+1 by max(y)+1. Tables
// can also be read from 8-bit class-index PNGs whose gray level is the
// Cityscapes training id.
//
// # Thread Safety
//
// LabelCache is safe for concurrent use. All other functions are stateless
// and may be called concurrently on distinct images.
package imaging
