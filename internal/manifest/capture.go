package manifest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
)

// Pitches are the camera pitches captured at every midpoint, in capture
// order.
var Pitches = []int{0, -10}

// LabelSuffixes are the label table files looked for next to a capture,
// in order of preference.
var LabelSuffixes = []string{"_pixel_categories.csv", "_classes.png"}

// headingDiff returns the shortest angle between two headings in degrees.
func headingDiff(panoHeading, bearing float64) float64 {
	d := math.Abs(panoHeading - bearing)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Aligned reports whether the panorama looks along the link: the shortest
// angle between its heading and the link bearing is at most 45°.
func Aligned(panoHeading, bearing float64) bool {
	d := headingDiff(panoHeading, bearing)
	return d <= 45 || d >= 315
}

// AdjustHeading turns the panorama heading toward the side of the street:
// +90° when the panorama is aligned with the link, −90° otherwise. The
// result is in [0, 360).
func AdjustHeading(panoHeading, bearing float64) float64 {
	h := panoHeading - 90
	if Aligned(panoHeading, bearing) {
		h = panoHeading + 90
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h == 0 {
		h = 0 // drop a negative zero
	}
	return h
}

// SelectFOV returns alignedFOV for an aligned panorama and def otherwise.
func SelectFOV(panoHeading, bearing, def, alignedFOV float64) float64 {
	if Aligned(panoHeading, bearing) {
		return alignedFOV
	}
	return def
}

// Shot is one planned capture of a midpoint.
type Shot struct {
	Pitch   int     `json:"pitch"`
	Heading float64 `json:"heading"`
	FOV     float64 `json:"fov"`

	// Name is the capture file name without extension.
	Name string `json:"name"`

	// Dir is <root>/<pano_id>/<side>.
	Dir string `json:"dir"`
}

// ImagePath returns the path of the captured photo.
func (s Shot) ImagePath() string {
	return filepath.Join(s.Dir, s.Name+".jpg")
}

// LabelPaths returns the candidate label table paths for the capture. A
// capture planned at an integral heading also matches tables named with a
// trailing ".0", as written by tooling that stored headings as floats.
func (s Shot) LabelPaths() []string {
	names := []string{s.Name}
	if s.Name == CaptureName(s.Pitch, s.Heading) && s.Heading == math.Trunc(s.Heading) {
		names = append(names, fmt.Sprintf("pitch%d_heading%s.0", s.Pitch, FormatHeading(s.Heading)))
	}
	out := make([]string, 0, len(names)*len(LabelSuffixes))
	for _, name := range names {
		for _, suf := range LabelSuffixes {
			out = append(out, filepath.Join(s.Dir, name+suf))
		}
	}
	return out
}

// FindLabels returns the first existing label table of the capture.
func (s Shot) FindLabels() (string, error) {
	for _, p := range s.LabelPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no label table for %s in %s: %w", s.Name, s.Dir, os.ErrNotExist)
}

// Plan returns the shots of p under root, one per pitch in Pitches.
func Plan(root string, p Point, def, alignedFOV float64) []Shot {
	heading := AdjustHeading(p.PanoHeading, p.Bearing)
	fov := SelectFOV(p.PanoHeading, p.Bearing, def, alignedFOV)
	dir := filepath.Join(root, p.PanoID, p.Side)

	shots := make([]Shot, len(Pitches))
	for i, pitch := range Pitches {
		shots[i] = Shot{
			Pitch:   pitch,
			Heading: heading,
			FOV:     fov,
			Name:    CaptureName(pitch, heading),
			Dir:     dir,
		}
	}
	return shots
}

// CaptureName returns "pitch<P>_heading<H>", with the heading written by
// FormatHeading ("pitch0_heading190", "pitch-10_heading272.5").
func CaptureName(pitch int, heading float64) string {
	return fmt.Sprintf("pitch%d_heading%s", pitch, FormatHeading(heading))
}

// FormatHeading writes h in its shortest exact decimal form. Integral
// headings have no fractional part.
func FormatHeading(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
