package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/street-width-mcp/internal/imaging"
)

// ErrNoTargetPixels is returned when a capture holds no usable pixels of the
// requested class.
var ErrNoTargetPixels = errors.New("no target pixels")

// DefaultMinAreaDivisor sets the speckle threshold to 1/196 of the frame.
const DefaultMinAreaDivisor = 14

// BuildMask rasterizes the pixels of class into a binary mask sized by the
// table (max(x)+1 by max(y)+1) and removes 8-connected components smaller
// than w*h/divisor².
//
// Returns ErrNoTargetPixels when the class is absent or nothing survives
// cleaning.
func BuildMask(labels imaging.LabelTable, class imaging.Class, divisor int) (*image.Gray, error) {
	if divisor <= 0 {
		return nil, fmt.Errorf("min area divisor must be positive, got %d", divisor)
	}
	if labels.Count(class) == 0 {
		return nil, fmt.Errorf("%w: class %s", ErrNoTargetPixels, class)
	}

	raw := BinarizeClassMap(imaging.ToClassMap(labels), class)
	w, h := raw.Bounds().Dx(), raw.Bounds().Dy()
	minArea := float64(w*h) / float64(divisor*divisor)

	clean, _ := RemoveSmallComponents(raw, minArea)
	if imaging.CountNonZero(clean) == 0 {
		return nil, fmt.Errorf("%w: class %s after removing regions under %.0f px", ErrNoTargetPixels, class, minArea)
	}
	return clean, nil
}

// BinarizeClassMap returns a 0/255 mask of the pixels in a class-index map
// that equal class.
func BinarizeClassMap(m *image.Gray, class imaging.Class) *image.Gray {
	b := m.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := m.Pix[m.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < b.Dx(); x++ {
			if imaging.Class(row[x]) == class {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// MaskFromImage binarizes an arbitrary image at mid gray. Used for masks
// saved as JPEG, where compression leaves values near 0 and 255.
func MaskFromImage(img image.Image) *image.Gray {
	g := segment.Threshold(img, 128)
	b := g.Bounds()
	if b.Min == (image.Point{}) {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

// LoadMask reads a mask image from disk. Any format imgio decodes is
// accepted.
func LoadMask(path string) (*image.Gray, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask: %w", err)
	}
	return MaskFromImage(img), nil
}
