package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Stroke is one line segment to draw on an overlay.
type Stroke struct {
	X1, Y1, X2, Y2 float64
	Color          color.RGBA
	Dashed         bool
}

// NewCanvas returns a width x height RGBA image filled with bg.
func NewCanvas(width, height int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	return img
}

// MaskCanvas copies a binary mask into an RGBA canvas, painting foreground
// pixels with fg over a black background.
func MaskCanvas(mask *image.Gray, fg color.RGBA) *image.RGBA {
	b := mask.Bounds()
	img := NewCanvas(b.Dx(), b.Dy(), color.Black)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if mask.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				img.SetRGBA(x, y, fg)
			}
		}
	}
	return img
}

// DrawStrokes rasterizes each stroke with a square brush of the given
// thickness. Dashed strokes alternate 6px on, 4px off.
func DrawStrokes(dst *image.RGBA, strokes []Stroke, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	for _, s := range strokes {
		drawLine(dst, s, thickness)
	}
}

func drawLine(dst *image.RGBA, s Stroke, thickness int) {
	dx := s.X2 - s.X1
	dy := s.Y2 - s.Y1
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}
	half := thickness / 2
	for i := 0; i <= steps; i++ {
		if s.Dashed && i%10 >= 6 {
			continue
		}
		t := float64(i) / float64(steps)
		cx := int(math.Round(s.X1 + t*dx))
		cy := int(math.Round(s.Y1 + t*dy))
		for oy := -half; oy < thickness-half; oy++ {
			for ox := -half; ox < thickness-half; ox++ {
				setIn(dst, cx+ox, cy+oy, s.Color)
			}
		}
	}
}

// DrawGuides draws full-width horizontal guides at each y (such as the
// image centerline) and, when bandWidth > 0, faint vertical band
// boundaries.
func DrawGuides(dst *image.RGBA, ys []int, guide color.RGBA, bandWidth int, band color.RGBA) {
	b := dst.Bounds()
	if bandWidth > 0 {
		for x := b.Min.X + bandWidth; x < b.Max.X; x += bandWidth {
			for y := b.Min.Y; y < b.Max.Y; y++ {
				if y%4 == 0 {
					setIn(dst, x, y, band)
				}
			}
		}
	}
	for _, y := range ys {
		for x := b.Min.X; x < b.Max.X; x++ {
			if x%10 < 6 {
				setIn(dst, x, y, guide)
			}
		}
	}
}

// DrawCaption draws text with its top-left corner at (x, y) on a filled
// background box.
func DrawCaption(dst *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	box := image.Rect(x-2, y-1, x+width+2, y+height+1).Intersect(dst.Bounds())
	draw.Draw(dst, box, &image.Uniform{C: bg}, image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{C: fg},
		Face: face,
		Dot:  fixed.P(x, y+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

func setIn(dst *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(dst.Bounds()) {
		dst.SetRGBA(x, y, c)
	}
}

// SaveImage writes img to path, creating parent directories. The encoder
// follows the extension: .jpg/.jpeg (quality 95) or .png.
func SaveImage(path string, img image.Image) error {
	var enc imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(95)
	case ".png":
		enc = imgio.PNGEncoder()
	default:
		return fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	hex = strings.TrimPrefix(hex, "#")

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}
