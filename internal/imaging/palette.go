package imaging

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// namedColors covers the names used by the diagnostic renderers.
var namedColors = map[string]string{
	"black":      "#000000",
	"white":      "#ffffff",
	"red":        "#ff0000",
	"lime":       "#00ff00",
	"green":      "#008000",
	"blue":       "#0000ff",
	"cyan":       "#00ffff",
	"orange":     "#ffa500",
	"skyblue":    "#87ceeb",
	"lightblue":  "#add8e6",
	"lightcoral": "#f08080",
	"purple":     "#800080",
	"gray":       "#808080",
}

// Named returns the color for a name such as "lime" or "skyblue", or a
// hex string. Unknown names fall back to magenta so they stand out.
func Named(name string) color.RGBA {
	hex, ok := namedColors[name]
	if !ok {
		hex = name
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{R: 255, B: 255, A: 255}
	}
	return toRGBA(c)
}

// Palette returns n visually distinct colors with evenly spaced hues.
// The result depends only on n.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		h := 360 * float64(i) / float64(max(n, 1))
		out[i] = toRGBA(colorful.Hsv(h, 0.85, 0.95))
	}
	return out
}

// cityscapesColors are the reference colors of the training classes.
var cityscapesColors = [...]color.RGBA{
	{128, 64, 128, 255}, {244, 35, 232, 255}, {70, 70, 70, 255}, {102, 102, 156, 255},
	{190, 153, 153, 255}, {153, 153, 153, 255}, {250, 170, 30, 255}, {220, 220, 0, 255},
	{107, 142, 35, 255}, {152, 251, 152, 255}, {70, 130, 180, 255}, {220, 20, 60, 255},
	{255, 0, 0, 255}, {0, 0, 142, 255}, {0, 0, 70, 255}, {0, 60, 100, 255},
	{0, 80, 100, 255}, {0, 0, 230, 255}, {119, 11, 32, 255},
}

// ClassColor returns the reference color for c; unlabeled pixels are black.
func ClassColor(c Class) color.RGBA {
	if int(c) < len(cityscapesColors) {
		return cityscapesColors[c]
	}
	return color.RGBA{A: 255}
}

// Colorize renders a label table with the reference class colors. When
// highlight is a valid class, pixels of that class are blended toward
// white in Lab space so the target surface stands out.
func Colorize(t LabelTable, highlight Class) *image.RGBA {
	w, h := t.Size()
	img := NewCanvas(w, h, color.Black)
	white := colorful.Color{R: 1, G: 1, B: 1}
	for _, p := range t {
		c := ClassColor(p.Class)
		if p.Class == highlight && highlight != ClassUnlabeled {
			cc, _ := colorful.MakeColor(c)
			c = toRGBA(cc.BlendLab(white, 0.45).Clamped())
		}
		img.SetRGBA(p.X, p.Y, c)
	}
	return img
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
