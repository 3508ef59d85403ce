package imaging

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawStrokes(t *testing.T) {
	img := NewCanvas(20, 20, color.Black)
	red := color.RGBA{255, 0, 0, 255}

	DrawStrokes(img, []Stroke{{X1: 2, Y1: 5, X2: 15, Y2: 5, Color: red}}, 1)

	assert.Equal(t, red, img.RGBAAt(2, 5))
	assert.Equal(t, red, img.RGBAAt(10, 5))
	assert.Equal(t, red, img.RGBAAt(15, 5))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(10, 6))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(16, 5))
}

func TestDrawStrokes_ThickAndDashed(t *testing.T) {
	img := NewCanvas(40, 20, color.Black)
	blue := color.RGBA{0, 0, 255, 255}

	DrawStrokes(img, []Stroke{{X1: 0, Y1: 10, X2: 39, Y2: 10, Color: blue, Dashed: true}}, 3)

	assert.Equal(t, blue, img.RGBAAt(0, 9))
	assert.Equal(t, blue, img.RGBAAt(0, 11))
	assert.Equal(t, blue, img.RGBAAt(5, 10))
	assert.NotEqual(t, blue, img.RGBAAt(7, 10), "gap in the dash pattern")
}

func TestDrawStrokes_ClipsOutOfBounds(t *testing.T) {
	img := NewCanvas(10, 10, color.Black)
	assert.NotPanics(t, func() {
		DrawStrokes(img, []Stroke{{X1: -5, Y1: -5, X2: 30, Y2: 30, Color: color.RGBA{A: 255}}}, 4)
	})
}

func TestMaskCanvas(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 4, 4))
	mask.SetGray(1, 2, color.Gray{Y: 255})
	lime := Named("lime")

	img := MaskCanvas(mask, lime)

	assert.Equal(t, lime, img.RGBAAt(1, 2))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 0))
}

func TestDrawGuides(t *testing.T) {
	img := NewCanvas(40, 40, color.Black)
	red := color.RGBA{255, 0, 0, 255}
	gray := color.RGBA{80, 80, 80, 255}

	DrawGuides(img, []int{20}, red, 10, gray)

	assert.Equal(t, red, img.RGBAAt(0, 20))
	assert.Equal(t, gray, img.RGBAAt(10, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(5, 5))
}

func TestDrawCaption(t *testing.T) {
	img := NewCanvas(120, 30, color.Black)
	bg := color.RGBA{40, 40, 40, 255}

	DrawCaption(img, 4, 4, "pitch 0", color.RGBA{255, 255, 255, 255}, bg)

	lit := 0
	for y := 0; y < 30; y++ {
		for x := 0; x < 120; x++ {
			if img.RGBAAt(x, y).R == 255 {
				lit++
			}
		}
	}
	assert.Positive(t, lit)
	assert.Equal(t, bg, img.RGBAAt(3, 4))
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	img := NewCanvas(16, 8, color.RGBA{0, 128, 0, 255})

	for _, name := range []string{"nested/out.png", "out.jpg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, SaveImage(path, img))

			back, err := imgio.Open(path)
			require.NoError(t, err)
			assert.Equal(t, 16, back.Bounds().Dx())
			assert.Equal(t, 8, back.Bounds().Dy())
		})
	}

	err := SaveImage(filepath.Join(dir, "out.gif"), img)
	assert.ErrorContains(t, err, "unsupported image extension")
	_, statErr := os.Stat(filepath.Join(dir, "out.gif"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00FF00", color.RGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.RGBA{0, 0, 255, 128}, false},
		{"", color.RGBA{}, true},
		{"#FFF", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseHexColor(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
