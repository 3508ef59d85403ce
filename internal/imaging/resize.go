package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/disintegration/imaging"
)

// NormalizeClassMap converts a decoded class-index image to *image.Gray
// and resizes it to size x size with nearest-neighbor sampling, so class
// ids are never blended. size <= 0 keeps the native resolution.
//
// The gray level is taken from the red channel, which for gray PNGs equals
// the stored value.
func NormalizeClassMap(img image.Image, size int) *image.Gray {
	b := img.Bounds()
	if size > 0 && (b.Dx() != size || b.Dy() != size) {
		img = imaging.Resize(img, size, size, imaging.NearestNeighbor)
		b = img.Bounds()
	}

	if g, ok := img.(*image.Gray); ok && b.Min == (image.Point{}) {
		return g
	}

	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if g, ok := img.(*image.Gray); ok {
		draw.Draw(out, out.Bounds(), g, b.Min, draw.Src)
		return out
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Pix[y*out.Stride+x] = uint8(r >> 8)
		}
	}
	return out
}

// EncodedImage is an image encoded as base64 PNG for JSON transports.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as base64 PNG, optionally scaled first. A scale of
// 0 or 1 keeps the original size; scaling uses Lanczos resampling.
func EncodePNG(img image.Image, scale float64) (*EncodedImage, error) {
	if scale > 0 && scale != 1.0 {
		w := int(float64(img.Bounds().Dx()) * scale)
		h := int(float64(img.Bounds().Dy()) * scale)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale %v collapses %dx%d image", scale, img.Bounds().Dx(), img.Bounds().Dy())
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
