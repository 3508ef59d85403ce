package imaging

import (
	"fmt"
	"image"
)

// Canny runs Canny edge detection on an 8-bit single-channel image and
// returns a binary edge map (255 = edge).
//
// Parameters:
//   - src: Source image, typically a 0/255 occupancy mask.
//   - low, high: Hysteresis thresholds on the L1 gradient magnitude
//     (|Gx| + |Gy|). Values are floored to integers.
//   - aperture: Sobel kernel size, 3 or 5.
//
// # Algorithm
//
//  1. Gradients: separable Sobel derivative and smoothing kernels with
//     replicated borders. No blur is applied first; masks are noise free.
//
//  2. Non-maximum suppression in four sectors split at 22.5° and 67.5°.
//     A pixel survives when it is strictly greater than the neighbor on one
//     side of the gradient and greater or equal on the other (strict on
//     both sides for diagonals). Magnitude outside the image is zero.
//
//  3. Hysteresis: pixels above high seed a stack walk through 8-connected
//     pixels above low.
//
// The result is deterministic and matches the conventional Canny used by
// the segmentation tooling for the same thresholds.
func Canny(src *image.Gray, low, high float64, aperture int) (*image.Gray, error) {
	deriv, smooth, err := sobelKernels(aperture)
	if err != nil {
		return nil, err
	}
	if low > high {
		low, high = high, low
	}
	lo, hi := floorInt(low), floorInt(high)

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out, nil
	}

	px := make([]int, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < w; x++ {
			px[y*w+x] = int(row[x])
		}
	}

	gx := separable(px, w, h, deriv, smooth)
	gy := separable(px, w, h, smooth, deriv)

	// Magnitude with a zero frame one pixel wide.
	mw := w + 2
	mag := make([]int, mw*(h+2))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			mag[(y+1)*mw+x+1] = abs(gx[i]) + abs(gy[i])
		}
	}

	const (
		none   = 1
		weak   = 0
		strong = 2
	)
	const tg22 = 13573 // round(tan(22.5°) * 2^15)

	state := make([]uint8, mw*(h+2))
	for i := range state {
		state[i] = none
	}
	var stack []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mi := (y+1)*mw + x + 1
			m := mag[mi]
			if m <= lo {
				continue
			}
			dx, dy := gx[y*w+x], gy[y*w+x]
			ax := abs(dx)
			ay := abs(dy) << 15
			tg22x := ax * tg22

			var peak bool
			switch {
			case ay < tg22x:
				peak = m > mag[mi-1] && m >= mag[mi+1]
			case ay > tg22x+(ax<<16):
				peak = m > mag[mi-mw] && m >= mag[mi+mw]
			default:
				s := 1
				if (dx < 0) != (dy < 0) {
					s = -1
				}
				peak = m > mag[mi-mw-s] && m > mag[mi+mw+s]
			}
			if !peak {
				continue
			}
			if m > hi {
				state[mi] = strong
				stack = append(stack, mi)
			} else {
				state[mi] = weak
			}
		}
	}

	neighbors := [8]int{-mw - 1, -mw, -mw + 1, -1, 1, mw - 1, mw, mw + 1}
	for len(stack) > 0 {
		mi := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range neighbors {
			n := mi + d
			if state[n] == weak {
				state[n] = strong
				stack = append(stack, n)
			}
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if state[(y+1)*mw+x+1] == strong {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out, nil
}

// CountNonZero returns the number of pixels with a non-zero value.
func CountNonZero(g *image.Gray) int {
	n := 0
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.GrayAt(x, y).Y != 0 {
				n++
			}
		}
	}
	return n
}

func sobelKernels(aperture int) (deriv, smooth []int, err error) {
	switch aperture {
	case 3:
		return []int{-1, 0, 1}, []int{1, 2, 1}, nil
	case 5:
		return []int{-1, -2, 0, 2, 1}, []int{1, 4, 6, 4, 1}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sobel aperture %d (want 3 or 5)", aperture)
	}
}

// separable convolves px with kx along rows then ky along columns, using
// replicated borders.
func separable(px []int, w, h int, kx, ky []int) []int {
	r := len(kx) / 2
	tmp := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum int
			for k := -r; k <= r; k++ {
				sum += px[y*w+clamp(x+k, 0, w-1)] * kx[k+r]
			}
			tmp[y*w+x] = sum
		}
	}
	out := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum int
			for k := -r; k <= r; k++ {
				sum += tmp[clamp(y+k, 0, h-1)*w+x] * ky[k+r]
			}
			out[y*w+x] = sum
		}
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func floorInt(v float64) int {
	i := int(v)
	if float64(i) > v {
		i--
	}
	return i
}
