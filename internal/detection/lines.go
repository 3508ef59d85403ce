package detection

import (
	"image"
	"math"
)

// Point is a pixel coordinate.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Line is a detected line segment.
type Line struct {
	Start        Point   `json:"start"`
	End          Point   `json:"end"`
	Length       float64 `json:"length"`
	AngleDegrees float64 `json:"angle_degrees"`
}

func newLine(x1, y1, x2, y2 int) Line {
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	return Line{
		Start:        Point{X: x1, Y: y1},
		End:          Point{X: x2, Y: y2},
		Length:       math.Round(math.Hypot(dx, dy)*10) / 10,
		AngleDegrees: math.Round(math.Atan2(dy, dx)*1800/math.Pi) / 10,
	}
}

// HoughParams configures HoughLinesP.
type HoughParams struct {
	// Rho is the distance resolution of the accumulator in pixels.
	Rho float64 `json:"rho"`

	// Theta is the angle resolution of the accumulator in radians.
	Theta float64 `json:"theta"`

	// Threshold is the minimum accumulator vote for a candidate line.
	Threshold int `json:"threshold"`

	// MinLength is the minimum extent along x or y for an accepted line.
	MinLength int `json:"min_length"`

	// MaxGap is the largest run of missing pixels bridged while walking a line.
	MaxGap int `json:"max_gap"`

	// MaxLines stops detection early; 0 means no limit.
	MaxLines int `json:"max_lines,omitempty"`
}

// DefaultHoughParams returns 1px, 1°, 25 votes, 20px minimum length and
// 30px maximum gap.
func DefaultHoughParams() HoughParams {
	return HoughParams{
		Rho:       1,
		Theta:     math.Pi / 180,
		Threshold: 25,
		MinLength: 20,
		MaxGap:    30,
	}
}

// HoughLinesP finds line segments in a binary edge map with the progressive
// probabilistic Hough transform.
//
// # Algorithm
//
//  1. Every non-zero pixel is queued. Pixels are drawn from the queue in a
//     pseudo-random order.
//  2. A drawn pixel votes in the (theta, rho) accumulator. If its strongest
//     bin reaches Threshold, the line through that bin is walked from the
//     pixel in both directions until the image border or more than MaxGap
//     consecutive empty pixels.
//  3. If the walked extent reaches MinLength along x or y, the segment is
//     kept and the votes of its pixels are withdrawn. Walked pixels are
//     removed from the queue either way.
//
// Accumulator arithmetic is single precision with round-half-even and the
// walk uses 16-bit fixed point, so results match the common reference
// implementation for the same input.
func HoughLinesP(edges *image.Gray, p HoughParams) []Line {
	b := edges.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 || p.Rho <= 0 || p.Theta <= 0 {
		return nil
	}

	rho := float32(p.Rho)
	theta := float32(p.Theta)
	irho := 1 / rho

	numangle := houghNumAngle(float64(theta))
	numrho := roundEven32(float32(float64((width+height)*2+1) / float64(rho)))
	offset := (numrho - 1) / 2

	trig := make([]float32, numangle*2)
	for n := 0; n < numangle; n++ {
		a := float64(n) * float64(theta)
		trig[n*2] = float32(math.Cos(a) * float64(irho))
		trig[n*2+1] = float32(math.Sin(a) * float64(irho))
	}
	bin := func(n, x, y int) int {
		v := float32(float32(x)*trig[n*2]) + float32(float32(y)*trig[n*2+1])
		return roundEven32(v) + offset
	}

	accum := make([]int32, numangle*numrho)
	mask := make([]uint8, width*height)
	var queue []Point
	for y := 0; y < height; y++ {
		row := edges.Pix[edges.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < width; x++ {
			if row[x] != 0 {
				mask[y*width+x] = 1
				queue = append(queue, Point{X: x, Y: y})
			}
		}
	}

	const shift = 16
	rng := newMWC()
	var lines []Line

	for count := len(queue); count > 0; count-- {
		idx := int(rng.uniform(uint32(count)))
		pt := queue[idx]
		queue[idx] = queue[count-1]

		// Already consumed by an earlier walk.
		if mask[pt.Y*width+pt.X] == 0 {
			continue
		}

		maxVal, maxN := int32(p.Threshold-1), 0
		for n := 0; n < numangle; n++ {
			i := n*numrho + bin(n, pt.X, pt.Y)
			accum[i]++
			if maxVal < accum[i] {
				maxVal = accum[i]
				maxN = n
			}
		}
		if maxVal < int32(p.Threshold) {
			continue
		}

		a := -trig[maxN*2+1]
		bb := trig[maxN*2]
		x0, y0 := pt.X, pt.Y
		var dx0, dy0 int
		xflag := abs32(a) > abs32(bb)
		if xflag {
			dx0 = 1
			if a <= 0 {
				dx0 = -1
			}
			dy0 = roundEven32(bb * (1 << shift) / abs32(a))
			y0 = y0<<shift + 1<<(shift-1)
		} else {
			dy0 = 1
			if bb <= 0 {
				dy0 = -1
			}
			dx0 = roundEven32(a * (1 << shift) / abs32(bb))
			x0 = x0<<shift + 1<<(shift-1)
		}
		at := func(x, y int) (int, int) {
			if xflag {
				return x, y >> shift
			}
			return x >> shift, y
		}

		var ends [2]Point
		for k := 0; k < 2; k++ {
			gap := 0
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				j1, i1 := at(x, y)
				if j1 < 0 || j1 >= width || i1 < 0 || i1 >= height {
					break
				}
				if mask[i1*width+j1] != 0 {
					gap = 0
					ends[k] = Point{X: j1, Y: i1}
				} else if gap++; gap > p.MaxGap {
					break
				}
			}
		}

		good := absInt(ends[1].X-ends[0].X) >= p.MinLength ||
			absInt(ends[1].Y-ends[0].Y) >= p.MinLength

		for k := 0; k < 2; k++ {
			dx, dy := dx0, dy0
			if k > 0 {
				dx, dy = -dx, -dy
			}
			for x, y := x0, y0; ; x, y = x+dx, y+dy {
				j1, i1 := at(x, y)
				if j1 < 0 || j1 >= width || i1 < 0 || i1 >= height {
					break
				}
				if mask[i1*width+j1] != 0 {
					if good {
						for n := 0; n < numangle; n++ {
							accum[n*numrho+bin(n, j1, i1)]--
						}
					}
					mask[i1*width+j1] = 0
				}
				if i1 == ends[k].Y && j1 == ends[k].X {
					break
				}
			}
		}

		if good {
			lines = append(lines, newLine(ends[0].X, ends[0].Y, ends[1].X, ends[1].Y))
			if p.MaxLines > 0 && len(lines) >= p.MaxLines {
				break
			}
		}
	}
	return lines
}

// houghNumAngle counts the theta bins over [0, π), dropping a last bin
// that would duplicate theta = 0.
func houghNumAngle(theta float64) int {
	n := int(math.Floor(math.Pi/theta)) + 1
	if n > 1 && math.Abs(math.Pi-float64(n-1)*theta) < theta/2 {
		n--
	}
	return n
}

// mwc is a 64-bit multiply-with-carry generator with a fixed seed.
type mwc struct {
	state uint64
}

func newMWC() *mwc { return &mwc{state: math.MaxUint64} }

func (r *mwc) next() uint32 {
	r.state = uint64(uint32(r.state))*4164903690 + r.state>>32
	return uint32(r.state)
}

// uniform returns a value in [0, n).
func (r *mwc) uniform(n uint32) uint32 {
	return r.next() % n
}

func roundEven32(v float32) int {
	return int(math.RoundToEven(float64(v)))
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
