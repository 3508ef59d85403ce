package detection

import (
	"image"
)

// Component is one 8-connected region of non-zero mask pixels.
type Component struct {
	// Pixels lists the member pixels in discovery order.
	Pixels []image.Point

	// Bounds is the smallest rectangle containing every pixel.
	Bounds image.Rectangle
}

// Area returns the pixel count of the component.
func (c Component) Area() int { return len(c.Pixels) }

// Components labels the 8-connected regions of mask. Regions are returned
// in raster order of their first pixel.
func Components(mask *image.Gray) []Component {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()

	visited := make([]bool, width*height)
	var comps []Component

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || mask.Pix[mask.PixOffset(b.Min.X+x, b.Min.Y+y)] == 0 {
				continue
			}
			c := floodFill(mask, visited, x, y)
			comps = append(comps, c)
		}
	}
	return comps
}

// RemoveSmallComponents returns a copy of mask with every component whose
// area is below minArea cleared, and the number of components removed.
func RemoveSmallComponents(mask *image.Gray, minArea float64) (*image.Gray, int) {
	b := mask.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	removed := 0
	for _, c := range Components(mask) {
		if float64(c.Area()) < minArea {
			removed++
			continue
		}
		for _, p := range c.Pixels {
			out.Pix[p.Y*out.Stride+p.X] = 255
		}
	}
	return out, removed
}

// floodFill collects the component containing (startX, startY) using an
// explicit stack. Points are relative to the mask bounds.
func floodFill(mask *image.Gray, visited []bool, startX, startY int) Component {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()

	c := Component{Bounds: image.Rect(startX, startY, startX+1, startY+1)}
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c.Pixels = append(c.Pixels, p)
		c.Bounds = c.Bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		// 8-connected neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				if visited[ny*width+nx] || mask.Pix[mask.PixOffset(b.Min.X+nx, b.Min.Y+ny)] == 0 {
					continue
				}
				visited[ny*width+nx] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return c
}
