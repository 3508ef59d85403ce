package imaging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"
)

// Class is a semantic segmentation class. The numeric value matches the
// Cityscapes training id, which is also the gray level used in class-index
// PNG maps.
type Class uint8

// Cityscapes training classes.
const (
	ClassRoad Class = iota
	ClassSidewalk
	ClassBuilding
	ClassWall
	ClassFence
	ClassPole
	ClassTrafficLight
	ClassTrafficSign
	ClassVegetation
	ClassTerrain
	ClassSky
	ClassPerson
	ClassRider
	ClassCar
	ClassTruck
	ClassBus
	ClassTrain
	ClassMotorcycle
	ClassBicycle

	// ClassUnlabeled marks pixels outside the training set (gray level 255).
	ClassUnlabeled Class = 255
)

var classNames = [...]string{
	"road", "sidewalk", "building", "wall", "fence", "pole",
	"traffic light", "traffic sign", "vegetation", "terrain", "sky",
	"person", "rider", "car", "truck", "bus", "train", "motorcycle", "bicycle",
}

// ErrUnknownClass is returned by ParseClass for names outside the label set.
var ErrUnknownClass = errors.New("unknown class")

// String returns the label name as written by the segmentation step.
func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unlabeled"
}

// ParseClass maps a label name ("sidewalk", "traffic light") to its Class.
// Matching ignores case and surrounding space.
func ParseClass(name string) (Class, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, cn := range classNames {
		if cn == n {
			return Class(i), nil
		}
	}
	if n == "unlabeled" {
		return ClassUnlabeled, nil
	}
	return ClassUnlabeled, fmt.Errorf("%w: %q", ErrUnknownClass, name)
}

// PixelLabel is one row of a segmentation label table.
type PixelLabel struct {
	X     int
	Y     int
	Class Class
}

// LabelTable is the per-pixel output of the segmentation step for one
// capture. Row order carries no meaning.
type LabelTable []PixelLabel

// Size returns the grid dimensions implied by the table: max(x)+1 by
// max(y)+1. An empty table has size 0x0.
func (t LabelTable) Size() (width, height int) {
	for _, p := range t {
		if p.X+1 > width {
			width = p.X + 1
		}
		if p.Y+1 > height {
			height = p.Y + 1
		}
	}
	return width, height
}

// Count returns how many pixels carry class c.
func (t LabelTable) Count(c Class) int {
	n := 0
	for _, p := range t {
		if p.Class == c {
			n++
		}
	}
	return n
}

// ReadLabelCSV parses a label table with an "x,y,label" header. Column
// order is taken from the header; extra columns are ignored. Labels outside
// the class set are kept as ClassUnlabeled.
func ReadLabelCSV(r io.Reader) (LabelTable, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read label header: %w", err)
	}
	xi, yi, li := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "x":
			xi = i
		case "y":
			yi = i
		case "label":
			li = i
		}
	}
	if xi < 0 || yi < 0 || li < 0 {
		return nil, fmt.Errorf("label header must contain x, y and label columns, got %v", header)
	}

	var table LabelTable
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read label row %d: %w", line, err)
		}
		x, err := strconv.Atoi(strings.TrimSpace(rec[xi]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid x %q", line, rec[xi])
		}
		y, err := strconv.Atoi(strings.TrimSpace(rec[yi]))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid y %q", line, rec[yi])
		}
		if x < 0 || y < 0 {
			return nil, fmt.Errorf("row %d: negative coordinate (%d,%d)", line, x, y)
		}
		c, _ := ParseClass(rec[li])
		table = append(table, PixelLabel{X: x, Y: y, Class: c})
	}
	return table, nil
}

// WriteLabelCSV writes the table in the format ReadLabelCSV accepts.
func WriteLabelCSV(w io.Writer, t LabelTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"x", "y", "label"}); err != nil {
		return err
	}
	for _, p := range t {
		if err := cw.Write([]string{strconv.Itoa(p.X), strconv.Itoa(p.Y), p.Class.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FromClassMap converts a class-index image (gray level = training id)
// into a label table, one row per pixel.
func FromClassMap(m *image.Gray) LabelTable {
	b := m.Bounds()
	table := make(LabelTable, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := m.GrayAt(x, y).Y
			c := Class(v)
			if int(v) >= len(classNames) {
				c = ClassUnlabeled
			}
			table = append(table, PixelLabel{X: x - b.Min.X, Y: y - b.Min.Y, Class: c})
		}
	}
	return table
}

// ToClassMap renders the table as a class-index image. Pixels missing from
// the table are ClassUnlabeled.
func ToClassMap(t LabelTable) *image.Gray {
	w, h := t.Size()
	m := image.NewGray(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = uint8(ClassUnlabeled)
	}
	for _, p := range t {
		m.SetGray(p.X, p.Y, color.Gray{Y: uint8(p.Class)})
	}
	return m
}
