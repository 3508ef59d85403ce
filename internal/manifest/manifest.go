// Package manifest loads the candidate midpoints of a street network and
// plans the captures taken at each of them.
//
// A manifest is a GeoJSON FeatureCollection of points. Every point that
// carries is_midpoint = true names a link, one side of that link, and the
// panorama closest to it. A link usually has two midpoints, one per side.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoMidpoints is returned when a manifest has no midpoint features.
var ErrNoMidpoints = errors.New("no midpoint features")

const maxManifestSize = 256 * 1024 * 1024

// Point is one midpoint of a link side.
type Point struct {
	LinkID      string    `json:"link_id"`
	PointID     string    `json:"point_id"`
	Bearing     float64   `json:"bearing"`
	Side        string    `json:"side"`
	PanoID      string    `json:"pano_id"`
	PanoLat     float64   `json:"pano_lat"`
	PanoLon     float64   `json:"pano_lon"`
	PanoHeading float64   `json:"pano_heading"`
	PanoDate    string    `json:"pano_date"`
	Location    orb.Point `json:"-"`
}

// Manifest groups midpoints by link.
type Manifest struct {
	// Links maps link id to its midpoints in file order.
	Links map[string][]Point

	// IDs lists the link ids in ascending order.
	IDs []string
}

// BothSides counts links with exactly two midpoints.
func (m *Manifest) BothSides() int { return m.countSides(2) }

// OneSide counts links with a single midpoint.
func (m *Manifest) OneSide() int { return m.countSides(1) }

func (m *Manifest) countSides(n int) int {
	c := 0
	for _, pts := range m.Links {
		if len(pts) == n {
			c++
		}
	}
	return c
}

// Points returns every midpoint, links in ID order.
func (m *Manifest) Points() []Point {
	var out []Point
	for _, id := range m.IDs {
		out = append(out, m.Links[id]...)
	}
	return out
}

// LoadMidpoints reads a GeoJSON manifest from path. See ParseMidpoints.
func LoadMidpoints(path string) (*Manifest, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}
	if info.Size() > maxManifestSize {
		return nil, fmt.Errorf("manifest too large: %d bytes", info.Size())
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseMidpoints(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(cleanPath), err)
	}
	return m, nil
}

// ParseMidpoints decodes a FeatureCollection and keeps the features whose
// is_midpoint property is true. Ids may be strings or numbers; numbers are
// formatted without a trailing ".0".
func ParseMidpoints(data []byte) (*Manifest, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	m := &Manifest{Links: make(map[string][]Point)}
	for i, f := range fc.Features {
		if !truthy(f.Properties["is_midpoint"]) {
			continue
		}
		p := Point{
			LinkID:      text(f.Properties["link_id"]),
			PointID:     text(f.Properties["point_id"]),
			Bearing:     number(f.Properties["bearing"]),
			Side:        text(f.Properties["side"]),
			PanoID:      text(f.Properties["pano_id"]),
			PanoLat:     number(f.Properties["pano_lat"]),
			PanoLon:     number(f.Properties["pano_lon"]),
			PanoHeading: number(f.Properties["pano_heading"]),
			PanoDate:    text(f.Properties["pano_date"]),
		}
		if pt, ok := f.Geometry.(orb.Point); ok {
			p.Location = pt
		}
		if p.LinkID == "" || p.PanoID == "" || p.Side == "" {
			return nil, fmt.Errorf("feature %d: link_id, side and pano_id are required", i)
		}
		if _, ok := m.Links[p.LinkID]; !ok {
			m.IDs = append(m.IDs, p.LinkID)
		}
		m.Links[p.LinkID] = append(m.Links[p.LinkID], p)
	}
	if len(m.IDs) == 0 {
		return nil, ErrNoMidpoints
	}
	sort.Strings(m.IDs)
	return m, nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	default:
		return false
	}
}

func text(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func number(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
