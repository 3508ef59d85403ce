package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.3, 47.6]},
     "properties": {"link_id": "L2", "point_id": 7, "bearing": 90, "side": "side1",
       "pano_id": "panoA", "pano_lat": 47.6, "pano_lon": -122.3, "pano_heading": 100,
       "pano_date": "2023-05", "is_midpoint": true}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.3, 47.6]},
     "properties": {"link_id": "L2", "point_id": 8, "bearing": 90, "side": "side2",
       "pano_id": "panoA", "pano_heading": 280, "is_midpoint": "True"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.4, 47.7]},
     "properties": {"link_id": 1, "point_id": 1, "bearing": 0, "side": "side1",
       "pano_id": "panoB", "pano_heading": 180.5, "is_midpoint": true}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-122.5, 47.8]},
     "properties": {"link_id": "L3", "side": "side1", "pano_id": "panoC", "is_midpoint": false}}
  ]
}`

func TestParseMidpoints(t *testing.T) {
	m, err := ParseMidpoints([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "L2"}, m.IDs)
	assert.Equal(t, 1, m.BothSides())
	assert.Equal(t, 1, m.OneSide())

	l2 := m.Links["L2"]
	require.Len(t, l2, 2)
	assert.Equal(t, "7", l2[0].PointID)
	assert.Equal(t, "side1", l2[0].Side)
	assert.Equal(t, 100.0, l2[0].PanoHeading)
	assert.Equal(t, "2023-05", l2[0].PanoDate)
	assert.Equal(t, orb.Point{-122.3, 47.6}, l2[0].Location)
	assert.Equal(t, "side2", l2[1].Side)

	pts := m.Points()
	require.Len(t, pts, 3)
	assert.Equal(t, "1", pts[0].LinkID)
}

func TestParseMidpoints_Errors(t *testing.T) {
	_, err := ParseMidpoints([]byte(`{"type": "FeatureCollection", "features": []}`))
	assert.True(t, errors.Is(err, ErrNoMidpoints))

	_, err = ParseMidpoints([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseMidpoints([]byte(`{"type": "FeatureCollection", "features": [
		{"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]},
		 "properties": {"side": "side1", "is_midpoint": true}}]}`))
	assert.ErrorContains(t, err, "required")
}

func TestLoadMidpoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.geojson")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	m, err := LoadMidpoints(path)
	require.NoError(t, err)
	assert.Len(t, m.IDs, 2)

	_, err = LoadMidpoints(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}
