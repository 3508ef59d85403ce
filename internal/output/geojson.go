package output

import (
	"fmt"
	"io"

	"github.com/paulmach/orb/geojson"

	"github.com/ironsheep/street-width-mcp/internal/estimate"
)

// FeatureCollection converts rows into point features carrying the
// manifest properties and the result. The width property is null when
// absent; no_buffer marks the classified verdict.
func FeatureCollection(v estimate.Variant, rows []Row) *geojson.FeatureCollection {
	widthKey, codeKey := "width", "error_code"
	if v == estimate.Buffer {
		widthKey, codeKey = "buffer_width", "buffer_error_code"
	}

	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		f := geojson.NewFeature(r.Location)
		f.Properties["link_id"] = r.LinkID
		f.Properties["point_id"] = r.PointID
		f.Properties["bearing"] = r.Bearing
		f.Properties["side"] = r.Side
		f.Properties["pano_id"] = r.PanoID
		f.Properties["pano_lat"] = r.PanoLat
		f.Properties["pano_lon"] = r.PanoLon
		f.Properties["pano_heading"] = r.PanoHeading
		f.Properties["pano_date"] = r.PanoDate

		f.Properties[widthKey] = nil
		if r.Result.Value != nil {
			f.Properties[widthKey] = Round2(*r.Result.Value)
		}
		f.Properties[codeKey] = nil
		if r.Result.Code != nil {
			f.Properties[codeKey] = int(*r.Result.Code)
		}
		if v == estimate.Buffer {
			f.Properties["no_buffer"] = r.Result.IsNoBuffer()
		}
		if r.Result.Reason != "" {
			f.Properties["reason"] = r.Result.Reason
		}
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON encodes the rows as a FeatureCollection.
func WriteGeoJSON(w io.Writer, v estimate.Variant, rows []Row) error {
	data, err := FeatureCollection(v, rows).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	_, err = w.Write(data)
	return err
}
