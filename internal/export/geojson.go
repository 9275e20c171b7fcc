package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection converts the layer; rows without geometry get an
// empty line string
func FeatureCollection(layer *Layer) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, row := range layer.Rows {
		geom := row.Geometry
		if geom == nil {
			geom = orb.LineString{}
		}
		f := geojson.NewFeature(geom)
		for _, c := range layer.Columns {
			f.Properties[c] = row.Properties[c]
		}
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes the layer as a feature collection
func WriteGeoJSON(path string, layer *Layer) error {
	data, err := FeatureCollection(layer).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
