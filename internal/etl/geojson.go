package etl

import (
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
)

// LoadGeoJSON reads a feature collection exported from the redline layer
// or NGD_AL. Columns are the sorted union of all property names.
func LoadGeoJSON(localDebug bool, path string, builder *RecordBuilder) (*model.Table, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	debug.DebugOutput(localDebug, "Loaded %d features from %s", len(fc.Features), path)

	table := &model.Table{Records: make([]*model.Record, 0, len(fc.Features))}
	columns := make(map[string]bool)
	for i, f := range fc.Features {
		props := map[string]interface{}(f.Properties)
		if props == nil {
			props = make(map[string]interface{})
		}
		for k := range props {
			columns[k] = true
		}
		rec, err := builder.Build(i, props, f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		table.Records = append(table.Records, rec)
	}

	for k := range columns {
		table.Columns = append(table.Columns, k)
	}
	sort.Strings(table.Columns)
	return table, nil
}
