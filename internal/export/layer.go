package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/validation"
)

// Row is one output feature
type Row struct {
	Properties map[string]interface{}
	Geometry   orb.Geometry
}

// Layer is a table of features with a fixed column order
type Layer struct {
	Columns []string
	Rows    []Row
}

// Overlap layer columns
const (
	ColRedlineUID  = "Redline_NGD_UID"
	ColRedlineFrom = "Redline_AF_VAL"
	ColRedlineTo   = "Redline_AT_VAL"
	ColALUID       = "AL_NGD_UID"
	ColALFrom      = "AL_AF_VAL"
	ColALTo        = "AL_AT_VAL"
	ColOverlapFlag = "overlap_flag"
)

// OverlapColumns in output order
var OverlapColumns = []string{ColRedlineUID, ColRedlineFrom, ColRedlineTo, ColALUID, ColALFrom, ColALTo, ColOverlapFlag}

// RecordLayer keeps the source columns of the redline table for the given
// records. Records built without raw properties fall back to their
// normalized attributes.
func RecordLayer(columns []string, records []*model.Record) *Layer {
	if len(columns) == 0 {
		seen := make(map[string]bool)
		for _, rec := range records {
			for k := range rec.Attrs {
				if !seen[k] {
					seen[k] = true
					columns = append(columns, k)
				}
			}
		}
		sort.Strings(columns)
	}

	layer := &Layer{Columns: columns, Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		props := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			if rec.Raw != nil {
				props[c] = rec.Raw[c]
			} else {
				props[c] = rec.Attr(c).Interface()
			}
		}
		layer.Rows = append(layer.Rows, Row{Properties: props, Geometry: rec.Geometry})
	}
	return layer
}

// OverlapLayer turns overlap flags into the QC layer
func OverlapLayer(flags []validation.Flag) *Layer {
	layer := &Layer{Columns: OverlapColumns, Rows: make([]Row, 0, len(flags))}
	for _, f := range flags {
		layer.Rows = append(layer.Rows, Row{
			Properties: map[string]interface{}{
				ColRedlineUID:  f.CandidateUID,
				ColRedlineFrom: f.CandidateFrom,
				ColRedlineTo:   f.CandidateTo,
				ColALUID:       f.ConflictUID,
				ColALFrom:      f.ConflictFrom,
				ColALTo:        f.ConflictTo,
				ColOverlapFlag: f.Label(),
			},
			Geometry: f.Geometry,
		})
	}
	return layer
}

// WriteLayer picks a writer from the file extension
func WriteLayer(path string, layer *Layer) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return WriteGeoJSON(path, layer)
	case ".shp":
		return WriteShapefile(path, layer)
	}
	return fmt.Errorf("unsupported output format: %s", path)
}
