package etl

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/mholt/archiver/v3"
	"github.com/paulmach/orb"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
)

// LoadShapefile reads a polyline shapefile. DBF values arrive as text and
// are typed from the field definition before normalization.
func LoadShapefile(localDebug bool, path string, builder *RecordBuilder) (*model.Table, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer reader.Close()

	fields := reader.Fields()
	table := &model.Table{}
	for _, f := range fields {
		table.Columns = append(table.Columns, f.String())
	}
	debug.DebugOutput(localDebug, "Shapefile columns: %v", table.Columns)

	for reader.Next() {
		n, shape := reader.Shape()
		props := make(map[string]interface{}, len(fields))
		for k, f := range fields {
			props[f.String()] = dbfValue(f, reader.ReadAttribute(n, k))
		}
		rec, err := builder.Build(n, props, shapeGeometry(shape))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		table.Records = append(table.Records, rec)
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed reading %s: %w", path, err)
	}
	return table, nil
}

// dbfValue types a raw DBF cell. Blank cells are nil.
func dbfValue(f shp.Field, raw string) interface{} {
	s := strings.TrimSpace(strings.Trim(raw, "\x00"))
	if s == "" {
		return nil
	}
	switch f.Fieldtype {
	case 'N', 'F':
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return s
}

// shapeGeometry converts polyline shapes; other shape types carry no
// length and are returned as nil
func shapeGeometry(s shp.Shape) orb.Geometry {
	var points []shp.Point
	var parts []int32
	switch p := s.(type) {
	case *shp.PolyLine:
		points, parts = p.Points, p.Parts
	case *shp.PolyLineZ:
		points, parts = p.Points, p.Parts
	case *shp.PolyLineM:
		points, parts = p.Points, p.Parts
	default:
		return nil
	}

	var lines orb.MultiLineString
	for i, start := range parts {
		end := int32(len(points))
		if i < len(parts)-1 {
			end = parts[i+1]
		}
		ls := make(orb.LineString, 0, end-start)
		for _, pt := range points[start:end] {
			ls = append(ls, orb.Point{pt.X, pt.Y})
		}
		lines = append(lines, ls)
	}
	if len(lines) == 1 {
		return lines[0]
	}
	return lines
}

// LoadTable picks a loader from the file extension. Zipped shapefiles are
// unpacked next to the archive first.
func LoadTable(localDebug bool, path string, builder *RecordBuilder) (*model.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return LoadGeoJSON(localDebug, path, builder)
	case ".shp":
		return LoadShapefile(localDebug, path, builder)
	case ".zip":
		shpPath, err := unzipShapefile(path)
		if err != nil {
			return nil, err
		}
		return LoadShapefile(localDebug, shpPath, builder)
	}
	return nil, fmt.Errorf("unsupported input format: %s", path)
}

func unzipShapefile(path string) (string, error) {
	dest := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.MkdirAll(dest, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	z := archiver.NewZip()
	z.OverwriteExisting = true
	if err := z.Unarchive(path, dest); err != nil {
		return "", fmt.Errorf("failed to unzip %s: %w", path, err)
	}
	matches, err := filepath.Glob(filepath.Join(dest, "*.shp"))
	if err != nil || len(matches) == 0 {
		matches, _ = filepath.Glob(filepath.Join(dest, "*", "*.shp"))
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no shapefile in %s", path)
	}
	return matches[0], nil
}
