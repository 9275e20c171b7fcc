package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
)

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindText
)

// WriteShapefile writes a polyline shapefile with a .cpg sidecar. DBF
// column names are cut to 10 characters; clashes get a numeric suffix.
func WriteShapefile(path string, layer *Layer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return fmt.Errorf("failed to create shapefile %s: %w", path, err)
	}
	err = writeShapes(w, layer)
	w.Close()
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if err := fixDBFName(base); err != nil {
		return err
	}
	if err := os.WriteFile(base+".cpg", []byte("UTF-8"), 0644); err != nil {
		return fmt.Errorf("failed to write %s.cpg: %w", base, err)
	}
	return nil
}

func writeShapes(w *shp.Writer, layer *Layer) error {
	names := DBFNames(layer.Columns)
	kinds := make([]columnKind, len(layer.Columns))
	fields := make([]shp.Field, len(layer.Columns))
	for i, c := range layer.Columns {
		kinds[i] = kindOf(layer, c)
		switch kinds[i] {
		case kindInt:
			fields[i] = shp.NumberField(names[i], 18)
		case kindFloat:
			fields[i] = shp.FloatField(names[i], 24, 6)
		default:
			fields[i] = shp.StringField(names[i], 254)
		}
	}
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("failed to set fields: %w", err)
	}

	for _, row := range layer.Rows {
		n := int(w.Write(polyline(row.Geometry)))
		for i, c := range layer.Columns {
			v := cellValue(row.Properties[c], kinds[i])
			if err := w.WriteAttribute(n, i, v); err != nil {
				return fmt.Errorf("failed to write %s for row %d: %w", c, n, err)
			}
		}
	}
	return nil
}

// fixDBFName moves the attribute table go-shp v0.1.1 writes as "<base>dbf"
// to "<base>.dbf", replacing a table left by an earlier run.
func fixDBFName(base string) error {
	written := base + "dbf"
	if _, err := os.Stat(written); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", written, err)
	}
	if err := os.Rename(written, base+".dbf"); err != nil {
		return fmt.Errorf("failed to rename %s: %w", written, err)
	}
	return nil
}

// DBFNames shortens column names to the DBF limit keeping them unique
func DBFNames(columns []string) []string {
	out := model.ShortNames(columns)
	for i, c := range columns {
		if out[i] != c {
			log.WithFields(log.Fields{"column": c, "dbf": out[i]}).Warn("Shapefile column name shortened")
		}
	}
	return out
}

func kindOf(layer *Layer, column string) columnKind {
	kind := kindInt
	seen := false
	for _, row := range layer.Rows {
		switch v := row.Properties[column].(type) {
		case nil:
			continue
		case int, int32, int64, bool:
			seen = true
		case float64:
			seen = true
			if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
				kind = kindFloat
			}
		default:
			return kindText
		}
	}
	if !seen {
		return kindText
	}
	return kind
}

// cellValue converts a property for WriteAttribute; nil becomes a blank cell
func cellValue(v interface{}, kind columnKind) interface{} {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		if kind == kindInt {
			return int(x)
		}
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case string:
		return clip(x)
	case []byte:
		return clip(string(x))
	case fmt.Stringer:
		return clip(x.String())
	}
	return clip(fmt.Sprint(v))
}

func clip(s string) string {
	if len(s) > 254 {
		return s[:254]
	}
	return s
}

func polyline(g orb.Geometry) shp.Shape {
	var lines []orb.LineString
	switch geom := g.(type) {
	case orb.LineString:
		lines = []orb.LineString{geom}
	case orb.MultiLineString:
		lines = geom
	}

	var parts [][]shp.Point
	for _, ls := range lines {
		if len(ls) == 0 {
			continue
		}
		pts := make([]shp.Point, 0, len(ls))
		for _, p := range ls {
			pts = append(pts, shp.Point{X: p[0], Y: p[1]})
		}
		parts = append(parts, pts)
	}
	if len(parts) == 0 {
		return &shp.Null{}
	}
	return shp.NewPolyLine(parts)
}
