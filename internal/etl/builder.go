package etl

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Schema names the special columns of an input layer
type Schema struct {
	UIDField          string
	EditDateField     string
	CreationDateField string
	// Prefixes are stripped from column names, e.g. the "WC2021NGD_AL_20200313_"
	// prefix carried by joined exports
	Prefixes []string
}

// DefaultSchema matches the hosted redline layer
func DefaultSchema() Schema {
	return Schema{
		UIDField:          model.FieldUID,
		EditDateField:     model.FieldEditDate,
		CreationDateField: model.FieldCreationDate,
	}
}

// RecordBuilder turns a feature's properties into a normalized record
type RecordBuilder struct {
	schema     Schema
	normalizer *normalize.Normalizer
	badDates   int
}

// NewRecordBuilder creates a builder; the normalizer decides strictness
func NewRecordBuilder(schema Schema, normalizer *normalize.Normalizer) *RecordBuilder {
	if normalizer == nil {
		normalizer = &normalize.Normalizer{}
	}
	return &RecordBuilder{schema: schema, normalizer: normalizer}
}

// Normalizer returns the normalizer used for attribute values
func (b *RecordBuilder) Normalizer() *normalize.Normalizer {
	return b.normalizer
}

// Canonical strips the first matching configured prefix from a column name
// and restores layer names cut to fit a shapefile attribute table
func (b *RecordBuilder) Canonical(column string) string {
	for _, p := range b.schema.Prefixes {
		if p != "" && strings.HasPrefix(column, p) && len(column) > len(p) {
			column = column[len(p):]
			break
		}
	}
	return model.FullName(column)
}

// Build creates the record at index from raw properties and a geometry.
// Raw keeps the original column names for re-export.
func (b *RecordBuilder) Build(index int, props map[string]interface{}, geom orb.Geometry) (*model.Record, error) {
	rec := &model.Record{
		Geometry: geom,
		Raw:      props,
		Index:    index,
		Attrs:    make(map[string]normalize.Value, len(props)),
	}

	for column, raw := range props {
		name := b.Canonical(column)
		switch name {
		case b.schema.EditDateField:
			rec.EditDate = b.parseDate(name, raw)
			continue
		case b.schema.CreationDateField:
			rec.CreationDate = b.parseDate(name, raw)
			continue
		}

		typ := model.TypeOf(name)
		if name == b.schema.UIDField {
			typ = normalize.TypeInt
		}
		v, err := b.normalizer.Normalize(name, raw, typ)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", index, err)
		}
		rec.Attrs[name] = v

		if name == b.schema.UIDField {
			if uid, ok := v.AsInt(); ok {
				rec.UID = model.UIDPtr(uid)
			}
			if name != model.FieldUID {
				rec.Attrs[model.FieldUID] = v
			}
		}
	}
	return rec, nil
}

// BadDates is the number of date values that could not be parsed
func (b *RecordBuilder) BadDates() int {
	return b.badDates
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseDate reads the timestamps found in redline exports: epoch
// milliseconds from the feature service, ISO text, or DBF dates.
func ParseDate(raw interface{}) (time.Time, bool) {
	switch x := raw.(type) {
	case nil:
		return time.Time{}, true
	case time.Time:
		return x.UTC(), true
	case float64:
		if math.IsNaN(x) {
			return time.Time{}, true
		}
		return time.UnixMilli(int64(x)).UTC(), true
	case int64:
		return time.UnixMilli(x).UTC(), true
	case int:
		return time.UnixMilli(int64(x)).UTC(), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return time.UnixMilli(n).UTC(), true
		}
		return ParseDate(x.String())
	case []byte:
		return ParseDate(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, true
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		if len(s) > 8 {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return time.UnixMilli(n).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

func (b *RecordBuilder) parseDate(field string, raw interface{}) time.Time {
	t, ok := ParseDate(raw)
	if !ok {
		b.badDates++
		log.WithFields(log.Fields{"field": field, "value": raw}).Warn("Unparseable date treated as missing")
	}
	return t
}

// Prefixes splits a comma separated prefix list
func Prefixes(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
