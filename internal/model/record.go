package model

import (
	"sort"
	"time"

	"github.com/paulmach/orb"

	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Record is one row of the redline layer or of NGD_AL. Attribute values are
// normalized once at load; Raw keeps the source properties for re-export.
type Record struct {
	// UID is nil for a brand-new segment
	UID          *int64
	EditDate     time.Time
	CreationDate time.Time
	Geometry     orb.Geometry
	Attrs        map[string]normalize.Value
	Raw          map[string]interface{}
	// Index is the position of the record in its source table
	Index int
}

// HasUID reports whether the record refers to an existing segment
func (r *Record) HasUID() bool {
	return r.UID != nil
}

// Attr returns a normalized attribute; a missing column is Null
func (r *Record) Attr(name string) normalize.Value {
	if r.Attrs == nil {
		return normalize.Null()
	}
	return r.Attrs[name]
}

// SetAttr stores a normalized value, creating the map when needed
func (r *Record) SetAttr(name string, v normalize.Value) {
	if r.Attrs == nil {
		r.Attrs = make(map[string]normalize.Value)
	}
	r.Attrs[name] = v
}

// Clone copies the record so enrichment never touches the loaded table
func (r *Record) Clone() *Record {
	c := *r
	c.Attrs = make(map[string]normalize.Value, len(r.Attrs))
	for k, v := range r.Attrs {
		c.Attrs[k] = v
	}
	return &c
}

// Table is an ordered set of records with the column order of its source
type Table struct {
	Columns []string
	Records []*Record
}

// UIDs returns the distinct non-null identifiers in the table, ascending
func (t *Table) UIDs() []int64 {
	seen := make(map[int64]bool)
	var uids []int64
	for _, r := range t.Records {
		if r.UID == nil || seen[*r.UID] {
			continue
		}
		seen[*r.UID] = true
		uids = append(uids, *r.UID)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

// ByUID indexes the table by identifier; the first row wins on duplicates
func (t *Table) ByUID() map[int64]*Record {
	idx := make(map[int64]*Record, len(t.Records))
	for _, r := range t.Records {
		if r.UID == nil {
			continue
		}
		if _, ok := idx[*r.UID]; !ok {
			idx[*r.UID] = r
		}
	}
	return idx
}

// StreetRow is one NGD_STREET entry
type StreetRow struct {
	StreetUID int64
	Division  normalize.Value
	Name      normalize.Value
	Type      normalize.Value
	Direction normalize.Value
	NameSrc   normalize.Value
}

// UIDPtr is a small helper for building records in code and tests
func UIDPtr(n int64) *int64 {
	return &n
}
