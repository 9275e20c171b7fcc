package engine

import (
	"math"
	"strings"

	"github.com/paulmach/orb/planar"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/match"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Change is the classification tag of a redline record
type Change string

const (
	GeometryNew             Change = "geometry-new"
	GeometryRangeChanged    Change = "geometry-range-changed"
	GeometryNameSideDiffers Change = "geometry-name-side-differs"
	GeometryBoundaryArc     Change = "geometry-boundary-arc"
	GeometryNewStreetName   Change = "geometry-new-street-name"
	AttributeUpdate         Change = "attribute-update"
	AttributeNoChange       Change = "attribute-nochange"
)

// Changes lists every tag in rule order
var Changes = []Change{
	GeometryNew,
	GeometryRangeChanged,
	GeometryNameSideDiffers,
	GeometryBoundaryArc,
	GeometryNewStreetName,
	AttributeUpdate,
	AttributeNoChange,
}

// GeometryBound reports whether the record goes to the geometry workflow
func (c Change) GeometryBound() bool {
	return strings.HasPrefix(string(c), "geometry-")
}

// Outcome is the classification of one record with whatever it produced
type Outcome struct {
	Record     *model.Record
	Change     Change
	Slots      []match.SlotResult
	Statements []Statement
	// MissingReference is set when NGD_AL has no row for the record
	MissingReference bool
}

// geometryRule is one of the ordered predicates that send a record to
// the geometry workflow before any street or attribute work is done
type geometryRule struct {
	change Change
	test   func(rec, ref *model.Record) bool
}

// Classifier tags records using the fixed rule order
type Classifier struct {
	reference map[int64]*model.Record
	resolver  *match.Resolver
	differ    *Differ
	factor    float64
	rules     []geometryRule
	debug     bool
}

// NewClassifier builds a classifier over the NGD_AL rows indexed by uid
func NewClassifier(reference map[int64]*model.Record, resolver *match.Resolver, differ *Differ, factor float64, localDebug bool) *Classifier {
	c := &Classifier{
		reference: reference,
		resolver:  resolver,
		differ:    differ,
		factor:    factor,
		debug:     localDebug,
	}
	c.rules = []geometryRule{
		{GeometryNew, func(rec, _ *model.Record) bool { return !rec.HasUID() }},
		{GeometryRangeChanged, c.lengthChanged},
		{GeometryNameSideDiffers, func(rec, _ *model.Record) bool { return flagSet(rec.Attr(model.FieldRightDiffers)) }},
		{GeometryBoundaryArc, func(rec, _ *model.Record) bool {
			return !rec.Attr(model.FieldCSDLeft).Equal(rec.Attr(model.FieldCSDRight))
		}},
	}
	return c
}

// Classify tags a record. It never modifies the record and gives the same
// answer every time for the same record and reference tables.
func (c *Classifier) Classify(rec *model.Record) Outcome {
	var ref *model.Record
	if rec.HasUID() {
		ref = c.reference[*rec.UID]
	}

	for _, rule := range c.rules {
		if rule.test(rec, ref) {
			debug.DebugOutput(c.debug, "record %s: %s", uidString(rec), rule.change)
			return Outcome{Record: rec, Change: rule.change}
		}
	}

	out := Outcome{Record: rec}
	if ref != nil {
		rec = withAliasUIDs(rec, ref)
		out.Record = rec
	}

	out.Slots = c.resolver.Resolve(rec)
	out.Statements = c.differ.StreetStatements(rec, out.Slots)
	if match.Unresolved(out.Slots) {
		out.Change = GeometryNewStreetName
		debug.DebugOutput(c.debug, "record %s: %s", uidString(rec), out.Change)
		return out
	}

	if ref == nil {
		out.MissingReference = true
	} else {
		out.Statements = append(out.Statements, c.differ.FieldStatements(rec, ref)...)
	}

	if len(out.Statements) == 0 {
		out.Change = AttributeNoChange
	} else {
		out.Change = AttributeUpdate
	}
	debug.DebugOutput(c.debug, "record %s: %s with %d statements", uidString(rec), out.Change, len(out.Statements))
	return out
}

// lengthChanged compares segment lengths rounded to the tolerance factor.
// Without a reference row or geometry there is nothing to compare.
func (c *Classifier) lengthChanged(rec, ref *model.Record) bool {
	if ref == nil || rec.Geometry == nil || ref.Geometry == nil {
		return false
	}
	return LengthThreshold(planar.Length(rec.Geometry), c.factor) != LengthThreshold(planar.Length(ref.Geometry), c.factor)
}

// LengthThreshold rounds length*factor half to even
func LengthThreshold(length, factor float64) float64 {
	return math.RoundToEven(length * factor)
}

// flagSet is true only for the integer flag 1
func flagSet(v normalize.Value) bool {
	n, ok := v.AsInt()
	return ok && n == 1
}

// withAliasUIDs fills alias street uids the redline layer does not carry
func withAliasUIDs(rec, ref *model.Record) *model.Record {
	var out *model.Record
	for _, f := range model.AliasUIDFields {
		if !rec.Attr(f).IsNull() || ref.Attr(f).IsNull() {
			continue
		}
		if out == nil {
			out = rec.Clone()
		}
		out.SetAttr(f, ref.Attr(f))
	}
	if out == nil {
		return rec
	}
	return out
}

func uidString(rec *model.Record) string {
	if !rec.HasUID() {
		return "<new>"
	}
	return normalize.Int(*rec.UID).String()
}
