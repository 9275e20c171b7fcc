package engine

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/WenkChr/NGD-AGOL-Download/internal/match"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Differ compares redline records to NGD_AL rows and produces the
// conditioned UPDATE statements for every real difference.
type Differ struct {
	Table             string
	UIDField          string
	Cutoff            time.Time
	DateFormat        string
	DefaultNameSource string
	ResetECStreetIDs  bool
	Skip              mapset.Set[string]
}

// EditDate is the date stamped into the companion date column
func (d *Differ) EditDate(rec *model.Record) time.Time {
	switch {
	case !rec.EditDate.IsZero():
		return rec.EditDate
	case !rec.CreationDate.IsZero():
		return rec.CreationDate
	default:
		return d.Cutoff
	}
}

func (d *Differ) statement(uid int64, set Assignment, stamp string, date time.Time, guard string) Statement {
	return Statement{
		Table:       d.Table,
		UIDField:    d.UIDField,
		UID:         uid,
		Set:         set,
		StampColumn: stamp,
		StampDate:   date,
		GuardColumn: guard,
		Cutoff:      d.Cutoff,
		DateFormat:  d.DateFormat,
	}
}

func (d *Differ) skipped(field string) bool {
	return d.Skip != nil && d.Skip.Contains(field)
}

// StreetStatements emits the updates of every resolved slot whose street uid
// changed. Primary slots also carry the side's name source and, when
// enabled, the EC street id reset.
func (d *Differ) StreetStatements(rec *model.Record, slots []match.SlotResult) []Statement {
	var stmts []Statement
	date := d.EditDate(rec)
	for _, res := range slots {
		if res.Status != match.SlotUpdated || d.skipped(res.Slot.UIDField) {
			continue
		}
		slot := res.Slot
		stmts = append(stmts, d.statement(*rec.UID,
			Assignment{slot.UIDField, normalize.Int(res.Resolved)},
			slot.DateField, date, slot.DateField))

		if !slot.Primary {
			continue
		}
		source := rec.Attr(model.FieldNameSource)
		if source.IsNull() {
			source = normalize.Text(d.DefaultNameSource)
		}
		stmts = append(stmts, d.statement(*rec.UID,
			Assignment{model.NameSourceField(slot.Side), normalize.Text(source.String())},
			"", date, slot.DateField))
		if d.ResetECStreetIDs {
			stmts = append(stmts, d.statement(*rec.UID,
				Assignment{model.ECStreetIDField(slot.Side), normalize.Int(-1)},
				"", date, slot.DateField))
		}
	}
	return stmts
}

// FieldStatements diffs the attribute fields then the address fields
func (d *Differ) FieldStatements(rec, ref *model.Record) []Statement {
	var stmts []Statement
	date := d.EditDate(rec)
	for _, group := range [][]model.Field{model.AttributeFields, model.AddressFields} {
		for _, f := range group {
			if d.skipped(f.Name) {
				continue
			}
			red := rec.Attr(f.Name)
			if !red.Differs(ref.Attr(f.Name)) {
				continue
			}
			dateCol := model.DateColumns[f.Name]
			stmts = append(stmts, d.statement(*rec.UID, Assignment{f.Name, red}, dateCol, date, dateCol))
		}
	}
	return stmts
}
