package validation

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
)

// RangeValidator checks redline address ranges against NGD_AL ranges on
// the same street. Conflicts are reported for QC and never corrected.
type RangeValidator struct {
	source RangeSource
	debug  bool
	// Progress is called once per checked record when set
	Progress func()
}

// NewRangeValidator creates a validator over a source of NGD_AL ranges
func NewRangeValidator(source RangeSource, localDebug bool) *RangeValidator {
	return &RangeValidator{source: source, debug: localDebug}
}

type streetKey struct {
	side model.Side
	uid  int64
}

// Check runs the overlap test for every redline record with an NGD_UID
func (v *RangeValidator) Check(records []*model.Record) (*Report, error) {
	debug.DebugHeader(v.debug)
	defer debug.DebugFooter(v.debug)

	report := &Report{}
	seen := mapset.NewSet[string]()
	cache := make(map[streetKey][]RangeRow)

	for _, rec := range records {
		if v.Progress != nil {
			v.Progress()
		}
		if !rec.HasUID() {
			continue
		}
		report.Checked++

		for _, side := range model.Sides {
			from := rec.Attr(model.RangeFromField(side))
			to := rec.Attr(model.RangeToField(side))
			af, okFrom := from.AsInt()
			at, okTo := to.AsInt()
			if okFrom != okTo {
				report.Incomplete = append(report.Incomplete, Incomplete{UID: *rec.UID, Side: side, From: from, To: to})
				continue
			}
			if !okFrom {
				continue
			}
			streetUID, ok := rec.Attr(model.StreetUIDField(side)).AsInt()
			if !ok {
				continue
			}

			key := streetKey{side, streetUID}
			rows, cached := cache[key]
			if !cached {
				var err error
				rows, err = v.source.RangesOnStreet(side, streetUID)
				if err != nil {
					return nil, fmt.Errorf("failed to load ranges on street %d side %s: %w", streetUID, side, err)
				}
				cache[key] = rows
			}

			candidate := NewRange(af, at)
			for _, row := range rows {
				if row.UID == *rec.UID {
					continue
				}
				bf, ok1 := row.From.AsInt()
				bt, ok2 := row.To.AsInt()
				if !ok1 || !ok2 || !candidate.Overlaps(NewRange(bf, bt)) {
					continue
				}
				id := fmt.Sprintf("%d|%d|%s", *rec.UID, row.UID, side)
				if seen.Contains(id) {
					continue
				}
				seen.Add(id)
				debug.DebugOutput(v.debug, "overlap on %s: %d [%d,%d] vs %d [%d,%d]", side, *rec.UID, af, at, row.UID, bf, bt)
				report.Overlaps = append(report.Overlaps, Flag{
					CandidateUID:  *rec.UID,
					CandidateFrom: af,
					CandidateTo:   at,
					ConflictUID:   row.UID,
					ConflictFrom:  bf,
					ConflictTo:    bt,
					Side:          side,
					Geometry:      rec.Geometry,
				})
			}
		}
	}

	log.WithFields(log.Fields{
		"checked":    report.Checked,
		"overlaps":   len(report.Overlaps),
		"incomplete": len(report.Incomplete),
	}).Info("Address range check complete")
	return report, nil
}

// TableRanges serves RangesOnStreet from an in-memory NGD_AL table
type TableRanges struct {
	index map[streetKey][]RangeRow
}

// NewTableRanges indexes a loaded NGD_AL table by side street uid
func NewTableRanges(table *model.Table) *TableRanges {
	t := &TableRanges{index: make(map[streetKey][]RangeRow)}
	for _, rec := range table.Records {
		if !rec.HasUID() {
			continue
		}
		for _, side := range model.Sides {
			streetUID, ok := rec.Attr(model.StreetUIDField(side)).AsInt()
			if !ok {
				continue
			}
			k := streetKey{side, streetUID}
			t.index[k] = append(t.index[k], RangeRow{
				UID:  *rec.UID,
				From: rec.Attr(model.RangeFromField(side)),
				To:   rec.Attr(model.RangeToField(side)),
			})
		}
	}
	return t
}

// RangesOnStreet implements RangeSource
func (t *TableRanges) RangesOnStreet(side model.Side, streetUID int64) ([]RangeRow, error) {
	return t.index[streetKey{side, streetUID}], nil
}
