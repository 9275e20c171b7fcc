package etl

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
)

// FilterWindow keeps records edited within [from, to]. A zero bound is
// open and records without an edit date are always kept.
func FilterWindow(records []*model.Record, from, to time.Time) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	for _, rec := range records {
		d := rec.EditDate
		if d.IsZero() {
			out = append(out, rec)
			continue
		}
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Affected restricts the NGD_AL table to the uids touched by the redline batch
func Affected(authoritative *model.Table, redline []*model.Record) *model.Table {
	uids := mapset.NewSet[int64]()
	for _, rec := range redline {
		if rec.HasUID() {
			uids.Add(*rec.UID)
		}
	}
	out := &model.Table{Columns: authoritative.Columns}
	for _, rec := range authoritative.Records {
		if rec.HasUID() && uids.Contains(*rec.UID) {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// UIDs lists the distinct redline uids for database lookups
func UIDs(redline []*model.Record) []int64 {
	return (&model.Table{Records: redline}).UIDs()
}
