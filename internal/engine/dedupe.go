package engine

import (
	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
)

// Deduplicate keeps the most recently edited version of every NGD_UID.
// Records without a UID are distinct new segments and always pass through.
// Ties keep the earliest input; a version without an edit date loses to
// any dated one. Survivors keep their input order, so running it twice
// returns the same set.
func Deduplicate(records []*model.Record) []*model.Record {
	latest := make(map[int64]int)
	undated := 0
	for i, rec := range records {
		if !rec.HasUID() {
			continue
		}
		if rec.EditDate.IsZero() {
			undated++
		}
		best, ok := latest[*rec.UID]
		if !ok || rec.EditDate.After(records[best].EditDate) {
			latest[*rec.UID] = i
		}
	}
	if undated > 0 {
		log.WithField("records", undated).Warn("redline records without an edit date sort before dated versions")
	}

	out := make([]*model.Record, 0, len(records))
	for i, rec := range records {
		if !rec.HasUID() || latest[*rec.UID] == i {
			out = append(out, rec)
		}
	}
	return out
}
