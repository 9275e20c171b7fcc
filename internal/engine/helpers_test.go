package engine

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func line(length float64) orb.LineString {
	return orb.LineString{{0, 0}, {length, 0}}
}

// segment builds a record on MAIN ST N in CSD 7 with a 100m geometry
func segment(uid *int64, edited string) *model.Record {
	rec := &model.Record{UID: uid, Geometry: line(100)}
	if edited != "" {
		rec.EditDate = day(edited)
	}
	rec.SetAttr("CSD_UID_L", normalize.Int(7))
	rec.SetAttr("CSD_UID_R", normalize.Int(7))
	rec.SetAttr("STR_NME", normalize.Text("MAIN"))
	rec.SetAttr("STR_TYP", normalize.Text("ST"))
	rec.SetAttr("STR_DIR", normalize.Text("N"))
	rec.SetAttr("NGD_STR_UID_L", normalize.Int(900))
	rec.SetAttr("NGD_STR_UID_R", normalize.Int(900))
	rec.SetAttr("AFL_VAL", normalize.Int(1))
	rec.SetAttr("ATL_VAL", normalize.Int(99))
	rec.SetAttr("ADDR_TYP_L", normalize.Text("C"))
	return rec
}

func streets() []model.StreetRow {
	return []model.StreetRow{
		{StreetUID: 900, Division: normalize.Int(7), Name: normalize.Text("MAIN"), Type: normalize.Text("ST"), Direction: normalize.Text("N")},
		{StreetUID: 910, Division: normalize.Int(7), Name: normalize.Text("KING"), Type: normalize.Text("ST"), Direction: normalize.Null()},
	}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Cutoff = day("2021-06-01")
	return opts
}
