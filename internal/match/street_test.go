package match

import (
	"testing"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

func streetRows() []model.StreetRow {
	return []model.StreetRow{
		{StreetUID: 900, Division: normalize.Int(7), Name: normalize.Text("MAIN"), Type: normalize.Text("ST"), Direction: normalize.Text("N")},
		{StreetUID: 901, Division: normalize.Int(7), Name: normalize.Text("MAIN"), Type: normalize.Text("ST"), Direction: normalize.Null()},
		{StreetUID: 902, Division: normalize.Int(7), Name: normalize.Text("MAIN"), Type: normalize.Text("ST"), Direction: normalize.Text("N")},
		{StreetUID: 950, Division: normalize.Int(8), Name: normalize.Text("ELM"), Type: normalize.Text("AVE"), Direction: normalize.Null()},
	}
}

func TestStreetIndexLookup(t *testing.T) {
	idx := NewStreetIndex(streetRows())

	tests := []struct {
		name   string
		key    StreetKey
		want   int64
		wantOK bool
	}{
		{"first row wins", StreetKey{normalize.Int(7), normalize.Text("MAIN"), normalize.Text("ST"), normalize.Text("N")}, 900, true},
		{"null direction matches null", StreetKey{normalize.Int(7), normalize.Text("MAIN"), normalize.Text("ST"), normalize.Null()}, 901, true},
		{"other division", StreetKey{normalize.Int(8), normalize.Text("MAIN"), normalize.Text("ST"), normalize.Text("N")}, 0, false},
		{"null does not match text", StreetKey{normalize.Int(8), normalize.Text("ELM"), normalize.Null(), normalize.Null()}, 0, false},
		{"text does not match int", StreetKey{normalize.Text("7"), normalize.Text("MAIN"), normalize.Text("ST"), normalize.Text("N")}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := idx.Lookup(tt.key)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Lookup() = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}

	if idx.Len() != 4 {
		t.Errorf("Len() = %d, want 4", idx.Len())
	}
}

func TestResolve(t *testing.T) {
	rec := &model.Record{UID: model.UIDPtr(42)}
	rec.SetAttr("CSD_UID_L", normalize.Int(7))
	rec.SetAttr("CSD_UID_R", normalize.Int(7))
	rec.SetAttr("STR_NME", normalize.Text("MAIN"))
	rec.SetAttr("STR_TYP", normalize.Text("ST"))
	rec.SetAttr("STR_DIR", normalize.Text("N"))
	rec.SetAttr("NGD_STR_UID_L", normalize.Int(800))
	rec.SetAttr("NGD_STR_UID_R", normalize.Int(900))
	rec.SetAttr("STR_NME_ALIAS1", normalize.Text("OLD MILL"))

	results := NewResolver(NewStreetIndex(streetRows()), false).Resolve(rec)
	if len(results) != len(model.StreetSlots) {
		t.Fatalf("got %d results, want %d", len(results), len(model.StreetSlots))
	}

	want := []SlotStatus{SlotUpdated, SlotSame, SlotUnresolved, SlotUnresolved, SlotSkipped, SlotSkipped}
	for i, r := range results {
		if r.Status != want[i] {
			t.Errorf("slot %s: status %s, want %s", r.Slot.Name, r.Status, want[i])
		}
	}
	if results[0].Resolved != 900 {
		t.Errorf("left primary resolved to %d, want 900", results[0].Resolved)
	}

	if !Unresolved(results) {
		t.Error("expected unresolved slots")
	}
	births := Births(rec, results)
	if len(births) != 2 {
		t.Fatalf("got %d births, want 2", len(births))
	}
	if births[0].Slot != "left alias 1" || *births[0].UID != 42 {
		t.Errorf("unexpected birth %+v", births[0])
	}
}

func TestResolveTextStoredUID(t *testing.T) {
	rec := &model.Record{UID: model.UIDPtr(1)}
	rec.SetAttr("CSD_UID_L", normalize.Int(8))
	rec.SetAttr("CSD_UID_R", normalize.Int(8))
	rec.SetAttr("STR_NME", normalize.Text("ELM"))
	rec.SetAttr("STR_TYP", normalize.Text("AVE"))
	rec.SetAttr("NGD_STR_UID_L", normalize.Text("950"))

	results := NewResolver(NewStreetIndex(streetRows()), false).Resolve(rec)
	if results[0].Status != SlotSame {
		t.Errorf("left primary: status %s, want same", results[0].Status)
	}
	if results[1].Status != SlotUpdated {
		t.Errorf("right primary with null stored uid: status %s, want update", results[1].Status)
	}
	if Unresolved(results) {
		t.Error("no slot should be unresolved")
	}
}
