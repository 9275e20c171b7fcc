package etl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/WenkChr/NGD-AGOL-Download/internal/export"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

func TestBuild(t *testing.T) {
	schema := DefaultSchema()
	schema.Prefixes = []string{"WC2021NGD_AL_20200313_"}
	b := NewRecordBuilder(schema, nil)

	rec, err := b.Build(3, map[string]interface{}{
		"WC2021NGD_AL_20200313_NGD_UID": 42.0,
		"EditDate":                      float64(1619827200000),
		"CreationDate":                  "2021-04-01",
		"AFL_VAL":                       "12",
		"ADDR_TYP_L":                    "",
		"SGMNT_SRC":                     float64(5),
		"STR_NME":                       "MAIN",
	}, orb.LineString{{0, 0}, {1, 1}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if rec.UID == nil || *rec.UID != 42 {
		t.Fatalf("UID = %v, want 42", rec.UID)
	}
	if rec.Index != 3 {
		t.Errorf("Index = %d, want 3", rec.Index)
	}
	if !rec.EditDate.Equal(time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EditDate = %v", rec.EditDate)
	}
	if !rec.CreationDate.Equal(time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CreationDate = %v", rec.CreationDate)
	}

	tests := []struct {
		field string
		want  normalize.Value
	}{
		{"NGD_UID", normalize.Int(42)},
		{"AFL_VAL", normalize.Int(12)},
		{"ADDR_TYP_L", normalize.Null()},
		{"SGMNT_SRC", normalize.Text("5")},
		{"STR_NME", normalize.Text("MAIN")},
		{"MISSING", normalize.Null()},
	}
	for _, tt := range tests {
		if got := rec.Attr(tt.field); !got.Equal(tt.want) {
			t.Errorf("Attr(%s) = %v (%s), want %v (%s)", tt.field, got, got.Kind(), tt.want, tt.want.Kind())
		}
	}
	if _, ok := rec.Raw["WC2021NGD_AL_20200313_NGD_UID"]; !ok {
		t.Error("Raw lost the original column name")
	}
}

func TestBuildStrict(t *testing.T) {
	b := NewRecordBuilder(DefaultSchema(), &normalize.Normalizer{Strict: true})
	_, err := b.Build(0, map[string]interface{}{"AFL_VAL": "12B"}, nil)
	var ve *normalize.ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("Build() error = %v, want ValueError", err)
	}
	if ve.Field != "AFL_VAL" {
		t.Errorf("ValueError.Field = %s", ve.Field)
	}

	lenient := NewRecordBuilder(DefaultSchema(), nil)
	rec, err := lenient.Build(0, map[string]interface{}{"AFL_VAL": "12B"}, nil)
	if err != nil {
		t.Fatalf("lenient Build() error = %v", err)
	}
	if !rec.Attr("AFL_VAL").IsNull() || lenient.Normalizer().Coerced != 1 {
		t.Errorf("lenient value %v, coerced %d", rec.Attr("AFL_VAL"), lenient.Normalizer().Coerced)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		raw    interface{}
		want   time.Time
		wantOK bool
	}{
		{"epoch ms", float64(1619827200000), want, true},
		{"epoch ms text", "1619827200000", want, true},
		{"iso", "2021-05-01T00:00:00Z", want, true},
		{"date", "2021-05-01", want, true},
		{"dbf", "20210501", want, true},
		{"nil", nil, time.Time{}, true},
		{"blank", "  ", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			if ok != tt.wantOK || !got.Equal(tt.want) {
				t.Errorf("ParseDate(%v) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLoadGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redline.geojson")
	data := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[100,0]]},
		 "properties":{"NGD_UID":42,"EditDate":1619827200000,"STR_NME":"MAIN","AFL_VAL":1}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[0,50]]},
		 "properties":{"NGD_UID":null,"STR_NME":"NEW","Comments":"added"}}
	]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTable(false, path, NewRecordBuilder(DefaultSchema(), nil))
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if len(table.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(table.Records))
	}
	wantCols := []string{"AFL_VAL", "Comments", "EditDate", "NGD_UID", "STR_NME"}
	if len(table.Columns) != len(wantCols) {
		t.Fatalf("Columns = %v, want %v", table.Columns, wantCols)
	}
	for i := range wantCols {
		if table.Columns[i] != wantCols[i] {
			t.Errorf("Columns[%d] = %s, want %s", i, table.Columns[i], wantCols[i])
		}
	}
	if table.Records[1].HasUID() {
		t.Error("second feature should be a new segment")
	}
	if _, ok := table.Records[0].Geometry.(orb.LineString); !ok {
		t.Errorf("geometry type %T", table.Records[0].Geometry)
	}
}

func TestLoadTableUnsupported(t *testing.T) {
	if _, err := LoadTable(false, "edits.gdb", NewRecordBuilder(DefaultSchema(), nil)); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadStreetCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ngd_street.csv")
	data := "\ufeffNGD_STR_UID,CSD_UID,STR_NME,STR_TYP,STR_DIR,NAME_SRC\n" +
		"900,7,MAIN,ST,N,NGD\n" +
		",7,BROKEN,ST,,\n" +
		"901,7.0,KING,ST,,\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadStreetCSV(false, path, &normalize.Normalizer{})
	if err != nil {
		t.Fatalf("LoadStreetCSV() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1].StreetUID != 901 || !rows[1].Division.Equal(normalize.Int(7)) || !rows[1].Direction.IsNull() {
		t.Errorf("unexpected row %+v", rows[1])
	}

	bad := filepath.Join(t.TempDir(), "bad.csv")
	os.WriteFile(bad, []byte("NGD_STR_UID,STR_NME\n1,A\n"), 0644)
	if _, err := LoadStreetCSV(false, bad, &normalize.Normalizer{}); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestFilterWindow(t *testing.T) {
	at := func(s string) *model.Record {
		rec := &model.Record{}
		if s != "" {
			rec.EditDate, _ = time.Parse("2006-01-02", s)
		}
		return rec
	}
	records := []*model.Record{at("2021-04-30"), at("2021-05-01"), at("2021-05-15"), at("2021-06-02"), at("")}
	from, _ := time.Parse("2006-01-02", "2021-05-01")
	to, _ := time.Parse("2006-01-02", "2021-06-01")

	got := FilterWindow(records, from, to)
	if len(got) != 3 || got[0] != records[1] || got[1] != records[2] || got[2] != records[4] {
		t.Errorf("FilterWindow() kept %d records", len(got))
	}
	if len(FilterWindow(records, time.Time{}, time.Time{})) != len(records) {
		t.Error("open window dropped records")
	}
}

func TestAffected(t *testing.T) {
	authoritative := &model.Table{Columns: []string{"NGD_UID"}, Records: []*model.Record{
		{UID: model.UIDPtr(1)}, {UID: model.UIDPtr(2)}, {UID: model.UIDPtr(3)},
	}}
	redline := []*model.Record{{UID: model.UIDPtr(3)}, {UID: nil}, {UID: model.UIDPtr(1)}, {UID: model.UIDPtr(1)}}

	got := Affected(authoritative, redline)
	if len(got.Records) != 2 || *got.Records[0].UID != 1 || *got.Records[1].UID != 3 {
		t.Errorf("Affected() returned %d rows", len(got.Records))
	}
	if uids := UIDs(redline); len(uids) != 2 || uids[0] != 1 || uids[1] != 3 {
		t.Errorf("UIDs() = %v", uids)
	}
}

func TestPrefixes(t *testing.T) {
	got := Prefixes(" A_, ,B_ ")
	if len(got) != 2 || got[0] != "A_" || got[1] != "B_" {
		t.Errorf("Prefixes() = %v", got)
	}
}

func TestLoadShapefileShortNames(t *testing.T) {
	columns := []string{
		"NGD_UID", "CreationDate", "NGD_STR_UID_L", "NGD_STR_UID_R",
		"STR_NME_ALIAS1", "STR_NME_ALIAS2", "STR_RH_DIFF_FLG", "ALIAS1_STR_UID_L", "ALIAS1_STR_UID_R",
	}
	layer := &export.Layer{Columns: columns, Rows: []export.Row{{
		Geometry: orb.LineString{{0, 0}, {100, 0}},
		Properties: map[string]interface{}{
			"NGD_UID": int64(42), "CreationDate": "2021-03-01", "NGD_STR_UID_L": int64(10), "NGD_STR_UID_R": int64(11),
			"STR_NME_ALIAS1": "KING", "STR_NME_ALIAS2": "QUEEN", "STR_RH_DIFF_FLG": int64(1),
			"ALIAS1_STR_UID_L": int64(6), "ALIAS1_STR_UID_R": int64(7),
		},
	}}}
	path := filepath.Join(t.TempDir(), "redline.shp")
	if err := export.WriteShapefile(path, layer); err != nil {
		t.Fatalf("WriteShapefile() error = %v", err)
	}

	table, err := LoadTable(false, path, NewRecordBuilder(DefaultSchema(), nil))
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	if len(table.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(table.Records))
	}
	if table.Columns[5] != "STR_NME__1" {
		t.Errorf("Columns = %v, want the shortened names", table.Columns)
	}

	rec := table.Records[0]
	tests := []struct {
		field string
		want  normalize.Value
	}{
		{"NGD_STR_UID_L", normalize.Int(10)},
		{"NGD_STR_UID_R", normalize.Int(11)},
		{"STR_NME_ALIAS1", normalize.Text("KING")},
		{"STR_NME_ALIAS2", normalize.Text("QUEEN")},
		{model.FieldRightDiffers, normalize.Int(1)},
		{"ALIAS1_STR_UID_L", normalize.Int(6)},
		{"ALIAS1_STR_UID_R", normalize.Int(7)},
	}
	for _, tt := range tests {
		if got := rec.Attr(tt.field); !got.Equal(tt.want) {
			t.Errorf("%s = %v, want %v", tt.field, got, tt.want)
		}
	}
	if want := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC); !rec.CreationDate.Equal(want) {
		t.Errorf("CreationDate = %v, want %v", rec.CreationDate, want)
	}
}
