package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/WenkChr/NGD-AGOL-Download/internal/engine"
	"github.com/WenkChr/NGD-AGOL-Download/internal/match"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
	"github.com/WenkChr/NGD-AGOL-Download/internal/validation"
)

func TestTrackerReportRoundTrip(t *testing.T) {
	from := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(from, to, "2021-06-01")
	if tr.RunID() == "" {
		t.Fatal("empty run id")
	}
	tr.Source("redline", "redline.geojson")

	res := &engine.Result{
		Outcomes: []engine.Outcome{
			{Record: &model.Record{UID: model.UIDPtr(42)}, Change: engine.AttributeUpdate, Statements: make([]engine.Statement, 2)},
			{Record: &model.Record{Index: 1}, Change: engine.GeometryNew},
		},
		DoNotExist: []int64{77},
		Births: []match.Birth{{
			UID:  model.UIDPtr(43),
			Slot: "NGD_STR_UID_L",
			Key: match.StreetKey{
				Division: normalize.Int(7), Name: normalize.Text("ELM"),
				Type: normalize.Text("ST"), Direction: normalize.Null(),
			},
		}},
		Counts: engine.Counts{Input: 2, Deduped: 2, Birth: 1, Statements: 2},
	}
	tr.RecordResult(false, res, 3)
	tr.RecordTopology(&validation.Report{
		Checked:    1,
		Overlaps:   []validation.Flag{{CandidateUID: 42, ConflictUID: 1, Side: model.Left}},
		Incomplete: []validation.Incomplete{{UID: 42, Side: model.Right, From: normalize.Int(10), To: normalize.Null()}},
	})

	path := filepath.Join(t.TempDir(), "reports", "run.json")
	if err := tr.WriteReport(path); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	got, err := ReadReport(path)
	if err != nil {
		t.Fatalf("ReadReport() error = %v", err)
	}

	if got.RunID != tr.RunID() {
		t.Errorf("run id = %s, want %s", got.RunID, tr.RunID())
	}
	if got.WindowFrom == nil || !got.WindowFrom.Equal(from) {
		t.Errorf("window from = %v", got.WindowFrom)
	}
	if got.Coerced != 3 || got.Counts == nil || got.Counts.Statements != 2 {
		t.Errorf("counts = %+v coerced = %d", got.Counts, got.Coerced)
	}
	if len(got.DoNotExist) != 1 || got.DoNotExist[0] != 77 {
		t.Errorf("do not exist = %v", got.DoNotExist)
	}
	if len(got.Births) != 1 || !got.Births[0].Key.Name.Equal(normalize.Text("ELM")) || !got.Births[0].Key.Division.Equal(normalize.Int(7)) {
		t.Errorf("births = %+v", got.Births)
	}
	if !got.Births[0].Key.Direction.IsNull() {
		t.Errorf("direction = %v, want null", got.Births[0].Key.Direction)
	}
	if len(got.Decisions) != 2 || got.Decisions[1].UID != nil || got.Decisions[0].Statements != 2 {
		t.Errorf("decisions = %+v", got.Decisions)
	}
	if got.Topology == nil || got.Topology.Overlaps != 1 || len(got.Topology.Incomplete) != 1 {
		t.Fatalf("topology = %+v", got.Topology)
	}
	if !got.Topology.Incomplete[0].From.Equal(normalize.Int(10)) {
		t.Errorf("incomplete from = %v", got.Topology.Incomplete[0].From)
	}
}

func TestNewTrackerOpenWindow(t *testing.T) {
	r := NewTracker(time.Time{}, time.Time{}, "").Report()
	if r.WindowFrom != nil || r.WindowTo != nil {
		t.Errorf("window = %v..%v, want none", r.WindowFrom, r.WindowTo)
	}
	if r.FinishedAt.IsZero() {
		t.Error("finished time not set")
	}
}

func TestCountFields(t *testing.T) {
	sql := strings.Join([]string{
		"UPDATE NGD.NGD_AL SET NGD_STR_UID_L=900, NGD_STR_UID_DTE_L=to_date('2021-05-01','YYYY-MM-DD') WHERE NGD_UID=42 AND NGD_STR_UID_DTE_L < to_date('2021-06-01','YYYY-MM-DD');",
		"UPDATE NGD.NGD_AL SET NAME_SRC_L='NGD' WHERE NGD_UID=42 AND NGD_STR_UID_DTE_L < to_date('2021-06-01','YYYY-MM-DD');",
		"UPDATE NGD.NGD_AL SET AFL_VAL=3, AFL_DTE=to_date('2021-05-01','YYYY-MM-DD') WHERE NGD_UID=43 AND AFL_DTE < to_date('2021-06-01','YYYY-MM-DD');",
		"",
	}, "\n")
	path := filepath.Join(t.TempDir(), "attr.sql")
	if err := os.WriteFile(path, []byte(sql), 0644); err != nil {
		t.Fatal(err)
	}

	counts, err := CountFields(path, "NGD_UID")
	if err != nil {
		t.Fatalf("CountFields() error = %v", err)
	}
	if counts.Lines != 3 || counts.DistinctUIDs != 2 {
		t.Errorf("lines = %d uids = %d, want 3 and 2", counts.Lines, counts.DistinctUIDs)
	}

	byName := make(map[string]int)
	for _, fc := range counts.Fields {
		byName[fc.Variable] = fc.Count
	}
	tests := []struct {
		field string
		want  int
	}{
		{"NGD_STR_UID_L", 1},
		{"NGD_STR_UID_DTE_L", 2},
		{"NAME_SRC_L", 1},
		{"AFL_VAL", 1},
		{"AFL_DTE", 1},
		{"ATL_VAL", 0},
		{"NGD_UID", 2},
	}
	for _, tt := range tests {
		if byName[tt.field] != tt.want {
			t.Errorf("%s = %d, want %d", tt.field, byName[tt.field], tt.want)
		}
	}
	if last := counts.Fields[len(counts.Fields)-1]; last.Variable != "NGD_UID" {
		t.Errorf("last row = %s, want NGD_UID", last.Variable)
	}

	out := filepath.Join(t.TempDir(), "counts.csv")
	if err := counts.WriteCSV(out); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(CountedFields)+2 || rows[0][0] != "VARIABLE" || rows[0][1] != "COUNT" {
		t.Errorf("csv has %d rows, header %v", len(rows), rows[0])
	}
}

func TestCountFieldsMissingFile(t *testing.T) {
	if _, err := CountFields(filepath.Join(t.TempDir(), "none.sql"), "NGD_UID"); err == nil {
		t.Error("expected error for missing file")
	}
}
