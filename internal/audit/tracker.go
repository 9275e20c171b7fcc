package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/engine"
	"github.com/WenkChr/NGD-AGOL-Download/internal/match"
	"github.com/WenkChr/NGD-AGOL-Download/internal/validation"
)

// Tracker collects what a run decided so it can be reviewed afterwards
type Tracker struct {
	report RunReport
}

// RunReport is the JSON summary written next to the run outputs
type RunReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	WindowFrom *time.Time        `json:"window_from,omitempty"`
	WindowTo   *time.Time        `json:"window_to,omitempty"`
	Cutoff     string            `json:"cutoff"`
	Sources    map[string]string `json:"sources"`
	Counts     *engine.Counts    `json:"counts,omitempty"`
	Coerced    int               `json:"coerced_values"`
	DoNotExist []int64           `json:"do_not_exist"`
	Births     []match.Birth     `json:"births"`
	Topology   *TopologySummary  `json:"topology,omitempty"`
	Outputs    map[string]string `json:"outputs"`
	Decisions  []Decision        `json:"decisions,omitempty"`
}

// TopologySummary is the overlap check part of a report
type TopologySummary struct {
	Checked    int                     `json:"checked"`
	Overlaps   int                     `json:"overlaps"`
	Incomplete []validation.Incomplete `json:"incomplete"`
}

// Decision is the classification of one redline record
type Decision struct {
	UID        *int64        `json:"ngd_uid"`
	Index      int           `json:"index"`
	Change     engine.Change `json:"change"`
	Statements int           `json:"statements"`
}

// NewTracker starts a run with a fresh run id
func NewTracker(from, to time.Time, cutoff string) *Tracker {
	r := RunReport{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now().UTC(),
		Cutoff:     cutoff,
		Sources:    make(map[string]string),
		Outputs:    make(map[string]string),
		DoNotExist: []int64{},
		Births:     []match.Birth{},
	}
	if !from.IsZero() {
		r.WindowFrom = &from
	}
	if !to.IsZero() {
		r.WindowTo = &to
	}
	return &Tracker{report: r}
}

// RunID identifies the run in logs and the report
func (t *Tracker) RunID() string {
	return t.report.RunID
}

// Source records where an input table came from
func (t *Tracker) Source(name, location string) {
	t.report.Sources[name] = location
}

// Output records where an output was written
func (t *Tracker) Output(name, path string) {
	t.report.Outputs[name] = path
}

// RecordResult stores the change detection result
func (t *Tracker) RecordResult(localDebug bool, res *engine.Result, coerced int) {
	debug.DebugOutput(localDebug, "Recording %d outcomes for run %s", len(res.Outcomes), t.report.RunID)

	counts := res.Counts
	t.report.Counts = &counts
	t.report.Coerced = coerced
	if res.DoNotExist != nil {
		t.report.DoNotExist = res.DoNotExist
	}
	if res.Births != nil {
		t.report.Births = res.Births
	}
	t.report.Decisions = make([]Decision, 0, len(res.Outcomes))
	for _, out := range res.Outcomes {
		t.report.Decisions = append(t.report.Decisions, Decision{
			UID:        out.Record.UID,
			Index:      out.Record.Index,
			Change:     out.Change,
			Statements: len(out.Statements),
		})
	}
}

// RecordTopology stores the overlap check summary
func (t *Tracker) RecordTopology(report *validation.Report) {
	incomplete := report.Incomplete
	if incomplete == nil {
		incomplete = []validation.Incomplete{}
	}
	t.report.Topology = &TopologySummary{
		Checked:    report.Checked,
		Overlaps:   len(report.Overlaps),
		Incomplete: incomplete,
	}
}

// Report finishes the run and returns its summary
func (t *Tracker) Report() RunReport {
	if t.report.FinishedAt.IsZero() {
		t.report.FinishedAt = time.Now().UTC()
	}
	return t.report
}

// WriteReport writes the JSON report
func (t *Tracker) WriteReport(path string) error {
	data, err := json.MarshalIndent(t.Report(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport
func ReadReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &r, nil
}
