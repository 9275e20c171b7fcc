package validation

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Range is an address range with From <= To
type Range struct {
	From int64
	To   int64
}

// NewRange orders the bounds of a side's address range
func NewRange(from, to int64) Range {
	if from > to {
		from, to = to, from
	}
	return Range{From: from, To: to}
}

// Overlaps is true when the ranges share at least one address; touching
// endpoints count
func (r Range) Overlaps(o Range) bool {
	return r.From <= o.To && o.From <= r.To
}

// Overlaps tests two raw from/to pairs
func Overlaps(a0, a1, b0, b1 int64) bool {
	return NewRange(a0, a1).Overlaps(NewRange(b0, b1))
}

// RangeRow is one NGD_AL side range sharing a street uid with a candidate
type RangeRow struct {
	UID  int64
	From normalize.Value
	To   normalize.Value
}

// RangeSource returns the NGD_AL rows whose street uid on side equals
// streetUID. The validator drops the segment being checked.
type RangeSource interface {
	RangesOnStreet(side model.Side, streetUID int64) ([]RangeRow, error)
}

// Flag is one overlap between a redline range and an NGD_AL range
type Flag struct {
	CandidateUID  int64        `json:"redline_ngd_uid"`
	CandidateFrom int64        `json:"redline_af_val"`
	CandidateTo   int64        `json:"redline_at_val"`
	ConflictUID   int64        `json:"al_ngd_uid"`
	ConflictFrom  int64        `json:"al_af_val"`
	ConflictTo    int64        `json:"al_at_val"`
	Side          model.Side   `json:"side"`
	Geometry      orb.Geometry `json:"-"`
}

// Label is the QC description written with the flag
func (f Flag) Label() string {
	return fmt.Sprintf("overlap on %s", f.Side)
}

// Incomplete is a side with only one of its two range bounds set
type Incomplete struct {
	UID  int64           `json:"ngd_uid"`
	Side model.Side      `json:"side"`
	From normalize.Value `json:"from"`
	To   normalize.Value `json:"to"`
}

// Report is the result of a topology check
type Report struct {
	Checked    int          `json:"checked"`
	Overlaps   []Flag       `json:"overlaps"`
	Incomplete []Incomplete `json:"incomplete"`
}
