package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// Assignment is one "column=value" pair of an UPDATE
type Assignment struct {
	Column string
	Value  normalize.Value
}

// Statement is a single conditioned UPDATE against the NGD_AL table.
// Only one diffed field is set per statement so every update keeps its own
// date guard and can be replayed independently.
type Statement struct {
	Table    string
	UIDField string
	UID      int64
	Set      Assignment
	// StampColumn is set to StampDate alongside the field, when not empty
	StampColumn string
	StampDate   time.Time
	// GuardColumn must be older than Cutoff for the update to apply
	GuardColumn string
	Cutoff      time.Time
	DateFormat  string
}

// Field is the column the statement changes
func (s Statement) Field() string {
	return s.Set.Column
}

// SQL renders the statement, newline terminated
func (s Statement) SQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s=%s", s.Table, s.Set.Column, s.Set.Value.SQLLiteral())
	if s.StampColumn != "" {
		fmt.Fprintf(&b, ", %s=%s", s.StampColumn, ToDate(s.StampDate, s.DateFormat))
	}
	fmt.Fprintf(&b, " WHERE %s=%d AND %s < %s;\n", s.UIDField, s.UID, s.GuardColumn, ToDate(s.Cutoff, s.DateFormat))
	return b.String()
}

var dateTokens = strings.NewReplacer(
	"YYYY", "2006",
	"MM", "01",
	"DD", "02",
	"HH24", "15",
	"MI", "04",
	"SS", "05",
)

// GoLayout converts an Oracle/PostgreSQL date format into a Go time layout
func GoLayout(sqlFormat string) string {
	return dateTokens.Replace(sqlFormat)
}

// ToDate renders a to_date() call for the given SQL date format
func ToDate(t time.Time, sqlFormat string) string {
	return fmt.Sprintf("to_date('%s','%s')", t.Format(GoLayout(sqlFormat)), sqlFormat)
}
