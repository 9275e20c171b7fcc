package audit

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	mapset "github.com/deckarep/golang-set/v2"
	log "github.com/sirupsen/logrus"
)

// CountedFields are the columns reported by a field count, in report order
var CountedFields = []string{
	"AFL_VAL", "ATL_VAL", "AFR_VAL", "ATR_VAL",
	"AFL_SRC", "ATL_SRC", "AFR_SRC", "ATR_SRC",
	"AFL_DTE", "ATL_DTE", "AFR_DTE", "ATR_DTE",
	"ADDR_TYP_L", "ADDR_TYP_R", "ADDR_PRTY_L", "ADDR_PRTY_R",
	"NGD_STR_UID_L", "NGD_STR_UID_R", "NGD_STR_UID_DTE_L", "NGD_STR_UID_DTE_R",
	"ALIAS1_STR_UID_L", "ALIAS1_STR_UID_R", "ALIAS2_STR_UID_L", "ALIAS2_STR_UID_R",
	"EC_STR_ID_L", "EC_STR_ID_R", "NAME_SRC_L", "NAME_SRC_R",
}

// FieldCount is one VARIABLE,COUNT row
type FieldCount struct {
	Variable string
	Count    int
}

// FieldCounts summarises a generated SQL file
type FieldCounts struct {
	Lines        int
	Fields       []FieldCount
	DistinctUIDs int
}

// CountFields counts, per known field, the statements of a SQL file that
// mention it, and the distinct uids the file targets. The last row is the
// uid field itself carrying the distinct uid count.
func CountFields(sqlPath, uidField string) (*FieldCounts, error) {
	f, err := os.Open(sqlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQL file: %w", err)
	}
	defer f.Close()

	patterns := make([]*regexp.Regexp, len(CountedFields))
	for i, field := range CountedFields {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(field) + `\b`)
	}
	uidPattern := regexp.MustCompile(`WHERE\s+` + regexp.QuoteMeta(uidField) + `\s*=\s*(\d+)`)

	counts := make([]int, len(CountedFields))
	uids := mapset.NewThreadUnsafeSet[int64]()
	lines := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines++
		if m := uidPattern.FindStringSubmatch(line); m != nil {
			if uid, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				uids.Add(uid)
			}
		}
		for i, p := range patterns {
			if p.MatchString(line) {
				counts[i]++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read SQL file: %w", err)
	}

	out := &FieldCounts{Lines: lines, DistinctUIDs: uids.Cardinality()}
	for i, field := range CountedFields {
		out.Fields = append(out.Fields, FieldCount{Variable: field, Count: counts[i]})
	}
	out.Fields = append(out.Fields, FieldCount{Variable: uidField, Count: out.DistinctUIDs})

	log.WithFields(log.Fields{
		"file":       sqlPath,
		"statements": lines,
		"uids":       out.DistinctUIDs,
	}).Info("Counted SQL field updates")
	return out, nil
}

// WriteCSV writes the counts as VARIABLE,COUNT rows
func (c *FieldCounts) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"VARIABLE", "COUNT"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, fc := range c.Fields {
		if err := w.Write([]string{fc.Variable, strconv.Itoa(fc.Count)}); err != nil {
			return fmt.Errorf("failed to write %s: %w", fc.Variable, err)
		}
	}
	w.Flush()
	return w.Error()
}
