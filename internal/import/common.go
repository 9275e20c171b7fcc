package import_pkg

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// CSVConverter turns a CSV of attribute changes into UPDATE statements,
// one statement per row setting every non-empty cell
type CSVConverter struct {
	Table     string
	KeyColumn string
	debug     bool
}

// ConvertStats counts what a conversion did
type ConvertStats struct {
	Rows    int
	Written int
	Empty   int
	Errors  int
}

// NewCSVConverter creates a converter for the given target table and key column
func NewCSVConverter(localDebug bool, table, keyColumn string) *CSVConverter {
	return &CSVConverter{Table: table, KeyColumn: keyColumn, debug: localDebug}
}

// ConvertFile reads inPath and writes the statements to outPath
func (c *CSVConverter) ConvertFile(inPath, outPath string) (*ConvertStats, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", inPath, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer out.Close()

	log.WithFields(log.Fields{"input": inPath, "output": outPath}).Info("Converting CSV changes to SQL")
	return c.Convert(in, out)
}

// Convert reads CSV rows from r and writes one UPDATE per row to w.
// Rows without any value besides the key are skipped.
func (c *CSVConverter) Convert(r io.Reader, w io.Writer) (*ConvertStats, error) {
	debug.DebugHeader(c.debug)
	defer debug.DebugFooter(c.debug)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	key := -1
	for i, h := range header {
		if h == c.KeyColumn {
			key = i
			break
		}
	}
	if key < 0 {
		return nil, fmt.Errorf("key column %s not found in header", c.KeyColumn)
	}

	bw := bufio.NewWriter(w)
	stats := &ConvertStats{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read CSV record %d: %w", stats.Rows+1, err)
		}
		stats.Rows++

		stmt, err := c.statement(header, key, record)
		if err != nil {
			log.WithError(err).WithField("row", stats.Rows).Warn("Skipping CSV row")
			stats.Errors++
			continue
		}
		if stmt == "" {
			debug.DebugOutput(c.debug, "row %d has no values", stats.Rows)
			stats.Empty++
			continue
		}
		if _, err := bw.WriteString(stmt + "\n"); err != nil {
			return stats, fmt.Errorf("failed to write statement: %w", err)
		}
		stats.Written++
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("failed to write statements: %w", err)
	}

	log.WithFields(log.Fields{
		"rows":    stats.Rows,
		"written": stats.Written,
		"empty":   stats.Empty,
		"errors":  stats.Errors,
	}).Info("CSV conversion complete")
	return stats, nil
}

func (c *CSVConverter) statement(header []string, key int, record []string) (string, error) {
	if key >= len(record) {
		return "", fmt.Errorf("row has no %s value", c.KeyColumn)
	}
	uid, ok := normalize.Of(record[key], normalize.TypeInt).AsInt()
	if !ok {
		return "", fmt.Errorf("invalid %s %q", c.KeyColumn, record[key])
	}

	var sets []string
	for i, cell := range record {
		if i == key || i >= len(header) || header[i] == "" {
			continue
		}
		lit, ok := literal(cell)
		if !ok {
			continue
		}
		sets = append(sets, header[i]+"="+lit)
	}
	if len(sets) == 0 {
		return "", nil
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s;",
		c.Table, strings.Join(sets, ", "), c.KeyColumn, strconv.FormatInt(uid, 10)), nil
}

// literal renders a cell: numbers become integers, anything else quoted text.
// Blank and NaN cells carry no value.
func literal(cell string) (string, bool) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, "nan") {
		return "", false
	}
	if v := normalize.Of(s, normalize.TypeInt); v.Kind() == normalize.KindInt {
		return v.SQLLiteral(), true
	}
	return normalize.Text(cell).SQLLiteral(), true
}
