package etl

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
)

// LoadStreetCSV reads an NGD_STREET export with at least the columns
// NGD_STR_UID, CSD_UID, STR_NME, STR_TYP and STR_DIR
func LoadStreetCSV(localDebug bool, path string, normalizer *normalize.Normalizer) ([]model.StreetRow, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open street CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columnMap := make(map[string]int)
	for i, col := range header {
		columnMap[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, required := range []string{"NGD_STR_UID", "CSD_UID", "STR_NME", "STR_TYP", "STR_DIR"} {
		if _, ok := columnMap[required]; !ok {
			return nil, fmt.Errorf("street CSV %s is missing column %s", path, required)
		}
	}
	debug.DebugOutput(localDebug, "CSV columns: %v", header)

	var rows []model.StreetRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read street CSV line %d: %w", line, err)
		}

		get := func(column string, typ normalize.FieldType) (normalize.Value, error) {
			idx, ok := columnMap[column]
			if !ok || idx >= len(record) {
				return normalize.Null(), nil
			}
			return normalizer.Normalize(column, record[idx], typ)
		}

		uid, err := get("NGD_STR_UID", normalize.TypeInt)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		streetUID, ok := uid.AsInt()
		if !ok {
			debug.DebugOutput(localDebug, "Skipping line %d without NGD_STR_UID", line)
			continue
		}

		row := model.StreetRow{StreetUID: streetUID}
		for _, c := range []struct {
			column string
			typ    normalize.FieldType
			dst    *normalize.Value
		}{
			{"CSD_UID", normalize.TypeInt, &row.Division},
			{"STR_NME", normalize.TypeText, &row.Name},
			{"STR_TYP", normalize.TypeText, &row.Type},
			{"STR_DIR", normalize.TypeText, &row.Direction},
			{"NAME_SRC", normalize.TypeText, &row.NameSrc},
		} {
			if *c.dst, err = get(c.column, c.typ); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		rows = append(rows, row)
	}

	debug.DebugOutput(localDebug, "Loaded %d street rows", len(rows))
	return rows, nil
}
