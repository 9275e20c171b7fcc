package etl

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/WenkChr/NGD-AGOL-Download/internal/debug"
	"github.com/WenkChr/NGD-AGOL-Download/internal/model"
	"github.com/WenkChr/NGD-AGOL-Download/internal/normalize"
	"github.com/WenkChr/NGD-AGOL-Download/internal/validation"
)

const uidBatchSize = 5000

// Store reads NGD_AL and NGD_STREET from the registry database
type Store struct {
	db          *sql.DB
	table       string
	streetTable string
	uidField    string
	geomField   string
}

// NewStore creates a reader over the given tables
func NewStore(db *sql.DB, table, streetTable, uidField, geomField string) *Store {
	return &Store{db: db, table: table, streetTable: streetTable, uidField: uidField, geomField: geomField}
}

// LoadAuthoritative fetches the NGD_AL rows for the redline uids only
func (s *Store) LoadAuthoritative(localDebug bool, uids []int64, builder *RecordBuilder) (*model.Table, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	table := &model.Table{}
	query := fmt.Sprintf(`SELECT *, ST_AsBinary(%s) AS geom_wkb FROM %s WHERE %s = ANY($1)`,
		s.geomField, s.table, s.uidField)

	for start := 0; start < len(uids); start += uidBatchSize {
		end := start + uidBatchSize
		if end > len(uids) {
			end = len(uids)
		}
		debug.DebugOutput(localDebug, "Fetching NGD_AL uids %d-%d of %d", start, end, len(uids))

		rows, err := s.db.Query(query, pq.Array(uids[start:end]))
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", s.table, err)
		}
		if err := s.scanRecords(rows, table, builder); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (s *Store) scanRecords(rows *sql.Rows, table *model.Table, builder *RecordBuilder) error {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = builder.foldColumn(c)
	}
	if table.Columns == nil {
		for i, c := range columns {
			if c != "geom_wkb" && !strings.EqualFold(c, s.geomField) {
				table.Columns = append(table.Columns, names[i])
			}
		}
	}

	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		props := make(map[string]interface{}, len(columns))
		var geom orb.Geometry
		for i, c := range columns {
			switch {
			case c == "geom_wkb":
				if b, ok := values[i].([]byte); ok && len(b) > 0 {
					if geom, err = wkb.Unmarshal(b); err != nil {
						return fmt.Errorf("failed to decode geometry: %w", err)
					}
				}
			case strings.EqualFold(c, s.geomField):
			default:
				props[names[i]] = values[i]
			}
		}
		rec, err := builder.Build(len(table.Records), props, geom)
		if err != nil {
			return err
		}
		table.Records = append(table.Records, rec)
	}
	return rows.Err()
}

// LoadStreets reads the whole NGD_STREET table
func (s *Store) LoadStreets(localDebug bool, normalizer *normalize.Normalizer) ([]model.StreetRow, error) {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT NGD_STR_UID, CSD_UID, STR_NME, STR_TYP, STR_DIR, NAME_SRC FROM %s`, s.streetTable))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.streetTable, err)
	}
	defer rows.Close()

	var streets []model.StreetRow
	for rows.Next() {
		var uid int64
		var csd, name, typ, dir, src interface{}
		if err := rows.Scan(&uid, &csd, &name, &typ, &dir, &src); err != nil {
			return nil, fmt.Errorf("failed to scan street: %w", err)
		}
		row := model.StreetRow{StreetUID: uid}
		for _, c := range []struct {
			field string
			raw   interface{}
			typ   normalize.FieldType
			dst   *normalize.Value
		}{
			{"CSD_UID", csd, normalize.TypeInt, &row.Division},
			{"STR_NME", name, normalize.TypeText, &row.Name},
			{"STR_TYP", typ, normalize.TypeText, &row.Type},
			{"STR_DIR", dir, normalize.TypeText, &row.Direction},
			{"NAME_SRC", src, normalize.TypeText, &row.NameSrc},
		} {
			if *c.dst, err = normalizer.Normalize(c.field, c.raw, c.typ); err != nil {
				return nil, fmt.Errorf("street %d: %w", uid, err)
			}
		}
		streets = append(streets, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	debug.DebugOutput(localDebug, "Loaded %d street rows", len(streets))
	return streets, nil
}

// RangesOnStreet implements validation.RangeSource against NGD_AL
func (s *Store) RangesOnStreet(side model.Side, streetUID int64) ([]validation.RangeRow, error) {
	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s WHERE %s = $1`,
		s.uidField, model.RangeFromField(side), model.RangeToField(side), s.table, model.StreetUIDField(side))
	rows, err := s.db.Query(query, streetUID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranges: %w", err)
	}
	defer rows.Close()

	var out []validation.RangeRow
	for rows.Next() {
		var uid int64
		var from, to sql.NullInt64
		if err := rows.Scan(&uid, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan range: %w", err)
		}
		r := validation.RangeRow{UID: uid}
		if from.Valid {
			r.From = normalize.Int(from.Int64)
		}
		if to.Valid {
			r.To = normalize.Int(to.Int64)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// foldColumn maps database column names, which PostgreSQL lowercases, onto
// the upper case registry names and the configured date columns
func (b *RecordBuilder) foldColumn(column string) string {
	for _, special := range []string{b.schema.UIDField, b.schema.EditDateField, b.schema.CreationDateField} {
		if special != "" && strings.EqualFold(column, special) {
			return special
		}
	}
	return strings.ToUpper(column)
}
