package database

import "database/sql"

// Row is one record keyed by column name.
type Row map[string]any

// RowSet is the ordered result of a table scan. Callers must treat it as
// read-only.
type RowSet []Row

// Mutation maps column names to values for an insert's new row, an
// update's SET list, or an update's WHERE equality conditions.
type Mutation map[string]any

// InsertResult reports the outcome of InsertData.
type InsertResult struct {
	// ID is the generated key when Generated is true.
	ID int64

	// Generated is false when the table has no auto-generated key.
	Generated bool
}

// scanRows reads every row into a RowSet and closes rows.
// The result is non-nil even for an empty table.
func scanRows(rows *sql.Rows) (RowSet, []string, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	result := make(RowSet, 0)
	for rows.Next() {
		// Scan targets are *any so the driver can write any type.
		dest := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(dest[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return result, columns, nil
}

// scanStrings reads a single text column from every row and closes rows.
func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	list := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// normalize turns driver byte slices (MySQL returns text columns as
// []byte when scanning into any) into strings.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
