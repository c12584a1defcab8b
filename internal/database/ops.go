package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/koustreak/tabula/internal/errs"
)

// QueryTable returns every row of table.
func (p *Pool) QueryTable(ctx context.Context, table string) (RowSet, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	t, err := ValidateIdentifier(table)
	if err != nil {
		return nil, err
	}

	var rows RowSet
	start := time.Now()
	err = p.withConn(ctx, "query table", func(ctx context.Context, conn *sql.Conn) error {
		q := "SELECT * FROM " + p.quote(t)
		res, err := conn.QueryContext(ctx, q)
		if err != nil {
			return err
		}
		rows, _, err = scanRows(res)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.log.DebugWith("table queried", map[string]any{
		"table": string(t),
		"rows":  len(rows),
		"took":  time.Since(start),
	})
	return rows, nil
}

// ListTables returns the base tables of the configured database, sorted.
func (p *Pool) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := p.withConn(ctx, "list tables", func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.QueryContext(ctx, p.dialectOf().ListTablesSQL())
		if err != nil {
			return err
		}
		tables, err = scanStrings(res)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.log.DebugWith("tables listed", map[string]any{"count": len(tables)})
	return tables, nil
}

// ListColumns returns the column names of table in declared order.
func (p *Pool) ListColumns(ctx context.Context, table string) ([]string, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	t, err := ValidateIdentifier(table)
	if err != nil {
		return nil, err
	}

	var cols []string
	err = p.withConn(ctx, "list columns", func(ctx context.Context, conn *sql.Conn) error {
		res, err := conn.QueryContext(ctx, p.dialectOf().ListColumnsSQL(), string(t))
		if err != nil {
			return err
		}
		cols, err = scanStrings(res)
		return err
	})
	if err != nil {
		return nil, err
	}
	// A table always has at least one column.
	if len(cols) == 0 {
		return nil, errs.Newf(errs.ErrKindNoSuchTable, "table %q does not exist", t)
	}

	p.log.DebugWith("columns listed", map[string]any{"table": string(t), "count": len(cols)})
	return cols, nil
}

// AddColumn runs ALTER TABLE ... ADD COLUMN with an allow-listed type.
func (p *Pool) AddColumn(ctx context.Context, table, column, columnType string) error {
	if err := p.guard(); err != nil {
		return err
	}
	t, err := ValidateIdentifier(table)
	if err != nil {
		return err
	}
	c, err := ValidateIdentifier(column)
	if err != nil {
		return err
	}
	ct, err := ValidateColumnType(columnType)
	if err != nil {
		return err
	}

	err = p.withConn(ctx, "add column", func(ctx context.Context, conn *sql.Conn) error {
		q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", p.quote(t), p.quote(c), ct)
		_, err := conn.ExecContext(ctx, q)
		return err
	})
	if err != nil {
		return err
	}

	p.log.InfoWith("column added", map[string]any{
		"table":  string(t),
		"column": string(c),
		"type":   string(ct),
	})
	return nil
}

// InsertData inserts one row. Columns are validated, configured field
// limits are enforced before anything is sent, and values are bound.
func (p *Pool) InsertData(ctx context.Context, table string, data Mutation) (InsertResult, error) {
	if err := p.guard(); err != nil {
		return InsertResult{}, err
	}
	t, err := ValidateIdentifier(table)
	if err != nil {
		return InsertResult{}, err
	}
	if len(data) == 0 {
		return InsertResult{}, errs.New(errs.ErrKindValidation, "insert needs at least one column")
	}
	cols, vals, err := p.prepareColumns(t, data)
	if err != nil {
		return InsertResult{}, err
	}

	var result InsertResult
	err = p.withConn(ctx, "insert data", func(ctx context.Context, conn *sql.Conn) error {
		d := p.dialectOf()

		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = d.QuoteIdent(c)
			marks[i] = d.Placeholder(i + 1)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.QuoteIdent(t), strings.Join(quoted, ", "), strings.Join(marks, ", "))

		key, returning, err := d.GeneratedKey(ctx, conn, t)
		if err != nil {
			return err
		}
		if returning {
			var id int64
			if err := conn.QueryRowContext(ctx, q+" RETURNING "+d.QuoteIdent(key), vals...).Scan(&id); err != nil {
				return err
			}
			result = InsertResult{ID: id, Generated: true}
			return nil
		}

		res, err := conn.ExecContext(ctx, q, vals...)
		if err != nil {
			return err
		}
		if id, err := res.LastInsertId(); err == nil && id > 0 {
			result = InsertResult{ID: id, Generated: true}
		}
		return nil
	})
	if err != nil {
		return InsertResult{}, err
	}

	p.log.InfoWith("row inserted", map[string]any{
		"table":   string(t),
		"columns": len(cols),
		"id":      result.ID,
	})
	return result, nil
}

// UpdateData sets the columns in set on every row matching all conditions
// in where. An empty where is refused; use UpdateAllRows to touch every row.
func (p *Pool) UpdateData(ctx context.Context, table string, set, where Mutation) (int64, error) {
	if err := p.guard(); err != nil {
		return 0, err
	}
	if len(where) == 0 {
		return 0, errs.New(errs.ErrKindValidation,
			"update without a where clause would modify every row; use UpdateAllRows")
	}
	return p.update(ctx, table, set, where)
}

// UpdateAllRows sets the columns in set on every row of table.
func (p *Pool) UpdateAllRows(ctx context.Context, table string, set Mutation) (int64, error) {
	return p.update(ctx, table, set, nil)
}

func (p *Pool) update(ctx context.Context, table string, set, where Mutation) (int64, error) {
	if err := p.guard(); err != nil {
		return 0, err
	}
	t, err := ValidateIdentifier(table)
	if err != nil {
		return 0, err
	}
	if len(set) == 0 {
		return 0, errs.New(errs.ErrKindValidation, "update needs at least one column to set")
	}
	setCols, setVals, err := p.prepareColumns(t, set)
	if err != nil {
		return 0, err
	}
	whereCols, whereVals, err := sortedColumns(where)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = p.withConn(ctx, "update data", func(ctx context.Context, conn *sql.Conn) error {
		d := p.dialectOf()
		args := make([]any, 0, len(setVals)+len(whereVals))
		n := 0

		assigns := make([]string, len(setCols))
		for i, c := range setCols {
			n++
			assigns[i] = d.QuoteIdent(c) + " = " + d.Placeholder(n)
			args = append(args, setVals[i])
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "UPDATE %s SET %s", d.QuoteIdent(t), strings.Join(assigns, ", "))

		if len(whereCols) > 0 {
			conds := make([]string, len(whereCols))
			for i, c := range whereCols {
				if whereVals[i] == nil {
					conds[i] = d.QuoteIdent(c) + " IS NULL"
					continue
				}
				n++
				conds[i] = d.QuoteIdent(c) + " = " + d.Placeholder(n)
				args = append(args, whereVals[i])
			}
			sb.WriteString(" WHERE ")
			sb.WriteString(strings.Join(conds, " AND "))
		}

		res, err := conn.ExecContext(ctx, sb.String(), args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	p.log.InfoWith("rows updated", map[string]any{
		"table":    string(t),
		"affected": affected,
		"all_rows": len(where) == 0,
	})
	return affected, nil
}

// prepareColumns validates the keys of m and checks configured limits.
func (p *Pool) prepareColumns(t Identifier, m Mutation) ([]Identifier, []any, error) {
	cols, vals, err := sortedColumns(m)
	if err != nil {
		return nil, nil, err
	}
	limits := p.Config().FieldLimits[string(t)]
	for i, c := range cols {
		limit, ok := limits[string(c)]
		if !ok {
			continue
		}
		if n := valueLength(vals[i]); n > limit {
			return nil, nil, errs.Newf(errs.ErrKindValidation,
				"%s exceeds %d characters (got %d)", c, limit, n)
		}
	}
	return cols, vals, nil
}

// sortedColumns returns the validated keys of m in lexical order with their
// values aligned by index. Values must be bindable scalars.
func sortedColumns(m Mutation) ([]Identifier, []any, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]Identifier, len(keys))
	vals := make([]any, len(keys))
	for i, k := range keys {
		id, err := ValidateIdentifier(k)
		if err != nil {
			return nil, nil, err
		}
		if _, err := driver.DefaultParameterConverter.ConvertValue(m[k]); err != nil {
			return nil, nil, errs.Newf(errs.ErrKindValidation, "value for %s is not a scalar", id)
		}
		cols[i] = id
		vals[i] = m[k]
	}
	return cols, vals, nil
}

func valueLength(v any) int {
	switch val := v.(type) {
	case string:
		return utf8.RuneCountInString(val)
	case []byte:
		return utf8.RuneCount(val)
	case fmt.Stringer:
		return utf8.RuneCountInString(val.String())
	}
	return 0
}

func (p *Pool) dialectOf() Dialect {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dialect
}

func (p *Pool) quote(id Identifier) string {
	return p.dialectOf().QuoteIdent(id)
}
