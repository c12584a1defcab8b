package database

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/koustreak/tabula/internal/errs"
)

// MaxIdentifierLength matches the MySQL limit for table and column names.
const MaxIdentifierLength = 64

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Identifier is a table or column name that passed ValidateIdentifier.
// Only Identifiers are ever written into SQL text.
type Identifier string

func (id Identifier) String() string { return string(id) }

// ValidateIdentifier checks that name is safe to use as a table or column
// name: ASCII letters, digits and underscores, not starting with a digit,
// between 1 and MaxIdentifierLength characters.
func ValidateIdentifier(name string) (Identifier, error) {
	if name == "" {
		return "", errs.New(errs.ErrKindIdentifier, "identifier is empty")
	}
	if len(name) > MaxIdentifierLength {
		return "", errs.Newf(errs.ErrKindIdentifier, "identifier exceeds %d characters", MaxIdentifierLength)
	}
	if !identPattern.MatchString(name) {
		return "", errs.Newf(errs.ErrKindIdentifier, "identifier %q contains invalid characters", name)
	}
	return Identifier(name), nil
}

// ColumnType is a canonical, allow-listed SQL column type descriptor.
type ColumnType string

// typeArity lists, per base type, how many parenthesised parameters it
// accepts. A type missing from the map is rejected.
var typeArity = map[string][]int{
	"INT":        {0, 1},
	"INTEGER":    {0, 1},
	"TINYINT":    {0, 1},
	"SMALLINT":   {0, 1},
	"MEDIUMINT":  {0, 1},
	"BIGINT":     {0, 1},
	"DECIMAL":    {0, 1, 2},
	"NUMERIC":    {0, 1, 2},
	"FLOAT":      {0, 1, 2},
	"DOUBLE":     {0, 2},
	"REAL":       {0},
	"BOOLEAN":    {0},
	"BOOL":       {0},
	"CHAR":       {0, 1},
	"VARCHAR":    {1},
	"TEXT":       {0},
	"TINYTEXT":   {0},
	"MEDIUMTEXT": {0},
	"LONGTEXT":   {0},
	"DATE":       {0},
	"DATETIME":   {0, 1},
	"TIMESTAMP":  {0, 1},
	"TIME":       {0, 1},
	"YEAR":       {0},
	"JSON":       {0},
	"BLOB":       {0},
}

var numericTypes = map[string]bool{
	"INT": true, "INTEGER": true, "TINYINT": true, "SMALLINT": true, "MEDIUMINT": true,
	"BIGINT": true, "DECIMAL": true, "NUMERIC": true, "FLOAT": true, "DOUBLE": true, "REAL": true,
}

var columnTypePattern = regexp.MustCompile(
	`(?i)^([a-z]+)` + // base type
		`(?:\s*\(\s*(\d{1,5})\s*(?:,\s*(\d{1,2})\s*)?\))?` + // (n) or (n,m)
		`(\s+unsigned)?` +
		`(\s+not\s+null|\s+null)?$`,
)

// ValidateColumnType accepts descriptors such as "INT", "varchar(255)",
// "DECIMAL(10, 2) UNSIGNED" or "TEXT NOT NULL" and returns them in
// canonical upper-case form. Anything else, including defaults,
// expressions and comments, is a validation error.
func ValidateColumnType(descriptor string) (ColumnType, error) {
	m := columnTypePattern.FindStringSubmatch(strings.TrimSpace(descriptor))
	if m == nil {
		return "", errs.Newf(errs.ErrKindValidation, "unsupported column type %q", descriptor)
	}

	base := strings.ToUpper(m[1])
	arities, ok := typeArity[base]
	if !ok {
		return "", errs.Newf(errs.ErrKindValidation, "unsupported column type %q", base)
	}

	var params []string
	if m[2] != "" {
		params = append(params, m[2])
	}
	if m[3] != "" {
		params = append(params, m[3])
	}
	if !slices.Contains(arities, len(params)) {
		return "", errs.Newf(errs.ErrKindValidation, "column type %s does not take %d parameter(s)", base, len(params))
	}

	var sb strings.Builder
	sb.WriteString(base)
	if len(params) > 0 {
		fmt.Fprintf(&sb, "(%s)", strings.Join(params, ","))
	}
	if m[4] != "" {
		if !numericTypes[base] {
			return "", errs.Newf(errs.ErrKindValidation, "UNSIGNED is not valid for %s", base)
		}
		sb.WriteString(" UNSIGNED")
	}
	if m[5] != "" {
		if strings.Contains(strings.ToUpper(m[5]), "NOT") {
			sb.WriteString(" NOT NULL")
		} else {
			sb.WriteString(" NULL")
		}
	}
	return ColumnType(sb.String()), nil
}

