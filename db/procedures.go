package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// identifierPattern is the safe character class for schema and routine
// names. Anything outside it is rejected before a statement is built.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateIdentifier rejects schema or routine names that cannot be
// interpolated into a generated statement.
func ValidateIdentifier(value string) error {
	if !identifierPattern.MatchString(value) {
		return ErrBadIdentifier
	}
	return nil
}

// Procedure describes one stored procedure visible to the session's user.
type Procedure struct {
	Schema       string `json:"schema"`
	Name         string `json:"name"`
	SpecificName string `json:"specificName"`
	Remarks      string `json:"remarks"`
}

// Parameter describes one declared parameter of a stored procedure,
// ordered by its position in the declaration.
type Parameter struct {
	Position     int    `json:"position"`
	Name         string `json:"name"`
	Mode         string `json:"mode"`
	TypeSchema   string `json:"typeSchema"`
	TypeName     string `json:"typeName"`
	Length       int    `json:"length"`
	Scale        int    `json:"scale"`
	DefaultValue string `json:"defaultValue"`
}

// ProcedureResult is a fully buffered procedure result set plus the union
// of column names seen across its rows, in first-seen order.
type ProcedureResult struct {
	Rows    []Row    `json:"rows"`
	Columns []string `json:"columns"`
}

// listProceduresSQL uses pg_catalog directly so the specific name matches
// the proname_oid form information_schema reports for overloads.
const listProceduresSQL = `
	SELECT n.nspname,
	       p.proname,
	       p.proname || '_' || p.oid,
	       COALESCE(d.description, '')
	FROM pg_catalog.pg_proc p
	JOIN pg_catalog.pg_namespace n ON n.oid = p.pronamespace
	LEFT JOIN pg_catalog.pg_description d ON d.objoid = p.oid
	WHERE p.prokind = 'p'
	  AND n.nspname NOT IN ('pg_catalog', 'information_schema')
	ORDER BY n.nspname, p.proname
	LIMIT 200`

const listParametersSQL = `
	SELECT ordinal_position,
	       COALESCE(parameter_name, 'param_' || ordinal_position),
	       COALESCE(parameter_mode, 'IN'),
	       COALESCE(udt_schema, ''),
	       COALESCE(udt_name, ''),
	       COALESCE(character_maximum_length, 0),
	       COALESCE(numeric_scale, 0),
	       COALESCE(parameter_default, '')
	FROM information_schema.parameters
	WHERE specific_name = $1
	  AND specific_schema = $2
	ORDER BY ordinal_position`

// ListProcedures returns the stored procedures visible over the lease.
func ListProcedures(ctx context.Context, lease Lease) ([]Procedure, error) {
	rows, err := lease.Query(ctx, listProceduresSQL)
	if err != nil {
		return nil, fmt.Errorf("list procedures: %w", err)
	}
	defer rows.Close()

	procedures := []Procedure{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read procedure row: %w", err)
		}
		if len(values) < 4 {
			return nil, fmt.Errorf("procedure row has %d columns, want 4", len(values))
		}
		procedures = append(procedures, Procedure{
			Schema:       asString(values[0]),
			Name:         asString(values[1]),
			SpecificName: asString(values[2]),
			Remarks:      asString(values[3]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list procedures: %w", err)
	}
	return procedures, nil
}

// ListParameters returns a routine's declared parameters ordered by
// position. The specific name distinguishes overloads sharing a display
// name; parameters without a declared name get a positional placeholder.
func ListParameters(ctx context.Context, lease Lease, schema, specificName string) ([]Parameter, error) {
	rows, err := lease.Query(ctx, listParametersSQL, specificName, schema)
	if err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	defer rows.Close()

	parameters := []Parameter{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read parameter row: %w", err)
		}
		if len(values) < 8 {
			return nil, fmt.Errorf("parameter row has %d columns, want 8", len(values))
		}
		parameters = append(parameters, Parameter{
			Position:     asInt(values[0]),
			Name:         asString(values[1]),
			Mode:         asString(values[2]),
			TypeSchema:   asString(values[3]),
			TypeName:     asString(values[4]),
			Length:       asInt(values[5]),
			Scale:        asInt(values[6]),
			DefaultValue: asString(values[7]),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list parameters: %w", err)
	}
	return parameters, nil
}

// BuildCall generates the CALL statement for a routine, one positional
// placeholder per parameter. Both identifiers must already satisfy
// ValidateIdentifier; the double-quoting here preserves case, it is not
// an escaping mechanism.
func BuildCall(schema, name string, paramCount int) (string, error) {
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("schema: %w", err)
	}
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("name: %w", err)
	}
	placeholders := make([]string, paramCount)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(`CALL %q.%q(%s)`, schema, name, strings.Join(placeholders, ", ")), nil
}

// NormalizeParams prepares positional parameter values for binding:
// empty strings become NULL so that optional arguments submitted from a
// blank form field do not bind as ''.
func NormalizeParams(params []any) []any {
	normalized := make([]any, len(params))
	for i, v := range params {
		if s, ok := v.(string); ok && s == "" {
			normalized[i] = nil
			continue
		}
		normalized[i] = v
	}
	return normalized
}

// ExecuteProcedure runs a stored procedure to completion and buffers the
// full result. Procedure execution is deliberately non-streaming: results
// are expected to be small and the response is a single JSON document.
func ExecuteProcedure(ctx context.Context, lease Lease, schema, name string, params []any) (*ProcedureResult, error) {
	stmt, err := BuildCall(schema, name, len(params))
	if err != nil {
		return nil, err
	}
	rows, err := lease.Query(ctx, stmt, NormalizeParams(params)...)
	if err != nil {
		return nil, fmt.Errorf("execute procedure: %w", err)
	}
	defer rows.Close()

	buffered := []Row{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read procedure result: %w", err)
		}
		buffered = append(buffered, NewRow(columnNames(rows.FieldDescriptions()), values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute procedure: %w", err)
	}
	return &ProcedureResult{Rows: buffered, Columns: unionColumns(buffered)}, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
