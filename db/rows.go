package db

import (
	"bytes"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgconn"
)

// Row is one result row: column names paired with values, preserving the
// column order the database reported. It marshals to a JSON object whose
// keys appear in that order.
type Row struct {
	columns []string
	values  []any
}

// NewRow pairs column names with values. Both slices must be the same
// length; extra values are dropped.
func NewRow(columns []string, values []any) Row {
	if len(values) > len(columns) {
		values = values[:len(columns)]
	}
	return Row{columns: columns, values: values}
}

// Columns returns the column names in report order.
func (r Row) Columns() []string {
	return r.columns
}

// MarshalJSON writes the row as an object with keys in column order.
// Any value the encoder cannot represent fails the whole row.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var value any
		if i < len(r.values) {
			value = r.values[i]
		}
		val, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func columnNames(descs []pgconn.FieldDescription) []string {
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	return names
}

// unionColumns collects every column name seen across rows, in first-seen
// order. Result shapes are discovered empirically, not from a schema.
func unionColumns(rows []Row) []string {
	var order []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, col := range row.columns {
			if !seen[col] {
				seen[col] = true
				order = append(order, col)
			}
		}
	}
	if order == nil {
		order = []string{}
	}
	return order
}
