package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowMarshalPreservesColumnOrder(t *testing.T) {
	row := NewRow([]string{"zebra", "apple", "1"}, []any{nil, "x", int64(1)})
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":null,"apple":"x","1":1}`, string(out))
}

func TestRowMarshalHandlesMissingValues(t *testing.T) {
	row := NewRow([]string{"a", "b"}, []any{int64(1)})
	out, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":null}`, string(out))
}

func TestUnionColumnsFirstSeenOrder(t *testing.T) {
	rows := []Row{
		NewRow([]string{"a", "b"}, []any{1, 2}),
		NewRow([]string{"b", "c"}, []any{3, 4}),
		NewRow([]string{"d", "a"}, []any{5, 6}),
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, unionColumns(rows))
	assert.Equal(t, []string{}, unionColumns(nil))
}
