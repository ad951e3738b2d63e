package db

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows replays a fixed result set through the Rows interface.
type fakeRows struct {
	columns   []string
	data      [][]any
	idx       int
	rowErr    error // reported by Err once the data is exhausted
	valuesErr error
	closed    atomic.Int32
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	if r.valuesErr != nil {
		return nil, r.valuesErr
	}
	return r.data[r.idx-1], nil
}

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	descs := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		descs[i] = pgconn.FieldDescription{Name: c}
	}
	return descs
}

func (r *fakeRows) Err() error { return r.rowErr }

func (r *fakeRows) Close() { r.closed.Add(1) }

// fakeLease hands out fakeRows and counts releases.
type fakeLease struct {
	rows     *fakeRows
	queryErr error

	gotSQL   string
	gotArgs  []any
	released atomic.Int32
}

func (l *fakeLease) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	l.gotSQL = sql
	l.gotArgs = args
	if l.queryErr != nil {
		return nil, l.queryErr
	}
	return l.rows, nil
}

func (l *fakeLease) Release() { l.released.Add(1) }
