package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/sqlconsole/api"
	"github.com/jmcleod/sqlconsole/db"
)

func queryRows() *stubRows {
	return &stubRows{
		columns: []string{"id", "word"},
		data: [][]any{
			{int64(1), "alpha"},
			{int64(2), "beta"},
			{int64(3), "gamma"},
		},
	}
}

func TestQueryStreamsNDJSON(t *testing.T) {
	source := newFakeSource(queryRows)
	srv := setupServer(t, source)
	client := newClient(t)

	// No credentials: the anonymous query path is on by default.
	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/query", map[string]any{
		"query": "SELECT id, word FROM words ORDER BY id",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	var lines []map[string]any
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row), "each line is standalone JSON")
		lines = append(lines, row)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 3)
	assert.EqualValues(t, 1, lines[0]["id"])
	assert.Equal(t, "gamma", lines[2]["word"])

	assert.Equal(t, 1, source.shared, "anonymous query uses the shared pool")
	assert.Empty(t, source.acquired)
	assert.Equal(t, int32(1), source.leases[0].released.Load())
}

func TestQueryUsesSessionCredentialsWhenPresent(t *testing.T) {
	source := newFakeSource(queryRows)
	srv := setupServer(t, source)
	client := newClient(t)
	signIn(t, client, srv.URL, "alice", "secret")

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/query", map[string]any{
		"query": "SELECT 1",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Zero(t, source.shared)
	require.Len(t, source.acquired, 1)
	assert.Equal(t, "alice", source.acquired[0].Username)
}

func TestQueryAnonymousDisabled(t *testing.T) {
	source := newFakeSource(queryRows)
	srv := setupServer(t, source, api.WithAnonymousQuery(false))
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/query", map[string]any{
		"query": "SELECT 1",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, source.acquireCount())
}

func TestQueryValidation(t *testing.T) {
	source := newFakeSource(queryRows)
	srv := setupServer(t, source)
	client := newClient(t)

	cases := []map[string]any{
		{"query": ""},
		{"query": "   "},
		{"query": "SELECT 1", "params": "not-an-array"},
		{"query": "SELECT 1", "params": map[string]any{"a": 1}},
		{"query": "SELECT 1", "fetchSize": 0},
		{"query": "SELECT 1", "fetchSize": -5},
		{"query": "SELECT 1", "fetchSize": 2.5},
		{"query": "SELECT 1", "fetchSize": "many"},
	}
	for _, body := range cases {
		resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/query", body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "%v", body)
	}
	assert.Zero(t, source.acquireCount(), "validation failures must not consume a lease")
}

func TestQueryParamsArePassedThrough(t *testing.T) {
	source := newFakeSource(queryRows)
	srv := setupServer(t, source)
	client := newClient(t)

	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/query", map[string]any{
		"query":  "SELECT * FROM t WHERE id = $1 AND name = $2",
		"params": []any{float64(7), "x"},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, source.leases, 1)
	assert.Equal(t, []any{float64(7), "x"}, source.leases[0].gotArgs)
}

func TestQueryConfigErrorIsServerFault(t *testing.T) {
	source := newFakeSource(queryRows)
	srv := setupServer(t, source)
	client := newClient(t)

	source.acquireErr = db.ErrNoDSN
	resp := doJSON(t, client, http.MethodPost, srv.URL+"/api/query", map[string]any{
		"query": "SELECT 1",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestQueryMidStreamFailureAbortsConnection(t *testing.T) {
	source := newFakeSource(func() *stubRows {
		return &stubRows{
			columns: []string{"id"},
			data:    [][]any{{int64(1)}, {int64(2)}},
			rowErr:  errors.New("connection to server was lost"),
		}
	})
	srv := setupServer(t, source)

	resp := doJSON(t, &http.Client{}, http.MethodPost, srv.URL+"/api/query", map[string]any{
		"query": "SELECT id FROM t",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, "failure happens after headers commit")

	var lines int
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		lines++
	}
	assert.Equal(t, 2, lines, "rows before the failure were delivered")
	// A failed stream must not end like a successful one: the connection
	// is torn down, so the client sees a transport error, not clean EOF.
	require.Error(t, scanner.Err())

	require.Len(t, source.leases, 1)
	assert.Equal(t, int32(1), source.leases[0].released.Load())
}

func TestQueryClientAbortReleasesLease(t *testing.T) {
	// Enough rows that the server must block on the client's read rate.
	big := make([][]any, 50000)
	for i := range big {
		big[i] = []any{int64(i), bytes.Repeat([]byte("x"), 64)}
	}
	source := newFakeSource(func() *stubRows {
		return &stubRows{columns: []string{"id", "pad"}, data: big}
	})
	srv := setupServer(t, source)

	ctx, cancel := context.WithCancel(context.Background())
	body := bytes.NewBufferString(`{"query":"SELECT id, pad FROM big"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/query", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Read one line, then walk away.
	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	cancel()
	resp.Body.Close()

	require.Eventually(t, func() bool {
		source.mu.Lock()
		defer source.mu.Unlock()
		return len(source.leases) == 1 && source.leases[0].released.Load() == 1
	}, 5*time.Second, 10*time.Millisecond, "abort must release the lease exactly once")
}
