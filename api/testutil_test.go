package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/sqlconsole/api"
	"github.com/jmcleod/sqlconsole/db"
)

// stubRows replays a canned result set.
type stubRows struct {
	columns []string
	data    [][]any
	idx     int
	rowErr  error
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Values() ([]any, error) { return r.data[r.idx-1], nil }

func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription {
	descs := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		descs[i] = pgconn.FieldDescription{Name: c}
	}
	return descs
}

func (r *stubRows) Err() error { return r.rowErr }
func (r *stubRows) Close()     {}

type stubLease struct {
	rows     *stubRows
	queryErr error
	gotSQL   string
	gotArgs  []any
	released atomic.Int32
}

func (l *stubLease) Query(_ context.Context, sql string, args ...any) (db.Rows, error) {
	l.gotSQL = sql
	l.gotArgs = args
	if l.queryErr != nil {
		return nil, l.queryErr
	}
	return l.rows, nil
}

func (l *stubLease) Release() { l.released.Add(1) }

// fakeSource satisfies db.ConnectionSource, recording which credentials
// were used and handing out stub leases.
type fakeSource struct {
	mu         sync.Mutex
	acquired   []db.Credentials
	shared     int
	acquireErr error
	newLease   func() *stubLease
	leases     []*stubLease
}

func newFakeSource(rows func() *stubRows) *fakeSource {
	return &fakeSource{
		newLease: func() *stubLease { return &stubLease{rows: rows()} },
	}
}

func (f *fakeSource) lease() *stubLease {
	l := f.newLease()
	f.leases = append(f.leases, l)
	return l
}

func (f *fakeSource) Acquire(_ context.Context, creds db.Credentials) (db.Lease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.acquired = append(f.acquired, creds)
	return f.lease(), nil
}

func (f *fakeSource) AcquireShared(_ context.Context) (db.Lease, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.shared++
	return f.lease(), nil
}

func (f *fakeSource) acquireCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acquired) + f.shared
}

func setupServer(t *testing.T, source db.ConnectionSource, opts ...api.Option) *httptest.Server {
	t.Helper()
	a := api.New(source, opts...)
	r := chi.NewRouter()
	r.Mount("/api", a.Router())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, &reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func signIn(t *testing.T, client *http.Client, baseURL, username, password string) {
	t.Helper()
	resp := doJSON(t, client, http.MethodPost, baseURL+"/api/credentials", map[string]string{
		"username": username,
		"password": password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}
