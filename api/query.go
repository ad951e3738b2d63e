package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/jmcleod/sqlconsole/db"
)

func normalizeQueryParams(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var params []any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.New("params must be an array when provided")
	}
	return params, nil
}

func normalizeFetchSize(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil || n <= 0 || n != math.Trunc(n) {
		return 0, errors.New("fetchSize must be a positive integer when provided")
	}
	return int(n), nil
}

// StreamQuery handles POST /query: a free-form statement streamed back as
// newline-delimited JSON, one document per row.
//
// Credential policy: the session's credentials are used when a valid
// session exists; otherwise the shared credential-less connection is used,
// but only while anonymous query mode is enabled. All input is validated
// before any connection is requested.
func (a *API) StreamQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[QueryRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "query must be a non-empty string")
		return
	}
	params, err := normalizeQueryParams(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fetchSize, err := normalizeFetchSize(req.FetchSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actx, cancel := a.acquireCtx(r.Context())
	defer cancel()

	var lease db.Lease
	token := sessionToken(r)
	if token != "" {
		if creds, live := a.store.Get(token); live {
			lease, err = a.source.Acquire(actx, creds)
			if err != nil {
				mapDBError(w, err)
				return
			}
		}
	}
	if lease == nil {
		if !a.anonymousQuery {
			if token != "" {
				clearSessionCookie(w, r)
			}
			a.audit.logEvent(AuditQueryDenied, r, "")
			writeError(w, http.StatusUnauthorized, "credentials are required, sign in again")
			return
		}
		lease, err = a.source.AcquireShared(actx)
		if err != nil {
			mapDBError(w, err)
			return
		}
	}

	// The stream owns the lease from here; open failures release it.
	stream, err := db.OpenStream(r.Context(), lease, query, params)
	if err != nil {
		mapDBError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	rows, err := stream.Run(r.Context(), w, fetchSize)
	a.metrics.queriesTotal.Inc()
	a.metrics.rowsStreamed.Add(float64(rows))
	switch {
	case err == nil:
		a.audit.logEvent(AuditQueryExecuted, r, "", slog.Int64("rows", rows))
	case db.IsCancellation(err):
		// Consumer walked away: a normal terminal state, not a fault.
		slog.Debug("Query stream cancelled.", "rows", rows)
	default:
		// Headers are committed, so the failure cannot be reported in
		// the body. Abort the connection: the client must observe a
		// transport error, never a cleanly terminated partial result.
		slog.Error("Query stream aborted.", "rows", rows, "error", err)
		panic(http.ErrAbortHandler)
	}
}
