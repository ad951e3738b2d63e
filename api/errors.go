package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/sqlconsole/db"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a size-limited JSON body into T, answering 400 itself
// on malformed input.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxBytes int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return v, false
	}
	return v, true
}

// mapDBError translates db-layer sentinels into the HTTP taxonomy:
// misconfiguration is a server fault, bad caller input is 400, anything
// the database reported is a generic 500 carrying its message.
func mapDBError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, db.ErrNoDSN):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, db.ErrBadCredential), errors.Is(err, db.ErrBadIdentifier):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
