package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmcleod/sqlconsole/db"
)

// acquireCtx bounds connection acquisition when an acquire timeout is
// configured; statement execution itself still runs on the request
// context.
func (a *API) acquireCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.acquireTimeout > 0 {
		return context.WithTimeout(ctx, a.acquireTimeout)
	}
	return ctx, func() {}
}

// ListProcedures handles GET /procedures.
func (a *API) ListProcedures(w http.ResponseWriter, r *http.Request) {
	creds, ok := a.requireCredentials(w, r)
	if !ok {
		return
	}

	actx, cancel := a.acquireCtx(r.Context())
	defer cancel()
	lease, err := a.source.Acquire(actx, creds)
	if err != nil {
		mapDBError(w, err)
		return
	}
	defer lease.Release()

	procedures, err := db.ListProcedures(r.Context(), lease)
	if err != nil {
		mapDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProceduresResponse{Procedures: procedures})
}

// ListProcedureParameters handles POST /procedures/parameters.
func (a *API) ListProcedureParameters(w http.ResponseWriter, r *http.Request) {
	creds, ok := a.requireCredentials(w, r)
	if !ok {
		return
	}
	req, ok := decodeJSON[ParametersRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	schema := strings.TrimSpace(req.Schema)
	specificName := strings.TrimSpace(req.SpecificName)
	if schema == "" {
		writeError(w, http.StatusBadRequest, "invalid schema")
		return
	}
	if specificName == "" {
		writeError(w, http.StatusBadRequest, "invalid specificName")
		return
	}

	actx, cancel := a.acquireCtx(r.Context())
	defer cancel()
	lease, err := a.source.Acquire(actx, creds)
	if err != nil {
		mapDBError(w, err)
		return
	}
	defer lease.Release()

	parameters, err := db.ListParameters(r.Context(), lease, schema, specificName)
	if err != nil {
		mapDBError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParametersResponse{Parameters: parameters})
}

// ExecuteProcedure handles POST /procedures/execute. Identifiers are
// validated before any connection is requested, so a malformed name never
// costs a pool lease.
func (a *API) ExecuteProcedure(w http.ResponseWriter, r *http.Request) {
	creds, ok := a.requireCredentials(w, r)
	if !ok {
		return
	}
	req, ok := decodeJSON[ExecuteRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	schema := strings.TrimSpace(req.Schema)
	name := strings.TrimSpace(req.Name)
	if err := db.ValidateIdentifier(schema); err != nil {
		writeError(w, http.StatusBadRequest, "invalid schema")
		return
	}
	if err := db.ValidateIdentifier(name); err != nil {
		writeError(w, http.StatusBadRequest, "invalid name")
		return
	}

	actx, cancel := a.acquireCtx(r.Context())
	defer cancel()
	lease, err := a.source.Acquire(actx, creds)
	if err != nil {
		mapDBError(w, err)
		return
	}
	defer lease.Release()

	result, err := db.ExecuteProcedure(r.Context(), lease, schema, name, req.Parameters)
	if err != nil {
		a.metrics.procedureExecutions.WithLabelValues("error").Inc()
		mapDBError(w, err)
		return
	}
	a.metrics.procedureExecutions.WithLabelValues("ok").Inc()
	a.audit.logEvent(AuditProcedureExecuted, r, schema+"."+name)
	writeJSON(w, http.StatusOK, result)
}
