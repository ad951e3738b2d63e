package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jmcleod/sqlconsole/db"
	"github.com/jmcleod/sqlconsole/internal/util"
)

// parseCredentialField trims a submitted credential value and rejects any
// character that could terminate or extend a connection descriptor. The
// same check guards descriptor assembly, but failing here means a bad
// credential is refused at sign-in instead of on every later acquisition.
func parseCredentialField(value, label string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if err := db.ValidateCredential(trimmed); err != nil {
		return "", fmt.Errorf("%s must not contain spaces, quotes, backslashes, or semicolons", label)
	}
	return trimmed, nil
}

// CredentialStatus handles GET /credentials. It reports whether the
// session holds credentials; a cookie pointing at a dead session is
// cleared so the client stops presenting it.
func (a *API) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeJSON(w, http.StatusOK, CredentialStatusResponse{HasCredentials: false})
		return
	}
	if _, ok := a.store.Get(token); !ok {
		clearSessionCookie(w, r)
		writeJSON(w, http.StatusOK, CredentialStatusResponse{HasCredentials: false})
		return
	}
	writeJSON(w, http.StatusOK, CredentialStatusResponse{HasCredentials: true})
}

// SaveCredentials handles POST /credentials. A still-valid session keeps
// its token and gets its credentials replaced in place; otherwise a new
// session is created. The cookie is re-issued with the current TTL on
// every successful write.
func (a *API) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CredentialsRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	username, err := parseCredentialField(req.Username, "username")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	password, err := parseCredentialField(req.Password, "password")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	creds := db.Credentials{Username: util.Normalize(username), Password: password}

	event := AuditCredentialsCreated
	token := sessionToken(r)
	if token != "" {
		if _, live := a.store.Get(token); live {
			a.store.Set(token, creds)
			event = AuditCredentialsUpdated
		} else {
			token = ""
		}
	}
	if token == "" {
		token = a.store.Create(creds)
		a.metrics.sessionsCreated.Inc()
	}

	writeSessionCookie(w, r, token, a.store.TTL())
	a.audit.logEvent(event, r, "")
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCredentials handles DELETE /credentials. Both the store entry and
// the cookie are cleared unconditionally, even if no session existed.
func (a *API) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		a.store.Delete(token)
	}
	clearSessionCookie(w, r)
	a.audit.logEvent(AuditLogout, r, "")
	w.WriteHeader(http.StatusNoContent)
}
