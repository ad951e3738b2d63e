package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/sqlconsole/db"
)

const sessionCookieName = "sqlconsole_session"

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// requireCredentials resolves the session cookie to credentials or writes
// the unauthorized response itself. A present-but-dead cookie is cleared
// so the client does not keep offering it; a missing cookie is not.
func (a *API) requireCredentials(w http.ResponseWriter, r *http.Request) (db.Credentials, bool) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "credentials are required, sign in again")
		return db.Credentials{}, false
	}
	creds, ok := a.store.Get(token)
	if !ok {
		clearSessionCookie(w, r)
		writeError(w, http.StatusUnauthorized, "credentials have expired, sign in again")
		return db.Credentials{}, false
	}
	return creds, true
}

func writeSessionCookie(w http.ResponseWriter, r *http.Request, token string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
