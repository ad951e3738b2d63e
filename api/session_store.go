package api

import (
	"time"

	"github.com/jmcleod/sqlconsole/db"
)

// CredentialStore maps opaque session tokens to database credentials with
// sliding expiration. The interface exists so sessions can live in memory
// (default, single instance) or in external backing storage.
//
// Expiry is a sliding window: every successful Get or Set moves the
// record's deadline to now + TTL. Expired records are removed lazily on
// the first lookup after the deadline; there is no background sweep.
type CredentialStore interface {
	// Create allocates a fresh token for the credentials. Never fails.
	Create(creds db.Credentials) string
	// Get returns the credentials for a token and refreshes its expiry.
	// Unknown and expired tokens both report false.
	Get(token string) (db.Credentials, bool)
	// Set overwrites a record's credentials and refreshes its expiry,
	// keeping the token stable across a credential update.
	Set(token string, creds db.Credentials)
	// Delete removes the record. Idempotent.
	Delete(token string)
	// TTL reports the current session lifetime, used as the cookie
	// max-age when a token is issued.
	TTL() time.Duration
}
