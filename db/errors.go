package db

import "errors"

var (
	// ErrNoDSN means the base connection string is not configured.
	// This is a deployment fault, distinct from any caller mistake.
	ErrNoDSN = errors.New("base connection string is not configured")

	// ErrBadCredential means a credential value contains a character
	// that could alter the connection descriptor it is spliced into.
	ErrBadCredential = errors.New("credential contains a forbidden character")

	// ErrBadIdentifier means a schema or routine name contains characters
	// outside [A-Za-z0-9_]. Identifiers cannot be bound as parameters, so
	// this check is the only defense before they are interpolated into a
	// generated CALL statement.
	ErrBadIdentifier = errors.New("identifier contains invalid characters")
)
