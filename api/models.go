package api

import (
	"encoding/json"

	"github.com/jmcleod/sqlconsole/db"
)

// CredentialsRequest is the JSON body for POST /credentials.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialStatusResponse is returned from GET /credentials.
type CredentialStatusResponse struct {
	HasCredentials bool `json:"hasCredentials"`
}

// ProceduresResponse is returned from GET /procedures.
type ProceduresResponse struct {
	Procedures []db.Procedure `json:"procedures"`
}

// ParametersRequest is the JSON body for POST /procedures/parameters.
type ParametersRequest struct {
	Schema       string `json:"schema"`
	SpecificName string `json:"specificName"`
}

// ParametersResponse is returned from POST /procedures/parameters.
type ParametersResponse struct {
	Parameters []db.Parameter `json:"parameters"`
}

// ExecuteRequest is the JSON body for POST /procedures/execute.
type ExecuteRequest struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	Parameters []any  `json:"parameters"`
}

// QueryRequest is the JSON body for POST /query. Params and FetchSize
// stay raw so their shape can be validated with precise error messages.
type QueryRequest struct {
	Query     string          `json:"query"`
	Params    json.RawMessage `json:"params"`
	FetchSize json.RawMessage `json:"fetchSize"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error string `json:"error"`
}
