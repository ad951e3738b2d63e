package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/sqlconsole/db"
)

// API holds the dependencies needed by the REST handlers.
type API struct {
	source   db.ConnectionSource
	store    CredentialStore
	audit    *auditLogger
	metrics  *metrics
	registry *prometheus.Registry

	anonymousQuery bool
	acquireTimeout time.Duration
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger, nil)
	}
}

// WithAuditRecorder tees audit events into a persistent recorder in
// addition to the structured log.
func WithAuditRecorder(rec Recorder) Option {
	return func(a *API) {
		if a.audit != nil {
			a.audit.recorder = rec
		} else {
			a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)), rec)
		}
	}
}

// WithCredentialStore replaces the default in-memory credential store,
// e.g. with an external key-value backed implementation for
// multi-instance deployments.
func WithCredentialStore(store CredentialStore) Option {
	return func(a *API) {
		a.store = store
	}
}

// WithAnonymousQuery controls whether POST /query may fall back to the
// shared credential-less connection when no session is present.
func WithAnonymousQuery(enabled bool) Option {
	return func(a *API) {
		a.anonymousQuery = enabled
	}
}

// WithAcquireTimeout bounds how long a handler waits for a pooled
// connection. Zero keeps the reference behavior: wait indefinitely.
func WithAcquireTimeout(d time.Duration) Option {
	return func(a *API) {
		a.acquireTimeout = d
	}
}

// New creates a new API instance over the given connection source.
func New(source db.ConnectionSource, opts ...Option) *API {
	a := &API{
		source:         source,
		anonymousQuery: true,
		registry:       prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.store == nil {
		a.store = NewMemoryCredentialStore(nil)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)), nil)
	}
	a.metrics = newMetrics(a.registry)
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Get("/credentials", a.CredentialStatus)
	r.Post("/credentials", a.SaveCredentials)
	r.Delete("/credentials", a.DeleteCredentials)

	r.Get("/procedures", a.ListProcedures)
	r.Post("/procedures/parameters", a.ListProcedureParameters)
	r.Post("/procedures/execute", a.ExecuteProcedure)

	r.Post("/query", a.StreamQuery)

	return r
}

// MetricsHandler exposes the API's Prometheus registry.
func (a *API) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}
