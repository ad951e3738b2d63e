package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	sessionsCreated     prometheus.Counter
	queriesTotal        prometheus.Counter
	rowsStreamed        prometheus.Counter
	procedureExecutions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqlconsole",
			Name:      "sessions_created_total",
			Help:      "Credential sessions created.",
		}),
		queriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqlconsole",
			Name:      "queries_total",
			Help:      "Free-form query streams started.",
		}),
		rowsStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sqlconsole",
			Name:      "rows_streamed_total",
			Help:      "Rows delivered over the query stream.",
		}),
		procedureExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sqlconsole",
			Name:      "procedure_executions_total",
			Help:      "Stored procedure executions by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.sessionsCreated, m.queriesTotal, m.rowsStreamed, m.procedureExecutions)
	return m
}
