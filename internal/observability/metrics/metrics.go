package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "lodging_"

	resultSuccess  = "success"
	resultError    = "error"
	resultRejected = "rejected"
)

var (
	registerOnce sync.Once

	ledgerOperationsTotal  *prometheus.CounterVec
	ledgerOperationLatency *prometheus.HistogramVec

	gatewayOperationsTotal *prometheus.CounterVec
	gatewayLatency         *prometheus.HistogramVec

	statementExportTotal   *prometheus.CounterVec
	statementExportLatency *prometheus.HistogramVec

	httpRequestsTotal *prometheus.CounterVec

	notificationsTotal *prometheus.CounterVec
)

// Init registers the service metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ledgerOperationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_operations_total",
				Help: "Total ledger operations by operation and result",
			},
			[]string{"operation", "result"},
		)
		ledgerOperationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_operation_latency_seconds",
				Help:    "Ledger operation latency in seconds, load and save included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		)

		gatewayOperationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "gateway_operations_total",
				Help: "Total persistence gateway calls by backend, operation and result",
			},
			[]string{"backend", "operation", "result"},
		)
		gatewayLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "gateway_latency_seconds",
				Help:    "Persistence gateway latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		)

		statementExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total month statement exports by format and result",
			},
			[]string{"format", "result"},
		)
		statementExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Month statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		httpRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)

		notificationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Total outgoing notifications by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			ledgerOperationsTotal,
			ledgerOperationLatency,
			gatewayOperationsTotal,
			gatewayLatency,
			statementExportTotal,
			statementExportLatency,
			httpRequestsTotal,
			notificationsTotal,
		)
	})
}

// ObserveLedgerOperation records a ledger operation and its result.
func ObserveLedgerOperation(operation, result string, duration time.Duration) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if ledgerOperationsTotal != nil {
		ledgerOperationsTotal.WithLabelValues(operation, result).Inc()
	}
	if ledgerOperationLatency != nil {
		ledgerOperationLatency.WithLabelValues(operation, result).Observe(duration.Seconds())
	}
}

// ObserveGateway records a gateway load or save.
func ObserveGateway(backend, operation, result string, duration time.Duration) {
	if backend == "" {
		backend = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if gatewayOperationsTotal != nil {
		gatewayOperationsTotal.WithLabelValues(backend, operation, result).Inc()
	}
	if gatewayLatency != nil {
		gatewayLatency.WithLabelValues(backend, operation).Observe(duration.Seconds())
	}
}

// ObserveStatementExport records export latency and result.
func ObserveStatementExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if statementExportTotal != nil {
		statementExportTotal.WithLabelValues(format, result).Inc()
	}
	if statementExportLatency != nil {
		statementExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncHTTPRequest counts a served request.
func IncHTTPRequest(method, status string) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, status).Inc()
	}
}

// IncNotification counts an outgoing notification.
func IncNotification(result string) {
	if result == "" {
		result = resultSuccess
	}
	if notificationsTotal != nil {
		notificationsTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	// ResultRejected marks a domain rule refusal such as a closed month.
	ResultRejected = resultRejected
)
