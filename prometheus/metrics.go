package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter metrics
var (
	// Login counter by outcome
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // "success" or "failure"
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "missing_token", "invalid_token", "forbidden_role", "login_failure"
	)

	// Request errors surfaced to clients, by error kind
	RequestErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_request_errors_total",
			Help: "Total number of failed requests by error kind",
		},
		[]string{"kind"},
	)

	ImportedLeadsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_imported_total",
			Help: "Total number of lead rows persisted by bulk uploads",
		},
	)

	ImportBatchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_import_batches_total",
			Help: "Total number of bulk upload batches",
		},
		[]string{"result"}, // "committed" or "failed"
	)

	ImportCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_imports_total",
			Help: "Total number of bulk uploads",
		},
		[]string{"result"}, // "success", "parse_error", "partial", "rejected"
	)

	StatusTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_status_transitions_total",
			Help: "Total number of lead status updates by new status",
		},
		[]string{"status"},
	)

	ReassignmentCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_reassignments_total",
			Help: "Total number of lead reassignments",
		},
	)

	// User management operations
	UserOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_user_operations_total",
			Help: "Total number of user management operations",
		},
		[]string{"operation"}, // "create", "update", "reset_password", "change_password", "bulk_create"
	)
)

// Histogram metrics
var (
	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leads_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ImportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leads_import_duration_seconds",
			Help:    "Duration of bulk uploads in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leads_info",
			Help: "Information about the lead service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(RequestErrorCounter)
	prometheus.MustRegister(ImportedLeadsCounter)
	prometheus.MustRegister(ImportBatchCounter)
	prometheus.MustRegister(ImportCounter)
	prometheus.MustRegister(StatusTransitionCounter)
	prometheus.MustRegister(ReassignmentCounter)
	prometheus.MustRegister(UserOperationCounter)

	prometheus.MustRegister(DBOperationDuration)
	prometheus.MustRegister(ImportDuration)

	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// TrackDBOperation starts timing a database operation; call the returned func when it is done
func TrackDBOperation(operation string) func() {
	startTime := time.Now()
	return func() {
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(time.Since(startTime).Seconds())
	}
}

// RecordLogin records a login attempt
func RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	LoginCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordRequestError records an error answered to a client
func RecordRequestError(kind string) {
	RequestErrorCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// RecordImport records the outcome of a bulk upload
func RecordImport(result string, rows int, took time.Duration) {
	ImportCounter.With(prometheus.Labels{"result": result}).Inc()
	ImportedLeadsCounter.Add(float64(rows))
	ImportDuration.Observe(took.Seconds())
}

// RecordImportBatch records one committed or failed batch
func RecordImportBatch(committed bool) {
	result := "failed"
	if committed {
		result = "committed"
	}
	ImportBatchCounter.With(prometheus.Labels{"result": result}).Inc()
}

// RecordStatusTransition records a status update
func RecordStatusTransition(status string) {
	StatusTransitionCounter.With(prometheus.Labels{"status": status}).Inc()
}

// RecordReassignment records a lead reassignment
func RecordReassignment() {
	ReassignmentCounter.Inc()
}

// RecordUserOperation records a user management operation
func RecordUserOperation(operation string) {
	UserOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}
