package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	// Successful allocations
	IdentitiesRegistered prometheus.Counter

	// Ownership moves by kind ("transfer", "recover")
	OwnershipChanges *prometheus.CounterVec

	// Recovery address changes, including disables
	RecoveryChanges prometheus.Counter

	// Rejected operations by operation and reason code
	RejectedOperations *prometheus.CounterVec

	// State-changing operation latencies by operation
	OperationDuration *prometheus.HistogramVec

	// Identity cache behavior by lookup key ("owner", "id")
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Cache-assisted lookup latency
	LookupDuration prometheus.Histogram
}

// New creates a new Metrics instance with all registry module metrics registered.
func New() *Metrics {
	return &Metrics{
		IdentitiesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idregistry_identities_registered_total",
			Help: "Total number of identities allocated",
		}),

		OwnershipChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idregistry_ownership_changes_total",
			Help: "Total ownership moves by kind",
		}, []string{"kind"}), // kind: "transfer", "recover"

		RecoveryChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idregistry_recovery_changes_total",
			Help: "Total recovery address changes",
		}),

		RejectedOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idregistry_rejected_operations_total",
			Help: "Total rejected operations by operation and reason",
		}, []string{"operation", "reason"}),

		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idregistry_operation_duration_seconds",
			Help:    "Duration of state-changing registry operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),

		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idregistry_identity_cache_hits_total",
			Help: "Identity cache hits by lookup key",
		}, []string{"lookup"}), // lookup: "owner", "id"

		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "idregistry_identity_cache_misses_total",
			Help: "Identity cache misses by lookup key",
		}, []string{"lookup"}),

		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "idregistry_identity_lookup_duration_seconds",
			Help:    "Duration of identity lookups through the cache",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

// IncrementRegistered records a successful allocation.
func (m *Metrics) IncrementRegistered() {
	if m != nil {
		m.IdentitiesRegistered.Inc()
	}
}

// IncrementOwnershipChange records a completed transfer or recovery.
func (m *Metrics) IncrementOwnershipChange(kind string) {
	if m != nil {
		m.OwnershipChanges.WithLabelValues(kind).Inc()
	}
}

// IncrementRecoveryChange records a recovery address change.
func (m *Metrics) IncrementRecoveryChange() {
	if m != nil {
		m.RecoveryChanges.Inc()
	}
}

// IncrementRejected records a refused operation with its reason code.
func (m *Metrics) IncrementRejected(operation, reason string) {
	if m != nil {
		m.RejectedOperations.WithLabelValues(operation, reason).Inc()
	}
}

// ObserveOperation records the duration of a state-changing operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m != nil {
		m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// RecordCacheHit records an identity cache hit.
func (m *Metrics) RecordCacheHit(lookup string, start time.Time) {
	if m != nil {
		m.CacheHits.WithLabelValues(lookup).Inc()
		m.LookupDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordCacheMiss records an identity cache miss.
func (m *Metrics) RecordCacheMiss(lookup string, start time.Time) {
	if m != nil {
		m.CacheMisses.WithLabelValues(lookup).Inc()
		m.LookupDuration.Observe(time.Since(start).Seconds())
	}
}
