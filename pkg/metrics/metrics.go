package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EntriesTotal tracks live cache entries by state ("idle",
	// "generate_dacs") and kind ("bundle", "dacs").
	EntriesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bpcache_entries_total",
			Help: "Live cache entries by state and kind",
		},
		[]string{"state", "kind"},
	)

	QueuesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bpcache_queues_total",
			Help: "Live sub-index Queue nodes by index",
		},
		[]string{"index"},
	)

	PendingListLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bpcache_pending_list_length",
			Help: "Number of entries currently on the pending list",
		},
	)

	IdleListLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bpcache_idle_list_length",
			Help: "Number of entries currently on the idle list",
		},
	)

	BundlesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bpcache_bundles_stored_total",
			Help: "Total bundles admitted as new entries",
		},
	)

	BundlesDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bpcache_bundles_duplicate_total",
			Help: "Total bundle admissions recognized as duplicates",
		},
	)

	DACSOpenedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bpcache_dacs_opened_total",
			Help: "Total DACS entries opened",
		},
	)

	DACSFinalizedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bpcache_dacs_finalized_total",
			Help: "Total DACS entries finalized and offered to egress",
		},
	)

	CustodyClearedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bpcache_custody_cleared_total",
			Help: "Total entries whose LOCAL_CUSTODY flag was cleared by an inbound DACS",
		},
	)

	BackpressureRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bpcache_backpressure_rejected_total",
			Help: "Total pushes onto the self-ingress sub-queue rejected due to a zero depth limit",
		},
	)

	PollSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bpcache_poll_sweep_duration_seconds",
			Help:    "Duration of one do_poll time-index sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bpcache_event_dispatch_duration_seconds",
			Help:    "Duration of one event_impl dispatch by event kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(EntriesTotal)
	prometheus.MustRegister(QueuesTotal)
	prometheus.MustRegister(PendingListLength)
	prometheus.MustRegister(IdleListLength)
	prometheus.MustRegister(BundlesStoredTotal)
	prometheus.MustRegister(BundlesDuplicateTotal)
	prometheus.MustRegister(DACSOpenedTotal)
	prometheus.MustRegister(DACSFinalizedTotal)
	prometheus.MustRegister(CustodyClearedTotal)
	prometheus.MustRegister(BackpressureRejectedTotal)
	prometheus.MustRegister(PollSweepDuration)
	prometheus.MustRegister(EventDispatchDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
