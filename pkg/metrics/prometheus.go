package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll results used as the "result" label.
const (
	ResultSuccess     = "success"
	ResultNetwork     = "network_error"
	ResultHTTPStatus  = "http_status_error"
	ResultDecode      = "decode_error"
	ResultUnavailable = "error"
)

// Manager manages the Prometheus metrics of the dashboard.
// A nil or disabled Manager accepts every call and records nothing.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         *prometheus.Registry

	// Poll lifecycle
	polls        *prometheus.CounterVec
	pollsSkipped *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec

	// Latest readings
	historyPoints  prometheus.Gauge
	availabilityUp prometheus.Gauge
	snapshotValue  *prometheus.GaugeVec
	sentimentCount *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a new metrics manager on its own registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "openlearn",
		subsystem:        "dashboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.polls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "polls_total",
		Help:      "Total number of completed polls by endpoint and result",
	}, []string{"endpoint", "result"})

	m.pollsSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "polls_skipped_total",
		Help:      "Polls not started because another poll of the same endpoint was in flight",
	}, []string{"endpoint"})

	m.pollDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "poll_duration_seconds",
		Help:      "Duration of a poll including fetch and decode",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint"})

	m.historyPoints = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_points",
		Help:      "Number of snapshots held in the rolling history",
	})

	m.availabilityUp = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "availability_up",
		Help:      "1 if the latest snapshot reported availability UP, 0 otherwise",
	})

	m.snapshotValue = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_value",
		Help:      "Numeric fields of the latest metrics snapshot",
	}, []string{"field"})

	m.sentimentCount = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sentiment_count",
		Help:      "Latest customer feedback counts by sentiment",
	}, []string{"sentiment"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served",
	}, []string{"method", "route", "status"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of served HTTP requests",
		Buckets:   m.histogramBuckets,
	}, []string{"method", "route"})
}

func (m *Manager) active() bool {
	return m != nil && m.enabled
}

// Registry returns the registry to expose on /metrics.
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// ObservePoll records one completed poll.
func (m *Manager) ObservePoll(endpoint, result string, d time.Duration) {
	if !m.active() {
		return
	}
	m.polls.WithLabelValues(endpoint, result).Inc()
	m.pollDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// IncPollSkipped records a poll refused by the in-flight guard.
func (m *Manager) IncPollSkipped(endpoint string) {
	if !m.active() {
		return
	}
	m.pollsSkipped.WithLabelValues(endpoint).Inc()
}

// SetHistoryPoints sets the current history length.
func (m *Manager) SetHistoryPoints(n int) {
	if !m.active() {
		return
	}
	m.historyPoints.Set(float64(n))
}

// SetAvailability sets the availability gauge.
func (m *Manager) SetAvailability(up bool) {
	if !m.active() {
		return
	}
	if up {
		m.availabilityUp.Set(1)
	} else {
		m.availabilityUp.Set(0)
	}
}

// SetSnapshotValue sets one numeric field of the latest snapshot.
func (m *Manager) SetSnapshotValue(field string, v float64) {
	if !m.active() {
		return
	}
	m.snapshotValue.WithLabelValues(field).Set(v)
}

// ClearSnapshotValue drops a field the latest snapshot did not report.
func (m *Manager) ClearSnapshotValue(field string) {
	if !m.active() {
		return
	}
	m.snapshotValue.DeleteLabelValues(field)
}

// SetSentiment sets the count of one sentiment.
func (m *Manager) SetSentiment(sentiment string, n int64) {
	if !m.active() {
		return
	}
	m.sentimentCount.WithLabelValues(sentiment).Set(float64(n))
}

// ObserveHTTP records one served HTTP request.
func (m *Manager) ObserveHTTP(method, route string, status int, d time.Duration) {
	if !m.active() {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
