// Package metrics provides Prometheus metrics for the roundwatch service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager owns every Prometheus collector exposed by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Feed
	framesReceived  prometheus.Counter
	framesMalformed prometheus.Counter
	eventsRejected  *prometheus.CounterVec
	feedConnected   prometheus.Gauge

	// Tracker
	roundsProcessed prometheus.Counter
	roundsDuplicate prometheus.Counter
	lastRound       prometheus.Gauge
	playersTracked  prometheus.Gauge
	playerUpdates   prometheus.Counter
	recordLatency   prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Display
	subscribers   prometheus.Gauge
	subscriberOut *prometheus.CounterVec
	displayErrors *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "roundwatch",
		subsystem:        "tracker",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.framesReceived = m.counter("feed_frames_received_total", "Total number of frames read from the round feed")
	m.framesMalformed = m.counter("feed_frames_malformed_total", "Total number of feed frames discarded because they did not decode")
	m.eventsRejected = m.counterVec("events_rejected_total", "Round events rejected before reaching the tracker", "reason")
	m.feedConnected = m.gauge("feed_connected", "1 while the inbound feed connection is open")

	m.roundsProcessed = m.counter("rounds_processed_total", "Total number of rounds applied to the tracker")
	m.roundsDuplicate = m.counter("rounds_duplicate_total", "Rounds skipped by the replay guard")
	m.lastRound = m.gauge("last_round", "Round number of the most recently applied event")
	m.playersTracked = m.gauge("players_tracked", "Number of distinct players seen this session")
	m.playerUpdates = m.counter("player_updates_total", "Total number of per-player updates produced")
	m.recordLatency = m.histogram("record_latency_milliseconds", "Time spent applying one round and fanning it out to displays")

	m.queueSize = m.gauge("queue_size", "Current number of round events waiting to be applied")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of buffered round events")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of round events enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of round events dequeued")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Round events that could not be enqueued", "reason")

	m.subscribers = m.gauge("chart_subscribers", "Number of connected live chart subscribers")
	m.subscriberOut = m.counterVec("chart_subscriber_events_total", "Live chart subscriber lifecycle events", "event")
	m.displayErrors = m.counterVec("display_errors_total", "Errors returned by display collaborators", "display")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = m.counterVec("http_errors_total", "HTTP responses with an error status by endpoint and type", "endpoint", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes allocated by the process")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of running goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds")
}

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry { return customRegistry }

// GetManager returns the global manager.
func GetManager() *Manager { return globalManager }

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordFrameReceived counts one frame read from the feed.
func RecordFrameReceived() {
	if on() {
		globalManager.framesReceived.Inc()
	}
}

// RecordFrameMalformed counts one frame that failed to decode.
func RecordFrameMalformed() {
	if on() {
		globalManager.framesMalformed.Inc()
	}
}

// RecordEventRejected counts a rejected event by reason.
func RecordEventRejected(reason string) {
	if on() {
		globalManager.eventsRejected.WithLabelValues(reason).Inc()
	}
}

// SetFeedConnected flips the feed connection gauge.
func SetFeedConnected(connected bool) {
	if !on() {
		return
	}
	if connected {
		globalManager.feedConnected.Set(1)
		return
	}
	globalManager.feedConnected.Set(0)
}

// RecordRoundProcessed counts an applied round and the per-player updates it produced.
func RecordRoundProcessed(round int, players int) {
	if on() {
		globalManager.roundsProcessed.Inc()
		globalManager.lastRound.Set(float64(round))
		globalManager.playerUpdates.Add(float64(players))
	}
}

// RecordRoundDuplicate counts a round skipped by the replay guard.
func RecordRoundDuplicate() {
	if on() {
		globalManager.roundsDuplicate.Inc()
	}
}

// UpdatePlayersTracked sets the distinct player gauge.
func UpdatePlayersTracked(n int) {
	if on() {
		globalManager.playersTracked.Set(float64(n))
	}
}

// RecordLatency observes the time spent on one round, in milliseconds.
func RecordLatency(ms float64) {
	if on() {
		globalManager.recordLatency.Observe(ms)
	}
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(n int) {
	if on() {
		globalManager.queueSize.Set(float64(n))
	}
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(n int) {
	if on() {
		globalManager.queueCapacity.Set(float64(n))
	}
}

// RecordQueueEnqueue counts an accepted enqueue.
func RecordQueueEnqueue() {
	if on() {
		globalManager.queueEnqueued.Inc()
	}
}

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() {
	if on() {
		globalManager.queueDequeued.Inc()
	}
}

// RecordQueueEnqueueError counts a refused enqueue by reason.
func RecordQueueEnqueueError(reason string) {
	if on() {
		globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
	}
}

// UpdateSubscribers sets the live subscriber gauge.
func UpdateSubscribers(n int) {
	if on() {
		globalManager.subscribers.Set(float64(n))
	}
}

// RecordSubscriberEvent counts subscriber lifecycle events (joined, left, dropped).
func RecordSubscriberEvent(event string) {
	if on() {
		globalManager.subscriberOut.WithLabelValues(event).Inc()
	}
}

// RecordDisplayError counts a failure in a display collaborator.
func RecordDisplayError(display string) {
	if on() {
		globalManager.displayErrors.WithLabelValues(display).Inc()
	}
}

// RecordHTTPRequest counts a served HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration observes request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
	}
}

// RecordHTTPError counts an error response by endpoint and error type.
func RecordHTTPError(endpoint, errorType string) {
	if on() {
		globalManager.httpErrors.WithLabelValues(endpoint, errorType).Inc()
	}
}

// UpdateSystemMemoryUsage sets the heap allocation gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(n))
	}
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(ms float64) {
	if on() {
		globalManager.systemGCPauseTime.Observe(ms)
	}
}
