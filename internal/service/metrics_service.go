package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Purchase outcomes recorded on purchase_attempts_total.
const (
	PurchaseOutcomeSucceeded      = "succeeded"
	PurchaseOutcomePending        = "pending"
	PurchaseOutcomeDuplicate      = "duplicate"
	PurchaseOutcomeSoldOut        = "capacity_exceeded"
	PurchaseOutcomeNotPurchasable = "not_purchasable"
	PurchaseOutcomeNotFound       = "not_found"
	PurchaseOutcomeTimeout        = "timeout"
	PurchaseOutcomeError          = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	purchaseAttempts *prometheus.CounterVec
	seatReservation  prometheus.Observer
	settlements      *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
	schedulerSweeps  *prometheus.CounterVec
	meetingsReleased prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	purchaseAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_attempts_total",
		Help: "Seat purchase attempts by outcome",
	}, []string{"outcome"})

	seatReservation := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "seat_reservation_duration_seconds",
		Help:    "Duration of the seat reservation transaction",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	})

	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_settlements_total",
		Help: "Payment settlements by provider and result",
	}, []string{"provider", "status"})

	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "domain_events_total",
		Help: "Domain events handed to the broker by type and outcome",
	}, []string{"type", "outcome"})

	schedulerSweeps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_sweeps_total",
		Help: "Meeting release sweeps by outcome",
	}, []string{"outcome"})

	meetingsReleased := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "meetings_released_total",
		Help: "Meetings released by teachers or the scheduler",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		purchaseAttempts, seatReservation, settlements, eventsPublished,
		schedulerSweeps, meetingsReleased, goroutines,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		purchaseAttempts: purchaseAttempts,
		seatReservation:  seatReservation,
		settlements:      settlements,
		eventsPublished:  eventsPublished,
		schedulerSweeps:  schedulerSweeps,
		meetingsReleased: meetingsReleased,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPurchase counts one purchase attempt and the time its reservation took.
func (m *MetricsService) RecordPurchase(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.purchaseAttempts.WithLabelValues(outcome).Inc()
	m.seatReservation.Observe(duration.Seconds())
}

// RecordSettlement counts a settled payment.
func (m *MetricsService) RecordSettlement(provider, status string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(provider, status).Inc()
}

// RecordDomainEvent counts a domain event delivery outcome.
func (m *MetricsService) RecordDomainEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// RecordSweep counts one scheduler sweep and the meetings it released.
func (m *MetricsService) RecordSweep(outcome string, released int) {
	if m == nil {
		return
	}
	m.schedulerSweeps.WithLabelValues(outcome).Inc()
	m.meetingsReleased.Add(float64(released))
}

// RecordMeetingRelease counts a manual meeting release.
func (m *MetricsService) RecordMeetingRelease() {
	if m == nil {
		return
	}
	m.meetingsReleased.Inc()
}
