package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/integration-engine/internal/platform/envutil"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec
	lockContention     *prometheus.CounterVec

	contentOutcomes *prometheus.CounterVec
	detections      *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	bypassAttempts  prometheus.Counter
	reviews         *prometheus.CounterVec
	escalations     *prometheus.CounterVec

	dbStats *prometheus.GaugeVec
	redisUp prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

func Current() *Metrics {
	return instance
}

// Init returns the process-wide metrics, or nil when METRICS_ENABLED is off. Every method is
// safe on a nil receiver.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds a metrics set on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ie_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ie_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_aggregate_operations_total",
			Help: "Aggregate write operations by name/status.",
		}, []string{"operation", "status"}),
		aggregateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ie_aggregate_operation_duration_seconds",
			Help:    "Aggregate write latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"operation"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_aggregate_conflicts_total",
			Help: "Aggregate writes rejected by the version guard.",
		}, []string{"operation"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_aggregate_retryable_total",
			Help: "Aggregate writes that failed with a retryable error.",
		}, []string{"operation"}),
		lockContention: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_user_lock_contention_total",
			Help: "Per-user write lock acquisitions that found the lock held.",
		}, []string{"operation"}),
		contentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_content_requests_total",
			Help: "Content requests by outcome (granted/paced/gated).",
		}, []string{"outcome"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_bypassing_detections_total",
			Help: "Bypassing detections by pattern/severity.",
		}, []string{"pattern", "severity"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_submissions_total",
			Help: "Integration submissions by kind/accepted.",
		}, []string{"kind", "accepted"}),
		bypassAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ie_reflection_gap_bypass_attempts_total",
			Help: "Requests for gated content while the gate was locked.",
		}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_professional_support_reviews_total",
			Help: "Professional support reviews requested by reason.",
		}, []string{"reason"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ie_severity_escalations_total",
			Help: "Detections escalated by a severity review, by new severity.",
		}, []string{"severity"}),
		dbStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ie_db_stats",
			Help: "database/sql connection pool stats.",
		}, []string{"metric"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ie_redis_up",
			Help: "Redis connectivity (1=up, 0=down).",
		}),
	}
	m.registry.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries, m.lockContention,
		m.contentOutcomes, m.detections, m.submissions, m.bypassAttempts, m.reviews, m.escalations,
		m.dbStats, m.redisUp,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	name = defaultLabel(name)
	m.aggregateOps.WithLabelValues(name, defaultLabel(status)).Inc()
	m.aggregateLatency.WithLabelValues(name).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(defaultLabel(name)).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(defaultLabel(name)).Inc()
}

func (m *Metrics) IncLockContention(name string) {
	if m == nil {
		return
	}
	m.lockContention.WithLabelValues(defaultLabel(name)).Inc()
}

func (m *Metrics) IncContentOutcome(outcome string) {
	if m == nil {
		return
	}
	m.contentOutcomes.WithLabelValues(defaultLabel(outcome)).Inc()
}

func (m *Metrics) IncDetection(pattern, severity string) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(defaultLabel(pattern), defaultLabel(severity)).Inc()
}

func (m *Metrics) IncSubmission(kind string, accepted bool) {
	if m == nil {
		return
	}
	label := "false"
	if accepted {
		label = "true"
	}
	m.submissions.WithLabelValues(defaultLabel(kind), label).Inc()
}

func (m *Metrics) IncBypassAttempt() {
	if m == nil {
		return
	}
	m.bypassAttempts.Inc()
}

func (m *Metrics) IncReview(reason string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(defaultLabel(reason)).Inc()
}

func (m *Metrics) IncEscalation(severity string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(defaultLabel(severity)).Inc()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				err := rdb.Ping(pingCtx).Err()
				cancel()
				if err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Debug("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}

func defaultLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
