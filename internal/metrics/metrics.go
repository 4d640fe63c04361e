package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exports the engine's operational metrics.
type Collector struct {
	validationsTotal  *prometheus.CounterVec
	qualityScore      prometheus.Histogram
	normalizations    prometheus.Counter
	templatesBuilt    *prometheus.CounterVec
	templateChecks    *prometheus.CounterVec
	integrityFailures prometheus.Counter
	recognitionLogs   prometheus.Counter
	requestDuration   *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
}

// NewCollector registers the engine metrics with reg and returns them.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		validationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biometric_engine_validations_total",
			Help: "Image compliance validations by outcome",
		}, []string{"outcome"}),
		qualityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "biometric_engine_quality_score",
			Help:    "Distribution of computed quality scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		normalizations: factory.NewCounter(prometheus.CounterOpts{
			Name: "biometric_engine_normalizations_total",
			Help: "Image normalizations performed",
		}),
		templatesBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biometric_engine_templates_built_total",
			Help: "Biometric templates built by algorithm",
		}, []string{"algorithm"}),
		templateChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biometric_engine_template_validations_total",
			Help: "Template re-validations by compliance level",
		}, []string{"level"}),
		integrityFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "biometric_engine_integrity_failures_total",
			Help: "Template integrity digest mismatches detected",
		}),
		recognitionLogs: factory.NewCounter(prometheus.CounterOpts{
			Name: "biometric_engine_recognition_logs_total",
			Help: "Recognition log entries created",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biometric_engine_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "biometric_engine_validation_cache_hits_total",
			Help: "Validation cache hits",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "biometric_engine_validation_cache_misses_total",
			Help: "Validation cache misses",
		}),
	}
}

// RecordValidation records one compliance validation outcome.
func (c *Collector) RecordValidation(valid bool, score int) {
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	c.validationsTotal.WithLabelValues(outcome).Inc()
	c.qualityScore.Observe(float64(score))
}

// RecordNormalization records one image normalization.
func (c *Collector) RecordNormalization() {
	c.normalizations.Inc()
}

// RecordTemplateBuilt records one template build.
func (c *Collector) RecordTemplateBuilt(algorithm string) {
	c.templatesBuilt.WithLabelValues(algorithm).Inc()
}

// RecordTemplateValidation records one template re-validation; integrity
// failures are counted separately.
func (c *Collector) RecordTemplateValidation(level string, integrityFailure bool) {
	c.templateChecks.WithLabelValues(level).Inc()
	if integrityFailure {
		c.integrityFailures.Inc()
	}
}

// RecordRecognitionLog records one recognition log entry.
func (c *Collector) RecordRecognitionLog() {
	c.recognitionLogs.Inc()
}

// RecordRequest records one HTTP request.
func (c *Collector) RecordRequest(route, status string, duration time.Duration) {
	c.requestDuration.WithLabelValues(route, status).Observe(duration.Seconds())
}

// RecordCacheLookup records a validation cache hit or miss.
func (c *Collector) RecordCacheLookup(hit bool) {
	if hit {
		c.cacheHits.Inc()
		return
	}
	c.cacheMisses.Inc()
}
