package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides the Prometheus collectors wright and wbuild expose:
// build counts and durations, dockyard concurrency, install/remove
// counters, and build-cache hit/miss counters.
type Metrics struct {
	config MetricsConfig

	// Run metrics — one orchestrator invocation
	runsStarted   *prometheus.CounterVec
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Build job metrics — one plan under one phase
	buildJobsExecuted *prometheus.CounterVec
	buildJobDuration  *prometheus.HistogramVec

	// Package metrics — installed-package counts and shadow state
	packagesInstalled *prometheus.GaugeVec
	packageShadowed   *prometheus.GaugeVec

	// Executor metrics — stage scripts dispatched through pkg/executor
	executorInvocations *prometheus.CounterVec
	executorDuration    *prometheus.HistogramVec
	executorErrors      *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	// Build-cache metrics
	cacheOutcomes *prometheus.CounterVec

	// System metrics
	activeDockyards prometheus.Gauge
	queuedBuildJobs prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of orchestrator runs started",
			},
			[]string{"user"},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of orchestrator runs completed",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of an orchestrator run in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		buildJobsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "build_jobs_executed_total",
				Help:      "Total number of build jobs executed",
			},
			[]string{"reason", "status"},
		),
		buildJobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_job_duration_seconds",
				Help:      "Duration of one build job's full lifecycle in seconds",
				Buckets:   buckets,
			},
			[]string{"phase"},
		),

		packagesInstalled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "packages_installed",
				Help:      "Current number of installed packages",
			},
			[]string{"arch"},
		),
		packageShadowed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "package_file_shadowed",
				Help:      "Whether a file path is currently shadowed (1) or not (0)",
			},
			[]string{"path"},
		),

		executorInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executor_invocations_total",
				Help:      "Total number of executor stage invocations",
			},
			[]string{"executor", "stage"},
		),
		executorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "executor_invocation_duration_seconds",
				Help:      "Duration of executor stage invocations in seconds",
				Buckets:   buckets,
			},
			[]string{"executor", "stage"},
		),
		executorErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executor_errors_total",
				Help:      "Total number of non-zero-exit executor stage invocations",
			},
			[]string{"executor", "stage"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by werr.Kind",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by exit code",
			},
			[]string{"code"},
		),

		cacheOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "build_cache_outcomes_total",
				Help:      "Total number of build-cache lookups by outcome (hit, miss, bypass)",
			},
			[]string{"outcome"},
		),

		activeDockyards: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_dockyards",
				Help:      "Current number of dockyards running a build stage",
			},
		),
		queuedBuildJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queued_build_jobs",
				Help:      "Current number of build jobs waiting for a dockyard slot",
			},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.buildJobsExecuted,
		m.buildJobDuration,
		m.packagesInstalled,
		m.packageShadowed,
		m.executorInvocations,
		m.executorDuration,
		m.executorErrors,
		m.errorsByClass,
		m.errorsByCode,
		m.cacheOutcomes,
		m.activeDockyards,
		m.queuedBuildJobs,
	)

	return m, nil
}

// RecordRunStarted increments the counter for started orchestrator runs.
func (m *Metrics) RecordRunStarted(user string) {
	if m.runsStarted == nil {
		return
	}
	m.runsStarted.WithLabelValues(user).Inc()
}

// RecordRunCompleted records a completed orchestrator run with its status and duration.
func (m *Metrics) RecordRunCompleted(status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(status).Inc()
	m.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordBuildJob records the execution of one build job.
func (m *Metrics) RecordBuildJob(reason, status string, duration time.Duration, phase string) {
	if m.buildJobsExecuted == nil {
		return
	}
	m.buildJobsExecuted.WithLabelValues(reason, status).Inc()
	m.buildJobDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// SetPackagesInstalled sets the current count of installed packages for arch.
func (m *Metrics) SetPackagesInstalled(arch string, count float64) {
	if m.packagesInstalled == nil {
		return
	}
	m.packagesInstalled.WithLabelValues(arch).Set(count)
}

// SetPackageShadowed records whether path is currently shadowed.
func (m *Metrics) SetPackageShadowed(path string, shadowed bool) {
	if m.packageShadowed == nil {
		return
	}
	value := 0.0
	if shadowed {
		value = 1.0
	}
	m.packageShadowed.WithLabelValues(path).Set(value)
}

// RecordExecutorInvocation records one executor stage invocation and its duration.
func (m *Metrics) RecordExecutorInvocation(executorName, stage string, duration time.Duration) {
	if m.executorInvocations == nil {
		return
	}
	m.executorInvocations.WithLabelValues(executorName, stage).Inc()
	m.executorDuration.WithLabelValues(executorName, stage).Observe(duration.Seconds())
}

// RecordExecutorError records a non-zero-exit executor stage invocation.
func (m *Metrics) RecordExecutorError(executorName, stage string) {
	if m.executorErrors == nil {
		return
	}
	m.executorErrors.WithLabelValues(executorName, stage).Inc()
}

// RecordError records an error by werr.Kind and optionally by exit code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" && m.errorsByCode != nil {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// RecordCacheOutcome records one build-cache lookup outcome
// ("hit", "miss", or "bypass" for --force/--clean/--stage/MVP passes).
func (m *Metrics) RecordCacheOutcome(outcome string) {
	if m.cacheOutcomes == nil {
		return
	}
	m.cacheOutcomes.WithLabelValues(outcome).Inc()
}

// SetActiveDockyards sets the current number of dockyards running a stage.
func (m *Metrics) SetActiveDockyards(count float64) {
	if m.activeDockyards == nil {
		return
	}
	m.activeDockyards.Set(count)
}

// SetQueuedBuildJobs sets the current number of build jobs waiting for a dockyard slot.
func (m *Metrics) SetQueuedBuildJobs(count float64) {
	if m.queuedBuildJobs == nil {
		return
	}
	m.queuedBuildJobs.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
