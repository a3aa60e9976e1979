// Package telemetry provides observability instrumentation for wright and wbuild.
//
// The telemetry package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified system
// for monitoring orchestrator runs, build jobs, and installer transactions.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces, stdout exporter only
//  3. Metrics Collection - Prometheus metrics for operational insight
//  4. Event Publishing - Async event system for audit and notification
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "wright"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("builder")
//	logger = logger.WithRunID("run-123").WithPackageName("glibc")
//	logger.Info("Starting build job")
//	logger.WithError(err).Error("Build job failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into orchestrator run and build job timing:
//
//	ctx, span := tel.Tracer.Start(ctx, "operation.name")
//	defer span.End()
//
//	span.SetAttributes(
//	    attribute.String("package.name", pkgName),
//	    attribute.String("stage", "compile"),
//	)
//
//	span.AddEvent("dependency.resolved")
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Only the stdout exporter is wired; wright has no remote collector to ship to.
//
// # Metrics
//
//	tel.Metrics.RecordRunStarted("user@example.com")
//	tel.Metrics.RecordRunCompleted("succeeded", duration)
//	tel.Metrics.RecordBuildJob("new", "succeeded", duration, "full")
//	tel.Metrics.RecordExecutorInvocation("bwrap", "compile", duration)
//	tel.Metrics.RecordCacheOutcome("hit")
//	tel.Metrics.RecordError("transient", "TIMEOUT")
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
//	tel.Events.PublishRunStarted(runID, user)
//	tel.Events.PublishBuildJobCompleted(runID, jobKey, pkgName, duration)
//	tel.Events.PublishCacheOutcome(jobKey, pkgName, "hit")
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID, FilterByPackageName
//
// # Context Helpers
//
//	ic := telemetry.StartOperation(ctx, "plan.validate",
//	    attribute.String("plan.name", name))
//	defer ic.End(err)
//
//	ctx = telemetry.WithRunContext(ctx, runID, user)
//	defer telemetry.EndRunContext(ctx, runID, status, err)
//
//	ctx = telemetry.WithBuildJobContext(ctx, runID, jobKey, pkgName, "compile")
//	defer telemetry.EndBuildJobContext(ctx, runID, jobKey, pkgName, phase, status, err)
//
//	err := telemetry.RecordExecutorOperation(ctx, pkgName, "bwrap", "compile", func() error {
//	    return executor.Run(ctx, script)
//	})
//
// # Configuration
//
//	cfg := telemetry.DevelopmentConfig() // verbose logging, stdout traces, full sampling
//	cfg := telemetry.ProductionConfig()  // JSON logs, stdout traces, 10% sampling
//
// # Performance Considerations
//
//  - Structured logging uses zerolog's zero-allocation approach
//  - Tracing is sampled to reduce data volume in production
//  - Events are buffered and batched to reduce I/O
//
// # Graceful Shutdown
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("telemetry shutdown error: %v", err)
//	}
//
// # Common Metrics
//
//  - wright_runs_started_total{user}
//  - wright_runs_completed_total{status}
//  - wright_build_jobs_executed_total{reason,status}
//  - wright_build_job_duration_seconds{phase}
//  - wright_executor_invocations_total{executor,stage}
//  - wright_build_cache_outcomes_total{outcome}
//  - wright_errors_by_class_total{class}
//  - wright_active_dockyards
//  - wright_queued_build_jobs
package telemetry
