package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/wright-pm/wright/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "wright"
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("wright started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	logger := tel.Logger.NewComponentLogger("builder")

	logger = logger.WithFields(map[string]interface{}{
		"run_id":       "run-123",
		"package_name": "glibc",
	})

	logger.Debug("Starting build job")
	logger.Info("Build job completed")
	logger.Warn("Build cache miss, rebuilding from source")

	err := fmt.Errorf("executor exited with status 1")
	logger.WithError(err).Error("Stage script failed")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Exporter = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx, span := tel.Tracer.Start(ctx, "orchestrator.run")
	defer span.End()

	span.SetAttributes(
		attribute.String("run.id", "run-789"),
		attribute.Int("plan.count", 5),
	)

	span.AddEvent("dependency_graph.resolved")

	ctx, childSpan := tel.Tracer.Start(ctx, "builder.job")
	defer childSpan.End()

	childSpan.SetAttributes(
		attribute.String("package.name", "glibc"),
		attribute.String("stage", "compile"),
	)

	time.Sleep(10 * time.Millisecond)

	telemetry.RecordSuccess(childSpan)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Metrics.RecordRunStarted("user@example.com")

	start := time.Now()
	time.Sleep(50 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordRunCompleted("succeeded", duration)

	tel.Metrics.RecordBuildJob(
		"new",       // reason
		"succeeded", // status
		25*time.Millisecond,
		"full", // phase
	)

	tel.Metrics.RecordExecutorInvocation("bwrap", "compile", 15*time.Millisecond)

	tel.Metrics.RecordError("transient", "TIMEOUT")

	tel.Metrics.SetPackagesInstalled("x86_64", 812)
	tel.Metrics.RecordCacheOutcome("hit")

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false // Synchronous for example

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil) // No filter, receive all events

	tel.Events.PublishRunStarted("run-123", "user@example.com")
	tel.Events.PublishBuildJobStarted("run-123", "glibc/full", "glibc", "compile")
	tel.Events.PublishBuildJobCompleted("run-123", "glibc/full", "glibc", 25*time.Millisecond)

	// Output varies due to async nature, no output specified
}

// Example_runInstrumentation demonstrates instrumenting a complete orchestrator run.
func Example_runInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr" // keep log lines out of the checked output
	cfg.Tracing.Exporter = "none" // spans are recorded but not printed
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	runID := "run-123"
	user := "admin@example.com"
	ctx = telemetry.WithRunContext(ctx, runID, user)

	executeRun(ctx, runID)

	telemetry.EndRunContext(ctx, runID, "succeeded", nil)

	fmt.Println("Run instrumentation complete")
	// Output: Run instrumentation complete
}

func executeRun(ctx context.Context, runID string) {
	jobKey := "glibc/full"
	pkgName := "glibc"
	stage := "compile"

	ctx = telemetry.WithBuildJobContext(ctx, runID, jobKey, pkgName, stage)

	logger := telemetry.FromContext(ctx)
	logger.Info("Executing build job")

	time.Sleep(10 * time.Millisecond)

	telemetry.EndBuildJobContext(ctx, runID, jobKey, pkgName, "full", "succeeded", nil)
}

// Example_executorInstrumentation demonstrates instrumenting executor invocations.
func Example_executorInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr" // keep log lines out of the checked output
	cfg.Tracing.Exporter = "none" // spans are recorded but not printed
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx = telemetry.WithExecutorContext(ctx, "bwrap", "compile")

	err := telemetry.RecordExecutorOperation(ctx, "glibc", "bwrap", "compile", func() error {
		time.Sleep(15 * time.Millisecond)
		return nil
	})

	if err == nil {
		fmt.Println("Executor operation completed successfully")
	}

	// Output: Executor operation completed successfully
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr" // keep log lines out of the checked output
	cfg.Tracing.Exporter = "none" // spans are recorded but not printed
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "plan.validate",
		attribute.String("plan.path", "/srv/wright/plans/glibc.toml"),
	)
	defer ic.End(nil)

	ic.Logger.Info("Validating plan")

	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("Plan validation complete")

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Cache event: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypeCacheHit))

	tel.Events.PublishRunStarted("run-123", "user")          // Info - filtered by level filter
	tel.Events.PublishCacheOutcome("glibc/full", "glibc", "miss") // passes type filter
	tel.Events.PublishRunFailed("run-123", "dependency cycle")    // Error - passes level filter

	// Output varies, no output specified
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	cfg.ServiceName = "wright"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	cfg.Tracing.Exporter = "stdout"
	cfg.Tracing.SamplingRate = 0.1 // 10% sampling

	cfg.Metrics.ListenAddress = ":9090"
	cfg.Metrics.Namespace = "wright"

	cfg.Events.BufferSize = 10000
	cfg.Events.FlushInterval = 5 * time.Second

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Production configuration validated")
	// Output: Production configuration validated
}

// Example_errorRecording demonstrates error recording with proper classification.
func Example_errorRecording() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr" // keep log lines out of the checked output
	cfg.Tracing.Exporter = "none" // spans are recorded but not printed
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx, span := tel.Tracer.Start(ctx, "risky_operation")
	defer span.End()

	err := fmt.Errorf("network timeout fetching source")

	if err != nil {
		telemetry.RecordError(span, err)

		tel.Metrics.RecordError("network", "TIMEOUT")

		logger := telemetry.FromContext(ctx)
		logger.WithError(err).Error("Fetch failed")
	}

	fmt.Println("Error recording complete")
	// Output: Error recording complete
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stderr" // keep log lines out of the checked output
	cfg.Tracing.Exporter = "none" // spans are recorded but not printed
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	orchestratorLogger := tel.Logger.NewComponentLogger("orchestrator")
	builderLogger := tel.Logger.NewComponentLogger("builder")
	installerLogger := tel.Logger.NewComponentLogger("installer")

	orchestratorLogger.Info("Resolved build order")
	builderLogger.Info("Running compile stage")
	installerLogger.Info("Committing transaction")

	fmt.Println("Multi-component logging complete")
	// Output: Multi-component logging complete
}
