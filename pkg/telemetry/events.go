package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the Wright system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// RunID is the associated orchestrator run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// JobKey is the associated build job key (plan name + phase), if applicable.
	JobKey string `json:"job_key,omitempty"`

	// PackageName is the associated package name, if applicable.
	PackageName string `json:"package_name,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeRunStarted        = "run.started"
	EventTypeRunCompleted      = "run.completed"
	EventTypeRunFailed         = "run.failed"
	EventTypeBuildJobStarted   = "build_job.started"
	EventTypeBuildJobCompleted = "build_job.completed"
	EventTypeBuildJobFailed    = "build_job.failed"
	EventTypePackageInstalled  = "package.installed"
	EventTypePackageRemoved    = "package.removed"
	EventTypeCacheHit          = "build_cache.hit"
	EventTypeExecutorInvoked   = "executor.invoked"
	EventTypeError             = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishRunStarted publishes an orchestrator run started event.
func (ep *EventPublisher) PublishRunStarted(runID, user string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunStarted,
		Source:  "orchestrator",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s started by %s", runID, user),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"user": user,
		},
	})
}

// PublishRunCompleted publishes an orchestrator run completed event.
func (ep *EventPublisher) PublishRunCompleted(runID, status string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeRunCompleted,
		Source:  "orchestrator",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s completed with status: %s", runID, status),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishRunFailed publishes an orchestrator run failed event.
func (ep *EventPublisher) PublishRunFailed(runID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunFailed,
		Source:  "orchestrator",
		RunID:   runID,
		Message: fmt.Sprintf("Run %s failed: %s", runID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishBuildJobStarted publishes a build job started event.
func (ep *EventPublisher) PublishBuildJobStarted(runID, jobKey, pkgName, stage string) error {
	return ep.Publish(Event{
		Type:        EventTypeBuildJobStarted,
		Source:      "builder",
		RunID:       runID,
		JobKey:      jobKey,
		PackageName: pkgName,
		Message:     fmt.Sprintf("Build job %s started: stage %s for package %s", jobKey, stage, pkgName),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"stage": stage,
		},
	})
}

// PublishBuildJobCompleted publishes a build job completed event.
func (ep *EventPublisher) PublishBuildJobCompleted(runID, jobKey, pkgName string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:        EventTypeBuildJobCompleted,
		Source:      "builder",
		RunID:       runID,
		JobKey:      jobKey,
		PackageName: pkgName,
		Message:     fmt.Sprintf("Build job %s completed for package %s", jobKey, pkgName),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"duration": duration.Seconds(),
		},
	})
}

// PublishBuildJobFailed publishes a build job failed event.
func (ep *EventPublisher) PublishBuildJobFailed(runID, jobKey, pkgName, reason string) error {
	return ep.Publish(Event{
		Type:        EventTypeBuildJobFailed,
		Source:      "builder",
		RunID:       runID,
		JobKey:      jobKey,
		PackageName: pkgName,
		Message:     fmt.Sprintf("Build job %s failed for package %s: %s", jobKey, pkgName, reason),
		Level:       EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishPackageInstalled publishes a package installed event.
func (ep *EventPublisher) PublishPackageInstalled(pkgName, version string) error {
	return ep.Publish(Event{
		Type:        EventTypePackageInstalled,
		Source:      "installer",
		PackageName: pkgName,
		Message:     fmt.Sprintf("Package %s installed at version %s", pkgName, version),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"version": version,
		},
	})
}

// PublishPackageRemoved publishes a package removed event.
func (ep *EventPublisher) PublishPackageRemoved(pkgName string) error {
	return ep.Publish(Event{
		Type:        EventTypePackageRemoved,
		Source:      "installer",
		PackageName: pkgName,
		Message:     fmt.Sprintf("Package %s removed", pkgName),
		Level:       EventLevelInfo,
	})
}

// PublishCacheOutcome publishes a build-cache lookup outcome event.
func (ep *EventPublisher) PublishCacheOutcome(jobKey, pkgName, outcome string) error {
	return ep.Publish(Event{
		Type:        EventTypeCacheHit,
		Source:      "builder",
		JobKey:      jobKey,
		PackageName: pkgName,
		Message:     fmt.Sprintf("Build cache %s for %s", outcome, jobKey),
		Level:       EventLevelInfo,
		Data: map[string]interface{}{
			"outcome": outcome,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Draining happens in processEvents; this just paces it.
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRunID creates a filter that only allows events for a specific run.
func FilterByRunID(runID string) EventFilter {
	return func(event Event) bool {
		return event.RunID == runID
	}
}

// FilterByPackageName creates a filter that only allows events for a specific package.
func FilterByPackageName(pkgName string) EventFilter {
	return func(event Event) bool {
		return event.PackageName == pkgName
	}
}
