package provisioning

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/imamik/pvecfg/internal/resource"
)

// Observer defines the interface for structured observability during a pass.
type Observer interface {
	Printf(format string, v ...interface{})

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured reconciliation event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "tier 1", "destroy")
	Message   string            // Human-readable message
	Resource  string            // Resource key if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of reconciliation event.
type EventType string

const (
	// EventPhaseStarted indicates a phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a phase completed.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a phase finished with failures.
	EventPhaseFailed EventType = "phase.failed"

	// EventResourceCreating indicates a resource is being created or converged.
	EventResourceCreating EventType = "resource.creating"
	// EventResourceCreated indicates a resource was created or converged.
	EventResourceCreated EventType = "resource.created"
	// EventResourceExists indicates a resource was already in the desired state.
	EventResourceExists EventType = "resource.exists"
	// EventResourceFailed indicates reconciliation of a resource failed.
	EventResourceFailed EventType = "resource.failed"
	// EventResourceBlocked indicates a resource was not attempted.
	EventResourceBlocked EventType = "resource.blocked"
	// EventResourceDeleting indicates a resource is being deleted.
	EventResourceDeleting EventType = "resource.deleting"
	// EventResourceDeleted indicates a resource was deleted.
	EventResourceDeleted EventType = "resource.deleted"

	// EventProgress indicates progress in a long-running operation.
	EventProgress EventType = "progress"
)

// ZerologObserver implements Observer on top of a zerolog logger.
type ZerologObserver struct {
	logger zerolog.Logger
}

// NewZerologObserver creates an observer writing to logger.
func NewZerologObserver(logger zerolog.Logger) *ZerologObserver {
	return &ZerologObserver{logger: logger}
}

// NewNopObserver returns an observer that discards everything.
func NewNopObserver() *ZerologObserver {
	return &ZerologObserver{logger: zerolog.Nop()}
}

// Printf logs a free-form informational message.
func (o *ZerologObserver) Printf(format string, v ...interface{}) {
	o.logger.Info().Msgf(format, v...)
}

// Event implements Observer interface.
func (o *ZerologObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var e *zerolog.Event
	switch event.Type {
	case EventResourceFailed, EventPhaseFailed:
		e = o.logger.Error()
	case EventResourceBlocked:
		e = o.logger.Warn()
	case EventProgress:
		e = o.logger.Debug()
	default:
		e = o.logger.Info()
	}

	e = e.Time("at", event.Timestamp).Str("event", string(event.Type))
	if event.Phase != "" {
		e = e.Str("phase", event.Phase)
	}
	if event.Resource != "" {
		e = e.Str("resource", event.Resource)
	}
	for k, v := range event.Fields {
		e = e.Str(k, v)
	}
	e.Msg(event.Message)
}

// Progress implements Observer interface.
func (o *ZerologObserver) Progress(phase string, current, total int) {
	percentage := 0
	if total > 0 {
		percentage = (current * 100) / total
	}
	o.logger.Debug().
		Str("event", string(EventProgress)).
		Str("phase", phase).
		Int("current", current).
		Int("total", total).
		Msgf("%d/%d (%d%%)", current, total, percentage)
}

// WithFields implements Observer interface.
func (o *ZerologObserver) WithFields(fields map[string]string) Observer {
	ctx := o.logger.With()
	for k, v := range fields {
		ctx = ctx.Str(k, v)
	}
	return &ZerologObserver{logger: ctx.Logger()}
}

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string, resources int) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: fmt.Sprintf("starting %d resource(s)", resources),
	})
}

// LogPhaseComplete logs a phase completion event. A phase with failures is
// reported as failed.
func LogPhaseComplete(observer Observer, phase string, failed int, duration time.Duration) {
	if failed > 0 {
		observer.Event(Event{
			Type:    EventPhaseFailed,
			Phase:   phase,
			Message: fmt.Sprintf("%d resource(s) failed after %v", failed, duration.Round(time.Millisecond)),
		})
		return
	}
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogResourceStart logs that work on a resource is starting.
func LogResourceStart(observer Observer, phase string, key resource.Key, destroying bool) {
	typ, verb := EventResourceCreating, "reconciling"
	if destroying {
		typ, verb = EventResourceDeleting, "deleting"
	}
	observer.Event(Event{
		Type:     typ,
		Phase:    phase,
		Resource: key.String(),
		Message:  fmt.Sprintf("%s %s", verb, key.Kind),
		Fields:   map[string]string{"kind": string(key.Kind)},
	})
}

// LogResourceResult logs the outcome of one resource.
func LogResourceResult(observer Observer, phase string, res resource.Result) {
	event := Event{
		Phase:    phase,
		Resource: res.Key.String(),
		Fields: map[string]string{
			"kind":    string(res.Key.Kind),
			"action":  string(res.Action),
			"outcome": string(res.Outcome),
		},
	}
	if res.Duration > 0 {
		event.Fields["duration"] = res.Duration.Round(time.Millisecond).String()
	}

	switch res.Outcome {
	case resource.OutcomeSucceeded:
		event.Type = EventResourceCreated
		event.Message = fmt.Sprintf("%s %s", res.Key.Kind, pastTense(res.Action))
		if res.Action == resource.ActionDestroy {
			event.Type = EventResourceDeleted
		}
	case resource.OutcomeSkipped:
		event.Type = EventResourceExists
		event.Message = res.Message
		if res.Action == resource.ActionDestroy {
			event.Type = EventResourceDeleted
		}
	case resource.OutcomeNotAttempted:
		event.Type = EventResourceBlocked
		event.Message = res.Message
	default:
		event.Type = EventResourceFailed
		event.Message = "failed"
		if res.Err != nil {
			event.Message = res.Err.Error()
			event.Fields["error_kind"] = string(resource.KindOf(res.Err))
		}
	}
	observer.Event(event)
}

func pastTense(action resource.Action) string {
	switch action {
	case resource.ActionCreate:
		return "created"
	case resource.ActionConverge:
		return "converged"
	case resource.ActionDestroy:
		return "deleted"
	default:
		return "unchanged"
	}
}
