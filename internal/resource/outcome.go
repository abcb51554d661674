package resource

import "time"

// Outcome is the terminal result of reconciling one resource in a pass.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSkipped covers "already converged" and "already exists" coercions.
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	// OutcomeNotAttempted marks resources blocked by a failed prerequisite or a cancelled pass.
	OutcomeNotAttempted Outcome = "not_attempted"
)

// Terminal reports whether o ends a resource's participation in a tier.
func (o Outcome) Terminal() bool {
	return o == OutcomeSucceeded || o == OutcomeSkipped || o == OutcomeFailed
}

// Healthy reports a terminal, non-failed outcome.
func (o Outcome) Healthy() bool {
	return o == OutcomeSucceeded || o == OutcomeSkipped
}

// Action names what a pass did (or, in plan mode, would do) to a resource.
type Action string

const (
	ActionCreate   Action = "create"
	ActionConverge Action = "converge"
	ActionDestroy  Action = "destroy"
	ActionNone     Action = "none"
)

// Result is what a reconciler reports for one resource.
type Result struct {
	Key     Key
	Action  Action
	Outcome Outcome
	// State is the state observed by the probe that preceded the action.
	State RemoteState
	// Err is set for failed outcomes; it may join several per-host errors.
	Err error
	// Mutations counts mutating commands issued.
	Mutations int
	Duration  time.Duration
	Message   string
}

// Succeeded builds a succeeded result.
func Succeeded(key Key, action Action, state RemoteState, mutations int) Result {
	return Result{Key: key, Action: action, Outcome: OutcomeSucceeded, State: state, Mutations: mutations}
}

// Skipped builds a skipped result.
func Skipped(key Key, state RemoteState, message string) Result {
	return Result{Key: key, Action: ActionNone, Outcome: OutcomeSkipped, State: state, Message: message}
}

// Failed builds a failed result.
func Failed(key Key, action Action, state RemoteState, err error, mutations int) Result {
	return Result{Key: key, Action: action, Outcome: OutcomeFailed, State: state, Err: err, Mutations: mutations}
}

// NotAttempted builds a result for a resource that was never started.
func NotAttempted(key Key, reason string) Result {
	return Result{Key: key, Action: ActionNone, Outcome: OutcomeNotAttempted, State: Unknown(reason), Message: reason}
}
