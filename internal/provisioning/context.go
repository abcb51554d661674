package provisioning

import (
	"context"

	"github.com/google/uuid"
)

// DefaultConcurrency bounds how many resources of one tier run at once.
const DefaultConcurrency = 4

// Context wraps everything a reconciliation pass needs besides the work itself.
type Context struct {
	context.Context
	Observer Observer
	// Metrics may be nil.
	Metrics     *Metrics
	Concurrency int
	// PassID identifies the pass in logs and state records.
	PassID string
}

// NewContext creates a pass context with a fresh pass id.
func NewContext(ctx context.Context, observer Observer) *Context {
	if observer == nil {
		observer = NewNopObserver()
	}
	passID := uuid.NewString()
	return &Context{
		Context:     ctx,
		Observer:    observer.WithFields(map[string]string{"pass": passID}),
		Concurrency: DefaultConcurrency,
		PassID:      passID,
	}
}
