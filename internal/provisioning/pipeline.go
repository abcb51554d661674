package provisioning

import (
	"fmt"
	"time"
)

// Phase is one step of a pass.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Run executes the phase. Resource failures are results, not errors; an
	// error means the pass itself cannot continue.
	Run(ctx *Context) error
}

// RunPhases executes phases sequentially, stopping at the first error.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting pass with %d phases...", len(phases))

	for i, phase := range phases {
		phaseStart := time.Now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))

		ctx.Observer.Printf("[%s] starting", name)

		if err := phase.Run(ctx); err != nil {
			ctx.Observer.Printf("[%s] failed: %v", name, err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		ctx.Observer.Printf("[%s] completed in %v", name, time.Since(phaseStart).Round(time.Millisecond))
	}

	ctx.Observer.Printf("Pass completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
