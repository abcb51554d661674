package handlers

import (
	"context"
	"fmt"
)

// Plan prints what Apply would do without changing anything.
func Plan(ctx context.Context, opts GlobalOptions, refresh bool) error {
	s, err := openSession(ctx, opts, refresh)
	if err != nil {
		return err
	}
	defer s.close()

	desired, err := s.cfg.Expand()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	plan, err := s.driver.Plan(s.passContext(ctx), desired)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, renderPlan(plan, isInteractiveTTY()))
	return nil
}
