package handlers

import (
	"context"
	"fmt"
)

// Apply runs one reconciliation pass for the configuration.
func Apply(ctx context.Context, opts GlobalOptions, refresh bool) error {
	s, err := openSession(ctx, opts, refresh)
	if err != nil {
		return err
	}
	defer s.close()

	desired, err := s.cfg.Expand()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	report, err := s.driver.Apply(s.passContext(ctx), desired)
	s.writeMetrics(opts.MetricsFile)
	return finishReport(report, err)
}
