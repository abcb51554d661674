package handlers

import (
	"context"
	"errors"
)

// errNotConfirmed is returned when destroy runs without --yes.
var errNotConfirmed = errors.New("destroy removes every recorded resource; re-run with --yes to confirm")

// Destroy tears down every recorded resource.
func Destroy(ctx context.Context, opts GlobalOptions, confirmed bool) error {
	if !confirmed {
		return errNotConfirmed
	}

	s, err := openSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer s.close()

	report, err := s.driver.Destroy(s.passContext(ctx))
	s.writeMetrics(opts.MetricsFile)
	return finishReport(report, err)
}
