package async

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunBounded executes tasks with at most limit running at once and waits for
// them. A limit below one runs tasks one at a time. Errors are wrapped with the
// task name and joined.
//
// Example:
//
//	tasks := []Task{
//	    {Name: "storage_nfs/backup", Func: reconcileNFS},
//	    {Name: "ha_group/prod", Func: reconcileHAGroup},
//	}
//	if err := RunBounded(ctx, 4, tasks); err != nil {
//	    return err
//	}
func RunBounded(ctx context.Context, limit int, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}

	// A plain Group, not WithContext: one failure must not cancel the others.
	var g errgroup.Group
	g.SetLimit(limit)

	errs := make([]error, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			if err := task.Func(ctx); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
