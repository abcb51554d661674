// Package orchestration drives reconciliation passes end to end.
//
// A Driver compares the desired descriptor set with the records of the
// previous pass, destroys what was removed, reconciles what was added,
// changed or left failed, and writes a record after every attempt.
//
// # Workflow
//
// Apply runs these phases in order:
//  1. State - load records and compute the diff
//  2. Destroy - remove resources no longer declared, in reverse tier order
//  3. Reconcile - probe and reconcile declared resources, tier by tier
//
// # Usage
//
//	driver := orchestration.NewDriver(registry, store, conn)
//	report, err := driver.Apply(pctx, descriptors)
//
// err is reserved for failures of the pass itself (the store could not be
// read or written). Resource failures are listed in the Report.
package orchestration
