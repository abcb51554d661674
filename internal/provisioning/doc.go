// Package provisioning schedules a reconciliation pass.
//
// Resources are grouped into tiers by the depth of their kind in the
// dependency graph. Tiers run one after another with a barrier in between;
// inside a tier a bounded pool works on resources concurrently. A failure is
// contained to its resource within a tier but blocks every dependent tier.
//
// Context carries the pass id, observer and metrics. Observer reports
// structured events through zerolog.
package provisioning
