// Package orchestrate executes an invocation plan on a bounded worker pool.
//
// Every invocation runs behind its own bulkhead: panics, errors, and malformed
// findings become a Failure result, an expired budget becomes a Timeout, and
// an external abort becomes Cancelled. Modules are attempted exactly once;
// there are no retries. Results are written to per-invocation slots and only
// read after the pool's barrier, so no report state is shared while modules
// run.
package orchestrate
