// Package preflight checks that gpsearch can run against the configured
// backing store and record source.
//
// The package validates:
//   - The data directory is writable (reindex lock)
//   - The backing store answers
//   - The store has the search module loaded
//   - The search index exists
//   - The record source can be read
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Target{Config: cfg, Backend: b, Index: idx})
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
