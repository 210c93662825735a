// Package runner executes scenarios of API test cases.
//
// Cases are grouped by scenario and run in ascending step order, each
// scenario with its own variable store. Scenarios run concurrently up to a
// configurable limit. A step moves from pending to running and ends passed,
// failed, error or skipped:
//   - failed means the exchange completed but the response did not match
//   - error means the step could not complete (substitution, transport,
//     extraction)
//   - skipped means the step never ran (dependency, cancellation, bail)
package runner
