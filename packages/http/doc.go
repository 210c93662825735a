// Package http executes test requests.
//
// It wraps the standard library's http package with additional features:
//   - Per-request timeouts and certificate validation
//   - Retry with capped exponential backoff for transient failures
//   - Redirect handling and proxies
//   - A shared request rate limit
//   - One log record per attempt
package http
