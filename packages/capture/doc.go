// Package capture extracts values from HTTP responses for use in subsequent requests.
//
// It supports capturing values from:
//   - Response body (dotted JSON paths, with [N] or .N for array items)
//   - Response headers ($headers.<name>)
//   - Response status code ($status) and duration ($duration)
//
// Captured values are stored under the rule's variable name and used in later
// steps of the same scenario via the ${name} syntax.
package capture
