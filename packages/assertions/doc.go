// Package assertions compares responses against expected templates.
//
// An expected template is a partial document: every key it names must be
// present in the response with a matching value, and everything else in the
// response is ignored. Inside a template, string values may be wildcards:
//   - "$any" matches any present value
//   - "$type:<t>" matches a value of type null, boolean, number, string, array or object
//   - "$regex:<pattern>" matches a scalar whose text matches the pattern
//
// A case can also point at a JSON Schema file, checked with ValidateSchema.
package assertions
