// Package cases loads test case records and groups them into scenarios.
//
// Cases can be written as:
//   - YAML, either a top-level list or a "cases" key
//   - JSON, with the same shapes
//   - Excel workbooks, one case per row, with JSON in the structured columns
//     (headers, params, data, expected, extract)
//
// Records missing a required field, using an unsupported method, or naming an
// invalid extract variable are reported as CaseErrors and never executed.
package cases
