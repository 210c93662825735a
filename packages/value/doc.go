// Package value provides the tagged-union value used for request bodies,
// response bodies, and expected templates.
//
// A Value is one of null, boolean, number, string, array, or object. Values
// are built from decoded YAML, JSON, or spreadsheet cells with FromAny and
// Parse, and are compared structurally by the assertions package.
package value
