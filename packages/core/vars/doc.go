// Package vars implements the per-scenario variable store and ${...}
// placeholder substitution.
package vars
