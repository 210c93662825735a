// Package cmd implements the hitcase CLI commands using Cobra.
//
// Available commands:
//   - run: Execute test cases and report the results
//   - validate: Load case files and report records that would be excluded
//   - list: Display scenarios and their steps
//   - history: Show recorded runs from the history database
//   - init: Create a config file and an example case file
//   - version: Show hitcase version information
//
// Settings come from the config file, HITCASE_* environment variables and
// flags, in increasing order of precedence.
package cmd
