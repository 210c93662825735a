package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/core/cases"
	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
)

// collectFiles expands directories into the case files below them. Files
// named explicitly are kept even when their extension is unknown, so the
// loader can report them.
func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			// spreadsheet lock files
			if strings.HasPrefix(d.Name(), "~$") {
				return nil
			}
			if cases.IsCaseFile(path) && !isConfigFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

func isConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range config.ConfigFilenames {
		if base == name {
			return true
		}
	}
	return false
}

// loadCases reads every file; a file that cannot be parsed is a parse error.
func loadCases(files []string, sheet string) (*cases.Set, error) {
	set, err := cases.LoadFiles(files, sheet)
	if err != nil {
		return nil, &ExitError{Code: ExitParseError, Err: err}
	}
	return set, nil
}

// scenarioNames lists the scenarios of set in order of first appearance.
func scenarioNames(set *cases.Set) []string {
	scenarios, _ := cases.Group(set.Cases)
	names := make([]string, len(scenarios))
	for i, sc := range scenarios {
		names[i] = sc.Name
	}
	return names
}
