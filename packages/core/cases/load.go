package cases

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcase/packages/value"
)

// Extensions lists the file extensions LoadFile understands.
var Extensions = []string{".yaml", ".yml", ".json", ".xlsx", ".xlsm"}

// jsonColumns are spreadsheet columns whose cells hold JSON documents.
var jsonColumns = map[string]bool{
	"headers":  true,
	"params":   true,
	"data":     true,
	"expected": true,
	"extract":  true,
}

// IsCaseFile reports whether path has a supported extension.
func IsCaseFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFiles loads every path and merges the results into one Set.
func LoadFiles(paths []string, sheet string) (*Set, error) {
	set := &Set{}
	for _, path := range paths {
		s, err := LoadFile(path, sheet)
		if err != nil {
			return nil, err
		}
		set.Merge(s)
	}
	return set, nil
}

// LoadFile reads a YAML, JSON, or Excel case file. A file that cannot be read
// or parsed at all is an error; individual bad records end up in Set.Invalid.
func LoadFile(path, sheet string) (*Set, error) {
	var (
		records []record
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		records, err = readYAML(path)
	case ".json":
		records, err = readJSON(path)
	case ".xlsx", ".xlsm":
		records, err = readExcel(path, sheet)
	default:
		return nil, fmt.Errorf("unsupported case file %s", path)
	}
	if err != nil {
		return nil, err
	}

	set := &Set{Sources: []string{path}}
	for _, rec := range records {
		c, cerr := decodeRecord(path, rec)
		if cerr != nil {
			set.Invalid = append(set.Invalid, cerr)
			continue
		}
		set.Cases = append(set.Cases, c)
	}
	return set, nil
}

func readYAML(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	var doc value.Value
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return documentRecords(path, doc)
}

func readJSON(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}
	doc, err := value.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return documentRecords(path, doc)
}

// documentRecords accepts either a top-level list of cases or an object with
// a "cases" list.
func documentRecords(path string, doc value.Value) ([]record, error) {
	list := doc
	if doc.Kind() == value.Object {
		inner, ok := doc.Get("cases")
		if !ok {
			return nil, fmt.Errorf("%s: expected a list of cases or a \"cases\" key", path)
		}
		list = inner
	}
	if list.IsNull() {
		return nil, nil
	}
	if list.Kind() != value.Array {
		return nil, fmt.Errorf("%s: cases must be a list, got %s", path, list.Kind())
	}

	records := make([]record, 0, list.Len())
	for i, item := range list.Items() {
		rec := record{index: i + 1, fields: item.Fields()}
		if item.Kind() != value.Object {
			rec.err = fmt.Errorf("case must be a mapping, got %s", item.Kind())
		}
		records = append(records, rec)
	}
	return records, nil
}

// readExcel reads the first row as column names and every following non-empty
// row as one case. Structured columns hold JSON text.
func readExcel(path, sheet string) ([]record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(name))
	}

	var records []record
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		// row 1 is the header, so data rows start at 2
		rec := record{index: i + 2, fields: make(map[string]value.Value, len(header))}
		for col, cell := range row {
			if col >= len(header) || header[col] == "" {
				continue
			}
			name := header[col]
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			if jsonColumns[name] {
				v, err := value.Parse([]byte(cell))
				if err != nil {
					rec.err = fmt.Errorf("column %q: %w", name, err)
					break
				}
				rec.fields[name] = v
				continue
			}
			rec.fields[name] = value.StringValue(cell)
		}
		records = append(records, rec)
	}
	return records, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
