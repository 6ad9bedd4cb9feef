package datasource

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/stellar/go/support/errors"
	"github.com/xuri/excelize/v2"
)

// EnabledColumn lets a sheet switch rows off without deleting them.
const EnabledColumn = "enabled"

// Provider reads the rows of case sources below a data directory.
type Provider struct {
	dataDir string
}

func NewProvider(dataDir string) *Provider {
	return &Provider{dataDir: dataDir}
}

// Rows returns the enabled rows of source. The first non-empty line is the
// header and blank lines are skipped.
func (p *Provider) Rows(source Source) ([]Row, error) {
	source = source.WithDefaults()
	if err := source.Validate(); err != nil {
		return nil, err
	}
	path := source.Path(p.dataDir)

	var (
		records []record
		err     error
	)
	switch source.Type {
	case TypeExcel:
		records, err = readExcel(path, source.Sheet)
	case TypeCSV:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	return toRows(records)
}

// record is a line of a source together with its 1-based line number.
type record struct {
	line  int
	cells []string
}

func readExcel(path, sheet string) ([]record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	// GetRows keeps blank rows, so positions are sheet rows.
	records := make([]record, 0, len(rows))
	for i, cells := range rows {
		records = append(records, record{line: i + 1, cells: cells})
	}
	return records, nil
}

func readCSV(path string) ([]record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseCSV(file)
}

func parseCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var records []record
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		// encoding/csv skips blank lines, the field position keeps the file line.
		line, _ := reader.FieldPos(0)
		records = append(records, record{line: line, cells: cells})
	}
}

func toRows(records []record) ([]Row, error) {
	var (
		rows   []Row
		header map[string]int
	)
	for _, rec := range records {
		if isBlank(rec.cells) {
			continue
		}
		if header == nil {
			header = make(map[string]int, len(rec.cells))
			for col, name := range rec.cells {
				name = normalizeColumn(strings.TrimPrefix(name, "\ufeff"))
				if name == "" {
					continue
				}
				if _, dup := header[name]; dup {
					return nil, errors.Errorf("duplicate column %q", name)
				}
				header[name] = col
			}
			continue
		}
		row := Row{index: rec.line, header: header, values: rec.cells}
		enabled, err := row.Bool(EnabledColumn, true)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", row.index)
		}
		if enabled {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
