package datasource

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/stellar/go/support/errors"
)

// Row is one parameter set read from a source. Columns are matched
// case-insensitively.
type Row struct {
	index  int
	header map[string]int
	values []string
}

// NewRow builds a row out of a column to value map. index is the 1-based
// position in the source.
func NewRow(index int, values map[string]string) Row {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	row := Row{index: index, header: make(map[string]int, len(keys))}
	for i, key := range keys {
		row.header[normalizeColumn(key)] = i
		row.values = append(row.values, values[key])
	}
	return row
}

// WithDefaults returns a copy of the row in which the columns missing from
// the source take their value from defaults.
func (r Row) WithDefaults(defaults map[string]string) Row {
	if len(defaults) == 0 {
		return r
	}
	out := Row{
		index:  r.index,
		header: make(map[string]int, len(r.header)+len(defaults)),
		values: append([]string(nil), r.values...),
	}
	width := len(out.values)
	for column, i := range r.header {
		out.header[column] = i
		if i >= width {
			width = i + 1
		}
	}
	// Short records keep their header positions, new columns go after all of them.
	for len(out.values) < width {
		out.values = append(out.values, "")
	}
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		column := normalizeColumn(key)
		i, ok := out.header[column]
		if !ok {
			out.header[column] = len(out.values)
			out.values = append(out.values, defaults[key])
			continue
		}
		if strings.TrimSpace(out.values[i]) == "" {
			out.values[i] = defaults[key]
		}
	}
	return out
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Index is the 1-based line of the row in its sheet or csv file. Rows of
// cases without a source have index 0.
func (r Row) Index() int {
	return r.index
}

func (r Row) lookup(column string) (string, bool) {
	i, ok := r.header[normalizeColumn(column)]
	if !ok || i >= len(r.values) {
		return "", false
	}
	v := strings.TrimSpace(r.values[i])
	return v, v != ""
}

// Has reports whether the row has a non-empty value for column.
func (r Row) Has(column string) bool {
	_, ok := r.lookup(column)
	return ok
}

func (r Row) String(column, def string) string {
	if v, ok := r.lookup(column); ok {
		return v
	}
	return def
}

func (r Row) Int(column string, def int64) (int64, error) {
	v, ok := r.lookup(column)
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, errors.Errorf("column %s: invalid integer %q", column, v)
	}
	return n, nil
}

func (r Row) BigInt(column string, def *big.Int) (*big.Int, error) {
	v, ok := r.lookup(column)
	if !ok {
		return def, nil
	}
	n, ok := new(big.Int).SetString(v, 0)
	if !ok {
		return nil, errors.Errorf("column %s: invalid integer %q", column, v)
	}
	return n, nil
}

func (r Row) Bool(column string, def bool) (bool, error) {
	v, ok := r.lookup(column)
	if !ok {
		return def, nil
	}
	b, err := parseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "column %s", column)
	}
	return b, nil
}

// Args splits column shell-style, so quoted arguments may contain spaces.
func (r Row) Args(column string) ([]string, error) {
	v, ok := r.lookup(column)
	if !ok {
		return nil, nil
	}
	args, err := shlex.Split(v)
	if err != nil {
		return nil, errors.Wrapf(err, "column %s", column)
	}
	return args, nil
}

// Values returns the non-empty cells of the row keyed by normalized column
// name.
func (r Row) Values() map[string]string {
	out := make(map[string]string, len(r.header))
	for column := range r.header {
		if v, ok := r.lookup(column); ok {
			out[column] = v
		}
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return false, errors.Errorf("invalid boolean %q", v)
}
