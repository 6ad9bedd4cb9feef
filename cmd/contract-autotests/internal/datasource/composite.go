package datasource

import (
	"strings"

	"github.com/stellar/go/support/errors"
)

const DefaultDelimiter = "-"

// Composite is a delimiter-joined fixture record such as
// "2-businessNo1-bizId1-4-5". Field 0 is the business id and field 1 the
// business number.
type Composite []string

func JoinComposite(delimiter string, fields ...string) string {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return strings.Join(fields, delimiter)
}

func SplitComposite(record, delimiter string) (Composite, error) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	if strings.TrimSpace(record) == "" {
		return nil, errors.New("empty record")
	}
	return Composite(strings.Split(record, delimiter)), nil
}

func (c Composite) field(i int) string {
	if i < len(c) {
		return c[i]
	}
	return ""
}

func (c Composite) ID() string {
	return c.field(0)
}

func (c Composite) BusinessNo() string {
	return c.field(1)
}
