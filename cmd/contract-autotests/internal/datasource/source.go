package datasource

import (
	"path/filepath"
	"strings"

	"github.com/stellar/go/support/errors"
)

type Type string

const (
	TypeExcel Type = "excel"
	TypeCSV   Type = "csv"

	DefaultSheet = "Sheet1"
)

// Source describes where the parameter rows of a case come from, and who
// owns the case.
type Source struct {
	Type         Type   `yaml:"type"`
	File         string `yaml:"file"`
	Sheet        string `yaml:"sheet"`
	Author       string `yaml:"author"`
	ShowName     string `yaml:"show_name"`
	SourcePrefix string `yaml:"source_prefix"`
}

// WithDefaults fills in the sheet name and infers the type from the file
// extension.
func (s Source) WithDefaults() Source {
	if s.Sheet == "" {
		s.Sheet = DefaultSheet
	}
	if s.Type == "" {
		switch strings.ToLower(filepath.Ext(s.File)) {
		case ".csv":
			s.Type = TypeCSV
		default:
			s.Type = TypeExcel
		}
	}
	return s
}

func (s Source) Validate() error {
	if s.File == "" {
		return errors.New("source has no file")
	}
	switch s.Type {
	case TypeExcel:
		if strings.EqualFold(filepath.Ext(s.File), ".xls") {
			return errors.Errorf("%s: legacy .xls workbooks are not supported, save it as .xlsx", s.File)
		}
		if s.Sheet == "" {
			return errors.Errorf("%s: source has no sheet", s.File)
		}
	case TypeCSV:
	default:
		return errors.Errorf("%s: unknown source type %q", s.File, s.Type)
	}
	return nil
}

// Path resolves the file of the source below dataDir.
func (s Source) Path(dataDir string) string {
	if filepath.IsAbs(s.File) {
		return s.File
	}
	return filepath.Join(dataDir, s.SourcePrefix, s.File)
}

func (s Source) String() string {
	if s.File == "" {
		return ""
	}
	name := filepath.ToSlash(filepath.Join(s.SourcePrefix, s.File))
	if s.Type == TypeExcel {
		return name + "#" + s.Sheet
	}
	return name
}
