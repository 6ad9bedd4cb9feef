package suite

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/stellar/go/support/errors"
	"gopkg.in/yaml.v3"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/datasource"
)

// Suite is the manifest listing the cases of a run.
type Suite struct {
	Name   string  `yaml:"name"`
	Author string  `yaml:"author"`
	Cases  []Entry `yaml:"cases"`
}

// Entry binds a case implementation to its data source and parameters.
type Entry struct {
	Name     string             `yaml:"name"`
	Kind     string             `yaml:"case"`
	ShowName string             `yaml:"show_name"`
	Author   string             `yaml:"author"`
	Source   *datasource.Source `yaml:"source"`
	// Params are defaults for columns missing from the data rows.
	Params map[string]string `yaml:"params"`
}

func Load(filename string) (*Suite, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	s, err := Parse(file)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid suite %s", filename)
	}
	return s, nil
}

// Parse decodes a manifest, rejecting unknown fields, and fills in the
// defaults inherited from the suite and from the sources.
func Parse(r io.Reader) (*Suite, error) {
	var s Suite
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty suite")
		}
		return nil, err
	}
	for i := range s.Cases {
		s.Cases[i].applyDefaults(s.Author)
	}
	return &s, nil
}

func (e *Entry) applyDefaults(suiteAuthor string) {
	if e.Source != nil {
		source := e.Source.WithDefaults()
		e.Source = &source
		if e.Author == "" {
			e.Author = source.Author
		}
		if e.ShowName == "" {
			e.ShowName = source.ShowName
		}
	}
	if e.Author == "" {
		e.Author = suiteAuthor
	}
	if e.ShowName == "" {
		e.ShowName = e.Name
	}
}

// Validate checks names are unique, sources are complete and every case
// kind is known.
func (s *Suite) Validate(knownKind func(string) bool) error {
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %s has no cases", s.Name)
	}
	names := make(map[string]struct{}, len(s.Cases))
	for i, entry := range s.Cases {
		if entry.Name == "" {
			return fmt.Errorf("case %d has no name", i)
		}
		if _, dup := names[entry.Name]; dup {
			return fmt.Errorf("duplicate case name %s", entry.Name)
		}
		names[entry.Name] = struct{}{}
		if !knownKind(entry.Kind) {
			return fmt.Errorf("case %s: unknown case %q", entry.Name, entry.Kind)
		}
		if entry.Source != nil {
			if err := entry.Source.Validate(); err != nil {
				return fmt.Errorf("case %s: %w", entry.Name, err)
			}
		}
	}
	return nil
}

// Filter keeps the entries whose name or kind matches one of the glob
// patterns. No patterns keeps everything.
func (s *Suite) Filter(patterns []string) (*Suite, error) {
	if len(patterns) == 0 {
		return s, nil
	}
	for _, pattern := range patterns {
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid case pattern %q: %w", pattern, err)
		}
	}
	filtered := &Suite{Name: s.Name, Author: s.Author}
	for _, entry := range s.Cases {
		for _, pattern := range patterns {
			if matched(pattern, entry.Name) || matched(pattern, entry.Kind) {
				filtered.Cases = append(filtered.Cases, entry)
				break
			}
		}
	}
	return filtered, nil
}

func matched(pattern, name string) bool {
	ok, _ := path.Match(pattern, name)
	return ok
}
