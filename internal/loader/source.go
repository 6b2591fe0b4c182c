// Package loader fetches remote CSV datasets and parses them into typed
// tables. Fetches are single-attempt: a failure aborts the run (no
// retries). Individual cells that fail type coercion are skipped, not
// fatal.
package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"tidytable/internal/domain"
	"tidytable/internal/table"
)

// SourceColumn declares one column of interest in a dataset: its header
// name, target kind, and whether rows missing it should be dropped during
// normalization.
type SourceColumn struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Required bool   `yaml:"required"`
}

// WideSpec marks a source as wide time-series data: besides the declared
// identity columns, every header matching the date pattern is loaded as a
// float observation column. Headers matching neither are ignored.
type WideSpec struct {
	Prefix string `yaml:"prefix"`
	Layout string `yaml:"layout"`
}

// Source describes one remote CSV dataset: where to fetch it, the local
// cache filename, and the declared column subset of interest.
type Source struct {
	Name    string         `yaml:"name"`
	URL     string         `yaml:"url"`
	File    string         `yaml:"file"`
	Columns []SourceColumn `yaml:"columns"`
	Wide    *WideSpec      `yaml:"wide,omitempty"`
}

// sourcesDoc is the top-level shape of an embedded source descriptor file.
type sourcesDoc struct {
	Sources []Source `yaml:"sources"`
}

// ParseSources reads source descriptors from embedded YAML and validates
// them.
func ParseSources(data []byte) ([]Source, error) {
	var doc sourcesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse source descriptors: %w", err)
	}
	if len(doc.Sources) == 0 {
		return nil, domain.ErrValidation("source descriptors: no sources declared")
	}
	for _, s := range doc.Sources {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}
	return doc.Sources, nil
}

func (s Source) validate() error {
	if s.Name == "" {
		return domain.ErrValidation("source with empty name")
	}
	if s.URL == "" && s.File == "" {
		return domain.ErrValidation("source %q: neither url nor file set", s.Name)
	}
	if len(s.Columns) == 0 {
		return domain.ErrValidation("source %q: no columns declared", s.Name)
	}
	for _, c := range s.Columns {
		if _, err := kindFromName(c.Kind); err != nil {
			return domain.ErrValidation("source %q column %q: %v", s.Name, c.Name, err)
		}
	}
	if s.Wide != nil && s.Wide.Layout == "" {
		return domain.ErrValidation("source %q: wide spec needs a date layout", s.Name)
	}
	return nil
}

func kindFromName(name string) (table.Kind, error) {
	switch name {
	case "", "string":
		return table.KindString, nil
	case "int":
		return table.KindInt, nil
	case "float":
		return table.KindFloat, nil
	case "date":
		return table.KindDate, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", name)
	}
}

// Find returns a source by name from a descriptor list.
func Find(sources []Source, name string) (Source, bool) {
	for _, s := range sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
