package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inkhub/inkhub/internal/validate"
)

// file is the YAML shape of a schema file.
type file struct {
	Collections []collectionSpec `yaml:"collections"`
}

type collectionSpec struct {
	Slug   string      `yaml:"slug"`
	Fields []fieldSpec `yaml:"fields"`
}

// fieldSpec is the declarative subset of validation expressible in YAML.
// Custom rules are attached programmatically via Registry.Register.
type fieldSpec struct {
	Name          string             `yaml:"name"`
	Type          validate.FieldType `yaml:"type"`
	Required      bool               `yaml:"required"`
	DisplayFormat string             `yaml:"display_format"`

	Min    *float64 `yaml:"min"`
	Max    *float64 `yaml:"max"`
	Length *int     `yaml:"length"`
	Regex  string   `yaml:"regex"`
	Email  bool     `yaml:"email"`
	URI    bool     `yaml:"uri"`
	Unique bool     `yaml:"unique"`
}

func (s fieldSpec) field() validate.Field {
	f := validate.Field{
		Name:          s.Name,
		Type:          s.Type,
		Required:      s.Required,
		DisplayFormat: s.DisplayFormat,
	}

	rule := validate.NewRule()

	if s.Min != nil {
		rule = rule.Min(*s.Min)
	}

	if s.Max != nil {
		rule = rule.Max(*s.Max)
	}

	if s.Length != nil {
		rule = rule.Length(*s.Length)
	}

	if s.Regex != "" {
		rule = rule.Regex(s.Regex)
	}

	if s.Email {
		rule = rule.Email()
	}

	if s.URI {
		rule = rule.URI()
	}

	if s.Unique {
		rule = rule.Unique()
	}

	if !rule.Empty() {
		f.Rules = []validate.Rule{rule}
	}

	return f
}

// LoadFile reads collection definitions from a YAML schema file.
func LoadFile(path string) ([]Collection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}

	return Parse(raw)
}

// Parse decodes collection definitions from YAML.
func Parse(raw []byte) ([]Collection, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}

	collections := make([]Collection, 0, len(f.Collections))

	for _, spec := range f.Collections {
		c := Collection{Slug: spec.Slug}
		for _, fs := range spec.Fields {
			c.Fields = append(c.Fields, fs.field())
		}

		if err := c.Validate(); err != nil {
			return nil, err
		}

		collections = append(collections, c)
	}

	return collections, nil
}
